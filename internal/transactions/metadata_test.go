package transactions

import "testing"

func TestKindFromTag(t *testing.T) {
	if got := kindFromTag(nil); got != KindWithoutMetadata {
		t.Errorf("kindFromTag(nil) = %v", got)
	}

	cases := []struct {
		tag  int16
		want MetadataKind
	}{
		{1, KindInternalTransfer},
		{2, KindRecurring},
		{3, KindAccumulation},
		{99, KindWithoutMetadata},
	}
	for _, tc := range cases {
		tag := tc.tag
		if got := kindFromTag(&tag); got != tc.want {
			t.Errorf("kindFromTag(%d) = %v, want %v", tc.tag, got, tc.want)
		}
	}
}

func TestMetadataKindString(t *testing.T) {
	if KindInternalTransfer.String() == "" || KindWithoutMetadata.String() == "" {
		t.Error("kind names must not be empty")
	}
}
