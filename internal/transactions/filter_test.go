package transactions

import (
	"reflect"
	"testing"
	"time"
)

func strPtr(s string) *string {
	return &s
}

func TestParseIDList(t *testing.T) {
	ids, err := ParseIDList(nil)
	if err != nil || ids != nil {
		t.Errorf("nil input: ids = %v, err = %v, want nil, nil", ids, err)
	}

	ids, err = ParseIDList(strPtr(""))
	if err != nil {
		t.Fatalf("empty input: %v", err)
	}
	if ids == nil || len(ids) != 0 {
		t.Errorf("empty input: ids = %v, want empty non-nil set", ids)
	}

	ids, err = ParseIDList(strPtr("1, 2,3"))
	if err != nil {
		t.Fatalf("list input: %v", err)
	}
	if !reflect.DeepEqual(ids, []int64{1, 2, 3}) {
		t.Errorf("ids = %v, want [1 2 3]", ids)
	}

	if _, err := ParseIDList(strPtr("1,x,3")); !IsValidation(err) {
		t.Errorf("bad input err = %v, want validation error", err)
	}
}

func TestParseFilterTime(t *testing.T) {
	got, err := ParseFilterTime(nil)
	if err != nil || got != nil {
		t.Errorf("nil input: %v, %v", got, err)
	}

	got, err = ParseFilterTime(strPtr("2024-03-01T12:00:00Z"))
	if err != nil {
		t.Fatalf("ParseFilterTime: %v", err)
	}
	want := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("time = %v, want %v", got, want)
	}

	if _, err := ParseFilterTime(strPtr("yesterday")); !IsValidation(err) {
		t.Errorf("bad input err = %v, want validation error", err)
	}
}

func TestNewFilterFromStrings(t *testing.T) {
	f, err := NewFilterFromStrings(
		strPtr("1,2"),
		nil,
		strPtr(""),
		strPtr("2024-01-01T00:00:00Z"),
		strPtr("2024-02-01T00:00:00Z"),
		strPtr("rent"),
	)
	if err != nil {
		t.Fatalf("NewFilterFromStrings: %v", err)
	}

	if !reflect.DeepEqual(f.CategoryIDs, []int64{1, 2}) {
		t.Errorf("CategoryIDs = %v", f.CategoryIDs)
	}
	if f.AccountIDs != nil {
		t.Errorf("AccountIDs = %v, want nil", f.AccountIDs)
	}
	if f.CurrencyIDs == nil || len(f.CurrencyIDs) != 0 {
		t.Errorf("CurrencyIDs = %v, want empty set", f.CurrencyIDs)
	}
	if f.FromTime == nil || f.ToTime == nil {
		t.Fatal("time bounds not parsed")
	}
	if f.Description == nil || *f.Description != "rent" {
		t.Errorf("Description = %v", f.Description)
	}
}

func TestFilterWithMethodsCopy(t *testing.T) {
	base := EmptyFilter
	derived := base.WithCategoryIDs([]int64{5}).WithDescription("food")

	if base.CategoryIDs != nil || base.Description != nil {
		t.Errorf("base filter mutated: %+v", base)
	}
	if !reflect.DeepEqual(derived.CategoryIDs, []int64{5}) {
		t.Errorf("derived CategoryIDs = %v", derived.CategoryIDs)
	}
	if derived.Description == nil || *derived.Description != "food" {
		t.Errorf("derived Description = %v", derived.Description)
	}
}

func TestValidateTime(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		f    Filter
		want bool
	}{
		{"both bounds within range", EmptyFilter.WithFromTime(from).WithToTime(from.AddDate(0, 0, 30)), true},
		{"exactly at limit", EmptyFilter.WithFromTime(from).WithToTime(from.AddDate(0, 0, 90)), true},
		{"over limit", EmptyFilter.WithFromTime(from).WithToTime(from.AddDate(0, 0, 91)), false},
		{"missing upper bound", EmptyFilter.WithFromTime(from), false},
		{"missing lower bound", EmptyFilter.WithToTime(from), false},
		{"no bounds", EmptyFilter, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.f.ValidateTime(90); got != tc.want {
				t.Errorf("ValidateTime(90) = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestConditions(t *testing.T) {
	where, args := EmptyFilter.conditions(7)
	if where != "t.owner_id = $1" {
		t.Errorf("where = %q", where)
	}
	if !reflect.DeepEqual(args, []any{int64(7)}) {
		t.Errorf("args = %v", args)
	}
}

func TestConditionsFull(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	f := EmptyFilter.
		WithCategoryIDs([]int64{1, 2}).
		WithAccountIDs([]int64{3}).
		WithDescription("rent").
		WithFromTime(from).
		WithToTime(to)

	where, args := f.conditions(7)

	want := "t.owner_id = $1" +
		" AND (t.category_id = $2 OR t.category_id = $3)" +
		" AND (t.account_id = $4)" +
		" AND t.description ILIKE $5" +
		" AND t.created_at >= $6" +
		" AND t.created_at <= $7"
	if where != want {
		t.Errorf("where = %q\nwant    %q", where, want)
	}

	wantArgs := []any{int64(7), int64(1), int64(2), int64(3), "%rent%", from, to}
	if !reflect.DeepEqual(args, wantArgs) {
		t.Errorf("args = %v, want %v", args, wantArgs)
	}
}

func TestConditionsEmptySetConstrainsNothing(t *testing.T) {
	f := EmptyFilter.WithCategoryIDs([]int64{})
	where, args := f.conditions(7)
	if where != "t.owner_id = $1" || len(args) != 1 {
		t.Errorf("empty set added a clause: %q %v", where, args)
	}
}
