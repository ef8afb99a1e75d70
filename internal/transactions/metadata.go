package transactions

// MetadataKind discriminates the extra semantics attached to a transaction
// row. Kindless rows carry no metadata row at all; their tag reads as NULL.
type MetadataKind int16

const (
	KindWithoutMetadata  MetadataKind = 0
	KindInternalTransfer MetadataKind = 1
	KindRecurring        MetadataKind = 2
	KindAccumulation     MetadataKind = 3
)

func (k MetadataKind) String() string {
	switch k {
	case KindInternalTransfer:
		return "internal_transfer"
	case KindRecurring:
		return "recurring"
	case KindAccumulation:
		return "accumulation"
	default:
		return "without_metadata"
	}
}

// kindFromTag maps a nullable stored tag to a kind. Absent or unmapped tags
// resolve to the default kind, keeping dispatch total.
func kindFromTag(tag *int16) MetadataKind {
	if tag == nil {
		return KindWithoutMetadata
	}
	switch MetadataKind(*tag) {
	case KindInternalTransfer, KindRecurring, KindAccumulation:
		return MetadataKind(*tag)
	default:
		return KindWithoutMetadata
	}
}
