package types

import "time"

// VersionEntry is one field-level change event in the append-only ledger.
// Entries are never mutated or deleted; rollback appends a new forward
// entry instead of touching history.
type VersionEntry struct {
	// ID is the monotonic surrogate key assigned by the ledger
	ID uint64 `json:"id"`

	// RecordID identifies the row the change applies to
	RecordID int64 `json:"record_id"`

	// FieldName is the column name at the time of the change. The ledger
	// does not hold a foreign key to a column descriptor: if the column is
	// later dropped, the entry persists but is no longer actionable.
	FieldName string `json:"field_name"`

	// OldValue is the canonical string form before the change, nil on creation
	OldValue *string `json:"old_value"`

	// NewValue is the canonical string form after the change
	NewValue *string `json:"new_value"`

	// ChangedAt is the time the change was committed
	ChangedAt time.Time `json:"changed_at"`

	// ChangedBy identifies the actor that made the change
	ChangedBy string `json:"changed_by"`
}

// FieldDiff is one pending field change, recorded as a VersionEntry when
// the enclosing write commits.
type FieldDiff struct {
	Field string
	Old   *string
	New   *string
}
