package enums

import "fmt"

// TableStatus tracks the approval workflow of a requisition table.
type TableStatus string

const (
	TableStatusDraft     TableStatus = "draft"
	TableStatusSubmitted TableStatus = "submitted"
	TableStatusApproved  TableStatus = "approved"
	TableStatusRejected  TableStatus = "rejected"
)

var validTableStatuses = []TableStatus{
	TableStatusDraft,
	TableStatusSubmitted,
	TableStatusApproved,
	TableStatusRejected,
}

// String implements fmt.Stringer.
func (t TableStatus) String() string {
	return string(t)
}

// IsValid reports whether the value is a known TableStatus.
func (t TableStatus) IsValid() bool {
	for _, candidate := range validTableStatuses {
		if candidate == t {
			return true
		}
	}
	return false
}

// IsEditable reports whether requisitions may be added or changed. A rejected
// table is editable exactly like a draft.
func (t TableStatus) IsEditable() bool {
	return t == TableStatusDraft || t == TableStatusRejected
}

// ParseTableStatus converts raw input into a TableStatus.
func ParseTableStatus(value string) (TableStatus, error) {
	for _, candidate := range validTableStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid table status %q", value)
}
