package enums

import "fmt"

// ReceiptStatus tracks verification of an uploaded PO receipt.
type ReceiptStatus string

const (
	ReceiptStatusPending  ReceiptStatus = "pending"
	ReceiptStatusVerified ReceiptStatus = "verified"
	ReceiptStatusRejected ReceiptStatus = "rejected"
)

var validReceiptStatuses = []ReceiptStatus{
	ReceiptStatusPending,
	ReceiptStatusVerified,
	ReceiptStatusRejected,
}

// String implements fmt.Stringer.
func (r ReceiptStatus) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ReceiptStatus.
func (r ReceiptStatus) IsValid() bool {
	for _, candidate := range validReceiptStatuses {
		if candidate == r {
			return true
		}
	}
	return false
}

// CountsAsPaperwork reports whether the receipt unlocks new work on an approved table.
func (r ReceiptStatus) CountsAsPaperwork() bool {
	return r == ReceiptStatusPending || r == ReceiptStatusVerified
}

// ParseReceiptStatus converts raw input into a ReceiptStatus.
func ParseReceiptStatus(value string) (ReceiptStatus, error) {
	for _, candidate := range validReceiptStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid receipt status %q", value)
}
