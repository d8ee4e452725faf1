package enums

import "fmt"

// RequisitionStatus is the single derived status of a requisition. The
// approval axis (draft, submitted, approved, rejected) and the serve axis
// (partially_served, fully_served) share one column.
type RequisitionStatus string

const (
	RequisitionStatusDraft           RequisitionStatus = "draft"
	RequisitionStatusSubmitted       RequisitionStatus = "submitted"
	RequisitionStatusApproved        RequisitionStatus = "approved"
	RequisitionStatusRejected        RequisitionStatus = "rejected"
	RequisitionStatusPartiallyServed RequisitionStatus = "partially_served"
	RequisitionStatusFullyServed     RequisitionStatus = "fully_served"
)

var validRequisitionStatuses = []RequisitionStatus{
	RequisitionStatusDraft,
	RequisitionStatusSubmitted,
	RequisitionStatusApproved,
	RequisitionStatusRejected,
	RequisitionStatusPartiallyServed,
	RequisitionStatusFullyServed,
}

// String implements fmt.Stringer.
func (r RequisitionStatus) String() string {
	return string(r)
}

// IsValid reports whether the value is a known RequisitionStatus.
func (r RequisitionStatus) IsValid() bool {
	for _, candidate := range validRequisitionStatuses {
		if candidate == r {
			return true
		}
	}
	return false
}

// IsServeAxis reports whether the status was produced by material serve rollup.
func (r RequisitionStatus) IsServeAxis() bool {
	return r == RequisitionStatusPartiallyServed || r == RequisitionStatusFullyServed
}

// ParseRequisitionStatus converts raw input into a RequisitionStatus.
func ParseRequisitionStatus(value string) (RequisitionStatus, error) {
	for _, candidate := range validRequisitionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid requisition status %q", value)
}
