package enums

import (
	"fmt"
	"strings"
)

// RequisitionType selects the cut-off schedule a requisition is bound by.
type RequisitionType string

const (
	RequisitionTypePerishable  RequisitionType = "perishable"
	RequisitionTypeShelfStable RequisitionType = "shelf_stable"
)

var validRequisitionTypes = []RequisitionType{
	RequisitionTypePerishable,
	RequisitionTypeShelfStable,
}

// String implements fmt.Stringer.
func (r RequisitionType) String() string {
	return string(r)
}

// IsValid reports whether the value is a known RequisitionType.
func (r RequisitionType) IsValid() bool {
	for _, candidate := range validRequisitionTypes {
		if candidate == r {
			return true
		}
	}
	return false
}

// RequisitionTypes returns every known type in declaration order.
func RequisitionTypes() []RequisitionType {
	out := make([]RequisitionType, len(validRequisitionTypes))
	copy(out, validRequisitionTypes)
	return out
}

// ParseRequisitionType converts raw input into a RequisitionType. Hyphenated
// spellings ("shelf-stable") are accepted.
func ParseRequisitionType(value string) (RequisitionType, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(value)), "-", "_")
	for _, candidate := range validRequisitionTypes {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid requisition type %q", value)
}
