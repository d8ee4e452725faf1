// Package workflow holds the pure requisition and table lifecycle rules: status
// rollup, edit gating and submit validation.
package workflow

import (
	"github.com/angelmondragon/matreq-backend/pkg/db/models"
	"github.com/angelmondragon/matreq-backend/pkg/enums"
)

// DeriveStatus rolls material serve state up to a requisition status. current
// is the requisition's stored status; serve-axis values fall back to the
// approval value when every material is pending again.
func DeriveStatus(materials []models.RequisitionMaterial, current enums.RequisitionStatus, approved bool) enums.RequisitionStatus {
	approval := current
	if current.IsServeAxis() || current == "" {
		approval = enums.RequisitionStatusDraft
		if approved {
			approval = enums.RequisitionStatusApproved
		}
	}
	if len(materials) == 0 {
		return approval
	}

	var full, touched int
	for _, m := range materials {
		switch m.Status() {
		case enums.MaterialStatusFullyServed:
			full++
			if m.ServedQty.Sign() > 0 {
				touched++
			}
		case enums.MaterialStatusPartiallyServed:
			touched++
		}
	}

	switch {
	// zero-required materials alone only complete an approved requisition
	case full == len(materials) && (touched > 0 || approved):
		return enums.RequisitionStatusFullyServed
	case touched > 0:
		return enums.RequisitionStatusPartiallyServed
	default:
		return approval
	}
}

// Rollup re-derives req.Status from its materials.
func Rollup(req *models.Requisition) enums.RequisitionStatus {
	req.Status = DeriveStatus(req.Materials, req.Status, req.ApprovedAt != nil)
	return req.Status
}
