package workflow

import (
	"strings"

	"github.com/angelmondragon/matreq-backend/pkg/db/models"
	"github.com/angelmondragon/matreq-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/matreq-backend/pkg/errors"
)

// WarningReceiptRequired is the policy warning for approved tables without paperwork.
const WarningReceiptRequired = "receipt_required"

// CanEdit reports whether a table accepts requisition edits.
func CanEdit(table models.RequisitionTable) bool {
	return table.Status.IsEditable()
}

// CanAddRequisition gates new requisitions. Editable tables always accept
// them; approved tables need at least one pending or verified receipt.
func CanAddRequisition(table models.RequisitionTable, paperwork int64) error {
	if CanEdit(table) {
		return nil
	}
	if table.Status == enums.TableStatusApproved {
		if paperwork > 0 {
			return nil
		}
		return pkgerrors.New(pkgerrors.CodePolicyWarning, "approved table needs a PO receipt before new requisitions").
			WithDetails(map[string]any{"warning": WarningReceiptRequired, "table_id": table.ID})
	}
	return pkgerrors.Newf(pkgerrors.CodeStateConflict, "table is %s and cannot be edited", table.Status)
}

// EnsureEditable returns a state conflict for tables outside draft/rejected.
func EnsureEditable(table models.RequisitionTable) error {
	if CanEdit(table) {
		return nil
	}
	return pkgerrors.Newf(pkgerrors.CodeStateConflict, "table is %s and cannot be edited", table.Status)
}

// ValidateForSubmit checks that a table can be submitted with the given requisitions.
func ValidateForSubmit(table models.RequisitionTable, reqs []models.Requisition) error {
	if !CanEdit(table) {
		return pkgerrors.Newf(pkgerrors.CodeStateConflict, "table is %s and cannot be submitted", table.Status)
	}
	if table.ItemCount <= 0 || len(reqs) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "table has no requisitions")
	}

	incomplete := make([]map[string]any, 0)
	for _, r := range reqs {
		var missing []string
		if strings.TrimSpace(r.SKUCode) == "" {
			missing = append(missing, "sku_code")
		}
		if strings.TrimSpace(r.Supplier) == "" {
			missing = append(missing, "supplier")
		}
		if strings.TrimSpace(r.Brand) == "" {
			missing = append(missing, "brand")
		}
		if strings.TrimSpace(r.Unit) == "" {
			missing = append(missing, "unit")
		}
		if len(missing) > 0 {
			incomplete = append(incomplete, map[string]any{
				"requisition_id":     r.ID,
				"requisition_number": r.RequisitionNumber,
				"missing":            missing,
			})
		}
	}
	if len(incomplete) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "requisitions are incomplete").
			WithDetails(map[string]any{"requisitions": incomplete})
	}
	return nil
}

// EnsureSubmitted guards approve and reject.
func EnsureSubmitted(table models.RequisitionTable) error {
	if table.Status != enums.TableStatusSubmitted {
		return pkgerrors.Newf(pkgerrors.CodeStateConflict, "table is %s, expected submitted", table.Status)
	}
	return nil
}

// EnsureAdmin rejects non-admin reviewers.
func EnsureAdmin(role enums.ActorRole) error {
	if role != enums.ActorRoleAdmin {
		return pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	return nil
}
