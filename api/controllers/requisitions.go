package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/matreq-backend/api/responses"
	"github.com/angelmondragon/matreq-backend/api/validators"
	"github.com/angelmondragon/matreq-backend/internal/requisitions"
	"github.com/angelmondragon/matreq-backend/internal/workflow"
	"github.com/angelmondragon/matreq-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/matreq-backend/pkg/errors"
	"github.com/angelmondragon/matreq-backend/pkg/logger"
)

// requisitionCreateRequest carries supplier/brand as a dropdown value plus the
// free text used when "Other" is selected.
type requisitionCreateRequest struct {
	Type          string  `json:"type" validate:"required"`
	SKUCode       string  `json:"sku_code" validate:"required_without=SKUName,max=64"`
	SKUName       string  `json:"sku_name" validate:"required_without=SKUCode,max=200"`
	Category      string  `json:"category" validate:"max=120"`
	QtyNeeded     int     `json:"qty_needed" validate:"required"`
	DateNeeded    *string `json:"date_needed"`
	Supplier      string  `json:"supplier" validate:"max=200"`
	SupplierOther string  `json:"supplier_other" validate:"max=200"`
	Brand         string  `json:"brand" validate:"max=200"`
	BrandOther    string  `json:"brand_other" validate:"max=200"`
	Unit          string  `json:"unit" validate:"max=40"`
	Remarks       *string `json:"remarks" validate:"omitempty,max=2000"`
	Confirm       bool    `json:"confirm"`
}

func (req requisitionCreateRequest) toInput() (requisitions.CreateInput, error) {
	typ, err := enums.ParseRequisitionType(req.Type)
	if err != nil {
		return requisitions.CreateInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid requisition type")
	}
	supplier, err := workflow.ParseChoice("supplier", req.Supplier, req.SupplierOther)
	if err != nil {
		return requisitions.CreateInput{}, err
	}
	brand, err := workflow.ParseChoice("brand", req.Brand, req.BrandOther)
	if err != nil {
		return requisitions.CreateInput{}, err
	}
	date, err := optionalDate("date_needed", req.DateNeeded)
	if err != nil {
		return requisitions.CreateInput{}, err
	}
	return requisitions.CreateInput{
		Type:       typ,
		SKUCode:    strings.TrimSpace(req.SKUCode),
		SKUName:    strings.TrimSpace(req.SKUName),
		Category:   strings.TrimSpace(req.Category),
		QtyNeeded:  req.QtyNeeded,
		DateNeeded: date,
		Supplier:   supplier,
		Brand:      brand,
		Unit:       strings.TrimSpace(req.Unit),
		Remarks:    sanitizeOptional(req.Remarks, maxRemarksLen),
		Confirm:    req.Confirm,
	}, nil
}

type requisitionPatchRequest struct {
	Type          *string `json:"type"`
	Supplier      *string `json:"supplier" validate:"omitempty,max=200"`
	SupplierOther string  `json:"supplier_other" validate:"max=200"`
	Brand         *string `json:"brand" validate:"omitempty,max=200"`
	BrandOther    string  `json:"brand_other" validate:"max=200"`
	Unit          *string `json:"unit" validate:"omitempty,max=40"`
	DateNeeded    *string `json:"date_needed"`
	Remarks       *string `json:"remarks" validate:"omitempty,max=2000"`
	Confirm       bool    `json:"confirm"`
}

func (req requisitionPatchRequest) toPatch() (requisitions.FieldsPatch, error) {
	patch := requisitions.FieldsPatch{
		Unit:    sanitizeOptional(req.Unit, 40),
		Remarks: sanitizeOptional(req.Remarks, maxRemarksLen),
		Confirm: req.Confirm,
	}
	if req.Type != nil {
		typ, err := enums.ParseRequisitionType(*req.Type)
		if err != nil {
			return requisitions.FieldsPatch{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid requisition type")
		}
		patch.Type = &typ
	}
	if req.Supplier != nil {
		choice, err := workflow.ParseChoice("supplier", *req.Supplier, req.SupplierOther)
		if err != nil {
			return requisitions.FieldsPatch{}, err
		}
		patch.Supplier = &choice
	}
	if req.Brand != nil {
		choice, err := workflow.ParseChoice("brand", *req.Brand, req.BrandOther)
		if err != nil {
			return requisitions.FieldsPatch{}, err
		}
		patch.Brand = &choice
	}
	date, err := optionalDate("date_needed", req.DateNeeded)
	if err != nil {
		return requisitions.FieldsPatch{}, err
	}
	patch.DateNeeded = date
	return patch, nil
}

type quantityRequest struct {
	QtyNeeded int `json:"qty_needed" validate:"required"`
}

type serveRequest struct {
	ServedQty  string  `json:"served_qty" validate:"required"`
	Remarks    *string `json:"remarks" validate:"omitempty,max=2000"`
	ServedDate *string `json:"served_date"`
}

func (req serveRequest) toInput() (requisitions.ServeInput, error) {
	qty, err := decimal.NewFromString(strings.TrimSpace(req.ServedQty))
	if err != nil {
		return requisitions.ServeInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "served_qty must be numeric")
	}
	date, err := optionalDate("served_date", req.ServedDate)
	if err != nil {
		return requisitions.ServeInput{}, err
	}
	return requisitions.ServeInput{
		ServedQty:  qty,
		Remarks:    sanitizeOptional(req.Remarks, maxRemarksLen),
		ServedDate: date,
	}, nil
}

func RequisitionList(svc requisitions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "requisition")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		tableID, err := validators.ParseUUIDParam(r, "tableId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListByTable(r.Context(), actor, tableID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// RequisitionCreate adds a requisition to a table. Confirmation may come from
// the body or ?confirm=true.
func RequisitionCreate(svc requisitions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "requisition")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		tableID, err := validators.ParseUUIDParam(r, "tableId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		confirm, err := validators.ParseQueryBool(r, "confirm")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload requisitionCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input.Confirm = input.Confirm || confirm

		created, err := svc.Create(r.Context(), actor, tableID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, created)
	}
}

func RequisitionDetail(svc requisitions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "requisition")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.ParseUUIDParam(r, "requisitionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		req, err := svc.Get(r.Context(), actor, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, req)
	}
}

func RequisitionUpdate(svc requisitions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "requisition")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.ParseUUIDParam(r, "requisitionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		confirm, err := validators.ParseQueryBool(r, "confirm")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload requisitionPatchRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		patch, err := payload.toPatch()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		patch.Confirm = patch.Confirm || confirm

		updated, err := svc.UpdateFields(r.Context(), actor, id, patch)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}

func RequisitionUpdateQuantity(svc requisitions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "requisition")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.ParseUUIDParam(r, "requisitionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload quantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.UpdateQuantity(r.Context(), actor, id, payload.QtyNeeded)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}

func RequisitionServeMaterial(svc requisitions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "requisition")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.ParseUUIDParam(r, "requisitionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		materialID, err := validators.ParseUUIDParam(r, "materialId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload serveRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.ServeMaterial(r.Context(), actor, id, materialID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}

func RequisitionDelete(svc requisitions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "requisition")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.ParseUUIDParam(r, "requisitionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), actor, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"id": id, "deleted": true})
	}
}

func optionalDate(field string, raw *string) (*time.Time, error) {
	if raw == nil {
		return nil, nil
	}
	return validators.ParseDate(field, *raw)
}
