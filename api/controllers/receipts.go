package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/matreq-backend/api/responses"
	"github.com/angelmondragon/matreq-backend/api/validators"
	"github.com/angelmondragon/matreq-backend/internal/receipts"
	"github.com/angelmondragon/matreq-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/matreq-backend/pkg/errors"
	"github.com/angelmondragon/matreq-backend/pkg/logger"
)

type receiptCreateRequest struct {
	RequisitionID *string `json:"requisition_id" validate:"omitempty,uuid"`
	PONumber      string  `json:"po_number" validate:"required,max=64"`
	Supplier      string  `json:"supplier" validate:"required,max=200"`
	Amount        string  `json:"amount" validate:"required"`
	ReceiptDate   string  `json:"receipt_date" validate:"required"`
	FileName      *string `json:"file_name" validate:"omitempty,max=255"`
	FileSize      *int64  `json:"file_size" validate:"omitempty,min=0"`
	ContentType   *string `json:"content_type" validate:"omitempty,max=120"`
	StoragePath   *string `json:"storage_path" validate:"omitempty,max=1024"`
}

func (req receiptCreateRequest) toInput() (receipts.CreateInput, error) {
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return receipts.CreateInput{}, err
	}
	date, err := validators.ParseDate("receipt_date", req.ReceiptDate)
	if err != nil {
		return receipts.CreateInput{}, err
	}
	if date == nil {
		return receipts.CreateInput{}, pkgerrors.New(pkgerrors.CodeValidation, "receipt_date is required")
	}
	input := receipts.CreateInput{
		PONumber:    strings.TrimSpace(req.PONumber),
		Supplier:    strings.TrimSpace(req.Supplier),
		Amount:      amount,
		ReceiptDate: *date,
		FileName:    sanitizeOptional(req.FileName, 255),
		FileSize:    req.FileSize,
		ContentType: sanitizeOptional(req.ContentType, 120),
		StoragePath: sanitizeOptional(req.StoragePath, 1024),
	}
	if req.RequisitionID != nil {
		id, err := uuid.Parse(*req.RequisitionID)
		if err != nil {
			return receipts.CreateInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid requisition_id")
		}
		input.RequisitionID = &id
	}
	return input, nil
}

type receiptUpdateRequest struct {
	RequisitionID *string `json:"requisition_id" validate:"omitempty,uuid"`
	PONumber      *string `json:"po_number" validate:"omitempty,max=64"`
	Supplier      *string `json:"supplier" validate:"omitempty,max=200"`
	Amount        *string `json:"amount"`
	ReceiptDate   *string `json:"receipt_date"`
	Status        *string `json:"status"`
}

func (req receiptUpdateRequest) toInput() (receipts.UpdateInput, error) {
	input := receipts.UpdateInput{
		PONumber: sanitizeOptional(req.PONumber, 64),
		Supplier: sanitizeOptional(req.Supplier, 200),
	}
	if req.RequisitionID != nil {
		id, err := uuid.Parse(*req.RequisitionID)
		if err != nil {
			return receipts.UpdateInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid requisition_id")
		}
		input.RequisitionID = &id
	}
	if req.Amount != nil {
		amount, err := parseAmount(*req.Amount)
		if err != nil {
			return receipts.UpdateInput{}, err
		}
		input.Amount = &amount
	}
	if req.ReceiptDate != nil {
		date, err := validators.ParseDate("receipt_date", *req.ReceiptDate)
		if err != nil {
			return receipts.UpdateInput{}, err
		}
		input.ReceiptDate = date
	}
	if req.Status != nil {
		status, err := enums.ParseReceiptStatus(strings.ToLower(strings.TrimSpace(*req.Status)))
		if err != nil {
			return receipts.UpdateInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid receipt status")
		}
		input.Status = &status
	}
	return input, nil
}

func parseAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "amount must be a decimal string")
	}
	return amount, nil
}

func ReceiptList(svc receipts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "receipt")
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

// ReceiptCreate records PO receipt metadata; the file is uploaded to storage
// by the client beforehand.
func ReceiptCreate(svc receipts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "receipt")
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

		var payload receiptCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.Create(r.Context(), actor, tableID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, created)
	}
}

func ReceiptUpdate(svc receipts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "receipt")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.ParseUUIDParam(r, "receiptId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload receiptUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.Update(r.Context(), actor, id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}

func ReceiptDelete(svc receipts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "receipt")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.ParseUUIDParam(r, "receiptId")
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
