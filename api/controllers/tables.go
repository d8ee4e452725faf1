package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/matreq-backend/api/responses"
	"github.com/angelmondragon/matreq-backend/api/validators"
	"github.com/angelmondragon/matreq-backend/internal/tables"
	"github.com/angelmondragon/matreq-backend/internal/workflow"
	"github.com/angelmondragon/matreq-backend/pkg/db/models"
	"github.com/angelmondragon/matreq-backend/pkg/logger"
)

const (
	maxTableNameLen = 120
	maxRemarksLen   = 2000
)

type tableCreateRequest struct {
	Name       string  `json:"name" validate:"required,max=120"`
	DateNeeded *string `json:"date_needed"`
	Remarks    *string `json:"remarks" validate:"omitempty,max=2000"`
}

func (req tableCreateRequest) toInput() (tables.CreateInput, error) {
	input := tables.CreateInput{
		Name:    validators.SanitizeString(req.Name, maxTableNameLen),
		Remarks: sanitizeOptional(req.Remarks, maxRemarksLen),
	}
	if req.DateNeeded != nil {
		date, err := validators.ParseDate("date_needed", *req.DateNeeded)
		if err != nil {
			return tables.CreateInput{}, err
		}
		input.DateNeeded = date
	}
	return input, nil
}

type tableUpdateRequest struct {
	Name       *string `json:"name" validate:"omitempty,min=1,max=120"`
	DateNeeded *string `json:"date_needed"`
	Remarks    *string `json:"remarks" validate:"omitempty,max=2000"`
}

func (req tableUpdateRequest) toInput() (tables.UpdateInput, error) {
	input := tables.UpdateInput{
		Name:    sanitizeOptional(req.Name, maxTableNameLen),
		Remarks: sanitizeOptional(req.Remarks, maxRemarksLen),
	}
	if req.DateNeeded != nil {
		date, err := validators.ParseDate("date_needed", *req.DateNeeded)
		if err != nil {
			return tables.UpdateInput{}, err
		}
		input.DateNeeded = date
	}
	return input, nil
}

type reviewRequest struct {
	Remarks *string `json:"remarks" validate:"omitempty,max=2000"`
}

type tableDetailResponse struct {
	Table       *models.RequisitionTable `json:"table"`
	Permissions tables.Permissions       `json:"permissions"`
}

func TableCreate(svc tables.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "table")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		var payload tableCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.Create(r.Context(), actor, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, created)
	}
}

// TableList returns the caller's own tables.
func TableList(svc tables.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "table")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		list, err := svc.ListByUser(r.Context(), actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// TableDetail returns the table together with what the caller may do with it.
func TableDetail(svc tables.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "table")
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

		table, err := svc.Get(r.Context(), actor, tableID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		perms, err := svc.Permissions(r.Context(), actor, tableID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, tableDetailResponse{Table: table, Permissions: perms})
	}
}

func TableUpdate(svc tables.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "table")
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

		var payload tableUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.Update(r.Context(), actor, tableID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}

func TableDelete(svc tables.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "table")
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

		result, err := svc.Delete(r.Context(), actor, tableID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// TableSubmit submits a table; ?confirm=true acknowledges cut-off warnings.
func TableSubmit(svc tables.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "table")
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

		submitted, err := svc.Submit(r.Context(), actor, tableID, confirm)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, submitted)
	}
}

// AdminPendingTables lists every submitted table awaiting review.
func AdminPendingTables(svc tables.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "table")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		list, err := svc.ListPendingApproval(r.Context(), actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func AdminApproveTable(svc tables.Service, logg *logger.Logger) http.HandlerFunc {
	return reviewHandler(svc, logg, tables.Service.Approve)
}

func AdminRejectTable(svc tables.Service, logg *logger.Logger) http.HandlerFunc {
	return reviewHandler(svc, logg, tables.Service.Reject)
}

type reviewFunc func(tables.Service, context.Context, workflow.Actor, uuid.UUID, *string) (*models.RequisitionTable, error)

func reviewHandler(svc tables.Service, logg *logger.Logger, review reviewFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "table")
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

		var payload reviewRequest
		if err := validators.DecodeOptionalJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		reviewed, err := review(svc, r.Context(), actor, tableID, sanitizeOptional(payload.Remarks, maxRemarksLen))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, reviewed)
	}
}

func sanitizeOptional(value *string, maxLen int) *string {
	if value == nil {
		return nil
	}
	clean := validators.SanitizeString(*value, maxLen)
	return &clean
}
