package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/matreq-backend/api/responses"
	"github.com/angelmondragon/matreq-backend/api/validators"
	"github.com/angelmondragon/matreq-backend/internal/usage"
	pkgerrors "github.com/angelmondragon/matreq-backend/pkg/errors"
	"github.com/angelmondragon/matreq-backend/pkg/logger"
)

const maxReportSelections = 200

type usageReportRequest struct {
	TableIDs       []string `json:"table_ids" validate:"omitempty,max=200,dive,uuid"`
	RequisitionIDs []string `json:"requisition_ids" validate:"omitempty,max=200,dive,uuid"`
}

func (req usageReportRequest) toInput() (usage.ReportInput, error) {
	if len(req.TableIDs) == 0 && len(req.RequisitionIDs) == 0 {
		return usage.ReportInput{}, pkgerrors.New(pkgerrors.CodeValidation, "select at least one table or requisition")
	}
	if len(req.TableIDs)+len(req.RequisitionIDs) > maxReportSelections {
		return usage.ReportInput{}, pkgerrors.New(pkgerrors.CodeValidation, "too many selections for one report")
	}
	tableIDs, err := parseUUIDs("table_ids", req.TableIDs)
	if err != nil {
		return usage.ReportInput{}, err
	}
	reqIDs, err := parseUUIDs("requisition_ids", req.RequisitionIDs)
	if err != nil {
		return usage.ReportInput{}, err
	}
	return usage.ReportInput{TableIDs: tableIDs, RequisitionIDs: reqIDs}, nil
}

func parseUUIDs(field string, raw []string) ([]uuid.UUID, error) {
	out := make([]uuid.UUID, 0, len(raw))
	for _, value := range raw {
		id, err := uuid.Parse(value)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid id").
				WithDetails(map[string]any{"field": field, "value": value})
		}
		out = append(out, id)
	}
	return out, nil
}

// UsageReport aggregates raw material usage across the selected tables and
// requisitions.
func UsageReport(svc usage.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "usage")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		var payload usageReportRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summary, err := svc.Report(r.Context(), actor, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}
