package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/matreq-backend/api/responses"
	"github.com/angelmondragon/matreq-backend/internal/cutoff"
	"github.com/angelmondragon/matreq-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/matreq-backend/pkg/errors"
	"github.com/angelmondragon/matreq-backend/pkg/logger"
)

// CutOffChecker reports the cut-off status of a requisition type.
type CutOffChecker interface {
	Check(typ enums.RequisitionType, now time.Time) (cutoff.Status, error)
}

// CutOffStatus answers whether the given type is past its weekly cut-off and
// when the next one falls.
func CutOffStatus(policy CutOffChecker, logg *logger.Logger) http.HandlerFunc {
	return cutOffStatus(policy, logg, time.Now)
}

func cutOffStatus(policy CutOffChecker, logg *logger.Logger, now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if policy == nil {
			serviceUnavailable(w, r, logg, "cutoff")
			return
		}
		if _, ok := requireActor(w, r, logg); !ok {
			return
		}
		typ, err := enums.ParseRequisitionType(chi.URLParam(r, "type"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid requisition type"))
			return
		}
		status, err := policy.Check(typ, now())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, status)
	}
}
