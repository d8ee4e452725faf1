package controllers

import (
	"net/http"

	"github.com/angelmondragon/matreq-backend/api/middleware"
	"github.com/angelmondragon/matreq-backend/api/responses"
	"github.com/angelmondragon/matreq-backend/internal/workflow"
	pkgerrors "github.com/angelmondragon/matreq-backend/pkg/errors"
	"github.com/angelmondragon/matreq-backend/pkg/logger"
)

// requireActor writes a 401 and returns false when the request carries no actor.
func requireActor(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (workflow.Actor, bool) {
	actor, err := middleware.ActorFromContext(r.Context())
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return workflow.Actor{}, false
	}
	return actor, true
}

func serviceUnavailable(w http.ResponseWriter, r *http.Request, logg *logger.Logger, name string) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, name+" service unavailable"))
}
