package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/matreq-backend/internal/workflow"
	pkgerrors "github.com/angelmondragon/matreq-backend/pkg/errors"
)

type actorKey struct{}

// WithActor stores the authenticated actor. Auth calls it for every verified
// token; handler tests call it directly.
func WithActor(ctx context.Context, actor workflow.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the actor set by Auth, or an UNAUTHORIZED error
// when the request never passed through it.
func ActorFromContext(ctx context.Context) (workflow.Actor, error) {
	actor, ok := ctx.Value(actorKey{}).(workflow.Actor)
	if !ok || actor.UserID == uuid.Nil {
		return workflow.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	if !actor.Role.IsValid() {
		return workflow.Actor{}, pkgerrors.Newf(pkgerrors.CodeUnauthorized, "invalid actor role %q", actor.Role)
	}
	return actor, nil
}

// UserIDFromContext is "" for anonymous requests.
func UserIDFromContext(ctx context.Context) string {
	if actor, err := ActorFromContext(ctx); err == nil {
		return actor.UserID.String()
	}
	return ""
}
