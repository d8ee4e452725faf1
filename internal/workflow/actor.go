package workflow

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/matreq-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/matreq-backend/pkg/errors"
	"github.com/angelmondragon/matreq-backend/pkg/outbox"
)

// Actor is the authenticated caller performing an operation.
type Actor struct {
	UserID uuid.UUID
	Role   enums.ActorRole
}

// Validate rejects anonymous actors.
func (a Actor) Validate() error {
	if a.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !a.Role.IsValid() {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "actor role missing")
	}
	return nil
}

func (a Actor) IsAdmin() bool {
	return a.Role == enums.ActorRoleAdmin
}

// Ref converts the actor into the outbox envelope form.
func (a Actor) Ref() *outbox.ActorRef {
	return &outbox.ActorRef{UserID: a.UserID, Role: string(a.Role)}
}

// CanAccessTable reports whether the actor owns the table or is an admin.
func (a Actor) CanAccessTable(ownerID uuid.UUID) bool {
	return a.IsAdmin() || a.UserID == ownerID
}
