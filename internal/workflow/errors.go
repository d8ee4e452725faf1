package workflow

import (
	"errors"

	"gorm.io/gorm"

	pkgerrors "github.com/angelmondragon/matreq-backend/pkg/errors"
)

// StoreError maps repository failures. Typed errors pass through, missing rows
// become NotFound with notFound as the message, anything else is a dependency
// failure described by op.
func StoreError(err error, notFound, op string) error {
	if err == nil {
		return nil
	}
	if typed := pkgerrors.As(err); typed != nil {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFound)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}
