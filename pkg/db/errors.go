package db

import (
	"strings"

	pkgerrors "github.com/angelmondragon/matreq-backend/pkg/errors"
)

// pgUniqueViolation is SQLSTATE 23505.
const pgUniqueViolation = "23505"

// IsUniqueViolation reports whether err is a unique constraint failure. With a
// constraint name, Postgres errors must name that constraint and sqlite errors
// must mention it in the message ("UNIQUE constraint failed: table.column").
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	if pg, ok := pkgerrors.PostgresInfo(err); ok {
		if pg.Code != pgUniqueViolation {
			return false
		}
		return constraintName == "" || pg.Constraint == constraintName
	}

	msg := err.Error()
	if !strings.Contains(msg, "UNIQUE constraint failed") && !strings.Contains(msg, "duplicate key value") {
		return false
	}
	return constraintName == "" || strings.Contains(msg, constraintName)
}
