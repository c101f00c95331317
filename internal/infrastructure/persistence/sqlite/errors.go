package sqlite

import (
	"errors"
	"strings"

	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/housepoints/house-points-hub/internal/domain/shared"
	"github.com/housepoints/house-points-hub/pkg/retry"
)

func errorCode(err error) (int, bool) {
	var se *msqlite.Error
	if errors.As(err, &se) {
		return se.Code(), true
	}
	return 0, false
}

// IsForeignKeyViolation checks for SQLITE_CONSTRAINT_FOREIGNKEY.
func IsForeignKeyViolation(err error) bool {
	code, ok := errorCode(err)
	if !ok {
		return false
	}
	if code == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY {
		return true
	}
	return code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(err.Error(), "FOREIGN KEY")
}

// IsConstraintViolation checks for any other constraint failure (UNIQUE, CHECK, NOT NULL).
func IsConstraintViolation(err error) bool {
	code, ok := errorCode(err)
	return ok && code&0xff == sqlite3.SQLITE_CONSTRAINT
}

// IsBusy reports lock contention that a later retry may clear.
func IsBusy(err error) bool {
	code, ok := errorCode(err)
	if !ok {
		return false
	}
	switch code & 0xff {
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return true
	}
	return false
}

func mapError(domain, op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case IsForeignKeyViolation(err):
		return shared.WrapError(domain, op, shared.ErrReference, "referenced row does not exist", err)
	case IsConstraintViolation(err):
		return shared.WrapError(domain, op, shared.ErrValidation, "constraint violated", err)
	case IsBusy(err):
		return shared.Storage(domain, op, retry.Retryable(err))
	default:
		return shared.Storage(domain, op, err)
	}
}
