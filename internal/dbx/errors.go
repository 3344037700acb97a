package dbx

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	uniqueViolation      = "23505"
	invalidText          = "22P02"
	serializationFailure = "40001"
	deadlockDetected     = "40P01"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// IsUniqueViolation reports whether err carries a PostgreSQL unique
// constraint violation.
func IsUniqueViolation(err error) bool {
	return pgCode(err) == uniqueViolation
}

// IsInvalidText reports whether PostgreSQL rejected a parameter that does
// not parse as the column type, such as a non-UUID id.
func IsInvalidText(err error) bool {
	return pgCode(err) == invalidText
}

// IsRetryable reports whether the transaction that produced err can be
// rerun: serialization failures and detected deadlocks.
func IsRetryable(err error) bool {
	switch pgCode(err) {
	case serializationFailure, deadlockDetected:
		return true
	}
	return false
}
