package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrDuplicateToken is returned when an insert trips the unique index on
	// the gate token column. The creation retry loop regenerates and retries.
	ErrDuplicateToken = errors.New("duplicate gate token")

	// ErrDuplicatePlanName is returned when a rate plan name already exists
	// within the lot.
	ErrDuplicatePlanName = errors.New("duplicate rate plan name for lot")

	// ErrStatusConflict is returned when a status-guarded update matched no
	// row: another request moved the reservation first.
	ErrStatusConflict = errors.New("reservation status changed concurrently")
)

const uniqueViolation = "23505"

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == uniqueViolation && pgErr.ConstraintName == constraint
}
