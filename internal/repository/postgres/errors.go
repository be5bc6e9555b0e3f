package postgres

import (
	"errors"
	"fmt"

	"talentMarket/domain"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeUniqueViolation      = "23505"
)

// wrapError turns driver errors into domain errors. Serialization failures,
// deadlocks and unique violations from concurrent inserts become
// ErrConcurrencyConflict so the transactor retries them.
func wrapError(err error, op string) error {
	if err == nil {
		return nil
	}
	if isRetryable(err) {
		return fmt.Errorf("%w: %s: %v", domain.ErrConcurrencyConflict, op, err)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

func isRetryable(err error) bool {
	if errors.Is(err, domain.ErrConcurrencyConflict) {
		return true
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case codeSerializationFailure, codeDeadlockDetected, codeUniqueViolation:
		return true
	}
	return false
}
