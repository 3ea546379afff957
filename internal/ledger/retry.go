package ledger

import (
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// deadlockRetryBudget is the max attempts the Transfer Engine's retry loop
// allows before surfacing domain.ErrTransientLockContention (spec §4.4).
const deadlockRetryBudget = 3

// deadlockBackoff returns the linear backoff applied before the given
// attempt number is retried: 100ms * attempt (spec §4.4 step 10, §5).
func deadlockBackoff(attempt int) time.Duration {
	return time.Duration(attempt) * 100 * time.Millisecond
}

// isRetryableClass reports whether err is a deadlock, serialization
// failure, or an idempotency-key unique-violation race (spec §4.4 step 7:
// "surface this as IdempotencyRace and treat it as deadlock-retry class").
func isRetryableClass(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "40001", "40P01": // serialization_failure, deadlock_detected
		return true
	case "23505": // unique_violation — only the idempotency_key race is routed here by the caller
		return pgErr.ConstraintName == "transactions_idempotency_key_key" || pgErr.ConstraintName == ""
	}
	return false
}
