package repository

import (
	"errors"
	"fmt"
	"time"

	"context"

	"github.com/jackc/pgx/v5"
	"github.com/ledgerhub/p2pcore/internal/domain"
)

type outboxRepo struct{}

// NewOutboxStore returns a pgx-backed OutboxStore.
func NewOutboxStore() OutboxStore {
	return &outboxRepo{}
}

func (r *outboxRepo) Insert(ctx context.Context, tx pgx.Tx, e domain.OutboxEntry) (*domain.OutboxEntry, error) {
	row := tx.QueryRow(ctx, `
		INSERT INTO transaction_outbox (transaction_uuid, event_type, payload, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, transaction_uuid, event_type, payload, status, attempts, last_attempted_at, delivered_at, error, created_at`,
		e.TransactionUUID, e.EventType, e.Payload, string(domain.OutboxPending),
	)
	return scanOutbox(row)
}

// ClaimOldestPending selects the oldest pending entry whose backoff window
// (if any) has elapsed, locks it, and transitions it to processing — all
// inside the caller's transaction (spec §4.5 steps 2-3). The backoff
// schedule mirrored here must stay in sync with domain.BackoffSchedule.
func (r *outboxRepo) ClaimOldestPending(ctx context.Context, tx pgx.Tx, now time.Time) (*domain.OutboxEntry, error) {
	row := tx.QueryRow(ctx, `
		SELECT id, transaction_uuid, event_type, payload, status, attempts, last_attempted_at, delivered_at, error, created_at
		FROM transaction_outbox
		WHERE status = 'pending'
		  AND (
		    attempts = 0 OR last_attempted_at IS NULL
		    OR $1 >= last_attempted_at + (
		      CASE attempts
		        WHEN 1 THEN 10 WHEN 2 THEN 20 WHEN 3 THEN 40 WHEN 4 THEN 80 ELSE 160
		      END
		    ) * interval '1 second'
		  )
		ORDER BY created_at ASC
		FOR UPDATE SKIP LOCKED
		LIMIT 1`, now)

	entry, err := scanOutbox(row)
	if err != nil || entry == nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `UPDATE transaction_outbox SET status = 'processing' WHERE id = $1`, entry.ID); err != nil {
		return nil, fmt.Errorf("claim outbox entry: %w", err)
	}
	entry.Status = domain.OutboxProcessing
	return entry, nil
}

func (r *outboxRepo) MarkDelivered(ctx context.Context, tx pgx.Tx, id int64, deliveredAt time.Time) error {
	_, err := tx.Exec(ctx, `
		UPDATE transaction_outbox
		SET status = 'delivered', delivered_at = $2, last_attempted_at = $2
		WHERE id = $1`, id, deliveredAt)
	if err != nil {
		return fmt.Errorf("mark delivered: %w", err)
	}
	return nil
}

func (r *outboxRepo) MarkFailed(ctx context.Context, tx pgx.Tx, id int64, errMsg string) error {
	_, err := tx.Exec(ctx, `
		UPDATE transaction_outbox
		SET status = 'failed', error = $2, last_attempted_at = now()
		WHERE id = $1`, id, errMsg)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return nil
}

// RecordTransientFailure increments the attempt counter and returns the
// entry to pending (to be retried once its backoff window elapses), unless
// the attempt budget is exhausted, in which case the caller is expected to
// have already routed it through MarkFailed instead (spec §4.5 step 8).
func (r *outboxRepo) RecordTransientFailure(ctx context.Context, tx pgx.Tx, id int64, attempts int, attemptedAt time.Time, errMsg string) error {
	_, err := tx.Exec(ctx, `
		UPDATE transaction_outbox
		SET status = 'pending', attempts = $2, last_attempted_at = $3, error = $4
		WHERE id = $1`, id, attempts, attemptedAt, errMsg)
	if err != nil {
		return fmt.Errorf("record transient failure: %w", err)
	}
	return nil
}

func scanOutbox(row pgx.Row) (*domain.OutboxEntry, error) {
	var e domain.OutboxEntry
	var status string
	err := row.Scan(&e.ID, &e.TransactionUUID, &e.EventType, &e.Payload, &status,
		&e.Attempts, &e.LastAttemptedAt, &e.DeliveredAt, &e.Error, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan outbox entry: %w", err)
	}
	e.Status = domain.OutboxStatus(status)
	return &e, nil
}
