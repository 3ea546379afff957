package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ledgerhub/p2pcore/internal/domain"
	"github.com/ledgerhub/p2pcore/internal/guard"
	"github.com/ledgerhub/p2pcore/internal/infra"
	"github.com/ledgerhub/p2pcore/internal/repository"
)

// deliverTimeout bounds a single push-sink attempt (spec §5).
const deliverTimeout = 30 * time.Second

// Worker is the Outbox Worker (spec §4.5): a long-running background
// consumer that claims pending outbox entries, delivers them to the push
// sink, and manages retries/failure with exponential backoff. The poll
// loop shape is grounded on the teacher's cmd/outbox-consumer, but the
// claim/deliver/backoff state machine itself is new — neither of the
// teacher's two outbox consumers tracks attempts or backs off (see
// DESIGN.md, spec §9's note on consolidating the double implementation).
type Worker struct {
	pool   *pgxpool.Pool
	outbox repository.OutboxStore
	users  repository.UserStore
	sink   *infra.PushSink
	audit  *infra.KafkaProducer
	logger *slog.Logger
	cb     *guard.CircuitBreaker

	pollInterval time.Duration
	Wake         chan struct{}
}

// New creates an Outbox Worker. audit may be a disabled (no-op) producer.
func New(pool *pgxpool.Pool, outbox repository.OutboxStore, users repository.UserStore, sink *infra.PushSink, audit *infra.KafkaProducer, pollInterval time.Duration, logger *slog.Logger) *Worker {
	return &Worker{
		pool:         pool,
		outbox:       outbox,
		users:        users,
		sink:         sink,
		audit:        audit,
		logger:       logger,
		cb:           guard.NewCircuitBreaker(5, 30*time.Second),
		pollInterval: pollInterval,
		Wake:         make(chan struct{}, 1),
	}
}

// Run blocks, processing outbox entries until ctx is cancelled. On
// cancellation it finishes the in-flight entry (commit or rollback) before
// returning (spec §5 graceful shutdown).
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info("outbox worker started", "poll_interval", w.pollInterval)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("outbox worker stopped")
			return
		case <-ticker.C:
		case <-w.Wake:
		}
		w.drain(ctx)
	}
}

// drain processes entries until none are eligible, so a single wakeup (or
// poll tick) clears the whole backlog instead of one entry per tick.
func (w *Worker) drain(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		processed, err := w.processOne(ctx)
		if err != nil {
			w.logger.Error("outbox processing error", "error", err)
			return
		}
		if !processed {
			return
		}
	}
}

func (w *Worker) processOne(ctx context.Context) (bool, error) {
	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin outbox tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	entry, err := w.outbox.ClaimOldestPending(ctx, tx, time.Now())
	if err != nil {
		return false, fmt.Errorf("claim outbox entry: %w", err)
	}
	if entry == nil {
		return false, nil
	}

	var payload domain.TransferredPayload
	if err := json.Unmarshal(entry.Payload, &payload); err != nil || len(payload.MissingFields()) > 0 {
		msg := "malformed outbox payload"
		if err != nil {
			msg = err.Error()
		} else {
			msg = fmt.Sprintf("missing fields: %v", payload.MissingFields())
		}
		if err := w.outbox.MarkFailed(ctx, tx, entry.ID, msg); err != nil {
			return false, err
		}
		if err := tx.Commit(ctx); err != nil {
			return false, err
		}
		w.logger.Warn("outbox entry failed validation", "id", entry.ID, "error", msg)
		return true, nil
	}

	sender, err := w.users.FindByID(ctx, tx, payload.SenderID)
	if err != nil {
		return false, fmt.Errorf("enrich sender: %w", err)
	}
	event := domain.MoneyReceivedEvent{
		TransactionUUID: payload.TransactionUUID,
		Amount:          payload.Amount,
		NewBalance:      payload.ReceiverBalanceAfter,
		ReceiverID:      payload.ReceiverID,
		Timestamp:       time.Now(),
	}
	if sender != nil {
		event.Sender = domain.SenderSummary{ID: sender.ID, Name: sender.Name, Email: sender.Email}
		event.Message = fmt.Sprintf("You received %d from %s", payload.Amount, sender.Name)
	}

	if err := w.deliver(ctx, payload.ReceiverID, event); err != nil {
		return w.recordFailure(ctx, tx, entry, err)
	}

	now := time.Now()
	if err := w.outbox.MarkDelivered(ctx, tx, entry.ID, now); err != nil {
		return false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return false, err
	}

	w.publishAudit(ctx, payload)
	return true, nil
}

func (w *Worker) deliver(ctx context.Context, receiverID int64, event domain.MoneyReceivedEvent) error {
	channel := fmt.Sprintf("user.%d", receiverID)
	if !w.cb.Check(ctx, channel).Allowed {
		return fmt.Errorf("push sink circuit open for %s", channel)
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal push event: %w", err)
	}

	deliverCtx, cancel := context.WithTimeout(ctx, deliverTimeout)
	defer cancel()

	if err := w.sink.Publish(deliverCtx, channel, payload); err != nil {
		w.cb.RecordFailure(channel)
		return err
	}
	w.cb.RecordSuccess(channel)
	return nil
}

// recordFailure implements spec §4.5 step 8: increment attempts, set
// last_attempted_at/error, and either leave it pending-with-backoff or
// transition to terminal failed once the attempt budget is exhausted.
func (w *Worker) recordFailure(ctx context.Context, tx pgx.Tx, entry *domain.OutboxEntry, deliverErr error) (bool, error) {
	attempts := entry.Attempts + 1
	now := time.Now()

	if attempts >= domain.MaxOutboxAttempts {
		if err := w.outbox.RecordTransientFailure(ctx, tx, entry.ID, attempts, now, deliverErr.Error()); err != nil {
			return false, err
		}
		if err := w.outbox.MarkFailed(ctx, tx, entry.ID, deliverErr.Error()); err != nil {
			return false, err
		}
	} else {
		if err := w.outbox.RecordTransientFailure(ctx, tx, entry.ID, attempts, now, deliverErr.Error()); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	w.logger.Warn("outbox delivery failed", "id", entry.ID, "attempts", attempts, "error", deliverErr)
	return true, nil
}

func (w *Worker) publishAudit(ctx context.Context, payload domain.TransferredPayload) {
	if w.audit == nil {
		return
	}
	msg, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if err := w.audit.Publish(ctx, "ledger.transfers", []byte(payload.TransactionUUID.String()), msg); err != nil {
		w.logger.Warn("audit publish failed", "error", err)
	}
}
