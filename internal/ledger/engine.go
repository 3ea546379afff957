package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ledgerhub/p2pcore/internal/domain"
	"github.com/ledgerhub/p2pcore/internal/repository"
)

// Engine is the Transfer Engine (spec §4.4): the atomic, idempotent,
// deadlock-resilient procedure that mutates two balances, writes the
// ledger entry and audit snapshots, and enqueues an outbox event as a
// single serializable unit of work. Grounded on the teacher's
// ledger.Engine (lock -> idempotency check -> post-entry), generalized
// from one locked row to a canonically-ordered pair.
type Engine struct {
	pool         *pgxpool.Pool
	users        repository.UserStore
	transactions repository.TransactionStore
	outbox       repository.OutboxStore

	// Wake notifies the Outbox Worker that new work is available after a
	// successful commit (spec §4.4 step 11). Sends are non-blocking and
	// best-effort — the worker's own poll loop is the source of truth if
	// a wake signal is ever lost.
	Wake chan<- struct{}
}

// NewEngine creates a Transfer Engine with the given store dependencies.
func NewEngine(pool *pgxpool.Pool, users repository.UserStore, transactions repository.TransactionStore, outbox repository.OutboxStore) *Engine {
	return &Engine{pool: pool, users: users, transactions: transactions, outbox: outbox}
}

// Transfer executes the core transfer(sender_id, receiver_id, amount,
// idempotency_key, metadata) -> Transaction operation (spec §4.4).
func (e *Engine) Transfer(ctx context.Context, senderID, receiverID, amount int64, idempotencyKey string, metadata json.RawMessage) (*domain.Transaction, error) {
	if senderID == receiverID {
		return nil, domain.ErrSelfTransferForbidden()
	}
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount()
	}
	if idempotencyKey == "" {
		return nil, domain.ErrInvalidIdempotencyKey()
	}

	var result *domain.Transaction
	for attempt := 1; attempt <= deadlockRetryBudget; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, domain.ErrDeadlineExceeded()
		}

		tx, err := e.pool.Begin(ctx)
		if err != nil {
			return nil, fmt.Errorf("begin transfer: %w", err)
		}

		result, err = e.attemptTransfer(ctx, tx, senderID, receiverID, amount, idempotencyKey, metadata)
		if err == nil {
			if cerr := tx.Commit(ctx); cerr != nil {
				_ = tx.Rollback(ctx)
				if isRetryableClass(cerr) && attempt < deadlockRetryBudget {
					time.Sleep(deadlockBackoff(attempt))
					continue
				}
				if isRetryableClass(cerr) {
					return nil, domain.ErrTransientLockContention()
				}
				return nil, fmt.Errorf("commit transfer: %w", cerr)
			}
			e.notifyWorker()
			return result, nil
		}

		_ = tx.Rollback(ctx)

		if isRetryableClass(err) && attempt < deadlockRetryBudget {
			time.Sleep(deadlockBackoff(attempt))
			continue
		}
		if isRetryableClass(err) {
			return nil, domain.ErrTransientLockContention()
		}
		return nil, err
	}

	return nil, domain.ErrTransientLockContention()
}

func (e *Engine) attemptTransfer(ctx context.Context, tx pgx.Tx, senderID, receiverID, amount int64, idempotencyKey string, metadata json.RawMessage) (*domain.Transaction, error) {
	existing, err := e.transactions.FindByIdempotencyKeyForUpdate(ctx, tx, idempotencyKey)
	if err != nil {
		return nil, fmt.Errorf("idempotency lookup: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	ids := sortAscending(senderID, receiverID)
	locked, err := e.users.LockPair(ctx, tx, ids)
	if err != nil {
		return nil, fmt.Errorf("lock users: %w", err)
	}

	sender, ok := locked[senderID]
	if !ok {
		return nil, domain.ErrUserNotFound(senderID)
	}
	receiver, ok := locked[receiverID]
	if !ok {
		return nil, domain.ErrUserNotFound(receiverID)
	}

	commission := Commission(amount)
	debit := amount + commission
	if sender.Balance < debit {
		return nil, domain.ErrInsufficientBalance()
	}

	updatedSender, err := e.users.UpdateBalance(ctx, tx, sender.ID, -debit)
	if err != nil {
		return nil, fmt.Errorf("debit sender: %w", err)
	}
	updatedReceiver, err := e.users.UpdateBalance(ctx, tx, receiver.ID, amount)
	if err != nil {
		return nil, fmt.Errorf("credit receiver: %w", err)
	}

	inserted, err := e.transactions.Insert(ctx, tx, domain.Transaction{
		UUID:           uuid.New(),
		SenderID:       sender.ID,
		ReceiverID:     receiver.ID,
		Amount:         amount,
		Commission:     commission,
		Status:         domain.TransactionCompleted,
		IdempotencyKey: idempotencyKey,
		Metadata:       metadata,
	})
	if err != nil {
		// A unique violation here means a concurrent attempt with the same
		// key raced us past the locked lookup above on another connection
		// (spec §4.4 step 7) — isRetryableClass folds this into the
		// deadlock-retry path in Transfer.
		return nil, fmt.Errorf("insert transaction: %w", err)
	}

	if err := e.transactions.InsertBalanceSnapshot(ctx, tx, domain.BalanceSnapshot{
		UserID: updatedSender.ID, Balance: updatedSender.Balance, TransactionUUID: inserted.UUID,
	}); err != nil {
		return nil, fmt.Errorf("insert sender snapshot: %w", err)
	}
	if err := e.transactions.InsertBalanceSnapshot(ctx, tx, domain.BalanceSnapshot{
		UserID: updatedReceiver.ID, Balance: updatedReceiver.Balance, TransactionUUID: inserted.UUID,
	}); err != nil {
		return nil, fmt.Errorf("insert receiver snapshot: %w", err)
	}

	entry, err := domain.NewMoneyTransferredEntry(inserted.UUID, domain.TransferredPayload{
		TransactionUUID:      inserted.UUID,
		SenderID:             sender.ID,
		ReceiverID:           receiver.ID,
		Amount:               amount,
		Commission:           commission,
		SenderBalanceAfter:   updatedSender.Balance,
		ReceiverBalanceAfter: updatedReceiver.Balance,
	})
	if err != nil {
		return nil, fmt.Errorf("build outbox entry: %w", err)
	}
	if _, err := e.outbox.Insert(ctx, tx, entry); err != nil {
		return nil, fmt.Errorf("insert outbox entry: %w", err)
	}

	return inserted, nil
}

func (e *Engine) notifyWorker() {
	if e.Wake == nil {
		return
	}
	select {
	case e.Wake <- struct{}{}:
	default:
	}
}

// sortAscending returns [a, b] in ascending order — the canonical lock
// order that prevents the ABBA deadlock between two concurrent transfers
// on the same pair in opposite directions (spec §4.4 rationale).
func sortAscending(a, b int64) [2]int64 {
	if a <= b {
		return [2]int64{a, b}
	}
	return [2]int64{b, a}
}
