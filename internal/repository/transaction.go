package repository

import (
	"errors"
	"fmt"

	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/ledgerhub/p2pcore/internal/domain"
	"github.com/ledgerhub/p2pcore/internal/infra"
)

type transactionRepo struct{}

// NewTransactionStore returns a pgx-backed TransactionStore.
func NewTransactionStore() TransactionStore {
	return &transactionRepo{}
}

func (r *transactionRepo) FindByIdempotencyKeyForUpdate(ctx context.Context, tx pgx.Tx, key string) (*domain.Transaction, error) {
	row := tx.QueryRow(ctx, `
		SELECT uuid, sender_id, receiver_id, amount, commission, status, idempotency_key, metadata, created_at
		FROM transactions WHERE idempotency_key = $1 FOR UPDATE`, key)
	return scanTransaction(row)
}

func (r *transactionRepo) Insert(ctx context.Context, tx pgx.Tx, t domain.Transaction) (*domain.Transaction, error) {
	if t.UUID == uuid.Nil {
		t.UUID = uuid.New()
	}
	meta := t.Metadata
	if meta == nil {
		meta = []byte(`{}`)
	}
	row := tx.QueryRow(ctx, `
		INSERT INTO transactions (uuid, sender_id, receiver_id, amount, commission, status, idempotency_key, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING uuid, sender_id, receiver_id, amount, commission, status, idempotency_key, metadata, created_at`,
		t.UUID, t.SenderID, t.ReceiverID,
		infra.Int64ToNumeric(t.Amount), infra.Int64ToNumeric(t.Commission),
		string(t.Status), t.IdempotencyKey, meta,
	)
	return scanTransaction(row)
}

func (r *transactionRepo) FindByUUID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Transaction, error) {
	row := db.QueryRow(ctx, `
		SELECT uuid, sender_id, receiver_id, amount, commission, status, idempotency_key, metadata, created_at
		FROM transactions WHERE uuid = $1`, id)
	return scanTransaction(row)
}

func (r *transactionRepo) ListByUser(ctx context.Context, db DBTX, userID int64, direction domain.Direction, page, perPage int) ([]domain.Transaction, error) {
	if perPage <= 0 || perPage > 100 {
		perPage = 20
	}
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * perPage

	var where string
	var arg interface{} = userID
	switch direction {
	case domain.DirectionSent:
		where = "sender_id = $1"
	case domain.DirectionReceived:
		where = "receiver_id = $1"
	default:
		where = "sender_id = $1 OR receiver_id = $1"
	}

	rows, err := db.Query(ctx, fmt.Sprintf(`
		SELECT uuid, sender_id, receiver_id, amount, commission, status, idempotency_key, metadata, created_at
		FROM transactions
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, where), arg, perPage, offset)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		t, err := scanTransactionRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// StatsFor computes the five aggregates with two queries, one over the
// caller's sent transactions and one over the received ones, backed by the
// (sender_id, created_at) / (receiver_id, created_at) indexes.
func (r *transactionRepo) StatsFor(ctx context.Context, db DBTX, userID int64) (domain.TransactionStats, error) {
	var stats domain.TransactionStats
	var sentTotalNum, commissionNum, receivedTotalNum pgtype.Numeric

	err := db.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount + commission), 0), COALESCE(SUM(commission), 0), COUNT(*)
		FROM transactions WHERE sender_id = $1 AND status = 'completed'`, userID,
	).Scan(&sentTotalNum, &commissionNum, &stats.SentCount)
	if err != nil {
		return stats, fmt.Errorf("sent stats: %w", err)
	}

	err = db.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0), COUNT(*)
		FROM transactions WHERE receiver_id = $1 AND status = 'completed'`, userID,
	).Scan(&receivedTotalNum, &stats.ReceivedCount)
	if err != nil {
		return stats, fmt.Errorf("received stats: %w", err)
	}

	stats.SentTotalWithCommission, err = infra.NumericToInt64(sentTotalNum)
	if err != nil {
		return stats, err
	}
	stats.CommissionPaid, err = infra.NumericToInt64(commissionNum)
	if err != nil {
		return stats, err
	}
	stats.ReceivedTotal, err = infra.NumericToInt64(receivedTotalNum)
	if err != nil {
		return stats, err
	}
	return stats, nil
}

func (r *transactionRepo) InsertBalanceSnapshot(ctx context.Context, tx pgx.Tx, s domain.BalanceSnapshot) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO balance_snapshots (user_id, balance, transaction_uuid)
		VALUES ($1, $2, $3)`,
		s.UserID, infra.Int64ToNumeric(s.Balance), s.TransactionUUID)
	if err != nil {
		return fmt.Errorf("insert balance snapshot: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	return scanTransactionRow(row)
}

func scanTransactionRow(row scanner) (*domain.Transaction, error) {
	var t domain.Transaction
	var amountNum, commissionNum pgtype.Numeric
	var status string
	err := row.Scan(&t.UUID, &t.SenderID, &t.ReceiverID, &amountNum, &commissionNum, &status, &t.IdempotencyKey, &t.Metadata, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan transaction: %w", err)
	}
	t.Status = domain.TransactionStatus(status)

	var convErr error
	t.Amount, convErr = infra.NumericToInt64(amountNum)
	if convErr != nil {
		return nil, fmt.Errorf("convert amount: %w", convErr)
	}
	t.Commission, convErr = infra.NumericToInt64(commissionNum)
	if convErr != nil {
		return nil, fmt.Errorf("convert commission: %w", convErr)
	}
	return &t, nil
}
