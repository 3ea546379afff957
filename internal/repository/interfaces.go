package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ledgerhub/p2pcore/internal/domain"
)

// DBTX abstracts pgx.Tx and pgxpool.Pool so repositories work with both
// (spec §9: "polymorphism over repositories" maps to capability interfaces).
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// UserStore provides access to users. The Transfer Engine depends on this
// narrow capability set, not a concrete pgx implementation (spec §9).
type UserStore interface {
	FindByID(ctx context.Context, db DBTX, id int64) (*domain.User, error)
	FindByEmail(ctx context.Context, db DBTX, email string) (*domain.User, error)
	Create(ctx context.Context, db DBTX, u *domain.User) error

	// LockPair loads and exclusively locks both user rows, in the order the
	// ids are given. The caller is responsible for canonical sorting (spec
	// §4.1, §4.4 step 3). Missing ids are simply absent from the result.
	LockPair(ctx context.Context, tx pgx.Tx, ids [2]int64) (map[int64]*domain.User, error)

	// UpdateBalance applies delta to the balance column via server-side
	// arithmetic on an already-locked row.
	UpdateBalance(ctx context.Context, tx pgx.Tx, userID int64, delta int64) (*domain.User, error)
}

// TransactionStore provides access to the append-only transactions ledger.
type TransactionStore interface {
	// FindByIdempotencyKeyForUpdate looks up a transaction by its
	// idempotency key, row-locked, inside the caller's transaction (spec
	// §4.4 step 2).
	FindByIdempotencyKeyForUpdate(ctx context.Context, tx pgx.Tx, key string) (*domain.Transaction, error)

	Insert(ctx context.Context, tx pgx.Tx, t domain.Transaction) (*domain.Transaction, error)
	FindByUUID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Transaction, error)

	ListByUser(ctx context.Context, db DBTX, userID int64, direction domain.Direction, page, perPage int) ([]domain.Transaction, error)
	StatsFor(ctx context.Context, db DBTX, userID int64) (domain.TransactionStats, error)

	InsertBalanceSnapshot(ctx context.Context, tx pgx.Tx, s domain.BalanceSnapshot) error
}

// OutboxStore provides access to the transactional outbox.
type OutboxStore interface {
	Insert(ctx context.Context, tx pgx.Tx, e domain.OutboxEntry) (*domain.OutboxEntry, error)

	// ClaimOldestPending locks the oldest eligible pending entry (spec §4.5
	// steps 2-3), skipping entries still inside their backoff window. It
	// returns nil, nil if none are eligible.
	ClaimOldestPending(ctx context.Context, tx pgx.Tx, now time.Time) (*domain.OutboxEntry, error)

	MarkDelivered(ctx context.Context, tx pgx.Tx, id int64, deliveredAt time.Time) error
	MarkFailed(ctx context.Context, tx pgx.Tx, id int64, errMsg string) error
	RecordTransientFailure(ctx context.Context, tx pgx.Tx, id int64, attempts int, attemptedAt time.Time, errMsg string) error
}

// SessionStore provides access to the jti-keyed bearer token revocation
// ledger. The teacher's JWTs are stateless; this is new relative to it
// (spec §4.2's authenticate/logout require revocation — see DESIGN.md).
type SessionStore interface {
	Insert(ctx context.Context, db DBTX, jti string, userID int64, expiresAt time.Time) error
	IsRevoked(ctx context.Context, db DBTX, jti string) (bool, error)
	Revoke(ctx context.Context, db DBTX, jti string) error
}
