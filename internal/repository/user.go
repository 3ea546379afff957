package repository

import (
	"errors"
	"fmt"

	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/ledgerhub/p2pcore/internal/domain"
	"github.com/ledgerhub/p2pcore/internal/infra"
)

type userRepo struct{}

// NewUserStore returns a pgx-backed UserStore.
func NewUserStore() UserStore {
	return &userRepo{}
}

func (r *userRepo) FindByID(ctx context.Context, db DBTX, id int64) (*domain.User, error) {
	row := db.QueryRow(ctx, `
		SELECT id, name, email, password_hash, balance, initial_balance, created_at, updated_at
		FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (r *userRepo) FindByEmail(ctx context.Context, db DBTX, email string) (*domain.User, error) {
	row := db.QueryRow(ctx, `
		SELECT id, name, email, password_hash, balance, initial_balance, created_at, updated_at
		FROM users WHERE email = $1`, email)
	return scanUser(row)
}

func (r *userRepo) Create(ctx context.Context, db DBTX, u *domain.User) error {
	row := db.QueryRow(ctx, `
		INSERT INTO users (name, email, password_hash, balance, initial_balance)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`,
		u.Name, u.Email, u.PasswordHash,
		infra.Int64ToNumeric(u.Balance), infra.Int64ToNumeric(u.InitialBalance),
	)
	err := row.Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrEmailInUse()
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// LockPair locks both rows in the order ids are given. The caller sorts ids
// ascending before calling, so two sequential single-row locking statements
// are sufficient to realize the canonical lock order (spec §4.4 step 3) —
// a single `WHERE id = ANY($1) FOR UPDATE` would not guarantee the engine
// actually waits on the lower id first under contention.
func (r *userRepo) LockPair(ctx context.Context, tx pgx.Tx, ids [2]int64) (map[int64]*domain.User, error) {
	out := make(map[int64]*domain.User, 2)
	for _, id := range ids {
		row := tx.QueryRow(ctx, `
			SELECT id, name, email, password_hash, balance, initial_balance, created_at, updated_at
			FROM users WHERE id = $1 FOR UPDATE`, id)
		u, err := scanUser(row)
		if err != nil {
			return nil, err
		}
		if u != nil {
			out[u.ID] = u
		}
	}
	return out, nil
}

func (r *userRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, userID int64, delta int64) (*domain.User, error) {
	row := tx.QueryRow(ctx, `
		UPDATE users SET balance = balance + $1, updated_at = now()
		WHERE id = $2
		RETURNING id, name, email, password_hash, balance, initial_balance, created_at, updated_at`,
		infra.Int64ToNumeric(delta), userID)
	return scanUser(row)
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	var balNum, initNum pgtype.Numeric
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &balNum, &initNum, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	var convErr error
	u.Balance, convErr = infra.NumericToInt64(balNum)
	if convErr != nil {
		return nil, fmt.Errorf("convert balance: %w", convErr)
	}
	u.InitialBalance, convErr = infra.NumericToInt64(initNum)
	if convErr != nil {
		return nil, fmt.Errorf("convert initial_balance: %w", convErr)
	}
	return &u, nil
}
