package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

type sessionRepo struct{}

// NewSessionStore returns a pgx-backed SessionStore. New relative to the
// teacher: AttaboyGO's JWTs are stateless and never consult a revocation
// table (see DESIGN.md).
func NewSessionStore() SessionStore {
	return &sessionRepo{}
}

func (r *sessionRepo) Insert(ctx context.Context, db DBTX, jti string, userID int64, expiresAt time.Time) error {
	_, err := db.Exec(ctx, `
		INSERT INTO sessions (jti, user_id, expires_at) VALUES ($1, $2, $3)`,
		jti, userID, expiresAt)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// IsRevoked reports true if the jti has been explicitly revoked, or if it
// is not a known session at all (fail closed).
func (r *sessionRepo) IsRevoked(ctx context.Context, db DBTX, jti string) (bool, error) {
	var revokedAt *time.Time
	err := db.QueryRow(ctx, `SELECT revoked_at FROM sessions WHERE jti = $1`, jti).Scan(&revokedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return true, nil
		}
		return false, fmt.Errorf("lookup session: %w", err)
	}
	return revokedAt != nil, nil
}

func (r *sessionRepo) Revoke(ctx context.Context, db DBTX, jti string) error {
	_, err := db.Exec(ctx, `
		UPDATE sessions SET revoked_at = now() WHERE jti = $1 AND revoked_at IS NULL`, jti)
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}
