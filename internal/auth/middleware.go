package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/ledgerhub/p2pcore/internal/domain"
	"github.com/ledgerhub/p2pcore/internal/repository"
)

type contextKey string

const (
	claimsKey contextKey = "auth_claims"
	userIDKey contextKey = "auth_user_id"
	userKey   contextKey = "auth_user"
)

// ClaimsFromContext extracts JWT claims from the request context.
func ClaimsFromContext(ctx context.Context) *Claims {
	claims, _ := ctx.Value(claimsKey).(*Claims)
	return claims
}

// UserIDFromContext extracts the authenticated caller's numeric id.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok
}

// UserFromContext extracts the authenticated caller's full User row, as
// loaded by Authenticate. Returns nil if the request was never through
// the auth middleware.
func UserFromContext(ctx context.Context) *domain.User {
	u, _ := ctx.Value(userKey).(*domain.User)
	return u
}

// BearerFromRequest extracts the raw bearer token from the Authorization
// header, or "" if absent/malformed.
func BearerFromRequest(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}

// Authenticate returns middleware that validates the bearer token's
// signature and expiry, confirms it has not been revoked (spec §4.2: "a
// live, non-revoked token"), and loads the owning user into context.
func Authenticate(jwtMgr *JWTManager, sessions repository.SessionStore, users repository.UserStore, db repository.DBTX) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := extractAndValidate(r, jwtMgr)
			if err != nil {
				http.Error(w, `{"code":"UNAUTHORIZED","message":"`+err.Error()+`"}`, http.StatusUnauthorized)
				return
			}

			revoked, err := sessions.IsRevoked(r.Context(), db, claims.ID)
			if err != nil || revoked {
				http.Error(w, `{"code":"UNAUTHORIZED","message":"token is revoked or unknown"}`, http.StatusUnauthorized)
				return
			}

			userID, err := claims.UserID()
			if err != nil {
				http.Error(w, `{"code":"UNAUTHORIZED","message":"invalid subject"}`, http.StatusUnauthorized)
				return
			}

			user, err := users.FindByID(r.Context(), db, userID)
			if err != nil || user == nil {
				http.Error(w, `{"code":"UNAUTHORIZED","message":"user not found"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			ctx = context.WithValue(ctx, userIDKey, userID)
			ctx = context.WithValue(ctx, userKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractAndValidate(r *http.Request, jwtMgr *JWTManager) (*Claims, error) {
	token := BearerFromRequest(r)
	if token == "" {
		if r.Header.Get("Authorization") == "" {
			return nil, fmt.Errorf("missing Authorization header")
		}
		return nil, fmt.Errorf("invalid Authorization format")
	}

	return jwtMgr.ValidateToken(token)
}
