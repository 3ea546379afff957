// Package service hosts the Identity component (spec §4.2): registration,
// login, token issuance/revocation, and receiver resolution. Grounded on
// the teacher's AuthService (jbrackens-AttaboyGO/internal/service/auth.go):
// bcrypt hashing, a transactional register path, JWT issuance — adapted
// from a three-table player/profile/auth-user write to a single User row,
// and extended with Logout/ResolveReceiver which the teacher never needed
// (AttaboyGO tokens are stateless and it has no peer-to-peer concept).
package service

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ledgerhub/p2pcore/internal/auth"
	"github.com/ledgerhub/p2pcore/internal/domain"
	"github.com/ledgerhub/p2pcore/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// IdentityService implements registration, authentication, and receiver
// resolution (spec §4.2).
type IdentityService struct {
	pool       *pgxpool.Pool
	users      repository.UserStore
	sessions   repository.SessionStore
	jwtMgr     *auth.JWTManager
	bcryptCost int
}

// NewIdentityService creates an IdentityService.
func NewIdentityService(pool *pgxpool.Pool, users repository.UserStore, sessions repository.SessionStore, jwtMgr *auth.JWTManager, bcryptCost int) *IdentityService {
	if bcryptCost <= 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &IdentityService{pool: pool, users: users, sessions: sessions, jwtMgr: jwtMgr, bcryptCost: bcryptCost}
}

// AuthResult is the (user, token) pair returned by Register and Login.
type AuthResult struct {
	User  *domain.User
	Token string
}

// Register creates a new User with a zero balance and issues a bearer
// token (spec §4.2). Fails with ErrEmailInUse on a unique-email violation,
// ErrValidationFailed if the documented constraints are not met.
func (s *IdentityService) Register(ctx context.Context, name, email, password string) (*AuthResult, error) {
	if err := domain.ValidateName(name); err != nil {
		return nil, domain.ErrValidationFailed(err.Error())
	}
	if err := domain.ValidateEmail(email); err != nil {
		return nil, domain.ErrValidationFailed(err.Error())
	}
	if err := domain.ValidatePassword(password); err != nil {
		return nil, domain.ErrValidationFailed(err.Error())
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, domain.ErrInternal("hash password", err)
	}

	user := &domain.User{
		Name:           name,
		Email:          email,
		PasswordHash:   string(hash),
		Balance:        0,
		InitialBalance: 0,
	}
	if err := s.users.Create(ctx, s.pool, user); err != nil {
		return nil, err
	}

	return s.issueToken(ctx, user)
}

// Login verifies credentials and issues a bearer token. The public error
// does not distinguish "no such user" from "wrong password" (spec §4.2).
func (s *IdentityService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.FindByEmail(ctx, s.pool, email)
	if err != nil {
		return nil, domain.ErrInternal("find user", err)
	}
	if user == nil {
		return nil, domain.ErrValidationFailed("invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrValidationFailed("invalid email or password")
	}

	return s.issueToken(ctx, user)
}

func (s *IdentityService) issueToken(ctx context.Context, user *domain.User) (*AuthResult, error) {
	token, jti, expiresAt, err := s.jwtMgr.GenerateToken(user.ID, user.Email, user.Name)
	if err != nil {
		return nil, domain.ErrInternal("generate token", err)
	}
	if err := s.sessions.Insert(ctx, s.pool, jti, user.ID, expiresAt); err != nil {
		return nil, domain.ErrInternal("persist session", err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

// Authenticate looks up a live, non-revoked token and returns its owning
// user, or nil if the token is invalid, expired, or revoked (spec §4.2).
func (s *IdentityService) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	claims, err := s.jwtMgr.ValidateToken(token)
	if err != nil {
		return nil, nil
	}
	revoked, err := s.sessions.IsRevoked(ctx, s.pool, claims.ID)
	if err != nil {
		return nil, domain.ErrInternal("check revocation", err)
	}
	if revoked {
		return nil, nil
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, nil
	}
	return s.users.FindByID(ctx, s.pool, userID)
}

// Logout revokes the specific token used to make the call. Other tokens
// issued to the same user survive (spec §4.2).
func (s *IdentityService) Logout(ctx context.Context, token string) error {
	claims, err := s.jwtMgr.ValidateToken(token)
	if err != nil {
		return nil
	}
	return s.sessions.Revoke(ctx, s.pool, claims.ID)
}

// ResolveReceiver returns the user with the given email for transfer
// initiation. Fails with ErrReceiverNotFound if absent, or
// ErrSelfTransferForbidden if the caller named themselves (spec §4.2).
func (s *IdentityService) ResolveReceiver(ctx context.Context, email string, caller *domain.User) (*domain.User, error) {
	if email == caller.Email {
		return nil, domain.ErrSelfTransferForbidden()
	}
	receiver, err := s.users.FindByEmail(ctx, s.pool, email)
	if err != nil {
		return nil, domain.ErrInternal("find receiver", err)
	}
	if receiver == nil {
		return nil, domain.ErrReceiverNotFound()
	}
	return receiver, nil
}
