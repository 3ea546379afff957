package service

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/ledgerhub/p2pcore/internal/auth"
	"github.com/ledgerhub/p2pcore/internal/domain"
	"github.com/ledgerhub/p2pcore/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeUserStore is an in-memory repository.UserStore substitute (spec §9's
// "polymorphism over repositories" supports exactly this kind of swap).
// It never touches the repository.DBTX argument, so the IdentityService
// under test can be wired with a nil *pgxpool.Pool.
type fakeUserStore struct {
	byID    map[int64]*domain.User
	byEmail map[string]*domain.User
	nextID  int64
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{byID: map[int64]*domain.User{}, byEmail: map[string]*domain.User{}}
}

func (f *fakeUserStore) FindByID(ctx context.Context, db repository.DBTX, id int64) (*domain.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserStore) FindByEmail(ctx context.Context, db repository.DBTX, email string) (*domain.User, error) {
	u, ok := f.byEmail[email]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserStore) Create(ctx context.Context, db repository.DBTX, u *domain.User) error {
	if _, exists := f.byEmail[u.Email]; exists {
		return domain.ErrEmailInUse()
	}
	f.nextID++
	u.ID = f.nextID
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	cp := *u
	f.byID[u.ID] = &cp
	f.byEmail[u.Email] = &cp
	return nil
}

func (f *fakeUserStore) LockPair(ctx context.Context, tx pgx.Tx, ids [2]int64) (map[int64]*domain.User, error) {
	out := map[int64]*domain.User{}
	for _, id := range ids {
		if u, ok := f.byID[id]; ok {
			cp := *u
			out[id] = &cp
		}
	}
	return out, nil
}

func (f *fakeUserStore) UpdateBalance(ctx context.Context, tx pgx.Tx, userID int64, delta int64) (*domain.User, error) {
	u, ok := f.byID[userID]
	if !ok {
		return nil, domain.ErrUserNotFound(userID)
	}
	u.Balance += delta
	cp := *u
	return &cp, nil
}

type fakeSessionStore struct {
	revoked map[string]bool
	owners  map[string]int64
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{revoked: map[string]bool{}, owners: map[string]int64{}}
}

func (f *fakeSessionStore) Insert(ctx context.Context, db repository.DBTX, jti string, userID int64, expiresAt time.Time) error {
	f.owners[jti] = userID
	return nil
}

func (f *fakeSessionStore) IsRevoked(ctx context.Context, db repository.DBTX, jti string) (bool, error) {
	return f.revoked[jti], nil
}

func (f *fakeSessionStore) Revoke(ctx context.Context, db repository.DBTX, jti string) error {
	f.revoked[jti] = true
	return nil
}

func newTestIdentityService() (*IdentityService, *fakeUserStore, *fakeSessionStore) {
	users := newFakeUserStore()
	sessions := newFakeSessionStore()
	jwtMgr := auth.NewJWTManager("test-secret", time.Hour)
	svc := NewIdentityService(nil, users, sessions, jwtMgr, 4)
	return svc, users, sessions
}

func TestIdentityService_RegisterThenAuthenticate(t *testing.T) {
	svc, _, _ := newTestIdentityService()
	ctx := context.Background()

	result, err := svc.Register(ctx, "Ada Lovelace", "ada@example.com", "correct horse battery")
	require.NoError(t, err)
	require.NotEmpty(t, result.Token)
	assert.Equal(t, int64(0), result.User.Balance)

	user, err := svc.Authenticate(ctx, result.Token)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "ada@example.com", user.Email)
}

func TestIdentityService_RegisterDuplicateEmailFails(t *testing.T) {
	svc, _, _ := newTestIdentityService()
	ctx := context.Background()

	_, err := svc.Register(ctx, "Ada", "dup@example.com", "correct horse battery")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "Ada Two", "dup@example.com", "correct horse battery")
	require.Error(t, err)
	appErr, ok := err.(*domain.AppError)
	require.True(t, ok)
	assert.Equal(t, "EMAIL_IN_USE", appErr.Code)
}

func TestIdentityService_RegisterRejectsWeakPassword(t *testing.T) {
	svc, _, _ := newTestIdentityService()
	_, err := svc.Register(context.Background(), "Ada", "ada@example.com", "short")
	require.Error(t, err)
}

func TestIdentityService_LoginWrongPasswordFailsWithoutLeakingExistence(t *testing.T) {
	svc, _, _ := newTestIdentityService()
	ctx := context.Background()
	_, err := svc.Register(ctx, "Ada", "ada@example.com", "correct horse battery")
	require.NoError(t, err)

	_, errWrongPass := svc.Login(ctx, "ada@example.com", "totally wrong password")
	_, errNoUser := svc.Login(ctx, "ghost@example.com", "totally wrong password")

	require.Error(t, errWrongPass)
	require.Error(t, errNoUser)
	assert.Equal(t, errWrongPass.Error(), errNoUser.Error())
}

func TestIdentityService_LogoutRevokesToken(t *testing.T) {
	svc, _, sessions := newTestIdentityService()
	ctx := context.Background()
	result, err := svc.Register(ctx, "Ada", "ada@example.com", "correct horse battery")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, result.Token))

	user, err := svc.Authenticate(ctx, result.Token)
	require.NoError(t, err)
	assert.Nil(t, user)
	assert.True(t, len(sessions.revoked) == 1)
}

func TestIdentityService_ResolveReceiver(t *testing.T) {
	svc, _, _ := newTestIdentityService()
	ctx := context.Background()
	callerResult, err := svc.Register(ctx, "Caller", "caller@example.com", "correct horse battery")
	require.NoError(t, err)
	_, err = svc.Register(ctx, "Target", "target@example.com", "correct horse battery")
	require.NoError(t, err)

	receiver, err := svc.ResolveReceiver(ctx, "target@example.com", callerResult.User)
	require.NoError(t, err)
	assert.Equal(t, "target@example.com", receiver.Email)

	_, err = svc.ResolveReceiver(ctx, "caller@example.com", callerResult.User)
	require.Error(t, err)
	appErr, ok := err.(*domain.AppError)
	require.True(t, ok)
	assert.Equal(t, "SELF_TRANSFER_FORBIDDEN", appErr.Code)

	_, err = svc.ResolveReceiver(ctx, "ghost@example.com", callerResult.User)
	require.Error(t, err)
	appErr, ok = err.(*domain.AppError)
	require.True(t, ok)
	assert.Equal(t, "RECEIVER_NOT_FOUND", appErr.Code)
}
