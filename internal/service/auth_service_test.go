package service_test

import (
	"context"
	"testing"
	"time"

	"taskprogress/internal/auth"
	"taskprogress/internal/model"
	"taskprogress/internal/service"
	"taskprogress/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockRevoker struct {
	mock.Mock
}

func (m *mockRevoker) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	args := m.Called(ctx, tokenID, ttl)
	return args.Error(0)
}

func (m *mockRevoker) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	args := m.Called(ctx, tokenID)
	return args.Bool(0), args.Error(1)
}

func TestAuthService_LoginAndAuthenticate(t *testing.T) {
	db := testutil.OpenDB(t)
	alice := testutil.CreateUser(t, db, "alice", model.RoleDataEntry)
	revoker := new(mockRevoker)
	svc := service.NewAuthService(db, auth.NewTokenManager("test-secret", time.Hour), revoker, zap.NewNop().Sugar())
	ctx := context.Background()

	user, token, err := svc.Login(ctx, " alice ", testutil.Password)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, user.ID)
	require.NotEmpty(t, token)

	revoker.On("IsRevoked", mock.Anything, mock.AnythingOfType("string")).Return(false, nil).Once()
	current, claims, err := svc.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, current.ID)
	assert.Equal(t, "data_entry", claims.Role)

	revoker.On("Revoke", mock.Anything, claims.ID, mock.AnythingOfType("time.Duration")).Return(nil).Once()
	require.NoError(t, svc.Logout(ctx, claims))

	revoker.On("IsRevoked", mock.Anything, claims.ID).Return(true, nil).Once()
	_, _, err = svc.Authenticate(ctx, token)
	assert.ErrorIs(t, err, auth.ErrTokenRevoked)

	revoker.AssertExpectations(t)
}

func TestAuthService_LoginFailures(t *testing.T) {
	db := testutil.OpenDB(t)
	alice := testutil.CreateUser(t, db, "alice", model.RoleDataEntry)
	svc := service.NewAuthService(db, auth.NewTokenManager("test-secret", time.Hour), nil, zap.NewNop().Sugar())
	ctx := context.Background()

	_, _, err := svc.Login(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)

	_, _, err = svc.Login(ctx, "nobody", testutil.Password)
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)

	testutil.Deactivate(t, db, alice)
	_, _, err = svc.Login(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, service.ErrInvalidCredentials, "wrong password wins over disabled")
	_, _, err = svc.Login(ctx, "alice", testutil.Password)
	assert.ErrorIs(t, err, service.ErrAccountDisabled)
}

func TestAuthService_AuthenticateDeletedUser(t *testing.T) {
	db := testutil.OpenDB(t)
	alice := testutil.CreateUser(t, db, "alice", model.RoleDataEntry)
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	svc := service.NewAuthService(db, tokens, nil, zap.NewNop().Sugar())

	token, err := tokens.GenerateToken(alice.ID, string(alice.Role))
	require.NoError(t, err)
	require.NoError(t, db.Delete(&model.User{}, alice.ID).Error)

	_, _, err = svc.Authenticate(context.Background(), token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}
