package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisRevoker(t *testing.T) (*RedisRevoker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := Connect(context.Background(), mr.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisRevoker(client), mr
}

func TestRedisRevoker_RevokeThenIsRevoked(t *testing.T) {
	r, mr := newRedisRevoker(t)
	ctx := context.Background()

	require.NoError(t, r.Revoke(ctx, "token-1", time.Minute))

	revoked, err := r.IsRevoked(ctx, "token-1")
	require.NoError(t, err)
	assert.True(t, revoked)
	assert.True(t, mr.Exists(keyPrefix+"token-1"))
	assert.Equal(t, time.Minute, mr.TTL(keyPrefix+"token-1"))

	revoked, err = r.IsRevoked(ctx, "token-2")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRedisRevoker_MarkerExpiresWithToken(t *testing.T) {
	r, mr := newRedisRevoker(t)
	ctx := context.Background()
	require.NoError(t, r.Revoke(ctx, "token-1", time.Minute))

	mr.FastForward(time.Minute + time.Second)

	revoked, err := r.IsRevoked(ctx, "token-1")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRedisRevoker_ExpiredTokenIsNotStored(t *testing.T) {
	r, mr := newRedisRevoker(t)
	ctx := context.Background()

	require.NoError(t, r.Revoke(ctx, "token-1", 0))
	require.NoError(t, r.Revoke(ctx, "token-2", -time.Second))

	assert.Empty(t, mr.Keys())
	revoked, err := r.IsRevoked(ctx, "token-1")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRedisRevoker_BackendError(t *testing.T) {
	r, mr := newRedisRevoker(t)
	mr.Close()

	_, err := r.IsRevoked(context.Background(), "token-1")
	assert.Error(t, err)
}

func TestConnect_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	client, err := Connect(context.Background(), addr, "", 0)
	assert.Error(t, err)
	assert.Nil(t, client)
}

var _ Revoker = (*RedisRevoker)(nil)
