package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/midnight-labs/pincade/core"
	"github.com/midnight-labs/pincade/ports"
)

func newRedisStore(t *testing.T) (ports.Store, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisStore(client), mr
}

func TestRedisStorePutGet(t *testing.T) {
	s, _ := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "refresh_token:u1:abc", `{"userId":"u1"}`, time.Hour))

	val, err := s.Get(ctx, "refresh_token:u1:abc")
	require.NoError(t, err)
	assert.Equal(t, `{"userId":"u1"}`, val)

	_, err = s.Get(ctx, "refresh_token:u1:missing")
	assert.ErrorIs(t, err, core.ErrRecordNotFound)
}

func TestRedisStoreTTLExpiry(t *testing.T) {
	s, mr := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "refresh_token:u1:abc", "v", time.Minute))

	mr.FastForward(2 * time.Minute)

	_, err := s.Get(ctx, "refresh_token:u1:abc")
	assert.ErrorIs(t, err, core.ErrRecordNotFound)
}

func TestRedisStoreDeleteIdempotent(t *testing.T) {
	s, _ := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "refresh_token:u1:abc", "v", time.Hour))

	existed, err := s.Delete(ctx, "refresh_token:u1:abc")
	require.NoError(t, err)
	assert.True(t, existed)

	existed, err = s.Delete(ctx, "refresh_token:u1:abc")
	require.NoError(t, err)
	assert.False(t, existed)
}

func TestRedisStoreDeleteAllMatching(t *testing.T) {
	s, _ := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "refresh_token:u1:a", "v", time.Hour))
	require.NoError(t, s.Put(ctx, "refresh_token:u1:b", "v", time.Hour))
	require.NoError(t, s.Put(ctx, "refresh_token:u2:c", "v", time.Hour))

	removed, err := s.DeleteAllMatching(ctx, "refresh_token:u1:")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	// u2's record must survive the prefix delete.
	_, err = s.Get(ctx, "refresh_token:u2:c")
	assert.NoError(t, err)

	removed, err = s.DeleteAllMatching(ctx, "refresh_token:u1:")
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
}

func TestRedisStorePing(t *testing.T) {
	s, mr := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, s.Ping(ctx))

	mr.Close()
	assert.ErrorIs(t, s.Ping(ctx), core.ErrStoreUnavailable)
}

func TestRedisStoreFailsClosedWhenDown(t *testing.T) {
	s, mr := newRedisStore(t)
	ctx := context.Background()

	mr.Close()

	_, err := s.Get(ctx, "refresh_token:u1:a")
	assert.ErrorIs(t, err, core.ErrStoreUnavailable)
	assert.NotErrorIs(t, err, core.ErrRecordNotFound)

	assert.ErrorIs(t, s.Put(ctx, "k", "v", time.Minute), core.ErrStoreUnavailable)
}
