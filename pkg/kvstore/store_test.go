package kvstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"beyond-pages/pkg/redis"
)

// runStoreContract exercises the behavior every Store must share.
func runStoreContract(t *testing.T, s Store) {
	ctx := context.Background()

	_, found, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Set(ctx, "guest:g1:guestSession", `{"isGuest":true}`, 0))
	require.NoError(t, s.Set(ctx, "rate_limit_g1_post", `{"count":1}`, time.Hour))
	require.NoError(t, s.Set(ctx, "rate_limit_g1_reply", `{"count":2}`, time.Hour))
	require.NoError(t, s.Set(ctx, "rate_limit_g2_post", `{"count":3}`, time.Hour))

	val, found, err := s.Get(ctx, "guest:g1:guestSession")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `{"isGuest":true}`, val)

	keys, err := s.Keys(ctx, "rate_limit_g1_")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"rate_limit_g1_post", "rate_limit_g1_reply"}, keys)

	n, err := DeletePrefix(ctx, s, "rate_limit_g1_")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	keys, err = s.Keys(ctx, "rate_limit_")
	require.NoError(t, err)
	assert.Equal(t, []string{"rate_limit_g2_post"}, keys)

	n, err = DeletePrefix(ctx, s, "nothing_")
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, s.Delete(ctx, "guest:g1:guestSession"))
	_, found, err = s.Get(ctx, "guest:g1:guestSession")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryStore(t *testing.T) {
	runStoreContract(t, NewMemory())
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := redis.NewClient("redis://"+mr.Addr(), "test", nil)
	require.NoError(t, err)
	defer client.Close()

	runStoreContract(t, NewRedis(client))
}

func TestRedisStore_UsesEnvironmentPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := redis.NewClient("redis://"+mr.Addr(), "production", nil)
	require.NoError(t, err)
	defer client.Close()

	s := NewRedis(client)
	require.NoError(t, s.Set(context.Background(), "prefs:u1:high-contrast", "true", 0))

	assert.True(t, mr.Exists("prod:prefs:u1:high-contrast"))
	keys, err := s.Keys(context.Background(), "prefs:")
	require.NoError(t, err)
	assert.Equal(t, []string{"prefs:u1:high-contrast"}, keys)
}

func TestMemoryStore_TTL(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m := NewMemoryWithClock(func() time.Time { return now })
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "short", "v", time.Minute))
	require.NoError(t, m.Set(ctx, "forever", "v", 0))
	assert.Equal(t, 2, m.Len())

	now = now.Add(time.Minute)

	_, found, err := m.Get(ctx, "short")
	require.NoError(t, err)
	assert.False(t, found)

	_, found, err = m.Get(ctx, "forever")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 1, m.Len())
}
