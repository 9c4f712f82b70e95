package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisStore(rdb, ttl), mr
}

func storeContract(t *testing.T, s Store) {
	ctx := context.Background()

	_, ok, err := s.Link(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetLink(ctx, 1, "https://instagram.com/p/A/"))
	require.NoError(t, s.SetLink(ctx, 2, "https://instagram.com/p/B/"))
	require.NoError(t, s.SetLink(ctx, 1, "https://instagram.com/reel/C/"))

	link, ok, err := s.Link(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "https://instagram.com/reel/C/", link)

	link, ok, err = s.Link(ctx, 2)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "https://instagram.com/p/B/", link)

	require.NoError(t, s.Clear(ctx, 1))
	_, ok, err = s.Link(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore(t *testing.T) {
	s, _ := newRedisStore(t, time.Hour)
	storeContract(t, s)
}

func TestMemoryStore(t *testing.T) {
	storeContract(t, NewMemoryStore(time.Hour))
}

func TestRedisStoreTTL(t *testing.T) {
	s, mr := newRedisStore(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, s.SetLink(ctx, 7, "https://instagram.com/p/A/"))
	assert.Equal(t, time.Minute, mr.TTL(keyLink(7)))

	mr.FastForward(2 * time.Minute)
	_, ok, err := s.Link(ctx, 7)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStoreTTL(t *testing.T) {
	s := NewMemoryStore(time.Minute)
	now := time.Now()
	s.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, s.SetLink(ctx, 7, "https://instagram.com/p/A/"))
	s.now = func() time.Time { return now.Add(2 * time.Minute) }

	_, ok, err := s.Link(ctx, 7)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStoreConcurrentUsersDoNotMix(t *testing.T) {
	s := NewMemoryStore(0)
	ctx := context.Background()

	var wg sync.WaitGroup
	for u := int64(1); u <= 50; u++ {
		wg.Add(1)
		go func(u int64) {
			defer wg.Done()
			_ = s.SetLink(ctx, u, fmt.Sprintf("https://instagram.com/p/%d/", u))
		}(u)
	}
	wg.Wait()

	for u := int64(1); u <= 50; u++ {
		link, ok, err := s.Link(ctx, u)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, fmt.Sprintf("https://instagram.com/p/%d/", u), link)
	}
}
