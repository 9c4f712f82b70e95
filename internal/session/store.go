// Package session remembers the last link each Telegram user sent, so the
// action button pressed afterwards knows what to work on.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store maps a user id to the last submitted link.
type Store interface {
	SetLink(ctx context.Context, userID int64, link string) error
	// Link returns ok=false when the user has no stored link.
	Link(ctx context.Context, userID int64) (link string, ok bool, err error)
	Clear(ctx context.Context, userID int64) error
}

func keyLink(user int64) string { return fmt.Sprintf("link:%d", user) }

// RedisStore keeps links in Redis with a TTL.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (s *RedisStore) SetLink(ctx context.Context, userID int64, link string) error {
	return s.rdb.Set(ctx, keyLink(userID), link, s.ttl).Err()
}

func (s *RedisStore) Link(ctx context.Context, userID int64) (string, bool, error) {
	v, err := s.rdb.Get(ctx, keyLink(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *RedisStore) Clear(ctx context.Context, userID int64) error {
	return s.rdb.Del(ctx, keyLink(userID)).Err()
}

type memEntry struct {
	link    string
	expires time.Time
}

// MemoryStore is a process-local Store for single-process deployments.
type MemoryStore struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	links map[int64]memEntry
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, now: time.Now, links: make(map[int64]memEntry)}
}

func (s *MemoryStore) SetLink(_ context.Context, userID int64, link string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := memEntry{link: link}
	if s.ttl > 0 {
		e.expires = s.now().Add(s.ttl)
	}
	s.links[userID] = e
	return nil
}

func (s *MemoryStore) Link(_ context.Context, userID int64) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.links[userID]
	if !ok {
		return "", false, nil
	}
	if !e.expires.IsZero() && s.now().After(e.expires) {
		delete(s.links, userID)
		return "", false, nil
	}
	return e.link, true, nil
}

func (s *MemoryStore) Clear(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.links, userID)
	return nil
}
