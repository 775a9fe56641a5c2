package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/civicworks/notifyhub/pkg/cache"
)

// DefaultDedupTTL is how long an event key is remembered.
const DefaultDedupTTL = 24 * time.Hour

// Deduper remembers event keys so that re-triggering the same logical event
// becomes a no-op. Claim returns true the first time a key is seen within ttl.
type Deduper interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// MemoryDeduper is an in-process Deduper for tests and single-node setups.
// It remembers at most capacity keys; the least recently claimed are
// forgotten first.
type MemoryDeduper struct {
	mu   sync.Mutex
	seen *cache.LRUCache[string, time.Time]
	now  func() time.Time
}

// DefaultDedupCapacity bounds the keys a MemoryDeduper keeps.
const DefaultDedupCapacity = 100_000

// NewMemoryDeduper creates an empty in-memory deduper. A non-positive
// capacity means DefaultDedupCapacity.
func NewMemoryDeduper(capacity int) *MemoryDeduper {
	if capacity <= 0 {
		capacity = DefaultDedupCapacity
	}
	return &MemoryDeduper{
		seen: cache.NewLRUCache[string, time.Time](capacity),
		now:  time.Now,
	}
}

func (m *MemoryDeduper) Claim(_ context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if expires, ok := m.seen.Get(key); ok && now.Before(expires) {
		return false, nil
	}
	m.seen.Put(key, now.Add(ttl))
	return true, nil
}

// RedisDeduper claims keys with SET NX so that several processes share one view.
type RedisDeduper struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisDeduper creates a deduper storing keys under prefix.
func NewRedisDeduper(client redis.UniversalClient, prefix string) *RedisDeduper {
	if prefix == "" {
		prefix = "notify:dedup:"
	}
	return &RedisDeduper{client: client, prefix: prefix}
}

func (r *RedisDeduper) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, r.prefix+key, 1, ttl).Result()
	if err != nil {
		return false, errors.Join(ErrStorage, err)
	}
	return ok, nil
}
