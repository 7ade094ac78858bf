package replay

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// NonceStore remembers webhook event IDs for the freshness window so a
// captured-and-replayed callback is rejected even though its signature
// still verifies. Checking and marking are separate operations: a nonce
// is marked only once its event has been fully processed, so a provider
// retry after a transient failure is not misread as a replay.
type NonceStore interface {
	// Seen reports whether the nonce was already marked inside its ttl.
	Seen(ctx context.Context, nonce string) (bool, error)
	// Mark records the nonce for ttl.
	Mark(ctx context.Context, nonce string, ttl time.Duration) error
}

const keyPrefix = "webhook_nonce:"

// RedisNonceStore backs the replay guard with redis keys + TTL, so the
// guard holds across multiple server instances.
type RedisNonceStore struct {
	client *redis.Client
}

// NewRedisNonceStore creates a redis-backed nonce store.
func NewRedisNonceStore(client *redis.Client) *RedisNonceStore {
	return &RedisNonceStore{client: client}
}

// Seen checks for the nonce key.
func (s *RedisNonceStore) Seen(ctx context.Context, nonce string) (bool, error) {
	n, err := s.client.Exists(ctx, keyPrefix+nonce).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Mark sets the nonce key with ttl.
func (s *RedisNonceStore) Mark(ctx context.Context, nonce string, ttl time.Duration) error {
	return s.client.Set(ctx, keyPrefix+nonce, "1", ttl).Err()
}

// MemoryNonceStore is a process-local nonce store for dev mode and tests.
// Entries past their deadline are swept lazily on each call.
type MemoryNonceStore struct {
	mu   sync.Mutex
	seen map[string]time.Time
}

// NewMemoryNonceStore creates an in-memory nonce store.
func NewMemoryNonceStore() *MemoryNonceStore {
	return &MemoryNonceStore{seen: make(map[string]time.Time)}
}

// Seen checks the local map.
func (s *MemoryNonceStore) Seen(_ context.Context, nonce string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweep(time.Now())

	deadline, ok := s.seen[nonce]
	return ok && time.Now().Before(deadline), nil
}

// Mark records the nonce in the local map.
func (s *MemoryNonceStore) Mark(_ context.Context, nonce string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.sweep(now)
	s.seen[nonce] = now.Add(ttl)
	return nil
}

func (s *MemoryNonceStore) sweep(now time.Time) {
	for k, deadline := range s.seen {
		if now.After(deadline) {
			delete(s.seen, k)
		}
	}
}
