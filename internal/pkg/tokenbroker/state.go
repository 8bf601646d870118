package tokenbroker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/mailrelay/internal/pkg/clock"
)

// StateStore remembers issued OAuth state values so a callback can prove it
// answers a consent request this service started.
type StateStore interface {
	// Save records state for ttl.
	Save(ctx context.Context, state string, ttl time.Duration) error
	// Consume reports whether state was issued and unexpired, and forgets it.
	Consume(ctx context.Context, state string) (bool, error)
}

// MemoryStateStore keeps state values in process memory.
type MemoryStateStore struct {
	clock clock.Clocker

	mu    sync.Mutex
	items map[string]time.Time
}

// NewMemoryStateStore returns an empty in-memory store.
func NewMemoryStateStore(clk clock.Clocker) *MemoryStateStore {
	if clk == nil {
		clk = clock.New()
	}
	return &MemoryStateStore{clock: clk, items: make(map[string]time.Time)}
}

func (m *MemoryStateStore) Save(_ context.Context, state string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	for k, exp := range m.items {
		if !now.Before(exp) {
			delete(m.items, k)
		}
	}
	m.items[state] = now.Add(ttl)
	return nil
}

func (m *MemoryStateStore) Consume(_ context.Context, state string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	exp, ok := m.items[state]
	if !ok {
		return false, nil
	}
	delete(m.items, state)
	return m.clock.Now().Before(exp), nil
}

// RedisStateStore keeps state values as expiring redis keys.
type RedisStateStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStateStore returns a store writing keys under prefix.
func NewRedisStateStore(client redis.UniversalClient, prefix string) *RedisStateStore {
	return &RedisStateStore{client: client, prefix: prefix}
}

func (r *RedisStateStore) Save(ctx context.Context, state string, ttl time.Duration) error {
	return r.client.Set(ctx, r.prefix+state, "1", ttl).Err()
}

func (r *RedisStateStore) Consume(ctx context.Context, state string) (bool, error) {
	err := r.client.GetDel(ctx, r.prefix+state).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
