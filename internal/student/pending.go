package student

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// PendingStore keeps first-step registrations until the face capture arrives.
type PendingStore interface {
	Put(ctx context.Context, p Pending, ttl time.Duration) error
	// Take returns and removes the entry. Missing or expired entries return
	// ErrRegistrationGone.
	Take(ctx context.Context, id string) (Pending, error)
}

const pendingKeyPrefix = "campusvote:registration:"

// RedisPending stores pending registrations as JSON values with a TTL.
type RedisPending struct {
	client *redis.Client
}

func NewRedisPending(client *redis.Client) *RedisPending {
	return &RedisPending{client: client}
}

func (r *RedisPending) Put(ctx context.Context, p Pending, ttl time.Duration) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, pendingKeyPrefix+p.ID, raw, ttl).Err(); err != nil {
		return fmt.Errorf("store pending registration: %w", err)
	}
	return nil
}

func (r *RedisPending) Take(ctx context.Context, id string) (Pending, error) {
	raw, err := r.client.GetDel(ctx, pendingKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Pending{}, ErrRegistrationGone
		}
		return Pending{}, fmt.Errorf("load pending registration: %w", err)
	}
	var p Pending
	if err := json.Unmarshal(raw, &p); err != nil {
		return Pending{}, fmt.Errorf("decode pending registration: %w", err)
	}
	return p, nil
}

// MemoryPending is a PendingStore for tests and the in-memory backend.
type MemoryPending struct {
	mu   sync.Mutex
	now  func() time.Time
	data map[string]pendingEntry
}

type pendingEntry struct {
	p       Pending
	expires time.Time
}

func NewMemoryPending(now func() time.Time) *MemoryPending {
	if now == nil {
		now = time.Now
	}
	return &MemoryPending{now: now, data: make(map[string]pendingEntry)}
}

func (m *MemoryPending) Put(_ context.Context, p Pending, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[p.ID] = pendingEntry{p: p, expires: m.now().Add(ttl)}
	return nil
}

func (m *MemoryPending) Take(_ context.Context, id string) (Pending, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.data[id]
	if !ok {
		return Pending{}, ErrRegistrationGone
	}
	delete(m.data, id)
	if !m.now().Before(e.expires) {
		return Pending{}, ErrRegistrationGone
	}
	return e.p, nil
}
