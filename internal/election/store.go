package election

import (
	"context"
	"sort"
	"sync"
)

// Store persists elections. Implementations must serialise writes of a single
// record; last writer wins on status.
type Store interface {
	Insert(ctx context.Context, e Election) error
	Update(ctx context.Context, e Election) error
	UpdateStatuses(ctx context.Context, updated []Election) error
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (Election, error)
	List(ctx context.Context) ([]Election, error)
	// LastCode returns the code with the highest sequence number.
	LastCode(ctx context.Context) (string, error)
}

// MemoryStore is a mutex-guarded Store for dev and tests.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]Election
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]Election)}
}

func (m *MemoryStore) Insert(_ context.Context, e Election) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, cur := range m.items {
		if cur.Code == e.Code {
			return ErrDuplicateCode
		}
	}
	m.items[e.ID] = e
	return nil
}

func (m *MemoryStore) Update(_ context.Context, e Election) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[e.ID]; !ok {
		return ErrNotFound
	}
	m.items[e.ID] = e
	return nil
}

// UpdateStatuses writes only the status of each record; deleted records are skipped.
func (m *MemoryStore) UpdateStatuses(_ context.Context, updated []Election) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range updated {
		cur, ok := m.items[u.ID]
		if !ok {
			continue
		}
		cur.Status = u.Status
		m.items[u.ID] = cur
	}
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return ErrNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (Election, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.items[id]
	if !ok {
		return Election{}, ErrNotFound
	}
	return e, nil
}

// List returns elections newest first.
func (m *MemoryStore) List(_ context.Context) ([]Election, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Election, 0, len(m.items))
	for _, e := range m.items {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Code > out[j].Code
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemoryStore) LastCode(_ context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	last := ""
	for _, e := range m.items {
		if CodeSeq(e.Code) > CodeSeq(last) {
			last = e.Code
		}
	}
	return last, nil
}
