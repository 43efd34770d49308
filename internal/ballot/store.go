package ballot

import (
	"context"
	"sort"
	"strings"
	"sync"

	"campusvote/internal/election"
)

// Store persists positions and candidates.
type Store interface {
	InsertPosition(ctx context.Context, p Position) error
	UpdatePosition(ctx context.Context, p Position) error
	DeletePosition(ctx context.Context, id string) error
	GetPosition(ctx context.Context, id string) (Position, error)
	ListPositions(ctx context.Context) ([]Position, error)
	LastPositionCode(ctx context.Context) (string, error)

	InsertCandidate(ctx context.Context, c Candidate) error
	DeleteCandidate(ctx context.Context, id string) error
	GetCandidate(ctx context.Context, id string) (Candidate, error)
	ListCandidates(ctx context.Context) ([]Candidate, error)
	LastCandidateCode(ctx context.Context) (string, error)
}

// MemoryStore is a Store for tests and the in-memory backend. Position names
// and (election, student) pairs are unique, as in the Postgres schema.
type MemoryStore struct {
	mu         sync.RWMutex
	positions  map[string]Position
	candidates map[string]Candidate
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{positions: make(map[string]Position), candidates: make(map[string]Candidate)}
}

func (m *MemoryStore) InsertPosition(_ context.Context, p Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.nameTaken(p.ID, p.Name) {
		return ErrDuplicatePosition
	}
	m.positions[p.ID] = p
	return nil
}

func (m *MemoryStore) UpdatePosition(_ context.Context, p Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.positions[p.ID]; !ok {
		return ErrPositionNotFound
	}
	if m.nameTaken(p.ID, p.Name) {
		return ErrDuplicatePosition
	}
	m.positions[p.ID] = p
	return nil
}

func (m *MemoryStore) nameTaken(id, name string) bool {
	for _, cur := range m.positions {
		if cur.ID != id && strings.EqualFold(cur.Name, name) {
			return true
		}
	}
	return false
}

func (m *MemoryStore) DeletePosition(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.positions[id]; !ok {
		return ErrPositionNotFound
	}
	delete(m.positions, id)
	return nil
}

func (m *MemoryStore) GetPosition(_ context.Context, id string) (Position, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.positions[id]
	if !ok {
		return Position{}, ErrPositionNotFound
	}
	return p, nil
}

// ListPositions returns newest first.
func (m *MemoryStore) ListPositions(_ context.Context) ([]Position, error) {
	m.mu.RLock()
	out := make([]Position, 0, len(m.positions))
	for _, p := range m.positions {
		out = append(out, p)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Code > out[j].Code
	})
	return out, nil
}

func (m *MemoryStore) LastPositionCode(_ context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	last := ""
	for _, p := range m.positions {
		if election.CodeSeq(p.Code) > election.CodeSeq(last) {
			last = p.Code
		}
	}
	return last, nil
}

func (m *MemoryStore) InsertCandidate(_ context.Context, c Candidate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, cur := range m.candidates {
		if cur.ElectionID == c.ElectionID && cur.StudentID == c.StudentID {
			return ErrDuplicateCandidate
		}
	}
	m.candidates[c.ID] = c
	return nil
}

func (m *MemoryStore) DeleteCandidate(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.candidates[id]; !ok {
		return ErrCandidateNotFound
	}
	delete(m.candidates, id)
	return nil
}

func (m *MemoryStore) GetCandidate(_ context.Context, id string) (Candidate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.candidates[id]
	if !ok {
		return Candidate{}, ErrCandidateNotFound
	}
	return c, nil
}

// ListCandidates returns newest first.
func (m *MemoryStore) ListCandidates(_ context.Context) ([]Candidate, error) {
	m.mu.RLock()
	out := make([]Candidate, 0, len(m.candidates))
	for _, c := range m.candidates {
		out = append(out, c)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Code > out[j].Code
	})
	return out, nil
}

func (m *MemoryStore) LastCandidateCode(_ context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	last := ""
	for _, c := range m.candidates {
		if election.CodeSeq(c.Code) > election.CodeSeq(last) {
			last = c.Code
		}
	}
	return last, nil
}
