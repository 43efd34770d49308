package student

import (
	"context"
	"sort"
	"sync"
	"time"

	"campusvote/internal/face"
)

// Store persists students.
type Store interface {
	Insert(ctx context.Context, s Student) error
	Get(ctx context.Context, id string) (Student, error)
	GetByStudentID(ctx context.Context, studentID string) (Student, error)
	GetByEmail(ctx context.Context, email string) (Student, error)
	// Exists reports whether either the student id or the email is taken.
	Exists(ctx context.Context, studentID, email string) (bool, error)
	// SaveAttempts writes only the attempt counter and last attempt time of p.
	// Descriptors on file are left untouched.
	SaveAttempts(ctx context.Context, id string, p face.Profile, now time.Time) error
	// AppendDescriptor adds d after the descriptors on file.
	AppendDescriptor(ctx context.Context, id string, d face.Descriptor, now time.Time) error
	List(ctx context.Context) ([]Student, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

// MemoryStore is a Store for tests and the in-memory backend.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]Student
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]Student)}
}

func (m *MemoryStore) Insert(_ context.Context, s Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, cur := range m.data {
		if cur.StudentID == s.StudentID || cur.Email == s.Email {
			return ErrAlreadyRegistered
		}
	}
	m.data[s.ID] = cloneStudent(s)
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.data[id]
	if !ok {
		return Student{}, ErrNotFound
	}
	return cloneStudent(s), nil
}

func (m *MemoryStore) GetByStudentID(_ context.Context, studentID string) (Student, error) {
	return m.find(func(s Student) bool { return s.StudentID == studentID })
}

func (m *MemoryStore) GetByEmail(_ context.Context, email string) (Student, error) {
	return m.find(func(s Student) bool { return s.Email == email })
}

func (m *MemoryStore) Exists(_ context.Context, studentID, email string) (bool, error) {
	_, err := m.find(func(s Student) bool { return s.StudentID == studentID || s.Email == email })
	if err == ErrNotFound {
		return false, nil
	}
	return err == nil, err
}

func (m *MemoryStore) SaveAttempts(_ context.Context, id string, p face.Profile, now time.Time) error {
	return m.updateFace(id, now, func(f *face.Profile) {
		f.VerificationAttempts = p.VerificationAttempts
		f.LastVerificationAttempt = p.LastVerificationAttempt
	})
}

func (m *MemoryStore) AppendDescriptor(_ context.Context, id string, d face.Descriptor, now time.Time) error {
	return m.updateFace(id, now, func(f *face.Profile) {
		f.Descriptors = append(f.Descriptors, append(face.Descriptor(nil), d...))
		t := now.UTC()
		f.LastUpdated = &t
	})
}

func (m *MemoryStore) updateFace(id string, now time.Time, apply func(*face.Profile)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.data[id]
	if !ok {
		return ErrNotFound
	}
	apply(&s.Face)
	s.UpdatedAt = now.UTC()
	m.data[id] = s
	return nil
}

// List returns students ordered by last name, then first name.
func (m *MemoryStore) List(_ context.Context) ([]Student, error) {
	m.mu.RLock()
	out := make([]Student, 0, len(m.data))
	for _, s := range m.data {
		out = append(out, cloneStudent(s))
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastName != out[j].LastName {
			return out[i].LastName < out[j].LastName
		}
		return out[i].FirstName < out[j].FirstName
	})
	return out, nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[id]; !ok {
		return ErrNotFound
	}
	delete(m.data, id)
	return nil
}

func (m *MemoryStore) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data), nil
}

func (m *MemoryStore) find(match func(Student) bool) (Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.data {
		if match(s) {
			return cloneStudent(s), nil
		}
	}
	return Student{}, ErrNotFound
}

func cloneStudent(s Student) Student {
	s.Face = cloneProfile(s.Face)
	return s
}

func cloneProfile(p face.Profile) face.Profile {
	out := p
	if p.Descriptors != nil {
		out.Descriptors = make([]face.Descriptor, len(p.Descriptors))
		for i, d := range p.Descriptors {
			out.Descriptors[i] = append(face.Descriptor(nil), d...)
		}
	}
	return out
}
