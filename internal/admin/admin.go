// Package admin manages election administrators.
package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"campusvote/internal/auth"
)

var (
	ErrNotFound           = errors.New("admin not found")
	ErrEmailTaken         = errors.New("admin with this email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMissingField       = errors.New("missing required field")
)

const idPrefix = "ADMIN"

type Admin struct {
	ID           string    `json:"id"`
	AdminID      string    `json:"admin_id"`
	FirstName    string    `json:"first_name"`
	MiddleName   string    `json:"middle_name,omitempty"`
	LastName     string    `json:"last_name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

type Input struct {
	FirstName  string `json:"firstName"`
	MiddleName string `json:"middleName"`
	LastName   string `json:"lastName"`
	Email      string `json:"email"`
	Password   string `json:"password"`
}

// NextAdminID returns the id after last ("ADMIN007" -> "ADMIN008").
func NextAdminID(last string) string {
	return fmt.Sprintf("%s%03d", idPrefix, adminSeq(last)+1)
}

func adminSeq(id string) int {
	n, err := strconv.Atoi(strings.TrimPrefix(id, idPrefix))
	if !strings.HasPrefix(id, idPrefix) || err != nil || n < 0 {
		return 0
	}
	return n
}

type Store interface {
	Insert(ctx context.Context, a Admin) error
	Get(ctx context.Context, id string) (Admin, error)
	GetByEmail(ctx context.Context, email string) (Admin, error)
	LastAdminID(ctx context.Context) (string, error)
}

// Session is a signed-in admin.
type Session struct {
	Token auth.Token
	Admin Admin
}

type Service struct {
	store     Store
	issuer    *auth.Issuer
	accessTTL time.Duration
	logger    *slog.Logger
}

func NewService(store Store, issuer *auth.Issuer, accessTTL time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, issuer: issuer, accessTTL: accessTTL, logger: logger}
}

func (s *Service) Register(ctx context.Context, in Input, now time.Time) (Admin, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	if in.Email == "" || in.FirstName == "" || in.LastName == "" || in.Password == "" {
		return Admin{}, ErrMissingField
	}
	if _, err := s.store.GetByEmail(ctx, in.Email); err == nil {
		return Admin{}, ErrEmailTaken
	} else if !errors.Is(err, ErrNotFound) {
		return Admin{}, err
	}
	last, err := s.store.LastAdminID(ctx)
	if err != nil {
		return Admin{}, err
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return Admin{}, fmt.Errorf("hash password: %w", err)
	}
	a := Admin{
		ID:           uuid.NewString(),
		AdminID:      NextAdminID(last),
		FirstName:    in.FirstName,
		MiddleName:   strings.TrimSpace(in.MiddleName),
		LastName:     in.LastName,
		Email:        in.Email,
		PasswordHash: hash,
		CreatedAt:    now.UTC(),
	}
	if err := s.store.Insert(ctx, a); err != nil {
		return Admin{}, err
	}
	s.logger.Info("admin registered", "admin_id", a.AdminID)
	return a, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	a, err := s.store.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, err
	}
	ok, err := auth.CheckPassword(a.PasswordHash, password)
	if err != nil {
		return Session{}, err
	}
	if !ok {
		return Session{}, ErrInvalidCredentials
	}
	tok, err := s.issuer.Issue(a.ID, auth.RoleAdmin, s.accessTTL)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: tok, Admin: a}, nil
}

func (s *Service) Profile(ctx context.Context, id string) (Admin, error) {
	return s.store.Get(ctx, id)
}

// MemoryStore is a Store for tests and the in-memory backend.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]Admin
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]Admin)}
}

func (m *MemoryStore) Insert(_ context.Context, a Admin) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, cur := range m.data {
		if cur.Email == a.Email {
			return ErrEmailTaken
		}
	}
	m.data[a.ID] = a
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (Admin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.data[id]
	if !ok {
		return Admin{}, ErrNotFound
	}
	return a, nil
}

func (m *MemoryStore) GetByEmail(_ context.Context, email string) (Admin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.data {
		if a.Email == email {
			return a, nil
		}
	}
	return Admin{}, ErrNotFound
}

func (m *MemoryStore) LastAdminID(_ context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	last := ""
	for _, a := range m.data {
		if adminSeq(a.AdminID) > adminSeq(last) {
			last = a.AdminID
		}
	}
	return last, nil
}
