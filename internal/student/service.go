package student

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"campusvote/internal/auth"
	"campusvote/internal/face"
	"campusvote/internal/metrics"
)

// Describer turns a face image into a descriptor.
type Describer interface {
	Describe(ctx context.Context, imageURL string) (face.Descriptor, error)
}

// FaceInput carries a captured face either as a ready descriptor or as an
// image for the face service to describe. The descriptor wins when both are set.
type FaceInput struct {
	Descriptor face.Descriptor `json:"descriptor"`
	ImageURL   string          `json:"image_url"`
}

// Session is a signed-in student.
type Session struct {
	Token   auth.Token
	Student Student
}

// Service implements registration, login and face verification.
type Service struct {
	store           Store
	pending         PendingStore
	issuer          *auth.Issuer
	describer       Describer
	lockout         face.LockoutPolicy
	accessTTL       time.Duration
	registrationTTL time.Duration
	metrics         *metrics.Metrics
	logger          *slog.Logger
}

type Option func(*Service)

// WithDescriber enables image_url face input.
func WithDescriber(d Describer) Option {
	return func(s *Service) { s.describer = d }
}

func WithLockout(p face.LockoutPolicy) Option {
	return func(s *Service) { s.lockout = p }
}

func WithTTLs(access, registration time.Duration) Option {
	return func(s *Service) {
		if access > 0 {
			s.accessTTL = access
		}
		if registration > 0 {
			s.registrationTTL = registration
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func NewService(store Store, pending PendingStore, issuer *auth.Issuer, opts ...Option) *Service {
	s := &Service{
		store:           store,
		pending:         pending,
		issuer:          issuer,
		accessTTL:       24 * time.Hour,
		registrationTTL: time.Hour,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BeginRegistration validates the form, parks it with a hashed password and
// returns the registration token that completes it.
func (s *Service) BeginRegistration(ctx context.Context, reg Registration, now time.Time) (auth.Token, error) {
	reg, err := reg.Normalize()
	if err != nil {
		return auth.Token{}, err
	}
	taken, err := s.store.Exists(ctx, reg.StudentID, reg.Email)
	if err != nil {
		return auth.Token{}, err
	}
	if taken {
		return auth.Token{}, ErrAlreadyRegistered
	}
	hash, err := auth.HashPassword(reg.Password)
	if err != nil {
		return auth.Token{}, fmt.Errorf("hash password: %w", err)
	}
	p := Pending{
		ID:           uuid.NewString(),
		FirstName:    reg.FirstName,
		MiddleName:   reg.MiddleName,
		LastName:     reg.LastName,
		StudentID:    reg.StudentID,
		Email:        reg.Email,
		Faculty:      reg.Faculty,
		Program:      reg.Program,
		PasswordHash: hash,
		CreatedAt:    now.UTC(),
	}
	if err := s.pending.Put(ctx, p, s.registrationTTL); err != nil {
		return auth.Token{}, err
	}
	tok, err := s.issuer.Issue(p.ID, auth.RoleRegistration, s.registrationTTL)
	if err != nil {
		return auth.Token{}, err
	}
	s.logger.Info("registration started", "student_id", p.StudentID)
	return tok, nil
}

// CompleteRegistration creates the student from a pending registration with
// the captured face as its first descriptor.
func (s *Service) CompleteRegistration(ctx context.Context, token string, in FaceInput, now time.Time) (Student, error) {
	claims, err := s.issuer.ParseRole(token, auth.RoleRegistration)
	if err != nil {
		return Student{}, err
	}
	d, err := s.resolve(ctx, in)
	if err != nil {
		return Student{}, err
	}
	var profile face.Profile
	if err := profile.Enroll(d, now); err != nil {
		return Student{}, err
	}
	p, err := s.pending.Take(ctx, claims.Subject)
	if err != nil {
		return Student{}, err
	}
	st := Student{
		ID:                   uuid.NewString(),
		StudentID:            p.StudentID,
		FirstName:            p.FirstName,
		MiddleName:           p.MiddleName,
		LastName:             p.LastName,
		Email:                p.Email,
		Faculty:              p.Faculty,
		Program:              p.Program,
		PasswordHash:         p.PasswordHash,
		Face:                 profile,
		Status:               StatusActive,
		RegistrationComplete: true,
		CreatedAt:            now.UTC(),
		UpdatedAt:            now.UTC(),
	}
	if err := s.store.Insert(ctx, st); err != nil {
		return Student{}, err
	}
	s.logger.Info("registration completed", "student_id", st.StudentID)
	return st, nil
}

// Login checks the password. The returned session still has to pass
// VerifyFace on the client before voting screens open.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	st, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, err
	}
	ok, err := auth.CheckPassword(st.PasswordHash, password)
	if err != nil {
		return Session{}, err
	}
	if !ok {
		return Session{}, ErrInvalidCredentials
	}
	return s.session(st)
}

// VerifyFace is the second factor after password login.
func (s *Service) VerifyFace(ctx context.Context, studentID string, in FaceInput, now time.Time) (Session, error) {
	return s.verify(ctx, studentID, in, face.VerifyMinMatches, now)
}

// FaceLogin signs in with a face alone and needs more matching descriptors.
func (s *Service) FaceLogin(ctx context.Context, studentID string, in FaceInput, now time.Time) (Session, error) {
	return s.verify(ctx, studentID, in, face.FaceLoginMinMatches, now)
}

func (s *Service) verify(ctx context.Context, studentID string, in FaceInput, minMatches int, now time.Time) (Session, error) {
	st, err := s.store.GetByStudentID(ctx, studentID)
	if err != nil {
		return Session{}, err
	}
	if !st.Face.Enrolled() {
		return Session{}, ErrNoFaceData
	}
	// Fewer descriptors than minMatches can never match; such attempts do not count.
	if len(st.Face.Descriptors) < minMatches {
		return Session{}, ErrTooFewFaces
	}
	if locked, wait := s.lockout.CoolingDown(st.Face, now); locked {
		s.observe("locked")
		return Session{}, fmt.Errorf("%w: retry in %s", ErrLockedOut, wait.Round(time.Second))
	}
	d, err := s.resolve(ctx, in)
	if err != nil {
		return Session{}, err
	}

	res := face.Verify(d, st.Face.Descriptors, face.Threshold, minMatches)
	st.Face.Apply(res.AttemptDelta, now)
	if err := s.store.SaveAttempts(ctx, st.ID, st.Face, now); err != nil {
		return Session{}, err
	}
	if !res.Success {
		s.observe("failure")
		s.logger.Warn("face verification failed", "student_id", st.StudentID,
			"matched", res.MatchedCount, "required", minMatches, "attempts", st.Face.VerificationAttempts)
		return Session{}, ErrFaceMismatch
	}
	s.observe("success")
	return s.session(st)
}

// EnrollFace appends another descriptor to the student's profile.
func (s *Service) EnrollFace(ctx context.Context, id string, in FaceInput, now time.Time) (face.Profile, error) {
	st, err := s.store.Get(ctx, id)
	if err != nil {
		return face.Profile{}, err
	}
	d, err := s.resolve(ctx, in)
	if err != nil {
		return face.Profile{}, err
	}
	if err := st.Face.Enroll(d, now); err != nil {
		return face.Profile{}, err
	}
	if err := s.store.AppendDescriptor(ctx, st.ID, d, now); err != nil {
		return face.Profile{}, err
	}
	return st.Face, nil
}

func (s *Service) Profile(ctx context.Context, id string) (Student, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]Student, error) {
	return s.store.List(ctx)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("student deleted", "id", id)
	return nil
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.store.Count(ctx)
}

func (s *Service) resolve(ctx context.Context, in FaceInput) (face.Descriptor, error) {
	if len(in.Descriptor) > 0 {
		return in.Descriptor, nil
	}
	if in.ImageURL == "" {
		return nil, face.ErrInvalidDescriptor
	}
	if s.describer == nil {
		return nil, ErrFaceUnavailable
	}
	d, err := s.describer.Describe(ctx, in.ImageURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFaceUnavailable, err)
	}
	return d, nil
}

func (s *Service) session(st Student) (Session, error) {
	tok, err := s.issuer.Issue(st.ID, auth.RoleStudent, s.accessTTL)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: tok, Student: st}, nil
}

func (s *Service) observe(outcome string) {
	if s.metrics != nil {
		s.metrics.FaceVerifications.WithLabelValues(outcome).Inc()
	}
}
