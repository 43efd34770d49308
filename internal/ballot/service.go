package ballot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"campusvote/internal/cloudinary"
	"campusvote/internal/election"
	"campusvote/internal/student"
)

// Elections is the election lookup the ballot needs.
type Elections interface {
	Get(ctx context.Context, id string, now time.Time) (election.Election, error)
}

// Students is the student lookup the ballot needs.
type Students interface {
	Profile(ctx context.Context, id string) (student.Student, error)
	List(ctx context.Context) ([]student.Student, error)
}

// Uploader stores candidate photos and returns their public URL.
type Uploader interface {
	UploadBytes(ctx context.Context, data []byte, filename string) (*cloudinary.UploadResult, error)
}

type Service struct {
	store     Store
	elections Elections
	students  Students
	uploader  Uploader
	logger    *slog.Logger
}

type Option func(*Service)

// WithUploader enables candidate photo uploads.
func WithUploader(u Uploader) Option {
	return func(s *Service) { s.uploader = u }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func NewService(store Store, elections Elections, students Students, opts ...Option) *Service {
	s := &Service{store: store, elections: elections, students: students, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) CreatePosition(ctx context.Context, in PositionInput, now time.Time) (Position, error) {
	in, err := in.Normalize()
	if err != nil {
		return Position{}, err
	}
	last, err := s.store.LastPositionCode(ctx)
	if err != nil {
		return Position{}, fmt.Errorf("next position code: %w", err)
	}
	p := Position{
		ID:        uuid.NewString(),
		Code:      election.NextCode(PositionPrefix, last),
		Name:      in.Name,
		MaxVote:   in.MaxVote,
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}
	if err := s.store.InsertPosition(ctx, p); err != nil {
		return Position{}, err
	}
	return p, nil
}

func (s *Service) UpdatePosition(ctx context.Context, id string, in PositionInput, now time.Time) (Position, error) {
	in, err := in.Normalize()
	if err != nil {
		return Position{}, err
	}
	p, err := s.store.GetPosition(ctx, id)
	if err != nil {
		return Position{}, err
	}
	p.Name = in.Name
	p.MaxVote = in.MaxVote
	p.UpdatedAt = now.UTC()
	if err := s.store.UpdatePosition(ctx, p); err != nil {
		return Position{}, err
	}
	return p, nil
}

func (s *Service) DeletePosition(ctx context.Context, id string) error {
	return s.store.DeletePosition(ctx, id)
}

func (s *Service) ListPositions(ctx context.Context) ([]Position, error) {
	return s.store.ListPositions(ctx)
}

// CreateCandidate registers a candidacy. The election must not be completed
// and the student must be active and eligible for it.
func (s *Service) CreateCandidate(ctx context.Context, in CandidateInput, photo *Photo, now time.Time) (Candidate, error) {
	in, err := in.Normalize()
	if err != nil {
		return Candidate{}, err
	}
	e, err := s.elections.Get(ctx, in.ElectionID, now)
	if err != nil || e.Status == election.StatusCompleted {
		return Candidate{}, ErrElectionClosed
	}
	st, err := s.students.Profile(ctx, in.StudentID)
	if err != nil || st.Status != student.StatusActive || !e.EligibleFor(st.Faculty, st.Program) {
		return Candidate{}, ErrStudentIneligible
	}
	if _, err := s.store.GetPosition(ctx, in.PositionID); err != nil {
		return Candidate{}, err
	}

	last, err := s.store.LastCandidateCode(ctx)
	if err != nil {
		return Candidate{}, fmt.Errorf("next candidate code: %w", err)
	}
	c := Candidate{
		ID:                uuid.NewString(),
		Code:              election.NextCode(CandidatePrefix, last),
		ElectionID:        in.ElectionID,
		StudentID:         in.StudentID,
		PositionID:        in.PositionID,
		CampaignStatement: in.CampaignStatement,
		Partylist:         in.Partylist,
		CreatedAt:         now.UTC(),
		UpdatedAt:         now.UTC(),
	}
	if photo != nil && len(photo.Data) > 0 && s.uploader != nil {
		res, err := s.uploader.UploadBytes(ctx, photo.Data, photo.Filename)
		if err != nil {
			return Candidate{}, fmt.Errorf("upload profile picture: %w", err)
		}
		c.ProfilePicture = res.SecureURL
	}
	if err := s.store.InsertCandidate(ctx, c); err != nil {
		return Candidate{}, err
	}
	s.logger.Info("candidate created", "candidate_id", c.Code, "election", e.Code)
	return c, nil
}

// DeleteCandidate refuses while the candidate's election is ongoing.
func (s *Service) DeleteCandidate(ctx context.Context, id string, now time.Time) error {
	c, err := s.store.GetCandidate(ctx, id)
	if err != nil {
		return err
	}
	if e, err := s.elections.Get(ctx, c.ElectionID, now); err == nil && e.Status == election.StatusOngoing {
		return ErrElectionOngoing
	}
	return s.store.DeleteCandidate(ctx, id)
}

func (s *Service) ListCandidates(ctx context.Context) ([]Candidate, error) {
	return s.store.ListCandidates(ctx)
}

// EligibleStudents lists active students who may run in electionID.
func (s *Service) EligibleStudents(ctx context.Context, electionID string, now time.Time) ([]student.Student, error) {
	e, err := s.elections.Get(ctx, electionID, now)
	if err != nil {
		return nil, err
	}
	all, err := s.students.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []student.Student
	for _, st := range all {
		if st.Status == student.StatusActive && e.EligibleFor(st.Faculty, st.Program) {
			out = append(out, st)
		}
	}
	return out, nil
}
