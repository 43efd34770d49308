package election

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"campusvote/internal/metrics"
	"campusvote/internal/queue"
)

// Service coordinates election administration and status reconciliation.
type Service struct {
	store   Store
	events  queue.Queue
	metrics *metrics.Metrics
	logger  *slog.Logger
}

type Option func(*Service)

// WithEvents publishes an election.changed message after every mutation.
func WithEvents(q queue.Queue) Option {
	return func(s *Service) { s.events = q }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a service backed by store.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates in and stores a new election with its derived initial status.
func (s *Service) Create(ctx context.Context, in Input, createdBy string, now time.Time) (Election, error) {
	in, err := in.Normalize()
	if err != nil {
		return Election{}, err
	}
	e := Election{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Description: in.Description,
		Type:        in.Type,
		Restriction: in.Restriction,
		StartDate:   in.StartDate.UTC(),
		EndDate:     in.EndDate.UTC(),
		Status:      DeriveStatus(now, in.StartDate, in.EndDate),
		CreatedBy:   createdBy,
		CreatedAt:   now.UTC(),
		UpdatedAt:   now.UTC(),
	}
	if err := s.insert(ctx, &e); err != nil {
		return Election{}, err
	}
	s.logger.Info("election created", "election_id", e.Code, "status", e.Status)
	s.publish(ctx, e.ID, now)
	return e, nil
}

// insert assigns the next code and stores e. A concurrent create can take the
// same code; the loser reads the sequence again once.
func (s *Service) insert(ctx context.Context, e *Election) error {
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		var last string
		last, err = s.store.LastCode(ctx)
		if err != nil {
			return fmt.Errorf("next election code: %w", err)
		}
		e.Code = NextCode(CodePrefix, last)
		err = s.store.Insert(ctx, *e)
		if !errors.Is(err, ErrDuplicateCode) {
			return err
		}
		s.logger.Warn("election code taken, retrying", "election_id", e.Code)
	}
	return err
}

// Update applies an admin edit. The type is fixed at creation; the status is
// always re-derived, never taken from the caller.
func (s *Service) Update(ctx context.Context, id string, in Input, now time.Time) (Election, error) {
	cur, err := s.store.Get(ctx, id)
	if err != nil {
		return Election{}, err
	}
	if in.Type == "" {
		in.Type = cur.Type
	}
	if in.Type != cur.Type {
		return Election{}, ErrTypeImmutable
	}
	in, err = in.Normalize()
	if err != nil {
		return Election{}, err
	}
	cur.Name = in.Name
	cur.Description = in.Description
	cur.Restriction = in.Restriction
	cur.StartDate = in.StartDate.UTC()
	cur.EndDate = in.EndDate.UTC()
	cur.Status = DeriveStatus(now, cur.StartDate, cur.EndDate)
	cur.UpdatedAt = now.UTC()
	if err := s.store.Update(ctx, cur); err != nil {
		return Election{}, err
	}
	s.publish(ctx, cur.ID, now)
	return cur, nil
}

// Delete removes an election unless it is ongoing at now.
func (s *Service) Delete(ctx context.Context, id string, now time.Time) error {
	e, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if DeriveStatus(now, e.StartDate, e.EndDate) == StatusOngoing {
		return ErrOngoingDelete
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, id, now)
	return nil
}

// Get returns an election with its status derived at now.
func (s *Service) Get(ctx context.Context, id string, now time.Time) (Election, error) {
	e, err := s.store.Get(ctx, id)
	if err != nil {
		return Election{}, err
	}
	e.Status = DeriveStatus(now, e.StartDate, e.EndDate)
	return e, nil
}

// Reconcile persists the status of every election whose stored value lags
// behind now and returns how many changed.
func (s *Service) Reconcile(ctx context.Context, now time.Time) (int, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("load elections: %w", err)
	}
	_, n, err := s.reconcile(ctx, all, now)
	return n, err
}

// List reconciles on read so callers never see a status older than now.
// A failed status write is logged and the derived values are still returned.
func (s *Service) List(ctx context.Context, now time.Time) ([]Election, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	all, _, err = s.reconcile(ctx, all, now)
	if err != nil {
		s.logger.Warn("reconcile on read failed", "error", err)
	}
	return all, nil
}

func (s *Service) reconcile(ctx context.Context, all []Election, now time.Time) ([]Election, int, error) {
	res := ReconcileAll(all, now)
	if s.metrics != nil {
		s.metrics.ReconcileRuns.Inc()
	}
	if res.ChangedCount == 0 {
		return all, 0, nil
	}
	changed := make(map[string]Status, res.ChangedCount)
	for _, e := range res.Updated {
		changed[e.ID] = e.Status
	}
	out := make([]Election, len(all))
	for i, e := range all {
		if st, ok := changed[e.ID]; ok {
			e.Status = st
		}
		out[i] = e
	}
	if err := s.store.UpdateStatuses(ctx, res.Updated); err != nil {
		return out, 0, fmt.Errorf("persist statuses: %w", err)
	}
	for _, e := range res.Updated {
		s.logger.Info("election status changed", "election_id", e.Code, "status", e.Status)
		if s.metrics != nil {
			s.metrics.StatusTransitions.WithLabelValues(string(e.Status)).Inc()
		}
	}
	return out, res.ChangedCount, nil
}

// ActiveFor returns the ongoing elections a student may take part in,
// closest end first.
func (s *Service) ActiveFor(ctx context.Context, faculty, program string, now time.Time) ([]Election, error) {
	all, err := s.List(ctx, now)
	if err != nil {
		return nil, err
	}
	var out []Election
	for _, e := range all {
		if e.Status == StatusOngoing && e.EligibleFor(faculty, program) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndDate.Before(out[j].EndDate) })
	return out, nil
}

// Available returns elections candidates may still be added to.
func (s *Service) Available(ctx context.Context, now time.Time) ([]Election, error) {
	all, err := s.List(ctx, now)
	if err != nil {
		return nil, err
	}
	var out []Election
	for _, e := range all {
		if e.Status != StatusCompleted {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, nil
}

// Wakes returns the boundary wakes for the stored elections.
func (s *Service) Wakes(ctx context.Context, now time.Time, horizon time.Duration) ([]Wake, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	return ScheduleBoundaryWake(all, now, horizon), nil
}

func (s *Service) publish(ctx context.Context, id string, now time.Time) {
	if s.events == nil {
		return
	}
	err := s.events.Publish(ctx, queue.Message{Type: queue.TypeElectionChanged, ElectionID: id, At: now.UTC()})
	if err != nil {
		s.logger.Warn("publish election change failed", "election_id", id, "error", err)
	}
}
