// Package scheduler keeps stored election statuses in step with the clock.
//
// A Scheduler reconciles on a fixed interval and, after every pass, arms
// one-shot timers for elections whose end falls within a short horizon so the
// flip to Completed is persisted at expiry rather than on the next tick.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"campusvote/internal/election"
	"campusvote/internal/metrics"
	"campusvote/internal/queue"
)

// Reconciler is the subset of election.Service the scheduler drives.
type Reconciler interface {
	Reconcile(ctx context.Context, now time.Time) (int, error)
	Wakes(ctx context.Context, now time.Time, horizon time.Duration) ([]election.Wake, error)
}

const (
	DefaultInterval = 60 * time.Second
	DefaultHorizon  = 5 * time.Second
	// DefaultSlack delays a boundary wake past the end instant, which still
	// counts as Ongoing.
	DefaultSlack = 10 * time.Millisecond
)

// armed is the wake held for one election. A fired entry stays until the
// election leaves the wake set so the same instant is not armed twice.
type armed struct {
	fireAt time.Time
	timer  *time.Timer
	fired  bool
}

// Scheduler is the single periodic driver of election reconciliation.
type Scheduler struct {
	rec      Reconciler
	interval time.Duration
	horizon  time.Duration
	slack    time.Duration
	now      func() time.Time
	logger   *slog.Logger
	metrics  *metrics.Metrics

	passMu sync.Mutex

	mu     sync.Mutex
	timers map[string]armed
}

type Option func(*Scheduler)

func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

func WithHorizon(d time.Duration) Option {
	return func(s *Scheduler) {
		if d >= 0 {
			s.horizon = d
		}
	}
}

func WithSlack(d time.Duration) Option {
	return func(s *Scheduler) {
		if d >= 0 {
			s.slack = d
		}
	}
}

// WithClock replaces time.Now; tests use it to pin reconciliation time.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

// New creates a scheduler driving rec.
func New(rec Reconciler, opts ...Option) *Scheduler {
	s := &Scheduler{
		rec:      rec,
		interval: DefaultInterval,
		horizon:  DefaultHorizon,
		slack:    DefaultSlack,
		now:      time.Now,
		logger:   slog.Default(),
		timers:   make(map[string]armed),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run ticks immediately and then every interval until ctx is cancelled.
// Armed timers are stopped on return.
func (s *Scheduler) Run(ctx context.Context) error {
	defer s.Stop()
	s.logger.Info("scheduler started", "interval", s.interval, "horizon", s.horizon)
	if err := s.Tick(ctx); err != nil {
		s.logger.Error("reconcile failed", "error", err)
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return nil
		case <-ticker.C:
			if err := s.Tick(ctx); err != nil {
				s.logger.Error("reconcile failed", "error", err)
			}
		}
	}
}

// Tick runs one reconciliation pass and re-arms boundary wakes. Passes are
// serialised; running one twice at the same instant changes nothing.
func (s *Scheduler) Tick(ctx context.Context) error {
	s.passMu.Lock()
	defer s.passMu.Unlock()

	now := s.now()
	changed, err := s.rec.Reconcile(ctx, now)
	if err != nil {
		return err
	}
	if changed > 0 {
		s.logger.Info("election statuses reconciled", "changed", changed)
	}
	wakes, err := s.rec.Wakes(ctx, now, s.horizon)
	if err != nil {
		return err
	}
	keep := make(map[string]struct{}, len(wakes))
	for _, w := range wakes {
		keep[w.ElectionID] = struct{}{}
		s.arm(ctx, w, now)
	}
	s.prune(keep)
	return nil
}

// Trigger forces an out-of-band reconciliation.
func (s *Scheduler) Trigger(ctx context.Context) error {
	return s.Tick(ctx)
}

// Follow runs a pass for every election change or reconcile request read
// from q. It returns when ctx is done and the consumer channel closes.
func (s *Scheduler) Follow(ctx context.Context, q queue.Queue) error {
	msgs, err := q.Consume(ctx)
	if err != nil {
		return err
	}
	for msg := range msgs {
		if msg.Type != queue.TypeElectionChanged && msg.Type != queue.TypeReconcile {
			s.logger.Debug("ignoring message", "type", msg.Type)
			continue
		}
		if err := s.Trigger(ctx); err != nil {
			s.logger.Error("triggered reconcile failed", "type", msg.Type, "election", msg.ElectionID, "error", err)
		}
	}
	return nil
}

// Stop cancels every armed timer.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, a := range s.timers {
		a.timer.Stop()
		delete(s.timers, id)
	}
}

// Armed returns the pending wake instant per election id.
func (s *Scheduler) Armed() map[string]time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]time.Time, len(s.timers))
	for id, a := range s.timers {
		if !a.fired {
			out[id] = a.fireAt
		}
	}
	return out
}

// prune drops wakes for elections that were deleted or whose end moved
// beyond the horizon.
func (s *Scheduler) prune(keep map[string]struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, a := range s.timers {
		if _, ok := keep[id]; ok {
			continue
		}
		a.timer.Stop()
		delete(s.timers, id)
	}
}

// arm keeps at most one timer per election. The same instant is a no-op; a
// moved end date replaces the pending timer.
func (s *Scheduler) arm(ctx context.Context, w election.Wake, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.timers[w.ElectionID]; ok {
		if cur.fireAt.Equal(w.FireAt) {
			return
		}
		cur.timer.Stop()
	}
	delay := w.FireAt.Sub(now) + s.slack
	if delay < 0 {
		delay = 0
	}
	id, fireAt := w.ElectionID, w.FireAt
	t := time.AfterFunc(delay, func() { s.fire(ctx, id, fireAt) })
	s.timers[id] = armed{fireAt: fireAt, timer: t}
}

func (s *Scheduler) fire(ctx context.Context, id string, fireAt time.Time) {
	if ctx.Err() != nil {
		return
	}
	if s.metrics != nil {
		s.metrics.BoundaryWakesFired.Inc()
	}
	s.mu.Lock()
	if cur, ok := s.timers[id]; ok && cur.fireAt.Equal(fireAt) {
		cur.fired = true
		s.timers[id] = cur
	}
	s.mu.Unlock()

	s.logger.Debug("boundary wake fired", "election", id, "fire_at", fireAt)
	if err := s.Trigger(ctx); err != nil {
		s.logger.Error("boundary reconcile failed", "election", id, "error", err)
	}
}
