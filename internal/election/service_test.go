package election

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"campusvote/internal/metrics"
	"campusvote/internal/queue"
)

type ServiceSuite struct {
	suite.Suite
	ctx     context.Context
	store   *MemoryStore
	events  *queue.InMemory
	metrics *metrics.Metrics
	svc     *Service
	now     time.Time
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = NewMemoryStore()
	s.events = queue.NewInMemory(16)
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.svc = NewService(s.store, WithEvents(s.events), WithMetrics(s.metrics))
	s.now = time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC)
}

func (s *ServiceSuite) general(name string, start, end time.Time) Input {
	return Input{Name: name, Description: name + " election", Type: TypeGeneral, StartDate: start, EndDate: end}
}

func (s *ServiceSuite) drainEvents() []queue.Message {
	ctx, cancel := context.WithTimeout(s.ctx, 50*time.Millisecond)
	defer cancel()
	ch, err := s.events.Consume(ctx)
	s.Require().NoError(err)
	var out []queue.Message
	for msg := range ch {
		out = append(out, msg)
	}
	return out
}

func (s *ServiceSuite) TestCreate() {
	s.Run("derives initial status and sequential codes", func() {
		first, err := s.svc.Create(s.ctx, s.general("SSG", s.now.Add(time.Hour), s.now.Add(2*time.Hour)), "admin-1", s.now)
		s.Require().NoError(err)
		s.Equal("E-0001", first.Code)
		s.Equal(StatusUpcoming, first.Status)
		s.Equal(NoRestriction, first.Restriction)

		second, err := s.svc.Create(s.ctx, s.general("Council", s.now, s.now.Add(time.Hour)), "admin-1", s.now)
		s.Require().NoError(err)
		s.Equal("E-0002", second.Code)
		s.Equal(StatusOngoing, second.Status)
	})

	s.Run("rejects non-chronological window", func() {
		_, err := s.svc.Create(s.ctx, s.general("Bad", s.now, s.now), "admin-1", s.now)
		s.ErrorIs(err, ErrInvalidWindow)
	})

	msgs := s.drainEvents()
	s.Len(msgs, 2)
	s.Equal(queue.TypeElectionChanged, msgs[0].Type)
}

func (s *ServiceSuite) TestUpdateRederivesStatus() {
	e, err := s.svc.Create(s.ctx, s.general("SSG", s.now.Add(time.Hour), s.now.Add(2*time.Hour)), "admin-1", s.now)
	s.Require().NoError(err)

	in := s.general("SSG 2024", s.now.Add(-time.Hour), s.now.Add(time.Hour))
	in.Type = ""
	updated, err := s.svc.Update(s.ctx, e.ID, in, s.now)
	s.Require().NoError(err)
	s.Equal(StatusOngoing, updated.Status)
	s.Equal("SSG 2024", updated.Name)
	s.Equal(e.Code, updated.Code)

	stored, err := s.store.Get(s.ctx, e.ID)
	s.Require().NoError(err)
	s.Equal(StatusOngoing, stored.Status)

	s.Run("type is fixed", func() {
		in := s.general("SSG", s.now, s.now.Add(time.Hour))
		in.Type = TypeFaculty
		in.Restriction = "FaCET"
		_, err := s.svc.Update(s.ctx, e.ID, in, s.now)
		s.ErrorIs(err, ErrTypeImmutable)
	})

	s.Run("missing election", func() {
		_, err := s.svc.Update(s.ctx, "nope", in, s.now)
		s.ErrorIs(err, ErrNotFound)
	})
}

func (s *ServiceSuite) TestDeleteRefusesOngoing() {
	e, err := s.svc.Create(s.ctx, s.general("SSG", s.now.Add(time.Hour), s.now.Add(2*time.Hour)), "admin-1", s.now)
	s.Require().NoError(err)

	s.ErrorIs(s.svc.Delete(s.ctx, e.ID, s.now.Add(90*time.Minute)), ErrOngoingDelete, "stored status is stale but derived one is Ongoing")
	s.NoError(s.svc.Delete(s.ctx, e.ID, s.now))
	s.ErrorIs(s.svc.Delete(s.ctx, e.ID, s.now), ErrNotFound)
}

func (s *ServiceSuite) TestReconcilePersistsChangedSubset() {
	_, err := s.svc.Create(s.ctx, s.general("A", s.now.Add(time.Hour), s.now.Add(2*time.Hour)), "admin-1", s.now)
	s.Require().NoError(err)
	_, err = s.svc.Create(s.ctx, s.general("B", s.now.Add(time.Hour), s.now.Add(48*time.Hour)), "admin-1", s.now)
	s.Require().NoError(err)

	later := s.now.Add(3 * time.Hour)
	n, err := s.svc.Reconcile(s.ctx, later)
	s.Require().NoError(err)
	s.Equal(2, n)

	n, err = s.svc.Reconcile(s.ctx, later)
	s.Require().NoError(err)
	s.Zero(n, "no boundary crossed since last pass")

	all, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	statuses := map[string]Status{}
	for _, e := range all {
		statuses[e.Name] = e.Status
	}
	s.Equal(map[string]Status{"A": StatusCompleted, "B": StatusOngoing}, statuses)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.StatusTransitions.WithLabelValues(string(StatusCompleted))))
}

func (s *ServiceSuite) TestListReconcilesOnRead() {
	_, err := s.svc.Create(s.ctx, s.general("A", s.now.Add(time.Hour), s.now.Add(2*time.Hour)), "admin-1", s.now)
	s.Require().NoError(err)

	list, err := s.svc.List(s.ctx, s.now.Add(time.Hour))
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.Equal(StatusOngoing, list[0].Status)

	stored, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	s.Equal(StatusOngoing, stored[0].Status)
}

func (s *ServiceSuite) TestActiveFor() {
	mk := func(in Input) {
		_, err := s.svc.Create(s.ctx, in, "admin-1", s.now)
		s.Require().NoError(err)
	}
	mk(s.general("General late", s.now.Add(-time.Hour), s.now.Add(5*time.Hour)))
	mk(s.general("General soon", s.now.Add(-time.Hour), s.now.Add(time.Hour)))
	mk(s.general("Future", s.now.Add(time.Hour), s.now.Add(5*time.Hour)))
	mk(Input{Name: "FaCET", Description: "d", Type: TypeFaculty, Restriction: "FaCET", StartDate: s.now.Add(-time.Hour), EndDate: s.now.Add(3 * time.Hour)})
	mk(Input{Name: "BSN", Description: "d", Type: TypeProgram, Restriction: "BSN", StartDate: s.now.Add(-time.Hour), EndDate: s.now.Add(3 * time.Hour)})

	active, err := s.svc.ActiveFor(s.ctx, "FaCET", "BSIT", s.now)
	s.Require().NoError(err)
	var names []string
	for _, e := range active {
		names = append(names, e.Name)
	}
	s.Equal([]string{"General soon", "FaCET", "General late"}, names)
}

func (s *ServiceSuite) TestWakes() {
	e, err := s.svc.Create(s.ctx, s.general("A", s.now.Add(-time.Hour), s.now.Add(3*time.Second)), "admin-1", s.now)
	s.Require().NoError(err)
	_, err = s.svc.Create(s.ctx, s.general("B", s.now.Add(-time.Hour), s.now.Add(time.Hour)), "admin-1", s.now)
	s.Require().NoError(err)

	wakes, err := s.svc.Wakes(s.ctx, s.now, 5*time.Second)
	s.Require().NoError(err)
	s.Equal([]Wake{{ElectionID: e.ID, FireAt: e.EndDate}}, wakes)
}

// staleCodes reports an outdated last code the first time, as a concurrent
// create racing this one would observe.
type staleCodes struct {
	*MemoryStore
	stale int
}

func (s *staleCodes) LastCode(ctx context.Context) (string, error) {
	if s.stale > 0 {
		s.stale--
		return "", nil
	}
	return s.MemoryStore.LastCode(ctx)
}

func (s *ServiceSuite) TestCreateCodeSequence() {
	window := func(name string) Input {
		return s.general(name, s.now.Add(time.Hour), s.now.Add(2*time.Hour))
	}

	s.Run("numbers past four digits", func() {
		s.Require().NoError(s.store.Insert(s.ctx, Election{ID: "old", Code: "E-9999", CreatedAt: s.now}))
		e, err := s.svc.Create(s.ctx, window("A"), "admin", s.now)
		s.Require().NoError(err)
		s.Equal("E-10000", e.Code)
		e, err = s.svc.Create(s.ctx, window("B"), "admin", s.now)
		s.Require().NoError(err)
		s.Equal("E-10001", e.Code)
	})

	s.Run("retries a taken code once", func() {
		store := &staleCodes{MemoryStore: NewMemoryStore()}
		svc := NewService(store)
		_, err := svc.Create(s.ctx, window("A"), "admin", s.now)
		s.Require().NoError(err)

		store.stale = 1
		e, err := svc.Create(s.ctx, window("B"), "admin", s.now)
		s.Require().NoError(err)
		s.Equal("E-0002", e.Code)

		store.stale = 2
		_, err = svc.Create(s.ctx, window("C"), "admin", s.now)
		s.ErrorIs(err, ErrDuplicateCode)
	})
}
