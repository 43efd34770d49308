package election

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	windowStart = time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC)
	windowEnd   = time.Date(2024, 3, 16, 8, 0, 0, 0, time.UTC)
)

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want Status
	}{
		{"day before start", time.Date(2024, 3, 14, 8, 0, 0, 0, time.UTC), StatusUpcoming},
		{"one nanosecond before start", windowStart.Add(-time.Nanosecond), StatusUpcoming},
		{"exact start", windowStart, StatusOngoing},
		{"inside window", windowStart.Add(6 * time.Hour), StatusOngoing},
		{"exact end", windowEnd, StatusOngoing},
		{"one millisecond after end", windowEnd.Add(time.Millisecond), StatusCompleted},
		{"day after end", time.Date(2024, 3, 17, 8, 0, 0, 0, time.UTC), StatusCompleted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveStatus(tt.now, windowStart, windowEnd)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, DeriveStatus(tt.now, windowStart, windowEnd), "derivation must be idempotent")
		})
	}
}

func TestDeriveStatusIsMonotonic(t *testing.T) {
	rank := map[Status]int{StatusUpcoming: 0, StatusOngoing: 1, StatusCompleted: 2}
	prev := StatusUpcoming
	for now := windowStart.Add(-2 * time.Hour); now.Before(windowEnd.Add(2 * time.Hour)); now = now.Add(7 * time.Minute) {
		got := DeriveStatus(now, windowStart, windowEnd)
		require.GreaterOrEqual(t, rank[got], rank[prev], "status regressed at %s", now)
		prev = got
	}
	assert.Equal(t, StatusCompleted, prev)
}

func TestReconcileAll(t *testing.T) {
	elections := []Election{
		{ID: "a", Name: "Council", StartDate: windowStart, EndDate: windowEnd, Status: StatusUpcoming},
		{ID: "b", Name: "Faculty", StartDate: windowStart, EndDate: windowEnd, Status: StatusOngoing},
		{ID: "c", Name: "Old", StartDate: windowStart.AddDate(0, -1, 0), EndDate: windowEnd.AddDate(0, -1, 0), Status: StatusOngoing},
	}
	now := windowStart.Add(time.Hour)

	res := ReconcileAll(elections, now)
	require.Equal(t, 2, res.ChangedCount)
	require.Len(t, res.Updated, 2)

	byID := map[string]Election{}
	for _, e := range res.Updated {
		byID[e.ID] = e
	}
	assert.Equal(t, StatusOngoing, byID["a"].Status)
	assert.Equal(t, "Council", byID["a"].Name, "other fields are carried unchanged")
	assert.Equal(t, StatusCompleted, byID["c"].Status)
	assert.Equal(t, StatusUpcoming, elections[0].Status, "input must not be mutated")

	t.Run("second pass at the same instant changes nothing", func(t *testing.T) {
		applied := make([]Election, len(elections))
		copy(applied, elections)
		for i := range applied {
			if u, ok := byID[applied[i].ID]; ok {
				applied[i] = u
			}
		}
		again := ReconcileAll(applied, now)
		assert.Zero(t, again.ChangedCount)
		assert.Empty(t, again.Updated)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Zero(t, ReconcileAll(nil, now).ChangedCount)
	})
}

func TestScheduleBoundaryWake(t *testing.T) {
	now := windowEnd.Add(-3 * time.Second)
	elections := []Election{
		{ID: "ending", StartDate: windowStart, EndDate: windowEnd},
		{ID: "ending-now", StartDate: windowStart, EndDate: now},
		{ID: "later", StartDate: windowStart, EndDate: now.Add(10 * time.Second)},
		{ID: "past", StartDate: windowStart, EndDate: now.Add(-time.Second)},
		{ID: "starting", StartDate: now.Add(time.Second), EndDate: now.Add(time.Hour)},
	}

	wakes := ScheduleBoundaryWake(elections, now, 5*time.Second)
	require.Len(t, wakes, 2)
	assert.Equal(t, Wake{ElectionID: "ending", FireAt: windowEnd}, wakes[0])
	assert.Equal(t, Wake{ElectionID: "ending-now", FireAt: now}, wakes[1])

	t.Run("horizon edge is inclusive", func(t *testing.T) {
		got := ScheduleBoundaryWake(elections[2:3], now, 10*time.Second)
		assert.Len(t, got, 1)
	})
	t.Run("negative horizon schedules nothing", func(t *testing.T) {
		assert.Empty(t, ScheduleBoundaryWake(elections, now, -time.Second))
	})
}

func TestNextCode(t *testing.T) {
	assert.Equal(t, "E-0001", NextCode(CodePrefix, ""))
	assert.Equal(t, "E-0008", NextCode(CodePrefix, "E-0007"))
	assert.Equal(t, "E-0001", NextCode(CodePrefix, "garbage"))
	assert.Equal(t, "P-0100", NextCode("P", "P-0099"))
	assert.Equal(t, "E-10000", NextCode(CodePrefix, "E-9999"))
	assert.Equal(t, "E-10001", NextCode(CodePrefix, "E-10000"))
}

func TestCodeSeq(t *testing.T) {
	assert.Equal(t, 10000, CodeSeq("E-10000"))
	assert.Equal(t, 7, CodeSeq("P-0007"))
	assert.Equal(t, 0, CodeSeq(""))
	assert.Equal(t, 0, CodeSeq("E-x1"))
	assert.Greater(t, CodeSeq("E-10000"), CodeSeq("E-9999"))
}

func TestInputNormalize(t *testing.T) {
	base := Input{Name: "SSG", Description: "Student government", StartDate: windowStart, EndDate: windowEnd}

	t.Run("general forces None restriction", func(t *testing.T) {
		in := base
		in.Type = TypeGeneral
		in.Restriction = "FaCET"
		got, err := in.Normalize()
		require.NoError(t, err)
		assert.Equal(t, NoRestriction, got.Restriction)
	})
	t.Run("faculty restriction must be known", func(t *testing.T) {
		in := base
		in.Type = TypeFaculty
		in.Restriction = "NOPE"
		_, err := in.Normalize()
		assert.ErrorIs(t, err, ErrRestriction)
	})
	t.Run("program restriction accepted", func(t *testing.T) {
		in := base
		in.Type = TypeProgram
		in.Restriction = "BSIT"
		_, err := in.Normalize()
		assert.NoError(t, err)
	})
	t.Run("end must be after start", func(t *testing.T) {
		in := base
		in.Type = TypeGeneral
		in.EndDate = in.StartDate
		_, err := in.Normalize()
		assert.ErrorIs(t, err, ErrInvalidWindow)
	})
	t.Run("unknown type", func(t *testing.T) {
		in := base
		in.Type = "Club"
		_, err := in.Normalize()
		assert.ErrorIs(t, err, ErrInvalidType)
	})
}

func TestEligibleFor(t *testing.T) {
	assert.True(t, Election{Type: TypeGeneral, Restriction: NoRestriction}.EligibleFor("FBM", "BSBA"))
	assert.True(t, Election{Type: TypeFaculty, Restriction: "FaCET"}.EligibleFor("FaCET", "BSIT"))
	assert.False(t, Election{Type: TypeFaculty, Restriction: "FaCET"}.EligibleFor("FBM", "BSBA"))
	assert.True(t, Election{Type: TypeProgram, Restriction: "BSN"}.EligibleFor("FNAHS", "BSN"))
	assert.False(t, Election{Type: TypeProgram, Restriction: "BSN"}.EligibleFor("FNAHS", "BSIT"))
}
