package election

import "time"

// Status is the time-derived lifecycle state of an election.
type Status string

const (
	StatusUpcoming  Status = "Upcoming"
	StatusOngoing   Status = "Ongoing"
	StatusCompleted Status = "Completed"
)

// DeriveStatus maps a time window onto a status. Both window edges belong to
// Ongoing: an election opens at the start instant and completes only after end.
func DeriveStatus(now, start, end time.Time) Status {
	switch {
	case now.Before(start):
		return StatusUpcoming
	case now.After(end):
		return StatusCompleted
	default:
		return StatusOngoing
	}
}

// ReconcileResult holds the elections whose stored status disagreed with the
// derived one, already carrying the new status.
type ReconcileResult struct {
	Updated      []Election
	ChangedCount int
}

// ReconcileAll re-derives every election's status against now. Only the
// Status field of the returned copies differs from the input; the input slice
// is left untouched.
func ReconcileAll(elections []Election, now time.Time) ReconcileResult {
	var res ReconcileResult
	for _, e := range elections {
		next := DeriveStatus(now, e.StartDate, e.EndDate)
		if next == e.Status {
			continue
		}
		e.Status = next
		res.Updated = append(res.Updated, e)
	}
	res.ChangedCount = len(res.Updated)
	return res
}

// Wake is a one-shot reconciliation request at an election boundary.
type Wake struct {
	ElectionID string
	FireAt     time.Time
}

// ScheduleBoundaryWake returns a wake at EndDate for every election whose end
// falls inside [now, now+horizon]. Start boundaries are left to the periodic tick.
func ScheduleBoundaryWake(elections []Election, now time.Time, horizon time.Duration) []Wake {
	if horizon < 0 {
		return nil
	}
	limit := now.Add(horizon)
	var wakes []Wake
	for _, e := range elections {
		if e.EndDate.Before(now) || e.EndDate.After(limit) {
			continue
		}
		wakes = append(wakes, Wake{ElectionID: e.ID, FireAt: e.EndDate})
	}
	return wakes
}
