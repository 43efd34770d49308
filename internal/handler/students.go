package handler

import (
	"net/http"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"campusvote/internal/ballot"
	"campusvote/internal/election"
)

func (h *Handler) ListStudents(c *gin.Context) {
	all, err := h.students.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	out := make([]gin.H, 0, len(all))
	for _, st := range all {
		v := studentView(st)
		v["status"] = st.Status
		v["face_enrolled"] = st.Face.Enrolled()
		v["created_at"] = st.CreatedAt
		out = append(out, v)
	}
	respond(c, http.StatusOK, gin.H{"students": out})
}

func (h *Handler) DeleteStudent(c *gin.Context) {
	if err := h.students.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"message": "Student deleted successfully"})
}

// AdminDashboard loads the counters concurrently.
func (h *Handler) AdminDashboard(c *gin.Context) {
	now := h.now()
	var (
		totalStudents int
		elections     []election.Election
		positions     []ballot.Position
		candidates    []ballot.Candidate
	)
	g, ctx := errgroup.WithContext(c.Request.Context())
	g.Go(func() (err error) {
		totalStudents, err = h.students.Count(ctx)
		return err
	})
	g.Go(func() (err error) {
		elections, err = h.elections.List(ctx, now)
		return err
	})
	g.Go(func() (err error) {
		positions, err = h.ballot.ListPositions(ctx)
		return err
	})
	g.Go(func() (err error) {
		candidates, err = h.ballot.ListCandidates(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		h.writeError(c, err)
		return
	}

	var ongoing, upcoming, completed []election.Election
	for _, e := range elections {
		switch e.Status {
		case election.StatusOngoing:
			ongoing = append(ongoing, e)
		case election.StatusUpcoming:
			upcoming = append(upcoming, e)
		case election.StatusCompleted:
			completed = append(completed, e)
		}
	}
	sort.Slice(ongoing, func(i, j int) bool { return ongoing[i].EndDate.Before(ongoing[j].EndDate) })
	sort.Slice(upcoming, func(i, j int) bool { return upcoming[i].StartDate.Before(upcoming[j].StartDate) })
	sort.Slice(completed, func(i, j int) bool { return completed[i].EndDate.After(completed[j].EndDate) })

	perElection := make(map[string]int)
	for _, cand := range candidates {
		perElection[cand.ElectionID]++
	}

	body := gin.H{
		"totalStudents":         totalStudents,
		"ongoingElections":      len(ongoing),
		"totalPositions":        len(positions),
		"totalCandidates":       len(candidates),
		"upcomingElections":     summaries(upcoming, 5),
		"currentElection":       nil,
		"nextElection":          nil,
		"lastCompletedElection": nil,
	}
	if len(ongoing) > 0 {
		e := ongoing[0]
		body["currentElection"] = gin.H{
			"name":          e.Name,
			"timeRemaining": humanize.RelTime(now, e.EndDate, "left", "ago"),
			"candidates":    perElection[e.ID],
		}
	}
	if len(upcoming) > 0 {
		e := upcoming[0]
		body["nextElection"] = gin.H{
			"name":       e.Name,
			"startsIn":   humanize.RelTime(now, e.StartDate, "from now", "ago"),
			"candidates": perElection[e.ID],
		}
	}
	if len(completed) > 0 {
		e := completed[0]
		body["lastCompletedElection"] = gin.H{
			"name":    e.Name,
			"endedAt": humanize.RelTime(e.EndDate, now, "ago", "from now"),
		}
	}
	respond(c, http.StatusOK, body)
}

func (h *Handler) StudentDashboard(c *gin.Context) {
	now := h.now()
	st, err := h.students.Profile(c.Request.Context(), subject(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	all, err := h.elections.List(c.Request.Context(), now)
	if err != nil {
		h.writeError(c, err)
		return
	}
	var active, upcoming []election.Election
	for _, e := range all {
		if !e.EligibleFor(st.Faculty, st.Program) {
			continue
		}
		switch e.Status {
		case election.StatusOngoing:
			active = append(active, e)
		case election.StatusUpcoming:
			upcoming = append(upcoming, e)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].EndDate.Before(active[j].EndDate) })
	sort.Slice(upcoming, func(i, j int) bool { return upcoming[i].StartDate.Before(upcoming[j].StartDate) })

	data := gin.H{
		"activeElections":   len(active),
		"nextElection":      "",
		"timeRemaining":     "",
		"upcomingElections": summaries(upcoming, 5),
	}
	if len(active) > 0 {
		data["timeRemaining"] = humanize.RelTime(now, active[0].EndDate, "left", "ago")
	}
	if len(upcoming) > 0 {
		data["nextElection"] = upcoming[0].Name
	}
	respond(c, http.StatusOK, gin.H{
		"data": data,
		"student": gin.H{
			"firstName": st.FirstName,
			"lastName":  st.LastName,
			"studentId": st.StudentID,
		},
	})
}

func summaries(es []election.Election, limit int) []gin.H {
	if len(es) > limit {
		es = es[:limit]
	}
	out := make([]gin.H, 0, len(es))
	for _, e := range es {
		out = append(out, gin.H{
			"id":            e.ID,
			"election_name": e.Name,
			"start_date":    e.StartDate,
			"end_date":      e.EndDate,
			"status":        e.Status,
		})
	}
	return out
}
