package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"campusvote/internal/campus"
	"campusvote/internal/election"
)

// electionRequest carries the admin form. Any status the client sends is
// ignored; it is always derived from the window.
type electionRequest struct {
	Name        string        `json:"election_name"`
	Description string        `json:"description"`
	Type        election.Type `json:"election_type"`
	Restriction string        `json:"restriction"`
	StartDate   time.Time     `json:"start_date"`
	EndDate     time.Time     `json:"end_date"`
}

func (r electionRequest) input() election.Input {
	return election.Input{
		Name:        r.Name,
		Description: r.Description,
		Type:        r.Type,
		Restriction: r.Restriction,
		StartDate:   r.StartDate,
		EndDate:     r.EndDate,
	}
}

func (h *Handler) ListElections(c *gin.Context) {
	all, err := h.elections.List(c.Request.Context(), h.now())
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"elections": nonNil(all)})
}

func (h *Handler) CreateElection(c *gin.Context) {
	var req electionRequest
	if !h.bind(c, &req) {
		return
	}
	e, err := h.elections.Create(c.Request.Context(), req.input(), subject(c), h.now())
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond(c, http.StatusCreated, gin.H{"message": "Election created successfully", "election": e})
}

func (h *Handler) UpdateElection(c *gin.Context) {
	var req electionRequest
	if !h.bind(c, &req) {
		return
	}
	e, err := h.elections.Update(c.Request.Context(), c.Param("id"), req.input(), h.now())
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"message": "Election updated successfully", "election": e})
}

func (h *Handler) DeleteElection(c *gin.Context) {
	if err := h.elections.Delete(c.Request.Context(), c.Param("id"), h.now()); err != nil {
		h.writeError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"message": "Election deleted successfully"})
}

// UpdateElectionStatuses forces a reconciliation pass.
func (h *Handler) UpdateElectionStatuses(c *gin.Context) {
	n, err := h.elections.Reconcile(c.Request.Context(), h.now())
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"message": "Election statuses updated", "updated": n})
}

func (h *Handler) ElectionStatuses(c *gin.Context) {
	all, err := h.elections.List(c.Request.Context(), h.now())
	if err != nil {
		h.writeError(c, err)
		return
	}
	out := make([]gin.H, 0, len(all))
	for _, e := range all {
		out = append(out, gin.H{
			"id":            e.ID,
			"election_id":   e.Code,
			"election_name": e.Name,
			"status":        e.Status,
			"start_date":    e.StartDate,
			"end_date":      e.EndDate,
		})
	}
	respond(c, http.StatusOK, gin.H{"elections": out})
}

func (h *Handler) AvailableElections(c *gin.Context) {
	all, err := h.elections.Available(c.Request.Context(), h.now())
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"elections": nonNil(all)})
}

func (h *Handler) Programs(c *gin.Context) {
	respond(c, http.StatusOK, gin.H{"faculties": campus.Faculties(), "programs": campus.Programs})
}

func (h *Handler) ActiveElections(c *gin.Context) {
	st, err := h.students.Profile(c.Request.Context(), subject(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	active, err := h.elections.ActiveFor(c.Request.Context(), st.Faculty, st.Program, h.now())
	if err != nil {
		h.writeError(c, err)
		return
	}
	body := gin.H{"elections": nonNil(active)}
	if len(active) == 0 {
		body["message"] = "No active elections as of the moment"
	}
	respond(c, http.StatusOK, body)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
