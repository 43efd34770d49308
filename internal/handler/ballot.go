package handler

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"campusvote/internal/ballot"
)

const maxPhotoBytes = 5 << 20

func (h *Handler) ListPositions(c *gin.Context) {
	all, err := h.ballot.ListPositions(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"positions": nonNil(all)})
}

func (h *Handler) CreatePosition(c *gin.Context) {
	var req ballot.PositionInput
	if !h.bind(c, &req) {
		return
	}
	p, err := h.ballot.CreatePosition(c.Request.Context(), req, h.now())
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond(c, http.StatusCreated, gin.H{"position": p})
}

func (h *Handler) UpdatePosition(c *gin.Context) {
	var req ballot.PositionInput
	if !h.bind(c, &req) {
		return
	}
	p, err := h.ballot.UpdatePosition(c.Request.Context(), c.Param("id"), req, h.now())
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"position": p})
}

func (h *Handler) DeletePosition(c *gin.Context) {
	if err := h.ballot.DeletePosition(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"message": "Position deleted successfully"})
}

func (h *Handler) ListCandidates(c *gin.Context) {
	all, err := h.ballot.ListCandidates(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"candidates": nonNil(all)})
}

type candidateForm struct {
	ElectionID        string `form:"election" json:"election"`
	StudentID         string `form:"student" json:"student"`
	PositionID        string `form:"position" json:"position"`
	CampaignStatement string `form:"campaign_statement" json:"campaign_statement"`
	Partylist         string `form:"partylist" json:"partylist"`
}

// CreateCandidate accepts JSON or a multipart form with an optional
// profile_picture file.
func (h *Handler) CreateCandidate(c *gin.Context) {
	var (
		form  candidateForm
		photo *ballot.Photo
	)
	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		if err := c.ShouldBind(&form); err != nil {
			fail(c, http.StatusBadRequest, "Invalid request body")
			return
		}
		if file, header, err := c.Request.FormFile("profile_picture"); err == nil {
			defer file.Close()
			data, err := io.ReadAll(io.LimitReader(file, maxPhotoBytes+1))
			if err != nil {
				fail(c, http.StatusBadRequest, "failed to read profile picture")
				return
			}
			if len(data) > maxPhotoBytes {
				fail(c, http.StatusRequestEntityTooLarge, "profile picture too large")
				return
			}
			photo = &ballot.Photo{Data: data, Filename: header.Filename}
		}
	} else if !h.bind(c, &form) {
		return
	}

	cand, err := h.ballot.CreateCandidate(c.Request.Context(), ballot.CandidateInput{
		ElectionID:        form.ElectionID,
		StudentID:         form.StudentID,
		PositionID:        form.PositionID,
		CampaignStatement: form.CampaignStatement,
		Partylist:         form.Partylist,
	}, photo, h.now())
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond(c, http.StatusCreated, gin.H{"candidate": cand})
}

func (h *Handler) DeleteCandidate(c *gin.Context) {
	if err := h.ballot.DeleteCandidate(c.Request.Context(), c.Param("id"), h.now()); err != nil {
		h.writeError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"message": "Candidate deleted successfully"})
}

func (h *Handler) EligibleStudents(c *gin.Context) {
	students, err := h.ballot.EligibleStudents(c.Request.Context(), c.Param("electionId"), h.now())
	if err != nil {
		h.writeError(c, err)
		return
	}
	out := make([]gin.H, 0, len(students))
	for _, st := range students {
		out = append(out, studentView(st))
	}
	respond(c, http.StatusOK, gin.H{"students": out})
}
