// Package handler exposes the election services over HTTP with gin.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"campusvote/internal/admin"
	"campusvote/internal/auth"
	"campusvote/internal/ballot"
	"campusvote/internal/election"
	"campusvote/internal/face"
	"campusvote/internal/httpmiddleware"
	"campusvote/internal/student"
)

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) bool

// Deps are the services a Handler serves.
type Deps struct {
	Elections *election.Service
	Students  *student.Service
	Admins    *admin.Service
	Ballot    *ballot.Service
	Issuer    *auth.Issuer
	Limiter   *httpmiddleware.TokenBucket
	Checks    map[string]HealthCheck
	Now       func() time.Time
	Logger    *slog.Logger
}

type Handler struct {
	elections *election.Service
	students  *student.Service
	admins    *admin.Service
	ballot    *ballot.Service
	issuer    *auth.Issuer
	limiter   *httpmiddleware.TokenBucket
	checks    map[string]HealthCheck
	now       func() time.Time
	logger    *slog.Logger
}

func New(d Deps) *Handler {
	h := &Handler{
		elections: d.Elections,
		students:  d.Students,
		admins:    d.Admins,
		ballot:    d.Ballot,
		issuer:    d.Issuer,
		limiter:   d.Limiter,
		checks:    d.Checks,
		now:       d.Now,
		logger:    d.Logger,
	}
	if h.now == nil {
		h.now = time.Now
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	return h
}

// Routes registers every API route on r.
func (h *Handler) Routes(r gin.IRouter) {
	r.GET("/healthz", h.Healthz)

	limited := []gin.HandlerFunc{}
	if h.limiter != nil {
		limited = append(limited, h.limiter.Middleware())
	}

	api := r.Group("/api")

	authGroup := api.Group("/auth", limited...)
	{
		authGroup.POST("/temp-register", h.BeginRegistration)
		authGroup.POST("/complete-registration", h.CompleteRegistration)
		authGroup.POST("/student/login", h.StudentLogin)
		authGroup.POST("/verify-face", h.VerifyFace)
		authGroup.POST("/face-login", h.FaceLogin)
		authGroup.POST("/admin/login", h.AdminLogin)
		authGroup.GET("/student/profile", auth.Require(h.issuer, auth.RoleStudent), h.StudentProfile)
	}

	api.POST("/admin/register", append(limited, h.RegisterAdmin)...)

	adminGroup := api.Group("/admin", auth.Require(h.issuer, auth.RoleAdmin))
	{
		adminGroup.GET("/profile", h.AdminProfile)
		adminGroup.GET("/programs", h.Programs)
		adminGroup.GET("/dashboard", h.AdminDashboard)

		adminGroup.GET("/elections", h.ListElections)
		adminGroup.POST("/elections", h.CreateElection)
		adminGroup.PUT("/elections/:id", h.UpdateElection)
		adminGroup.DELETE("/elections/:id", h.DeleteElection)
		adminGroup.POST("/elections/update-status", h.UpdateElectionStatuses)
		adminGroup.GET("/elections/status", h.ElectionStatuses)

		adminGroup.GET("/positions", h.ListPositions)
		adminGroup.POST("/positions", h.CreatePosition)
		adminGroup.PUT("/positions/:id", h.UpdatePosition)
		adminGroup.DELETE("/positions/:id", h.DeletePosition)

		adminGroup.GET("/candidates", h.ListCandidates)
		adminGroup.POST("/candidates", h.CreateCandidate)
		adminGroup.DELETE("/candidates/:id", h.DeleteCandidate)
		adminGroup.GET("/candidates/available-elections", h.AvailableElections)
		adminGroup.GET("/candidates/eligible-students/:electionId", h.EligibleStudents)

		adminGroup.GET("/students", h.ListStudents)
		adminGroup.DELETE("/students/:id", h.DeleteStudent)
	}

	studentGroup := api.Group("/student", auth.Require(h.issuer, auth.RoleStudent))
	{
		studentGroup.GET("/active-elections", h.ActiveElections)
		studentGroup.GET("/dashboard", h.StudentDashboard)
		studentGroup.POST("/face", h.EnrollFace)
	}
}

func (h *Handler) Healthz(c *gin.Context) {
	status := http.StatusOK
	deps := gin.H{}
	for name, check := range h.checks {
		up := check(c.Request.Context())
		deps[name] = up
		if !up {
			status = http.StatusServiceUnavailable
		}
	}
	deps["status"] = "ok"
	if status != http.StatusOK {
		deps["status"] = "degraded"
	}
	c.JSON(status, deps)
}

func respond(c *gin.Context, status int, body gin.H) {
	if body == nil {
		body = gin.H{}
	}
	body["success"] = true
	c.JSON(status, body)
}

func fail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": message})
}

func subject(c *gin.Context) string {
	claims, _ := auth.FromContext(c)
	return claims.Subject
}

// writeError maps service errors to HTTP statuses. Unknown errors are logged
// and reported as 500 without detail.
func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, election.ErrNotFound),
		errors.Is(err, student.ErrNotFound),
		errors.Is(err, admin.ErrNotFound),
		errors.Is(err, ballot.ErrPositionNotFound),
		errors.Is(err, ballot.ErrCandidateNotFound):
		fail(c, http.StatusNotFound, err.Error())

	case errors.Is(err, student.ErrInvalidCredentials),
		errors.Is(err, admin.ErrInvalidCredentials),
		errors.Is(err, student.ErrFaceMismatch),
		errors.Is(err, student.ErrRegistrationGone),
		errors.Is(err, auth.ErrInvalidToken):
		fail(c, http.StatusUnauthorized, err.Error())

	case errors.Is(err, election.ErrDuplicateCode):
		fail(c, http.StatusConflict, err.Error())

	case errors.Is(err, student.ErrLockedOut):
		fail(c, http.StatusTooManyRequests, err.Error())

	case errors.Is(err, student.ErrFaceUnavailable):
		fail(c, http.StatusServiceUnavailable, err.Error())

	case errors.Is(err, election.ErrInvalidWindow),
		errors.Is(err, election.ErrInvalidType),
		errors.Is(err, election.ErrRestriction),
		errors.Is(err, election.ErrMissingField),
		errors.Is(err, election.ErrOngoingDelete),
		errors.Is(err, election.ErrTypeImmutable),
		errors.Is(err, student.ErrInvalid),
		errors.Is(err, student.ErrAlreadyRegistered),
		errors.Is(err, student.ErrNoFaceData),
		errors.Is(err, student.ErrTooFewFaces),
		errors.Is(err, face.ErrInvalidDescriptor),
		errors.Is(err, admin.ErrEmailTaken),
		errors.Is(err, admin.ErrMissingField),
		errors.Is(err, ballot.ErrDuplicatePosition),
		errors.Is(err, ballot.ErrDuplicateCandidate),
		errors.Is(err, ballot.ErrInvalidMaxVote),
		errors.Is(err, ballot.ErrMissingField),
		errors.Is(err, ballot.ErrElectionClosed),
		errors.Is(err, ballot.ErrStudentIneligible),
		errors.Is(err, ballot.ErrElectionOngoing):
		fail(c, http.StatusBadRequest, err.Error())

	default:
		h.logger.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
		fail(c, http.StatusInternalServerError, "Server error")
	}
}

func (h *Handler) bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}
