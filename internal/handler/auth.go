package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"campusvote/internal/admin"
	"campusvote/internal/face"
	"campusvote/internal/student"
)

// faceRequest accepts the browser's {"faceData":{"descriptors":[[...]]}} shape,
// a bare descriptor, or an image URL for the face service.
type faceRequest struct {
	StudentID  string          `json:"studentId"`
	TempToken  string          `json:"tempToken"`
	Descriptor face.Descriptor `json:"descriptor"`
	ImageURL   string          `json:"image_url"`
	FaceData   struct {
		Descriptors []face.Descriptor `json:"descriptors"`
	} `json:"faceData"`
}

func (r faceRequest) input() student.FaceInput {
	d := r.Descriptor
	if len(d) == 0 && len(r.FaceData.Descriptors) > 0 {
		d = r.FaceData.Descriptors[0]
	}
	return student.FaceInput{Descriptor: d, ImageURL: r.ImageURL}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func studentView(st student.Student) gin.H {
	return gin.H{
		"id":         st.ID,
		"studentId":  st.StudentID,
		"firstName":  st.FirstName,
		"middleName": st.MiddleName,
		"lastName":   st.LastName,
		"email":      st.Email,
		"faculty":    st.Faculty,
		"program":    st.Program,
	}
}

func (h *Handler) BeginRegistration(c *gin.Context) {
	var req student.Registration
	if !h.bind(c, &req) {
		return
	}
	tok, err := h.students.BeginRegistration(c.Request.Context(), req, h.now())
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond(c, http.StatusCreated, gin.H{
		"tempToken":  tok.Value,
		"expires_at": tok.ExpiresAt,
		"message":    "Temporary registration successful",
	})
}

func (h *Handler) CompleteRegistration(c *gin.Context) {
	var req faceRequest
	if !h.bind(c, &req) {
		return
	}
	st, err := h.students.CompleteRegistration(c.Request.Context(), req.TempToken, req.input(), h.now())
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond(c, http.StatusCreated, gin.H{"message": "Registration completed successfully", "student": studentView(st)})
}

func (h *Handler) StudentLogin(c *gin.Context) {
	var req loginRequest
	if !h.bind(c, &req) {
		return
	}
	sess, err := h.students.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{
		"token":      sess.Token.Value,
		"expires_at": sess.Token.ExpiresAt,
		"studentId":  sess.Student.StudentID,
		"student":    studentView(sess.Student),
	})
}

func (h *Handler) VerifyFace(c *gin.Context) {
	h.faceSession(c, h.students.VerifyFace, "Face verification successful")
}

func (h *Handler) FaceLogin(c *gin.Context) {
	h.faceSession(c, h.students.FaceLogin, "Face login successful")
}

type verifyFunc func(ctx context.Context, studentID string, in student.FaceInput, now time.Time) (student.Session, error)

func (h *Handler) faceSession(c *gin.Context, flow verifyFunc, message string) {
	var req faceRequest
	if !h.bind(c, &req) {
		return
	}
	if req.StudentID == "" {
		fail(c, http.StatusBadRequest, "studentId is required")
		return
	}
	sess, err := flow(c.Request.Context(), req.StudentID, req.input(), h.now())
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{
		"message":    message,
		"token":      sess.Token.Value,
		"expires_at": sess.Token.ExpiresAt,
		"student":    studentView(sess.Student),
	})
}

func (h *Handler) StudentProfile(c *gin.Context) {
	st, err := h.students.Profile(c.Request.Context(), subject(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"student": studentView(st), "face_enrolled": st.Face.Enrolled()})
}

func (h *Handler) EnrollFace(c *gin.Context) {
	var req faceRequest
	if !h.bind(c, &req) {
		return
	}
	p, err := h.students.EnrollFace(c.Request.Context(), subject(c), req.input(), h.now())
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"descriptors": len(p.Descriptors), "last_updated": p.LastUpdated})
}

func (h *Handler) AdminLogin(c *gin.Context) {
	var req loginRequest
	if !h.bind(c, &req) {
		return
	}
	sess, err := h.admins.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{
		"token":      sess.Token.Value,
		"expires_at": sess.Token.ExpiresAt,
		"admin":      sess.Admin,
	})
}

func (h *Handler) RegisterAdmin(c *gin.Context) {
	var req admin.Input
	if !h.bind(c, &req) {
		return
	}
	a, err := h.admins.Register(c.Request.Context(), req, h.now())
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond(c, http.StatusCreated, gin.H{"message": "Admin registered successfully", "adminId": a.AdminID})
}

func (h *Handler) AdminProfile(c *gin.Context) {
	a, err := h.admins.Profile(c.Request.Context(), subject(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"admin": a})
}
