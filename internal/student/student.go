// Package student holds student accounts, two-step registration and the
// face-verification flows that guard student sessions.
package student

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"campusvote/internal/campus"
	"campusvote/internal/face"
)

var (
	ErrNotFound           = errors.New("student not found")
	ErrAlreadyRegistered  = errors.New("student already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalid            = errors.New("invalid registration")
	ErrRegistrationGone   = errors.New("registration expired or already completed")
	ErrNoFaceData         = errors.New("no face data registered for this student")
	ErrTooFewFaces        = errors.New("not enough enrolled faces for this sign-in, enroll another face first")
	ErrFaceMismatch       = errors.New("face verification failed")
	ErrLockedOut          = errors.New("too many failed face verifications")
	ErrFaceUnavailable    = errors.New("face service unavailable")
)

// Account states.
const (
	StatusActive    = "Active"
	StatusInactive  = "Inactive"
	StatusGraduated = "Graduated"
	StatusSuspended = "Suspended"
)

var (
	studentIDPattern = regexp.MustCompile(`^\d{4}-\d{4}$`)
	emailPattern     = regexp.MustCompile(`^.+@dorsu\.edu\.ph$`)
)

const minPasswordLen = 6

// Student is a registered voter.
type Student struct {
	ID                   string       `json:"id"`
	StudentID            string       `json:"student_id"`
	FirstName            string       `json:"first_name"`
	MiddleName           string       `json:"middle_name,omitempty"`
	LastName             string       `json:"last_name"`
	Email                string       `json:"email"`
	Faculty              string       `json:"faculty"`
	Program              string       `json:"program"`
	PasswordHash         string       `json:"-"`
	Face                 face.Profile `json:"-"`
	Status               string       `json:"status"`
	RegistrationComplete bool         `json:"registration_complete"`
	CreatedAt            time.Time    `json:"created_at"`
	UpdatedAt            time.Time    `json:"updated_at"`
}

// Registration is the first-step form.
type Registration struct {
	FirstName  string `json:"firstName"`
	MiddleName string `json:"middleName"`
	LastName   string `json:"lastName"`
	StudentID  string `json:"studentId"`
	Email      string `json:"email"`
	Faculty    string `json:"faculty"`
	Program    string `json:"program"`
	Password   string `json:"password"`
}

// Normalize trims the form and checks every field. Errors wrap ErrInvalid.
func (r Registration) Normalize() (Registration, error) {
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.MiddleName = strings.TrimSpace(r.MiddleName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.StudentID = strings.TrimSpace(r.StudentID)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Faculty = strings.TrimSpace(r.Faculty)
	r.Program = strings.TrimSpace(r.Program)

	switch {
	case r.FirstName == "":
		return r, fmt.Errorf("%w: first name is required", ErrInvalid)
	case r.LastName == "":
		return r, fmt.Errorf("%w: last name is required", ErrInvalid)
	case !studentIDPattern.MatchString(r.StudentID):
		return r, fmt.Errorf("%w: invalid student ID format", ErrInvalid)
	case !emailPattern.MatchString(r.Email):
		return r, fmt.Errorf("%w: must be a valid DOrSU email", ErrInvalid)
	case !campus.IsFaculty(r.Faculty):
		return r, fmt.Errorf("%w: invalid faculty", ErrInvalid)
	case !campus.Offers(r.Faculty, r.Program):
		return r, fmt.Errorf("%w: invalid program for selected faculty", ErrInvalid)
	case len(r.Password) < minPasswordLen:
		return r, fmt.Errorf("%w: password must be at least %d characters long", ErrInvalid, minPasswordLen)
	}
	return r, nil
}

// Pending is a registration waiting for its face capture. The password is
// already hashed.
type Pending struct {
	ID           string    `json:"id"`
	FirstName    string    `json:"first_name"`
	MiddleName   string    `json:"middle_name,omitempty"`
	LastName     string    `json:"last_name"`
	StudentID    string    `json:"student_id"`
	Email        string    `json:"email"`
	Faculty      string    `json:"faculty"`
	Program      string    `json:"program"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}
