package election

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"campusvote/internal/campus"
)

var (
	ErrNotFound      = errors.New("election not found")
	ErrInvalidWindow = errors.New("end date and time must be after start date and time")
	ErrInvalidType   = errors.New("invalid election type")
	ErrRestriction   = errors.New("invalid restriction for election type")
	ErrMissingField  = errors.New("election name and description are required")
	ErrOngoingDelete = errors.New("cannot delete an ongoing election")
	ErrTypeImmutable = errors.New("election type cannot be changed")
	ErrDuplicateCode = errors.New("election code already taken")
)

// Type scopes who may take part in an election.
type Type string

const (
	TypeGeneral Type = "General"
	TypeFaculty Type = "Faculty"
	TypeProgram Type = "Program"
)

// NoRestriction is the restriction value stored for General elections.
const NoRestriction = "None"

// Election is a stored election record. Status is always derived.
type Election struct {
	ID          string    `json:"id"`
	Code        string    `json:"election_id"`
	Name        string    `json:"election_name"`
	Description string    `json:"description"`
	Type        Type      `json:"election_type"`
	Restriction string    `json:"restriction"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	Status      Status    `json:"status"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Input carries the admin-editable fields of an election.
type Input struct {
	Name        string
	Description string
	Type        Type
	Restriction string
	StartDate   time.Time
	EndDate     time.Time
}

// ValidateWindow enforces end > start.
func ValidateWindow(start, end time.Time) error {
	if start.IsZero() || end.IsZero() || !end.After(start) {
		return ErrInvalidWindow
	}
	return nil
}

// Normalize validates in and returns it with the restriction canonicalised.
func (in Input) Normalize() (Input, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Restriction = strings.TrimSpace(in.Restriction)
	if in.Name == "" || in.Description == "" {
		return in, ErrMissingField
	}
	switch in.Type {
	case TypeGeneral:
		in.Restriction = NoRestriction
	case TypeFaculty:
		if !campus.IsFaculty(in.Restriction) {
			return in, fmt.Errorf("%w: unknown faculty %q", ErrRestriction, in.Restriction)
		}
	case TypeProgram:
		if !campus.IsProgram(in.Restriction) {
			return in, fmt.Errorf("%w: unknown program %q", ErrRestriction, in.Restriction)
		}
	default:
		return in, fmt.Errorf("%w: %q", ErrInvalidType, in.Type)
	}
	if err := ValidateWindow(in.StartDate, in.EndDate); err != nil {
		return in, err
	}
	return in, nil
}

// EligibleFor reports whether a student of faculty/program may take part.
func (e Election) EligibleFor(faculty, program string) bool {
	switch e.Type {
	case TypeGeneral:
		return true
	case TypeFaculty:
		return e.Restriction == faculty
	case TypeProgram:
		return e.Restriction == program
	}
	return false
}

// NextCode returns the sequential code following last ("E-0007" -> "E-0008").
// An empty or unparsable last code starts the sequence at E-0001.
func NextCode(prefix, last string) string {
	return fmt.Sprintf("%s-%04d", prefix, CodeSeq(last)+1)
}

// CodeSeq returns the numeric part of a sequential code, or 0 when it has none.
// Codes must be compared by CodeSeq: "E-10000" sorts before "E-9999" as text.
func CodeSeq(code string) int {
	_, num, ok := strings.Cut(code, "-")
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(num)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// CodePrefix is the prefix of election codes.
const CodePrefix = "E"
