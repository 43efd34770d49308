// Package ballot manages the positions contested in elections and the
// candidates running for them.
package ballot

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrPositionNotFound   = errors.New("position not found")
	ErrCandidateNotFound  = errors.New("candidate not found")
	ErrDuplicatePosition  = errors.New("position with this name already exists")
	ErrDuplicateCandidate = errors.New("student is already a candidate in this election")
	ErrInvalidMaxVote     = errors.New("maximum votes must be at least 1")
	ErrMissingField       = errors.New("missing required field")
	ErrElectionClosed     = errors.New("invalid election or election is completed")
	ErrStudentIneligible  = errors.New("student is not active or not eligible for this election")
	ErrElectionOngoing    = errors.New("cannot delete candidate from an ongoing election")
)

const (
	PositionPrefix  = "P"
	CandidatePrefix = "C"
)

// Position is an office on the ballot. MaxVote is how many candidates a voter
// may pick for it.
type Position struct {
	ID        string    `json:"id"`
	Code      string    `json:"position_id"`
	Name      string    `json:"position_name"`
	MaxVote   int       `json:"max_vote"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type PositionInput struct {
	Name    string `json:"position_name"`
	MaxVote int    `json:"max_vote"`
}

func (in PositionInput) Normalize() (PositionInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return in, ErrMissingField
	}
	if in.MaxVote < 1 {
		return in, ErrInvalidMaxVote
	}
	return in, nil
}

// Candidate is one student's candidacy in one election.
type Candidate struct {
	ID                string    `json:"id"`
	Code              string    `json:"candidate_id"`
	ElectionID        string    `json:"election"`
	StudentID         string    `json:"student"`
	PositionID        string    `json:"position"`
	CampaignStatement string    `json:"campaign_statement"`
	Partylist         string    `json:"partylist"`
	ProfilePicture    string    `json:"profile_picture,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type CandidateInput struct {
	ElectionID        string `json:"election"`
	StudentID         string `json:"student"`
	PositionID        string `json:"position"`
	CampaignStatement string `json:"campaign_statement"`
	Partylist         string `json:"partylist"`
}

func (in CandidateInput) Normalize() (CandidateInput, error) {
	in.ElectionID = strings.TrimSpace(in.ElectionID)
	in.StudentID = strings.TrimSpace(in.StudentID)
	in.PositionID = strings.TrimSpace(in.PositionID)
	in.CampaignStatement = strings.TrimSpace(in.CampaignStatement)
	in.Partylist = strings.TrimSpace(in.Partylist)
	if in.ElectionID == "" || in.StudentID == "" || in.PositionID == "" || in.CampaignStatement == "" {
		return in, ErrMissingField
	}
	return in, nil
}

// Photo is an uploaded candidate picture.
type Photo struct {
	Data     []byte
	Filename string
}
