package face

import (
	"errors"
	"time"
)

// ErrInvalidDescriptor is returned when enrolling a malformed descriptor.
var ErrInvalidDescriptor = errors.New("invalid face descriptor")

// Profile is the biometric part of a student record.
type Profile struct {
	Descriptors             []Descriptor `json:"descriptors"`
	VerificationAttempts    int          `json:"verification_attempts"`
	LastUpdated             *time.Time   `json:"last_updated,omitempty"`
	LastVerificationAttempt *time.Time   `json:"last_verification_attempt,omitempty"`
}

// Enroll appends d in enrollment order. Existing descriptors are never
// replaced or reordered, and every descriptor must share the first one's length.
func (p *Profile) Enroll(d Descriptor, now time.Time) error {
	if !d.Valid() {
		return ErrInvalidDescriptor
	}
	if len(p.Descriptors) > 0 && len(p.Descriptors[0]) != len(d) {
		return ErrInvalidDescriptor
	}
	cp := make(Descriptor, len(d))
	copy(cp, d)
	p.Descriptors = append(p.Descriptors, cp)
	t := now.UTC()
	p.LastUpdated = &t
	return nil
}

// Apply updates the attempt counter for a verification outcome.
func (p *Profile) Apply(delta AttemptDelta, now time.Time) {
	switch delta {
	case AttemptIncrement:
		p.VerificationAttempts++
	case AttemptReset:
		p.VerificationAttempts = 0
	default:
		return
	}
	t := now.UTC()
	p.LastVerificationAttempt = &t
}

// Enrolled reports whether at least one descriptor is on file.
func (p Profile) Enrolled() bool {
	return len(p.Descriptors) > 0
}

// LockoutPolicy is a soft lockout: after MaxAttempts consecutive failures,
// attempts are refused until Cooldown has passed since the last one.
// MaxAttempts <= 0 disables it.
type LockoutPolicy struct {
	MaxAttempts int
	Cooldown    time.Duration
}

// CoolingDown reports whether p must wait before trying again, and for how long.
func (l LockoutPolicy) CoolingDown(p Profile, now time.Time) (bool, time.Duration) {
	if l.MaxAttempts <= 0 || p.VerificationAttempts < l.MaxAttempts || p.LastVerificationAttempt == nil {
		return false, 0
	}
	until := p.LastVerificationAttempt.Add(l.Cooldown)
	if !now.Before(until) {
		return false, 0
	}
	return true, until.Sub(now)
}
