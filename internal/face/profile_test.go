package face

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type ProfileSuite struct {
	suite.Suite
	now time.Time
}

func TestProfileSuite(t *testing.T) {
	suite.Run(t, new(ProfileSuite))
}

func (s *ProfileSuite) SetupTest() {
	s.now = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
}

func (s *ProfileSuite) TestEnroll() {
	s.Run("appends in enrollment order", func() {
		var p Profile
		s.Require().NoError(p.Enroll(Descriptor{1, 2}, s.now))
		s.Require().NoError(p.Enroll(Descriptor{3, 4}, s.now.Add(time.Minute)))

		s.Equal([]Descriptor{{1, 2}, {3, 4}}, p.Descriptors)
		s.Require().NotNil(p.LastUpdated)
		s.Equal(s.now.Add(time.Minute), *p.LastUpdated)
		s.True(p.Enrolled())
	})

	s.Run("stored copy is independent of the caller's slice", func() {
		var p Profile
		d := Descriptor{1, 2}
		s.Require().NoError(p.Enroll(d, s.now))
		d[0] = 99
		s.Equal(1.0, p.Descriptors[0][0])
	})

	s.Run("rejects malformed and mismatched descriptors", func() {
		var p Profile
		s.ErrorIs(p.Enroll(nil, s.now), ErrInvalidDescriptor)
		s.Require().NoError(p.Enroll(Descriptor{1, 2}, s.now))
		s.ErrorIs(p.Enroll(Descriptor{1, 2, 3}, s.now), ErrInvalidDescriptor)
		s.Len(p.Descriptors, 1)
	})
}

func (s *ProfileSuite) TestApply() {
	var p Profile
	p.Apply(AttemptIncrement, s.now)
	p.Apply(AttemptIncrement, s.now.Add(time.Second))
	s.Equal(2, p.VerificationAttempts)
	s.Equal(s.now.Add(time.Second), *p.LastVerificationAttempt)

	p.Apply(AttemptReset, s.now.Add(2*time.Second))
	s.Zero(p.VerificationAttempts)

	p.Apply(AttemptDelta(0), s.now.Add(time.Hour))
	s.Equal(s.now.Add(2*time.Second), *p.LastVerificationAttempt, "unknown delta is ignored")
}

func (s *ProfileSuite) TestCoolingDown() {
	policy := LockoutPolicy{MaxAttempts: 3, Cooldown: time.Minute}
	var p Profile
	for i := 0; i < 3; i++ {
		p.Apply(AttemptIncrement, s.now)
	}

	locked, wait := policy.CoolingDown(p, s.now.Add(20*time.Second))
	s.True(locked)
	s.Equal(40*time.Second, wait)

	locked, _ = policy.CoolingDown(p, s.now.Add(time.Minute))
	s.False(locked, "cooldown elapsed")

	locked, _ = LockoutPolicy{}.CoolingDown(p, s.now)
	s.False(locked, "zero policy disables lockout")

	p.Apply(AttemptReset, s.now)
	locked, _ = policy.CoolingDown(p, s.now)
	s.False(locked)
}
