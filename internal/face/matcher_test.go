package face

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistance(t *testing.T) {
	assert.Equal(t, 5.0, Distance(Descriptor{0, 0}, Descriptor{3, 4}))
	assert.Equal(t, Distance(Descriptor{1, 2}, Descriptor{4, 6}), Distance(Descriptor{4, 6}, Descriptor{1, 2}))
	assert.Zero(t, Distance(Descriptor{0.1, 0.2}, Descriptor{0.1, 0.2}))
	assert.True(t, math.IsInf(Distance(Descriptor{1, 2}, Descriptor{1, 2, 3}), 1), "length mismatch never matches")
	assert.True(t, math.IsInf(Distance(nil, nil), 1))
	assert.True(t, math.IsInf(Distance(Descriptor{math.NaN()}, Descriptor{0}), 1))
}

func TestVerify(t *testing.T) {
	candidate := Descriptor{0, 0}

	t.Run("empty enrolled set fails closed", func(t *testing.T) {
		res := Verify(candidate, nil, Threshold, 1)
		assert.False(t, res.Success)
		assert.Zero(t, res.MatchedCount)
		assert.Equal(t, AttemptIncrement, res.AttemptDelta)

		res = Verify(candidate, []Descriptor{}, Threshold, 0)
		assert.False(t, res.Success, "minMatches below one cannot open an empty profile")
	})

	t.Run("identical descriptor matches", func(t *testing.T) {
		res := Verify(Descriptor{0.25, -0.5}, []Descriptor{{0.25, -0.5}}, Threshold, 1)
		assert.True(t, res.Success)
		assert.Equal(t, 1, res.MatchedCount)
		assert.Equal(t, AttemptReset, res.AttemptDelta)
	})

	t.Run("distance equal to threshold does not count", func(t *testing.T) {
		enrolled := []Descriptor{{0.5, 0}, {0, -0.5}}
		res := Verify(candidate, enrolled, 0.5, 1)
		assert.False(t, res.Success)
		assert.Zero(t, res.MatchedCount)
	})

	t.Run("one close and one far with minMatches 1", func(t *testing.T) {
		enrolled := []Descriptor{{0.3, 0}, {0.8, 0}}
		res := Verify(candidate, enrolled, 0.6, 1)
		assert.True(t, res.Success)
		assert.Equal(t, 1, res.MatchedCount)
	})

	t.Run("same profile with minMatches 2", func(t *testing.T) {
		enrolled := []Descriptor{{0.3, 0}, {0.8, 0}}
		res := Verify(candidate, enrolled, 0.6, 2)
		assert.False(t, res.Success)
		assert.Equal(t, 1, res.MatchedCount)
		assert.Equal(t, AttemptIncrement, res.AttemptDelta)
	})

	t.Run("malformed candidate", func(t *testing.T) {
		enrolled := []Descriptor{{0, 0}}
		for name, c := range map[string]Descriptor{
			"nil":      nil,
			"empty":    {},
			"nan":      {math.NaN(), 0},
			"inf":      {math.Inf(-1), 0},
			"mismatch": {0, 0, 0},
		} {
			res := Verify(c, enrolled, Threshold, 1)
			assert.False(t, res.Success, name)
			assert.Zero(t, res.MatchedCount, name)
			assert.Equal(t, AttemptIncrement, res.AttemptDelta, name)
		}
	})

	t.Run("policy constants", func(t *testing.T) {
		enrolled := []Descriptor{{0.1, 0}, {0.2, 0}, {3, 3}}
		assert.True(t, Verify(candidate, enrolled, Threshold, VerifyMinMatches).Success)
		assert.True(t, Verify(candidate, enrolled, Threshold, FaceLoginMinMatches).Success)
		assert.False(t, Verify(candidate, enrolled[1:], Threshold, FaceLoginMinMatches).Success)
	})
}
