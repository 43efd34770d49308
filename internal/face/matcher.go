// Package face decides whether a captured face descriptor belongs to the
// identity behind a set of enrolled descriptors.
//
// Matching is pure: Verify reports the decision and the attempt-counter delta,
// and the owner of the stored profile applies and persists that delta.
package face

import "math"

// Descriptor is a fixed-length face embedding (128 values from face-api.js).
type Descriptor []float64

// Policy constants.
const (
	// Threshold is the largest Euclidean distance, exclusive, still counted as a match.
	Threshold = 0.6
	// VerifyMinMatches applies to the second-factor check after password login.
	VerifyMinMatches = 1
	// FaceLoginMinMatches applies to descriptor-only login.
	FaceLoginMinMatches = 2
)

// AttemptDelta is the change the caller must apply to the attempt counter.
type AttemptDelta int

const (
	AttemptIncrement AttemptDelta = iota + 1
	AttemptReset
)

func (d AttemptDelta) String() string {
	switch d {
	case AttemptIncrement:
		return "increment"
	case AttemptReset:
		return "reset"
	}
	return "none"
}

// Result is the outcome of one verification.
type Result struct {
	Success      bool
	MatchedCount int
	AttemptDelta AttemptDelta
}

// Valid reports whether d is non-empty and every component is finite.
func (d Descriptor) Valid() bool {
	if len(d) == 0 {
		return false
	}
	for _, v := range d {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Distance is the Euclidean distance between a and b. Vectors of different
// length, empty vectors and non-finite components are infinitely far apart.
func Distance(a, b Descriptor) float64 {
	if len(a) != len(b) || !a.Valid() || !b.Valid() {
		return math.Inf(1)
	}
	var sum float64
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return math.Sqrt(sum)
}

// Verify counts the enrolled descriptors strictly closer than threshold to
// candidate and succeeds when at least minMatches do. An empty enrolled set
// or a malformed candidate always fails.
func Verify(candidate Descriptor, enrolled []Descriptor, threshold float64, minMatches int) Result {
	fail := Result{AttemptDelta: AttemptIncrement}
	if !candidate.Valid() || len(enrolled) == 0 {
		return fail
	}
	if minMatches < 1 {
		minMatches = 1
	}
	matched := 0
	for _, e := range enrolled {
		if Distance(candidate, e) < threshold {
			matched++
		}
	}
	if matched < minMatches {
		fail.MatchedCount = matched
		return fail
	}
	return Result{Success: true, MatchedCount: matched, AttemptDelta: AttemptReset}
}
