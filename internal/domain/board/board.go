// Package board defines the closed set of leaderboard types and the
// admission thresholds that gate entry onto each of them.
package board

import (
	"fmt"
	"math"
)

// Type identifies one of the three independently ranked leaderboards.
type Type int

const (
	// Score ranks sessions by final score.
	Score Type = iota
	// Streak ranks sessions by best consecutive-correct run.
	Streak
	// Accuracy ranks sessions by percentage of correct answers.
	Accuracy
)

// Admission thresholds. These are product-level rules, not tunables:
// the sample-size floor keeps a lucky short run from out-ranking a
// sustained performance, and accuracy is rounded to one decimal before
// comparison so the boundary does not flap on float noise.
const (
	MinAnswered    = 30
	MinScore       = 100
	MinStreak      = 10
	MinAccuracyPct = 69.5
)

// All returns every board type in ranking-lock order. Callers that
// acquire locks across multiple boards must do so in this order.
func All() []Type {
	return []Type{Score, Streak, Accuracy}
}

// Parse converts a wire-format board name into a Type.
func Parse(s string) (Type, error) {
	switch s {
	case "score":
		return Score, nil
	case "streak":
		return Streak, nil
	case "accuracy":
		return Accuracy, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownType, s)
	}
}

// String returns the wire-format name of the board type.
func (t Type) String() string {
	switch t {
	case Score:
		return "score"
	case Streak:
		return "streak"
	case Accuracy:
		return "accuracy"
	default:
		return fmt.Sprintf("board(%d)", int(t))
	}
}

// Stats carries the final aggregate counters of a session that the
// eligibility gate and ranking value selection operate on.
type Stats struct {
	Score       int
	MaxStreak   int
	AccuracyPct float64
	Answered    int
}

// Eligible reports whether a session with the given final counters may
// even be considered for the board. Pure; no side effects.
func Eligible(t Type, s Stats) bool {
	if s.Answered < MinAnswered {
		return false
	}
	switch t {
	case Score:
		return s.Score >= MinScore
	case Streak:
		return s.MaxStreak >= MinStreak
	case Accuracy:
		return Round1(s.AccuracyPct) >= MinAccuracyPct
	default:
		return false
	}
}

// Value selects the ranking value for the board from the counters.
func Value(t Type, s Stats) float64 {
	switch t {
	case Score:
		return float64(s.Score)
	case Streak:
		return float64(s.MaxStreak)
	case Accuracy:
		return s.AccuracyPct
	default:
		return 0
	}
}

// Round1 rounds to one decimal place, half away from zero.
func Round1(x float64) float64 {
	return math.Round(x*10) / 10
}
