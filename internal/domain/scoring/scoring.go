// Package scoring derives and validates a session's final aggregate
// counters from the raw values clients report.
package scoring

import (
	"fmt"

	"github.com/okian/triboard/internal/domain/model"
)

const maxAccuracyPct = 100.0

// Validate rejects malformed counters before any store mutation.
func Validate(c model.Counters) error {
	switch {
	case c.Score < 0:
		return fmt.Errorf("%w: negative score", ErrInvalidCounters)
	case c.MaxStreak < 0:
		return fmt.Errorf("%w: negative streak", ErrInvalidCounters)
	case c.TotalAnswered < 0:
		return fmt.Errorf("%w: negative total_answered", ErrInvalidCounters)
	case c.TotalCorrect < 0:
		return fmt.Errorf("%w: negative total_correct", ErrInvalidCounters)
	case c.TotalCorrect > c.TotalAnswered:
		return fmt.Errorf("%w: total_correct exceeds total_answered", ErrInvalidCounters)
	case c.MaxStreak > c.TotalAnswered:
		return fmt.Errorf("%w: max_streak exceeds total_answered", ErrInvalidCounters)
	}
	return nil
}

// Finalize returns the counters with accuracy re-derived from
// TotalCorrect/TotalAnswered. Accuracy reported by the client is never
// trusted. A session with zero answers has zero accuracy.
func Finalize(c model.Counters) model.Counters {
	if c.TotalAnswered == 0 {
		c.AccuracyPct = 0
		return c
	}
	pct := float64(c.TotalCorrect) / float64(c.TotalAnswered) * maxAccuracyPct
	if pct > maxAccuracyPct {
		pct = maxAccuracyPct
	}
	c.AccuracyPct = pct
	return c
}
