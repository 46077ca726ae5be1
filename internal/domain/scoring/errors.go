package scoring

import "errors"

// Sentinel kinds for counter validation errors.
var (
	ErrInvalidCounters = errors.New("invalid counters")
)
