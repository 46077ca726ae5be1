package board

import "errors"

// Sentinel kinds for board errors.
var (
	ErrUnknownType = errors.New("unknown board type")
)
