package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrBadRequest    = errors.New("bad request")
	ErrAdminDisabled = errors.New("admin surface disabled; no token configured")
	ErrForbidden     = errors.New("invalid admin token")
)
