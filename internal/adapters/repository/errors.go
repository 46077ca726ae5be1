package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionExists    = errors.New("session already exists")
	ErrSessionFinalized = errors.New("session already finalized")
	ErrAccountNotFound  = errors.New("account not found")
	ErrInvalidLimit     = errors.New("invalid board limit")
)
