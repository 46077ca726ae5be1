package service

import "errors"

// Sentinel kinds for the service layer. Session lifecycle errors are
// re-exported from the repository so HTTP callers can map the whole
// taxonomy through errors.Is against one package.
var (
	// ErrBackpressure signals the stat queue refused an event because it
	// is full. The event was not accepted and may be retried.
	ErrBackpressure = errors.New("stat queue full")

	// ErrDuplicateEvent signals a stat event id was already accepted.
	ErrDuplicateEvent = errors.New("duplicate event")

	// ErrNotStarted signals an operation against a service that has not
	// been started.
	ErrNotStarted = errors.New("service not started")
)
