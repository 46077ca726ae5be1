package config

import (
	"errors"
)

// Sentinel errors for this package, matchable with errors.Is from callers.
var (
	// ErrInvalidConfig marks a config that loaded but failed validation.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrLoadConfig marks a failure reading or merging config sources.
	ErrLoadConfig = errors.New("load config failed")
)
