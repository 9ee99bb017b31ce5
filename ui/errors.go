package ui

import "errors"

// Inspector errors.
var (
	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("ui: invalid configuration")

	// ErrNotFound indicates a session was not found.
	ErrNotFound = errors.New("ui: not found")
)
