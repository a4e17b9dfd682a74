package core

import "errors"

// Error taxonomy. Store faults are wrapped with context by the storage layer;
// everything else callers branch on is one of these sentinels.
var (
	// ErrValidation marks missing or malformed required input. Never retried.
	ErrValidation = errors.New("invalid input")

	// ErrAuthFailed covers bad credentials and expired or unknown sessions.
	// It carries no detail about which half failed.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrConflict marks a uniqueness violation, e.g. re-registering a taken
	// user name.
	ErrConflict = errors.New("already exists")

	// ErrNotFound marks a lookup that resolved nothing.
	ErrNotFound = errors.New("not found")
)
