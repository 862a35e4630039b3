package domain

import "errors"

// Sentinel errors shared across component boundaries.
var (
	// ErrBusClosed is returned when publishing or subscribing on a closed
	// event bus.
	ErrBusClosed = errors.New("event bus is closed")

	// ErrBackendUnavailable is returned when the remote reputation backend
	// cannot be reached. The store treats it as a cache miss, never as a
	// screening failure.
	ErrBackendUnavailable = errors.New("reputation backend unavailable")
)
