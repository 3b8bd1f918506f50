package errors

import "errors"

var (
	// ErrInvalidRange is returned when a time range does not satisfy stop > start.
	ErrInvalidRange = errors.New("invalid time range: stop must be after start")

	// ErrQuery wraps failures of the telemetry store: unreachable, timed out
	// or replying with something that cannot be read.
	ErrQuery = errors.New("telemetry query failed")

	// ErrNoCachedResult is returned when an export is requested before any
	// successful computation in the session.
	ErrNoCachedResult = errors.New("no cached uptime result")

	ErrUnknownPreset = errors.New("unknown time range preset")
)
