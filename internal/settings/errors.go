package settings

import "errors"

var (
	// ErrInvalidClockTime is returned when a time of day cannot be parsed or is out of range.
	ErrInvalidClockTime = errors.New("settings: invalid clock time (want HH:MM)")

	// ErrInvalidSettings is returned by Validate.
	ErrInvalidSettings = errors.New("settings: invalid")
)
