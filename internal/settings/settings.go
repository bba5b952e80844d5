package settings

import (
	"fmt"
	"strings"
)

// Default values, matching a fresh installation.
const (
	// DefaultCheckDuration is how long the sensor samples, in seconds.
	DefaultCheckDuration uint64 = 30

	// DefaultOpenDuration is how long the valve stays open, in seconds.
	DefaultOpenDuration uint64 = 5 * 60
)

// Settings are the operator-configured parameters shared by all modules.
//
// Durations are whole seconds.
type Settings struct {
	CheckTime     ClockTime `json:"check_time" yaml:"check_time"`
	CheckDuration uint64    `json:"check_duration" yaml:"check_duration"`
	OpenDuration  uint64    `json:"open_duration" yaml:"open_duration"`
}

// Default returns the settings used when nothing has been persisted yet:
// check at 03:00, sample for 30 seconds, water for 5 minutes.
func Default() Settings {
	return Settings{
		CheckTime:     MustClockTime(3, 0),
		CheckDuration: DefaultCheckDuration,
		OpenDuration:  DefaultOpenDuration,
	}
}

// Validate reports settings that would make the modules useless.
func (s Settings) Validate() error {
	var errs []string

	if s.CheckDuration == 0 {
		errs = append(errs, "check_duration must be greater than 0")
	}
	if s.OpenDuration == 0 {
		errs = append(errs, "open_duration must be greater than 0")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidSettings, strings.Join(errs, "; "))
	}
	return nil
}
