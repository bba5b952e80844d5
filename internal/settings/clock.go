package settings

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	minutesPerHour = 60
	minutesPerDay  = 24 * minutesPerHour

	clockLayout = "15:04"
)

// ClockTime is a time of day with minute precision.
//
// The zero value is midnight. Arithmetic wraps around the day boundary,
// so 00:02 minus five minutes is 23:57.
type ClockTime struct {
	minutes int
}

// NewClockTime returns the ClockTime for hour:minute.
func NewClockTime(hour, minute int) (ClockTime, error) {
	if hour < 0 || hour > 23 {
		return ClockTime{}, fmt.Errorf("%w: hour %d out of range", ErrInvalidClockTime, hour)
	}
	if minute < 0 || minute > 59 {
		return ClockTime{}, fmt.Errorf("%w: minute %d out of range", ErrInvalidClockTime, minute)
	}
	return ClockTime{minutes: hour*minutesPerHour + minute}, nil
}

// MustClockTime is NewClockTime for constant inputs. It panics on invalid values.
func MustClockTime(hour, minute int) ClockTime {
	c, err := NewClockTime(hour, minute)
	if err != nil {
		panic(err)
	}
	return c
}

// ParseClockTime parses "HH:MM".
func ParseClockTime(s string) (ClockTime, error) {
	t, err := time.Parse(clockLayout, s)
	if err != nil {
		return ClockTime{}, fmt.Errorf("%w: %q: %w", ErrInvalidClockTime, s, err)
	}
	return ClockTime{minutes: t.Hour()*minutesPerHour + t.Minute()}, nil
}

// Hour returns the hour of day (0-23).
func (c ClockTime) Hour() int { return c.minutes / minutesPerHour }

// Minute returns the minute within the hour (0-59).
func (c ClockTime) Minute() int { return c.minutes % minutesPerHour }

// Add returns c shifted by d, truncated to whole minutes and wrapped to one day.
func (c ClockTime) Add(d time.Duration) ClockTime {
	m := (c.minutes + int(d/time.Minute)) % minutesPerDay
	if m < 0 {
		m += minutesPerDay
	}
	return ClockTime{minutes: m}
}

// String returns the "HH:MM" form.
func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

// MarshalJSON encodes the clock time as a JSON string "HH:MM".
func (c ClockTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON decodes a JSON string "HH:MM".
func (c *ClockTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidClockTime, err)
	}
	parsed, err := ParseClockTime(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// MarshalYAML encodes the clock time as "HH:MM".
func (c ClockTime) MarshalYAML() (any, error) {
	return c.String(), nil
}

// UnmarshalYAML decodes "HH:MM".
func (c *ClockTime) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := ParseClockTime(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
