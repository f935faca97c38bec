package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Duration is a time.Duration read from a string such as "3s".
// Bare numbers are taken as milliseconds. "off" disables a timeout.
type Duration time.Duration

// Off is stored for "off"; consumers treat any negative value as no limit.
const Off Duration = -1

// UnmarshalJSON accepts quoted Go durations, "off" and millisecond numbers.
func (d *Duration) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return nil
	}
	if unquoted := strings.Trim(s, `"'`); unquoted != s {
		if strings.EqualFold(unquoted, "off") {
			*d = Off
			return nil
		}
		v, err := time.ParseDuration(unquoted)
		if err != nil {
			return fmt.Errorf("parsing duration %s: %w", s, err)
		}
		*d = Duration(v)
		return nil
	}

	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("parsing duration %s: %w", s, err)
	}
	*d = Duration(time.Duration(ms) * time.Millisecond)
	return nil
}

// MarshalJSON writes the duration in Go syntax.
func (d Duration) MarshalJSON() ([]byte, error) {
	if d < 0 {
		return []byte(`"off"`), nil
	}
	return []byte(strconv.Quote(time.Duration(d).String())), nil
}

// Std returns the duration as a time.Duration, 0 when disabled.
func (d Duration) Std() time.Duration {
	if d < 0 {
		return 0
	}
	return time.Duration(d)
}
