package oem

import (
	"fmt"
	"time"
)

// EpochLayout is the OEM timestamp format: four-digit year, day of year,
// time of day with fixed millisecond precision, e.g. "2024-066T12:00:00.000Z".
const EpochLayout = "2006-002T15:04:05.000Z"

// ParseEpoch converts an OEM epoch string to a UTC time.Time.
func ParseEpoch(s string) (time.Time, error) {
	t, err := time.Parse(EpochLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid epoch timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}
