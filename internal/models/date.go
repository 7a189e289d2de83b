package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidDate is returned by ParseDate for unrecognised input.
var ErrInvalidDate = errors.New("invalid date")

var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04", "2006-01-02"}

// ParseDate accepts RFC 3339 timestamps, datetime-local values and plain
// calendar dates. An empty string yields fallback.
func ParseDate(s string, fallback time.Time) (time.Time, error) {
	if s == "" {
		return fallback, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w %q", ErrInvalidDate, s)
}
