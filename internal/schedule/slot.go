// Package schedule holds the slot arithmetic shared by booking and cancellation.
package schedule

import (
	"errors"
	"strings"
	"time"
)

// SlotDuration is the fixed length of a bookable slot.
const SlotDuration = time.Hour

var ErrInvalidDate = errors.New("invalid date")

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// Normalize returns the start of the UTC hour containing t.
// Half-hour offsets map to the same slot as the UTC instant.
func Normalize(t time.Time) time.Time {
	return t.UTC().Truncate(time.Hour)
}

// IsPast reports whether t is strictly before now.
func IsPast(t, now time.Time) bool {
	return t.Before(now)
}

// IsCancelable reports whether now is still ahead of date by more than notice.
func IsCancelable(date, now time.Time, notice time.Duration) bool {
	return now.Before(date.Add(-notice))
}

// ParseDate parses an ISO-8601 date or date-time. Values without a zone are UTC.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, ErrInvalidDate
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrInvalidDate
}
