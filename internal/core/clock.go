package core

import (
	"strconv"
	"strings"
	"time"
)

// DateLayout is the calendar-date form used by filters, reports and events.
const DateLayout = "2006-01-02"

// ParseClock parses an "HH:MM" time of day. Seconds are not accepted.
func ParseClock(s string) (hour, minute int, err error) {
	h, m, found := strings.Cut(strings.TrimSpace(s), ":")
	if !found || !isDigits(h, 1, 2) || !isDigits(m, 2, 2) {
		return 0, 0, ErrInvalidTime
	}
	hour, _ = strconv.Atoi(h)
	minute, _ = strconv.Atoi(m)
	if hour > 23 || minute > 59 {
		return 0, 0, ErrInvalidTime
	}
	return hour, minute, nil
}

// isDigits reports whether s is between minLen and maxLen ASCII digits.
func isDigits(s string, minLen, maxLen int) bool {
	if len(s) < minLen || len(s) > maxLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// AtClock keeps the calendar date of day (in its own location) and sets the
// time of day to hour:minute with seconds and sub-seconds cleared.
func AtClock(day time.Time, hour, minute int) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, hour, minute, 0, 0, day.Location())
}

// CombineDateAndClock parses clock and applies it to the date of day.
func CombineDateAndClock(day time.Time, clock string) (time.Time, error) {
	h, m, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	return AtClock(day, h, m), nil
}

// StartOfDay returns local midnight of t's calendar day.
func StartOfDay(t time.Time) time.Time {
	return AtClock(t, 0, 0)
}

// ResolveDay turns an optional YYYY-MM-DD string into the start of that day
// in now's location. An empty string selects now's day.
func ResolveDay(dateString string, now time.Time) (time.Time, error) {
	dateString = strings.TrimSpace(dateString)
	if dateString == "" {
		return StartOfDay(now), nil
	}
	d, err := time.ParseInLocation(DateLayout, dateString, now.Location())
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return d, nil
}
