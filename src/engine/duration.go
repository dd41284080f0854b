package engine

import (
	"fmt"
	"strconv"
	"time"
)

// ParseWindow parses relative time windows like "24h", "7d", "2w" or "1m"
// into durations. Months count as 30 days, years as 365.
func ParseWindow(s string) (time.Duration, error) {
	if len(s) < 2 {
		return 0, fmt.Errorf("invalid time window %q", s)
	}
	unit := s[len(s)-1]
	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid time window %q", s)
	}

	switch unit {
	case 'h':
		return time.Duration(n) * time.Hour, nil
	case 'd':
		return time.Duration(n) * 24 * time.Hour, nil
	case 'w':
		return time.Duration(n) * 7 * 24 * time.Hour, nil
	case 'm':
		return time.Duration(n) * 30 * 24 * time.Hour, nil
	case 'y':
		return time.Duration(n) * 365 * 24 * time.Hour, nil
	}
	return 0, fmt.Errorf("invalid time window %q: unknown unit %q", s, string(unit))
}

// WindowStart resolves a relative window against now, for use as a filter
// lower bound.
func WindowStart(now time.Time, window string) (time.Time, error) {
	d, err := ParseWindow(window)
	if err != nil {
		return time.Time{}, err
	}
	return now.Add(-d), nil
}
