package schedule

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Accepted clock-anchor shapes, by unit granularity.
var (
	reDailyAt  = regexp.MustCompile(`^([0-2]\d):([0-5]\d)(?::([0-5]\d))?$`)
	reHourlyAt = regexp.MustCompile(`^([0-5]\d)?:([0-5]\d)$`)
	reMinuteAt = regexp.MustCompile(`^:([0-5]\d)$`)
)

// parseAt validates a clock-anchor string against the job's unit and
// extracts the pinned fields. The granularity must make sense for how
// often the job repeats: a minute job only pins seconds, an hourly job
// minutes and seconds, a daily or weekday job the full time of day.
func parseAt(unit Unit, hasStartDay bool, s string) (clockTime, error) {
	daily := unit == Days || hasStartDay
	if !daily && unit != Hours && unit != Minutes {
		return clockTime{}, fmt.Errorf("clock anchors are valid for daily, hourly, minute or weekday-anchored jobs: %w", ErrInvalidUnit)
	}

	switch {
	case daily:
		m := reDailyAt.FindStringSubmatch(s)
		if m == nil {
			return clockTime{}, fmt.Errorf("daily job wants HH:MM(:SS)?, got %q: %w", s, ErrInvalidTimeFormat)
		}
		hour := atoi(m[1])
		if hour > 23 {
			return clockTime{}, fmt.Errorf("hour %d is not between 0 and 23: %w", hour, ErrInvalidTimeFormat)
		}
		return clockTime{hour: hour, minute: atoi(m[2]), second: atoi(m[3])}, nil

	case unit == Hours:
		m := reHourlyAt.FindStringSubmatch(s)
		if m == nil {
			return clockTime{}, fmt.Errorf("hourly job wants MM:SS or :MM, got %q: %w", s, ErrInvalidTimeFormat)
		}
		// A lone field pins the minute within the hour, not the second.
		if m[1] == "" {
			return clockTime{minute: atoi(m[2])}, nil
		}
		return clockTime{minute: atoi(m[1]), second: atoi(m[2])}, nil

	default: // minutes
		m := reMinuteAt.FindStringSubmatch(s)
		if m == nil {
			return clockTime{}, fmt.Errorf("minute job wants :SS, got %q: %w", s, ErrInvalidTimeFormat)
		}
		return clockTime{second: atoi(m[1])}, nil
	}
}

// atoi converts a regexp capture to an int. Captures are digit-only or
// empty (optional group), so the error case cannot happen.
func atoi(s string) int {
	if s == "" {
		return 0
	}
	n, _ := strconv.Atoi(s)
	return n
}

// Deadline string formats for Until, tried in order; first match wins.
var untilFormats = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"15:04:05",
	"15:04",
}

// parseUntil decodes a deadline string. Date-less forms get the current
// date filled in.
func parseUntil(s string, now time.Time) (time.Time, error) {
	for _, layout := range untilFormats {
		t, err := time.ParseInLocation(layout, s, now.Location())
		if err != nil {
			continue
		}
		if !strings.Contains(s, "-") {
			// time-only form: set the date to today
			h, m, sec := t.Clock()
			t = time.Date(now.Year(), now.Month(), now.Day(), h, m, sec, 0, now.Location())
		}
		return t, nil
	}
	return time.Time{}, fmt.Errorf("deadline %q matches none of the accepted formats: %w", s, ErrInvalidTimeFormat)
}
