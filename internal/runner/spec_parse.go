package runner

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"recur/pkg/schedule"
)

// SpecKind discriminates the two accepted schedule syntaxes.
type SpecKind int

const (
	// SpecEvery is the human grammar handled by the schedule builder.
	SpecEvery SpecKind = iota
	// SpecCron is a raw cron expression or @-descriptor.
	SpecCron
)

// ParsedSpec is the schedule text of a job broken into its clauses.
// For SpecEvery specs, Configure replays the clauses onto a job builder.
type ParsedSpec struct {
	Kind SpecKind

	// Cron holds the expression for SpecCron specs.
	Cron string

	Interval   int
	Latest     int
	Unit       schedule.Unit
	Singular   bool
	Weekday    time.Weekday
	HasWeekday bool
	At         string
	Zone       string
	Until      string
}

type unitWord struct {
	unit     schedule.Unit
	singular bool
}

var unitWords = map[string]unitWord{
	"second":  {schedule.Seconds, true},
	"seconds": {schedule.Seconds, false},
	"minute":  {schedule.Minutes, true},
	"minutes": {schedule.Minutes, false},
	"hour":    {schedule.Hours, true},
	"hours":   {schedule.Hours, false},
	"day":     {schedule.Days, true},
	"days":    {schedule.Days, false},
	"week":    {schedule.Weeks, true},
	"weeks":   {schedule.Weeks, false},
}

var weekdayWords = map[string]time.Weekday{
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
	"sunday":    time.Sunday,
}

// ParseSchedule parses the schedule text of a job config entry.
//
// Grammar for the human form:
//
//	every [N [to M]] UNIT [at TIME] [in TZ] [until WHEN]
//
// where UNIT is a unit word (seconds, minutes, ...) or a weekday name.
// Cron specs use a "cron:" prefix or start with "@".
func ParseSchedule(raw string) (ParsedSpec, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ParsedSpec{}, fmt.Errorf("empty schedule")
	}
	if rest, ok := strings.CutPrefix(s, "cron:"); ok {
		expr := strings.TrimSpace(rest)
		if expr == "" {
			return ParsedSpec{}, fmt.Errorf("empty cron expression")
		}
		return ParsedSpec{Kind: SpecCron, Cron: expr}, nil
	}
	if strings.HasPrefix(s, "@") {
		return ParsedSpec{Kind: SpecCron, Cron: s}, nil
	}

	tok := strings.Fields(s)
	if strings.ToLower(tok[0]) != "every" {
		return ParsedSpec{}, fmt.Errorf("schedule must start with %q or a cron form, got %q", "every", tok[0])
	}
	p := ParsedSpec{Kind: SpecEvery, Interval: 1}
	i := 1
	if i >= len(tok) {
		return ParsedSpec{}, fmt.Errorf("missing unit after %q", "every")
	}

	if n, err := strconv.Atoi(tok[i]); err == nil {
		if n < 1 {
			return ParsedSpec{}, fmt.Errorf("interval must be >= 1, got %d", n)
		}
		p.Interval = n
		i++
		if i < len(tok) && strings.ToLower(tok[i]) == "to" {
			i++
			if i >= len(tok) {
				return ParsedSpec{}, fmt.Errorf("missing upper bound after %q", "to")
			}
			m, err := strconv.Atoi(tok[i])
			if err != nil {
				return ParsedSpec{}, fmt.Errorf("invalid upper bound %q", tok[i])
			}
			if m < p.Interval {
				return ParsedSpec{}, fmt.Errorf("upper bound %d below interval %d", m, p.Interval)
			}
			p.Latest = m
			i++
		}
	}

	if i >= len(tok) {
		return ParsedSpec{}, fmt.Errorf("missing unit in %q", raw)
	}
	word := strings.ToLower(tok[i])
	if wd, ok := weekdayWords[word]; ok {
		p.Weekday = wd
		p.HasWeekday = true
		i++
	} else if uw, ok := unitWords[word]; ok {
		p.Unit = uw.unit
		p.Singular = uw.singular
		i++
	} else {
		return ParsedSpec{}, fmt.Errorf("unknown unit %q", tok[i])
	}

	for i < len(tok) {
		switch strings.ToLower(tok[i]) {
		case "at":
			if i+1 >= len(tok) {
				return ParsedSpec{}, fmt.Errorf("missing time after %q", "at")
			}
			p.At = tok[i+1]
			i += 2
		case "in":
			if i+1 >= len(tok) {
				return ParsedSpec{}, fmt.Errorf("missing zone after %q", "in")
			}
			p.Zone = tok[i+1]
			i += 2
		case "until":
			if i+1 >= len(tok) {
				return ParsedSpec{}, fmt.Errorf("missing deadline after %q", "until")
			}
			p.Until = strings.Join(tok[i+1:], " ")
			i = len(tok)
		default:
			return ParsedSpec{}, fmt.Errorf("unexpected token %q", tok[i])
		}
	}
	return p, nil
}

// Configure replays the parsed clauses onto a job builder. The builder
// defers validation, so errors in the clauses (bad at-times, singular
// units with interval > 1) surface from Do.
func (p ParsedSpec) Configure(j *schedule.Job) *schedule.Job {
	if p.HasWeekday {
		j = j.Weekday(p.Weekday)
	} else {
		switch p.Unit {
		case schedule.Seconds:
			if p.Singular {
				j = j.Second()
			} else {
				j = j.Seconds()
			}
		case schedule.Minutes:
			if p.Singular {
				j = j.Minute()
			} else {
				j = j.Minutes()
			}
		case schedule.Hours:
			if p.Singular {
				j = j.Hour()
			} else {
				j = j.Hours()
			}
		case schedule.Days:
			if p.Singular {
				j = j.Day()
			} else {
				j = j.Days()
			}
		case schedule.Weeks:
			if p.Singular {
				j = j.Week()
			} else {
				j = j.Weeks()
			}
		}
	}
	if p.Latest > 0 {
		j = j.To(p.Latest)
	}
	if p.At != "" {
		if p.Zone != "" {
			j = j.At(p.At, p.Zone)
		} else {
			j = j.At(p.At)
		}
	}
	if p.Until != "" {
		j = j.Until(p.Until)
	}
	return j
}
