package schedule

import (
	"fmt"
	"sort"
	"strings"
	"time"

	logx "recur/pkg/logx"
)

// Unit is the recurrence granularity of a job.
type Unit int

const (
	UnitNone Unit = iota
	Seconds
	Minutes
	Hours
	Days
	Weeks
)

func (u Unit) String() string {
	switch u {
	case Seconds:
		return "seconds"
	case Minutes:
		return "minutes"
	case Hours:
		return "hours"
	case Days:
		return "days"
	case Weeks:
		return "weeks"
	default:
		return "unset"
	}
}

func (u Unit) duration() time.Duration {
	switch u {
	case Seconds:
		return time.Second
	case Minutes:
		return time.Minute
	case Hours:
		return time.Hour
	case Days:
		return 24 * time.Hour
	case Weeks:
		return 7 * 24 * time.Hour
	default:
		return 0
	}
}

// Outcome tells the scheduler what to do with a job after a run.
// It is expected control flow, not a fault: a job that wants to stop
// recurring returns Cancel instead of an error.
type Outcome int

const (
	// Continue keeps the job on its normal cadence.
	Continue Outcome = iota
	// Cancel asks the scheduler to remove the job after this run.
	Cancel
)

// Func is the callable bound to a job.
type Func func() (Outcome, error)

// clockTime is a clock-of-day anchor with no date component.
type clockTime struct {
	hour, minute, second int
}

// Job holds one job's recurrence configuration and scheduling state.
//
// Jobs are created with Scheduler.Every, configured by chaining, and
// finalized with Do, which computes the first next-run instant and
// registers the job with its scheduler. Configuration errors are recorded
// on the chain and reported by Do.
type Job struct {
	scheduler *Scheduler

	interval  int
	latest    int // jitter upper bound, meaningful only when hasLatest
	hasLatest bool
	unit      Unit

	atTime      *clockTime
	atZone      *time.Location
	startDay    time.Weekday
	hasStartDay bool

	cancelAfter time.Time // zero means no deadline

	lastRun time.Time
	nextRun time.Time
	period  time.Duration

	tags map[string]struct{}
	fn   Func

	// first configuration error recorded on the chain
	err error
}

func (j *Job) fail(msg string, sentinel error) {
	if j.err == nil {
		j.err = fmt.Errorf("%s: %w", msg, sentinel)
	}
}

func (j *Job) setUnit(u Unit, singular bool) *Job {
	if singular && j.interval != 1 {
		j.fail(fmt.Sprintf("singular %s form requires an interval of 1, got %d", u, j.interval), ErrInvalidInterval)
	}
	j.unit = u
	return j
}

// Second schedules the job every second. Only valid with an interval of 1.
func (j *Job) Second() *Job { return j.setUnit(Seconds, true) }

// Seconds schedules the job every interval seconds.
func (j *Job) Seconds() *Job { return j.setUnit(Seconds, false) }

// Minute schedules the job every minute. Only valid with an interval of 1.
func (j *Job) Minute() *Job { return j.setUnit(Minutes, true) }

// Minutes schedules the job every interval minutes.
func (j *Job) Minutes() *Job { return j.setUnit(Minutes, false) }

// Hour schedules the job every hour. Only valid with an interval of 1.
func (j *Job) Hour() *Job { return j.setUnit(Hours, true) }

// Hours schedules the job every interval hours.
func (j *Job) Hours() *Job { return j.setUnit(Hours, false) }

// Day schedules the job every day. Only valid with an interval of 1.
func (j *Job) Day() *Job { return j.setUnit(Days, true) }

// Days schedules the job every interval days.
func (j *Job) Days() *Job { return j.setUnit(Days, false) }

// Week schedules the job every week. Only valid with an interval of 1.
func (j *Job) Week() *Job { return j.setUnit(Weeks, true) }

// Weeks schedules the job every interval weeks.
func (j *Job) Weeks() *Job { return j.setUnit(Weeks, false) }

// Weekday anchors a weekly job to the given day of the week. Weekday
// anchors are only supported for jobs running every single week.
func (j *Job) Weekday(day time.Weekday) *Job {
	if j.interval != 1 {
		j.fail(fmt.Sprintf("%s jobs must run every single week, not every %d", day, j.interval), ErrInvalidInterval)
	}
	j.startDay = day
	j.hasStartDay = true
	j.unit = Weeks
	return j
}

func (j *Job) Monday() *Job    { return j.Weekday(time.Monday) }
func (j *Job) Tuesday() *Job   { return j.Weekday(time.Tuesday) }
func (j *Job) Wednesday() *Job { return j.Weekday(time.Wednesday) }
func (j *Job) Thursday() *Job  { return j.Weekday(time.Thursday) }
func (j *Job) Friday() *Job    { return j.Weekday(time.Friday) }
func (j *Job) Saturday() *Job  { return j.Weekday(time.Saturday) }
func (j *Job) Sunday() *Job    { return j.Weekday(time.Sunday) }

// Tag marks the job with one or more identifiers for group retrieval and
// cancellation. Duplicate tags are discarded.
func (j *Job) Tag(tags ...string) *Job {
	for _, t := range tags {
		j.tags[t] = struct{}{}
	}
	return j
}

// HasTag reports whether the job carries the given tag.
func (j *Job) HasTag(tag string) bool {
	_, ok := j.tags[tag]
	return ok
}

// Tags returns the job's tags in sorted order.
func (j *Job) Tags() []string {
	out := make([]string, 0, len(j.tags))
	for t := range j.tags {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// To schedules the job at an irregular (randomized) cadence: each
// reschedule draws a fresh interval uniformly from [interval, latest],
// inclusive on both ends. Consecutive intervals are independent draws.
func (j *Job) To(latest int) *Job {
	j.latest = latest
	j.hasLatest = true
	return j
}

// At pins the job to a particular wall-clock time within its period.
//
// Accepted formats depend on the unit:
//
//   - daily and weekday-anchored jobs: "HH:MM:SS" or "HH:MM"
//   - hourly jobs: "MM:SS", or ":MM" to pin just the minute
//   - minute jobs: ":SS"
//
// An optional IANA time zone name performs all anchored computation in
// that zone.
func (j *Job) At(timeStr string, tz ...string) *Job {
	if len(tz) > 0 && tz[0] != "" {
		loc, err := time.LoadLocation(tz[0])
		if err != nil {
			j.fail(fmt.Sprintf("unknown time zone %q", tz[0]), ErrInvalidTimeFormat)
			return j
		}
		j.atZone = loc
	}
	ct, err := parseAt(j.unit, j.hasStartDay, timeStr)
	if err != nil {
		if j.err == nil {
			j.err = err
		}
		return j
	}
	j.atTime = &ct
	return j
}

// Until schedules the job to run only up to the given moment. The job is
// cancelled as soon as a computed next run would exceed the deadline, and
// right before execution if the current time already has.
//
// Accepted values:
//
//   - time.Time: an absolute deadline
//   - time.Duration: a deadline relative to the scheduler's current time
//   - string: "2006-01-02 15:04:05", "2006-01-02 15:04", "2006-01-02",
//     "15:04:05" or "15:04"; date-less forms use the scheduler's current
//     date
//
// A deadline already in the past is rejected.
func (j *Job) Until(deadline any) *Job {
	now := j.scheduler.Now()
	switch v := deadline.(type) {
	case time.Time:
		j.cancelAfter = v
	case time.Duration:
		j.cancelAfter = now.Add(v)
	case string:
		t, err := parseUntil(v, now)
		if err != nil {
			if j.err == nil {
				j.err = err
			}
			return j
		}
		j.cancelAfter = t
	default:
		j.fail(fmt.Sprintf("Until takes a time.Time, time.Duration or string, not %T", deadline), ErrInvalidTimeFormat)
		return j
	}
	if j.cancelAfter.Before(now) {
		j.fail("cannot schedule a job to run until a moment in the past", ErrDeadlinePast)
	}
	return j
}

// Do finalizes the job: it binds the function, computes the first next-run
// instant and registers the job with its scheduler. Any configuration
// error recorded earlier on the chain is reported here.
func (j *Job) Do(fn Func) error {
	if j.err != nil {
		return j.err
	}
	if fn == nil {
		return ErrNoFunc
	}
	j.fn = fn
	if err := j.scheduleNextRun(); err != nil {
		return err
	}
	j.scheduler.jobs = append(j.scheduler.jobs, j)
	return nil
}

// ShouldRun reports whether the job's next-run instant has been reached.
// Calling it on a job that was never finalized with Do is a programming
// error and panics.
func (j *Job) ShouldRun() bool {
	if j.nextRun.IsZero() {
		panic("schedule: ShouldRun called before the job was scheduled with Do")
	}
	return !j.scheduler.Now().Before(j.nextRun)
}

// Run executes the job function and immediately reschedules the job.
//
// If the deadline set with Until has already passed, the function is not
// executed and Cancel is returned. If the newly computed next run exceeds
// the deadline, Cancel is returned after execution, taking priority over
// the function's own outcome.
//
// An error from the job function propagates out unmodified and leaves the
// job's schedule untouched: last-run and next-run keep their pre-run
// values for that cycle.
func (j *Job) Run() (Outcome, error) {
	now := j.scheduler.Now()
	if j.overdue(now) {
		j.scheduler.log.Debug("job past deadline, cancelling", logx.String("job", j.String()))
		return Cancel, nil
	}

	j.scheduler.log.Debug("running job", logx.String("job", j.String()))
	out, err := j.fn()
	if err != nil {
		return out, err
	}
	j.lastRun = j.scheduler.Now()
	if err := j.scheduleNextRun(); err != nil {
		return Continue, err
	}
	if j.overdue(j.nextRun) {
		j.scheduler.log.Debug("next run past deadline, cancelling", logx.String("job", j.String()))
		return Cancel, nil
	}
	return out, nil
}

func (j *Job) overdue(at time.Time) bool {
	return !j.cancelAfter.IsZero() && at.After(j.cancelAfter)
}

// LastRun returns the instant of the job's last execution, zero if the job
// never ran.
func (j *Job) LastRun() time.Time { return j.lastRun }

// NextRun returns the instant of the job's next scheduled execution.
func (j *Job) NextRun() time.Time { return j.nextRun }

func (j *Job) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "every %d", j.interval)
	if j.hasLatest {
		fmt.Fprintf(&b, " to %d", j.latest)
	}
	unit := j.unit.String()
	if j.interval == 1 && !j.hasLatest {
		unit = strings.TrimSuffix(unit, "s")
	}
	b.WriteString(" " + unit)
	if j.hasStartDay {
		fmt.Fprintf(&b, " on %s", strings.ToLower(j.startDay.String()))
	}
	if j.atTime != nil {
		fmt.Fprintf(&b, " at %02d:%02d:%02d", j.atTime.hour, j.atTime.minute, j.atTime.second)
	}
	return b.String()
}
