package schedule

import "errors"

// Configuration and temporal-consistency errors. All of them are reported
// synchronously at the offending call (for chained configuration calls,
// from Do, which surfaces the first violation recorded on the chain).
var (
	// ErrInvalidUnit is reported when a job is finalized without a time
	// unit, or with a weekday anchor on a non-weekly unit.
	ErrInvalidUnit = errors.New("schedule: invalid time unit")

	// ErrInvalidInterval covers interval misuse: an interval below 1, a
	// singular unit form combined with an interval above 1, a weekday
	// anchor on a multi-week job, and a jitter upper bound below the
	// interval. The jitter bound is re-checked on every reschedule, not
	// just at configuration time.
	ErrInvalidInterval = errors.New("schedule: invalid interval")

	// ErrInvalidTimeFormat is reported for At or Until strings that do not
	// match the accepted formats for the job's unit, and for unknown time
	// zone names.
	ErrInvalidTimeFormat = errors.New("schedule: invalid time format")

	// ErrDeadlinePast is reported when Until is given a moment that is
	// already in the past.
	ErrDeadlinePast = errors.New("schedule: deadline is in the past")

	// ErrClockBackward is reported when Advance is asked to move a
	// simulated clock to an earlier instant.
	ErrClockBackward = errors.New("schedule: cannot move the clock backward")

	// ErrRealtimeClock is reported when Advance is called on a wall-clock
	// scheduler.
	ErrRealtimeClock = errors.New("schedule: realtime scheduler does not accept injected time")

	// ErrNoFunc is reported when Do is called without a job function.
	ErrNoFunc = errors.New("schedule: job function is required")
)
