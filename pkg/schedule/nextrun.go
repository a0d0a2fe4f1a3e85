package schedule

import (
	"fmt"
	"time"
)

// scheduleNextRun computes the instant when the job should run next. It is
// called once when the job is finalized with Do and again after every run,
// so everything here must hold up under repeated recomputation: the jitter
// range is redrawn and re-validated each time, and all anchor corrections
// derive from the current clock rather than accumulated state.
func (j *Job) scheduleNextRun() error {
	if j.unit < Seconds || j.unit > Weeks {
		return fmt.Errorf("valid units are seconds, minutes, hours, days and weeks: %w", ErrInvalidUnit)
	}

	interval := j.interval
	if j.hasLatest {
		if j.latest < j.interval {
			return fmt.Errorf("jitter bound %d is below interval %d: %w", j.latest, j.interval, ErrInvalidInterval)
		}
		interval = j.interval + j.scheduler.rng.Intn(j.latest-j.interval+1)
	}

	// With a zone anchor all computation happens in that zone; the
	// resulting wall-clock reading there is what the schedule means.
	now := j.scheduler.Now()
	if j.atZone != nil {
		now = now.In(j.atZone)
	}

	j.period = time.Duration(interval) * j.unit.duration()
	next := now.Add(j.period)

	if j.hasStartDay {
		if j.unit != Weeks {
			return fmt.Errorf("weekday anchors require a weekly unit: %w", ErrInvalidUnit)
		}
		// Re-base "N weeks from now" onto the next occurrence of the
		// anchor weekday, keeping the N-week cadence intact. If the
		// target day equals or precedes the provisional weekday, it
		// already happened this week; roll to the next one.
		daysAhead := int(j.startDay) - int(next.Weekday())
		if daysAhead <= 0 {
			daysAhead += 7
		}
		next = next.Add(time.Duration(daysAhead)*24*time.Hour - j.period)
	}

	if j.atTime != nil {
		if j.unit != Days && j.unit != Hours && j.unit != Minutes && !j.hasStartDay {
			return fmt.Errorf("clock anchors require a daily, hourly, minute or weekday-anchored job: %w", ErrInvalidUnit)
		}

		// Overwrite the time-of-day fields the anchor pins down. Seconds
		// are always pinned; minutes for daily/hourly/weekday jobs; the
		// hour only for daily and weekday jobs.
		hour, minute := next.Hour(), next.Minute()
		if j.unit == Days || j.hasStartDay {
			hour = j.atTime.hour
		}
		if j.unit == Days || j.unit == Hours || j.hasStartDay {
			minute = j.atTime.minute
		}
		next = time.Date(next.Year(), next.Month(), next.Day(), hour, minute, j.atTime.second, 0, next.Location())

		// If the anchor time has not yet passed within the current
		// period, pull the run back one period unit so it still fires in
		// this period instead of skipping to the next one. Skipped when
		// the last run already happened within the period (a slow job
		// that finished in the next period keeps its cadence).
		lastRun := j.lastRun
		if !lastRun.IsZero() && j.atZone != nil {
			lastRun = lastRun.In(j.atZone)
		}
		if lastRun.IsZero() || next.Sub(lastRun) > j.period {
			switch {
			case j.unit == Days && j.interval == 1 && clockOf(next) > clockOf(now):
				next = next.Add(-24 * time.Hour)
			case j.unit == Hours && (j.atTime.minute > now.Minute() ||
				(j.atTime.minute == now.Minute() && j.atTime.second > now.Second())):
				next = next.Add(-time.Hour)
			case j.unit == Minutes && j.atTime.second > now.Second():
				next = next.Add(-time.Minute)
			}
		}
	}

	if j.hasStartDay && j.atTime != nil {
		// The weekday roll-forward above can overshoot by a full period
		// once the clock anchor is applied; if the run landed a week or
		// more out, the anchor time this week is still ahead of us.
		if next.Sub(now) >= 7*24*time.Hour {
			next = next.Add(-j.period)
		}
	}

	// Re-resolve the wall-clock fields in the anchor zone. Arithmetic
	// above can cross a DST transition; the schedule keeps the intended
	// local clock reading in the target zone rather than the equivalent
	// shifted instant.
	if j.atZone != nil {
		next = time.Date(next.Year(), next.Month(), next.Day(),
			next.Hour(), next.Minute(), next.Second(), next.Nanosecond(), j.atZone)
	}

	j.nextRun = next
	return nil
}

// clockOf reduces an instant to its time-of-day for same-day comparisons.
func clockOf(t time.Time) time.Duration {
	h, m, s := t.Clock()
	return time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second +
		time.Duration(t.Nanosecond())
}
