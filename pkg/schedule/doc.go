// Package schedule is an in-process periodic-job scheduler with a
// human-friendly configuration surface.
//
// # Overview
//
// Callers register functions together with a recurrence description and
// then drive the scheduler by polling it from their own loop:
//
//	s := schedule.New()
//	_ = s.Every(10).Minutes().Do(pollFeeds)
//	_ = s.Every(1).Day().At("10:30").Do(sendDigest)
//	_ = s.Every(1).Monday().At("12:00").Do(weeklyReport)
//
//	for {
//		if err := s.RunPending(); err != nil {
//			log.Fatal(err)
//		}
//		time.Sleep(time.Second)
//	}
//
// All state lives in memory for the lifetime of the owning process. There
// is no internal timer, worker pool, or event loop: jobs run synchronously
// on whatever goroutine calls RunPending or RunAll, one after another.
// Missed occurrences are never backfilled; a job due every minute that is
// polled once per hour runs once that hour.
//
// # Recurrence model
//
// A job has an integer interval and a unit (seconds, minutes, hours, days
// or weeks). On top of that it may carry:
//
//   - a clock-of-day anchor (At) pinning the run to a wall-clock time
//     within its period, optionally in a named time zone;
//   - a weekday anchor (Monday..Sunday, Weekday) for weekly jobs;
//   - a jitter range (To) that redraws a fresh random interval from
//     [interval, latest] on every reschedule;
//   - a deadline (Until) after which the job cancels itself.
//
// # Time source
//
// New returns a wall-clock scheduler whose current instant is the real
// system time in UTC. NewSimulated returns a scheduler whose current
// instant is an explicitly injected timestamp advanced with Advance; the
// injected time can never move backward. Exactly one mode is active for
// the lifetime of a scheduler.
//
// # Concurrency
//
// The scheduler performs no internal locking. The job collection must be
// mutated and polled from a single goroutine; concurrent external access
// requires caller-supplied synchronization.
package schedule
