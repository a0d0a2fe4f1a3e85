package schedule

import (
	"math/rand"
	"sort"
	"time"

	logx "recur/pkg/logx"
)

// Scheduler keeps a record of registered jobs and handles their execution.
//
// A scheduler is either wall-clock (New) or simulated (NewSimulated).
// In wall-clock mode the current instant is always the real system time
// in UTC; in simulated mode it is the last instant injected via Advance.
type Scheduler struct {
	jobs []*Job

	realtime bool
	now      time.Time

	// local RNG for jitter intervals, to avoid global contention.
	rng *rand.Rand

	log logx.Logger
}

// New creates a wall-clock scheduler.
func New() *Scheduler {
	return &Scheduler{
		realtime: true,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		log:      logx.Nop(),
	}
}

// NewSimulated creates a scheduler whose clock starts at the given instant
// and only moves when Advance is called.
func NewSimulated(start time.Time) *Scheduler {
	return &Scheduler{
		realtime: false,
		now:      start,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		log:      logx.Nop(),
	}
}

// SetLogger installs a logger for debug traces (job runs, cancellations).
// The zero logger discards everything.
func (s *Scheduler) SetLogger(log logx.Logger) {
	if log.IsZero() {
		log = logx.Nop()
	}
	s.log = log
}

// Now returns the scheduler's current instant.
func (s *Scheduler) Now() time.Time {
	if s.realtime {
		return time.Now().UTC()
	}
	return s.now
}

// Advance moves a simulated scheduler's clock to the given instant.
// The clock can never move backward, and a wall-clock scheduler rejects
// injected time entirely.
func (s *Scheduler) Advance(t time.Time) error {
	if s.realtime {
		return ErrRealtimeClock
	}
	if t.Before(s.now) {
		return ErrClockBackward
	}
	s.now = t
	return nil
}

// Every starts configuring a new periodic job that runs every interval
// units. The job is not scheduled until the chain is finalized with Do.
func (s *Scheduler) Every(interval int) *Job {
	j := &Job{
		scheduler: s,
		interval:  interval,
		tags:      map[string]struct{}{},
	}
	if interval < 1 {
		j.fail("interval must be at least 1", ErrInvalidInterval)
	}
	return j
}

// RunPending runs every job whose next-run instant has been reached, in
// ascending next-run order. Jobs that are not due are left untouched;
// missed occurrences are never backfilled.
//
// An error returned by a job function propagates out immediately, leaving
// that job's schedule frozen at its pre-run state and the remaining due
// jobs unexecuted.
func (s *Scheduler) RunPending() error {
	due := make([]*Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		if j.ShouldRun() {
			due = append(due, j)
		}
	}
	sort.Slice(due, func(i, k int) bool {
		return due[i].nextRun.Before(due[k].nextRun)
	})
	for _, j := range due {
		if err := s.runJob(j); err != nil {
			return err
		}
	}
	return nil
}

// RunAll runs every registered job once, regardless of due status, pausing
// for delay between consecutive executions to smooth the load. The job
// collection is snapshotted before the first execution, so jobs added or
// removed while running do not affect this pass.
func (s *Scheduler) RunAll(delay time.Duration) error {
	s.log.Debug("running all jobs",
		logx.Int("jobs", len(s.jobs)),
		logx.Duration("delay", delay))

	snapshot := append([]*Job(nil), s.jobs...)
	for i, j := range snapshot {
		if i > 0 && delay > 0 {
			time.Sleep(delay)
		}
		if err := s.runJob(j); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scheduler) runJob(j *Job) error {
	out, err := j.Run()
	if err != nil {
		return err
	}
	if out == Cancel {
		s.CancelJob(j)
	}
	return nil
}

// Jobs returns all registered jobs.
func (s *Scheduler) Jobs() []*Job {
	return append([]*Job(nil), s.jobs...)
}

// JobsWithTag returns the registered jobs carrying the given tag.
func (s *Scheduler) JobsWithTag(tag string) []*Job {
	var out []*Job
	for _, j := range s.jobs {
		if j.HasTag(tag) {
			out = append(out, j)
		}
	}
	return out
}

// Clear removes every job from the scheduler.
func (s *Scheduler) Clear() {
	s.log.Debug("clearing all jobs", logx.Int("jobs", len(s.jobs)))
	s.jobs = nil
}

// ClearTag removes every job carrying the given tag.
func (s *Scheduler) ClearTag(tag string) {
	kept := s.jobs[:0]
	for _, j := range s.jobs {
		if !j.HasTag(tag) {
			kept = append(kept, j)
		}
	}
	// Zero the tail so cancelled jobs don't linger in the backing array.
	for i := len(kept); i < len(s.jobs); i++ {
		s.jobs[i] = nil
	}
	s.jobs = kept
}

// CancelJob removes a job from the scheduler. Cancelling a job that is not
// registered is a no-op.
func (s *Scheduler) CancelJob(job *Job) {
	for i, j := range s.jobs {
		if j == job {
			s.log.Debug("cancelling job", logx.String("job", j.String()))
			s.jobs = append(s.jobs[:i], s.jobs[i+1:]...)
			return
		}
	}
	s.log.Debug("cancelling job not in schedule", logx.String("job", job.String()))
}

// NextRun reports the earliest next-run instant among all jobs.
// The second return is false when no jobs are registered.
func (s *Scheduler) NextRun() (time.Time, bool) {
	return minNextRun(s.jobs)
}

// NextRunWithTag reports the earliest next-run instant among jobs carrying
// the given tag.
func (s *Scheduler) NextRunWithTag(tag string) (time.Time, bool) {
	return minNextRun(s.JobsWithTag(tag))
}

func minNextRun(jobs []*Job) (time.Time, bool) {
	var best time.Time
	found := false
	for _, j := range jobs {
		if !found || j.nextRun.Before(best) {
			best = j.nextRun
			found = true
		}
	}
	return best, found
}

// IdleFor reports how long the scheduler can sleep until the next job is
// due. The second return is false when no jobs are registered. A negative
// duration means at least one job is already overdue.
func (s *Scheduler) IdleFor() (time.Duration, bool) {
	next, ok := s.NextRun()
	if !ok {
		return 0, false
	}
	return next.Sub(s.Now()), true
}
