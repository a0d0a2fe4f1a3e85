package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/time/rate"

	"recur/internal/history"
	"recur/internal/notify"
	"recur/pkg/logx"
	"recur/pkg/schedule"
)

// Config tunes the driver loop.
type Config struct {
	// Poll is the due-check interval. Defaults to 1s.
	Poll time.Duration
	// SpawnRatePerSec caps command spawns per second across all jobs.
	// Defaults to 4.
	SpawnRatePerSec int
	// SpawnBurst is the limiter's burst size. Defaults to 8.
	SpawnBurst int
}

func (c *Config) applyDefaults() {
	if c.Poll <= 0 {
		c.Poll = time.Second
	}
	if c.SpawnRatePerSec <= 0 {
		c.SpawnRatePerSec = 4
	}
	if c.SpawnBurst <= 0 {
		c.SpawnBurst = 8
	}
}

// JobSpec is one configured job, already validated by the config layer.
type JobSpec struct {
	Name     string
	Schedule string
	Command  []string
	Dir      string
	Env      []string
	Timeout  time.Duration
	Tags     []string
}

type cronEntry struct {
	name  string
	sched cron.Schedule
	next  time.Time
	cmd   commandJob
}

// Runner drives a scheduler from a poll loop and executes due jobs as
// subprocesses. Apply may be called concurrently with Run (config
// reloads); everything that touches the job set holds mu.
type Runner struct {
	cfg      Config
	log      logx.Logger
	store    history.Store
	notifier *notify.Service
	limiter  *rate.Limiter
	parser   cron.Parser

	mu      sync.Mutex
	sched   *schedule.Scheduler
	entries []*cronEntry
	named   []*schedule.Job // parallel to names
	names   []string

	runCtx context.Context
}

func New(cfg Config, log logx.Logger, store history.Store, notifier *notify.Service) *Runner {
	cfg.applyDefaults()
	sched := schedule.New()
	sched.SetLogger(log)
	return &Runner{
		cfg:      cfg,
		log:      log,
		store:    store,
		notifier: notifier,
		limiter:  rate.NewLimiter(rate.Limit(cfg.SpawnRatePerSec), cfg.SpawnBurst),
		parser: cron.NewParser(cron.Minute | cron.Hour | cron.Dom |
			cron.Month | cron.Dow | cron.Descriptor),
		sched:  sched,
		runCtx: context.Background(),
	}
}

// Apply replaces the job set. It rebuilds from scratch rather than
// diffing: registration is cheap and a full rebuild cannot leak stale
// jobs. On error, nothing from the new set is kept.
func (r *Runner) Apply(jobs []JobSpec) error {
	sched := schedule.New()
	sched.SetLogger(r.log)
	var entries []*cronEntry
	var named []*schedule.Job
	var names []string
	now := time.Now()

	for _, js := range jobs {
		spec, err := ParseSchedule(js.Schedule)
		if err != nil {
			return fmt.Errorf("job %q: %w", js.Name, err)
		}
		cj := commandJob{
			name:    js.Name,
			argv:    js.Command,
			dir:     js.Dir,
			env:     js.Env,
			timeout: js.Timeout,
		}
		switch spec.Kind {
		case SpecCron:
			cs, err := r.parser.Parse(spec.Cron)
			if err != nil {
				return fmt.Errorf("job %q: cron: %w", js.Name, err)
			}
			entries = append(entries, &cronEntry{
				name:  js.Name,
				sched: cs,
				next:  cs.Next(now),
				cmd:   cj,
			})
		case SpecEvery:
			j := spec.Configure(sched.Every(spec.Interval)).Tag(js.Tags...)
			if err := j.Do(r.jobFunc(cj)); err != nil {
				return fmt.Errorf("job %q: %w", js.Name, err)
			}
			named = append(named, j)
			names = append(names, js.Name)
		}
	}

	r.mu.Lock()
	r.sched = sched
	r.entries = entries
	r.named = named
	r.names = names
	r.mu.Unlock()
	r.log.Info("job set applied",
		logx.Int("interval_jobs", len(named)),
		logx.Int("cron_jobs", len(entries)))
	return nil
}

// jobFunc wraps a command in the scheduler's job signature. Command
// failures are handled inside execute (logged, recorded, notified), so
// the schedule keeps advancing.
func (r *Runner) jobFunc(cj commandJob) schedule.Func {
	return func() (schedule.Outcome, error) {
		r.execute(r.runCtx, cj)
		return schedule.Continue, nil
	}
}

// Run polls until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.mu.Lock()
	r.runCtx = ctx
	r.mu.Unlock()
	ticker := time.NewTicker(r.cfg.Poll)
	defer ticker.Stop()
	r.log.Info("runner started", logx.Duration("poll", r.cfg.Poll))
	for {
		select {
		case <-ctx.Done():
			r.log.Info("runner stopped")
			return nil
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *Runner) tick(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	for _, e := range r.entries {
		if !now.Before(e.next) {
			r.execute(ctx, e.cmd)
			e.next = e.sched.Next(now)
		}
	}
	if err := r.sched.RunPending(); err != nil {
		// jobFunc never returns an error; this guards future job kinds.
		r.log.Error("pending run failed", logx.Err(err))
	}
}

// JobInfo is a point-in-time view of one registered job.
type JobInfo struct {
	Name string
	Kind string // "interval" or "cron"
	Last time.Time
	Next time.Time
	Tags []string
}

// Snapshot reports all registered jobs, interval jobs first.
func (r *Runner) Snapshot() []JobInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]JobInfo, 0, len(r.named)+len(r.entries))
	for i, j := range r.named {
		out = append(out, JobInfo{
			Name: r.names[i],
			Kind: "interval",
			Last: j.LastRun(),
			Next: j.NextRun(),
			Tags: j.Tags(),
		})
	}
	for _, e := range r.entries {
		out = append(out, JobInfo{Name: e.name, Kind: "cron", Next: e.next})
	}
	return out
}
