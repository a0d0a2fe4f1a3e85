// Package app wires the daemon: config, logging, history, notifier and
// the runner, plus config hot-reload fan-out and systemd integration.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"recur/internal/config"
	"recur/internal/history"
	"recur/internal/notify"
	"recur/internal/runner"
	"recur/pkg/logx"
)

type App struct {
	cfgm *config.Manager

	log      logx.Logger
	closeLog func() error

	store    history.Store
	notifier *notify.Service
	runner   *runner.Runner

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(cfgPath string) (*App, error) {
	bootLog := logx.NewConsole("INFO").With(logx.String("comp", "config"))
	cfgm := config.NewManager(cfgPath, bootLog)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	log, closeLog, err := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	if err != nil {
		return nil, err
	}
	log = log.With(logx.String("comp", "app"))

	a := &App{cfgm: cfgm, log: log, closeLog: closeLog}
	fail := func(err error) (*App, error) {
		_ = a.Close()
		return nil, err
	}

	if cfg.History != nil {
		busy, err := config.ParseDurationOrDefault("history.busy_timeout", cfg.History.BusyTimeout, 0)
		if err != nil {
			return fail(err)
		}
		st, err := history.Open(history.Config{
			Driver:      cfg.History.Driver,
			Path:        cfg.History.Path,
			BusyTimeout: busy,
		}, log.With(logx.String("comp", "history")))
		if err != nil {
			return fail(err)
		}
		a.store = st
		if st != nil {
			log.Info("history enabled", logx.String("driver", cfg.History.Driver))
		}
	}

	if cfg.Notify != nil {
		svc, err := notify.New(notify.Config{
			Enabled: cfg.Notify.Enabled,
			Token:   cfg.Notify.Token,
			ChatID:  cfg.Notify.ChatID,
		}, log.With(logx.String("comp", "notify")))
		if err != nil {
			return fail(err)
		}
		a.notifier = svc
	}

	rcfg, err := mapRunnerConfig(cfg)
	if err != nil {
		return fail(err)
	}
	a.runner = runner.New(rcfg, log.With(logx.String("comp", "runner")), a.store, a.notifier)
	if err := a.runner.Apply(mapJobs(cfg)); err != nil {
		return fail(err)
	}
	return a, nil
}

// Start launches the runner, the config watcher and the reload loop.
// It returns once everything is running; cancellation of ctx begins
// shutdown and Stop waits for it to finish.
func (a *App) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		_ = a.runner.Run(runCtx)
	}()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.cfgm.Watch(runCtx); err != nil && runCtx.Err() == nil {
			a.log.Warn("config watch stopped", logx.Err(err))
		}
	}()

	sub := a.cfgm.Subscribe(8)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.reloadLoop(runCtx, sub)
	}()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.dumpLoop(runCtx)
	}()

	a.startWatchdog(runCtx)
	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
	a.log.Info("started")
	return nil
}

// dumpLoop logs the job table on SIGUSR1 so operators can inspect a
// running daemon without bouncing it.
func (a *App) dumpLoop(ctx context.Context) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGUSR1)
	defer signal.Stop(ch)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ch:
			for _, ji := range a.runner.Snapshot() {
				a.log.Info("job",
					logx.String("name", ji.Name),
					logx.String("kind", ji.Kind),
					logx.Time("last", ji.Last),
					logx.Time("next", ji.Next),
					logx.Any("tags", ji.Tags))
			}
		}
	}
}

// reloadLoop applies hot-reloaded configs to the runner. Logging and
// history changes need a restart; only the job set and runner tuning
// are applied live.
func (a *App) reloadLoop(ctx context.Context, sub <-chan *config.Config) {
	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-sub:
			if !ok {
				return
			}
			// Coalesce bursts: keep only the newest config.
			for {
				select {
				case newer := <-sub:
					if newer != nil {
						cfg = newer
					}
				default:
					goto APPLY
				}
			}
		APPLY:
			if err := a.runner.Apply(mapJobs(cfg)); err != nil {
				a.log.Warn("config reload rejected, keeping previous job set", logx.Err(err))
				continue
			}
			a.log.Info("job set reapplied", logx.Int("jobs", len(cfg.Jobs)))
		}
	}
}

// startWatchdog feeds the systemd watchdog at half its interval when one
// is configured. A no-op outside systemd.
func (a *App) startWatchdog(ctx context.Context) {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval == 0 {
		return
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		t := time.NewTicker(interval / 2)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				_, _ = daemon.SdNotify(false, daemon.SdNotifyWatchdog)
			}
		}
	}()
}

// Stop shuts the daemon down and waits for background loops, bounded by
// ctx.
func (a *App) Stop(ctx context.Context) error {
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	if a.cancel != nil {
		a.cancel()
	}

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		a.log.Warn("shutdown deadline reached", logx.Err(ctx.Err()))
	}

	err := a.Close()
	a.log.Info("stopped")
	return err
}

// Close releases resources without waiting for loops. Stop calls it;
// New calls it on a failed bootstrap.
func (a *App) Close() error {
	var first error
	if a.store != nil {
		if err := a.store.Close(); err != nil && first == nil {
			first = err
		}
		a.store = nil
	}
	if a.closeLog != nil {
		if err := a.closeLog(); err != nil && first == nil {
			first = err
		}
		a.closeLog = nil
	}
	return first
}

func mapRunnerConfig(cfg *config.Config) (runner.Config, error) {
	poll, err := config.ParseDurationOrDefault("runner.poll", cfg.Runner.Poll, time.Second)
	if err != nil {
		return runner.Config{}, err
	}
	return runner.Config{
		Poll:            poll,
		SpawnRatePerSec: cfg.Runner.SpawnRatePerSec,
		SpawnBurst:      cfg.Runner.SpawnBurst,
	}, nil
}

func mapJobs(cfg *config.Config) []runner.JobSpec {
	jobs := make([]runner.JobSpec, 0, len(cfg.Jobs))
	for _, jc := range cfg.Jobs {
		// Validated at load time; the zero value is fine on a parse miss.
		timeout, _ := config.ParseDurationOrDefault(
			fmt.Sprintf("jobs[%s].timeout", jc.Name), jc.Timeout, 0)
		jobs = append(jobs, runner.JobSpec{
			Name:     jc.Name,
			Schedule: jc.Schedule,
			Command:  jc.Command,
			Dir:      jc.Dir,
			Env:      jc.Env,
			Timeout:  timeout,
			Tags:     jc.Tags,
		})
	}
	return jobs
}
