package runner

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"recur/internal/history"
	"recur/pkg/logx"
)

// commandJob is the execution side of a configured job: what to spawn
// once its schedule comes due.
type commandJob struct {
	name    string
	argv    []string
	dir     string
	env     []string
	timeout time.Duration
}

// execute spawns the job's command and records the outcome. A spawn that
// the rate limiter rejects is skipped, not queued; the next due time
// comes around soon enough.
func (r *Runner) execute(ctx context.Context, cj commandJob) {
	if !r.limiter.Allow() {
		r.log.Warn("spawn rate exceeded, skipping run", logx.String("job", cj.name))
		return
	}

	runCtx := ctx
	cancel := func() {}
	if cj.timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, cj.timeout)
	}
	defer cancel()

	start := time.Now()
	cmd := exec.CommandContext(runCtx, cj.argv[0], cj.argv[1:]...)
	cmd.Dir = cj.dir
	if len(cj.env) > 0 {
		cmd.Env = append(os.Environ(), cj.env...)
	}
	out, err := cmd.CombinedOutput()
	elapsed := time.Since(start)

	rec := history.Record{
		Job:      cj.name,
		Started:  start.UTC(),
		Duration: elapsed,
	}
	switch {
	case err == nil:
		rec.ExitCode = 0
	case runCtx.Err() == context.DeadlineExceeded:
		rec.ExitCode = -1
		rec.Error = fmt.Sprintf("timed out after %s", cj.timeout)
	default:
		rec.ExitCode = -1
		if cmd.ProcessState != nil {
			rec.ExitCode = cmd.ProcessState.ExitCode()
		}
		rec.Error = err.Error()
	}

	if r.store != nil {
		if herr := r.store.Append(ctx, rec); herr != nil {
			r.log.Warn("history append failed", logx.String("job", cj.name), logx.Err(herr))
		}
	}

	if err == nil {
		r.log.Info("job finished",
			logx.String("job", cj.name),
			logx.Duration("elapsed", elapsed))
		return
	}

	r.log.Error("job failed",
		logx.String("job", cj.name),
		logx.Duration("elapsed", elapsed),
		logx.Int("exit_code", rec.ExitCode),
		logx.String("output", truncate(string(out), 512)),
		logx.Err(err))
	r.notifier.Notify(ctx, fmt.Sprintf("job %q failed after %s: %s", cj.name, elapsed.Round(time.Millisecond), rec.Error))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
