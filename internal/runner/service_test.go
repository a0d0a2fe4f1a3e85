package runner

import (
	"testing"
	"time"

	"recur/pkg/logx"
)

func TestApplyAndSnapshot(t *testing.T) {
	t.Parallel()

	r := New(Config{}, logx.Nop(), nil, nil)
	jobs := []JobSpec{
		{Name: "tick", Schedule: "every 10 minutes", Command: []string{"true"}, Tags: []string{"fast"}},
		{Name: "probe", Schedule: "cron:*/5 * * * *", Command: []string{"true"}},
	}
	if err := r.Apply(jobs); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	snap := r.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("snapshot = %d entries, want 2", len(snap))
	}
	if snap[0].Name != "tick" || snap[0].Kind != "interval" {
		t.Fatalf("snap[0] = %+v", snap[0])
	}
	if got := snap[0].Tags; len(got) != 1 || got[0] != "fast" {
		t.Fatalf("snap[0].Tags = %v", got)
	}
	if next := snap[0].Next; time.Until(next) <= 0 || time.Until(next) > 10*time.Minute {
		t.Fatalf("snap[0].Next = %v", next)
	}
	if snap[1].Name != "probe" || snap[1].Kind != "cron" {
		t.Fatalf("snap[1] = %+v", snap[1])
	}
	if snap[1].Next.IsZero() || time.Until(snap[1].Next) > 5*time.Minute {
		t.Fatalf("snap[1].Next = %v", snap[1].Next)
	}
}

func TestApplyRejectsBadSetKeepingPrevious(t *testing.T) {
	t.Parallel()

	r := New(Config{}, logx.Nop(), nil, nil)
	if err := r.Apply([]JobSpec{
		{Name: "ok", Schedule: "every minute", Command: []string{"true"}},
	}); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	bad := []JobSpec{
		{Name: "ok", Schedule: "every minute", Command: []string{"true"}},
		{Name: "broken", Schedule: "every 3 fortnights", Command: []string{"true"}},
	}
	if err := r.Apply(bad); err == nil {
		t.Fatal("expected Apply to reject the bad job set")
	}
	snap := r.Snapshot()
	if len(snap) != 1 || snap[0].Name != "ok" {
		t.Fatalf("previous set not kept: %+v", snap)
	}
}

func TestApplyRejectsBadCronExpression(t *testing.T) {
	t.Parallel()

	r := New(Config{}, logx.Nop(), nil, nil)
	err := r.Apply([]JobSpec{
		{Name: "x", Schedule: "cron:not a cron line", Command: []string{"true"}},
	})
	if err == nil {
		t.Fatal("expected cron parse error")
	}
}
