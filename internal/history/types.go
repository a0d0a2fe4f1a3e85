// Package history persists one record per job execution so operators can
// answer "when did this last run, and how did it go" across restarts.
//
// It currently supports:
//   - a dependency-free JSON Lines file backend
//   - a SQLite backend (behind the sqlite build tag)
package history

import (
	"context"
	"errors"
	"time"
)

var ErrDisabled = errors.New("history disabled")

// Config configures the store.
//
// If Driver is empty or "none", history is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Record describes one job execution. Keep it compact and schema-stable.
type Record struct {
	Job      string        `json:"job"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration"`
	ExitCode int           `json:"exit_code"`
	Error    string        `json:"error,omitempty"`
}

// Store is the persistence API used by the runner.
type Store interface {
	Append(ctx context.Context, r Record) error
	Recent(ctx context.Context, limit int) ([]Record, error)
	Close() error
}
