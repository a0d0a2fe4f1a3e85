package config

// Config is the daemon configuration. Files may be YAML or JSON; both are
// decoded strictly so typos in keys are caught at load time instead of
// silently ignored.
type Config struct {
	Logging LoggingConfig  `json:"logging" yaml:"logging"`
	Runner  RunnerConfig   `json:"runner" yaml:"runner"`
	History *HistoryConfig `json:"history,omitempty" yaml:"history,omitempty"`
	Notify  *NotifyConfig  `json:"notify,omitempty" yaml:"notify,omitempty"`
	Jobs    []JobConfig    `json:"jobs" yaml:"jobs"`
}

type LoggingConfig struct {
	Level   string      `json:"level" yaml:"level"`
	Console bool        `json:"console" yaml:"console"`
	File    LoggingFile `json:"file" yaml:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Path    string `json:"path" yaml:"path"`
}

// RunnerConfig controls the polling driver loop.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
//
// Defaults (when fields are omitted/zero):
//   - poll: "1s"
//   - spawn_rate_per_sec: 4
//   - spawn_burst: 8
type RunnerConfig struct {
	Poll            string `json:"poll,omitempty" yaml:"poll,omitempty"`
	SpawnRatePerSec int    `json:"spawn_rate_per_sec,omitempty" yaml:"spawn_rate_per_sec,omitempty"`
	SpawnBurst      int    `json:"spawn_burst,omitempty" yaml:"spawn_burst,omitempty"`
}

// HistoryConfig controls the optional run-history store.
//
// Driver values:
//   - "file": dependency-free JSON Lines backend
//   - "sqlite": SQLite database file (requires the sqlite build tag)
//
// If the section or the driver is omitted, history is disabled.
type HistoryConfig struct {
	Driver      string `json:"driver" yaml:"driver"`
	Path        string `json:"path" yaml:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty" yaml:"busy_timeout,omitempty"` // sqlite only
}

// NotifyConfig controls the optional Telegram failure notifier.
type NotifyConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Token   string `json:"token" yaml:"token"`
	ChatID  int64  `json:"chat_id" yaml:"chat_id"`
}

// JobConfig describes one scheduled command.
//
// Schedule accepts either the human grammar
//
//	every [N [to M]] UNIT [at TIME] [in TZ] [until WHEN]
//
// (e.g. "every 10 minutes", "every day at 10:30 in Europe/Berlin",
// "every monday at 12:00") or a cron expression, marked with a "cron:"
// prefix or a "@" descriptor ("cron:*/5 * * * *", "@hourly").
type JobConfig struct {
	Name     string   `json:"name" yaml:"name"`
	Schedule string   `json:"schedule" yaml:"schedule"`
	Command  []string `json:"command" yaml:"command"`
	Dir      string   `json:"dir,omitempty" yaml:"dir,omitempty"`
	Env      []string `json:"env,omitempty" yaml:"env,omitempty"`
	Timeout  string   `json:"timeout,omitempty" yaml:"timeout,omitempty"` // Go duration string
	Tags     []string `json:"tags,omitempty" yaml:"tags,omitempty"`
}
