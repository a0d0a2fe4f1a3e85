package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	yaml "go.yaml.in/yaml/v3"
)

// Parse reads and strictly decodes a config file. YAML and JSON are both
// accepted, chosen by extension; unknown keys are rejected in either
// format.
func Parse(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(b))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		// reject trailing documents
		if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse %s: trailing yaml document", path)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(b))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse %s: trailing data", path)
		}
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	seen := map[string]struct{}{}
	for i, jc := range cfg.Jobs {
		if strings.TrimSpace(jc.Name) == "" {
			return fmt.Errorf("jobs[%d]: name is required", i)
		}
		if _, dup := seen[jc.Name]; dup {
			return fmt.Errorf("jobs[%d]: duplicate name %q", i, jc.Name)
		}
		seen[jc.Name] = struct{}{}
		if strings.TrimSpace(jc.Schedule) == "" {
			return fmt.Errorf("job %q: schedule is required", jc.Name)
		}
		if len(jc.Command) == 0 {
			return fmt.Errorf("job %q: command is required", jc.Name)
		}
		if _, err := ParseDurationField("jobs."+jc.Name+".timeout", jc.Timeout); err != nil {
			return err
		}
	}
	if _, err := ParseDurationField("runner.poll", cfg.Runner.Poll); err != nil {
		return err
	}
	if cfg.History != nil {
		if _, err := ParseDurationField("history.busy_timeout", cfg.History.BusyTimeout); err != nil {
			return err
		}
	}
	if cfg.Notify != nil && cfg.Notify.Enabled {
		if strings.TrimSpace(cfg.Notify.Token) == "" {
			return fmt.Errorf("notify: token is required when enabled")
		}
		if cfg.Notify.ChatID == 0 {
			return fmt.Errorf("notify: chat_id is required when enabled")
		}
	}
	return nil
}
