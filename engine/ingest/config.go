package ingest

import (
	"fmt"
	"time"

	"github.com/compozy/catalog/pkg/config"
)

// DefaultExcludes lists editor and backup files that are never ingested.
var DefaultExcludes = []string{
	"**/.#*",
	"**/*~",
	"**/*.bak",
	"**/*.swp",
	"**/*.tmp",
	"**/._*",
}

const (
	defaultWorkers  = 4
	defaultDebounce = 500 * time.Millisecond
)

// Config controls which files are ingested and how failures are handled.
type Config struct {
	Enabled       bool
	Strict        bool
	Include       []string
	Exclude       []string
	Workers       int
	WatchEnabled  bool
	WatchDebounce time.Duration
}

func NewConfig() *Config {
	return &Config{
		Enabled:       true,
		Strict:        true,
		Include:       []string{},
		Exclude:       []string{},
		Workers:       defaultWorkers,
		WatchDebounce: defaultDebounce,
	}
}

// FromAppConfig maps the application ingest settings onto a Config.
func FromAppConfig(cfg *config.IngestConfig) *Config {
	out := NewConfig()
	if cfg == nil {
		return out
	}
	out.Strict = cfg.Strict
	out.Include = append(out.Include, cfg.Include...)
	out.Exclude = append(out.Exclude, cfg.Exclude...)
	out.WatchEnabled = cfg.Watch
	if cfg.Workers > 0 {
		out.Workers = cfg.Workers
	}
	if cfg.WatchDebounce > 0 {
		out.WatchDebounce = cfg.WatchDebounce
	}
	return out
}

func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if len(c.Include) == 0 {
		return fmt.Errorf("ingest.include patterns are required when ingestion is enabled")
	}
	for _, pattern := range c.Include {
		if pattern == "" {
			return fmt.Errorf("empty include pattern is not allowed")
		}
	}
	for _, pattern := range c.Exclude {
		if pattern == "" {
			return fmt.Errorf("empty exclude pattern is not allowed")
		}
	}
	if c.Workers < 1 {
		return fmt.Errorf("ingest.workers must be at least 1, got %d", c.Workers)
	}
	return nil
}
