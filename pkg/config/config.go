package config

import "time"

// Config represents the complete configuration for the catalog service.
type Config struct {
	Server ServerConfig `koanf:"server" validate:"required"`
	Store  StoreConfig  `koanf:"store"  validate:"required"`
	Ingest IngestConfig `koanf:"ingest" validate:"required"`
	Log    LogConfig    `koanf:"log"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Host            string        `koanf:"host"             validate:"required"`
	Port            int           `koanf:"port"             validate:"min=1,max=65535"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"min=0"`
	MetricsEnabled  bool          `koanf:"metrics_enabled"`
}

// StoreConfig selects and configures the entity store backend.
type StoreConfig struct {
	Driver   string          `koanf:"driver"    validate:"oneof=memory redis"`
	RedisURL SensitiveString `koanf:"redis_url" validate:"required_if=Driver redis"`
	Prefix   string          `koanf:"prefix"    validate:"required"`

	// ConnectRetries bounds the extra pings made before Open gives up.
	ConnectRetries int `koanf:"connect_retries" validate:"min=0,max=20"`
}

// IngestConfig controls file discovery and entity processing.
type IngestConfig struct {
	Root          string        `koanf:"root"           validate:"required"`
	Include       []string      `koanf:"include"        validate:"dive,required"`
	Exclude       []string      `koanf:"exclude"        validate:"dive,required"`
	Strict        bool          `koanf:"strict"`
	Workers       int           `koanf:"workers"        validate:"min=1,max=256"`
	Watch         bool          `koanf:"watch"`
	WatchDebounce time.Duration `koanf:"watch_debounce" validate:"min=0"`
}

// LogConfig mirrors the logger flags so they can also come from files or env.
type LogConfig struct {
	Level  string `koanf:"level"  validate:"oneof=debug info warn error disabled"`
	JSON   bool   `koanf:"json"`
	Source bool   `koanf:"source"`
}

// SensitiveString hides its value when printed or logged.
type SensitiveString string

func (s SensitiveString) String() string {
	if s == "" {
		return ""
	}
	return "[REDACTED]"
}

// Value returns the raw secret.
func (s SensitiveString) Value() string {
	return string(s)
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            7007,
			ShutdownTimeout: 10 * time.Second,
			MetricsEnabled:  true,
		},
		Store: StoreConfig{
			Driver:         "memory",
			Prefix:         "catalog",
			ConnectRetries: 3,
		},
		Ingest: IngestConfig{
			Root:          ".",
			Include:       []string{"**/catalog-info.yaml"},
			Exclude:       []string{},
			Strict:        false,
			Workers:       4,
			WatchDebounce: 500 * time.Millisecond,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
