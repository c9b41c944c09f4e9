package config

import "context"

type contextKey string

const ConfigCtxKey contextKey = "config"

// ContextWithConfig attaches cfg to ctx.
func ContextWithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, ConfigCtxKey, cfg)
}

// FromContext returns the configuration stored in ctx or the defaults.
func FromContext(ctx context.Context) *Config {
	if ctx != nil {
		if cfg, ok := ctx.Value(ConfigCtxKey).(*Config); ok && cfg != nil {
			return cfg
		}
	}
	return Default()
}
