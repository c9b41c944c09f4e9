package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"

	"github.com/compozy/catalog/engine/core"
	"github.com/compozy/catalog/pkg/config"
	"github.com/compozy/catalog/pkg/logger"
)

const (
	DriverMemory = "memory"
	DriverRedis  = "redis"

	ErrCodeStoreUnavailable = "STORE_UNAVAILABLE"

	pingBackoffBase = 100 * time.Millisecond
	pingBackoffMax  = 5 * time.Second
)

// Open builds the store selected by cfg. Redis connections are verified with
// a ping, retried with exponential backoff, before the store is returned.
func Open(ctx context.Context, cfg *config.StoreConfig) (Store, error) {
	log := logger.FromContext(ctx)
	switch cfg.Driver {
	case "", DriverMemory:
		log.Info("Using in-memory entity store")
		return NewMemoryStore(), nil
	case DriverRedis:
		url := cfg.RedisURL.Value()
		opts, err := redis.ParseURL(url)
		if err != nil {
			return nil, core.NewError(err, ErrCodeStoreUnavailable, map[string]any{
				"driver": cfg.Driver,
				"url":    core.RedactString(url),
			})
		}
		client := redis.NewClient(opts)
		if err := ping(ctx, client, cfg.ConnectRetries); err != nil {
			_ = client.Close()
			return nil, core.NewError(err, ErrCodeStoreUnavailable, map[string]any{
				"driver": cfg.Driver,
				"url":    core.RedactString(url),
			})
		}
		log.Info("Using redis entity store", "addr", opts.Addr, "prefix", cfg.Prefix)
		return NewRedisStore(client, WithPrefix(cfg.Prefix)), nil
	default:
		return nil, core.NewError(
			fmt.Errorf("unsupported store driver %q", cfg.Driver),
			ErrCodeStoreUnavailable,
			map[string]any{"driver": cfg.Driver},
		)
	}
}

func ping(ctx context.Context, client redis.UniversalClient, retries int) error {
	if retries < 0 {
		retries = 0
	}
	backoff := retry.WithMaxRetries(
		uint64(retries), // #nosec G115 -- clamped above
		retry.WithMaxDuration(pingBackoffMax, retry.NewExponential(pingBackoffBase)),
	)
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := client.Ping(ctx).Err(); err != nil {
			logger.FromContext(ctx).Debug("Redis ping failed", "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
}
