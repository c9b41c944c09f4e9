package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/compozy/catalog/pkg/config"
)

func TestConfig_Validate(t *testing.T) {
	t.Run("Should skip validation when disabled", func(t *testing.T) {
		cfg := &Config{Enabled: false}
		assert.NoError(t, cfg.Validate())
	})

	t.Run("Should require include patterns when enabled", func(t *testing.T) {
		cfg := NewConfig()
		assert.ErrorContains(t, cfg.Validate(), "include patterns are required")
	})

	t.Run("Should reject empty patterns", func(t *testing.T) {
		cfg := NewConfig()
		cfg.Include = []string{""}
		assert.ErrorContains(t, cfg.Validate(), "empty include pattern")
		cfg.Include = []string{"**/*.yaml"}
		cfg.Exclude = []string{""}
		assert.ErrorContains(t, cfg.Validate(), "empty exclude pattern")
	})

	t.Run("Should require at least one worker", func(t *testing.T) {
		cfg := NewConfig()
		cfg.Include = []string{"**/*.yaml"}
		cfg.Workers = 0
		assert.ErrorContains(t, cfg.Validate(), "workers")
	})
}

func TestFromAppConfig(t *testing.T) {
	t.Run("Should map application settings", func(t *testing.T) {
		cfg := FromAppConfig(&config.IngestConfig{
			Include:       []string{"**/catalog-info.yaml"},
			Exclude:       []string{"vendor/**"},
			Strict:        false,
			Workers:       8,
			Watch:         true,
			WatchDebounce: time.Second,
		})
		assert.True(t, cfg.Enabled)
		assert.False(t, cfg.Strict)
		assert.Equal(t, []string{"**/catalog-info.yaml"}, cfg.Include)
		assert.Equal(t, []string{"vendor/**"}, cfg.Exclude)
		assert.Equal(t, 8, cfg.Workers)
		assert.Equal(t, time.Second, cfg.WatchDebounce)
		assert.True(t, cfg.WatchEnabled)
	})

	t.Run("Should fall back to defaults", func(t *testing.T) {
		cfg := FromAppConfig(nil)
		assert.Equal(t, defaultWorkers, cfg.Workers)
		assert.Equal(t, defaultDebounce, cfg.WatchDebounce)
		assert.True(t, cfg.Strict)
		assert.False(t, cfg.WatchEnabled)
	})
}
