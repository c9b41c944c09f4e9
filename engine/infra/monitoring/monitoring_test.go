package monitoring

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric"
)

func TestService(t *testing.T) {
	ctx := context.Background()

	t.Run("Should export recorded instruments", func(t *testing.T) {
		svc, err := NewService(ctx, true)
		require.NoError(t, err)
		defer svc.Shutdown(ctx)
		assert.True(t, svc.IsInitialized())
		counter, err := svc.Meter().Int64Counter("catalog_test_events_total", metric.WithDescription("test"))
		require.NoError(t, err)
		counter.Add(ctx, 3)

		w := httptest.NewRecorder()
		svc.ExporterHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, DefaultPath, nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "catalog_test_events_total")
	})

	t.Run("Should use a no-op meter when disabled", func(t *testing.T) {
		svc, err := NewService(ctx, false)
		require.NoError(t, err)
		assert.False(t, svc.IsInitialized())
		assert.NotNil(t, svc.Meter())
		assert.NoError(t, svc.Shutdown(ctx))

		w := httptest.NewRecorder()
		svc.ExporterHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, DefaultPath, nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("Should fall back to a disabled service", func(t *testing.T) {
		svc := NewServiceWithFallback(ctx, false)
		assert.False(t, svc.IsInitialized())
	})
}
