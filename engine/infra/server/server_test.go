package server

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compozy/catalog/engine/catalog"
	"github.com/compozy/catalog/engine/infra/monitoring"
	"github.com/compozy/catalog/engine/infra/server/router"
	"github.com/compozy/catalog/pkg/config"
	"github.com/compozy/catalog/pkg/logger"
)

const legacyGroupJSON = `{
	"apiVersion": "backstage.io/v1alpha1",
	"kind": "Group",
	"metadata": {"name": "team-a"},
	"spec": {"type": "team", "children": []}
}`

const widgetJSON = `{
	"apiVersion": "backstage.io/v1alpha1",
	"kind": "Widget",
	"metadata": {"name": "w"},
	"spec": {}
}`

func newTestServer(t *testing.T) (*Server, catalog.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger.InitForTests()
	store := catalog.NewMemoryStore()
	cfg := config.Default()
	s := NewServer(context.Background(), &cfg.Server, store, nil, nil)
	return s, store
}

func do(t *testing.T, h http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestValidateEndpoint(t *testing.T) {
	t.Run("Should return the normalized entity when valid", func(t *testing.T) {
		s, store := newTestServer(t)
		w := do(t, s.Handler(), http.MethodPost, "/api/v0/entities/validate", legacyGroupJSON)
		require.Equal(t, http.StatusOK, w.Code)
		data := decodeBody(t, w)["data"].(map[string]any)
		assert.Equal(t, true, data["valid"])
		spec := data["entity"].(map[string]any)["spec"].(map[string]any)
		assert.Equal(t, []any{}, spec["ancestors"])
		assert.Equal(t, []any{}, spec["descendants"])
		refs, err := store.List(context.Background(), "")
		require.NoError(t, err)
		assert.Empty(t, refs)
	})

	t.Run("Should report unknown kinds without failing the request", func(t *testing.T) {
		s, _ := newTestServer(t)
		w := do(t, s.Handler(), http.MethodPost, "/api/v0/entities/validate", widgetJSON)
		require.Equal(t, http.StatusOK, w.Code)
		data := decodeBody(t, w)["data"].(map[string]any)
		assert.Equal(t, false, data["valid"])
		assert.Equal(t, "UNKNOWN_KIND", data["error"].(map[string]any)["code"])
	})

	t.Run("Should reject malformed JSON with a problem document", func(t *testing.T) {
		s, _ := newTestServer(t)
		w := do(t, s.Handler(), http.MethodPost, "/api/v0/entities/validate", "{not json")
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, router.ProblemContentType, w.Header().Get("Content-Type"))
		assert.Equal(t, "ENTITY_DECODE_FAILED", decodeBody(t, w)["code"])
	})

	t.Run("Should reject oversized bodies", func(t *testing.T) {
		s, _ := newTestServer(t)
		body := `{"kind":"` + strings.Repeat("x", maxEntityBodyBytes) + `"}`
		w := do(t, s.Handler(), http.MethodPost, "/api/v0/entities/validate", body)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Equal(t, router.ErrPayloadTooLargeCode, decodeBody(t, w)["code"])
	})
}

func TestEntityLifecycle(t *testing.T) {
	t.Run("Should create, fetch, list and delete an entity", func(t *testing.T) {
		s, _ := newTestServer(t)
		h := s.Handler()

		w := do(t, h, http.MethodPost, "/api/v0/entities", legacyGroupJSON)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		etag := w.Header().Get("ETag")
		require.NotEmpty(t, etag)
		assert.Equal(t, "/api/v0/entities/by-name/Group/default/team-a", w.Header().Get("Location"))
		created := decodeBody(t, w)["data"].(map[string]any)
		metadata := created["metadata"].(map[string]any)
		assert.NotEmpty(t, metadata["uid"])
		assert.Equal(t, strings.Trim(etag, `"`), metadata["etag"])

		w = do(t, h, http.MethodGet, "/api/v0/entities/by-name/group/default/team-a", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, etag, w.Header().Get("ETag"))

		w = do(t, h, http.MethodGet, "/api/v0/entities/by-name/group/default/team-a", "", "If-None-Match", etag)
		assert.Equal(t, http.StatusNotModified, w.Code)

		w = do(t, h, http.MethodGet, "/api/v0/entities?kind=Group", "")
		require.Equal(t, http.StatusOK, w.Code)
		data := decodeBody(t, w)["data"].(map[string]any)
		assert.Equal(t, float64(1), data["total"])

		w = do(t, h, http.MethodDelete, "/api/v0/entities/by-name/Group/default/team-a", "")
		assert.Equal(t, http.StatusNoContent, w.Code)
		w = do(t, h, http.MethodDelete, "/api/v0/entities/by-name/Group/default/team-a", "")
		assert.Equal(t, http.StatusNoContent, w.Code)

		w = do(t, h, http.MethodGet, "/api/v0/entities/by-name/Group/default/team-a", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, router.ErrNotFoundCode, decodeBody(t, w)["code"])
	})

	t.Run("Should refuse to store rejected entities", func(t *testing.T) {
		s, store := newTestServer(t)
		w := do(t, s.Handler(), http.MethodPost, "/api/v0/entities", widgetJSON)
		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "UNKNOWN_KIND", body["code"])
		assert.Equal(t, "Widget:default/w", body["context"].(map[string]any)["entity"])
		refs, err := store.List(context.Background(), "")
		require.NoError(t, err)
		assert.Empty(t, refs)
	})
}

func TestOperationalEndpoints(t *testing.T) {
	t.Run("Should report health and echo request ids", func(t *testing.T) {
		s, _ := newTestServer(t)
		w := do(t, s.Handler(), http.MethodGet, "/healthz", "", "X-Request-ID", "req-1")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "req-1", w.Header().Get("X-Request-ID"))
		assert.Equal(t, "healthy", decodeBody(t, w)["data"].(map[string]any)["status"])
	})

	t.Run("Should answer unknown routes with a problem document", func(t *testing.T) {
		s, _ := newTestServer(t)
		w := do(t, s.Handler(), http.MethodGet, "/nope", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, router.ProblemContentType, w.Header().Get("Content-Type"))
	})

	t.Run("Should expose Prometheus metrics when monitoring is enabled", func(t *testing.T) {
		gin.SetMode(gin.TestMode)
		mon, err := monitoring.NewService(context.Background(), true)
		require.NoError(t, err)
		cfg := config.Default()
		s := NewServer(context.Background(), &cfg.Server, catalog.NewMemoryStore(), nil, mon)
		do(t, s.Handler(), http.MethodGet, "/healthz", "")
		w := do(t, s.Handler(), http.MethodGet, "/metrics", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "catalog_http_requests_total")
	})

	t.Run("Should not expose metrics without monitoring", func(t *testing.T) {
		s, _ := newTestServer(t)
		w := do(t, s.Handler(), http.MethodGet, "/metrics", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
