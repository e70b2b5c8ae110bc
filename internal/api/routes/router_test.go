package routes_test

import (
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/medscan/backend/internal/adapters/database"
	"github.com/zatekoja/medscan/backend/internal/adapters/device"
	"github.com/zatekoja/medscan/backend/internal/adapters/events"
	"github.com/zatekoja/medscan/backend/internal/api/handlers"
	"github.com/zatekoja/medscan/backend/internal/api/middleware"
	"github.com/zatekoja/medscan/backend/internal/api/routes"
	"github.com/zatekoja/medscan/backend/internal/application/services"
	"github.com/zatekoja/medscan/backend/internal/catalog"
	"github.com/zatekoja/medscan/backend/internal/domain/providers"
	"github.com/zatekoja/medscan/backend/pkg/config"
)

// mapCache is an in-memory CacheProvider.
type mapCache struct {
	mu    sync.Mutex
	items map[string][]byte
}

func (c *mapCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.items[key]
	if !ok {
		return nil, providers.ErrCacheMiss
	}
	return v, nil
}

func (c *mapCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = append([]byte(nil), value...)
	return nil
}

func (c *mapCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
	return nil
}

func newHandler(t *testing.T, origins []string) http.Handler {
	t.Helper()
	cfg := config.DefaultPipelineConfig()
	resolver := services.NewResolutionService(catalog.Default(), cfg)
	extractor := services.NewExtractionService(nil, nil, cfg)
	validator := services.NewValidationService(cfg)
	recorder := database.NewMemoryScanRecorder()
	orchestrator := services.NewCaptureOrchestrator(
		resolver, extractor, validator, recorder,
		device.NewClientBarcodeDecoder(), device.NewClientTextRecognizer(0), cfg,
	)
	bus := events.NewMemoryEventBus()
	t.Cleanup(func() { bus.Close() })

	router := routes.NewRouter(
		handlers.NewScanHandler(orchestrator, recorder),
		handlers.NewExtractionHandler(extractor),
		handlers.NewCatalogHandler(resolver, validator),
		handlers.NewSSEHandler(bus),
		middleware.NewCacheMiddleware(&mapCache{items: map[string][]byte{}}, nil),
		origins,
		nil,
	)
	return router.SetupRoutes()
}

func TestRouter_Health(t *testing.T) {
	h := newHandler(t, nil)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}

func TestRouter_CORS(t *testing.T) {
	h := newHandler(t, []string{"https://app.example.com"})

	req := httptest.NewRequest(http.MethodOptions, "/api/scans", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), middleware.UserIDHeader)

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_CatalogIsCachedAndCompressed(t *testing.T) {
	h := newHandler(t, nil)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/catalog/barcodes/5000159461788", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
	assert.Contains(t, w.Header().Get("Cache-Control"), "public")
	etag := w.Header().Get("ETag")
	require.NotEmpty(t, etag)

	req := httptest.NewRequest(http.MethodGet, "/api/catalog/barcodes/5000159461788", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))
	assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))

	gz, err := gzip.NewReader(w.Body)
	require.NoError(t, err)
	body, err := io.ReadAll(gz)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"brand_name":"Panadol"`)

	req = httptest.NewRequest(http.MethodGet, "/api/catalog/barcodes/5000159461788", nil)
	req.Header.Set("If-None-Match", etag)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotModified, w.Code)
}

func TestRouter_ScansAreNotStored(t *testing.T) {
	h := newHandler(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/scans", strings.NewReader(`{"barcode":"5000159461788","language":"en","region":"GB"}`))
	req.Header.Set(middleware.UserIDHeader, "user-1")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.Empty(t, w.Header().Get("X-Cache"))
}

func TestRouter_StreamIsNotBuffered(t *testing.T) {
	h := newHandler(t, nil)
	srv := httptest.NewServer(h)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+middleware.StreamPath, nil)
	require.NoError(t, err)
	req.Header.Set(middleware.UserIDHeader, "user-1")
	req.Header.Set("Accept-Encoding", "gzip")

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	assert.Empty(t, resp.Header.Get("Content-Encoding"))

	buf := make([]byte, len("event: connected"))
	_, err = io.ReadFull(resp.Body, buf)
	require.NoError(t, err)
	assert.Equal(t, "event: connected", string(buf))
}

func TestRouter_RequestID(t *testing.T) {
	h := newHandler(t, nil)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Len(t, w.Header().Get(middleware.RequestIDHeader), 36)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(middleware.RequestIDHeader, "gateway-42")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, "gateway-42", w.Header().Get(middleware.RequestIDHeader))
}

func TestRouter_NoCacheBypassesLookup(t *testing.T) {
	h := newHandler(t, nil)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/catalog/entries?region=GB", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))

	req := httptest.NewRequest(http.MethodGet, "/api/catalog/entries?region=GB", nil)
	req.Header.Set("Cache-Control", "no-cache")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/catalog/entries?region=GB", nil))
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))
}
