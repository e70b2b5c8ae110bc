package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zatekoja/medscan/backend/internal/adapters/database"
	"github.com/zatekoja/medscan/backend/internal/adapters/device"
	"github.com/zatekoja/medscan/backend/internal/api/handlers"
	"github.com/zatekoja/medscan/backend/internal/api/middleware"
	"github.com/zatekoja/medscan/backend/internal/application/services"
	"github.com/zatekoja/medscan/backend/internal/catalog"
	"github.com/zatekoja/medscan/backend/internal/domain/entities"
	"github.com/zatekoja/medscan/backend/pkg/config"
)

const testUser = "user-1"

// stubProvider returns a fixed model response.
type stubProvider struct {
	raw   string
	err   error
	calls atomic.Int32
}

func (p *stubProvider) ExtractMedication(ctx context.Context, req *entities.ExtractionRequest) (string, error) {
	p.calls.Add(1)
	return p.raw, p.err
}

type testAPI struct {
	mux          *http.ServeMux
	recorder     *database.MemoryScanRecorder
	provider     *stubProvider
	orchestrator *services.CaptureOrchestrator
}

func newTestAPI(t *testing.T, provider *stubProvider) *testAPI {
	t.Helper()
	cfg := config.DefaultPipelineConfig()
	if provider == nil {
		provider = &stubProvider{}
	}

	resolver := services.NewResolutionService(catalog.Default(), cfg)
	extractor := services.NewExtractionService(provider, nil, cfg)
	validator := services.NewValidationService(cfg)
	recorder := database.NewMemoryScanRecorder()
	orchestrator := services.NewCaptureOrchestrator(
		resolver, extractor, validator, recorder,
		device.NewClientBarcodeDecoder(), device.NewClientTextRecognizer(2000), cfg,
	)

	scans := handlers.NewScanHandler(orchestrator, recorder)
	extractions := handlers.NewExtractionHandler(extractor)
	cat := handlers.NewCatalogHandler(resolver, validator)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/scans", scans.CreateScan)
	mux.HandleFunc("DELETE /api/scans/current", scans.Retake)
	mux.HandleFunc("GET /api/scans/latest", scans.GetLatest)
	mux.HandleFunc("GET /api/scans/{id}", scans.GetSession)
	mux.HandleFunc("GET /api/extractions/{id}", scans.GetExtraction)
	mux.HandleFunc("POST /api/extractions", extractions.Extract)
	mux.HandleFunc("GET /api/catalog/barcodes/{code}", cat.GetByBarcode)
	mux.HandleFunc("POST /api/catalog/match", cat.Match)
	mux.HandleFunc("GET /api/catalog/entries", cat.ListEntries)

	return &testAPI{mux: mux, recorder: recorder, provider: provider, orchestrator: orchestrator}
}

func (a *testAPI) do(t *testing.T, method, path, userID string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set(middleware.UserIDHeader, userID)
	}
	w := httptest.NewRecorder()
	a.mux.ServeHTTP(w, req)
	return w
}

// envelope decodes {data, error, type, retryable} responses.
type envelope struct {
	Data      json.RawMessage `json:"data"`
	Error     string          `json:"error"`
	Type      string          `json:"type"`
	Retryable bool            `json:"retryable"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}
