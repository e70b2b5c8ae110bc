package routes

import (
	"net/http"

	"github.com/zatekoja/medscan/backend/internal/api/handlers"
	"github.com/zatekoja/medscan/backend/internal/api/middleware"
	"github.com/zatekoja/medscan/backend/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	scanHandler       *handlers.ScanHandler
	extractionHandler *handlers.ExtractionHandler
	catalogHandler    *handlers.CatalogHandler
	sseHandler        *handlers.SSEHandler

	cacheMiddleware *middleware.CacheMiddleware
	allowedOrigins  []string
	metrics         *observability.Metrics
}

// NewRouter creates a new router. sseHandler and cacheMiddleware may be nil.
func NewRouter(
	scanHandler *handlers.ScanHandler,
	extractionHandler *handlers.ExtractionHandler,
	catalogHandler *handlers.CatalogHandler,
	sseHandler *handlers.SSEHandler,
	cacheMiddleware *middleware.CacheMiddleware,
	allowedOrigins []string,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux:               http.NewServeMux(),
		scanHandler:       scanHandler,
		extractionHandler: extractionHandler,
		catalogHandler:    catalogHandler,
		sseHandler:        sseHandler,
		cacheMiddleware:   cacheMiddleware,
		allowedOrigins:    allowedOrigins,
		metrics:           metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	// Capture pipeline
	r.mux.HandleFunc("POST /api/scans", r.scanHandler.CreateScan)
	r.mux.HandleFunc("DELETE /api/scans/current", r.scanHandler.Retake)
	r.mux.HandleFunc("GET /api/scans/latest", r.scanHandler.GetLatest)
	r.mux.HandleFunc("GET /api/scans/{id}", r.scanHandler.GetSession)
	if r.sseHandler != nil {
		r.mux.HandleFunc("GET "+middleware.StreamPath, r.sseHandler.StreamScans)
	}

	// AI extraction
	r.mux.HandleFunc("POST /api/extractions", r.extractionHandler.Extract)
	r.mux.HandleFunc("GET /api/extractions/{id}", r.scanHandler.GetExtraction)

	// Catalog
	r.mux.HandleFunc("GET /api/catalog/barcodes/{code}", r.catalogHandler.GetByBarcode)
	r.mux.HandleFunc("POST /api/catalog/match", r.catalogHandler.Match)
	r.mux.HandleFunc("GET /api/catalog/entries", r.catalogHandler.ListEntries)

	// Apply middleware in reverse order (last middleware wraps first).
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)

	if r.cacheMiddleware != nil {
		handler = r.cacheMiddleware.Middleware(handler)
	}

	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.ResponseOptimization(handler)

	// CORS wraps everything so headers are set even on cache HITs
	handler = middleware.CORSMiddleware(r.allowedOrigins)(handler)

	return handler
}
