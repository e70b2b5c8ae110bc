package handlers

import (
	"net/http"
	"strings"

	"github.com/zatekoja/medscan/backend/internal/application/services"
	"github.com/zatekoja/medscan/backend/internal/domain/entities"
	"github.com/zatekoja/medscan/backend/internal/infrastructure/observability"
)

// ExtractionHandler exposes the AI extraction fallback directly.
type ExtractionHandler struct {
	extractor *services.ExtractionService
}

// NewExtractionHandler creates a new extraction handler
func NewExtractionHandler(extractor *services.ExtractionService) *ExtractionHandler {
	return &ExtractionHandler{extractor: extractor}
}

// Extract handles POST /api/extractions
func (h *ExtractionHandler) Extract(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUserID(w, r); !ok {
		return
	}

	var req entities.ExtractionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithAppError(w, err, nil)
		return
	}
	if strings.TrimSpace(req.Language) == "" {
		req.Language = "en"
	}

	record, err := h.extractor.Extract(r.Context(), &req)
	if err != nil {
		observability.LoggerFromContext(r.Context()).Warn().Err(err).Str("session_id", req.SessionID).Msg("extraction request failed")
		respondWithAppError(w, err, nil)
		return
	}
	respondWithData(w, http.StatusOK, record)
}
