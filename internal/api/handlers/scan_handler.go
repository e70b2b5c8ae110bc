package handlers

import (
	"errors"
	"net/http"

	"github.com/zatekoja/medscan/backend/internal/application/services"
	"github.com/zatekoja/medscan/backend/internal/domain/entities"
	"github.com/zatekoja/medscan/backend/internal/domain/repositories"
	"github.com/zatekoja/medscan/backend/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/medscan/backend/pkg/errors"
)

// ScanHandler runs capture attempts and serves their persisted results.
type ScanHandler struct {
	orchestrator *services.CaptureOrchestrator
	recorder     repositories.ScanRecorder
}

// NewScanHandler creates a new scan handler
func NewScanHandler(orchestrator *services.CaptureOrchestrator, recorder repositories.ScanRecorder) *ScanHandler {
	return &ScanHandler{
		orchestrator: orchestrator,
		recorder:     recorder,
	}
}

// scanRequest is one capture: the photo plus whatever the device already
// decoded or recognized on-board. Image is base64 in JSON.
type scanRequest struct {
	Image          []byte  `json:"image,omitempty"`
	MimeType       string  `json:"mime_type,omitempty"`
	Barcode        string  `json:"barcode,omitempty"`
	RecognizedText string  `json:"recognized_text,omitempty"`
	OCRConfidence  float64 `json:"ocr_confidence,omitempty"`
	Language       string  `json:"language"`
	Region         string  `json:"region"`
}

// CreateScan handles POST /api/scans
func (h *ScanHandler) CreateScan(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req scanRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithAppError(w, err, nil)
		return
	}
	if req.Language == "" {
		req.Language = "en"
	}

	image := &entities.CapturedImage{
		Data:           req.Image,
		MimeType:       req.MimeType,
		DecodedBarcode: req.Barcode,
		RecognizedText: req.RecognizedText,
		OCRConfidence:  req.OCRConfidence,
	}

	outcome, err := h.orchestrator.Capture(r.Context(), userID, image, services.CaptureOptions{
		Language: req.Language,
		Region:   req.Region,
	})
	switch {
	case errors.Is(err, services.ErrAttemptSuperseded):
		respondWithError(w, http.StatusConflict, "a newer capture replaced this one")
	case err == nil, apperrors.IsType(err, apperrors.ErrorTypeInsufficientInput):
		respondWithData(w, http.StatusOK, outcome)
	default:
		observability.LoggerFromContext(r.Context()).Debug().Err(err).Str("user_id", userID).Msg("capture attempt failed")
		respondWithAppError(w, err, outcome)
	}
}

// Retake handles DELETE /api/scans/current
func (h *ScanHandler) Retake(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	attemptID := h.orchestrator.Retake(userID)
	respondWithData(w, http.StatusAccepted, map[string]uint64{"attempt_id": attemptID})
}

// GetLatest handles GET /api/scans/latest
func (h *ScanHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	outcome, found := h.orchestrator.LatestOutcome(userID)
	if !found {
		respondWithError(w, http.StatusNotFound, "no finished scan")
		return
	}
	respondWithData(w, http.StatusOK, outcome)
}

// GetSession handles GET /api/scans/{id}
func (h *ScanHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	sessionID := r.PathValue("id")
	if sessionID == "" {
		respondWithError(w, http.StatusBadRequest, "session ID is required")
		return
	}

	session, err := h.recorder.GetSession(r.Context(), userID, sessionID)
	if err != nil {
		respondWithAppError(w, err, nil)
		return
	}
	respondWithData(w, http.StatusOK, session)
}

// GetExtraction handles GET /api/extractions/{id}
func (h *ScanHandler) GetExtraction(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	extractionID := r.PathValue("id")
	if extractionID == "" {
		respondWithError(w, http.StatusBadRequest, "extraction ID is required")
		return
	}

	extraction, err := h.recorder.GetExtraction(r.Context(), userID, extractionID)
	if err != nil {
		respondWithAppError(w, err, nil)
		return
	}
	respondWithData(w, http.StatusOK, extraction)
}
