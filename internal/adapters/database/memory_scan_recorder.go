package database

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zatekoja/medscan/backend/internal/domain/entities"
	apperrors "github.com/zatekoja/medscan/backend/pkg/errors"
)

// MemoryScanRecorder keeps sessions and extractions in process memory. It is
// used for local runs and tests; nothing survives a restart.
type MemoryScanRecorder struct {
	mu          sync.RWMutex
	sessions    map[string]*entities.ScanSession
	extractions map[string]*entities.ExtractionRecord
}

// NewMemoryScanRecorder creates an empty recorder.
func NewMemoryScanRecorder() *MemoryScanRecorder {
	return &MemoryScanRecorder{
		sessions:    make(map[string]*entities.ScanSession),
		extractions: make(map[string]*entities.ExtractionRecord),
	}
}

func (r *MemoryScanRecorder) CreateSession(ctx context.Context, userID, barcode, language, region string) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", apperrors.NewValidationError("user id is required")
	}
	session := &entities.ScanSession{
		ID:           uuid.NewString(),
		UserID:       userID,
		BarcodeValue: strings.TrimSpace(barcode),
		Language:     language,
		Region:       strings.ToUpper(region),
		CapturedAt:   time.Now().UTC(),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.ID] = session
	return session.ID, nil
}

func (r *MemoryScanRecorder) CreateExtraction(ctx context.Context, userID string, record *entities.MedicationRecord, riskFlags []string) (string, error) {
	if record == nil {
		return "", apperrors.NewValidationError("medication record is required")
	}
	if strings.TrimSpace(userID) == "" {
		return "", apperrors.NewValidationError("user id is required")
	}
	extraction := entities.NewExtractionRecord(userID, record, riskFlags)
	extraction.ID = uuid.NewString()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.extractions[extraction.ID] = extraction
	return extraction.ID, nil
}

func (r *MemoryScanRecorder) LinkExtractionToSession(ctx context.Context, userID, sessionID, extractionID string) error {
	if sessionID == "" || extractionID == "" {
		return apperrors.NewValidationError("session id and extraction id are required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[sessionID]
	if !ok || session.UserID != userID {
		return apperrors.NewNotFoundError(fmt.Sprintf("scan session %s not found", sessionID))
	}
	session.ExtractionID = extractionID
	return nil
}

func (r *MemoryScanRecorder) GetSession(ctx context.Context, userID, sessionID string) (*entities.ScanSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[sessionID]
	if !ok || session.UserID != userID {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("scan session %s not found", sessionID))
	}
	out := *session
	return &out, nil
}

func (r *MemoryScanRecorder) GetExtraction(ctx context.Context, userID, extractionID string) (*entities.ExtractionRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	extraction, ok := r.extractions[extractionID]
	if !ok || extraction.UserID != userID {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("extraction %s not found", extractionID))
	}
	out := *extraction
	out.RiskFlags = append([]string{}, extraction.RiskFlags...)
	return &out, nil
}
