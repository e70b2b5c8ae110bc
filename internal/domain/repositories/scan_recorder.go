package repositories

import (
	"context"

	"github.com/zatekoja/medscan/backend/internal/domain/entities"
)

// ScanRecorder persists scan sessions and extraction records. Implementations
// scope every session update to the owning user.
type ScanRecorder interface {
	CreateSession(ctx context.Context, userID, barcode, language, region string) (string, error)
	CreateExtraction(ctx context.Context, userID string, record *entities.MedicationRecord, riskFlags []string) (string, error)
	LinkExtractionToSession(ctx context.Context, userID, sessionID, extractionID string) error
	GetSession(ctx context.Context, userID, sessionID string) (*entities.ScanSession, error)
	GetExtraction(ctx context.Context, userID, extractionID string) (*entities.ExtractionRecord, error)
}
