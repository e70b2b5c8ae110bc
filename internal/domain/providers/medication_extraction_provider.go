package providers

import (
	"context"
	"errors"

	"github.com/zatekoja/medscan/backend/internal/domain/entities"
)

var (
	// ErrExtractionUnauthorized is returned when the AI model rejects the credentials.
	ErrExtractionUnauthorized = errors.New("medication extraction provider unauthorized")
	// ErrExtractionQuotaExceeded is returned when the AI model refuses for quota or rate reasons.
	ErrExtractionQuotaExceeded = errors.New("medication extraction provider quota exceeded")
)

// MedicationExtractionProvider asks a language model to describe a medication.
// It returns the raw model text; sanitation and parsing belong to the caller.
type MedicationExtractionProvider interface {
	ExtractMedication(ctx context.Context, req *entities.ExtractionRequest) (string, error)
}
