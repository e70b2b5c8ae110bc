package providers

import (
	"context"

	"github.com/zatekoja/medscan/backend/internal/domain/entities"
)

// TextRecognizer is the OCR collaborator. Init must succeed before the first
// Recognize call.
type TextRecognizer interface {
	Init(ctx context.Context) error
	Recognize(ctx context.Context, image *entities.CapturedImage) (*entities.RecognizedText, error)
}

// BarcodeDecoder is the barcode decoding collaborator. A nil result with a nil
// error means no barcode was found.
type BarcodeDecoder interface {
	Decode(ctx context.Context, image *entities.CapturedImage) (*entities.DecodedBarcode, error)
}

// CaptureObserver receives state transitions of the current capture attempt.
// Superseded attempts never report.
type CaptureObserver interface {
	OnStateChange(attemptID uint64, state entities.CaptureState)
}
