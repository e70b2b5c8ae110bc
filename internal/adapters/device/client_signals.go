// Package device adapts results produced on the capture device to the
// pipeline's decoder and recognizer collaborators. Phones decode barcodes and
// run OCR on-board; the server receives their output alongside the photo.
package device

import (
	"context"
	"strings"
	"unicode"

	"github.com/zatekoja/medscan/backend/internal/domain/entities"
	"github.com/zatekoja/medscan/backend/internal/domain/providers"
	apperrors "github.com/zatekoja/medscan/backend/pkg/errors"
)

// ClientBarcodeDecoder returns the barcode the device already decoded.
type ClientBarcodeDecoder struct{}

// NewClientBarcodeDecoder creates a decoder.
func NewClientBarcodeDecoder() *ClientBarcodeDecoder {
	return &ClientBarcodeDecoder{}
}

// Decode returns nil when the device found no barcode.
func (d *ClientBarcodeDecoder) Decode(ctx context.Context, image *entities.CapturedImage) (*entities.DecodedBarcode, error) {
	if image == nil {
		return nil, nil
	}
	code := strings.TrimSpace(image.DecodedBarcode)
	if code == "" {
		return nil, nil
	}
	return &entities.DecodedBarcode{Code: code, Format: barcodeFormat(code)}, nil
}

// barcodeFormat guesses the symbology from the digit count.
func barcodeFormat(code string) string {
	for _, r := range code {
		if !unicode.IsDigit(r) {
			return "UNKNOWN"
		}
	}
	switch len(code) {
	case 8:
		return "EAN_8"
	case 12:
		return "UPC_A"
	case 13:
		return "EAN_13"
	case 14:
		return "GTIN_14"
	}
	return "UNKNOWN"
}

// ClientTextRecognizer returns the text the device already recognized.
type ClientTextRecognizer struct {
	maxTextLength int
}

// NewClientTextRecognizer creates a recognizer. Text longer than
// maxTextLength runes is cut; zero means no limit.
func NewClientTextRecognizer(maxTextLength int) *ClientTextRecognizer {
	return &ClientTextRecognizer{maxTextLength: maxTextLength}
}

// Init has nothing to load.
func (r *ClientTextRecognizer) Init(ctx context.Context) error {
	return ctx.Err()
}

// Recognize returns the device text with control characters replaced. A photo
// with no device text yields empty text. A confidence outside [0,1] is
// rejected as a broken OCR result.
func (r *ClientTextRecognizer) Recognize(ctx context.Context, image *entities.CapturedImage) (*entities.RecognizedText, error) {
	if image == nil {
		return &entities.RecognizedText{}, nil
	}
	if image.OCRConfidence < 0 || image.OCRConfidence > 1 {
		return nil, apperrors.NewValidationError("ocr confidence must be between 0 and 1")
	}

	text := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, image.RecognizedText)
	text = strings.TrimSpace(text)

	if r.maxTextLength > 0 {
		if runes := []rune(text); len(runes) > r.maxTextLength {
			text = string(runes[:r.maxTextLength])
		}
	}
	return &entities.RecognizedText{Text: text, Confidence: image.OCRConfidence}, nil
}

var (
	_ providers.BarcodeDecoder = (*ClientBarcodeDecoder)(nil)
	_ providers.TextRecognizer = (*ClientTextRecognizer)(nil)
)
