package entities

import "time"

// ScanSession is created for every capture attempt that reaches persistence.
// ExtractionID is linked after extraction completes and is the only field
// mutated after creation.
type ScanSession struct {
	ID           string    `json:"id" db:"id"`
	UserID       string    `json:"user_id" db:"user_id"`
	BarcodeValue string    `json:"barcode_value,omitempty" db:"barcode_value"`
	Language     string    `json:"language" db:"language"`
	Region       string    `json:"region" db:"region"`
	ExtractionID string    `json:"extraction_id,omitempty" db:"extraction_id"`
	CapturedAt   time.Time `json:"captured_at" db:"captured_at"`
}

// ExtractionRecord is the persisted, immutable form of a MedicationRecord.
type ExtractionRecord struct {
	ID           string           `json:"id" db:"id"`
	UserID       string           `json:"user_id" db:"user_id"`
	Medication   MedicationRecord `json:"medication" db:"medication"`
	QualityScore float64          `json:"quality_score" db:"quality_score"`
	RiskFlags    []string         `json:"risk_flags" db:"risk_flags"`
	CreatedAt    time.Time        `json:"created_at" db:"created_at"`
}

// NewExtractionRecord copies the confidence and risk flags onto a persisted record.
func NewExtractionRecord(userID string, record *MedicationRecord, riskFlags []string) *ExtractionRecord {
	flags := make([]string, len(riskFlags))
	copy(flags, riskFlags)
	return &ExtractionRecord{
		UserID:       userID,
		Medication:   *record,
		QualityScore: record.ConfidenceScore,
		RiskFlags:    flags,
		CreatedAt:    time.Now().UTC(),
	}
}
