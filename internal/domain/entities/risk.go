package entities

// Risk flags attached by the safety validator.
const (
	RiskFlagHighRiskMed           = "HIGH_RISK_MED"
	RiskFlagLowConfidence         = "LOW_CONFIDENCE"
	RiskFlagCriticalLowConfidence = "CRITICAL_LOW_CONFIDENCE"
)

// RiskAssessment is derived from a MedicationRecord on every validation pass.
// It is never persisted on its own.
type RiskAssessment struct {
	// Flags are the machine-readable risk labels copied onto ExtractionRecord.
	Flags []string `json:"flags"`
	// Warnings are presentation-facing and only populated below the warning threshold.
	Warnings           []string `json:"warnings"`
	BlocksPresentation bool     `json:"blocks_presentation"`
}

// HasFlag reports whether the assessment carries flag.
func (a RiskAssessment) HasFlag(flag string) bool {
	for _, f := range a.Flags {
		if f == flag {
			return true
		}
	}
	return false
}
