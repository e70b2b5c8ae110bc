package services

import (
	"strings"

	"github.com/zatekoja/medscan/backend/internal/domain/entities"
	"github.com/zatekoja/medscan/backend/pkg/config"
)

const (
	warningLowConfidence      = "This identification may be inaccurate. Check the package and confirm with a pharmacist before use."
	warningCriticalConfidence = "Identification confidence is very low. Do not rely on this result without professional advice."
	warningHighRisk           = "This appears to be a high-risk medication. Dosing errors can cause serious harm; confirm with your doctor or pharmacist."
)

// ValidationService derives risk flags and presentation warnings from a record.
// Validate is pure and may be called from any goroutine.
type ValidationService struct {
	cfg      config.PipelineConfig
	keywords []string
}

// NewValidationService creates a validator with the configured thresholds.
func NewValidationService(cfg config.PipelineConfig) *ValidationService {
	keywords := make([]string, 0, len(cfg.HighRiskKeywords))
	for _, k := range cfg.HighRiskKeywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			keywords = append(keywords, k)
		}
	}
	return &ValidationService{cfg: cfg, keywords: keywords}
}

// Validate assesses a record. A nil record blocks presentation.
func (s *ValidationService) Validate(record *entities.MedicationRecord) entities.RiskAssessment {
	assessment := entities.RiskAssessment{
		Flags:    []string{},
		Warnings: []string{},
	}
	if record == nil {
		assessment.BlocksPresentation = true
		return assessment
	}

	confidence := record.ConfidenceScore
	highRisk := s.IsHighRisk(record)

	if highRisk {
		assessment.Flags = append(assessment.Flags, entities.RiskFlagHighRiskMed)
	}
	if confidence < s.cfg.WarningThreshold {
		assessment.Flags = append(assessment.Flags, entities.RiskFlagLowConfidence)
		assessment.Warnings = append(assessment.Warnings, warningLowConfidence)
	}
	if confidence < s.cfg.CriticalThreshold {
		assessment.Flags = append(assessment.Flags, entities.RiskFlagCriticalLowConfidence)
		assessment.Warnings = append(assessment.Warnings, warningCriticalConfidence)
	}
	// High-risk copy is only surfaced alongside the confidence warnings.
	if highRisk && len(assessment.Warnings) > 0 {
		assessment.Warnings = append(assessment.Warnings, warningHighRisk)
	}

	assessment.BlocksPresentation = s.blocks(record)
	return assessment
}

// IsHighRisk reports whether brand or generic name mention a high-risk keyword.
func (s *ValidationService) IsHighRisk(record *entities.MedicationRecord) bool {
	if record == nil {
		return false
	}
	names := strings.ToLower(record.BrandName + " " + record.GenericName)
	for _, k := range s.keywords {
		if strings.Contains(names, k) {
			return true
		}
	}
	return false
}

func (s *ValidationService) blocks(record *entities.MedicationRecord) bool {
	if strings.TrimSpace(record.BrandName) == "" {
		return true
	}
	return record.ConfidenceScore <= s.cfg.DegradedConfidence && record.HasPlaceholderBrand()
}
