package services_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/zatekoja/medscan/backend/internal/application/services"
	"github.com/zatekoja/medscan/backend/internal/domain/entities"
	"github.com/zatekoja/medscan/backend/pkg/config"
)

func newValidator() *services.ValidationService {
	return services.NewValidationService(config.DefaultPipelineConfig())
}

func TestValidate_ConfidenceTiers(t *testing.T) {
	validator := newValidator()

	tests := []struct {
		name         string
		confidence   float64
		wantWarnings bool
		wantLow      bool
		wantCritical bool
	}{
		{"barcode confidence", 0.95, false, false, false},
		{"above warning threshold", 0.75, false, false, false},
		{"exactly warning threshold", 0.7, false, false, false},
		{"below warning threshold", 0.65, true, true, false},
		{"exactly critical threshold", 0.5, true, true, false},
		{"below critical threshold", 0.45, true, true, true},
		{"degraded floor", 0.1, true, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			risk := validator.Validate(&entities.MedicationRecord{
				BrandName:       "Examplin",
				ConfidenceScore: tt.confidence,
				SourceKind:      entities.SourceAIExtraction,
			})

			assert.Equal(t, tt.wantWarnings, len(risk.Warnings) > 0)
			assert.Equal(t, tt.wantLow, risk.HasFlag(entities.RiskFlagLowConfidence))
			assert.Equal(t, tt.wantCritical, risk.HasFlag(entities.RiskFlagCriticalLowConfidence))
			assert.False(t, risk.BlocksPresentation)
		})
	}
}

func TestValidate_HighRiskFlagRegardlessOfConfidence(t *testing.T) {
	validator := newValidator()

	for _, confidence := range []float64{0.1, 0.5, 0.7, 0.95, 1} {
		risk := validator.Validate(&entities.MedicationRecord{
			BrandName:       "Coumadin",
			GenericName:     "Warfarin Sodium",
			ConfidenceScore: confidence,
			SourceKind:      entities.SourceTextCatalog,
		})
		assert.True(t, risk.HasFlag(entities.RiskFlagHighRiskMed), "confidence %v", confidence)
	}
}

func TestValidate_HighRiskWarningOnlyWithConfidenceWarnings(t *testing.T) {
	validator := newValidator()

	confident := validator.Validate(&entities.MedicationRecord{
		BrandName:       "Lantus",
		GenericName:     "Insulin Glargine",
		ConfidenceScore: 0.85,
	})
	assert.True(t, confident.HasFlag(entities.RiskFlagHighRiskMed))
	assert.Empty(t, confident.Warnings)

	unsure := validator.Validate(&entities.MedicationRecord{
		BrandName:       "Lantus",
		GenericName:     "Insulin Glargine",
		ConfidenceScore: 0.6,
	})
	assert.Len(t, unsure.Warnings, 2)
}

func TestValidate_Blocking(t *testing.T) {
	validator := newValidator()

	tests := []struct {
		name   string
		record *entities.MedicationRecord
		blocks bool
	}{
		{"nil record", nil, true},
		{"empty brand", &entities.MedicationRecord{BrandName: "  ", ConfidenceScore: 0.9}, true},
		{"degraded record", &entities.MedicationRecord{BrandName: "xyz123 unreadable blur", ConfidenceScore: 0.1, SourceKind: entities.SourceDegraded}, true},
		{"placeholder brand at floor", &entities.MedicationRecord{BrandName: entities.PlaceholderBrand("123"), ConfidenceScore: 0.1, SourceKind: entities.SourceAIExtraction}, true},
		{"placeholder brand above floor", &entities.MedicationRecord{BrandName: entities.UnidentifiedMedicationName, ConfidenceScore: 0.3, SourceKind: entities.SourceAIExtraction}, false},
		{"real brand at floor", &entities.MedicationRecord{BrandName: "Examplin", ConfidenceScore: 0.1, SourceKind: entities.SourceAIExtraction}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.blocks, validator.Validate(tt.record).BlocksPresentation)
		})
	}
}

func TestValidate_CustomKeywords(t *testing.T) {
	cfg := config.DefaultPipelineConfig()
	cfg.HighRiskKeywords = []string{"  Examplin "}
	validator := services.NewValidationService(cfg)

	risk := validator.Validate(&entities.MedicationRecord{BrandName: "EXAMPLIN forte", ConfidenceScore: 0.9})
	assert.Equal(t, []string{entities.RiskFlagHighRiskMed}, risk.Flags)
}
