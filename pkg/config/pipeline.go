package config

import (
	"errors"
	"fmt"
	"time"
)

// ExtractionFailurePolicy decides what happens when the AI model cannot be reached.
type ExtractionFailurePolicy string

const (
	// FailurePolicyDegrade synthesizes a Degraded record from the captured text.
	FailurePolicyDegrade ExtractionFailurePolicy = "degrade"
	// FailurePolicySurface returns the extraction error to the caller as retryable.
	FailurePolicySurface ExtractionFailurePolicy = "surface"
)

// PipelineConfig holds the thresholds and keyword lists used by the
// identification pipeline. It is treated as an immutable value: services
// receive a copy at construction time.
type PipelineConfig struct {
	BarcodeConfidence  float64
	TextConfidence     float64
	WarningThreshold   float64
	CriticalThreshold  float64
	DegradedConfidence float64

	// DefaultAIConfidence replaces a missing or non-numeric model confidence.
	DefaultAIConfidence float64

	MinTextLength           int
	DegradedNameLength      int
	ExtractionTimeout       time.Duration
	ExtractionCacheTTL      time.Duration
	ExtractionFailurePolicy ExtractionFailurePolicy

	// OutcomeRetention is how long an idle user's latest outcome is kept.
	OutcomeRetention time.Duration

	HighRiskKeywords      []string
	CommonGenericKeywords []string
}

// DefaultPipelineConfig returns the production thresholds.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		BarcodeConfidence:       0.95,
		TextConfidence:          0.85,
		WarningThreshold:        0.7,
		CriticalThreshold:       0.5,
		DegradedConfidence:      0.1,
		DefaultAIConfidence:     0.5,
		MinTextLength:           10,
		DegradedNameLength:      40,
		ExtractionTimeout:       20 * time.Second,
		ExtractionCacheTTL:      24 * time.Hour,
		ExtractionFailurePolicy: FailurePolicyDegrade,
		OutcomeRetention:        30 * time.Minute,
		HighRiskKeywords: []string{
			"insulin",
			"warfarin",
			"digoxin",
			"lithium",
			"methotrexate",
			"cyclophosphamide",
			"chemotherapy",
			"cisplatin",
			"tamoxifen",
			"heparin",
			"fentanyl",
			"morphine",
			"oxycodone",
			"phenytoin",
			"amiodarone",
		},
		CommonGenericKeywords: []string{
			"paracetamol",
			"acetaminophen",
			"ibuprofen",
			"aspirin",
			"amoxicillin",
			"metformin",
			"omeprazole",
			"cetirizine",
		},
	}
}

// Validate checks that thresholds are ordered and inside [0,1].
func (p PipelineConfig) Validate() error {
	for name, v := range map[string]float64{
		"barcode confidence":    p.BarcodeConfidence,
		"text confidence":       p.TextConfidence,
		"warning threshold":     p.WarningThreshold,
		"critical threshold":    p.CriticalThreshold,
		"degraded confidence":   p.DegradedConfidence,
		"default ai confidence": p.DefaultAIConfidence,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("pipeline %s must be within [0,1], got %v", name, v)
		}
	}
	if p.CriticalThreshold > p.WarningThreshold {
		return errors.New("pipeline critical threshold must not exceed warning threshold")
	}
	if p.DegradedConfidence > p.CriticalThreshold {
		return errors.New("pipeline degraded confidence must not exceed critical threshold")
	}
	if p.MinTextLength < 0 {
		return errors.New("pipeline minimum text length must not be negative")
	}
	if p.ExtractionTimeout <= 0 {
		return errors.New("pipeline extraction timeout must be positive")
	}
	if p.OutcomeRetention <= 0 {
		return errors.New("pipeline outcome retention must be positive")
	}
	switch p.ExtractionFailurePolicy {
	case FailurePolicyDegrade, FailurePolicySurface:
	default:
		return fmt.Errorf("unknown extraction failure policy %q", p.ExtractionFailurePolicy)
	}
	return nil
}
