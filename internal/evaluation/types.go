package evaluation

import (
	"time"

	"github.com/zatekoja/medscan/backend/internal/domain/entities"
)

// Difficulty grades how hard a labelled case is to resolve.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"   // clean barcode or exact label
	DifficultyMedium Difficulty = "medium" // noisy label, catalog still matches
	DifficultyHard   Difficulty = "hard"   // needs the AI fallback or should degrade
)

// IsValid checks if the difficulty is one of the defined constants.
func (d Difficulty) IsValid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// Case is a labelled capture with the outcome the pipeline should reach.
type Case struct {
	ID         string     `yaml:"id" json:"id"`
	Barcode    string     `yaml:"barcode,omitempty" json:"barcode,omitempty"`
	Text       string     `yaml:"text,omitempty" json:"text,omitempty"`
	Region     string     `yaml:"region,omitempty" json:"region,omitempty"`
	Language   string     `yaml:"language,omitempty" json:"language,omitempty"`
	Difficulty Difficulty `yaml:"difficulty" json:"difficulty"`

	// ExpectedBrand is empty when the case should not resolve to any brand.
	ExpectedBrand  string              `yaml:"expected_brand,omitempty" json:"expected_brand,omitempty"`
	ExpectedSource entities.SourceKind `yaml:"expected_source,omitempty" json:"expected_source,omitempty"`
	ExpectBlocked  bool                `yaml:"expect_blocked,omitempty" json:"expect_blocked,omitempty"`
	HighRisk       bool                `yaml:"high_risk,omitempty" json:"high_risk,omitempty"`
}

// CaseResult holds the evaluation outcome for a single case.
type CaseResult struct {
	CaseID       string              `json:"case_id"`
	Difficulty   Difficulty          `json:"difficulty"`
	Brand        string              `json:"brand,omitempty"`
	Source       entities.SourceKind `json:"source,omitempty"`
	Confidence   float64             `json:"confidence"`
	Blocked      bool                `json:"blocked"`
	Correct      bool                `json:"correct"`
	SourceMatch  bool                `json:"source_match"`
	HighRiskMiss bool                `json:"high_risk_miss,omitempty"`
	UnsafeShown  bool                `json:"unsafe_shown,omitempty"`
	Error        string              `json:"error,omitempty"`
	Latency      time.Duration       `json:"latency"`
}

// Summary holds aggregate metrics across all cases.
type Summary struct {
	TotalCases     int                               `json:"total_cases"`
	Correct        int                               `json:"correct"`
	Accuracy       float64                           `json:"accuracy"`
	SourceAccuracy float64                           `json:"source_accuracy"`
	Errors         int                               `json:"errors"`
	HighRiskMisses int                               `json:"high_risk_misses"`
	UnsafeShown    int                               `json:"unsafe_shown"`
	CalibrationGap float64                           `json:"calibration_gap"`
	AvgLatency     time.Duration                     `json:"avg_latency"`
	ByDifficulty   map[Difficulty]*DifficultySummary `json:"by_difficulty"`
	BySource       map[entities.SourceKind]int       `json:"by_source"`
	Results        []CaseResult                      `json:"results"`
}

// DifficultySummary holds metrics grouped by difficulty.
type DifficultySummary struct {
	Count    int     `json:"count"`
	Correct  int     `json:"correct"`
	Accuracy float64 `json:"accuracy"`
}
