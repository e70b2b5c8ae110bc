package evaluation

import "fmt"

type GuardrailConfig struct {
	MinAccuracy       float64
	MaxHighRiskMisses int
	MaxUnsafeShown    int
}

// Guardrails decide whether an evaluation run is good enough to ship.
type Guardrails struct {
	config GuardrailConfig
}

func NewGuardrails(config GuardrailConfig) *Guardrails {
	if config.MinAccuracy < 0 {
		config.MinAccuracy = 0
	}
	if config.MaxHighRiskMisses < 0 {
		config.MaxHighRiskMisses = 0
	}
	if config.MaxUnsafeShown < 0 {
		config.MaxUnsafeShown = 0
	}
	return &Guardrails{config: config}
}

// Check returns one violation per breached limit.
func (g *Guardrails) Check(s *Summary) []string {
	var violations []string
	if s.Accuracy < g.config.MinAccuracy {
		violations = append(violations, fmt.Sprintf("accuracy %.3f below minimum %.3f", s.Accuracy, g.config.MinAccuracy))
	}
	if s.HighRiskMisses > g.config.MaxHighRiskMisses {
		violations = append(violations, fmt.Sprintf("%d high-risk medications misidentified (max %d)", s.HighRiskMisses, g.config.MaxHighRiskMisses))
	}
	if s.UnsafeShown > g.config.MaxUnsafeShown {
		violations = append(violations, fmt.Sprintf("%d records shown that should have been blocked (max %d)", s.UnsafeShown, g.config.MaxUnsafeShown))
	}
	return violations
}
