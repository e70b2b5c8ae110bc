package evaluation

import (
	"github.com/stretchr/testify/assert"
	"testing"
)

func TestGuardrails_Pass(t *testing.T) {
	g := NewGuardrails(GuardrailConfig{MinAccuracy: 0.8})

	violations := g.Check(&Summary{Accuracy: 0.9})
	assert.Empty(t, violations)
}

func TestGuardrails_ReportsEveryBreach(t *testing.T) {
	g := NewGuardrails(GuardrailConfig{MinAccuracy: 0.8})

	violations := g.Check(&Summary{Accuracy: 0.5, HighRiskMisses: 1, UnsafeShown: 2})
	assert.Equal(t, 3, len(violations))
	assert.Contains(t, violations[0], "accuracy 0.500")
	assert.Contains(t, violations[1], "high-risk")
	assert.Contains(t, violations[2], "should have been blocked")
}

func TestGuardrails_NegativeLimitsClampToZero(t *testing.T) {
	g := NewGuardrails(GuardrailConfig{MaxHighRiskMisses: -3})

	assert.Empty(t, g.Check(&Summary{}))
	assert.Len(t, g.Check(&Summary{HighRiskMisses: 1}), 1)
}
