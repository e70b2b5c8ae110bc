package evaluation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/medscan/backend/internal/domain/entities"
)

type fakeResolver map[string]*entities.CaptureOutcome

func (f fakeResolver) Resolve(_ context.Context, c Case) (*entities.CaptureOutcome, error) {
	outcome, ok := f[c.ID]
	if !ok {
		return nil, errors.New("boom")
	}
	return outcome, nil
}

func shownOutcome(brand string, source entities.SourceKind, confidence float64) *entities.CaptureOutcome {
	return &entities.CaptureOutcome{
		State:  entities.CaptureStateDone,
		Record: &entities.MedicationRecord{BrandName: brand, SourceKind: source, ConfidenceScore: confidence},
		Risk:   &entities.RiskAssessment{},
	}
}

func TestRunner_Run(t *testing.T) {
	cases := []Case{
		{ID: "hit", Barcode: "5000159461788", ExpectedBrand: "Panadol", ExpectedSource: entities.SourceBarcodeCatalog, Difficulty: DifficultyEasy},
		{ID: "wrong-high-risk", Text: "coumadin", ExpectedBrand: "Coumadin", HighRisk: true, Difficulty: DifficultyMedium},
		{ID: "should-block", Text: "smudged", ExpectBlocked: true, Difficulty: DifficultyHard},
		{ID: "blocked-ok", Text: "illegible", ExpectBlocked: true, Difficulty: DifficultyHard},
		{ID: "error", Text: "whatever", ExpectedBrand: "Advil", Difficulty: DifficultyEasy},
	}
	degraded := shownOutcome(entities.UnidentifiedMedicationName, entities.SourceDegraded, 0.1)
	degraded.Risk.BlocksPresentation = true

	resolver := fakeResolver{
		"hit":             shownOutcome("Panadol", entities.SourceBarcodeCatalog, 0.95),
		"wrong-high-risk": shownOutcome("Warfarin Generic", entities.SourceAIExtraction, 0.6),
		"should-block":    shownOutcome("Mystery", entities.SourceAIExtraction, 0.55),
		"blocked-ok":      degraded,
	}

	summary, err := NewRunner(resolver).Run(context.Background(), cases)
	require.NoError(t, err)

	assert.Equal(t, 5, summary.TotalCases)
	assert.Equal(t, 2, summary.Correct)
	assert.InDelta(t, 0.4, summary.Accuracy, 1e-9)
	assert.Equal(t, 1, summary.Errors)
	assert.Equal(t, 1, summary.HighRiskMisses)
	assert.Equal(t, 1, summary.UnsafeShown)
	assert.Equal(t, 2, summary.BySource[entities.SourceAIExtraction])
	assert.Equal(t, 1, summary.ByDifficulty[DifficultyEasy].Correct)
	assert.InDelta(t, 0.5, summary.ByDifficulty[DifficultyHard].Accuracy, 1e-9)
	require.Len(t, summary.Results, 5)
	assert.Equal(t, "boom", summary.Results[4].Error)
}

func TestRunner_EmptySet(t *testing.T) {
	summary, err := NewRunner(fakeResolver{}).Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, summary.Accuracy)
	assert.Empty(t, summary.Results)
}

func TestRunner_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRunner(fakeResolver{}).Run(ctx, []Case{{ID: "c1", Text: "x", ExpectedBrand: "X", Difficulty: DifficultyEasy}})
	assert.ErrorIs(t, err, context.Canceled)
}
