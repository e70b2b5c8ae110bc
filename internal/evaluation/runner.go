package evaluation

import (
	"context"
	"time"

	"github.com/zatekoja/medscan/backend/internal/domain/entities"
)

// CaseResolver runs one labelled case through the pipeline.
type CaseResolver interface {
	Resolve(ctx context.Context, c Case) (*entities.CaptureOutcome, error)
}

// Runner runs evaluation across a set of labelled cases.
type Runner struct {
	resolver CaseResolver
}

func NewRunner(resolver CaseResolver) *Runner {
	return &Runner{resolver: resolver}
}

func (r *Runner) Run(ctx context.Context, cases []Case) (*Summary, error) {
	summary := &Summary{
		TotalCases:   len(cases),
		ByDifficulty: make(map[Difficulty]*DifficultySummary),
		BySource:     make(map[entities.SourceKind]int),
		Results:      make([]CaseResult, 0, len(cases)),
	}

	for _, c := range cases {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		start := time.Now()
		outcome, err := r.resolver.Resolve(ctx, c)
		result := score(c, outcome, err)
		result.Latency = time.Since(start)

		summary.Results = append(summary.Results, result)
	}

	r.finalizeSummary(summary)
	return summary, nil
}

func score(c Case, outcome *entities.CaptureOutcome, err error) CaseResult {
	result := CaseResult{CaseID: c.ID, Difficulty: c.Difficulty}
	if err != nil {
		result.Error = err.Error()
	}

	if outcome != nil && outcome.Record != nil {
		result.Brand = outcome.Record.BrandName
		result.Source = outcome.Record.SourceKind
		result.Confidence = outcome.Record.ConfidenceScore
	}
	if outcome != nil && outcome.Risk != nil {
		result.Blocked = outcome.Risk.BlocksPresentation
	}
	shown := outcome != nil && outcome.Record != nil && !result.Blocked

	if c.ExpectBlocked {
		result.Correct = !shown
		result.UnsafeShown = shown
	} else {
		result.Correct = shown && BrandMatches(c.ExpectedBrand, result.Brand)
		result.HighRiskMiss = c.HighRisk && !result.Correct && shown
	}
	result.SourceMatch = c.ExpectedSource == "" || c.ExpectedSource == result.Source

	return result
}

func (r *Runner) finalizeSummary(s *Summary) {
	confidences := make([]float64, 0, len(s.Results))
	correct := make([]bool, 0, len(s.Results))
	sourceHits := 0
	var latency time.Duration

	for _, res := range s.Results {
		latency += res.Latency
		if res.Error != "" {
			s.Errors++
		}
		if res.Correct {
			s.Correct++
		}
		if res.SourceMatch {
			sourceHits++
		}
		if res.HighRiskMiss {
			s.HighRiskMisses++
		}
		if res.UnsafeShown {
			s.UnsafeShown++
		}
		if res.Source != "" {
			s.BySource[res.Source]++
			confidences = append(confidences, res.Confidence)
			correct = append(correct, res.Correct)
		}

		ds, ok := s.ByDifficulty[res.Difficulty]
		if !ok {
			ds = &DifficultySummary{}
			s.ByDifficulty[res.Difficulty] = ds
		}
		ds.Count++
		if res.Correct {
			ds.Correct++
		}
	}

	s.Accuracy = Ratio(s.Correct, s.TotalCases)
	s.SourceAccuracy = Ratio(sourceHits, s.TotalCases)
	s.CalibrationGap = CalibrationGap(confidences, correct)
	if s.TotalCases > 0 {
		s.AvgLatency = latency / time.Duration(s.TotalCases)
	}
	for _, ds := range s.ByDifficulty {
		ds.Accuracy = Ratio(ds.Correct, ds.Count)
	}
}
