package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zatekoja/medscan/backend/internal/application/services"
	"github.com/zatekoja/medscan/backend/internal/domain/entities"
	"github.com/zatekoja/medscan/backend/internal/evaluation"
	apperrors "github.com/zatekoja/medscan/backend/pkg/errors"
)

// pipelineResolver adapts the orchestrator to evaluation.CaseResolver.
type pipelineResolver struct {
	orchestrator *services.CaptureOrchestrator
}

func (p *pipelineResolver) Resolve(ctx context.Context, c evaluation.Case) (*entities.CaptureOutcome, error) {
	language := c.Language
	if language == "" {
		language = "en"
	}
	outcome, err := capture(ctx, p.orchestrator, strings.TrimSpace(c.Barcode), strings.TrimSpace(c.Text), language, c.Region)
	if apperrors.IsType(err, apperrors.ErrorTypeInsufficientInput) {
		return outcome, nil
	}
	return outcome, err
}

func getEvaluateCmd() *cobra.Command {
	var (
		file              string
		offline           bool
		minAccuracy       float64
		maxHighRiskMisses int
		verbose           bool
	)

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Score the pipeline against labelled captures",
		Long: `Run every case in a labelled file through the pipeline and print a JSON summary.

The command fails when accuracy drops below --min-accuracy, when a high-risk
medication resolves to the wrong brand, or when a record that should have been
blocked is shown.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cases, err := evaluation.LoadCases(file)
			if err != nil {
				return err
			}
			if err := evaluation.ValidateCases(cases); err != nil {
				return err
			}

			orchestrator, err := newOrchestrator(offline)
			if err != nil {
				return err
			}

			summary, err := evaluation.NewRunner(&pipelineResolver{orchestrator: orchestrator}).Run(cmd.Context(), cases)
			if err != nil {
				return fmt.Errorf("evaluation failed: %w", err)
			}
			if !verbose {
				summary.Results = nil
			}
			if err := writeJSON(cmd.OutOrStdout(), summary); err != nil {
				return err
			}

			guardrails := evaluation.NewGuardrails(evaluation.GuardrailConfig{
				MinAccuracy:       minAccuracy,
				MaxHighRiskMisses: maxHighRiskMisses,
			})
			if violations := guardrails.Check(summary); len(violations) > 0 {
				return fmt.Errorf("guardrails breached: %s", strings.Join(violations, "; "))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "config/eval_cases.yaml", "labelled cases file")
	cmd.Flags().BoolVar(&offline, "offline", false, "never call the AI model")
	cmd.Flags().Float64Var(&minAccuracy, "min-accuracy", 0, "fail below this accuracy (0-1)")
	cmd.Flags().IntVar(&maxHighRiskMisses, "max-high-risk-misses", 0, "fail above this many high-risk misidentifications")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "include per-case results")

	return cmd
}
