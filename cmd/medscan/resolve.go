package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/zatekoja/medscan/backend/internal/adapters/device"
	"github.com/zatekoja/medscan/backend/internal/application/services"
	"github.com/zatekoja/medscan/backend/internal/domain/entities"
	"github.com/zatekoja/medscan/backend/internal/domain/providers"
	"github.com/zatekoja/medscan/backend/internal/infrastructure/clients/openai"
	apperrors "github.com/zatekoja/medscan/backend/pkg/errors"
)

const cliUser = "medscan-cli"

func getResolveCmd() *cobra.Command {
	var (
		barcode  string
		text     string
		language string
		region   string
		offline  bool
	)

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Identify a medication from a barcode or label text",
		Long: `Run one capture through the pipeline and print the outcome as JSON.

The barcode is looked up first, then the text is matched against the catalog.
When both miss, the AI model is asked unless --offline is set or no
OPENAI_API_KEY is configured, in which case a degraded record is returned.
Nothing is persisted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			barcode = strings.TrimSpace(barcode)
			text = strings.TrimSpace(text)
			if barcode == "" && text == "" {
				return errors.New("either --barcode or --text is required")
			}

			orchestrator, err := newOrchestrator(offline)
			if err != nil {
				return err
			}

			outcome, err := capture(cmd.Context(), orchestrator, barcode, text, language, region)
			if outcome != nil {
				if werr := writeJSON(cmd.OutOrStdout(), outcome); werr != nil {
					return werr
				}
			}
			if err != nil && !apperrors.IsType(err, apperrors.ErrorTypeInsufficientInput) {
				return err
			}
			if err != nil {
				log.Debug().Err(err).Msg("nothing to show")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&barcode, "barcode", "", "decoded barcode digits")
	cmd.Flags().StringVar(&text, "text", "", "label text as read from the package")
	cmd.Flags().StringVar(&language, "language", "en", "language for AI output and degraded copy")
	cmd.Flags().StringVar(&region, "region", "", "region tag such as GB or US")
	cmd.Flags().BoolVar(&offline, "offline", false, "never call the AI model")

	return cmd
}

// newOrchestrator wires an in-process pipeline that persists nothing.
func newOrchestrator(offline bool) (*services.CaptureOrchestrator, error) {
	medCatalog, err := openCatalog()
	if err != nil {
		return nil, err
	}

	var provider providers.MedicationExtractionProvider
	if !offline && cfg.OpenAI.APIKey != "" {
		client, err := openai.NewClient(&cfg.OpenAI)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize OpenAI client: %w", err)
		}
		provider = client
	}

	return services.NewCaptureOrchestrator(
		services.NewResolutionService(medCatalog, cfg.Pipeline),
		services.NewExtractionService(provider, nil, cfg.Pipeline),
		services.NewValidationService(cfg.Pipeline),
		nil,
		device.NewClientBarcodeDecoder(),
		device.NewClientTextRecognizer(0),
		cfg.Pipeline,
	), nil
}

// capture feeds already-read label text with full OCR confidence.
func capture(ctx context.Context, orchestrator *services.CaptureOrchestrator, barcode, text, language, region string) (*entities.CaptureOutcome, error) {
	image := &entities.CapturedImage{DecodedBarcode: barcode, RecognizedText: text}
	if text != "" {
		image.OCRConfidence = 1
	}
	return orchestrator.Capture(ctx, cliUser, image, services.CaptureOptions{
		Language: language,
		Region:   region,
	})
}
