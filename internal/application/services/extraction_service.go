package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/zatekoja/medscan/backend/internal/domain/entities"
	"github.com/zatekoja/medscan/backend/internal/domain/providers"
	"github.com/zatekoja/medscan/backend/internal/infrastructure/observability"
	"github.com/zatekoja/medscan/backend/pkg/config"
	apperrors "github.com/zatekoja/medscan/backend/pkg/errors"
)

const extractionCacheKeyPrefix = "medscan:extraction:"

// errUnparseable marks a model response that could not be turned into a
// record. It never leaves this package: Extract degrades instead.
var errUnparseable = errors.New("unparseable extraction response")

// ExtractionService is the AI fallback used when catalog resolution misses.
type ExtractionService struct {
	provider providers.MedicationExtractionProvider
	cache    providers.CacheProvider
	cfg      config.PipelineConfig
}

// NewExtractionService creates the AI fallback. cache may be nil.
func NewExtractionService(
	provider providers.MedicationExtractionProvider,
	cache providers.CacheProvider,
	cfg config.PipelineConfig,
) *ExtractionService {
	return &ExtractionService{
		provider: provider,
		cache:    cache,
		cfg:      cfg,
	}
}

// HasSufficientInput reports whether text or barcode carry enough signal to
// justify a model call.
func (s *ExtractionService) HasSufficientInput(text, barcode string) bool {
	if strings.TrimSpace(barcode) != "" {
		return true
	}
	return s.HasUsableText(text)
}

// HasUsableText reports whether text alone is long enough to build a record
// from when the model cannot be reached.
func (s *ExtractionService) HasUsableText(text string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(text)) >= s.cfg.MinTextLength
}

// Extract asks the model to identify the medication. Provider failures,
// including the timeout, are returned as an ExtractionError. Responses that
// cannot be parsed never fail: they yield a Degraded record.
func (s *ExtractionService) Extract(ctx context.Context, req *entities.ExtractionRequest) (*entities.MedicationRecord, error) {
	if req == nil {
		return nil, apperrors.NewValidationError("extraction request is required")
	}
	if !s.HasSufficientInput(req.Text, req.Barcode) {
		return nil, apperrors.NewInsufficientInputError("not enough text or barcode to identify a medication")
	}
	if s.provider == nil {
		return nil, apperrors.NewExtractionError("no extraction provider configured", nil)
	}

	logger := observability.LoggerFromContext(ctx)
	cacheKey := ExtractionCacheKey(req)

	if cached := s.fromCache(ctx, cacheKey); cached != nil {
		logger.Debug().Str("cache_key", cacheKey).Msg("extraction cache hit")
		return cached, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.ExtractionTimeout)
	defer cancel()

	raw, err := s.provider.ExtractMedication(callCtx, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return nil, apperrors.NewExtractionError(
				fmt.Sprintf("ai extraction timed out after %s", s.cfg.ExtractionTimeout), err,
			)
		}
		return nil, apperrors.NewExtractionError("ai extraction failed", err)
	}

	record, err := s.parse(raw, req)
	if err != nil {
		logger.Warn().Err(err).Int("response_length", len(raw)).Msg("ai response unusable, returning degraded record")
		return s.DegradedRecord(req), nil
	}

	s.toCache(ctx, cacheKey, record)
	return record, nil
}

// aiPayload mirrors the JSON shape the prompt asks for. Confidence stays raw
// so that a missing or non-numeric value can be told apart from zero.
type aiPayload struct {
	BrandName           string                     `json:"brand_name"`
	GenericName         string                     `json:"generic_name"`
	Strength            string                     `json:"strength"`
	Form                string                     `json:"form"`
	Manufacturer        string                     `json:"manufacturer"`
	ActiveIngredients   []string                   `json:"active_ingredients"`
	Indications         []string                   `json:"indications"`
	Contraindications   []string                   `json:"contraindications"`
	Warnings            []string                   `json:"warnings"`
	SideEffects         []string                   `json:"side_effects"`
	UsageInstructions   entities.UsageInstructions `json:"usage_instructions"`
	StorageInstructions string                     `json:"storage_instructions"`
	DrugInteractions    []string                   `json:"drug_interactions"`
	PregnancySafety     string                     `json:"pregnancy_safety"`
	AgeRestrictions     string                     `json:"age_restrictions"`
	ConfidenceScore     json.RawMessage            `json:"confidence_score"`
}

func (s *ExtractionService) parse(raw string, req *entities.ExtractionRequest) (*entities.MedicationRecord, error) {
	cleaned := StripCodeFences(raw)
	if cleaned == "" {
		return nil, fmt.Errorf("%w: empty response", errUnparseable)
	}
	if !strings.HasPrefix(cleaned, "{") {
		return nil, fmt.Errorf("%w: response is not a JSON object", errUnparseable)
	}

	var payload aiPayload
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", errUnparseable, err)
	}

	record := &entities.MedicationRecord{
		BrandName:           strings.TrimSpace(payload.BrandName),
		GenericName:         strings.TrimSpace(payload.GenericName),
		Strength:            strings.TrimSpace(payload.Strength),
		Form:                strings.TrimSpace(payload.Form),
		Manufacturer:        strings.TrimSpace(payload.Manufacturer),
		ActiveIngredients:   payload.ActiveIngredients,
		Indications:         payload.Indications,
		Contraindications:   payload.Contraindications,
		Warnings:            payload.Warnings,
		SideEffects:         payload.SideEffects,
		UsageInstructions:   payload.UsageInstructions,
		StorageInstructions: payload.StorageInstructions,
		DrugInteractions:    payload.DrugInteractions,
		PregnancySafety:     payload.PregnancySafety,
		AgeRestrictions:     payload.AgeRestrictions,
		Barcode:             strings.TrimSpace(req.Barcode),
		Region:              strings.ToUpper(strings.TrimSpace(req.Region)),
		ConfidenceScore:     s.confidence(payload.ConfidenceScore),
		SourceKind:          entities.SourceAIExtraction,
	}
	record.EnsureLists()

	if record.BrandName == "" {
		record.BrandName = entities.PlaceholderBrand(record.Barcode)
		record.ConfidenceScore = math.Min(record.ConfidenceScore, s.cfg.DegradedConfidence)
	}
	return record, nil
}

// confidence turns the model-reported value into a score in [0,1]. Missing,
// null, non-numeric and NaN values fall back to the configured default.
func (s *ExtractionService) confidence(raw json.RawMessage) float64 {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || (raw[0] != '-' && (raw[0] < '0' || raw[0] > '9')) {
		return s.cfg.DefaultAIConfidence
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil || math.IsNaN(v) {
		return s.cfg.DefaultAIConfidence
	}
	return math.Max(0, math.Min(1, v))
}

// DegradedRecord synthesizes the minimal record returned when the model output
// is unusable.
func (s *ExtractionService) DegradedRecord(req *entities.ExtractionRequest) *entities.MedicationRecord {
	copyText := degradedText(req.Language)
	record := &entities.MedicationRecord{
		BrandName: s.degradedBrand(req.Text),
		Warnings:  []string{copyText.warning},
		UsageInstructions: entities.UsageInstructions{
			SpecialNotes: copyText.instructions,
		},
		Barcode:         strings.TrimSpace(req.Barcode),
		Region:          strings.ToUpper(strings.TrimSpace(req.Region)),
		ConfidenceScore: s.cfg.DegradedConfidence,
		SourceKind:      entities.SourceDegraded,
	}
	record.EnsureLists()
	return record
}

func (s *ExtractionService) degradedBrand(text string) string {
	name := strings.Join(strings.Fields(text), " ")
	if name == "" {
		return entities.UnidentifiedMedicationName
	}
	limit := s.cfg.DegradedNameLength
	if limit > 0 && utf8.RuneCountInString(name) > limit {
		name = strings.TrimSpace(string([]rune(name)[:limit])) + "..."
	}
	return name
}

type degradedCopy struct {
	warning      string
	instructions string
}

var degradedCopies = map[string]degradedCopy{
	"en": {
		warning:      "This medication could not be identified. Do not take it based on this result.",
		instructions: "Ask a pharmacist or doctor to confirm the medication and how to take it.",
	},
	"es": {
		warning:      "No se pudo identificar este medicamento. No lo tome basándose en este resultado.",
		instructions: "Pida a un farmacéutico o médico que confirme el medicamento y cómo tomarlo.",
	},
	"fr": {
		warning:      "Ce médicament n'a pas pu être identifié. Ne le prenez pas sur la base de ce résultat.",
		instructions: "Demandez à un pharmacien ou à un médecin de confirmer le médicament et sa posologie.",
	},
	"de": {
		warning:      "Dieses Medikament konnte nicht erkannt werden. Nehmen Sie es nicht auf Grundlage dieses Ergebnisses ein.",
		instructions: "Lassen Sie das Medikament und die Einnahme von einer Apotheke oder einem Arzt bestätigen.",
	},
}

func degradedText(language string) degradedCopy {
	lang := strings.ToLower(strings.TrimSpace(language))
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		lang = lang[:i]
	}
	if c, ok := degradedCopies[lang]; ok {
		return c
	}
	return degradedCopies["en"]
}

// StripCodeFences removes a surrounding Markdown code fence, with or without
// a language tag, and trims whitespace.
func StripCodeFences(raw string) string {
	cleaned := strings.TrimSpace(raw)
	if !strings.HasPrefix(cleaned, "```") {
		return cleaned
	}
	cleaned = strings.TrimPrefix(cleaned, "```")
	if nl := strings.IndexByte(cleaned, '\n'); nl >= 0 && !strings.ContainsAny(cleaned[:nl], "{[") {
		cleaned = cleaned[nl+1:]
	} else if len(cleaned) >= 4 && strings.EqualFold(cleaned[:4], "json") {
		cleaned = cleaned[4:]
	}
	if end := strings.Index(cleaned, "```"); end >= 0 {
		cleaned = cleaned[:end]
	}
	return strings.TrimSpace(cleaned)
}

// ExtractionCacheKey fingerprints the inputs that determine a model answer.
func ExtractionCacheKey(req *entities.ExtractionRequest) string {
	h := sha256.New()
	for _, part := range []string{
		strings.ToLower(strings.Join(strings.Fields(req.Text), " ")),
		strings.TrimSpace(req.Barcode),
		strings.ToLower(strings.TrimSpace(req.Language)),
		strings.ToUpper(strings.TrimSpace(req.Region)),
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return extractionCacheKeyPrefix + hex.EncodeToString(h.Sum(nil))
}

func (s *ExtractionService) fromCache(ctx context.Context, key string) *entities.MedicationRecord {
	if s.cache == nil {
		return nil
	}
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, providers.ErrCacheMiss) {
			observability.LoggerFromContext(ctx).Warn().Err(err).Msg("extraction cache read failed")
		}
		return nil
	}
	var record entities.MedicationRecord
	if err := json.Unmarshal(data, &record); err != nil || record.SourceKind != entities.SourceAIExtraction {
		return nil
	}
	record.EnsureLists()
	return &record
}

func (s *ExtractionService) toCache(ctx context.Context, key string, record *entities.MedicationRecord) {
	if s.cache == nil || s.cfg.ExtractionCacheTTL <= 0 {
		return
	}
	if record.SourceKind != entities.SourceAIExtraction || record.HasPlaceholderBrand() {
		return
	}
	data, err := json.Marshal(record)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data, s.cfg.ExtractionCacheTTL); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Msg("extraction cache write failed")
	}
}
