package services

import (
	"strings"

	"github.com/zatekoja/medscan/backend/internal/catalog"
	"github.com/zatekoja/medscan/backend/internal/domain/entities"
	"github.com/zatekoja/medscan/backend/pkg/config"
)

// ResolutionService resolves raw signals against the known-medication catalog.
// It performs no I/O and never fails: a lookup either hits or misses.
type ResolutionService struct {
	catalog         *catalog.Catalog
	cfg             config.PipelineConfig
	genericKeywords []string
}

// NewResolutionService creates a resolver over an immutable catalog.
func NewResolutionService(c *catalog.Catalog, cfg config.PipelineConfig) *ResolutionService {
	keywords := make([]string, 0, len(cfg.CommonGenericKeywords))
	for _, k := range cfg.CommonGenericKeywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			keywords = append(keywords, k)
		}
	}
	return &ResolutionService{
		catalog:         c,
		cfg:             cfg,
		genericKeywords: keywords,
	}
}

// ResolveByBarcode looks up an exact barcode. Only surrounding whitespace is
// removed; leading zeros and check digits are kept as scanned.
func (s *ResolutionService) ResolveByBarcode(code string) (*entities.MedicationRecord, bool) {
	entry, ok := s.catalog.LookupBarcode(code)
	if !ok {
		return nil, false
	}
	return entry.ToRecord(entities.SourceBarcodeCatalog, s.cfg.BarcodeConfidence), true
}

// ResolveByText matches OCR text against the catalog. Tiers are tried in order
// and the first catalog entry that satisfies a tier wins:
//
//  1. product name contained in the text, then generic name contained in the text
//  2. a product or generic name token longer than three characters
//  3. a dosage such as "500mg" together with a common generic keyword
func (s *ResolutionService) ResolveByText(text string) (*entities.MedicationRecord, bool) {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return nil, false
	}

	entry, ok := s.matchText(lower)
	if !ok {
		return nil, false
	}
	return entry.ToRecord(entities.SourceTextCatalog, s.cfg.TextConfidence), true
}

func (s *ResolutionService) matchText(lower string) (entities.CatalogEntry, bool) {
	if e, ok := s.catalog.FindByProductName(lower); ok {
		return e, true
	}
	if e, ok := s.catalog.FindByGenericName(lower); ok {
		return e, true
	}
	if e, ok := s.catalog.FindByNameToken(lower); ok {
		return e, true
	}

	dosage, ok := catalog.FirstDosage(lower)
	if !ok || !s.hasGenericKeyword(lower) {
		return entities.CatalogEntry{}, false
	}
	return s.catalog.FindByDosage(dosage)
}

func (s *ResolutionService) hasGenericKeyword(lower string) bool {
	for _, k := range s.genericKeywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// Catalog exposes the catalog the service resolves against.
func (s *ResolutionService) Catalog() *catalog.Catalog {
	return s.catalog
}
