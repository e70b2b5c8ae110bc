package entities

import "strings"

// SourceKind records which stage of the pipeline produced a MedicationRecord.
type SourceKind string

const (
	SourceBarcodeCatalog SourceKind = "barcode_catalog"
	SourceTextCatalog    SourceKind = "text_catalog"
	SourceAIExtraction   SourceKind = "ai_extraction"
	SourceDegraded       SourceKind = "degraded"
)

// UnidentifiedMedicationName is the placeholder brand used when nothing better is known.
const UnidentifiedMedicationName = "Unidentified Medication"

// CatalogEntry is a reference medication from the known-medication catalog.
type CatalogEntry struct {
	Barcode      string `json:"barcode,omitempty" yaml:"barcode,omitempty"`
	ProductName  string `json:"product_name" yaml:"product_name"`
	GenericName  string `json:"generic_name" yaml:"generic_name"`
	Manufacturer string `json:"manufacturer" yaml:"manufacturer"`
	Strength     string `json:"strength" yaml:"strength"`
	Form         string `json:"form" yaml:"form"`
	Region       string `json:"region" yaml:"region"`
}

// UsageInstructions describes how a medication is taken.
type UsageInstructions struct {
	Dosage       string `json:"dosage,omitempty"`
	Frequency    string `json:"frequency,omitempty"`
	Duration     string `json:"duration,omitempty"`
	Timing       string `json:"timing,omitempty"`
	Route        string `json:"route,omitempty"`
	SpecialNotes string `json:"special_instructions,omitempty"`
}

// MedicationRecord is the resolved, confidence-scored output of the pipeline.
type MedicationRecord struct {
	BrandName           string            `json:"brand_name"`
	GenericName         string            `json:"generic_name,omitempty"`
	Strength            string            `json:"strength,omitempty"`
	Form                string            `json:"form,omitempty"`
	Manufacturer        string            `json:"manufacturer,omitempty"`
	ActiveIngredients   []string          `json:"active_ingredients"`
	Indications         []string          `json:"indications"`
	Contraindications   []string          `json:"contraindications"`
	Warnings            []string          `json:"warnings"`
	SideEffects         []string          `json:"side_effects"`
	UsageInstructions   UsageInstructions `json:"usage_instructions"`
	StorageInstructions string            `json:"storage_instructions,omitempty"`
	DrugInteractions    []string          `json:"drug_interactions"`
	PregnancySafety     string            `json:"pregnancy_safety,omitempty"`
	AgeRestrictions     string            `json:"age_restrictions,omitempty"`
	Barcode             string            `json:"barcode,omitempty"`
	Region              string            `json:"region,omitempty"`
	ConfidenceScore     float64           `json:"confidence_score"`
	SourceKind          SourceKind        `json:"source_kind"`
}

// ToRecord builds a MedicationRecord from a catalog entry.
func (e CatalogEntry) ToRecord(source SourceKind, confidence float64) *MedicationRecord {
	record := &MedicationRecord{
		BrandName:    e.ProductName,
		GenericName:  e.GenericName,
		Strength:     e.Strength,
		Form:         e.Form,
		Manufacturer: e.Manufacturer,
		Barcode:      e.Barcode,
		Region:       e.Region,
		UsageInstructions: UsageInstructions{
			Dosage: e.Strength,
		},
		ConfidenceScore: confidence,
		SourceKind:      source,
	}
	if e.GenericName != "" {
		record.ActiveIngredients = []string{e.GenericName}
	}
	record.EnsureLists()
	return record
}

// EnsureLists replaces nil list fields with empty slices so they encode as [].
func (r *MedicationRecord) EnsureLists() {
	for _, list := range []*[]string{
		&r.ActiveIngredients,
		&r.Indications,
		&r.Contraindications,
		&r.Warnings,
		&r.SideEffects,
		&r.DrugInteractions,
	} {
		if *list == nil {
			*list = []string{}
		}
	}
}

// HasPlaceholderBrand reports whether no real brand name could be established.
func (r *MedicationRecord) HasPlaceholderBrand() bool {
	if r.SourceKind == SourceDegraded {
		return true
	}
	return strings.HasPrefix(strings.TrimSpace(r.BrandName), UnidentifiedMedicationName)
}

// PlaceholderBrand returns the placeholder brand name for an optional barcode.
func PlaceholderBrand(barcode string) string {
	if barcode = strings.TrimSpace(barcode); barcode != "" {
		return UnidentifiedMedicationName + " (" + barcode + ")"
	}
	return UnidentifiedMedicationName
}
