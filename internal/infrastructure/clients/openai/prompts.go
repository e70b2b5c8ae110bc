package openai

import (
	"fmt"
	"strings"

	"github.com/zatekoja/medscan/backend/internal/domain/entities"
)

const medicationSystemPrompt = `You are a pharmacist assistant that identifies medications from text printed on packaging. Return ONLY a single JSON object with this schema:
{
  "brand_name": string (required, the product name as printed),
  "generic_name": string,
  "strength": string (e.g. "500mg"),
  "form": string (tablet, capsule, syrup, ...),
  "manufacturer": string,
  "active_ingredients": string[],
  "indications": string[],
  "contraindications": string[],
  "warnings": string[],
  "side_effects": string[],
  "usage_instructions": {
    "dosage": string,
    "frequency": string,
    "duration": string,
    "timing": string,
    "route": string,
    "special_instructions": string
  },
  "storage_instructions": string,
  "drug_interactions": string[],
  "pregnancy_safety": string,
  "age_restrictions": string,
  "confidence_score": number between 0 and 1 (how certain you are of the identification)
}
Respond with JSON only: no prose, no Markdown, no code fences. Use empty strings or empty arrays for unknown fields. Never invent a brand name; if the text does not identify a medication, return an empty brand_name and a low confidence_score.`

var languageNames = map[string]string{
	"en": "English",
	"es": "Spanish",
	"fr": "French",
	"de": "German",
	"it": "Italian",
	"pt": "Portuguese",
	"yo": "Yoruba",
	"ha": "Hausa",
	"ig": "Igbo",
	"hi": "Hindi",
}

func languageName(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if name, ok := languageNames[code]; ok {
		return name
	}
	if code == "" {
		return languageNames["en"]
	}
	return code
}

func buildMedicationUserPrompt(req *entities.ExtractionRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write every text field in %s.\n", languageName(req.Language))
	if region := strings.TrimSpace(req.Region); region != "" {
		fmt.Fprintf(&b, "Use product names, regulatory conventions and dosing guidance for region %s.\n", strings.ToUpper(region))
	}
	if barcode := strings.TrimSpace(req.Barcode); barcode != "" {
		fmt.Fprintf(&b, "Barcode on the package: %s\n", barcode)
	}
	fmt.Fprintf(&b, "Text recognized from the package:\n%s\n", strings.TrimSpace(req.Text))
	return b.String()
}
