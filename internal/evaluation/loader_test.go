package evaluation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/zatekoja/medscan/backend/internal/domain/entities"
)

func TestLoadCases_ValidFile(t *testing.T) {
	content := `cases:
  - id: c1
    barcode: "5000159461788"
    expected_brand: Panadol
    expected_source: barcode_catalog
    difficulty: easy
  - id: c2
    text: "COUMADIN 5mg tablets"
    region: US
    expected_brand: Coumadin
    high_risk: true
    difficulty: medium
`
	path := writeTempFile(t, "cases.yaml", content)

	cases, err := LoadCases(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cases) != 2 {
		t.Fatalf("expected 2 cases, got %d", len(cases))
	}
	if cases[0].Barcode != "5000159461788" {
		t.Errorf("expected barcode to stay a string, got %s", cases[0].Barcode)
	}
	if cases[0].ExpectedSource != entities.SourceBarcodeCatalog {
		t.Errorf("expected source barcode_catalog, got %s", cases[0].ExpectedSource)
	}
	if !cases[1].HighRisk {
		t.Error("expected c2 to be high risk")
	}
	if cases[1].Difficulty != DifficultyMedium {
		t.Errorf("expected difficulty medium, got %s", cases[1].Difficulty)
	}
}

func TestLoadCases_JSON(t *testing.T) {
	path := writeTempFile(t, "cases.json", `{"cases": [{"id": "c1", "text": "advil", "expected_brand": "Advil", "difficulty": "easy"}]}`)

	cases, err := LoadCases(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cases) != 1 || cases[0].ExpectedBrand != "Advil" {
		t.Errorf("unexpected cases: %+v", cases)
	}
}

func TestLoadCases_InvalidFile(t *testing.T) {
	_, err := LoadCases("/nonexistent/path.yaml")
	if err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestLoadCases_InvalidYAML(t *testing.T) {
	path := writeTempFile(t, "cases.yaml", "cases: [unterminated")
	_, err := LoadCases(path)
	if err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestDifficulty_Validation(t *testing.T) {
	tests := []struct {
		difficulty Difficulty
		valid      bool
	}{
		{DifficultyEasy, true},
		{DifficultyMedium, true},
		{DifficultyHard, true},
		{Difficulty("impossible"), false},
		{Difficulty(""), false},
	}
	for _, tt := range tests {
		got := tt.difficulty.IsValid()
		if got != tt.valid {
			t.Errorf("Difficulty(%q).IsValid() = %v, want %v", tt.difficulty, got, tt.valid)
		}
	}
}

func TestValidateCases(t *testing.T) {
	tests := []struct {
		name    string
		cases   []Case
		wantErr bool
	}{
		{"missing id", []Case{{Text: "advil", ExpectedBrand: "Advil", Difficulty: DifficultyEasy}}, true},
		{"no input", []Case{{ID: "c1", ExpectedBrand: "Advil", Difficulty: DifficultyEasy}}, true},
		{"bad difficulty", []Case{{ID: "c1", Text: "advil", ExpectedBrand: "Advil", Difficulty: "x"}}, true},
		{"no expectation", []Case{{ID: "c1", Text: "advil", Difficulty: DifficultyEasy}}, true},
		{"duplicate ids", []Case{
			{ID: "c1", Text: "advil", ExpectedBrand: "Advil", Difficulty: DifficultyEasy},
			{ID: "c1", Text: "panadol", ExpectedBrand: "Panadol", Difficulty: DifficultyEasy},
		}, true},
		{"valid", []Case{
			{ID: "c1", Text: "advil", ExpectedBrand: "Advil", Difficulty: DifficultyEasy},
			{ID: "c2", Text: "unknown label", ExpectBlocked: true, Difficulty: DifficultyHard},
		}, false},
	}
	for _, tt := range tests {
		err := ValidateCases(tt.cases)
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: ValidateCases() error = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
	}
}

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}
