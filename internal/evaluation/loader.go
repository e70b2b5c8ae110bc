package evaluation

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type caseFile struct {
	Cases []Case `yaml:"cases"`
}

// LoadCases reads and parses a labelled case set. JSON files parse too since
// they are valid YAML.
func LoadCases(path string) ([]Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cases file: %w", err)
	}

	var file caseFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse cases: %w", err)
	}

	return file.Cases, nil
}

// ValidateCases checks that all cases have required fields and valid values.
func ValidateCases(cases []Case) error {
	seen := make(map[string]struct{}, len(cases))

	for i, c := range cases {
		if c.ID == "" {
			return fmt.Errorf("case at index %d: missing id", i)
		}
		if _, dup := seen[c.ID]; dup {
			return fmt.Errorf("case at index %d: duplicate id %q", i, c.ID)
		}
		seen[c.ID] = struct{}{}

		if strings.TrimSpace(c.Barcode) == "" && strings.TrimSpace(c.Text) == "" {
			return fmt.Errorf("case %q: needs a barcode or text", c.ID)
		}
		if !c.Difficulty.IsValid() {
			return fmt.Errorf("case %q: invalid difficulty %q (must be easy/medium/hard)", c.ID, c.Difficulty)
		}
		if c.ExpectedBrand == "" && !c.ExpectBlocked {
			return fmt.Errorf("case %q: expected_brand is required unless expect_blocked is set", c.ID)
		}
	}

	return nil
}
