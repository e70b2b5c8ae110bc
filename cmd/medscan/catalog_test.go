package main

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/medscan/backend/internal/domain/entities"
)

const goodCatalog = `entries:
  - barcode: "111"
    product_name: Calpol Six Plus
    generic_name: Paracetamol
    region: GB
  - barcode: "222"
    product_name: Calpol
    generic_name: Paracetamol
    region: GB
`

func TestCatalogList_Table(t *testing.T) {
	out, err := execute(t, "catalog", "list", "--region", "gb")
	require.NoError(t, err)

	assert.Contains(t, out, "BARCODE")
	assert.Contains(t, out, "Panadol Extra")
	assert.NotContains(t, out, "Advil")
}

func TestCatalogList_JSONFromFile(t *testing.T) {
	path := writeFile(t, "catalog.yaml", goodCatalog)

	out, err := execute(t, "--catalog", path, "catalog", "list", "--json")
	require.NoError(t, err)

	var entries []entities.CatalogEntry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "Calpol Six Plus", entries[0].ProductName)
}

func TestCatalogCheck(t *testing.T) {
	tests := []struct {
		name       string
		content    string
		wantErr    string
		wantOutput string
	}{
		{
			name:       "valid catalog",
			content:    goodCatalog,
			wantOutput: "2 entries, regions GB",
		},
		{
			name: "shadowed entry",
			content: `entries:
  - product_name: Calpol
  - product_name: Calpol Six Plus
`,
			wantErr:    "1 shadowed entries",
			wantOutput: `shadowed: "Calpol Six Plus" is listed after "Calpol"`,
		},
		{
			name: "duplicate barcode",
			content: `entries:
  - barcode: "111"
    product_name: First
  - barcode: "111"
    product_name: Second
`,
			wantErr: "already used",
		},
		{
			name:    "not yaml",
			content: "entries: [",
			wantErr: "failed to parse catalog",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "catalog.yaml", tt.content)
			out, err := execute(t, "catalog", "check", "--file", path)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Contains(t, out, tt.wantOutput)
		})
	}
}

func TestCatalogCheck_RequiresFile(t *testing.T) {
	_, err := execute(t, "catalog", "check")
	require.Error(t, err)
}
