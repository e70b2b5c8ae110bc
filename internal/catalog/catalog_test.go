package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/medscan/backend/internal/domain/entities"
)

func TestDefault_ContainsReferenceEntries(t *testing.T) {
	c := Default()
	require.NotNil(t, c)
	assert.Greater(t, c.Len(), 20)

	panadol, ok := c.LookupBarcode("5000159461788")
	require.True(t, ok)
	assert.Equal(t, "Panadol", panadol.ProductName)
	assert.Equal(t, "Paracetamol", panadol.GenericName)

	advil, ok := c.FindByProductName("advil")
	require.True(t, ok)
	assert.Equal(t, "Ibuprofen", advil.GenericName)

	assert.Subset(t, c.Regions(), []string{"GB", "US", "NG", "IN", "AU"})
}

func TestDefault_BarcodesAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for _, e := range Default().Entries() {
		if e.Barcode == "" {
			continue
		}
		assert.False(t, seen[e.Barcode], "duplicate barcode %s", e.Barcode)
		seen[e.Barcode] = true
	}
}

func TestDefault_NoProductNameShadowsALaterEntry(t *testing.T) {
	assert.Empty(t, Default().Shadows())
}

func TestShadows(t *testing.T) {
	c, err := New([]entities.CatalogEntry{
		{ProductName: "Panadol"},
		{ProductName: "Nurofen"},
		{ProductName: "Panadol Extra"},
		{ProductName: "Nurofen Plus"},
	})
	require.NoError(t, err)

	shadows := c.Shadows()
	require.Len(t, shadows, 2)
	assert.Equal(t, "Panadol Extra", shadows[0].Entry.ProductName)
	assert.Equal(t, "Panadol", shadows[0].ShadowedBy.ProductName)
	assert.Equal(t, "Nurofen Plus", shadows[1].Entry.ProductName)
}

func TestNew_RejectsDuplicateBarcode(t *testing.T) {
	_, err := New([]entities.CatalogEntry{
		{Barcode: "111", ProductName: "First"},
		{Barcode: " 111 ", ProductName: "Second"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already used by \"First\"")
}

func TestNew_RejectsEmptyProductName(t *testing.T) {
	_, err := New([]entities.CatalogEntry{{Barcode: "111", ProductName: "  "}})
	require.Error(t, err)
}

func TestLookupBarcode(t *testing.T) {
	c, err := New([]entities.CatalogEntry{
		{Barcode: "0123", ProductName: "Alpha"},
		{ProductName: "NoCode"},
	})
	require.NoError(t, err)

	tests := []struct {
		name  string
		code  string
		found bool
	}{
		{"exact", "0123", true},
		{"surrounding whitespace", "  0123\n", true},
		{"leading zeros are significant", "123", false},
		{"empty", "", false},
		{"whitespace only", "   ", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := c.LookupBarcode(tt.code)
			assert.Equal(t, tt.found, ok)
		})
	}
}

func TestFindByNameToken_SkipsShortTokens(t *testing.T) {
	c, err := New([]entities.CatalogEntry{
		{ProductName: "Pan 40", GenericName: "Pantoprazole"},
	})
	require.NoError(t, err)

	_, ok := c.FindByNameToken("a pan on the stove")
	assert.False(t, ok)

	e, ok := c.FindByNameToken("contains pantoprazole sodium")
	require.True(t, ok)
	assert.Equal(t, "Pan 40", e.ProductName)
}

func TestFindByDosage_KeepsCatalogOrder(t *testing.T) {
	c, err := New([]entities.CatalogEntry{
		{ProductName: "First", Strength: "500 mg"},
		{ProductName: "Second", Strength: "500mg / 65mg"},
	})
	require.NoError(t, err)

	e, ok := c.FindByDosage("500MG")
	require.True(t, ok)
	assert.Equal(t, "First", e.ProductName)

	e, ok = c.FindByDosage("65 mg")
	require.True(t, ok)
	assert.Equal(t, "Second", e.ProductName)

	_, ok = c.FindByDosage("10mg")
	assert.False(t, ok)
}

func TestFindByDosage_MatchesWithinStrength(t *testing.T) {
	c, err := New([]entities.CatalogEntry{
		{ProductName: "Glucophage SR", Strength: "1500 mg"},
		{ProductName: "Panadol", Strength: "500mg"},
		{ProductName: "No Strength"},
	})
	require.NoError(t, err)

	e, ok := c.FindByDosage("500mg")
	require.True(t, ok)
	assert.Equal(t, "Glucophage SR", e.ProductName)

	_, ok = c.FindByDosage("   ")
	assert.False(t, ok)
}

func TestExtractDosages(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"500 mg", []string{"500mg"}},
		{"Take 2.5ML twice", []string{"2.5ml"}},
		{"200mg ibuprofen and 10 g gel", []string{"200mg", "10g"}},
		{"no dose here", nil},
		{"500mgs", nil},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractDosages(tt.in))
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	data := []byte(`entries:
  - barcode: "999"
    product_name: Testol
    generic_name: Testamine
    strength: 5mg
    region: GB
`)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	c, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())

	e, ok := c.LookupBarcode("999")
	require.True(t, ok)
	assert.Equal(t, "Testamine", e.GenericName)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
