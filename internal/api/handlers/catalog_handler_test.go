package handlers_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/medscan/backend/internal/domain/entities"
)

type catalogMatch struct {
	Record *entities.MedicationRecord `json:"record"`
	Risk   entities.RiskAssessment    `json:"risk"`
}

func TestCatalog_GetByBarcode(t *testing.T) {
	api := newTestAPI(t, nil)

	w := api.do(t, http.MethodGet, "/api/catalog/barcodes/0305730169301", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var match catalogMatch
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &match))
	assert.Equal(t, "Advil", match.Record.BrandName)
	assert.Equal(t, entities.SourceBarcodeCatalog, match.Record.SourceKind)
	assert.False(t, match.Risk.BlocksPresentation)

	w = api.do(t, http.MethodGet, "/api/catalog/barcodes/0000000000000", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCatalog_Match(t *testing.T) {
	api := newTestAPI(t, nil)

	w := api.do(t, http.MethodPost, "/api/catalog/match", "", map[string]string{"text": "LANTUS SoloStar pen"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var match catalogMatch
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &match))
	assert.Equal(t, "Lantus", match.Record.BrandName)
	assert.True(t, match.Risk.HasFlag(entities.RiskFlagHighRiskMed))

	w = api.do(t, http.MethodPost, "/api/catalog/match", "", map[string]string{"text": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(t, http.MethodPost, "/api/catalog/match", "", map[string]string{"text": "unlabelled bottle"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCatalog_ListEntries(t *testing.T) {
	api := newTestAPI(t, nil)

	w := api.do(t, http.MethodGet, "/api/catalog/entries?region=gb", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var entries []entities.CatalogEntry
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &entries))
	require.NotEmpty(t, entries)
	for _, e := range entries {
		assert.Equal(t, "GB", e.Region)
	}
	assert.Equal(t, "Panadol Extra", entries[0].ProductName)

	w = api.do(t, http.MethodGet, "/api/catalog/entries", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var all []entities.CatalogEntry
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &all))
	assert.Greater(t, len(all), len(entries))
}
