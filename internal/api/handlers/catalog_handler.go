package handlers

import (
	"net/http"
	"strings"

	"github.com/zatekoja/medscan/backend/internal/application/services"
	"github.com/zatekoja/medscan/backend/internal/domain/entities"
)

// CatalogHandler serves read-only catalog lookups.
type CatalogHandler struct {
	resolver  *services.ResolutionService
	validator *services.ValidationService
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(resolver *services.ResolutionService, validator *services.ValidationService) *CatalogHandler {
	return &CatalogHandler{
		resolver:  resolver,
		validator: validator,
	}
}

type matchRequest struct {
	Text string `json:"text"`
}

type matchResponse struct {
	Record *entities.MedicationRecord `json:"record"`
	Risk   entities.RiskAssessment    `json:"risk"`
}

// GetByBarcode handles GET /api/catalog/barcodes/{code}
func (h *CatalogHandler) GetByBarcode(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimSpace(r.PathValue("code"))
	if code == "" {
		respondWithError(w, http.StatusBadRequest, "barcode is required")
		return
	}

	record, ok := h.resolver.ResolveByBarcode(code)
	if !ok {
		respondWithError(w, http.StatusNotFound, "barcode not in catalog")
		return
	}
	respondWithData(w, http.StatusOK, matchResponse{Record: record, Risk: h.validator.Validate(record)})
}

// Match handles POST /api/catalog/match
func (h *CatalogHandler) Match(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithAppError(w, err, nil)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		respondWithError(w, http.StatusBadRequest, "text is required")
		return
	}

	record, ok := h.resolver.ResolveByText(req.Text)
	if !ok {
		respondWithError(w, http.StatusNotFound, "no catalog match")
		return
	}
	respondWithData(w, http.StatusOK, matchResponse{Record: record, Risk: h.validator.Validate(record)})
}

// ListEntries handles GET /api/catalog/entries?region=GB
func (h *CatalogHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	region := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("region")))

	entries := h.resolver.Catalog().Entries()
	if region != "" {
		filtered := entries[:0]
		for _, e := range entries {
			if strings.EqualFold(e.Region, region) {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}
	respondWithData(w, http.StatusOK, entries)
}
