package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ziadkadry99/partsdesk/internal/catalog"
)

type searchRequest struct {
	Query         string `json:"query"`
	Brand         string `json:"brand"`
	ApplianceType string `json:"appliance_type"`
	Limit         int    `json:"limit"`
}

func decodeSearch(w http.ResponseWriter, r *http.Request, defaultLimit int) (searchRequest, bool) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return req, false
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return req, false
	}
	if req.Limit <= 0 || req.Limit > 50 {
		req.Limit = defaultLimit
	}
	return req, true
}

func (a *API) catalogReady(w http.ResponseWriter) bool {
	if a.deps.Catalog == nil {
		writeError(w, http.StatusServiceUnavailable, "catalog unavailable")
		return false
	}
	return true
}

func (a *API) handleSearchParts(w http.ResponseWriter, r *http.Request) {
	if !a.catalogReady(w) {
		return
	}
	req, ok := decodeSearch(w, r, 10)
	if !ok {
		return
	}
	parts, err := a.deps.Catalog.SearchParts(r.Context(), catalog.PartFilter{
		Query:         req.Query,
		Brand:         req.Brand,
		ApplianceType: catalog.ParseApplianceType(req.ApplianceType),
		Limit:         req.Limit,
	})
	if err != nil {
		a.logger.Error("part search failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	if parts == nil {
		parts = []catalog.Part{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": parts})
}

func (a *API) handleSearchRepairs(w http.ResponseWriter, r *http.Request) {
	if !a.catalogReady(w) {
		return
	}
	req, ok := decodeSearch(w, r, 5)
	if !ok {
		return
	}
	repairs, err := a.deps.Catalog.SearchRepairs(r.Context(), catalog.RepairFilter{
		Query:         req.Query,
		ApplianceType: catalog.ParseApplianceType(req.ApplianceType),
		Limit:         req.Limit,
	})
	if err != nil {
		a.logger.Error("repair search failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	if repairs == nil {
		repairs = []catalog.Repair{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": repairs})
}

func (a *API) handleGetPart(w http.ResponseWriter, r *http.Request) {
	if !a.catalogReady(w) {
		return
	}
	part, err := a.deps.Catalog.GetPart(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		writeError(w, http.StatusNotFound, "part not found")
	case err != nil:
		a.logger.Error("part lookup failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "lookup failed")
	default:
		writeJSON(w, http.StatusOK, part)
	}
}

func (a *API) handleCompatibility(w http.ResponseWriter, r *http.Request) {
	if a.deps.Compat == nil {
		writeError(w, http.StatusServiceUnavailable, "compatibility checks unavailable")
		return
	}
	var req struct {
		PartID      string `json:"part_id"`
		ModelNumber string `json:"model_number"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PartID == "" || req.ModelNumber == "" {
		writeError(w, http.StatusBadRequest, "part_id and model_number are required")
		return
	}
	fact := a.deps.Compat.Check(r.Context(), req.PartID, req.ModelNumber)
	writeJSON(w, http.StatusOK, map[string]any{
		"part_id":    fact.PartID,
		"model_id":   fact.ModelID,
		"status":     fact.Status,
		"confidence": fact.Confidence,
		"source":     fact.Source,
		"summary":    fact.Summary(),
	})
}
