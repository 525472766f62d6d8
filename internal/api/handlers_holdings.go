package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/portfolio-tracker/internal/models"
	"github.com/portfolio-tracker/internal/service"
)

// handleListHoldings handles GET /api/holdings - list raw holdings
func (s *Server) handleListHoldings(w http.ResponseWriter, r *http.Request) {
	holdings, err := s.holdingService.ListHoldings(r.Context())
	if err != nil {
		statusCode, code, message := mapServiceError(err)
		respondError(w, statusCode, code, message, nil)
		return
	}

	if holdings == nil {
		holdings = []models.Holding{}
	}
	respondJSON(w, http.StatusOK, holdings)
}

// handleAddHolding handles POST /api/holdings - add a holding
func (s *Server) handleAddHolding(w http.ResponseWriter, r *http.Request) {
	var req service.AddHoldingInput
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	holding, err := s.holdingService.AddHolding(r.Context(), &req)
	if err != nil {
		statusCode, code, message := mapServiceError(err)
		respondError(w, statusCode, code, message, nil)
		return
	}

	respondJSON(w, http.StatusCreated, holding)
}

// handleUpdateHolding handles PUT /api/holdings/{asset}/{source} - update by key
func (s *Server) handleUpdateHolding(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	assetID := vars["asset"]
	source := vars["source"]

	var req service.UpdateHoldingInput
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	holding, err := s.holdingService.UpdateHolding(r.Context(), assetID, source, &req)
	if err != nil {
		statusCode, code, message := mapServiceError(err)
		respondError(w, statusCode, code, message, nil)
		return
	}

	respondJSON(w, http.StatusOK, holding)
}

// handleRemoveHolding handles DELETE /api/holdings/{asset}/{source} - remove by key
func (s *Server) handleRemoveHolding(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	assetID := vars["asset"]
	source := vars["source"]

	if err := s.holdingService.RemoveHolding(r.Context(), assetID, source); err != nil {
		statusCode, code, message := mapServiceError(err)
		respondError(w, statusCode, code, message, nil)
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}
