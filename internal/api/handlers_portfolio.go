package api

import (
	"net/http"

	"github.com/portfolio-tracker/internal/logging"
	"github.com/portfolio-tracker/internal/models"
	"github.com/portfolio-tracker/internal/service"
)

// PortfolioResponse is the aggregated portfolio view returned to clients.
type PortfolioResponse struct {
	Assets            map[string]*models.AssetAggregate `json:"assets"`
	TotalValue        float64                           `json:"totalValue"`
	TotalMonthlyYield float64                           `json:"totalMonthlyYield"`
	PriceDegraded     bool                              `json:"priceDegraded"`
}

// handleGetPortfolio handles GET /api/portfolio - current aggregated view.
// Snapshotting rides along on this read: the snapshotter decides whether
// enough time has elapsed, and its outcome never fails the request.
func (s *Server) handleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	result, err := s.portfolioService.GetValuation(r.Context())
	if err != nil {
		statusCode, code, message := mapServiceError(err)
		respondError(w, statusCode, code, message, nil)
		return
	}

	s.maybeSnapshot(r, result)

	respondJSON(w, http.StatusOK, &PortfolioResponse{
		Assets:            result.Valuation.Assets,
		TotalValue:        result.Valuation.TotalValue,
		TotalMonthlyYield: result.Valuation.TotalMonthlyYield,
		PriceDegraded:     result.PriceSourceDegraded,
	})
}

// maybeSnapshot invokes the snapshotter as a side effect of a portfolio read.
func (s *Server) maybeSnapshot(r *http.Request, result *service.ValuationResult) {
	logger := logging.FromContext(r.Context())

	_, err := s.snapshotter.MaybeSnapshot(r.Context(), service.SnapshotInput{
		TotalValue:         result.Valuation.TotalValue,
		HoldingCount:       result.Valuation.HoldingCount,
		ReferenceUnitPrice: result.ReferenceUnitPrice,
	})
	if err != nil {
		// A zero total under a degraded price source is rejected by the
		// snapshotter; the portfolio view itself is still served.
		logger.WithError(err).Warn("Snapshot skipped")
	}
}

// handleGetHistory handles GET /api/history - snapshot series, ascending.
func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	snapshots, err := s.snapshotter.History(r.Context())
	if err != nil {
		statusCode, code, message := mapServiceError(err)
		respondError(w, statusCode, code, message, nil)
		return
	}

	if snapshots == nil {
		snapshots = []models.HistorySnapshot{}
	}
	respondJSON(w, http.StatusOK, snapshots)
}
