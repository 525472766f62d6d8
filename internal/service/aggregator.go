// Package service implements the portfolio tracker's business logic: holding
// management, valuation aggregation, and history snapshotting.
package service

import (
	"github.com/portfolio-tracker/internal/models"
	"github.com/portfolio-tracker/internal/types"
)

// Aggregate rolls a flat holdings list up into per-asset aggregates and
// portfolio totals, using the supplied price lookup.
//
// Unit price resolution per asset: a fresh quote from the lookup when
// present, otherwise the last price persisted on any of the asset's holding
// rows (degraded mode), otherwise zero. No asset is ever dropped; zero
// amounts are legal and contribute zero value.
//
// The function is deterministic and has no side effects; the caller is
// responsible for persisting fresh prices back onto holding rows (see
// PortfolioService).
func Aggregate(holdings []models.Holding, prices types.PriceLookup) *models.PortfolioValuation {
	valuation := &models.PortfolioValuation{
		Assets:       make(map[string]*models.AssetAggregate),
		HoldingCount: len(holdings),
	}

	for _, h := range holdings {
		agg, ok := valuation.Assets[h.AssetID]
		if !ok {
			agg = &models.AssetAggregate{AssetID: h.AssetID}
			if quote, fresh := prices[h.AssetID]; fresh {
				agg.UnitPrice = quote.USD
				agg.PriceChange1h = quote.Change1h
				agg.PriceChange24h = quote.Change24h
				agg.PriceChange7d = quote.Change7d
				agg.PriceFresh = true
			}
			valuation.Assets[h.AssetID] = agg
		}

		// Degraded mode: any holding row of the asset may carry the last
		// observed price.
		if !agg.PriceFresh && agg.UnitPrice == 0 && h.LastPrice != nil {
			agg.UnitPrice = *h.LastPrice
		}

		agg.Positions = append(agg.Positions, models.HoldingPosition{
			Source: h.Source,
			Amount: h.Amount,
			APY:    h.APY,
		})
		agg.TotalAmount += h.Amount
	}

	for _, agg := range valuation.Assets {
		for i := range agg.Positions {
			pos := &agg.Positions[i]
			pos.Value = pos.Amount * agg.UnitPrice
			pos.MonthlyYield = pos.Value * (pos.APY / 100) / 12
			agg.MonthlyYield += pos.MonthlyYield
		}
		agg.TotalValue = agg.TotalAmount * agg.UnitPrice

		valuation.TotalValue += agg.TotalValue
		valuation.TotalMonthlyYield += agg.MonthlyYield
	}

	return valuation
}
