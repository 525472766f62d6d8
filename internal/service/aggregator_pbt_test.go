package service

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/portfolio-tracker/internal/models"
	"github.com/portfolio-tracker/internal/types"
)

func genHolding() gopter.Gen {
	return gopter.CombineGens(
		gen.OneConstOf("bitcoin", "ethereum", "solana", "cardano"),
		gen.OneConstOf("Ledger", "Exchange", "Wallet"),
		gen.Float64Range(0, 1e6),
		gen.Float64Range(0, 50),
	).Map(func(vals []interface{}) models.Holding {
		return models.Holding{
			AssetID: vals[0].(string),
			Source:  vals[1].(string),
			Amount:  vals[2].(float64),
			APY:     vals[3].(float64),
		}
	})
}

func TestAggregateProperties(t *testing.T) {
	prices := types.PriceLookup{
		"bitcoin":  {USD: 60000},
		"ethereum": {USD: 3000},
		"solana":   {USD: 150},
		"cardano":  {USD: 0.5},
	}

	properties := gopter.NewProperties(nil)

	properties.Property("portfolio total equals sum of asset totals", prop.ForAll(
		func(holdings []models.Holding) bool {
			valuation := Aggregate(holdings, prices)
			var sum float64
			for _, agg := range valuation.Assets {
				sum += agg.TotalValue
			}
			return math.Abs(valuation.TotalValue-sum) < 1e-6*(1+math.Abs(sum))
		},
		gen.SliceOf(genHolding()),
	))

	properties.Property("asset amount equals sum of position amounts", prop.ForAll(
		func(holdings []models.Holding) bool {
			valuation := Aggregate(holdings, prices)
			for _, agg := range valuation.Assets {
				var sum float64
				for _, pos := range agg.Positions {
					sum += pos.Amount
				}
				if math.Abs(agg.TotalAmount-sum) > 1e-6*(1+math.Abs(sum)) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(genHolding()),
	))

	properties.Property("holding count is preserved", prop.ForAll(
		func(holdings []models.Holding) bool {
			valuation := Aggregate(holdings, prices)
			count := 0
			for _, agg := range valuation.Assets {
				count += len(agg.Positions)
			}
			return count == len(holdings) && valuation.HoldingCount == len(holdings)
		},
		gen.SliceOf(genHolding()),
	))

	properties.TestingRun(t)
}
