package service

import (
	"math"
	"testing"

	"github.com/portfolio-tracker/internal/models"
	"github.com/portfolio-tracker/internal/types"
)

func floatPtr(v float64) *float64 {
	return &v
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestAggregate_EmptyHoldings(t *testing.T) {
	valuation := Aggregate(nil, types.PriceLookup{})

	if len(valuation.Assets) != 0 {
		t.Errorf("Assets count = %d, want 0", len(valuation.Assets))
	}
	if valuation.TotalValue != 0 {
		t.Errorf("TotalValue = %v, want 0", valuation.TotalValue)
	}
	if valuation.TotalMonthlyYield != 0 {
		t.Errorf("TotalMonthlyYield = %v, want 0", valuation.TotalMonthlyYield)
	}
}

func TestAggregate_MergesSourcesOfSameAsset(t *testing.T) {
	holdings := []models.Holding{
		{AssetID: "bitcoin", Source: "Ledger", Amount: 50},
		{AssetID: "bitcoin", Source: "Exchange", Amount: 10, APY: 5.0},
	}
	prices := types.PriceLookup{
		"bitcoin": {USD: 60000},
	}

	valuation := Aggregate(holdings, prices)

	agg, ok := valuation.Assets["bitcoin"]
	if !ok {
		t.Fatal("bitcoin aggregate missing")
	}
	if agg.TotalAmount != 60 {
		t.Errorf("TotalAmount = %v, want 60", agg.TotalAmount)
	}
	if agg.TotalValue != 3600000 {
		t.Errorf("TotalValue = %v, want 3600000", agg.TotalValue)
	}
	// (10 * 60000 * 0.05) / 12 = 2500
	if !almostEqual(agg.MonthlyYield, 2500) {
		t.Errorf("MonthlyYield = %v, want 2500", agg.MonthlyYield)
	}
	if !agg.PriceFresh {
		t.Error("PriceFresh = false, want true")
	}
	if len(agg.Positions) != 2 {
		t.Errorf("Positions count = %d, want 2", len(agg.Positions))
	}

	if valuation.TotalValue != 3600000 {
		t.Errorf("portfolio TotalValue = %v, want 3600000", valuation.TotalValue)
	}
	if !almostEqual(valuation.TotalMonthlyYield, 2500) {
		t.Errorf("portfolio TotalMonthlyYield = %v, want 2500", valuation.TotalMonthlyYield)
	}
}

func TestAggregate_DegradedFallbackToLastPrice(t *testing.T) {
	holdings := []models.Holding{
		{AssetID: "ethereum", Source: "Wallet", Amount: 2, LastPrice: floatPtr(3000)},
	}

	// Price lookup omits ethereum entirely
	valuation := Aggregate(holdings, types.PriceLookup{})

	agg := valuation.Assets["ethereum"]
	if agg.UnitPrice != 3000 {
		t.Errorf("UnitPrice = %v, want last known 3000", agg.UnitPrice)
	}
	if agg.TotalValue != 6000 {
		t.Errorf("TotalValue = %v, want 6000", agg.TotalValue)
	}
	if agg.PriceFresh {
		t.Error("PriceFresh = true, want false in degraded mode")
	}
}

func TestAggregate_DegradedFallbackFromAnyRow(t *testing.T) {
	// Only the second row carries a cached price
	holdings := []models.Holding{
		{AssetID: "ethereum", Source: "Wallet", Amount: 2},
		{AssetID: "ethereum", Source: "Exchange", Amount: 1, LastPrice: floatPtr(2800)},
	}

	valuation := Aggregate(holdings, types.PriceLookup{})

	agg := valuation.Assets["ethereum"]
	if agg.UnitPrice != 2800 {
		t.Errorf("UnitPrice = %v, want 2800", agg.UnitPrice)
	}
	if agg.TotalValue != 3*2800 {
		t.Errorf("TotalValue = %v, want %v", agg.TotalValue, 3*2800)
	}
}

func TestAggregate_NoPriceAnywhere(t *testing.T) {
	holdings := []models.Holding{
		{AssetID: "dogecoin", Source: "Wallet", Amount: 1000},
	}

	valuation := Aggregate(holdings, types.PriceLookup{})

	agg := valuation.Assets["dogecoin"]
	if agg.UnitPrice != 0 {
		t.Errorf("UnitPrice = %v, want 0", agg.UnitPrice)
	}
	if agg.TotalValue != 0 {
		t.Errorf("TotalValue = %v, want 0", agg.TotalValue)
	}
	if agg.TotalAmount != 1000 {
		t.Errorf("TotalAmount = %v, want 1000 (asset never dropped)", agg.TotalAmount)
	}
}

func TestAggregate_ZeroAmountHolding(t *testing.T) {
	holdings := []models.Holding{
		{AssetID: "bitcoin", Source: "Vault", Amount: 0},
	}
	prices := types.PriceLookup{"bitcoin": {USD: 60000}}

	valuation := Aggregate(holdings, prices)

	agg := valuation.Assets["bitcoin"]
	if agg.TotalValue != 0 {
		t.Errorf("TotalValue = %v, want 0", agg.TotalValue)
	}
	if valuation.TotalValue != 0 {
		t.Errorf("portfolio TotalValue = %v, want 0", valuation.TotalValue)
	}
}

func TestAggregate_PassesThroughPriceChanges(t *testing.T) {
	holdings := []models.Holding{
		{AssetID: "bitcoin", Source: "Ledger", Amount: 1},
	}
	prices := types.PriceLookup{
		"bitcoin": {USD: 60000, Change1h: 0.5, Change24h: -2.1, Change7d: 10.4},
	}

	agg := Aggregate(holdings, prices).Assets["bitcoin"]

	if agg.PriceChange1h != 0.5 || agg.PriceChange24h != -2.1 || agg.PriceChange7d != 10.4 {
		t.Errorf("price changes = (%v, %v, %v), want (0.5, -2.1, 10.4)",
			agg.PriceChange1h, agg.PriceChange24h, agg.PriceChange7d)
	}
}

func TestAggregate_MultipleAssets(t *testing.T) {
	holdings := []models.Holding{
		{AssetID: "bitcoin", Source: "Ledger", Amount: 1},
		{AssetID: "ethereum", Source: "Wallet", Amount: 10},
	}
	prices := types.PriceLookup{
		"bitcoin":  {USD: 60000},
		"ethereum": {USD: 3000},
	}

	valuation := Aggregate(holdings, prices)

	if len(valuation.Assets) != 2 {
		t.Fatalf("Assets count = %d, want 2", len(valuation.Assets))
	}
	if valuation.TotalValue != 90000 {
		t.Errorf("TotalValue = %v, want 90000", valuation.TotalValue)
	}
	if valuation.HoldingCount != 2 {
		t.Errorf("HoldingCount = %d, want 2", valuation.HoldingCount)
	}
}
