package models

// HoldingPosition is one holding's contribution inside an asset aggregate.
type HoldingPosition struct {
	Source       string  `json:"source"`
	Amount       float64 `json:"amount"`
	APY          float64 `json:"apy"`
	Value        float64 `json:"value"`
	MonthlyYield float64 `json:"monthlyYield"`
}

// AssetAggregate is the per-asset rollup of all holdings of that asset,
// derived fresh on every valuation request and never persisted.
type AssetAggregate struct {
	AssetID        string            `json:"assetId"`
	TotalAmount    float64           `json:"totalAmount"`
	UnitPrice      float64           `json:"unitPrice"`
	TotalValue     float64           `json:"totalValue"`
	MonthlyYield   float64           `json:"monthlyYield"`
	PriceChange1h  float64           `json:"priceChange1h"`
	PriceChange24h float64           `json:"priceChange24h"`
	PriceChange7d  float64           `json:"priceChange7d"`
	PriceFresh     bool              `json:"priceFresh"`
	Positions      []HoldingPosition `json:"positions"`
}

// PortfolioValuation is the portfolio-level result of one aggregation pass.
type PortfolioValuation struct {
	Assets            map[string]*AssetAggregate `json:"assets"`
	TotalValue        float64                    `json:"totalValue"`
	TotalMonthlyYield float64                    `json:"totalMonthlyYield"`
	HoldingCount      int                        `json:"holdingCount"`
}
