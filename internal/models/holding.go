package models

import (
	"time"
)

// Holding represents one recorded quantity of an asset at one custody source.
// The pair (AssetID, Source) is unique across all holdings.
type Holding struct {
	ID             string     `json:"id" db:"id"`
	AssetID        string     `json:"assetId" db:"asset_id"`
	Source         string     `json:"source" db:"source"`
	Amount         float64    `json:"amount" db:"amount"`
	APY            float64    `json:"apy" db:"apy"`
	LastPrice      *float64   `json:"lastPrice,omitempty" db:"last_price"`
	PriceUpdatedAt *time.Time `json:"priceUpdatedAt,omitempty" db:"price_updated_at"`
	CreatedAt      time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time  `json:"updatedAt" db:"updated_at"`
}

// HoldingKey identifies a holding by its natural key.
type HoldingKey struct {
	AssetID string `json:"assetId"`
	Source  string `json:"source"`
}
