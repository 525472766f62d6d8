// Package types defines shared types used across the portfolio tracker.
package types

// PriceQuote represents one asset's market data in the reference currency
// (USD), as returned by the price source.
type PriceQuote struct {
	USD       float64 `json:"usd"`
	Change1h  float64 `json:"usd_1h_change"`
	Change24h float64 `json:"usd_24h_change"`
	Change7d  float64 `json:"usd_7d_change"`
}

// PriceLookup maps asset ids to their current quotes. Entries may be missing
// for any asset the price source did not return data for.
type PriceLookup map[string]PriceQuote

// ServiceError represents a structured error response
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *ServiceError) Error() string {
	return e.Message
}

// Service error codes shared between the service layer and the API.
const (
	CodeHoldingNotFound   = "HOLDING_NOT_FOUND"
	CodeHoldingExists     = "HOLDING_ALREADY_EXISTS"
	CodeInvalidHolding    = "INVALID_HOLDING"
	CodeInvalidTotalValue = "INVALID_TOTAL_VALUE"
	CodePriceUnavailable  = "PRICE_SOURCE_UNAVAILABLE"
)
