package models

import (
	"time"
)

// HistorySnapshot represents one immutable historical total-value data point.
// Snapshots are created only by the snapshotter's interval policy, never
// mutated, and read in ascending timestamp order for charting.
type HistorySnapshot struct {
	ID                string    `json:"id" db:"id"`
	Timestamp         time.Time `json:"timestamp" db:"snapshot_time"`
	TotalValue        float64   `json:"totalValue" db:"total_value"`
	ReferenceAssetQty *float64  `json:"referenceAssetQty,omitempty" db:"reference_asset_qty"`
	CreatedAt         time.Time `json:"createdAt" db:"created_at"`
}
