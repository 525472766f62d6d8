package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/portfolio-tracker/internal/logging"
	"github.com/portfolio-tracker/internal/models"
	"github.com/portfolio-tracker/internal/types"
)

// HistoryStore is the persistence interface the snapshotter needs.
type HistoryStore interface {
	Append(ctx context.Context, snapshot *models.HistorySnapshot) error
	List(ctx context.Context) ([]models.HistorySnapshot, error)
	LatestTimestamp(ctx context.Context) (time.Time, bool, error)
}

// Snapshotter appends history snapshots according to the interval policy:
// write when no snapshot exists yet or when at least the configured interval
// has elapsed since the last one, otherwise do nothing. The last snapshot
// time is always read from the store, never held in process state, so the
// policy survives restarts and multiple instances.
//
// Concurrent invocations inside the same interval window can both pass the
// check and write near-duplicate snapshots. Duplicates are harmless for
// charting, so the policy tolerates the race; the snapshot worker is the one
// designated scheduler in normal operation.
type Snapshotter struct {
	history  HistoryStore
	interval time.Duration
	now      func() time.Time
	logger   *logging.Logger
}

// NewSnapshotter creates a new snapshotter with the given interval.
func NewSnapshotter(history HistoryStore, interval time.Duration, logger *logging.Logger) *Snapshotter {
	return &Snapshotter{
		history:  history,
		interval: interval,
		now:      time.Now,
		logger:   logger.WithField("component", "snapshotter"),
	}
}

// SnapshotInput carries one freshly computed portfolio total.
type SnapshotInput struct {
	TotalValue float64
	// HoldingCount distinguishes a genuinely empty portfolio from a zero
	// total caused by an upstream price failure.
	HoldingCount int
	// ReferenceUnitPrice, when positive, denominates the total in units of
	// the reference asset.
	ReferenceUnitPrice float64
}

// MaybeSnapshot appends a snapshot if the interval policy allows it. It
// returns the written snapshot, or nil when the call was a no-op. At most one
// snapshot is written per invocation; persistence failures surface to the
// caller without internal retry.
func (s *Snapshotter) MaybeSnapshot(ctx context.Context, input SnapshotInput) (*models.HistorySnapshot, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	last, exists, err := s.history.LatestTimestamp(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read last snapshot time: %w", err)
	}

	now := s.now().UTC()
	if exists {
		elapsed := now.Sub(last)
		if elapsed < s.interval {
			s.logger.WithFields(map[string]interface{}{
				"elapsed":  elapsed.String(),
				"interval": s.interval.String(),
			}).Debug("Skipping snapshot, interval not elapsed")
			return nil, nil
		}
	}

	snapshot := &models.HistorySnapshot{
		Timestamp:  now,
		TotalValue: input.TotalValue,
	}
	if input.ReferenceUnitPrice > 0 {
		qty := input.TotalValue / input.ReferenceUnitPrice
		snapshot.ReferenceAssetQty = &qty
	}

	if err := s.history.Append(ctx, snapshot); err != nil {
		return nil, fmt.Errorf("failed to append snapshot: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"totalValue": input.TotalValue,
		"timestamp":  now.Format(time.RFC3339),
	}).Info("Recorded history snapshot")

	return snapshot, nil
}

// History returns the full snapshot series in ascending timestamp order.
func (s *Snapshotter) History(ctx context.Context) ([]models.HistorySnapshot, error) {
	return s.history.List(ctx)
}

// validateInput rejects totals that almost certainly indicate an upstream
// failure rather than a real portfolio state.
func validateInput(input SnapshotInput) error {
	if math.IsNaN(input.TotalValue) || math.IsInf(input.TotalValue, 0) {
		return &types.ServiceError{
			Code:    types.CodeInvalidTotalValue,
			Message: "total value must be a finite number",
		}
	}
	if input.TotalValue < 0 {
		return &types.ServiceError{
			Code:    types.CodeInvalidTotalValue,
			Message: "total value must not be negative",
		}
	}
	if input.TotalValue == 0 && input.HoldingCount > 0 {
		return &types.ServiceError{
			Code:    types.CodeInvalidTotalValue,
			Message: "total value is zero while holdings exist, refusing to record snapshot",
		}
	}
	return nil
}
