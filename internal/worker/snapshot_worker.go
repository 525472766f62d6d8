// Package worker runs the scheduled valuation loop that feeds the
// snapshotter outside of interactive requests.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/portfolio-tracker/internal/logging"
	"github.com/portfolio-tracker/internal/models"
	"github.com/portfolio-tracker/internal/service"
)

// PortfolioValuer computes the current portfolio valuation.
type PortfolioValuer interface {
	GetValuation(ctx context.Context) (*service.ValuationResult, error)
}

// Snapshotter decides whether a valuation becomes a history snapshot.
type Snapshotter interface {
	MaybeSnapshot(ctx context.Context, input service.SnapshotInput) (*models.HistorySnapshot, error)
}

// SnapshotWorker polls the portfolio on a fixed cadence and offers each total
// to the snapshotter. The snapshot interval gates the actual writes, so the
// poll cadence only bounds snapshot latency.
type SnapshotWorker struct {
	portfolio    PortfolioValuer
	snapshotter  Snapshotter
	pollInterval time.Duration
	logger       *logging.Logger
	stopChan     chan struct{}
	doneChan     chan struct{}
	running      bool
}

// NewSnapshotWorker creates a new snapshot worker
func NewSnapshotWorker(portfolio PortfolioValuer, snapshotter Snapshotter, pollInterval time.Duration, logger *logging.Logger) *SnapshotWorker {
	return &SnapshotWorker{
		portfolio:    portfolio,
		snapshotter:  snapshotter,
		pollInterval: pollInterval,
		logger:       logger.WithField("component", "snapshot_worker"),
		stopChan:     make(chan struct{}),
		doneChan:     make(chan struct{}),
	}
}

// Start begins the polling loop.
func (w *SnapshotWorker) Start(ctx context.Context) error {
	if w.running {
		return fmt.Errorf("snapshot worker is already running")
	}
	w.running = true

	w.logger.WithField("pollInterval", w.pollInterval.String()).Info("Snapshot worker starting")

	go func() {
		defer close(w.doneChan)

		// One immediate pass so a restart does not wait a full interval
		w.tick(ctx)

		ticker := time.NewTicker(w.pollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				w.tick(ctx)
			case <-w.stopChan:
				w.logger.Info("Snapshot worker stopped")
				return
			case <-ctx.Done():
				w.logger.Info("Snapshot worker context cancelled")
				return
			}
		}
	}()

	return nil
}

// Stop gracefully stops the worker and waits for the loop to exit.
func (w *SnapshotWorker) Stop() error {
	if !w.running {
		return fmt.Errorf("snapshot worker is not running")
	}

	close(w.stopChan)
	<-w.doneChan
	w.running = false

	return nil
}

// tick performs one valuation pass and offers the result to the snapshotter.
func (w *SnapshotWorker) tick(ctx context.Context) {
	result, err := w.portfolio.GetValuation(ctx)
	if err != nil {
		w.logger.WithError(err).Error("Failed to compute portfolio valuation")
		return
	}

	snapshot, err := w.snapshotter.MaybeSnapshot(ctx, service.SnapshotInput{
		TotalValue:         result.Valuation.TotalValue,
		HoldingCount:       result.Valuation.HoldingCount,
		ReferenceUnitPrice: result.ReferenceUnitPrice,
	})
	if err != nil {
		w.logger.WithError(err).Warn("Snapshot not recorded")
		return
	}

	if snapshot != nil {
		w.logger.WithField("totalValue", snapshot.TotalValue).Info("History snapshot recorded")
	}
}
