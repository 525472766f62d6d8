package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/portfolio-tracker/internal/models"
)

// HistoryRepository handles history snapshot persistence. Snapshots are
// insert-only; nothing in normal operation mutates or deletes them.
type HistoryRepository struct {
	db *PostgresDB
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *PostgresDB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Append stores a new snapshot.
func (r *HistoryRepository) Append(ctx context.Context, snapshot *models.HistorySnapshot) error {
	if snapshot.ID == "" {
		snapshot.ID = uuid.New().String()
	}
	snapshot.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO history_snapshots (id, snapshot_time, total_value, reference_asset_qty, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.Pool().Exec(ctx, query,
		snapshot.ID,
		snapshot.Timestamp.UTC(),
		snapshot.TotalValue,
		snapshot.ReferenceAssetQty,
		snapshot.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append snapshot: %w", err)
	}

	return nil
}

// List returns all snapshots in ascending timestamp order for charting.
func (r *HistoryRepository) List(ctx context.Context) ([]models.HistorySnapshot, error) {
	query := `
		SELECT id, snapshot_time, total_value, reference_asset_qty, created_at
		FROM history_snapshots
		ORDER BY snapshot_time ASC
	`

	rows, err := r.db.Pool().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []models.HistorySnapshot
	for rows.Next() {
		var s models.HistorySnapshot
		if err := rows.Scan(
			&s.ID,
			&s.Timestamp,
			&s.TotalValue,
			&s.ReferenceAssetQty,
			&s.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snapshots = append(snapshots, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate snapshots: %w", err)
	}

	return snapshots, nil
}

// LatestTimestamp returns the timestamp of the most recent snapshot, or
// (zero, false) when the history is empty.
func (r *HistoryRepository) LatestTimestamp(ctx context.Context) (time.Time, bool, error) {
	var ts time.Time
	err := r.db.Pool().QueryRow(ctx,
		`SELECT snapshot_time FROM history_snapshots ORDER BY snapshot_time DESC LIMIT 1`,
	).Scan(&ts)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("failed to get latest snapshot time: %w", err)
	}

	return ts, true, nil
}
