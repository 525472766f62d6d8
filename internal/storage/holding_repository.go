package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/portfolio-tracker/internal/models"
)

// Sentinel errors for holding persistence. The service layer maps these onto
// the user-visible error taxonomy.
var (
	// ErrHoldingNotFound is returned when no holding matches the given key
	ErrHoldingNotFound = errors.New("holding not found")
	// ErrHoldingExists is returned when an insert or rename collides with an
	// existing (asset_id, source) pair
	ErrHoldingExists = errors.New("holding already exists")
)

const pgUniqueViolation = "23505"

// HoldingRepository handles holding data persistence
type HoldingRepository struct {
	db *PostgresDB
}

// NewHoldingRepository creates a new holding repository
func NewHoldingRepository(db *PostgresDB) *HoldingRepository {
	return &HoldingRepository{db: db}
}

// normalizeKey lowercases the asset id and trims both key parts so that the
// uniqueness invariant is enforced on canonical values.
func normalizeKey(assetID, source string) (string, string) {
	return strings.ToLower(strings.TrimSpace(assetID)), strings.TrimSpace(source)
}

// Create inserts a new holding. A duplicate (asset_id, source) pair fails
// with ErrHoldingExists.
func (r *HoldingRepository) Create(ctx context.Context, holding *models.Holding) error {
	if holding.ID == "" {
		holding.ID = uuid.New().String()
	}
	holding.AssetID, holding.Source = normalizeKey(holding.AssetID, holding.Source)

	now := time.Now().UTC()
	holding.CreatedAt = now
	holding.UpdatedAt = now

	query := `
		INSERT INTO holdings (id, asset_id, source, amount, apy, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.Pool().Exec(ctx, query,
		holding.ID,
		holding.AssetID,
		holding.Source,
		holding.Amount,
		holding.APY,
		holding.CreatedAt,
		holding.UpdatedAt,
	)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("%w: (%s, %s)", ErrHoldingExists, holding.AssetID, holding.Source)
		}
		return fmt.Errorf("failed to create holding: %w", err)
	}

	return nil
}

// List returns all holdings ordered by asset id then source.
func (r *HoldingRepository) List(ctx context.Context) ([]models.Holding, error) {
	query := `
		SELECT id, asset_id, source, amount, apy, last_price, price_updated_at, created_at, updated_at
		FROM holdings
		ORDER BY asset_id, source
	`

	rows, err := r.db.Pool().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list holdings: %w", err)
	}
	defer rows.Close()

	var holdings []models.Holding
	for rows.Next() {
		var h models.Holding
		if err := rows.Scan(
			&h.ID,
			&h.AssetID,
			&h.Source,
			&h.Amount,
			&h.APY,
			&h.LastPrice,
			&h.PriceUpdatedAt,
			&h.CreatedAt,
			&h.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		holdings = append(holdings, h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate holdings: %w", err)
	}

	return holdings, nil
}

// GetByKey retrieves a holding by its (asset_id, source) key.
func (r *HoldingRepository) GetByKey(ctx context.Context, assetID, source string) (*models.Holding, error) {
	assetID, source = normalizeKey(assetID, source)

	query := `
		SELECT id, asset_id, source, amount, apy, last_price, price_updated_at, created_at, updated_at
		FROM holdings
		WHERE asset_id = $1 AND source = $2
	`

	var h models.Holding
	err := r.db.Pool().QueryRow(ctx, query, assetID, source).Scan(
		&h.ID,
		&h.AssetID,
		&h.Source,
		&h.Amount,
		&h.APY,
		&h.LastPrice,
		&h.PriceUpdatedAt,
		&h.CreatedAt,
		&h.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: (%s, %s)", ErrHoldingNotFound, assetID, source)
		}
		return nil, fmt.Errorf("failed to get holding: %w", err)
	}

	return &h, nil
}

// HoldingChanges carries the mutable fields of an update. Nil fields are left
// untouched; NewSource renames the holding's source subject to uniqueness.
type HoldingChanges struct {
	Amount    *float64
	APY       *float64
	NewSource *string
}

// UpdateByKey applies changes to the holding identified by (asset_id, source)
// in a single statement, so a concurrent reader never observes a renamed
// source with a stale amount. A rename that collides with an existing key
// fails with ErrHoldingExists; a missing key fails with ErrHoldingNotFound.
func (r *HoldingRepository) UpdateByKey(ctx context.Context, assetID, source string, changes *HoldingChanges) (*models.Holding, error) {
	assetID, source = normalizeKey(assetID, source)

	query := `
		UPDATE holdings
		SET amount = COALESCE($3, amount),
		    apy = COALESCE($4, apy),
		    source = COALESCE($5, source),
		    updated_at = $6
		WHERE asset_id = $1 AND source = $2
		RETURNING id, asset_id, source, amount, apy, last_price, price_updated_at, created_at, updated_at
	`

	var newSource *string
	if changes.NewSource != nil {
		trimmed := strings.TrimSpace(*changes.NewSource)
		newSource = &trimmed
	}

	var h models.Holding
	err := r.db.Pool().QueryRow(ctx, query,
		assetID,
		source,
		changes.Amount,
		changes.APY,
		newSource,
		time.Now().UTC(),
	).Scan(
		&h.ID,
		&h.AssetID,
		&h.Source,
		&h.Amount,
		&h.APY,
		&h.LastPrice,
		&h.PriceUpdatedAt,
		&h.CreatedAt,
		&h.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: (%s, %s)", ErrHoldingNotFound, assetID, source)
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, fmt.Errorf("%w: (%s, %s)", ErrHoldingExists, assetID, *newSource)
		}
		return nil, fmt.Errorf("failed to update holding: %w", err)
	}

	return &h, nil
}

// DeleteByKey removes the holding identified by (asset_id, source).
func (r *HoldingRepository) DeleteByKey(ctx context.Context, assetID, source string) error {
	assetID, source = normalizeKey(assetID, source)

	result, err := r.db.Pool().Exec(ctx,
		`DELETE FROM holdings WHERE asset_id = $1 AND source = $2`,
		assetID, source,
	)
	if err != nil {
		return fmt.Errorf("failed to delete holding: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: (%s, %s)", ErrHoldingNotFound, assetID, source)
	}

	return nil
}

// UpdateLastPrice persists a freshly observed unit price onto every holding
// row of the asset. This is the best-effort cache that feeds degraded-mode
// valuation when the price source is unreachable.
func (r *HoldingRepository) UpdateLastPrice(ctx context.Context, assetID string, price float64, observedAt time.Time) error {
	assetID = strings.ToLower(strings.TrimSpace(assetID))

	_, err := r.db.Pool().Exec(ctx,
		`UPDATE holdings SET last_price = $2, price_updated_at = $3 WHERE asset_id = $1`,
		assetID, price, observedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to update last price: %w", err)
	}

	return nil
}
