package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/portfolio-tracker/internal/models"
	"github.com/portfolio-tracker/internal/storage"
	"github.com/portfolio-tracker/internal/types"
)

// HoldingRepository is the persistence interface for holdings.
type HoldingRepository interface {
	Create(ctx context.Context, holding *models.Holding) error
	List(ctx context.Context) ([]models.Holding, error)
	GetByKey(ctx context.Context, assetID, source string) (*models.Holding, error)
	UpdateByKey(ctx context.Context, assetID, source string, changes *storage.HoldingChanges) (*models.Holding, error)
	DeleteByKey(ctx context.Context, assetID, source string) error
	UpdateLastPrice(ctx context.Context, assetID string, price float64, observedAt time.Time) error
}

// HoldingService implements holding CRUD with the user-visible error
// taxonomy. Adding a holding for an existing (asset_id, source) pair is a
// conflict; amounts are never merged or overwritten implicitly.
type HoldingService struct {
	repo HoldingRepository
}

// NewHoldingService creates a new holding service
func NewHoldingService(repo HoldingRepository) *HoldingService {
	return &HoldingService{repo: repo}
}

// AddHoldingInput carries the fields of an add operation.
type AddHoldingInput struct {
	AssetID string  `json:"assetId"`
	Source  string  `json:"source"`
	Amount  float64 `json:"amount"`
	APY     float64 `json:"apy"`
}

// UpdateHoldingInput carries the fields of an update operation. Nil fields
// are left unchanged; NewSource renames the holding's source.
type UpdateHoldingInput struct {
	Amount    *float64 `json:"amount,omitempty"`
	APY       *float64 `json:"apy,omitempty"`
	NewSource *string  `json:"newSource,omitempty"`
}

// AddHolding validates and creates a new holding.
func (s *HoldingService) AddHolding(ctx context.Context, input *AddHoldingInput) (*models.Holding, error) {
	if err := validateKey(input.AssetID, input.Source); err != nil {
		return nil, err
	}
	if err := validateAmount(input.Amount); err != nil {
		return nil, err
	}
	if err := validateAPY(input.APY); err != nil {
		return nil, err
	}

	holding := &models.Holding{
		AssetID: input.AssetID,
		Source:  input.Source,
		Amount:  input.Amount,
		APY:     input.APY,
	}

	if err := s.repo.Create(ctx, holding); err != nil {
		return nil, mapStorageError(err)
	}

	return holding, nil
}

// ListHoldings returns all holdings.
func (s *HoldingService) ListHoldings(ctx context.Context) ([]models.Holding, error) {
	return s.repo.List(ctx)
}

// UpdateHolding applies changes to the holding identified by key. Renaming
// the source onto an existing key is a conflict, distinct from updating a
// nonexistent key (not found).
func (s *HoldingService) UpdateHolding(ctx context.Context, assetID, source string, input *UpdateHoldingInput) (*models.Holding, error) {
	if err := validateKey(assetID, source); err != nil {
		return nil, err
	}
	if input.Amount == nil && input.APY == nil && input.NewSource == nil {
		return nil, &types.ServiceError{
			Code:    types.CodeInvalidHolding,
			Message: "update must change at least one field",
		}
	}
	if input.Amount != nil {
		if err := validateAmount(*input.Amount); err != nil {
			return nil, err
		}
	}
	if input.APY != nil {
		if err := validateAPY(*input.APY); err != nil {
			return nil, err
		}
	}
	if input.NewSource != nil && strings.TrimSpace(*input.NewSource) == "" {
		return nil, &types.ServiceError{
			Code:    types.CodeInvalidHolding,
			Message: "source must not be empty",
		}
	}

	holding, err := s.repo.UpdateByKey(ctx, assetID, source, &storage.HoldingChanges{
		Amount:    input.Amount,
		APY:       input.APY,
		NewSource: input.NewSource,
	})
	if err != nil {
		return nil, mapStorageError(err)
	}

	return holding, nil
}

// RemoveHolding deletes the holding identified by key.
func (s *HoldingService) RemoveHolding(ctx context.Context, assetID, source string) error {
	if err := validateKey(assetID, source); err != nil {
		return err
	}

	if err := s.repo.DeleteByKey(ctx, assetID, source); err != nil {
		return mapStorageError(err)
	}

	return nil
}

func validateKey(assetID, source string) error {
	if strings.TrimSpace(assetID) == "" {
		return &types.ServiceError{
			Code:    types.CodeInvalidHolding,
			Message: "asset id must not be empty",
		}
	}
	if strings.TrimSpace(source) == "" {
		return &types.ServiceError{
			Code:    types.CodeInvalidHolding,
			Message: "source must not be empty",
		}
	}
	return nil
}

func validateAmount(amount float64) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount < 0 {
		return &types.ServiceError{
			Code:    types.CodeInvalidHolding,
			Message: "amount must be a non-negative finite number",
		}
	}
	return nil
}

func validateAPY(apy float64) error {
	if math.IsNaN(apy) || math.IsInf(apy, 0) || apy < 0 {
		return &types.ServiceError{
			Code:    types.CodeInvalidHolding,
			Message: "apy must be a non-negative finite number",
		}
	}
	return nil
}

// mapStorageError translates storage sentinel errors into service errors.
func mapStorageError(err error) error {
	switch {
	case errors.Is(err, storage.ErrHoldingNotFound):
		return &types.ServiceError{
			Code:    types.CodeHoldingNotFound,
			Message: err.Error(),
		}
	case errors.Is(err, storage.ErrHoldingExists):
		return &types.ServiceError{
			Code:    types.CodeHoldingExists,
			Message: err.Error(),
		}
	default:
		return err
	}
}
