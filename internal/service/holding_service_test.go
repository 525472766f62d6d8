package service

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/portfolio-tracker/internal/models"
	"github.com/portfolio-tracker/internal/storage"
	"github.com/portfolio-tracker/internal/types"
)

type mockHoldingRepo struct {
	holdings []models.Holding

	createErr error
	updateErr error
	deleteErr error
	listErr   error

	lastPriceCalls map[string]float64
}

func (m *mockHoldingRepo) Create(ctx context.Context, holding *models.Holding) error {
	if m.createErr != nil {
		return m.createErr
	}
	holding.ID = "generated-id"
	holding.CreatedAt = time.Now()
	holding.UpdatedAt = holding.CreatedAt
	m.holdings = append(m.holdings, *holding)
	return nil
}

func (m *mockHoldingRepo) List(ctx context.Context) ([]models.Holding, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.holdings, nil
}

func (m *mockHoldingRepo) GetByKey(ctx context.Context, assetID, source string) (*models.Holding, error) {
	for i := range m.holdings {
		if m.holdings[i].AssetID == assetID && m.holdings[i].Source == source {
			return &m.holdings[i], nil
		}
	}
	return nil, storage.ErrHoldingNotFound
}

func (m *mockHoldingRepo) UpdateByKey(ctx context.Context, assetID, source string, changes *storage.HoldingChanges) (*models.Holding, error) {
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	holding, err := m.GetByKey(ctx, assetID, source)
	if err != nil {
		return nil, err
	}
	if changes.Amount != nil {
		holding.Amount = *changes.Amount
	}
	if changes.APY != nil {
		holding.APY = *changes.APY
	}
	if changes.NewSource != nil {
		holding.Source = *changes.NewSource
	}
	return holding, nil
}

func (m *mockHoldingRepo) DeleteByKey(ctx context.Context, assetID, source string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	for i := range m.holdings {
		if m.holdings[i].AssetID == assetID && m.holdings[i].Source == source {
			m.holdings = append(m.holdings[:i], m.holdings[i+1:]...)
			return nil
		}
	}
	return storage.ErrHoldingNotFound
}

func (m *mockHoldingRepo) UpdateLastPrice(ctx context.Context, assetID string, price float64, observedAt time.Time) error {
	if m.lastPriceCalls == nil {
		m.lastPriceCalls = make(map[string]float64)
	}
	m.lastPriceCalls[assetID] = price
	return nil
}

func serviceErrCode(t *testing.T, err error) string {
	t.Helper()
	var serviceErr *types.ServiceError
	if !errors.As(err, &serviceErr) {
		t.Fatalf("error type = %T, want *types.ServiceError", err)
	}
	return serviceErr.Code
}

func TestAddHolding(t *testing.T) {
	t.Run("valid holding", func(t *testing.T) {
		repo := &mockHoldingRepo{}
		svc := NewHoldingService(repo)

		holding, err := svc.AddHolding(context.Background(), &AddHoldingInput{
			AssetID: "bitcoin",
			Source:  "Ledger",
			Amount:  1.5,
			APY:     2.0,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if holding.ID == "" {
			t.Error("expected repository-assigned ID")
		}
		if len(repo.holdings) != 1 {
			t.Errorf("stored holdings = %d, want 1", len(repo.holdings))
		}
	})

	t.Run("duplicate key is a conflict", func(t *testing.T) {
		repo := &mockHoldingRepo{createErr: storage.ErrHoldingExists}
		svc := NewHoldingService(repo)

		_, err := svc.AddHolding(context.Background(), &AddHoldingInput{
			AssetID: "bitcoin",
			Source:  "Ledger",
			Amount:  1,
		})
		if code := serviceErrCode(t, err); code != types.CodeHoldingExists {
			t.Errorf("error code = %s, want %s", code, types.CodeHoldingExists)
		}
	})

	t.Run("validation", func(t *testing.T) {
		tests := []struct {
			name  string
			input AddHoldingInput
		}{
			{"empty asset id", AddHoldingInput{AssetID: "", Source: "Ledger", Amount: 1}},
			{"blank asset id", AddHoldingInput{AssetID: "   ", Source: "Ledger", Amount: 1}},
			{"empty source", AddHoldingInput{AssetID: "bitcoin", Source: "", Amount: 1}},
			{"negative amount", AddHoldingInput{AssetID: "bitcoin", Source: "Ledger", Amount: -1}},
			{"NaN amount", AddHoldingInput{AssetID: "bitcoin", Source: "Ledger", Amount: math.NaN()}},
			{"negative apy", AddHoldingInput{AssetID: "bitcoin", Source: "Ledger", Amount: 1, APY: -5}},
			{"infinite apy", AddHoldingInput{AssetID: "bitcoin", Source: "Ledger", Amount: 1, APY: math.Inf(1)}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				repo := &mockHoldingRepo{}
				svc := NewHoldingService(repo)

				_, err := svc.AddHolding(context.Background(), &tt.input)
				if code := serviceErrCode(t, err); code != types.CodeInvalidHolding {
					t.Errorf("error code = %s, want %s", code, types.CodeInvalidHolding)
				}
				if len(repo.holdings) != 0 {
					t.Error("invalid holding must not be stored")
				}
			})
		}
	})

	t.Run("zero amount is allowed", func(t *testing.T) {
		repo := &mockHoldingRepo{}
		svc := NewHoldingService(repo)

		_, err := svc.AddHolding(context.Background(), &AddHoldingInput{
			AssetID: "bitcoin",
			Source:  "Vault",
			Amount:  0,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

func TestUpdateHolding(t *testing.T) {
	newRepo := func() *mockHoldingRepo {
		return &mockHoldingRepo{holdings: []models.Holding{
			{ID: "h1", AssetID: "bitcoin", Source: "Ledger", Amount: 2, APY: 0},
		}}
	}

	t.Run("amount only", func(t *testing.T) {
		svc := NewHoldingService(newRepo())
		amount := 3.5

		holding, err := svc.UpdateHolding(context.Background(), "bitcoin", "Ledger", &UpdateHoldingInput{Amount: &amount})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if holding.Amount != 3.5 {
			t.Errorf("Amount = %v, want 3.5", holding.Amount)
		}
		if holding.APY != 0 {
			t.Errorf("APY = %v, want unchanged 0", holding.APY)
		}
	})

	t.Run("source rename", func(t *testing.T) {
		svc := NewHoldingService(newRepo())
		newSource := "ColdStorage"

		holding, err := svc.UpdateHolding(context.Background(), "bitcoin", "Ledger", &UpdateHoldingInput{NewSource: &newSource})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if holding.Source != "ColdStorage" {
			t.Errorf("Source = %s, want ColdStorage", holding.Source)
		}
	})

	t.Run("no fields is invalid", func(t *testing.T) {
		svc := NewHoldingService(newRepo())

		_, err := svc.UpdateHolding(context.Background(), "bitcoin", "Ledger", &UpdateHoldingInput{})
		if code := serviceErrCode(t, err); code != types.CodeInvalidHolding {
			t.Errorf("error code = %s, want %s", code, types.CodeInvalidHolding)
		}
	})

	t.Run("unknown key is not found", func(t *testing.T) {
		svc := NewHoldingService(newRepo())
		amount := 1.0

		_, err := svc.UpdateHolding(context.Background(), "bitcoin", "Kraken", &UpdateHoldingInput{Amount: &amount})
		if code := serviceErrCode(t, err); code != types.CodeHoldingNotFound {
			t.Errorf("error code = %s, want %s", code, types.CodeHoldingNotFound)
		}
	})

	t.Run("rename onto existing key is a conflict", func(t *testing.T) {
		repo := newRepo()
		repo.updateErr = storage.ErrHoldingExists
		svc := NewHoldingService(repo)
		newSource := "Exchange"

		_, err := svc.UpdateHolding(context.Background(), "bitcoin", "Ledger", &UpdateHoldingInput{NewSource: &newSource})
		if code := serviceErrCode(t, err); code != types.CodeHoldingExists {
			t.Errorf("error code = %s, want %s", code, types.CodeHoldingExists)
		}
	})

	t.Run("blank new source is invalid", func(t *testing.T) {
		svc := NewHoldingService(newRepo())
		blank := "  "

		_, err := svc.UpdateHolding(context.Background(), "bitcoin", "Ledger", &UpdateHoldingInput{NewSource: &blank})
		if code := serviceErrCode(t, err); code != types.CodeInvalidHolding {
			t.Errorf("error code = %s, want %s", code, types.CodeInvalidHolding)
		}
	})
}

func TestRemoveHolding(t *testing.T) {
	t.Run("existing holding", func(t *testing.T) {
		repo := &mockHoldingRepo{holdings: []models.Holding{
			{ID: "h1", AssetID: "bitcoin", Source: "Ledger", Amount: 2},
		}}
		svc := NewHoldingService(repo)

		if err := svc.RemoveHolding(context.Background(), "bitcoin", "Ledger"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(repo.holdings) != 0 {
			t.Errorf("remaining holdings = %d, want 0", len(repo.holdings))
		}
	})

	t.Run("unknown key is not found", func(t *testing.T) {
		repo := &mockHoldingRepo{}
		svc := NewHoldingService(repo)

		err := svc.RemoveHolding(context.Background(), "bitcoin", "Ledger")
		if code := serviceErrCode(t, err); code != types.CodeHoldingNotFound {
			t.Errorf("error code = %s, want %s", code, types.CodeHoldingNotFound)
		}
	})

	t.Run("empty key is invalid", func(t *testing.T) {
		svc := NewHoldingService(&mockHoldingRepo{})

		err := svc.RemoveHolding(context.Background(), "", "Ledger")
		if code := serviceErrCode(t, err); code != types.CodeInvalidHolding {
			t.Errorf("error code = %s, want %s", code, types.CodeInvalidHolding)
		}
	})
}
