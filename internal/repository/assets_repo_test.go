package repository_test

import (
	"errors"
	"testing"
	"time"

	"github.com/cryptofolio/api/internal/models"
	"github.com/cryptofolio/api/internal/repository"
	"github.com/cryptofolio/api/lib/errs"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestAssetsRepository(t *testing.T) {
	testDB := setupTestDB(t)
	assetsRepo := repository.NewAssetsRepository(testDB)

	t.Run("add_and_get", func(t *testing.T) {
		portfolioID := uuid.New()

		asset := &models.Asset{
			PortfolioID: portfolioID,
			Symbol:      "BTC",
			Quantity:    decimal.NewFromFloat(1.5),
		}
		if err := assetsRepo.Add(asset); err != nil {
			t.Fatalf("Add failed: %v", err)
		}

		found, err := assetsRepo.Get(portfolioID, "BTC")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if !found.Quantity.Equal(decimal.NewFromFloat(1.5)) {
			t.Errorf("Expected quantity 1.5, got %s", found.Quantity)
		}
	})

	t.Run("one_row_per_portfolio_and_symbol", func(t *testing.T) {
		portfolioID := uuid.New()

		if err := assetsRepo.Add(&models.Asset{PortfolioID: portfolioID, Symbol: "ETH", Quantity: decimal.NewFromInt(1)}); err != nil {
			t.Fatalf("Add failed: %v", err)
		}

		err := assetsRepo.Add(&models.Asset{PortfolioID: portfolioID, Symbol: "ETH", Quantity: decimal.NewFromInt(2)})
		if !errors.Is(err, errs.ErrAlreadyExists) {
			t.Errorf("Expected ErrAlreadyExists for duplicate symbol, got %v", err)
		}
	})

	t.Run("update_quantity", func(t *testing.T) {
		portfolioID := uuid.New()

		asset := &models.Asset{PortfolioID: portfolioID, Symbol: "LTC", Quantity: decimal.NewFromInt(3)}
		if err := assetsRepo.Add(asset); err != nil {
			t.Fatalf("Add failed: %v", err)
		}

		asset.Quantity = decimal.NewFromInt(10)
		if err := assetsRepo.Update(asset); err != nil {
			t.Fatalf("Update failed: %v", err)
		}

		found, err := assetsRepo.Get(portfolioID, "LTC")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if !found.Quantity.Equal(decimal.NewFromInt(10)) {
			t.Errorf("Expected quantity 10, got %s", found.Quantity)
		}
	})

	t.Run("delete_frees_the_symbol_slot", func(t *testing.T) {
		portfolioID := uuid.New()

		if err := assetsRepo.Add(&models.Asset{PortfolioID: portfolioID, Symbol: "DOGE", Quantity: decimal.NewFromInt(100)}); err != nil {
			t.Fatalf("Add failed: %v", err)
		}

		if err := assetsRepo.Delete(portfolioID, "DOGE"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}

		if _, err := assetsRepo.Get(portfolioID, "DOGE"); !errors.Is(err, errs.ErrNotFound) {
			t.Errorf("Expected ErrNotFound after delete, got %v", err)
		}

		// a re-buy of a sold-out symbol must be able to recreate the row
		if err := assetsRepo.Add(&models.Asset{PortfolioID: portfolioID, Symbol: "DOGE", Quantity: decimal.NewFromInt(5)}); err != nil {
			t.Errorf("Re-add after delete failed: %v", err)
		}
	})

	t.Run("delete_missing_asset", func(t *testing.T) {
		if err := assetsRepo.Delete(uuid.New(), "BTC"); !errors.Is(err, errs.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})
}

func TestTransactionsRepository(t *testing.T) {
	testDB := setupTestDB(t)
	transactionsRepo := repository.NewTransactionsRepository(testDB)

	portfolioID := uuid.New()
	base := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

	seed := []models.Transaction{
		{PortfolioID: portfolioID, Symbol: "BTC", Quantity: decimal.NewFromInt(1), Price: decimal.NewFromInt(100), Timestamp: base},
		{PortfolioID: portfolioID, Symbol: "ETH", Quantity: decimal.NewFromInt(2), Price: decimal.NewFromInt(10), Timestamp: base.Add(time.Minute)},
		{PortfolioID: portfolioID, Symbol: "BTC", Quantity: decimal.NewFromInt(-1), Price: decimal.NewFromInt(150), Timestamp: base.Add(2 * time.Minute)},
	}
	for i := range seed {
		if err := transactionsRepo.Add(&seed[i]); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}

	t.Run("list_by_symbol_in_time_order", func(t *testing.T) {
		transactions, err := transactionsRepo.ListBySymbol(portfolioID, "BTC")
		if err != nil {
			t.Fatalf("ListBySymbol failed: %v", err)
		}

		if len(transactions) != 2 {
			t.Fatalf("Expected 2 BTC transactions, got %d", len(transactions))
		}
		if !transactions[0].Quantity.Equal(decimal.NewFromInt(1)) || !transactions[1].Quantity.Equal(decimal.NewFromInt(-1)) {
			t.Errorf("Expected buy then sell, got %s then %s", transactions[0].Quantity, transactions[1].Quantity)
		}
	})

	t.Run("list_by_portfolio", func(t *testing.T) {
		transactions, err := transactionsRepo.ListByPortfolio(portfolioID)
		if err != nil {
			t.Fatalf("ListByPortfolio failed: %v", err)
		}
		if len(transactions) != 3 {
			t.Errorf("Expected 3 transactions, got %d", len(transactions))
		}
	})

	t.Run("empty_for_unknown_portfolio", func(t *testing.T) {
		transactions, err := transactionsRepo.ListByPortfolio(uuid.New())
		if err != nil {
			t.Fatalf("ListByPortfolio failed: %v", err)
		}
		if len(transactions) != 0 {
			t.Errorf("Expected no transactions, got %d", len(transactions))
		}
	})
}
