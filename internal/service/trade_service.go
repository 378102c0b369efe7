package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cryptofolio/api/internal/models"
	"github.com/cryptofolio/api/internal/repository"
	"github.com/cryptofolio/api/lib/errs"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TradeService is the state machine over a user's portfolio. Every
// operation commits as a single transaction with the portfolio row locked,
// or not at all.
type TradeService interface {
	AddMoney(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) error
	WithdrawMoney(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) error
	Buy(ctx context.Context, userID uuid.UUID, symbol string, quantity decimal.Decimal) error
	Sell(ctx context.Context, userID uuid.UUID, symbol string, quantity decimal.Decimal) error
}

type tradeService struct {
	db      *gorm.DB
	pricing PricingService
}

func NewTradeService(db *gorm.DB, pricing PricingService) TradeService {
	return &tradeService{
		db:      db,
		pricing: pricing,
	}
}

// AddMoney raises both the deposit total and the spendable balance. Amounts
// are deliberately unchecked: a negative deposit reduces both fields.
func (s *tradeService) AddMoney(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		portfolios := repository.NewPortfoliosRepository(tx)

		portfolio, err := portfolios.GetByUserIDForUpdate(userID)
		if err != nil {
			return err
		}

		portfolio.TotalAddedMoney = portfolio.TotalAddedMoney.Add(amount)
		portfolio.AvailableMoney = portfolio.AvailableMoney.Add(amount)

		return portfolios.Save(portfolio)
	})
}

// WithdrawMoney is the mirror of AddMoney, with no balance floor: the
// spendable balance may go negative.
func (s *tradeService) WithdrawMoney(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		portfolios := repository.NewPortfoliosRepository(tx)

		portfolio, err := portfolios.GetByUserIDForUpdate(userID)
		if err != nil {
			return err
		}

		portfolio.TotalAddedMoney = portfolio.TotalAddedMoney.Sub(amount)
		portfolio.AvailableMoney = portfolio.AvailableMoney.Sub(amount)

		return portfolios.Save(portfolio)
	})
}

func (s *tradeService) Buy(ctx context.Context, userID uuid.UUID, symbol string, quantity decimal.Decimal) error {
	price, err := s.pricing.GetPrice(ctx, symbol)
	if err != nil {
		return err
	}
	cost := price.Mul(quantity)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		portfolios := repository.NewPortfoliosRepository(tx)
		assets := repository.NewAssetsRepository(tx)
		transactions := repository.NewTransactionsRepository(tx)

		portfolio, err := portfolios.GetByUserIDForUpdate(userID)
		if err != nil {
			return err
		}

		if cost.GreaterThan(portfolio.AvailableMoney) {
			return errs.ErrInsufficientFunds
		}

		asset, err := assets.Get(portfolio.ID, symbol)
		switch {
		case err == nil:
			asset.Quantity = asset.Quantity.Add(quantity)
			if err := assets.Update(asset); err != nil {
				return err
			}
		case errors.Is(err, errs.ErrNotFound):
			newAsset := &models.Asset{
				PortfolioID: portfolio.ID,
				Symbol:      symbol,
				Quantity:    quantity,
			}
			if err := assets.Add(newAsset); err != nil {
				return err
			}
		default:
			return err
		}

		if err := transactions.Add(&models.Transaction{
			PortfolioID: portfolio.ID,
			Symbol:      symbol,
			Quantity:    quantity,
			Price:       price,
			Timestamp:   time.Now().UTC(),
		}); err != nil {
			return err
		}

		// A buy debits the deposit total, not the spendable balance.
		// Historical ledger behavior, pinned by test; do not "fix" one
		// side without flipping the test.
		portfolio.TotalAddedMoney = portfolio.TotalAddedMoney.Sub(cost)

		return portfolios.Save(portfolio)
	})

	if err != nil {
		if isTradeError(err) {
			return err
		}
		return fmt.Errorf("failed to execute buy: %w", err)
	}

	return nil
}

func (s *tradeService) Sell(ctx context.Context, userID uuid.UUID, symbol string, quantity decimal.Decimal) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		portfolios := repository.NewPortfoliosRepository(tx)
		assets := repository.NewAssetsRepository(tx)
		transactions := repository.NewTransactionsRepository(tx)

		portfolio, err := portfolios.GetByUserIDForUpdate(userID)
		if err != nil {
			return err
		}

		asset, err := assets.Get(portfolio.ID, symbol)
		if err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				return errs.ErrInsufficientPosition
			}
			return err
		}
		if asset.Quantity.LessThan(quantity) {
			return errs.ErrInsufficientPosition
		}

		price, err := s.pricing.GetPrice(ctx, symbol)
		if err != nil {
			return err
		}
		proceeds := price.Mul(quantity)

		remaining := asset.Quantity.Sub(quantity)
		if remaining.IsZero() {
			if err := assets.Delete(portfolio.ID, symbol); err != nil {
				return err
			}
		} else {
			asset.Quantity = remaining
			if err := assets.Update(asset); err != nil {
				return err
			}
		}

		if err := transactions.Add(&models.Transaction{
			PortfolioID: portfolio.ID,
			Symbol:      symbol,
			Quantity:    quantity.Neg(),
			Price:       price,
			Timestamp:   time.Now().UTC(),
		}); err != nil {
			return err
		}

		portfolio.AvailableMoney = portfolio.AvailableMoney.Add(proceeds)

		return portfolios.Save(portfolio)
	})

	if err != nil {
		if isTradeError(err) {
			return err
		}
		return fmt.Errorf("failed to execute sell: %w", err)
	}

	return nil
}

// isTradeError reports whether err is a user-visible validation failure
// rather than an internal one.
func isTradeError(err error) bool {
	return errors.Is(err, errs.ErrInsufficientFunds) ||
		errors.Is(err, errs.ErrInsufficientPosition) ||
		errors.Is(err, errs.ErrPriceUnavailable) ||
		errors.Is(err, errs.ErrNotFound)
}
