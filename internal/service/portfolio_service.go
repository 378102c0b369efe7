package service

import (
	"context"
	"fmt"

	"github.com/cryptofolio/api/internal/models"
	"github.com/cryptofolio/api/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type AssetReport struct {
	Symbol           string          `json:"symbol"`
	Quantity         decimal.Decimal `json:"quantity"`
	CurrentPrice     decimal.Decimal `json:"current_price"`
	TotalValue       decimal.Decimal `json:"total_value"`
	AvgPurchasePrice decimal.Decimal `json:"avg_purchase_price"`
	PerformanceAbs   decimal.Decimal `json:"performance_abs"`
	PerformanceRel   decimal.Decimal `json:"performance_rel"`
}

type PortfolioReport struct {
	TotalAddedMoney decimal.Decimal `json:"total_added_money"`
	AvailableMoney  decimal.Decimal `json:"available_money"`
	TotalValue      decimal.Decimal `json:"total_value"`
	PerformanceAbs  decimal.Decimal `json:"performance_abs"`
	PerformanceRel  decimal.Decimal `json:"performance_rel"`
	Assets          []AssetReport   `json:"assets"`
}

// PortfoliosService builds the valuation report: a read-only projection
// over the portfolio, its assets and its trade log. It never mutates state,
// so it is safe against trades committing while it runs; at worst the
// report reflects a portfolio state that was current a moment ago.
type PortfoliosService interface {
	GetReport(ctx context.Context, userID uuid.UUID) (*PortfolioReport, error)
	GetTransactions(ctx context.Context, userID uuid.UUID) ([]models.Transaction, error)
}

type portfoliosService struct {
	portfoliosRepo   repository.PortfoliosRepository
	transactionsRepo repository.TransactionsRepository
	pricing          PricingService
}

func NewPortfoliosService(
	portfoliosRepo repository.PortfoliosRepository,
	transactionsRepo repository.TransactionsRepository,
	pricing PricingService,
) PortfoliosService {
	return &portfoliosService{
		portfoliosRepo:   portfoliosRepo,
		transactionsRepo: transactionsRepo,
		pricing:          pricing,
	}
}

var hundred = decimal.NewFromInt(100)

func (s *portfoliosService) GetReport(ctx context.Context, userID uuid.UUID) (*PortfolioReport, error) {
	portfolio, err := s.portfoliosRepo.GetByUserID(userID)
	if err != nil {
		return nil, err
	}

	totalValue := portfolio.AvailableMoney
	assetReports := make([]AssetReport, 0, len(portfolio.Assets))

	for _, asset := range portfolio.Assets {
		report, err := s.valueAsset(ctx, portfolio.ID, asset)
		if err != nil {
			return nil, fmt.Errorf("failed to value %s: %w", asset.Symbol, err)
		}

		totalValue = totalValue.Add(report.TotalValue)
		assetReports = append(assetReports, report)
	}

	performanceAbs := totalValue.Sub(portfolio.TotalAddedMoney)
	performanceRel := decimal.Zero
	if !portfolio.TotalAddedMoney.IsZero() {
		performanceRel = performanceAbs.Div(portfolio.TotalAddedMoney).Mul(hundred)
	}

	return &PortfolioReport{
		TotalAddedMoney: portfolio.TotalAddedMoney,
		AvailableMoney:  portfolio.AvailableMoney,
		TotalValue:      totalValue,
		PerformanceAbs:  performanceAbs,
		PerformanceRel:  performanceRel,
		Assets:          assetReports,
	}, nil
}

func (s *portfoliosService) valueAsset(ctx context.Context, portfolioID uuid.UUID, asset models.Asset) (AssetReport, error) {
	// A position with no quote is valued at zero; the report must render
	// even with the price source down.
	currentPrice, err := s.pricing.GetPrice(ctx, asset.Symbol)
	if err != nil {
		currentPrice = decimal.Zero
	}
	assetValue := currentPrice.Mul(asset.Quantity)

	transactions, err := s.transactionsRepo.ListBySymbol(portfolioID, asset.Symbol)
	if err != nil {
		return AssetReport{}, err
	}

	// Average cost over all-time buys only; sells never reduce the cost
	// basis. This is an approximation, not lot tracking.
	totalCost := decimal.Zero
	totalBought := decimal.Zero
	for _, t := range transactions {
		if t.Quantity.IsPositive() {
			totalCost = totalCost.Add(t.Quantity.Mul(t.Price))
			totalBought = totalBought.Add(t.Quantity)
		}
	}

	avgPurchasePrice := decimal.Zero
	if totalBought.IsPositive() {
		avgPurchasePrice = totalCost.Div(totalBought)
	}

	investedAmount := avgPurchasePrice.Mul(asset.Quantity)
	performanceAbs := assetValue.Sub(investedAmount)
	performanceRel := decimal.Zero
	if !investedAmount.IsZero() {
		performanceRel = performanceAbs.Div(investedAmount).Mul(hundred)
	}

	return AssetReport{
		Symbol:           asset.Symbol,
		Quantity:         asset.Quantity,
		CurrentPrice:     currentPrice,
		TotalValue:       assetValue,
		AvgPurchasePrice: avgPurchasePrice,
		PerformanceAbs:   performanceAbs,
		PerformanceRel:   performanceRel,
	}, nil
}

func (s *portfoliosService) GetTransactions(ctx context.Context, userID uuid.UUID) ([]models.Transaction, error) {
	portfolio, err := s.portfoliosRepo.GetByUserID(userID)
	if err != nil {
		return nil, err
	}

	return s.transactionsRepo.ListByPortfolio(portfolio.ID)
}
