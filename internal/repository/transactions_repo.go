package repository

import (
	"github.com/cryptofolio/api/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TransactionsRepository is append-only: the trade log is immutable, so no
// update or delete methods exist.
type TransactionsRepository interface {
	Add(transaction *models.Transaction) error
	ListBySymbol(portfolioID uuid.UUID, symbol string) ([]models.Transaction, error)
	ListByPortfolio(portfolioID uuid.UUID) ([]models.Transaction, error)
}

type transactionsRepository struct {
	db *gorm.DB
}

func NewTransactionsRepository(db *gorm.DB) TransactionsRepository {
	return &transactionsRepository{
		db: db,
	}
}

func (db *transactionsRepository) Add(transaction *models.Transaction) error {
	if err := db.db.Create(transaction).Error; err != nil {
		return err
	}
	return nil
}

func (db *transactionsRepository) ListBySymbol(portfolioID uuid.UUID, symbol string) ([]models.Transaction, error) {
	var transactions []models.Transaction

	if err := db.db.Where("portfolio_id = ? AND symbol = ?", portfolioID, symbol).
		Order("timestamp asc").Find(&transactions).Error; err != nil {
		return nil, err
	}

	return transactions, nil
}

func (db *transactionsRepository) ListByPortfolio(portfolioID uuid.UUID) ([]models.Transaction, error) {
	var transactions []models.Transaction

	if err := db.db.Where("portfolio_id = ?", portfolioID).
		Order("timestamp asc").Find(&transactions).Error; err != nil {
		return nil, err
	}

	return transactions, nil
}
