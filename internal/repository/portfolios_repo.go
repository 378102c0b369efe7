package repository

import (
	"errors"
	"strings"

	"github.com/cryptofolio/api/internal/models"
	"github.com/cryptofolio/api/lib/errs"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PortfoliosRepository interface {
	Create(portfolio *models.Portfolio) error
	GetByUserID(userID uuid.UUID) (*models.Portfolio, error)
	GetByUserIDForUpdate(userID uuid.UUID) (*models.Portfolio, error)
	Save(portfolio *models.Portfolio) error
}

type portfoliosRepository struct {
	db *gorm.DB
}

func NewPortfoliosRepository(db *gorm.DB) PortfoliosRepository {
	return &portfoliosRepository{db: db}
}

func (db *portfoliosRepository) Create(portfolio *models.Portfolio) error {
	if err := db.db.Create(portfolio).Error; err != nil {
		errorString := err.Error()
		if strings.Contains(errorString, "UNIQUE") || strings.Contains(errorString, "duplicate") {
			return errs.ErrAlreadyExists
		}

		return err
	}

	return nil
}

func (db *portfoliosRepository) GetByUserID(userID uuid.UUID) (*models.Portfolio, error) {
	var portfolio models.Portfolio

	if err := db.db.Preload("Assets").Where("user_id = ?", userID).First(&portfolio).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrNotFound
		}

		return nil, err
	}

	return &portfolio, nil
}

// GetByUserIDForUpdate locks the portfolio row for the rest of the enclosing
// transaction, serializing concurrent trades on the same portfolio. SQLite
// has no row locks; its single-writer transactions already serialize, so the
// clause is only applied on postgres.
func (db *portfoliosRepository) GetByUserIDForUpdate(userID uuid.UUID) (*models.Portfolio, error) {
	var portfolio models.Portfolio

	tx := db.db
	if tx.Dialector.Name() == "postgres" {
		tx = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	if err := tx.Where("user_id = ?", userID).First(&portfolio).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrNotFound
		}

		return nil, err
	}

	return &portfolio, nil
}

func (db *portfoliosRepository) Save(portfolio *models.Portfolio) error {
	if err := db.db.Save(portfolio).Error; err != nil {
		return err
	}
	return nil
}
