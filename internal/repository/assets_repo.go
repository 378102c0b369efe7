package repository

import (
	"errors"
	"strings"

	"github.com/cryptofolio/api/internal/models"
	"github.com/cryptofolio/api/lib/errs"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AssetsRepository interface {
	Add(asset *models.Asset) error
	Get(portfolioID uuid.UUID, symbol string) (*models.Asset, error)
	Update(asset *models.Asset) error
	Delete(portfolioID uuid.UUID, symbol string) error
}

type assetsRepository struct {
	db *gorm.DB
}

func NewAssetsRepository(db *gorm.DB) AssetsRepository {
	return &assetsRepository{
		db: db,
	}
}

func (db *assetsRepository) Add(asset *models.Asset) error {
	if err := db.db.Create(asset).Error; err != nil {
		errorString := err.Error()
		if strings.Contains(errorString, "UNIQUE") || strings.Contains(errorString, "duplicate") {
			return errs.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (db *assetsRepository) Get(portfolioID uuid.UUID, symbol string) (*models.Asset, error) {
	var asset models.Asset

	if err := db.db.Where("portfolio_id = ? AND symbol = ?", portfolioID, symbol).First(&asset).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}

	return &asset, nil
}

func (db *assetsRepository) Update(asset *models.Asset) error {
	if err := db.db.Save(asset).Error; err != nil {
		return err
	}
	return nil
}

// Delete removes the row outright (no soft delete) so a later re-buy can
// reuse the (portfolio, symbol) slot without tripping the unique index.
func (db *assetsRepository) Delete(portfolioID uuid.UUID, symbol string) error {
	result := db.db.Unscoped().Where("portfolio_id = ? AND symbol = ?", portfolioID, symbol).Delete(&models.Asset{})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return errs.ErrNotFound
	}

	return nil
}
