package repository

import (
	"errors"
	"strings"

	"github.com/cryptofolio/api/internal/models"
	"github.com/cryptofolio/api/lib/errs"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UsersRepository interface {
	Create(user *models.User) error
	GetByID(userID uuid.UUID) (*models.User, error)
	GetByUsername(username string) (*models.User, error)
}

type usersRepository struct {
	db *gorm.DB
}

func NewUsersRepository(db *gorm.DB) UsersRepository {
	return &usersRepository{db: db}
}

func (db *usersRepository) Create(user *models.User) error {
	if err := db.db.Create(user).Error; err != nil {
		errorString := err.Error()
		if strings.Contains(errorString, "UNIQUE") || strings.Contains(errorString, "duplicate") {
			return errs.ErrAlreadyExists
		}

		return err
	}

	return nil
}

func (db *usersRepository) GetByID(userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := db.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrNotFound
		}

		return nil, err
	}
	return &user, nil
}

func (db *usersRepository) GetByUsername(username string) (*models.User, error) {
	var user models.User
	if err := db.db.Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrNotFound
		}

		return nil, err
	}
	return &user, nil
}
