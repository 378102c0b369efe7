package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cryptofolio/api/internal/config"
	"github.com/cryptofolio/api/internal/models"
	"github.com/cryptofolio/api/internal/repository"
	"github.com/cryptofolio/api/lib/errs"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type UsersService interface {
	Register(ctx context.Context, username string, password string) (*models.User, error)
	Login(ctx context.Context, username string, password string) (string, error)
}

type usersService struct {
	db  *gorm.DB
	cfg config.SecConfig
}

func NewUsersService(db *gorm.DB, cfg config.SecConfig) UsersService {
	return &usersService{
		db:  db,
		cfg: cfg,
	}
}

// Register creates the user and their empty portfolio in one transaction:
// a user without a portfolio must never exist.
func (s *usersService) Register(ctx context.Context, username string, password string) (*models.User, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     username,
		PasswordHash: string(hashedPassword),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := repository.NewUsersRepository(tx)
		portfolios := repository.NewPortfoliosRepository(tx)

		if err := users.Create(user); err != nil {
			return err
		}

		return portfolios.Create(&models.Portfolio{
			UserID:          user.ID,
			TotalAddedMoney: decimal.Zero,
			AvailableMoney:  decimal.Zero,
		})
	})
	if err != nil {
		if errors.Is(err, errs.ErrAlreadyExists) {
			return nil, errs.ErrAlreadyExists
		}
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	return user, nil
}

// Login verifies the credentials and issues a signed HS256 access token.
// Both unknown-user and wrong-password collapse to ErrInvalidCredentials.
func (s *usersService) Login(ctx context.Context, username string, password string) (string, error) {
	users := repository.NewUsersRepository(s.db.WithContext(ctx))

	user, err := users.GetByUsername(username)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return "", errs.ErrInvalidCredentials
		}
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", errs.ErrInvalidCredentials
	}

	return s.signAccessToken(user.ID, user.Username)
}

func (s *usersService) signAccessToken(userID uuid.UUID, username string) (string, error) {
	claims := jwt.MapClaims{
		"sub":  userID.String(),
		"name": username,
		"exp":  time.Now().Add(s.cfg.AccessTokenTTL).Unix(),
		"iat":  time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}

	return signed, nil
}
