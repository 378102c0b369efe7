package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;"`
	Username     string    `gorm:"unique;not null"`
	PasswordHash string    `gorm:"not null"`
	Portfolio    Portfolio `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE;"`
}

func (user *User) BeforeCreate(tx *gorm.DB) (err error) {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	return
}

// Portfolio is a user's cash balance plus holdings. One per user, created
// together with the user at zero balance.
type Portfolio struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey;"`
	UserID          uuid.UUID       `gorm:"type:uuid;uniqueIndex;not null"`
	TotalAddedMoney decimal.Decimal `gorm:"type:decimal(20,8);not null"`
	AvailableMoney  decimal.Decimal `gorm:"type:decimal(20,8);not null"`
	Assets          []Asset         `gorm:"foreignKey:PortfolioID;constraint:OnDelete:CASCADE;"`
	Transactions    []Transaction   `gorm:"foreignKey:PortfolioID;constraint:OnDelete:CASCADE;"`
}

func (portfolio *Portfolio) BeforeCreate(tx *gorm.DB) (err error) {
	if portfolio.ID == uuid.Nil {
		portfolio.ID = uuid.New()
	}
	return
}

// Asset is a nonzero position in one symbol. The row is deleted when the
// position is sold down to exactly zero.
type Asset struct {
	gorm.Model

	PortfolioID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_assets_portfolio_symbol"`
	Symbol      string          `gorm:"not null;uniqueIndex:idx_assets_portfolio_symbol"`
	Quantity    decimal.Decimal `gorm:"type:decimal(20,8);not null"`
}

// Transaction is the append-only trade log. Quantity is signed: positive
// for buys, negative for sells. Rows are never updated or deleted.
type Transaction struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey;"`
	PortfolioID uuid.UUID       `gorm:"type:uuid;index;not null"`
	Symbol      string          `gorm:"not null"`
	Quantity    decimal.Decimal `gorm:"type:decimal(20,8);not null"`
	Price       decimal.Decimal `gorm:"type:decimal(20,8);not null"`
	Timestamp   time.Time       `gorm:"not null"`
}

func (transaction *Transaction) BeforeCreate(tx *gorm.DB) (err error) {
	if transaction.ID == uuid.Nil {
		transaction.ID = uuid.New()
	}
	return
}
