package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CatalogItem is a service or a product that can be sold.
type CatalogItem struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey"`
	CompanyID       uuid.UUID       `gorm:"type:uuid;index;not null"`
	Category        string          `gorm:"type:varchar(16);index;not null"`
	Name            string          `gorm:"not null"`
	Price           decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	DurationMinutes int
	IsActive        bool      `gorm:"default:true"`
	CreatedAt       time.Time `gorm:"autoCreateTime"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime"`
}

func (m *CatalogItem) BeforeCreate(tx *gorm.DB) error {
	ensureID(&m.ID)
	return nil
}

type Client struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CompanyID uuid.UUID `gorm:"type:uuid;index;not null"`
	Name      string    `gorm:"not null"`
	Phone     string    `gorm:"type:varchar(32);index"`
	Email     string
	Notes     *string `gorm:"type:text"`
	IsActive  bool    `gorm:"default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (m *Client) BeforeCreate(tx *gorm.DB) error {
	ensureID(&m.ID)
	return nil
}

type Expense struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	CompanyID   uuid.UUID       `gorm:"type:uuid;index;not null"`
	Description string          `gorm:"not null"`
	Category    string          `gorm:"type:varchar(64);not null"`
	Amount      decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	SpentOn     datatypes.Date  `gorm:"index;not null"`
	CreatedBy   uuid.UUID       `gorm:"type:uuid;not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (m *Expense) BeforeCreate(tx *gorm.DB) error {
	ensureID(&m.ID)
	return nil
}
