package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Sale struct {
	ID                  uuid.UUID       `gorm:"type:uuid;primaryKey"`
	CompanyID           uuid.UUID       `gorm:"type:uuid;index;not null"`
	ClientID            *uuid.UUID      `gorm:"type:uuid;index"`
	StaffID             uuid.UUID       `gorm:"type:uuid;index;not null"`
	Status              string          `gorm:"type:varchar(16);index;not null"`
	Subtotal            decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Discount            decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"`
	DiscountInSubtotals bool            `gorm:"not null;default:false"`
	Total               decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	PaidAmount          decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"`
	PaymentMethod       string          `gorm:"type:varchar(32)"`
	Notes               *string         `gorm:"type:text"`
	PaidAt              *time.Time      `gorm:"index"`
	CancelledAt         *time.Time
	CreatedBy           uuid.UUID `gorm:"type:uuid;not null"`
	CreatedAt           time.Time
	UpdatedAt           time.Time

	Items       []SaleLineItem `gorm:"foreignKey:SaleID"`
	Receivables []Receivable   `gorm:"foreignKey:SaleID"`
}

func (m *Sale) BeforeCreate(tx *gorm.DB) error {
	ensureID(&m.ID)
	return nil
}

type SaleLineItem struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"`
	SaleID    uuid.UUID       `gorm:"type:uuid;index;not null"`
	ItemID    uuid.UUID       `gorm:"type:uuid;index;not null"`
	Category  string          `gorm:"type:varchar(16);not null"`
	Name      string          `gorm:"not null"`
	Quantity  int64           `gorm:"not null"`
	UnitPrice decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Discount  decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"`
	Subtotal  decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	CreatedAt time.Time
}

func (m *SaleLineItem) BeforeCreate(tx *gorm.DB) error {
	ensureID(&m.ID)
	return nil
}

// Receivable is the unpaid remainder of a sale settled later.
type Receivable struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"`
	CompanyID uuid.UUID       `gorm:"type:uuid;index;not null"`
	SaleID    uuid.UUID       `gorm:"type:uuid;index;not null"`
	ClientID  *uuid.UUID      `gorm:"type:uuid"`
	Amount    decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	DueDate   datatypes.Date
	SettledAt *time.Time
	CreatedAt time.Time
}

func (m *Receivable) BeforeCreate(tx *gorm.DB) error {
	ensureID(&m.ID)
	return nil
}
