package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CommissionOverride struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey"`
	CompanyID  uuid.UUID       `gorm:"type:uuid;index;not null"`
	StaffID    uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_override_staff_item"`
	Category   string          `gorm:"type:varchar(16);not null;uniqueIndex:idx_override_staff_item"`
	ItemID     uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_override_staff_item"`
	Percentage decimal.Decimal `gorm:"type:numeric;not null"`
	UpdatedBy  uuid.UUID       `gorm:"type:uuid;not null"`
	CreatedAt  time.Time       `gorm:"autoCreateTime"`
	UpdatedAt  time.Time       `gorm:"autoUpdateTime"`
}

func (m *CommissionOverride) BeforeCreate(tx *gorm.DB) error {
	ensureID(&m.ID)
	return nil
}

// CommissionHistoryRecord is written once per sold line when its sale is paid
// and never updated afterwards. Amount is stored unrounded.
type CommissionHistoryRecord struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey"`
	CompanyID  uuid.UUID       `gorm:"type:uuid;index;not null"`
	SaleID     uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_history_sale_line"`
	StaffID    uuid.UUID       `gorm:"type:uuid;index;not null"`
	LineItemID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_history_sale_line"`
	Category   string          `gorm:"type:varchar(16);not null"`
	Percentage decimal.Decimal `gorm:"type:numeric;not null"`
	Amount     decimal.Decimal `gorm:"type:numeric;not null"`
	CreatedAt  time.Time       `gorm:"autoCreateTime"`
}

func (CommissionHistoryRecord) TableName() string {
	return "commission_history"
}

func (m *CommissionHistoryRecord) BeforeCreate(tx *gorm.DB) error {
	ensureID(&m.ID)
	return nil
}

type ReconciliationIssue struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	CompanyID   uuid.UUID `gorm:"type:uuid;index;not null"`
	SaleID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_issue_sale_kind"`
	Kind        string    `gorm:"type:varchar(48);not null;uniqueIndex:idx_issue_sale_kind"`
	Detail      string    `gorm:"type:text"`
	FirstSeenAt time.Time `gorm:"not null"`
	LastSeenAt  time.Time `gorm:"not null"`
	ResolvedAt  *time.Time
}

func (m *ReconciliationIssue) BeforeCreate(tx *gorm.DB) error {
	ensureID(&m.ID)
	return nil
}
