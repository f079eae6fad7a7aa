package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

// Company is the tenant. Every other row carries its id.
type Company struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"not null"`
	Currency  string    `gorm:"type:varchar(3);not null;default:'BRL'"`
	IsActive  bool      `gorm:"default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (m *Company) BeforeCreate(tx *gorm.DB) error {
	ensureID(&m.ID)
	return nil
}

type User struct {
	ID          uuid.UUID                  `gorm:"type:uuid;primaryKey"`
	CompanyID   uuid.UUID                  `gorm:"type:uuid;index;not null"`
	Username    string                     `gorm:"uniqueIndex;not null"`
	Email       string                     `gorm:"not null"`
	Password    string                     `gorm:"not null"`
	FullName    string                     `gorm:"not null"`
	Role        string                     `gorm:"type:varchar(16);not null"`
	Permissions datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	StaffID     *uuid.UUID                 `gorm:"type:uuid"`
	IsActive    bool                       `gorm:"default:true"`
	LastLogin   *time.Time
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

func (m *User) BeforeCreate(tx *gorm.DB) error {
	ensureID(&m.ID)
	return nil
}

// StaffMember is a barber. Rows are deactivated, never deleted.
type StaffMember struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey"`
	CompanyID         uuid.UUID       `gorm:"type:uuid;index;not null"`
	Name              string          `gorm:"not null"`
	Phone             string          `gorm:"type:varchar(32)"`
	ServicePercentage decimal.Decimal `gorm:"type:numeric;not null;default:0"`
	ProductPercentage decimal.Decimal `gorm:"type:numeric;not null;default:0"`
	IsActive          bool            `gorm:"default:true"`
	CreatedAt         time.Time       `gorm:"autoCreateTime"`
	UpdatedAt         time.Time       `gorm:"autoUpdateTime"`

	Overrides []CommissionOverride `gorm:"foreignKey:StaffID"`
}

func (m *StaffMember) BeforeCreate(tx *gorm.DB) error {
	ensureID(&m.ID)
	return nil
}
