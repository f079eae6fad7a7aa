package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"barbershop-system/internal/commission"
	"barbershop-system/internal/database/models"
)

type OverrideRepository struct {
	db *gorm.DB
}

func NewOverrideRepository(db *gorm.DB) *OverrideRepository {
	return &OverrideRepository{db: db}
}

func (r *OverrideRepository) FindOverride(ctx context.Context, staffID string, category commission.Category, itemID string) (commission.Override, error) {
	staff, err1 := uuid.Parse(staffID)
	item, err2 := uuid.Parse(itemID)
	if err1 != nil || err2 != nil {
		return commission.Override{}, commission.ErrNotFound
	}

	var row models.CommissionOverride
	err := r.db.WithContext(ctx).
		Where("staff_id = ? AND category = ? AND item_id = ?", staff, string(category), item).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return commission.Override{}, commission.ErrNotFound
	}
	if err != nil {
		return commission.Override{}, err
	}
	return row.ToCommission(), nil
}

func (r *OverrideRepository) ListOverrides(ctx context.Context, staffID string) ([]commission.Override, error) {
	staff, err := uuid.Parse(staffID)
	if err != nil {
		return nil, nil
	}

	var rows []models.CommissionOverride
	if err := r.db.WithContext(ctx).Where("staff_id = ?", staff).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]commission.Override, len(rows))
	for i, row := range rows {
		out[i] = row.ToCommission()
	}
	return out, nil
}

func (r *OverrideRepository) ListRows(ctx context.Context, companyID, staffID uuid.UUID) ([]models.CommissionOverride, error) {
	var rows []models.CommissionOverride
	err := r.db.WithContext(ctx).
		Where("company_id = ? AND staff_id = ?", companyID, staffID).
		Order("category, item_id").
		Find(&rows).Error
	return rows, err
}

// Upsert keeps one row per (staff, category, item).
func (r *OverrideRepository) Upsert(ctx context.Context, row *models.CommissionOverride) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "staff_id"}, {Name: "category"}, {Name: "item_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"percentage", "updated_by", "updated_at"}),
	}).Create(row).Error
}

// Delete removes a customization; the staff default applies again afterwards.
func (r *OverrideRepository) Delete(ctx context.Context, companyID, staffID uuid.UUID, category commission.Category, itemID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("company_id = ? AND staff_id = ? AND category = ? AND item_id = ?", companyID, staffID, string(category), itemID).
		Delete(&models.CommissionOverride{})
	return res.RowsAffected > 0, res.Error
}
