package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"barbershop-system/internal/commission"
	"barbershop-system/internal/database/models"
)

type SaleRepository struct {
	db *gorm.DB
}

func NewSaleRepository(db *gorm.DB) *SaleRepository {
	return &SaleRepository{db: db}
}

// ListPaidByStaff returns the paid sales of one staff member whose payment
// falls in [from, to).
func (r *SaleRepository) ListPaidByStaff(ctx context.Context, companyID, staffID uuid.UUID, from, to time.Time) ([]models.Sale, error) {
	var sales []models.Sale
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("company_id = ? AND staff_id = ? AND status = ?", companyID, staffID, string(commission.StatusPaid)).
		Where("paid_at >= ? AND paid_at < ?", from, to).
		Order("paid_at asc").
		Find(&sales).Error
	return sales, err
}

// PaidCursor is a position in (paid_at, id) order.
type PaidCursor struct {
	PaidAt time.Time
	ID     uuid.UUID
}

// ListPaidAfter feeds the reconciliation sweep across all tenants. Rows come
// in (paid_at, id) order, strictly after cur, so sales sharing a paid_at are
// neither skipped nor repeated across pages.
func (r *SaleRepository) ListPaidAfter(ctx context.Context, cur PaidCursor, limit int) ([]models.Sale, error) {
	var sales []models.Sale
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("status = ?", string(commission.StatusPaid)).
		Where("(paid_at > ? OR (paid_at = ? AND id > ?))", cur.PaidAt, cur.PaidAt, cur.ID).
		Order("paid_at asc, id asc").
		Limit(limit).
		Find(&sales).Error
	return sales, err
}

func (r *SaleRepository) Get(ctx context.Context, companyID, saleID uuid.UUID) (models.Sale, error) {
	var sale models.Sale
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("company_id = ? AND id = ?", companyID, saleID).
		First(&sale).Error
	return sale, err
}

func ToCommissionSales(rows []models.Sale) []commission.Sale {
	out := make([]commission.Sale, len(rows))
	for i, s := range rows {
		out[i] = s.ToCommission()
	}
	return out
}
