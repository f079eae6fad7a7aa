package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"barbershop-system/internal/commission"
	"barbershop-system/internal/database/models"
)

type HistoryRepository struct {
	db        *gorm.DB
	companyID uuid.UUID
	rows      historyRows
}

// NewHistoryRepository scopes ledger writes to one tenant. Pass a
// transaction handle to make writes part of the sale payment.
func NewHistoryRepository(db *gorm.DB, companyID uuid.UUID) *HistoryRepository {
	return &HistoryRepository{db: db, companyID: companyID, rows: gormHistoryRows{db: db}}
}

// historyRows is the table access behind InsertIfAbsent. insertIgnore
// reports zero rows when (sale_id, line_item_id) already exists.
type historyRows interface {
	insertIgnore(ctx context.Context, row *models.CommissionHistoryRecord) (int64, error)
	findLine(ctx context.Context, saleID, lineItemID uuid.UUID) (models.CommissionHistoryRecord, error)
}

type gormHistoryRows struct {
	db *gorm.DB
}

func (g gormHistoryRows) insertIgnore(ctx context.Context, row *models.CommissionHistoryRecord) (int64, error) {
	res := g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "sale_id"}, {Name: "line_item_id"}},
		DoNothing: true,
	}).Create(row)
	return res.RowsAffected, res.Error
}

func (g gormHistoryRows) findLine(ctx context.Context, saleID, lineItemID uuid.UUID) (models.CommissionHistoryRecord, error) {
	var existing models.CommissionHistoryRecord
	err := g.db.WithContext(ctx).
		Where("sale_id = ? AND line_item_id = ?", saleID, lineItemID).
		First(&existing).Error
	return existing, err
}

func (r *HistoryRepository) InsertIfAbsent(ctx context.Context, rec commission.HistoryRecord) (commission.HistoryRecord, bool, error) {
	row, err := models.HistoryFromCommission(r.companyID, rec)
	if err != nil {
		return commission.HistoryRecord{}, false, err
	}

	n, err := r.rows.insertIgnore(ctx, &row)
	if err != nil {
		return commission.HistoryRecord{}, false, err
	}
	if n > 0 {
		return row.ToCommission(), true, nil
	}

	existing, err := r.rows.findLine(ctx, row.SaleID, row.LineItemID)
	if err != nil {
		return commission.HistoryRecord{}, false, err
	}
	return existing.ToCommission(), false, nil
}

func (r *HistoryRepository) FindBySales(ctx context.Context, saleIDs []string) ([]commission.HistoryRecord, error) {
	ids := make([]uuid.UUID, 0, len(saleIDs))
	for _, s := range saleIDs {
		if id, err := uuid.Parse(s); err == nil {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	var rows []models.CommissionHistoryRecord
	if err := r.db.WithContext(ctx).Where("sale_id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]commission.HistoryRecord, len(rows))
	for i, row := range rows {
		out[i] = row.ToCommission()
	}
	return out, nil
}

// DeleteBySale is only used by whole-sale deletion.
func (r *HistoryRepository) DeleteBySale(ctx context.Context, saleID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("company_id = ? AND sale_id = ?", r.companyID, saleID).
		Delete(&models.CommissionHistoryRecord{}).Error
}
