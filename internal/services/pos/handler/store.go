package handler

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"barbershop-system/internal/commission"
	"barbershop-system/internal/database/models"
	"barbershop-system/internal/services/commissions/repository"
)

// saleStore is what a sale lifecycle change reads and writes. Every call
// made through one saleStore belongs to the same transaction.
type saleStore interface {
	LockSale(ctx context.Context, companyID, saleID uuid.UUID) (models.Sale, error)
	UpdateSale(ctx context.Context, saleID uuid.UUID, fields map[string]interface{}) error
	CreateReceivable(ctx context.Context, r *models.Receivable) error
	GetStaff(ctx context.Context, companyID, staffID uuid.UUID) (models.StaffMember, error)
	History(companyID uuid.UUID) commission.HistoryStore
	Overrides() commission.OverrideStore

	DeleteHistory(ctx context.Context, companyID, saleID uuid.UUID) error
	DeleteReceivables(ctx context.Context, saleID uuid.UUID) error
	DeleteIssues(ctx context.Context, saleID uuid.UUID) error
	DeleteLines(ctx context.Context, saleID uuid.UUID) error
	DeleteSale(ctx context.Context, saleID uuid.UUID) error
}

// transactor runs fn in one transaction and commits only when fn returns nil.
type transactor func(ctx context.Context, fn func(saleStore) error) error

func gormTransactor(db *gorm.DB) transactor {
	return func(ctx context.Context, fn func(saleStore) error) error {
		return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(&gormSaleStore{tx: tx})
		})
	}
}

type gormSaleStore struct {
	tx *gorm.DB
}

func (g *gormSaleStore) LockSale(ctx context.Context, companyID, saleID uuid.UUID) (models.Sale, error) {
	var sale models.Sale
	err := g.tx.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("company_id = ? AND id = ?", companyID, saleID).
		First(&sale).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sale, status.Errorf(codes.NotFound, "Sale %s not found", saleID)
	}
	if err != nil {
		return sale, status.Errorf(codes.Internal, "Failed to lock sale: %v", err)
	}
	if err := g.tx.WithContext(ctx).Where("sale_id = ?", sale.ID).Order("created_at asc").Find(&sale.Items).Error; err != nil {
		return sale, status.Errorf(codes.Internal, "Failed to get sale items: %v", err)
	}
	return sale, nil
}

func (g *gormSaleStore) UpdateSale(ctx context.Context, saleID uuid.UUID, fields map[string]interface{}) error {
	return g.tx.WithContext(ctx).Model(&models.Sale{}).Where("id = ?", saleID).Updates(fields).Error
}

func (g *gormSaleStore) CreateReceivable(ctx context.Context, r *models.Receivable) error {
	return g.tx.WithContext(ctx).Create(r).Error
}

func (g *gormSaleStore) GetStaff(ctx context.Context, companyID, staffID uuid.UUID) (models.StaffMember, error) {
	var staff models.StaffMember
	err := g.tx.WithContext(ctx).Where("company_id = ? AND id = ?", companyID, staffID).First(&staff).Error
	return staff, err
}

func (g *gormSaleStore) History(companyID uuid.UUID) commission.HistoryStore {
	return repository.NewHistoryRepository(g.tx, companyID)
}

// Overrides reads through the transaction so history reflects the rates in
// effect at payment time.
func (g *gormSaleStore) Overrides() commission.OverrideStore {
	return repository.NewOverrideRepository(g.tx)
}

func (g *gormSaleStore) DeleteHistory(ctx context.Context, companyID, saleID uuid.UUID) error {
	return repository.NewHistoryRepository(g.tx, companyID).DeleteBySale(ctx, saleID)
}

func (g *gormSaleStore) DeleteReceivables(ctx context.Context, saleID uuid.UUID) error {
	return g.tx.WithContext(ctx).Where("sale_id = ?", saleID).Delete(&models.Receivable{}).Error
}

func (g *gormSaleStore) DeleteIssues(ctx context.Context, saleID uuid.UUID) error {
	return g.tx.WithContext(ctx).Where("sale_id = ?", saleID).Delete(&models.ReconciliationIssue{}).Error
}

func (g *gormSaleStore) DeleteLines(ctx context.Context, saleID uuid.UUID) error {
	return g.tx.WithContext(ctx).Where("sale_id = ?", saleID).Delete(&models.SaleLineItem{}).Error
}

func (g *gormSaleStore) DeleteSale(ctx context.Context, saleID uuid.UUID) error {
	return g.tx.WithContext(ctx).Delete(&models.Sale{}, "id = ?", saleID).Error
}
