package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/gorm"

	"barbershop-system/config"
	"barbershop-system/internal/commission"
	"barbershop-system/internal/database/models"
	"barbershop-system/internal/events"
	"barbershop-system/internal/report"
	"barbershop-system/internal/services/commissions/repository"
	"barbershop-system/internal/services/common"
	"barbershop-system/internal/session"
)

const (
	COMMISSION_REPORT_CACHE_PREFIX = "commission_report:"
	COMMISSION_REPORT_CACHE_TTL    = 10 * time.Minute
)

// --- Request & Response ---

type ResolveRequest struct {
	StaffID  string `json:"staff_id" validate:"required,uuid"`
	ItemID   string `json:"item_id" validate:"required,uuid"`
	Category string `json:"category" validate:"required,oneof=service product"`
}

type ResolveResponse struct {
	StaffID    string `json:"staff_id"`
	ItemID     string `json:"item_id"`
	Category   string `json:"category"`
	Percentage string `json:"percentage"`
	Overridden bool   `json:"overridden"`
}

type AggregateRequest struct {
	StaffID string `json:"staff_id" validate:"required,uuid"`
	From    string `json:"from" validate:"required"`
	To      string `json:"to" validate:"required"`
}

type AggregateResponse struct {
	StaffName string               `json:"staff_name"`
	From      string               `json:"from"`
	To        string               `json:"to"`
	Aggregate commission.Aggregate `json:"aggregate"`
}

type UpsertOverrideRequest struct {
	StaffID    string `json:"staff_id" validate:"required,uuid"`
	ItemID     string `json:"item_id" validate:"required,uuid"`
	Category   string `json:"category" validate:"required,oneof=service product"`
	Percentage string `json:"percentage" validate:"required,numeric"`
}

type OverrideResponse struct {
	ID         string    `json:"id"`
	StaffID    string    `json:"staff_id"`
	ItemID     string    `json:"item_id"`
	Category   string    `json:"category"`
	Percentage string    `json:"percentage"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type HistoryResponse struct {
	SaleID  string                      `json:"sale_id"`
	Records []commission.HistoryRecord  `json:"records"`
	Lines   []commission.LineCommission `json:"lines"`
	Check   commission.Reconciliation   `json:"reconciliation"`
}

type IssueResponse struct {
	SaleID      string     `json:"sale_id"`
	Kind        string     `json:"kind"`
	Detail      string     `json:"detail"`
	FirstSeenAt time.Time  `json:"first_seen_at"`
	LastSeenAt  time.Time  `json:"last_seen_at"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
}

// --- Handler ---

type CommissionHandler struct {
	db        *gorm.DB
	redis     *redis.Client
	logger    *logrus.Logger
	events    events.Publisher
	overrides *repository.CachedOverrideStore
	sales     *repository.SaleRepository
	epsilon   decimal.Decimal
}

func NewCommissionHandler(db *gorm.DB, redisClient *redis.Client, logger *logrus.Logger, publisher events.Publisher, epsilon decimal.Decimal) *CommissionHandler {
	if epsilon.IsZero() {
		epsilon = commission.DefaultEpsilon
	}
	return &CommissionHandler{
		db:        db,
		redis:     redisClient,
		logger:    logger,
		events:    publisher,
		overrides: repository.NewCachedOverrideStore(repository.NewOverrideRepository(db), redisClient, logger),
		sales:     repository.NewSaleRepository(db),
		epsilon:   epsilon,
	}
}

func reportCacheKey(companyID, staffID uuid.UUID, from, to time.Time) string {
	return fmt.Sprintf("%s%s:%s:%s:%s", COMMISSION_REPORT_CACHE_PREFIX, companyID, staffID, from.Format(common.DateLayout), to.Format(common.DateLayout))
}

// InvalidateCommissionCaches drops every cached report of the given staff
// members together with their cached overrides.
func (c *CommissionHandler) InvalidateCommissionCaches(ctx context.Context, companyID string, staffIDs ...string) {
	c.overrides.Invalidate(ctx, staffIDs...)
	for _, staffID := range staffIDs {
		pattern := fmt.Sprintf("%s%s:%s:*", COMMISSION_REPORT_CACHE_PREFIX, companyID, staffID)
		iter := c.redis.Scan(ctx, 0, pattern, 100).Iterator()
		var keys []string
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
		}
		if err := iter.Err(); err != nil {
			config.LogError(c.logger, "commissions", "InvalidateCommissionCaches", "scan report keys", pattern, err)
			continue
		}
		if len(keys) > 0 {
			_ = c.redis.Del(ctx, keys...)
		}
	}
}

func (c *CommissionHandler) loadStaff(ctx context.Context, companyID, staffID uuid.UUID) (models.StaffMember, error) {
	var staff models.StaffMember
	err := c.db.WithContext(ctx).Where("company_id = ? AND id = ?", companyID, staffID).First(&staff).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return staff, status.Errorf(codes.NotFound, "Staff member %s not found", staffID)
	}
	if err != nil {
		return staff, status.Errorf(codes.Internal, "Failed to get staff member: %v", err)
	}
	return staff, nil
}

func (c *CommissionHandler) engine(companyID uuid.UUID) *commission.Engine {
	return commission.NewEngine(repository.NewHistoryRepository(c.db, companyID), commission.NewResolver(c.overrides))
}

// ResolvePercentage answers which rate a future sale of the item would use.
func (c *CommissionHandler) ResolvePercentage(ctx context.Context, sess session.Session, req ResolveRequest) (*ResolveResponse, error) {
	if err := common.Validate(req); err != nil {
		return nil, err
	}
	if !sess.CanViewStaff(req.StaffID) {
		return nil, status.Errorf(codes.PermissionDenied, "Cannot view rates of another staff member")
	}
	companyID, err := common.CompanyID(sess)
	if err != nil {
		return nil, err
	}
	staff, err := c.loadStaff(ctx, companyID, uuid.MustParse(req.StaffID))
	if err != nil {
		return nil, err
	}

	pct, overridden, err := resolveRate(ctx, c.overrides, staff.ToCommission(), commission.Category(req.Category), req.ItemID)
	if err != nil {
		return nil, common.ToStatus(err, "Failed to resolve percentage")
	}
	return &ResolveResponse{
		StaffID:    req.StaffID,
		ItemID:     req.ItemID,
		Category:   req.Category,
		Percentage: pct.String(),
		Overridden: overridden,
	}, nil
}

// resolveRate reads the staff member's overrides once and reports the rate
// for one item and whether an override supplied it.
func resolveRate(ctx context.Context, overrides commission.OverrideStore, staff commission.StaffMember, category commission.Category, itemID string) (decimal.Decimal, bool, error) {
	rates, err := commission.NewResolver(overrides).Rates(ctx, staff)
	if err != nil {
		return decimal.Zero, false, err
	}
	pct, overridden := rates.Percentage(category, itemID)
	return pct, overridden, nil
}

// Aggregate reports a staff member's commissions over paid sales in the
// period. Results are cached per company, staff and period.
func (c *CommissionHandler) Aggregate(ctx context.Context, sess session.Session, req AggregateRequest) (*AggregateResponse, error) {
	if err := common.Validate(req); err != nil {
		return nil, err
	}
	if !sess.CanViewStaff(req.StaffID) {
		return nil, status.Errorf(codes.PermissionDenied, "Cannot view commissions of another staff member")
	}
	companyID, err := common.CompanyID(sess)
	if err != nil {
		return nil, err
	}
	from, to, err := common.ParsePeriod(req.From, req.To)
	if err != nil {
		return nil, err
	}
	staffID := uuid.MustParse(req.StaffID)

	cacheKey := reportCacheKey(companyID, staffID, from, to)
	val, err := c.redis.Get(ctx, cacheKey).Result()
	if err == nil {
		var cached AggregateResponse
		if err := json.Unmarshal([]byte(val), &cached); err == nil {
			return &cached, nil
		}
	} else if err != redis.Nil {
		c.logger.WithError(err).WithField("key", cacheKey).Warn("redis error on GET, falling back to DB")
	}

	staff, err := c.loadStaff(ctx, companyID, staffID)
	if err != nil {
		return nil, err
	}
	rows, err := c.sales.ListPaidByStaff(ctx, companyID, staffID, from, to)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "Failed to get sales: %v", err)
	}

	agg, err := c.engine(companyID).AggregateCommissions(ctx, staff.ToCommission(), repository.ToCommissionSales(rows))
	if err != nil {
		config.LogError(c.logger, "commissions", "Aggregate", "aggregate commissions", req, err)
		return nil, common.ToStatus(err, "Failed to aggregate commissions")
	}

	resp := &AggregateResponse{
		StaffName: staff.Name,
		From:      req.From,
		To:        req.To,
		Aggregate: agg,
	}
	if data, err := json.Marshal(resp); err == nil {
		if err := c.redis.Set(ctx, cacheKey, data, COMMISSION_REPORT_CACHE_TTL).Err(); err != nil {
			c.logger.WithError(err).WithField("key", cacheKey).Warn("failed to set report cache")
		}
	}
	return resp, nil
}

// ExportAggregate renders the period report as an xlsx workbook.
func (c *CommissionHandler) ExportAggregate(ctx context.Context, sess session.Session, req AggregateRequest) ([]byte, string, error) {
	resp, err := c.Aggregate(ctx, sess, req)
	if err != nil {
		return nil, "", err
	}
	companyID, _ := common.CompanyID(sess)
	staffID := uuid.MustParse(req.StaffID)
	from, to, _ := common.ParsePeriod(req.From, req.To)

	staff, err := c.loadStaff(ctx, companyID, staffID)
	if err != nil {
		return nil, "", err
	}
	rows, err := c.sales.ListPaidByStaff(ctx, companyID, staffID, from, to)
	if err != nil {
		return nil, "", status.Errorf(codes.Internal, "Failed to get sales: %v", err)
	}
	lines, err := c.engine(companyID).SaleLines(ctx, staff.ToCommission(), repository.ToCommissionSales(rows))
	if err != nil {
		return nil, "", common.ToStatus(err, "Failed to compute sale lines")
	}

	var buf bytes.Buffer
	if err := report.WriteAggregate(&buf, report.AggregateWorkbook{
		StaffName: resp.StaffName,
		Period:    req.From + " - " + req.To,
		Aggregate: resp.Aggregate,
		Lines:     lines,
	}); err != nil {
		return nil, "", status.Errorf(codes.Internal, "Failed to build workbook: %v", err)
	}
	filename := fmt.Sprintf("commissions_%s_%s_%s.xlsx", staffID, req.From, req.To)
	return buf.Bytes(), filename, nil
}

// SaleHistory returns the ledger of one sale next to its per-line
// breakdown and reconciliation check.
func (c *CommissionHandler) SaleHistory(ctx context.Context, sess session.Session, saleID string) (*HistoryResponse, error) {
	companyID, err := common.CompanyID(sess)
	if err != nil {
		return nil, err
	}
	id, err := common.ParseID("sale_id", saleID)
	if err != nil {
		return nil, err
	}
	row, err := c.sales.Get(ctx, companyID, id)
	if err != nil {
		return nil, common.ToStatus(err, "Failed to get sale")
	}
	if !sess.CanViewStaff(row.StaffID.String()) {
		return nil, status.Errorf(codes.PermissionDenied, "Cannot view commissions of another staff member")
	}
	staff, err := c.loadStaff(ctx, companyID, row.StaffID)
	if err != nil {
		return nil, err
	}

	sale := row.ToCommission()
	records, err := repository.NewHistoryRepository(c.db, companyID).FindBySales(ctx, []string{sale.ID})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "Failed to get commission history: %v", err)
	}
	lines, err := c.engine(companyID).SaleLines(ctx, staff.ToCommission(), []commission.Sale{sale})
	if err != nil {
		return nil, common.ToStatus(err, "Failed to compute sale lines")
	}
	if records == nil {
		records = []commission.HistoryRecord{}
	}
	return &HistoryResponse{
		SaleID:  sale.ID,
		Records: records,
		Lines:   lines,
		Check:   commission.ReconcileSale(sale, c.epsilon),
	}, nil
}

// --- Overrides ---

func overrideToResponse(row models.CommissionOverride) OverrideResponse {
	return OverrideResponse{
		ID:         row.ID.String(),
		StaffID:    row.StaffID.String(),
		ItemID:     row.ItemID.String(),
		Category:   row.Category,
		Percentage: row.Percentage.String(),
		UpdatedAt:  row.UpdatedAt,
	}
}

func (c *CommissionHandler) ListOverrides(ctx context.Context, sess session.Session, staffID string) ([]OverrideResponse, error) {
	if !sess.CanViewStaff(staffID) {
		return nil, status.Errorf(codes.PermissionDenied, "Cannot view overrides of another staff member")
	}
	companyID, err := common.CompanyID(sess)
	if err != nil {
		return nil, err
	}
	id, err := common.ParseID("staff_id", staffID)
	if err != nil {
		return nil, err
	}
	rows, err := repository.NewOverrideRepository(c.db).ListRows(ctx, companyID, id)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "Failed to list overrides: %v", err)
	}
	out := make([]OverrideResponse, len(rows))
	for i, row := range rows {
		out[i] = overrideToResponse(row)
	}
	return out, nil
}

// UpsertOverride sets a per-item percentage. Only future sales are affected;
// existing history rows keep the rate they were paid with.
func (c *CommissionHandler) UpsertOverride(ctx context.Context, sess session.Session, req UpsertOverrideRequest) (*OverrideResponse, error) {
	if err := common.RequireManager(sess); err != nil {
		return nil, err
	}
	if err := common.Validate(req); err != nil {
		return nil, err
	}
	companyID, err := common.CompanyID(sess)
	if err != nil {
		return nil, err
	}
	pct, err := decimal.NewFromString(req.Percentage)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "Percentage must be a decimal number")
	}
	staffID := uuid.MustParse(req.StaffID)
	itemID := uuid.MustParse(req.ItemID)
	if _, err := c.loadStaff(ctx, companyID, staffID); err != nil {
		return nil, err
	}

	var item models.CatalogItem
	if err := c.db.WithContext(ctx).Where("company_id = ? AND id = ?", companyID, itemID).First(&item).Error; err != nil {
		return nil, common.ToStatus(err, "Failed to get catalog item")
	}
	if item.Category != req.Category {
		return nil, status.Errorf(codes.InvalidArgument, "Item %s is a %s, not a %s", itemID, item.Category, req.Category)
	}

	repo := repository.NewOverrideRepository(c.db)
	row := models.CommissionOverride{
		CompanyID:  companyID,
		StaffID:    staffID,
		Category:   req.Category,
		ItemID:     itemID,
		Percentage: pct,
		UpdatedBy:  common.UserID(sess),
	}
	if err := repo.Upsert(ctx, &row); err != nil {
		return nil, status.Errorf(codes.Internal, "Failed to save override: %v", err)
	}

	// The in-memory id is stale when the upsert hit an existing row.
	var saved models.CommissionOverride
	if err := c.db.WithContext(ctx).
		Where("staff_id = ? AND category = ? AND item_id = ?", staffID, req.Category, itemID).
		First(&saved).Error; err != nil {
		return nil, status.Errorf(codes.Internal, "Failed to reload override: %v", err)
	}

	c.InvalidateCommissionCaches(ctx, companyID.String(), staffID.String())
	c.publish(ctx, sess, events.OverrideChanged, saved.ID.String(), map[string]any{
		"staff_id":   saved.StaffID.String(),
		"item_id":    saved.ItemID.String(),
		"percentage": saved.Percentage.String(),
	})

	resp := overrideToResponse(saved)
	return &resp, nil
}

func (c *CommissionHandler) DeleteOverride(ctx context.Context, sess session.Session, staffID, category, itemID string) error {
	if err := common.RequireManager(sess); err != nil {
		return err
	}
	companyID, err := common.CompanyID(sess)
	if err != nil {
		return err
	}
	sid, err := common.ParseID("staff_id", staffID)
	if err != nil {
		return err
	}
	iid, err := common.ParseID("item_id", itemID)
	if err != nil {
		return err
	}
	cat, err := commission.ParseCategory(category)
	if err != nil {
		return common.ToStatus(err, "Invalid category")
	}

	deleted, err := repository.NewOverrideRepository(c.db).Delete(ctx, companyID, sid, cat, iid)
	if err != nil {
		return status.Errorf(codes.Internal, "Failed to delete override: %v", err)
	}
	if !deleted {
		return status.Errorf(codes.NotFound, "No override for staff %s and item %s", sid, iid)
	}

	c.InvalidateCommissionCaches(ctx, companyID.String(), sid.String())
	c.publish(ctx, sess, events.OverrideChanged, iid.String(), map[string]any{
		"staff_id": sid.String(),
		"deleted":  true,
	})
	return nil
}

// --- Reconciliation issues ---

func (c *CommissionHandler) ListIssues(ctx context.Context, sess session.Session, openOnly bool) ([]IssueResponse, error) {
	if err := common.RequireManager(sess); err != nil {
		return nil, err
	}
	companyID, err := common.CompanyID(sess)
	if err != nil {
		return nil, err
	}
	q := c.db.WithContext(ctx).Where("company_id = ?", companyID)
	if openOnly {
		q = q.Where("resolved_at IS NULL")
	}
	var rows []models.ReconciliationIssue
	if err := q.Order("last_seen_at desc").Limit(500).Find(&rows).Error; err != nil {
		return nil, status.Errorf(codes.Internal, "Failed to list reconciliation issues: %v", err)
	}
	out := make([]IssueResponse, len(rows))
	for i, r := range rows {
		out[i] = IssueResponse{
			SaleID:      r.SaleID.String(),
			Kind:        r.Kind,
			Detail:      r.Detail,
			FirstSeenAt: r.FirstSeenAt,
			LastSeenAt:  r.LastSeenAt,
			ResolvedAt:  r.ResolvedAt,
		}
	}
	return out, nil
}

func (c *CommissionHandler) publish(ctx context.Context, sess session.Session, t events.Type, entityID string, data map[string]any) {
	err := c.events.Publish(ctx, events.Event{
		Type:      t,
		CompanyID: sess.CompanyID,
		EntityID:  entityID,
		ActorID:   sess.UserID,
		Data:      data,
	})
	if err != nil {
		config.LogError(c.logger, "commissions", "publish", string(t), entityID, err)
	}
}
