package handler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"barbershop-system/config"
	"barbershop-system/internal/commission"
	"barbershop-system/internal/database/models"
	"barbershop-system/internal/events"
	"barbershop-system/internal/services/commissions/repository"
	"barbershop-system/internal/services/common"
	"barbershop-system/internal/session"
)

// Invalidator drops cached commission reports after a sale changes them.
type Invalidator interface {
	InvalidateCommissionCaches(ctx context.Context, companyID string, staffIDs ...string)
}

type CreateSaleItem struct {
	ItemID    string `json:"item_id" validate:"required,uuid"`
	Quantity  int64  `json:"quantity" validate:"required,gt=0"`
	UnitPrice string `json:"unit_price" validate:"omitempty,numeric"`
	Discount  string `json:"discount" validate:"omitempty,numeric"`
}

type CreateSaleRequest struct {
	StaffID             string           `json:"staff_id" validate:"required,uuid"`
	ClientID            string           `json:"client_id" validate:"omitempty,uuid"`
	Discount            string           `json:"discount" validate:"omitempty,numeric"`
	DiscountInSubtotals bool             `json:"discount_in_subtotals"`
	Notes               string           `json:"notes"`
	Items               []CreateSaleItem `json:"items" validate:"required,min=1,dive"`
}

type PaySaleRequest struct {
	PaymentMethod string `json:"payment_method" validate:"required,oneof=cash card pix transfer"`
	Amount        string `json:"amount" validate:"omitempty,numeric"`
	DueDate       string `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
}

type ListSalesRequest struct {
	Status   string `form:"status" validate:"omitempty,oneof=awaiting paid cancelled"`
	StaffID  string `form:"staff_id" validate:"omitempty,uuid"`
	From     string `form:"from"`
	To       string `form:"to"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

type SaleList struct {
	Sales    []models.Sale `json:"sales"`
	Total    int64         `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
}

type PaySaleResponse struct {
	Sale       models.Sale                `json:"sale"`
	Receivable *models.Receivable         `json:"receivable,omitempty"`
	History    []commission.HistoryRecord `json:"history"`
}

type POSHandler struct {
	db          *gorm.DB
	logger      *logrus.Logger
	events      events.Publisher
	invalidator Invalidator
	epsilon     decimal.Decimal
	now         func() time.Time
	transact    transactor
}

func NewPOSHandler(db *gorm.DB, logger *logrus.Logger, publisher events.Publisher, invalidator Invalidator, epsilon decimal.Decimal) *POSHandler {
	if epsilon.IsZero() {
		epsilon = commission.DefaultEpsilon
	}
	return &POSHandler{
		db:          db,
		logger:      logger,
		events:      publisher,
		invalidator: invalidator,
		epsilon:     epsilon,
		now:         time.Now,
		transact:    gormTransactor(db),
	}
}

// --- Sale building ---

// buildSale prices every line from the catalog. Line subtotal is quantity
// times unit price minus the line discount; the sale total is the sum of
// subtotals minus the venue discount unless that discount is already
// reflected in the subtotals.
func buildSale(companyID, createdBy uuid.UUID, req CreateSaleRequest, catalog map[uuid.UUID]models.CatalogItem) (models.Sale, error) {
	venueDiscount, err := common.ParseAmount("discount", req.Discount)
	if err != nil {
		return models.Sale{}, err
	}

	sale := models.Sale{
		ID:                  uuid.New(),
		CompanyID:           companyID,
		StaffID:             uuid.MustParse(req.StaffID),
		Status:              string(commission.StatusAwaiting),
		Discount:            venueDiscount,
		DiscountInSubtotals: req.DiscountInSubtotals,
		CreatedBy:           createdBy,
	}
	if req.ClientID != "" {
		clientID := uuid.MustParse(req.ClientID)
		sale.ClientID = &clientID
	}
	if req.Notes != "" {
		sale.Notes = &req.Notes
	}

	subtotal := decimal.Zero
	for i, in := range req.Items {
		itemID := uuid.MustParse(in.ItemID)
		item, ok := catalog[itemID]
		if !ok {
			return models.Sale{}, status.Errorf(codes.NotFound, "Catalog item %s not found", itemID)
		}
		if !item.IsActive {
			return models.Sale{}, status.Errorf(codes.FailedPrecondition, "Catalog item %s is inactive", item.Name)
		}

		unit := item.Price
		if in.UnitPrice != "" {
			if unit, err = common.ParseAmount("unit_price", in.UnitPrice); err != nil {
				return models.Sale{}, err
			}
		}
		lineDiscount, err := common.ParseAmount("discount", in.Discount)
		if err != nil {
			return models.Sale{}, err
		}
		lineSubtotal := unit.Mul(decimal.NewFromInt(in.Quantity)).Sub(lineDiscount)
		if lineSubtotal.IsNegative() {
			return models.Sale{}, status.Errorf(codes.InvalidArgument, "Line %d discount exceeds its amount", i+1)
		}

		sale.Items = append(sale.Items, models.SaleLineItem{
			ID:        uuid.New(),
			SaleID:    sale.ID,
			ItemID:    itemID,
			Category:  item.Category,
			Name:      item.Name,
			Quantity:  in.Quantity,
			UnitPrice: unit,
			Discount:  lineDiscount,
			Subtotal:  lineSubtotal,
		})
		subtotal = subtotal.Add(lineSubtotal)
	}

	sale.Subtotal = subtotal
	sale.Total = subtotal
	if !req.DiscountInSubtotals {
		sale.Total = subtotal.Sub(venueDiscount)
	}
	if sale.Total.IsNegative() {
		return models.Sale{}, status.Errorf(codes.InvalidArgument, "Discount exceeds the sale amount")
	}
	return sale, nil
}

// settlePayment splits a payment into what is paid now and what remains
// receivable. An empty amount pays the whole total.
func settlePayment(total decimal.Decimal, amount string) (paid, remaining decimal.Decimal, err error) {
	if amount == "" {
		return total, decimal.Zero, nil
	}
	paid, err = common.ParseAmount("amount", amount)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	if paid.GreaterThan(total) {
		return decimal.Zero, decimal.Zero, status.Errorf(codes.InvalidArgument, "Amount %s exceeds sale total %s", paid.StringFixed(2), total.StringFixed(2))
	}
	if paid.IsZero() && total.IsPositive() {
		return decimal.Zero, decimal.Zero, status.Errorf(codes.InvalidArgument, "Amount must be positive")
	}
	return paid, total.Sub(paid), nil
}

// --- Sale lifecycle ---

func (s *POSHandler) CreateSale(ctx context.Context, sess session.Session, req CreateSaleRequest) (*models.Sale, error) {
	if err := common.Validate(req); err != nil {
		return nil, err
	}
	companyID, err := common.CompanyID(sess)
	if err != nil {
		return nil, err
	}

	var staff models.StaffMember
	if err := s.db.WithContext(ctx).Where("company_id = ? AND id = ?", companyID, req.StaffID).First(&staff).Error; err != nil {
		return nil, common.ToStatus(err, "Failed to get staff member")
	}
	if !staff.IsActive {
		return nil, status.Errorf(codes.FailedPrecondition, "Staff member %s is inactive", staff.Name)
	}
	if req.ClientID != "" {
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.Client{}).Where("company_id = ? AND id = ?", companyID, req.ClientID).Count(&count).Error; err != nil {
			return nil, status.Errorf(codes.Internal, "Failed to check client: %v", err)
		}
		if count == 0 {
			return nil, status.Errorf(codes.NotFound, "Client %s not found", req.ClientID)
		}
	}

	itemIDs := make([]uuid.UUID, 0, len(req.Items))
	for _, it := range req.Items {
		itemIDs = append(itemIDs, uuid.MustParse(it.ItemID))
	}
	var items []models.CatalogItem
	if err := s.db.WithContext(ctx).Where("company_id = ? AND id IN ?", companyID, itemIDs).Find(&items).Error; err != nil {
		return nil, status.Errorf(codes.Internal, "Failed to get catalog items: %v", err)
	}
	catalog := make(map[uuid.UUID]models.CatalogItem, len(items))
	for _, it := range items {
		catalog[it.ID] = it
	}

	sale, err := buildSale(companyID, common.UserID(sess), req, catalog)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(&sale).Error; err != nil {
		return nil, status.Errorf(codes.Internal, "Failed to create sale: %v", err)
	}

	s.publish(ctx, sess, events.SaleCreated, sale)
	return &sale, nil
}

// PaySale finalizes an awaiting sale. Payment, receivable and commission
// history are written in one transaction; a failed history write rolls the
// payment back.
func (s *POSHandler) PaySale(ctx context.Context, sess session.Session, saleID string, req PaySaleRequest) (*PaySaleResponse, error) {
	if err := common.Validate(req); err != nil {
		return nil, err
	}
	companyID, err := common.CompanyID(sess)
	if err != nil {
		return nil, err
	}
	id, err := common.ParseID("sale_id", saleID)
	if err != nil {
		return nil, err
	}

	var resp *PaySaleResponse
	err = s.transact(ctx, func(st saleStore) error {
		resp, err = s.finalizeSale(ctx, st, companyID, id, req)
		return err
	})
	if err != nil {
		return nil, common.ToStatus(err, "Failed to pay sale")
	}

	s.invalidator.InvalidateCommissionCaches(ctx, companyID.String(), resp.Sale.StaffID.String())
	s.publish(ctx, sess, events.SalePaid, resp.Sale)
	return resp, nil
}

func (s *POSHandler) finalizeSale(ctx context.Context, st saleStore, companyID, saleID uuid.UUID, req PaySaleRequest) (*PaySaleResponse, error) {
	sale, err := st.LockSale(ctx, companyID, saleID)
	if err != nil {
		return nil, err
	}
	if !commission.SaleStatus(sale.Status).CanTransition(commission.StatusPaid) {
		return nil, status.Errorf(codes.FailedPrecondition, "Sale is %s and cannot be paid", sale.Status)
	}
	if rec := commission.ReconcileSale(sale.ToCommission(), s.epsilon); !rec.Balanced {
		return nil, status.Errorf(codes.FailedPrecondition, "Sale total %s does not match its lines (expected %s)", rec.Total.StringFixed(2), rec.Expected.StringFixed(2))
	}
	paid, remaining, err := settlePayment(sale.Total, req.Amount)
	if err != nil {
		return nil, err
	}

	now := s.now()
	updates := map[string]interface{}{
		"status":         string(commission.StatusPaid),
		"paid_amount":    paid,
		"payment_method": req.PaymentMethod,
		"paid_at":        now,
	}
	if err := st.UpdateSale(ctx, sale.ID, updates); err != nil {
		return nil, status.Errorf(codes.Internal, "Failed to update sale: %v", err)
	}
	sale.Status = string(commission.StatusPaid)
	sale.PaidAmount = paid
	sale.PaymentMethod = req.PaymentMethod
	sale.PaidAt = &now

	resp := &PaySaleResponse{}
	if remaining.IsPositive() {
		due := now.AddDate(0, 0, 30)
		if req.DueDate != "" {
			due, _ = time.Parse(common.DateLayout, req.DueDate)
		}
		receivable := models.Receivable{
			CompanyID: companyID,
			SaleID:    sale.ID,
			ClientID:  sale.ClientID,
			Amount:    remaining,
			DueDate:   datatypes.Date(due),
		}
		if err := st.CreateReceivable(ctx, &receivable); err != nil {
			return nil, status.Errorf(codes.Internal, "Failed to create receivable: %v", err)
		}
		resp.Receivable = &receivable
	}

	staff, err := st.GetStaff(ctx, companyID, sale.StaffID)
	if err != nil {
		return nil, common.ToStatus(err, "Failed to get staff member")
	}

	historian := commission.NewHistorian(st.History(companyID), commission.NewResolver(st.Overrides()))
	records, err := historian.RecordSale(ctx, sale.ToCommission(), staff.ToCommission())
	if err != nil {
		config.LogError(s.logger, "pos", "PaySale", "record commission history", sale.ID.String(), err)
		return nil, common.ToStatus(err, "Failed to record commission history")
	}

	resp.Sale = sale
	resp.History = records
	return resp, nil
}

func (s *POSHandler) CancelSale(ctx context.Context, sess session.Session, saleID string) (*models.Sale, error) {
	companyID, err := common.CompanyID(sess)
	if err != nil {
		return nil, err
	}
	id, err := common.ParseID("sale_id", saleID)
	if err != nil {
		return nil, err
	}

	var sale models.Sale
	err = s.transact(ctx, func(st saleStore) error {
		sale, err = st.LockSale(ctx, companyID, id)
		if err != nil {
			return err
		}
		if !commission.SaleStatus(sale.Status).CanTransition(commission.StatusCancelled) {
			return status.Errorf(codes.FailedPrecondition, "Sale is %s and cannot be cancelled", sale.Status)
		}
		now := s.now()
		if err := st.UpdateSale(ctx, sale.ID, map[string]interface{}{
			"status":       string(commission.StatusCancelled),
			"cancelled_at": now,
		}); err != nil {
			return status.Errorf(codes.Internal, "Failed to cancel sale: %v", err)
		}
		sale.Status = string(commission.StatusCancelled)
		sale.CancelledAt = &now
		return nil
	})
	if err != nil {
		return nil, common.ToStatus(err, "Failed to cancel sale")
	}

	s.publish(ctx, sess, events.SaleCancelled, sale)
	return &sale, nil
}

// DeleteSale removes a sale together with its lines, receivables and
// commission history.
func (s *POSHandler) DeleteSale(ctx context.Context, sess session.Session, saleID string) error {
	if err := common.RequireManager(sess); err != nil {
		return err
	}
	companyID, err := common.CompanyID(sess)
	if err != nil {
		return err
	}
	id, err := common.ParseID("sale_id", saleID)
	if err != nil {
		return err
	}

	var sale models.Sale
	err = s.transact(ctx, func(st saleStore) error {
		sale, err = st.LockSale(ctx, companyID, id)
		if err != nil {
			return err
		}
		if err := st.DeleteHistory(ctx, companyID, sale.ID); err != nil {
			return status.Errorf(codes.Internal, "Failed to delete commission history: %v", err)
		}
		if err := st.DeleteReceivables(ctx, sale.ID); err != nil {
			return status.Errorf(codes.Internal, "Failed to delete receivables: %v", err)
		}
		if err := st.DeleteIssues(ctx, sale.ID); err != nil {
			return status.Errorf(codes.Internal, "Failed to delete reconciliation issues: %v", err)
		}
		if err := st.DeleteLines(ctx, sale.ID); err != nil {
			return status.Errorf(codes.Internal, "Failed to delete sale items: %v", err)
		}
		if err := st.DeleteSale(ctx, sale.ID); err != nil {
			return status.Errorf(codes.Internal, "Failed to delete sale: %v", err)
		}
		return nil
	})
	if err != nil {
		return common.ToStatus(err, "Failed to delete sale")
	}

	s.invalidator.InvalidateCommissionCaches(ctx, companyID.String(), sale.StaffID.String())
	s.publish(ctx, sess, events.SaleDeleted, sale)
	return nil
}

func (s *POSHandler) GetSale(ctx context.Context, sess session.Session, saleID string) (*models.Sale, error) {
	companyID, err := common.CompanyID(sess)
	if err != nil {
		return nil, err
	}
	id, err := common.ParseID("sale_id", saleID)
	if err != nil {
		return nil, err
	}
	sale, err := repository.NewSaleRepository(s.db).Get(ctx, companyID, id)
	if err != nil {
		return nil, common.ToStatus(err, "Failed to get sale")
	}
	if !sess.CanManage() && sess.StaffID != sale.StaffID.String() {
		return nil, status.Errorf(codes.PermissionDenied, "Cannot view sales of another staff member")
	}
	if err := s.db.WithContext(ctx).Where("sale_id = ?", sale.ID).Find(&sale.Receivables).Error; err != nil {
		return nil, status.Errorf(codes.Internal, "Failed to get receivables: %v", err)
	}
	return &sale, nil
}

func (s *POSHandler) ListSales(ctx context.Context, sess session.Session, req ListSalesRequest) (*SaleList, error) {
	if err := common.Validate(req); err != nil {
		return nil, err
	}
	companyID, err := common.CompanyID(sess)
	if err != nil {
		return nil, err
	}

	q := s.db.WithContext(ctx).Model(&models.Sale{}).Where("company_id = ?", companyID)
	switch {
	case !sess.CanManage():
		if sess.StaffID == "" {
			return nil, status.Errorf(codes.PermissionDenied, "Session is not linked to a staff member")
		}
		q = q.Where("staff_id = ?", sess.StaffID)
	case req.StaffID != "":
		q = q.Where("staff_id = ?", req.StaffID)
	}
	if req.Status != "" {
		q = q.Where("status = ?", req.Status)
	}
	if req.From != "" || req.To != "" {
		from, to, err := common.ParsePeriod(req.From, req.To)
		if err != nil {
			return nil, err
		}
		q = q.Where("created_at >= ? AND created_at < ?", from, to)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, status.Errorf(codes.Internal, "Failed to count sales: %v", err)
	}
	offset, limit := common.Page(req.Page, req.PageSize)
	var sales []models.Sale
	if err := q.Preload("Items").Order("created_at desc").Offset(offset).Limit(limit).Find(&sales).Error; err != nil {
		return nil, status.Errorf(codes.Internal, "Failed to list sales: %v", err)
	}
	return &SaleList{Sales: sales, Total: total, Page: offset/limit + 1, PageSize: limit}, nil
}

func (s *POSHandler) publish(ctx context.Context, sess session.Session, t events.Type, sale models.Sale) {
	err := s.events.Publish(ctx, events.Event{
		Type:      t,
		CompanyID: sess.CompanyID,
		EntityID:  sale.ID.String(),
		ActorID:   sess.UserID,
		Data: map[string]any{
			"staff_id": sale.StaffID.String(),
			"status":   sale.Status,
			"total":    sale.Total.StringFixed(2),
		},
	})
	if err != nil {
		config.LogError(s.logger, "pos", "publish", string(t), sale.ID.String(), err)
	}
}
