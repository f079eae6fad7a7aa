package handler

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"barbershop-system/config"
	"barbershop-system/internal/commission"
	"barbershop-system/internal/database/models"
	"barbershop-system/internal/events"
	"barbershop-system/internal/report"
	commissions "barbershop-system/internal/services/commissions/handler"
	"barbershop-system/internal/services/commissions/repository"
	"barbershop-system/internal/services/common"
	"barbershop-system/internal/session"
)

// Aggregator is the part of the commissions service the dashboard needs.
type Aggregator interface {
	Aggregate(ctx context.Context, sess session.Session, req commissions.AggregateRequest) (*commissions.AggregateResponse, error)
}

type CreateExpenseRequest struct {
	Description string `json:"description" validate:"required"`
	Category    string `json:"category" validate:"required,max=64"`
	Amount      string `json:"amount" validate:"required,numeric"`
	SpentOn     string `json:"spent_on" validate:"required,datetime=2006-01-02"`
}

type ExpenseResponse struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Amount      string `json:"amount"`
	SpentOn     string `json:"spent_on"`
}

type FinanceHandler struct {
	db          *gorm.DB
	logger      *logrus.Logger
	events      events.Publisher
	commissions Aggregator
}

func NewFinanceHandler(db *gorm.DB, logger *logrus.Logger, publisher events.Publisher, aggregator Aggregator) *FinanceHandler {
	return &FinanceHandler{db: db, logger: logger, events: publisher, commissions: aggregator}
}

func expenseToResponse(e models.Expense) ExpenseResponse {
	return ExpenseResponse{
		ID:          e.ID.String(),
		Description: e.Description,
		Category:    e.Category,
		Amount:      e.Amount.StringFixed(2),
		SpentOn:     time.Time(e.SpentOn).Format(common.DateLayout),
	}
}

func (h *FinanceHandler) CreateExpense(ctx context.Context, sess session.Session, req CreateExpenseRequest) (*ExpenseResponse, error) {
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
	amount, err := common.ParseAmount("amount", req.Amount)
	if err != nil {
		return nil, err
	}
	if amount.IsZero() {
		return nil, status.Errorf(codes.InvalidArgument, "Amount must be positive")
	}
	spentOn, _ := time.Parse(common.DateLayout, req.SpentOn)

	expense := models.Expense{
		CompanyID:   companyID,
		Description: strings.TrimSpace(req.Description),
		Category:    strings.ToLower(strings.TrimSpace(req.Category)),
		Amount:      amount,
		SpentOn:     datatypes.Date(spentOn),
		CreatedBy:   common.UserID(sess),
	}
	if err := h.db.WithContext(ctx).Create(&expense).Error; err != nil {
		return nil, status.Errorf(codes.Internal, "Failed to create expense: %v", err)
	}

	if err := h.events.Publish(ctx, events.Event{
		Type:      events.ExpenseCreated,
		CompanyID: sess.CompanyID,
		EntityID:  expense.ID.String(),
		ActorID:   sess.UserID,
		Data:      map[string]any{"amount": expense.Amount.StringFixed(2), "category": expense.Category},
	}); err != nil {
		config.LogError(h.logger, "finance", "CreateExpense", "publish event", expense.ID.String(), err)
	}

	resp := expenseToResponse(expense)
	return &resp, nil
}

func (h *FinanceHandler) listExpenses(ctx context.Context, sess session.Session, from, to time.Time) ([]models.Expense, error) {
	companyID, err := common.CompanyID(sess)
	if err != nil {
		return nil, err
	}
	var rows []models.Expense
	err = h.db.WithContext(ctx).
		Where("company_id = ? AND spent_on >= ? AND spent_on < ?", companyID, from, to).
		Order("spent_on asc").
		Find(&rows).Error
	if err != nil {
		return nil, status.Errorf(codes.Internal, "Failed to list expenses: %v", err)
	}
	return rows, nil
}

func (h *FinanceHandler) ListExpenses(ctx context.Context, sess session.Session, fromDate, toDate string) ([]ExpenseResponse, error) {
	if err := common.RequireManager(sess); err != nil {
		return nil, err
	}
	from, to, err := common.ParsePeriod(fromDate, toDate)
	if err != nil {
		return nil, err
	}
	rows, err := h.listExpenses(ctx, sess, from, to)
	if err != nil {
		return nil, err
	}
	out := make([]ExpenseResponse, len(rows))
	for i, e := range rows {
		out[i] = expenseToResponse(e)
	}
	return out, nil
}

// Dashboard summarizes revenue, commissions owed, expenses and net result
// for the period. Commissions come from the same aggregation staff see.
func (h *FinanceHandler) Dashboard(ctx context.Context, sess session.Session, fromDate, toDate string) (*report.PeriodSummary, error) {
	if err := common.RequireManager(sess); err != nil {
		return nil, err
	}
	companyID, err := common.CompanyID(sess)
	if err != nil {
		return nil, err
	}
	from, to, err := common.ParsePeriod(fromDate, toDate)
	if err != nil {
		return nil, err
	}

	var sales []models.Sale
	if err := h.db.WithContext(ctx).
		Where("company_id = ? AND status = ? AND paid_at >= ? AND paid_at < ?", companyID, string(commission.StatusPaid), from, to).
		Find(&sales).Error; err != nil {
		return nil, status.Errorf(codes.Internal, "Failed to get sales: %v", err)
	}

	staffIDs := make(map[string]struct{})
	for _, s := range sales {
		staffIDs[s.StaffID.String()] = struct{}{}
	}
	var staff []models.StaffMember
	if len(staffIDs) > 0 {
		ids := make([]string, 0, len(staffIDs))
		for id := range staffIDs {
			ids = append(ids, id)
		}
		if err := h.db.WithContext(ctx).Where("company_id = ? AND id IN ?", companyID, ids).Order("name asc").Find(&staff).Error; err != nil {
			return nil, status.Errorf(codes.Internal, "Failed to get staff: %v", err)
		}
	}

	aggregates := make([]report.StaffAggregate, 0, len(staff))
	for _, st := range staff {
		resp, err := h.commissions.Aggregate(ctx, sess, commissions.AggregateRequest{
			StaffID: st.ID.String(),
			From:    fromDate,
			To:      toDate,
		})
		if err != nil {
			return nil, err
		}
		aggregates = append(aggregates, report.StaffAggregate{Name: st.Name, Aggregate: resp.Aggregate})
	}

	expenses, err := h.listExpenses(ctx, sess, from, to)
	if err != nil {
		return nil, err
	}
	lines := make([]report.ExpenseLine, len(expenses))
	for i, e := range expenses {
		lines[i] = report.ExpenseLine{Category: e.Category, Amount: e.Amount}
	}

	summary := report.Summarize(from, to, repository.ToCommissionSales(sales), aggregates, lines)
	return &summary, nil
}
