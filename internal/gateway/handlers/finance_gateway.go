package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"barbershop-system/internal/report"
	finance "barbershop-system/internal/services/finance/handler"
	"barbershop-system/internal/session"
)

type FinanceService interface {
	CreateExpense(ctx context.Context, sess session.Session, req finance.CreateExpenseRequest) (*finance.ExpenseResponse, error)
	ListExpenses(ctx context.Context, sess session.Session, fromDate, toDate string) ([]finance.ExpenseResponse, error)
	Dashboard(ctx context.Context, sess session.Session, fromDate, toDate string) (*report.PeriodSummary, error)
}

type FinanceHTTPHandler struct {
	finance FinanceService
	timeout time.Duration
}

func NewFinanceHTTPHandler(service FinanceService, timeout time.Duration) *FinanceHTTPHandler {
	return &FinanceHTTPHandler{finance: service, timeout: timeout}
}

func (h *FinanceHTTPHandler) CreateExpense(c *gin.Context) {
	var req finance.CreateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format: "+err.Error()))
		return
	}
	sess, ctx, cancel, ok := requestScope(c, h.timeout)
	if !ok {
		return
	}
	defer cancel()

	expense, err := h.finance.CreateExpense(ctx, sess, req)
	if err != nil {
		handleGRPCError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse("Expense recorded", expense))
}

func (h *FinanceHTTPHandler) ListExpenses(c *gin.Context) {
	var q PeriodQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid query: "+err.Error()))
		return
	}
	sess, ctx, cancel, ok := requestScope(c, h.timeout)
	if !ok {
		return
	}
	defer cancel()

	list, err := h.finance.ListExpenses(ctx, sess, q.From, q.To)
	if err != nil {
		handleGRPCError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Expenses retrieved", list))
}

func (h *FinanceHTTPHandler) Dashboard(c *gin.Context) {
	var q PeriodQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid query: "+err.Error()))
		return
	}
	sess, ctx, cancel, ok := requestScope(c, h.timeout)
	if !ok {
		return
	}
	defer cancel()

	summary, err := h.finance.Dashboard(ctx, sess, q.From, q.To)
	if err != nil {
		handleGRPCError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Dashboard retrieved", summary))
}

func (h *FinanceHTTPHandler) Register(rg *gin.RouterGroup) {
	g := rg.Group("/finance")
	{
		g.POST("/expenses", h.CreateExpense)
		g.GET("/expenses", h.ListExpenses)
		g.GET("/dashboard", h.Dashboard)
	}
}
