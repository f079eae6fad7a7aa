package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"barbershop-system/internal/report"
	commissions "barbershop-system/internal/services/commissions/handler"
	"barbershop-system/internal/session"
)

type CommissionService interface {
	ResolvePercentage(ctx context.Context, sess session.Session, req commissions.ResolveRequest) (*commissions.ResolveResponse, error)
	Aggregate(ctx context.Context, sess session.Session, req commissions.AggregateRequest) (*commissions.AggregateResponse, error)
	ExportAggregate(ctx context.Context, sess session.Session, req commissions.AggregateRequest) ([]byte, string, error)
	SaleHistory(ctx context.Context, sess session.Session, saleID string) (*commissions.HistoryResponse, error)
	ListOverrides(ctx context.Context, sess session.Session, staffID string) ([]commissions.OverrideResponse, error)
	UpsertOverride(ctx context.Context, sess session.Session, req commissions.UpsertOverrideRequest) (*commissions.OverrideResponse, error)
	DeleteOverride(ctx context.Context, sess session.Session, staffID, category, itemID string) error
	ListIssues(ctx context.Context, sess session.Session, openOnly bool) ([]commissions.IssueResponse, error)
}

type CommissionsHTTPHandler struct {
	commissions CommissionService
	timeout     time.Duration
}

func NewCommissionsHTTPHandler(service CommissionService, timeout time.Duration) *CommissionsHTTPHandler {
	return &CommissionsHTTPHandler{commissions: service, timeout: timeout}
}

// --- Request & Query Structs for Binding ---

type PeriodQuery struct {
	From string `form:"from" binding:"required"`
	To   string `form:"to" binding:"required"`
}

type RateQuery struct {
	ItemID   string `form:"item_id" binding:"required"`
	Category string `form:"category" binding:"required"`
}

type OverrideBody struct {
	ItemID     string `json:"item_id" binding:"required"`
	Category   string `json:"category" binding:"required"`
	Percentage string `json:"percentage" binding:"required"`
}

// --- Handlers ---

func (h *CommissionsHTTPHandler) GetAggregate(c *gin.Context) {
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

	resp, err := h.commissions.Aggregate(ctx, sess, commissions.AggregateRequest{
		StaffID: c.Param("staff_id"),
		From:    q.From,
		To:      q.To,
	})
	if err != nil {
		handleGRPCError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Commission report retrieved", resp))
}

func (h *CommissionsHTTPHandler) ExportAggregate(c *gin.Context) {
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

	data, filename, err := h.commissions.ExportAggregate(ctx, sess, commissions.AggregateRequest{
		StaffID: c.Param("staff_id"),
		From:    q.From,
		To:      q.To,
	})
	if err != nil {
		handleGRPCError(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, report.XLSXContentType, data)
}

func (h *CommissionsHTTPHandler) ResolvePercentage(c *gin.Context) {
	var q RateQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid query: "+err.Error()))
		return
	}
	sess, ctx, cancel, ok := requestScope(c, h.timeout)
	if !ok {
		return
	}
	defer cancel()

	resp, err := h.commissions.ResolvePercentage(ctx, sess, commissions.ResolveRequest{
		StaffID:  c.Param("staff_id"),
		ItemID:   q.ItemID,
		Category: q.Category,
	})
	if err != nil {
		handleGRPCError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Percentage resolved", resp))
}

func (h *CommissionsHTTPHandler) SaleHistory(c *gin.Context) {
	sess, ctx, cancel, ok := requestScope(c, h.timeout)
	if !ok {
		return
	}
	defer cancel()

	resp, err := h.commissions.SaleHistory(ctx, sess, c.Param("id"))
	if err != nil {
		handleGRPCError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Sale commissions retrieved", resp))
}

func (h *CommissionsHTTPHandler) ListOverrides(c *gin.Context) {
	sess, ctx, cancel, ok := requestScope(c, h.timeout)
	if !ok {
		return
	}
	defer cancel()

	resp, err := h.commissions.ListOverrides(ctx, sess, c.Param("staff_id"))
	if err != nil {
		handleGRPCError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Overrides retrieved", resp))
}

func (h *CommissionsHTTPHandler) UpsertOverride(c *gin.Context) {
	var body OverrideBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format: "+err.Error()))
		return
	}
	sess, ctx, cancel, ok := requestScope(c, h.timeout)
	if !ok {
		return
	}
	defer cancel()

	resp, err := h.commissions.UpsertOverride(ctx, sess, commissions.UpsertOverrideRequest{
		StaffID:    c.Param("staff_id"),
		ItemID:     body.ItemID,
		Category:   body.Category,
		Percentage: body.Percentage,
	})
	if err != nil {
		handleGRPCError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Override saved", resp))
}

func (h *CommissionsHTTPHandler) DeleteOverride(c *gin.Context) {
	sess, ctx, cancel, ok := requestScope(c, h.timeout)
	if !ok {
		return
	}
	defer cancel()

	if err := h.commissions.DeleteOverride(ctx, sess, c.Param("staff_id"), c.Param("category"), c.Param("item_id")); err != nil {
		handleGRPCError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Override removed", nil))
}

func (h *CommissionsHTTPHandler) ListIssues(c *gin.Context) {
	openOnly := true
	if v := c.Query("open"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("open must be true or false"))
			return
		}
		openOnly = b
	}
	sess, ctx, cancel, ok := requestScope(c, h.timeout)
	if !ok {
		return
	}
	defer cancel()

	resp, err := h.commissions.ListIssues(ctx, sess, openOnly)
	if err != nil {
		handleGRPCError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Reconciliation issues retrieved", resp))
}

func (h *CommissionsHTTPHandler) Register(rg *gin.RouterGroup) {
	g := rg.Group("/commissions")
	{
		g.GET("/staff/:staff_id", h.GetAggregate)
		g.GET("/staff/:staff_id/export", h.ExportAggregate)
		g.GET("/staff/:staff_id/rate", h.ResolvePercentage)
		g.GET("/staff/:staff_id/overrides", h.ListOverrides)
		g.PUT("/staff/:staff_id/overrides", h.UpsertOverride)
		g.DELETE("/staff/:staff_id/overrides/:category/:item_id", h.DeleteOverride)
		g.GET("/sales/:id", h.SaleHistory)
		g.GET("/issues", h.ListIssues)
	}
}
