package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"barbershop-system/internal/database/models"
	pos "barbershop-system/internal/services/pos/handler"
	"barbershop-system/internal/session"
)

type POSService interface {
	CreateSale(ctx context.Context, sess session.Session, req pos.CreateSaleRequest) (*models.Sale, error)
	PaySale(ctx context.Context, sess session.Session, saleID string, req pos.PaySaleRequest) (*pos.PaySaleResponse, error)
	CancelSale(ctx context.Context, sess session.Session, saleID string) (*models.Sale, error)
	DeleteSale(ctx context.Context, sess session.Session, saleID string) error
	GetSale(ctx context.Context, sess session.Session, saleID string) (*models.Sale, error)
	ListSales(ctx context.Context, sess session.Session, req pos.ListSalesRequest) (*pos.SaleList, error)
}

type POSHTTPHandler struct {
	pos     POSService
	timeout time.Duration
}

func NewPOSHTTPHandler(service POSService, timeout time.Duration) *POSHTTPHandler {
	return &POSHTTPHandler{pos: service, timeout: timeout}
}

// --- Request Structs for Binding ---

type SaleItemBody struct {
	ItemID    string `json:"item_id" binding:"required"`
	Quantity  int64  `json:"quantity" binding:"required"`
	UnitPrice string `json:"unit_price"`
	Discount  string `json:"discount"`
}

type CreateSaleBody struct {
	StaffID             string         `json:"staff_id" binding:"required"`
	ClientID            string         `json:"client_id"`
	Discount            string         `json:"discount"`
	DiscountInSubtotals bool           `json:"discount_in_subtotals"`
	Notes               string         `json:"notes"`
	Items               []SaleItemBody `json:"items" binding:"required"`
}

type PaySaleBody struct {
	PaymentMethod string `json:"payment_method" binding:"required"`
	Amount        string `json:"amount"`
	DueDate       string `json:"due_date"`
}

// --- Handlers ---

func (h *POSHTTPHandler) CreateSale(c *gin.Context) {
	var body CreateSaleBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format: "+err.Error()))
		return
	}
	sess, ctx, cancel, ok := requestScope(c, h.timeout)
	if !ok {
		return
	}
	defer cancel()

	req := pos.CreateSaleRequest{
		StaffID:             body.StaffID,
		ClientID:            body.ClientID,
		Discount:            body.Discount,
		DiscountInSubtotals: body.DiscountInSubtotals,
		Notes:               body.Notes,
	}
	for _, it := range body.Items {
		req.Items = append(req.Items, pos.CreateSaleItem{
			ItemID:    it.ItemID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Discount:  it.Discount,
		})
	}

	sale, err := h.pos.CreateSale(ctx, sess, req)
	if err != nil {
		handleGRPCError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse("Sale created", sale))
}

func (h *POSHTTPHandler) PaySale(c *gin.Context) {
	var body PaySaleBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format: "+err.Error()))
		return
	}
	sess, ctx, cancel, ok := requestScope(c, h.timeout)
	if !ok {
		return
	}
	defer cancel()

	resp, err := h.pos.PaySale(ctx, sess, c.Param("id"), pos.PaySaleRequest{
		PaymentMethod: body.PaymentMethod,
		Amount:        body.Amount,
		DueDate:       body.DueDate,
	})
	if err != nil {
		handleGRPCError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Sale paid", resp))
}

func (h *POSHTTPHandler) CancelSale(c *gin.Context) {
	sess, ctx, cancel, ok := requestScope(c, h.timeout)
	if !ok {
		return
	}
	defer cancel()

	sale, err := h.pos.CancelSale(ctx, sess, c.Param("id"))
	if err != nil {
		handleGRPCError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Sale cancelled", sale))
}

func (h *POSHTTPHandler) DeleteSale(c *gin.Context) {
	sess, ctx, cancel, ok := requestScope(c, h.timeout)
	if !ok {
		return
	}
	defer cancel()

	if err := h.pos.DeleteSale(ctx, sess, c.Param("id")); err != nil {
		handleGRPCError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Sale deleted", nil))
}

func (h *POSHTTPHandler) GetSale(c *gin.Context) {
	sess, ctx, cancel, ok := requestScope(c, h.timeout)
	if !ok {
		return
	}
	defer cancel()

	sale, err := h.pos.GetSale(ctx, sess, c.Param("id"))
	if err != nil {
		handleGRPCError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Sale retrieved", sale))
}

func (h *POSHTTPHandler) ListSales(c *gin.Context) {
	var q pos.ListSalesRequest
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid query: "+err.Error()))
		return
	}
	sess, ctx, cancel, ok := requestScope(c, h.timeout)
	if !ok {
		return
	}
	defer cancel()

	resp, err := h.pos.ListSales(ctx, sess, q)
	if err != nil {
		handleGRPCError(c, err)
		return
	}
	c.JSON(http.StatusOK, successWithMetaResponse("Sales retrieved", resp.Sales, PageMeta{
		Page:     resp.Page,
		PageSize: resp.PageSize,
		Total:    resp.Total,
	}))
}

func (h *POSHTTPHandler) Register(rg *gin.RouterGroup) {
	g := rg.Group("/pos/sales")
	{
		g.POST("", h.CreateSale)
		g.GET("", h.ListSales)
		g.GET("/:id", h.GetSale)
		g.POST("/:id/pay", h.PaySale)
		g.POST("/:id/cancel", h.CancelSale)
		g.DELETE("/:id", h.DeleteSale)
	}
}
