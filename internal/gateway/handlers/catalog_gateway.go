package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	catalog "barbershop-system/internal/services/catalog/handler"
	"barbershop-system/internal/session"
)

type CatalogService interface {
	CreateItem(ctx context.Context, sess session.Session, req catalog.CreateItemRequest) (*catalog.ItemResponse, error)
	UpdateItem(ctx context.Context, sess session.Session, itemID string, req catalog.UpdateItemRequest) (*catalog.ItemResponse, error)
	ListItems(ctx context.Context, sess session.Session, category string) ([]catalog.ItemResponse, error)
	CreateClient(ctx context.Context, sess session.Session, req catalog.CreateClientRequest) (*catalog.ClientResponse, error)
	ListClients(ctx context.Context, sess session.Session, req catalog.ListClientsRequest) ([]catalog.ClientResponse, int64, error)
}

type CatalogHTTPHandler struct {
	catalog CatalogService
	timeout time.Duration
}

func NewCatalogHTTPHandler(service CatalogService, timeout time.Duration) *CatalogHTTPHandler {
	return &CatalogHTTPHandler{catalog: service, timeout: timeout}
}

// --- Items ---

func (h *CatalogHTTPHandler) CreateItem(c *gin.Context) {
	var req catalog.CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format: "+err.Error()))
		return
	}
	sess, ctx, cancel, ok := requestScope(c, h.timeout)
	if !ok {
		return
	}
	defer cancel()

	item, err := h.catalog.CreateItem(ctx, sess, req)
	if err != nil {
		handleGRPCError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse("Item created", item))
}

func (h *CatalogHTTPHandler) UpdateItem(c *gin.Context) {
	var req catalog.UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format: "+err.Error()))
		return
	}
	sess, ctx, cancel, ok := requestScope(c, h.timeout)
	if !ok {
		return
	}
	defer cancel()

	item, err := h.catalog.UpdateItem(ctx, sess, c.Param("id"), req)
	if err != nil {
		handleGRPCError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Item updated", item))
}

func (h *CatalogHTTPHandler) ListItems(c *gin.Context) {
	sess, ctx, cancel, ok := requestScope(c, h.timeout)
	if !ok {
		return
	}
	defer cancel()

	items, err := h.catalog.ListItems(ctx, sess, c.Query("category"))
	if err != nil {
		handleGRPCError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Items retrieved", items))
}

// --- Clients ---

func (h *CatalogHTTPHandler) CreateClient(c *gin.Context) {
	var req catalog.CreateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format: "+err.Error()))
		return
	}
	sess, ctx, cancel, ok := requestScope(c, h.timeout)
	if !ok {
		return
	}
	defer cancel()

	client, err := h.catalog.CreateClient(ctx, sess, req)
	if err != nil {
		handleGRPCError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse("Client created", client))
}

func (h *CatalogHTTPHandler) ListClients(c *gin.Context) {
	var q catalog.ListClientsRequest
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid query: "+err.Error()))
		return
	}
	sess, ctx, cancel, ok := requestScope(c, h.timeout)
	if !ok {
		return
	}
	defer cancel()

	clients, total, err := h.catalog.ListClients(ctx, sess, q)
	if err != nil {
		handleGRPCError(c, err)
		return
	}
	c.JSON(http.StatusOK, successWithMetaResponse("Clients retrieved", clients, PageMeta{
		Page:     q.Page,
		PageSize: q.PageSize,
		Total:    total,
	}))
}

func (h *CatalogHTTPHandler) Register(rg *gin.RouterGroup) {
	items := rg.Group("/catalog/items")
	{
		items.POST("", h.CreateItem)
		items.GET("", h.ListItems)
		items.PUT("/:id", h.UpdateItem)
	}

	clients := rg.Group("/clients")
	{
		clients.POST("", h.CreateClient)
		clients.GET("", h.ListClients)
	}
}
