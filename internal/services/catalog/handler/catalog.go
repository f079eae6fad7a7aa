package handler

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/gorm"

	"barbershop-system/internal/commission"
	"barbershop-system/internal/database/models"
	"barbershop-system/internal/services/common"
	"barbershop-system/internal/session"
	"barbershop-system/internal/utils"
)

const (
	CATALOG_CACHE_PREFIX = "catalog:"
	CATALOG_CACHE_TTL    = 30 * time.Minute
)

// --- Request & Response ---

type CreateItemRequest struct {
	Category        string `json:"category" validate:"required,oneof=service product"`
	Name            string `json:"name" validate:"required"`
	Price           string `json:"price" validate:"required,numeric"`
	DurationMinutes int    `json:"duration_minutes" validate:"omitempty,gte=0"`
}

type UpdateItemRequest struct {
	Name            *string `json:"name" validate:"omitempty,min=1"`
	Price           *string `json:"price" validate:"omitempty,numeric"`
	DurationMinutes *int    `json:"duration_minutes" validate:"omitempty,gte=0"`
	IsActive        *bool   `json:"is_active"`
}

type ItemResponse struct {
	ID              string `json:"id"`
	Category        string `json:"category"`
	Name            string `json:"name"`
	Price           string `json:"price"`
	DurationMinutes int    `json:"duration_minutes,omitempty"`
	IsActive        bool   `json:"is_active"`
}

type CreateClientRequest struct {
	Name  string `json:"name" validate:"required"`
	Phone string `json:"phone"`
	Email string `json:"email" validate:"omitempty,email"`
	Notes string `json:"notes"`
}

type ListClientsRequest struct {
	Search   string `form:"search"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

type ClientResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone,omitempty"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// --- Handler ---

type CatalogHandler struct {
	db          *gorm.DB
	redis       *redis.Client
	logger      *logrus.Logger
	phoneRegion string
}

func NewCatalogHandler(db *gorm.DB, redisClient *redis.Client, logger *logrus.Logger, phoneRegion string) *CatalogHandler {
	return &CatalogHandler{db: db, redis: redisClient, logger: logger, phoneRegion: phoneRegion}
}

func itemToResponse(it models.CatalogItem) ItemResponse {
	return ItemResponse{
		ID:              it.ID.String(),
		Category:        it.Category,
		Name:            it.Name,
		Price:           it.Price.StringFixed(2),
		DurationMinutes: it.DurationMinutes,
		IsActive:        it.IsActive,
	}
}

func clientToResponse(c models.Client) ClientResponse {
	return ClientResponse{ID: c.ID.String(), Name: c.Name, Phone: c.Phone, Email: c.Email, CreatedAt: c.CreatedAt}
}

func catalogCacheKey(companyID uuid.UUID, category string) string {
	if category == "" {
		category = "all"
	}
	return CATALOG_CACHE_PREFIX + companyID.String() + ":" + category
}

func (h *CatalogHandler) InvalidateCatalogCaches(ctx context.Context, companyID uuid.UUID) {
	keys := []string{catalogCacheKey(companyID, "")}
	for _, c := range commission.Categories {
		keys = append(keys, catalogCacheKey(companyID, string(c)))
	}
	_ = h.redis.Del(ctx, keys...)
}

// --- Catalog items ---

func (h *CatalogHandler) CreateItem(ctx context.Context, sess session.Session, req CreateItemRequest) (*ItemResponse, error) {
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
	price, err := common.ParseAmount("price", req.Price)
	if err != nil {
		return nil, err
	}

	item := models.CatalogItem{
		CompanyID:       companyID,
		Category:        req.Category,
		Name:            strings.TrimSpace(req.Name),
		Price:           price,
		DurationMinutes: req.DurationMinutes,
		IsActive:        true,
	}
	if err := h.db.WithContext(ctx).Create(&item).Error; err != nil {
		return nil, status.Errorf(codes.Internal, "Failed to create catalog item: %v", err)
	}
	h.InvalidateCatalogCaches(ctx, companyID)
	resp := itemToResponse(item)
	return &resp, nil
}

func (h *CatalogHandler) UpdateItem(ctx context.Context, sess session.Session, itemID string, req UpdateItemRequest) (*ItemResponse, error) {
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
	id, err := common.ParseID("item_id", itemID)
	if err != nil {
		return nil, err
	}

	var item models.CatalogItem
	if err := h.db.WithContext(ctx).Where("company_id = ? AND id = ?", companyID, id).First(&item).Error; err != nil {
		return nil, common.ToStatus(err, "Failed to get catalog item")
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Price != nil {
		price, err := common.ParseAmount("price", *req.Price)
		if err != nil {
			return nil, err
		}
		updates["price"] = price
	}
	if req.DurationMinutes != nil {
		updates["duration_minutes"] = *req.DurationMinutes
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if len(updates) == 0 {
		return nil, status.Errorf(codes.InvalidArgument, "Nothing to update")
	}
	if err := h.db.WithContext(ctx).Model(&item).Updates(updates).Error; err != nil {
		return nil, status.Errorf(codes.Internal, "Failed to update catalog item: %v", err)
	}
	if err := h.db.WithContext(ctx).First(&item, "id = ?", item.ID).Error; err != nil {
		return nil, status.Errorf(codes.Internal, "Failed to reload catalog item: %v", err)
	}

	h.InvalidateCatalogCaches(ctx, companyID)
	resp := itemToResponse(item)
	return &resp, nil
}

// ListItems returns active items, optionally of one category.
func (h *CatalogHandler) ListItems(ctx context.Context, sess session.Session, category string) ([]ItemResponse, error) {
	companyID, err := common.CompanyID(sess)
	if err != nil {
		return nil, err
	}
	if category != "" {
		if _, err := commission.ParseCategory(category); err != nil {
			return nil, common.ToStatus(err, "Invalid category")
		}
	}

	cacheKey := catalogCacheKey(companyID, category)
	val, err := h.redis.Get(ctx, cacheKey).Result()
	if err == nil {
		var cached []ItemResponse
		if err := json.Unmarshal([]byte(val), &cached); err == nil {
			return cached, nil
		}
	} else if err != redis.Nil {
		h.logger.WithError(err).WithField("key", cacheKey).Warn("redis error on GET, falling back to DB")
	}

	q := h.db.WithContext(ctx).Where("company_id = ? AND is_active = ?", companyID, true)
	if category != "" {
		q = q.Where("category = ?", category)
	}
	var rows []models.CatalogItem
	if err := q.Order("category asc, name asc").Find(&rows).Error; err != nil {
		return nil, status.Errorf(codes.Internal, "Failed to list catalog items: %v", err)
	}
	out := make([]ItemResponse, len(rows))
	for i, it := range rows {
		out[i] = itemToResponse(it)
	}

	if data, err := json.Marshal(out); err == nil {
		if err := h.redis.Set(ctx, cacheKey, data, CATALOG_CACHE_TTL).Err(); err != nil {
			h.logger.WithError(err).WithField("key", cacheKey).Warn("failed to set catalog cache")
		}
	}
	return out, nil
}

// --- Clients ---

func (h *CatalogHandler) CreateClient(ctx context.Context, sess session.Session, req CreateClientRequest) (*ClientResponse, error) {
	if err := common.Validate(req); err != nil {
		return nil, err
	}
	companyID, err := common.CompanyID(sess)
	if err != nil {
		return nil, err
	}
	phone, err := utils.NormalizePhone(req.Phone, h.phoneRegion)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "Invalid phone number %q", req.Phone)
	}

	if phone != "" {
		var existing models.Client
		err := h.db.WithContext(ctx).Where("company_id = ? AND phone = ?", companyID, phone).First(&existing).Error
		if err == nil {
			return nil, status.Errorf(codes.AlreadyExists, "A client with phone %s already exists", phone)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, status.Errorf(codes.Internal, "Failed to check client phone: %v", err)
		}
	}

	client := models.Client{
		CompanyID: companyID,
		Name:      strings.TrimSpace(req.Name),
		Phone:     phone,
		Email:     req.Email,
		IsActive:  true,
	}
	if req.Notes != "" {
		client.Notes = &req.Notes
	}
	if err := h.db.WithContext(ctx).Create(&client).Error; err != nil {
		return nil, status.Errorf(codes.Internal, "Failed to create client: %v", err)
	}
	resp := clientToResponse(client)
	return &resp, nil
}

func (h *CatalogHandler) ListClients(ctx context.Context, sess session.Session, req ListClientsRequest) ([]ClientResponse, int64, error) {
	companyID, err := common.CompanyID(sess)
	if err != nil {
		return nil, 0, err
	}
	q := h.db.WithContext(ctx).Model(&models.Client{}).Where("company_id = ? AND is_active = ?", companyID, true)
	if s := strings.TrimSpace(req.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(name) LIKE ? OR phone LIKE ?", like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, status.Errorf(codes.Internal, "Failed to count clients: %v", err)
	}
	offset, limit := common.Page(req.Page, req.PageSize)
	var rows []models.Client
	if err := q.Order("name asc").Offset(offset).Limit(limit).Find(&rows).Error; err != nil {
		return nil, 0, status.Errorf(codes.Internal, "Failed to list clients: %v", err)
	}
	out := make([]ClientResponse, len(rows))
	for i, c := range rows {
		out[i] = clientToResponse(c)
	}
	return out, total, nil
}
