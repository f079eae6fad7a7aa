package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"barbershop-system/config"
	"barbershop-system/internal/database/models"
	"barbershop-system/internal/events"
	"barbershop-system/internal/services/common"
	"barbershop-system/internal/session"
)

const (
	STAFF_CACHE_PREFIX = "staff:list:"
	CACHE_TTL_MEDIUM   = 30 * time.Minute
)

// --- Request & Response ---

type RegisterCompanyRequest struct {
	CompanyName string `json:"company_name" validate:"required,min=2"`
	Currency    string `json:"currency" validate:"omitempty,len=3"`
	Username    string `json:"username" validate:"required,min=3,max=64"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
	FullName    string `json:"full_name" validate:"required"`
}

type CreateUserRequest struct {
	Username    string   `json:"username" validate:"required,min=3,max=64"`
	Email       string   `json:"email" validate:"required,email"`
	Password    string   `json:"password" validate:"required,min=8"`
	FullName    string   `json:"full_name" validate:"required"`
	Role        string   `json:"role" validate:"required,oneof=admin manager barber"`
	StaffID     string   `json:"staff_id" validate:"omitempty,uuid"`
	Permissions []string `json:"permissions"`
}

type StaffRequest struct {
	Name              string `json:"name" validate:"required"`
	Phone             string `json:"phone"`
	ServicePercentage string `json:"service_percentage" validate:"required,numeric"`
	ProductPercentage string `json:"product_percentage" validate:"required,numeric"`
}

type UpdateStaffRequest struct {
	Name              *string `json:"name" validate:"omitempty,min=1"`
	Phone             *string `json:"phone"`
	ServicePercentage *string `json:"service_percentage" validate:"omitempty,numeric"`
	ProductPercentage *string `json:"product_percentage" validate:"omitempty,numeric"`
}

type UserResponse struct {
	ID          string     `json:"id"`
	CompanyID   string     `json:"company_id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	FullName    string     `json:"full_name"`
	Role        string     `json:"role"`
	StaffID     string     `json:"staff_id,omitempty"`
	Permissions []string   `json:"permissions"`
	IsActive    bool       `json:"is_active"`
	LastLogin   *time.Time `json:"last_login,omitempty"`
}

type StaffResponse struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Phone             string `json:"phone,omitempty"`
	ServicePercentage string `json:"service_percentage"`
	ProductPercentage string `json:"product_percentage"`
	IsActive          bool   `json:"is_active"`
}

// --- Handler ---

// Invalidator drops cached commission reports. Staff names and default
// percentages are part of every cached report of that staff member.
type Invalidator interface {
	InvalidateCommissionCaches(ctx context.Context, companyID string, staffIDs ...string)
}

type UserHandler struct {
	db          *gorm.DB
	redis       *redis.Client
	logger      *logrus.Logger
	events      events.Publisher
	commissions Invalidator
}

func NewUserHandler(db *gorm.DB, redisClient *redis.Client, logger *logrus.Logger, publisher events.Publisher, commissions Invalidator) *UserHandler {
	return &UserHandler{db: db, redis: redisClient, logger: logger, events: publisher, commissions: commissions}
}

func userToResponse(u models.User) UserResponse {
	resp := UserResponse{
		ID:          u.ID.String(),
		CompanyID:   u.CompanyID.String(),
		Username:    u.Username,
		Email:       u.Email,
		FullName:    u.FullName,
		Role:        u.Role,
		Permissions: []string(u.Permissions),
		IsActive:    u.IsActive,
		LastLogin:   u.LastLogin,
	}
	if u.StaffID != nil {
		resp.StaffID = u.StaffID.String()
	}
	if resp.Permissions == nil {
		resp.Permissions = []string{}
	}
	return resp
}

func staffToResponse(s models.StaffMember) StaffResponse {
	return StaffResponse{
		ID:                s.ID.String(),
		Name:              s.Name,
		Phone:             s.Phone,
		ServicePercentage: s.ServicePercentage.String(),
		ProductPercentage: s.ProductPercentage.String(),
		IsActive:          s.IsActive,
	}
}

func parsePercentage(field, v string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, status.Errorf(codes.InvalidArgument, "%s must be a decimal number", field)
	}
	return d, nil
}

func (h *UserHandler) invalidateStaffCache(ctx context.Context, companyID uuid.UUID) {
	_ = h.redis.Del(ctx, STAFF_CACHE_PREFIX+companyID.String()+":active", STAFF_CACHE_PREFIX+companyID.String()+":all")
}

// staffChanged runs after a staff row is written: the staff list and that
// staff member's commission reports are stale from here on.
func (h *UserHandler) staffChanged(ctx context.Context, sess session.Session, companyID uuid.UUID, staffID, action string) {
	h.invalidateStaffCache(ctx, companyID)
	h.commissions.InvalidateCommissionCaches(ctx, companyID.String(), staffID)
	h.publish(ctx, sess, staffID, action)
}

// staffUpdates turns a partial update into column assignments.
func staffUpdates(req UpdateStaffRequest) (map[string]interface{}, error) {
	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.ServicePercentage != nil {
		d, err := parsePercentage("service_percentage", *req.ServicePercentage)
		if err != nil {
			return nil, err
		}
		updates["service_percentage"] = d
	}
	if req.ProductPercentage != nil {
		d, err := parsePercentage("product_percentage", *req.ProductPercentage)
		if err != nil {
			return nil, err
		}
		updates["product_percentage"] = d
	}
	if len(updates) == 0 {
		return nil, status.Errorf(codes.InvalidArgument, "Nothing to update")
	}
	return updates, nil
}

// --- Accounts (session.AccountStore) ---

func (h *UserHandler) FindActiveAccount(ctx context.Context, username string) (session.Account, error) {
	var u models.User
	err := h.db.WithContext(ctx).Where("username = ? AND is_active = ?", strings.ToLower(username), true).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return session.Account{}, session.ErrAccountNotFound
	}
	if err != nil {
		return session.Account{}, err
	}
	acc := session.Account{
		UserID:       u.ID.String(),
		CompanyID:    u.CompanyID.String(),
		Role:         session.Role(u.Role),
		PasswordHash: u.Password,
	}
	if u.StaffID != nil {
		acc.StaffID = u.StaffID.String()
	}
	return acc, nil
}

func (h *UserHandler) TouchLogin(ctx context.Context, userID string, at time.Time) error {
	return h.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("last_login", at).Error
}

// --- Company & users ---

// RegisterCompany creates a tenant and its first admin in one transaction.
func (h *UserHandler) RegisterCompany(ctx context.Context, req RegisterCompanyRequest) (*UserResponse, error) {
	if err := common.Validate(req); err != nil {
		return nil, err
	}
	hash, err := session.HashPassword(req.Password)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "Failed to hash password: %v", err)
	}
	currency := strings.ToUpper(req.Currency)
	if currency == "" {
		currency = "BRL"
	}

	var user models.User
	err = h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		company := models.Company{Name: req.CompanyName, Currency: currency, IsActive: true}
		if err := tx.Create(&company).Error; err != nil {
			return err
		}
		user = models.User{
			CompanyID: company.ID,
			Username:  strings.ToLower(req.Username),
			Email:     req.Email,
			Password:  hash,
			FullName:  req.FullName,
			Role:      string(session.RoleAdmin),
			IsActive:  true,
		}
		return tx.Create(&user).Error
	})
	if err != nil {
		if common.IsUniqueViolation(err) {
			return nil, status.Errorf(codes.AlreadyExists, "Username %s is already taken", req.Username)
		}
		return nil, status.Errorf(codes.Internal, "Failed to register company: %v", err)
	}

	resp := userToResponse(user)
	return &resp, nil
}

func (h *UserHandler) CreateUser(ctx context.Context, sess session.Session, req CreateUserRequest) (*UserResponse, error) {
	if err := common.RequireManager(sess); err != nil {
		return nil, err
	}
	if err := common.Validate(req); err != nil {
		return nil, err
	}
	if req.Role == string(session.RoleAdmin) && sess.Role != session.RoleAdmin {
		return nil, status.Errorf(codes.PermissionDenied, "Only admins can create admins")
	}
	companyID, err := common.CompanyID(sess)
	if err != nil {
		return nil, err
	}

	user := models.User{
		CompanyID:   companyID,
		Username:    strings.ToLower(req.Username),
		Email:       req.Email,
		FullName:    req.FullName,
		Role:        req.Role,
		Permissions: datatypes.JSONSlice[string](req.Permissions),
		IsActive:    true,
	}
	if req.StaffID != "" {
		staff, err := h.getStaff(ctx, companyID, req.StaffID)
		if err != nil {
			return nil, err
		}
		user.StaffID = &staff.ID
	}
	if user.Role == string(session.RoleBarber) && user.StaffID == nil {
		return nil, status.Errorf(codes.InvalidArgument, "Barber accounts must be linked to a staff member")
	}

	hash, err := session.HashPassword(req.Password)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "Failed to hash password: %v", err)
	}
	user.Password = hash

	if err := h.db.WithContext(ctx).Create(&user).Error; err != nil {
		if common.IsUniqueViolation(err) {
			return nil, status.Errorf(codes.AlreadyExists, "Username %s is already taken", req.Username)
		}
		return nil, status.Errorf(codes.Internal, "Failed to create user: %v", err)
	}
	resp := userToResponse(user)
	return &resp, nil
}

func (h *UserHandler) GetUser(ctx context.Context, sess session.Session, userID string) (*UserResponse, error) {
	if userID != sess.UserID {
		if err := common.RequireManager(sess); err != nil {
			return nil, err
		}
	}
	companyID, err := common.CompanyID(sess)
	if err != nil {
		return nil, err
	}
	id, err := common.ParseID("user_id", userID)
	if err != nil {
		return nil, err
	}
	var u models.User
	if err := h.db.WithContext(ctx).Where("company_id = ? AND id = ?", companyID, id).First(&u).Error; err != nil {
		return nil, common.ToStatus(err, "Failed to get user")
	}
	resp := userToResponse(u)
	return &resp, nil
}

func (h *UserHandler) ListUsers(ctx context.Context, sess session.Session) ([]UserResponse, error) {
	if err := common.RequireManager(sess); err != nil {
		return nil, err
	}
	companyID, err := common.CompanyID(sess)
	if err != nil {
		return nil, err
	}
	var users []models.User
	if err := h.db.WithContext(ctx).Where("company_id = ?", companyID).Order("username asc").Find(&users).Error; err != nil {
		return nil, status.Errorf(codes.Internal, "Failed to list users: %v", err)
	}
	out := make([]UserResponse, len(users))
	for i, u := range users {
		out[i] = userToResponse(u)
	}
	return out, nil
}

// --- Staff ---

func (h *UserHandler) getStaff(ctx context.Context, companyID uuid.UUID, staffID string) (models.StaffMember, error) {
	id, err := common.ParseID("staff_id", staffID)
	if err != nil {
		return models.StaffMember{}, err
	}
	var staff models.StaffMember
	err = h.db.WithContext(ctx).Where("company_id = ? AND id = ?", companyID, id).First(&staff).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return staff, status.Errorf(codes.NotFound, "Staff member %s not found", id)
	}
	if err != nil {
		return staff, status.Errorf(codes.Internal, "Failed to get staff member: %v", err)
	}
	return staff, nil
}

func (h *UserHandler) CreateStaff(ctx context.Context, sess session.Session, req StaffRequest) (*StaffResponse, error) {
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
	servicePct, err := parsePercentage("service_percentage", req.ServicePercentage)
	if err != nil {
		return nil, err
	}
	productPct, err := parsePercentage("product_percentage", req.ProductPercentage)
	if err != nil {
		return nil, err
	}

	staff := models.StaffMember{
		CompanyID:         companyID,
		Name:              req.Name,
		Phone:             req.Phone,
		ServicePercentage: servicePct,
		ProductPercentage: productPct,
		IsActive:          true,
	}
	if err := h.db.WithContext(ctx).Create(&staff).Error; err != nil {
		return nil, status.Errorf(codes.Internal, "Failed to create staff member: %v", err)
	}

	h.invalidateStaffCache(ctx, companyID)
	h.publish(ctx, sess, staff.ID.String(), "created")
	resp := staffToResponse(staff)
	return &resp, nil
}

func (h *UserHandler) ListStaff(ctx context.Context, sess session.Session, includeInactive bool) ([]StaffResponse, error) {
	companyID, err := common.CompanyID(sess)
	if err != nil {
		return nil, err
	}
	scope := "active"
	if includeInactive {
		scope = "all"
	}
	cacheKey := STAFF_CACHE_PREFIX + companyID.String() + ":" + scope

	val, err := h.redis.Get(ctx, cacheKey).Result()
	if err == nil {
		var cached []StaffResponse
		if err := json.Unmarshal([]byte(val), &cached); err == nil {
			return cached, nil
		}
	} else if err != redis.Nil {
		h.logger.WithError(err).WithField("key", cacheKey).Warn("redis error on GET, falling back to DB")
	}

	q := h.db.WithContext(ctx).Where("company_id = ?", companyID)
	if !includeInactive {
		q = q.Where("is_active = ?", true)
	}
	var rows []models.StaffMember
	if err := q.Order("name asc").Find(&rows).Error; err != nil {
		return nil, status.Errorf(codes.Internal, "Failed to list staff: %v", err)
	}
	out := make([]StaffResponse, len(rows))
	for i, s := range rows {
		out[i] = staffToResponse(s)
	}

	if data, err := json.Marshal(out); err == nil {
		if err := h.redis.Set(ctx, cacheKey, data, CACHE_TTL_MEDIUM).Err(); err != nil {
			h.logger.WithError(err).WithField("key", cacheKey).Warn("failed to set staff cache")
		}
	}
	return out, nil
}

// UpdateStaff changes name or default percentages. New defaults apply to
// future sales only; existing history is untouched.
func (h *UserHandler) UpdateStaff(ctx context.Context, sess session.Session, staffID string, req UpdateStaffRequest) (*StaffResponse, error) {
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
	staff, err := h.getStaff(ctx, companyID, staffID)
	if err != nil {
		return nil, err
	}

	updates, err := staffUpdates(req)
	if err != nil {
		return nil, err
	}

	if err := h.db.WithContext(ctx).Model(&staff).Updates(updates).Error; err != nil {
		return nil, status.Errorf(codes.Internal, "Failed to update staff member: %v", err)
	}
	if err := h.db.WithContext(ctx).First(&staff, "id = ?", staff.ID).Error; err != nil {
		return nil, status.Errorf(codes.Internal, "Failed to reload staff member: %v", err)
	}

	h.staffChanged(ctx, sess, companyID, staff.ID.String(), "updated")
	resp := staffToResponse(staff)
	return &resp, nil
}

// DeactivateStaff hides a staff member from new sales. Rows are never
// deleted because paid sales and history reference them.
func (h *UserHandler) DeactivateStaff(ctx context.Context, sess session.Session, staffID string) error {
	if err := common.RequireManager(sess); err != nil {
		return err
	}
	companyID, err := common.CompanyID(sess)
	if err != nil {
		return err
	}
	staff, err := h.getStaff(ctx, companyID, staffID)
	if err != nil {
		return err
	}
	if !staff.IsActive {
		return status.Errorf(codes.FailedPrecondition, "Staff member %s is already inactive", staff.Name)
	}
	if err := h.db.WithContext(ctx).Model(&staff).Update("is_active", false).Error; err != nil {
		return status.Errorf(codes.Internal, "Failed to deactivate staff member: %v", err)
	}

	h.staffChanged(ctx, sess, companyID, staff.ID.String(), "deactivated")
	return nil
}

func (h *UserHandler) publish(ctx context.Context, sess session.Session, staffID, action string) {
	err := h.events.Publish(ctx, events.Event{
		Type:      events.StaffChanged,
		CompanyID: sess.CompanyID,
		EntityID:  staffID,
		ActorID:   sess.UserID,
		Data:      map[string]any{"action": action},
	})
	if err != nil {
		config.LogError(h.logger, "user", "publish", fmt.Sprintf("staff %s", action), staffID, err)
	}
}
