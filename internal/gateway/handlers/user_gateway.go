package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"barbershop-system/internal/gateway/middleware"
	"barbershop-system/internal/session"
	users "barbershop-system/internal/services/user/handler"
)

type AuthService interface {
	Login(ctx context.Context, username, password string) (session.Session, string, error)
	Logout(ctx context.Context, s session.Session) error
}

type UserService interface {
	RegisterCompany(ctx context.Context, req users.RegisterCompanyRequest) (*users.UserResponse, error)
	CreateUser(ctx context.Context, sess session.Session, req users.CreateUserRequest) (*users.UserResponse, error)
	GetUser(ctx context.Context, sess session.Session, userID string) (*users.UserResponse, error)
	ListUsers(ctx context.Context, sess session.Session) ([]users.UserResponse, error)
	CreateStaff(ctx context.Context, sess session.Session, req users.StaffRequest) (*users.StaffResponse, error)
	ListStaff(ctx context.Context, sess session.Session, includeInactive bool) ([]users.StaffResponse, error)
	UpdateStaff(ctx context.Context, sess session.Session, staffID string, req users.UpdateStaffRequest) (*users.StaffResponse, error)
	DeactivateStaff(ctx context.Context, sess session.Session, staffID string) error
}

type UserHTTPHandler struct {
	auth    AuthService
	users   UserService
	timeout time.Duration
}

func NewUserHTTPHandler(auth AuthService, service UserService, timeout time.Duration) *UserHTTPHandler {
	return &UserHTTPHandler{auth: auth, users: service, timeout: timeout}
}

// --- Request Structs for Binding ---

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RegisterRequest struct {
	CompanyName string `json:"company_name" binding:"required"`
	Currency    string `json:"currency"`
	Username    string `json:"username" binding:"required"`
	Email       string `json:"email" binding:"required"`
	Password    string `json:"password" binding:"required"`
	FullName    string `json:"full_name" binding:"required"`
}

type CreateUserBody struct {
	Username    string   `json:"username" binding:"required"`
	Email       string   `json:"email" binding:"required"`
	Password    string   `json:"password" binding:"required"`
	FullName    string   `json:"full_name" binding:"required"`
	Role        string   `json:"role" binding:"required"`
	StaffID     string   `json:"staff_id"`
	Permissions []string `json:"permissions"`
}

type StaffBody struct {
	Name              string `json:"name" binding:"required"`
	Phone             string `json:"phone"`
	ServicePercentage string `json:"service_percentage" binding:"required"`
	ProductPercentage string `json:"product_percentage" binding:"required"`
}

// --- Authentication ---

func (h *UserHTTPHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	sess, token, err := h.auth.Login(ctx, req.Username, req.Password)
	if errors.Is(err, session.ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, errorResponse("Invalid username or password"))
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("Authentication service error"))
		return
	}

	c.JSON(http.StatusOK, successResponse("Login successful", map[string]interface{}{
		"token":      token,
		"expires_at": sess.ExpiresAt,
		"session":    sess,
	}))
}

func (h *UserHTTPHandler) Logout(c *gin.Context) {
	sess, ctx, cancel, ok := requestScope(c, h.timeout)
	if !ok {
		return
	}
	defer cancel()

	if err := h.auth.Logout(ctx, sess); err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("Failed to log out"))
		return
	}
	c.JSON(http.StatusOK, successResponse("Logged out", nil))
}

func (h *UserHTTPHandler) Me(c *gin.Context) {
	sess, ok := middleware.CurrentSession(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse("Authentication required"))
		return
	}
	c.JSON(http.StatusOK, successResponse("Current session", sess))
}

func (h *UserHTTPHandler) RegisterCompany(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format"))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	user, err := h.users.RegisterCompany(ctx, users.RegisterCompanyRequest{
		CompanyName: req.CompanyName,
		Currency:    req.Currency,
		Username:    req.Username,
		Email:       req.Email,
		Password:    req.Password,
		FullName:    req.FullName,
	})
	if err != nil {
		handleGRPCError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse("Company registered", user))
}

// --- User Management ---

func (h *UserHTTPHandler) CreateUser(c *gin.Context) {
	var body CreateUserBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format: "+err.Error()))
		return
	}
	sess, ctx, cancel, ok := requestScope(c, h.timeout)
	if !ok {
		return
	}
	defer cancel()

	user, err := h.users.CreateUser(ctx, sess, users.CreateUserRequest{
		Username:    body.Username,
		Email:       body.Email,
		Password:    body.Password,
		FullName:    body.FullName,
		Role:        body.Role,
		StaffID:     body.StaffID,
		Permissions: body.Permissions,
	})
	if err != nil {
		handleGRPCError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse("User created", user))
}

func (h *UserHTTPHandler) GetUser(c *gin.Context) {
	sess, ctx, cancel, ok := requestScope(c, h.timeout)
	if !ok {
		return
	}
	defer cancel()

	user, err := h.users.GetUser(ctx, sess, c.Param("id"))
	if err != nil {
		handleGRPCError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("User retrieved", user))
}

func (h *UserHTTPHandler) ListUsers(c *gin.Context) {
	sess, ctx, cancel, ok := requestScope(c, h.timeout)
	if !ok {
		return
	}
	defer cancel()

	list, err := h.users.ListUsers(ctx, sess)
	if err != nil {
		handleGRPCError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Users retrieved", list))
}

// --- Staff ---

func (h *UserHTTPHandler) CreateStaff(c *gin.Context) {
	var body StaffBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format: "+err.Error()))
		return
	}
	sess, ctx, cancel, ok := requestScope(c, h.timeout)
	if !ok {
		return
	}
	defer cancel()

	staff, err := h.users.CreateStaff(ctx, sess, users.StaffRequest{
		Name:              body.Name,
		Phone:             body.Phone,
		ServicePercentage: body.ServicePercentage,
		ProductPercentage: body.ProductPercentage,
	})
	if err != nil {
		handleGRPCError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse("Staff member created", staff))
}

func (h *UserHTTPHandler) ListStaff(c *gin.Context) {
	includeInactive, _ := strconv.ParseBool(c.Query("include_inactive"))
	sess, ctx, cancel, ok := requestScope(c, h.timeout)
	if !ok {
		return
	}
	defer cancel()

	list, err := h.users.ListStaff(ctx, sess, includeInactive)
	if err != nil {
		handleGRPCError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Staff retrieved", list))
}

func (h *UserHTTPHandler) UpdateStaff(c *gin.Context) {
	var body users.UpdateStaffRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format: "+err.Error()))
		return
	}
	sess, ctx, cancel, ok := requestScope(c, h.timeout)
	if !ok {
		return
	}
	defer cancel()

	staff, err := h.users.UpdateStaff(ctx, sess, c.Param("id"), body)
	if err != nil {
		handleGRPCError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Staff member updated", staff))
}

func (h *UserHTTPHandler) DeactivateStaff(c *gin.Context) {
	sess, ctx, cancel, ok := requestScope(c, h.timeout)
	if !ok {
		return
	}
	defer cancel()

	if err := h.users.DeactivateStaff(ctx, sess, c.Param("id")); err != nil {
		handleGRPCError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Staff member deactivated", nil))
}

// RegisterPublic mounts the routes that need no session.
func (h *UserHTTPHandler) RegisterPublic(rg *gin.RouterGroup) {
	auth := rg.Group("/auth")
	{
		auth.POST("/login", h.Login)
		auth.POST("/register", h.RegisterCompany)
	}
}

func (h *UserHTTPHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/auth/logout", h.Logout)
	rg.GET("/auth/me", h.Me)

	u := rg.Group("/users")
	{
		u.POST("", h.CreateUser)
		u.GET("", h.ListUsers)
		u.GET("/:id", h.GetUser)
	}

	s := rg.Group("/staff")
	{
		s.POST("", h.CreateStaff)
		s.GET("", h.ListStaff)
		s.PUT("/:id", h.UpdateStaff)
		s.POST("/:id/deactivate", h.DeactivateStaff)
	}
}
