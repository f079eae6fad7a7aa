package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"barbershop-system/internal/gateway/middleware"
	"barbershop-system/internal/session"
)

const defaultTimeout = 15 * time.Second

type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
}

type PageMeta struct {
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Total    int64 `json:"total"`
}

func successResponse(message string, data interface{}) APIResponse {
	return APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	}
}

func errorResponse(message string) APIResponse {
	return APIResponse{
		Success: false,
		Message: message,
	}
}

func successWithMetaResponse(message string, data interface{}, meta interface{}) APIResponse {
	return APIResponse{
		Success: true,
		Message: message,
		Data:    data,
		Meta:    meta,
	}
}

// httpStatusFor maps service status codes onto HTTP.
func httpStatusFor(code codes.Code) int {
	switch code {
	case codes.InvalidArgument, codes.FailedPrecondition, codes.OutOfRange:
		return http.StatusBadRequest
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.NotFound:
		return http.StatusNotFound
	case codes.AlreadyExists, codes.Aborted:
		return http.StatusConflict
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func handleGRPCError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	s, ok := status.FromError(err)
	if !ok {
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse("Unknown service error"))
		return
	}
	code := httpStatusFor(s.Code())
	msg := s.Message()
	if code == http.StatusInternalServerError {
		msg = "Service error: " + msg
	}
	c.AbortWithStatusJSON(code, errorResponse(msg))
}

// requestScope returns the caller's session and a bounded context for the
// service call. It aborts with 401 when the route was not authenticated.
func requestScope(c *gin.Context, timeout time.Duration) (session.Session, context.Context, context.CancelFunc, bool) {
	sess, ok := middleware.CurrentSession(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse("Authentication required"))
		return session.Session{}, nil, nil, false
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
	return sess, ctx, cancel, true
}
