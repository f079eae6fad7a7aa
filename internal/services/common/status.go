// Package common holds what every service handler shares: mapping domain
// errors to gRPC status codes, input validation and argument parsing.
package common

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/gorm"

	"barbershop-system/internal/commission"
	"barbershop-system/internal/session"
)

const DateLayout = "2006-01-02"

var validate = validator.New()

// ToStatus converts err into a gRPC status error. Errors that already carry
// a status pass through unchanged.
func ToStatus(err error, msg string) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	code := codes.Internal
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	case commission.IsWriteError(err):
		code = codes.Aborted
	case commission.IsLookupError(err):
		code = codes.Unavailable
	case errors.Is(err, commission.ErrInvalidInput):
		code = codes.InvalidArgument
	case errors.Is(err, commission.ErrSaleNotPaid), errors.Is(err, commission.ErrStaffMismatch):
		code = codes.FailedPrecondition
	case errors.Is(err, commission.ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		code = codes.NotFound
	case IsUniqueViolation(err):
		code = codes.AlreadyExists
	}
	return status.Errorf(code, "%s: %v", msg, err)
}

// IsUniqueViolation reports a postgres unique_violation (23505).
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

// Validate runs the struct's validate tags and reports the first failures
// as InvalidArgument.
func Validate(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return status.Errorf(codes.InvalidArgument, "Invalid request: %v", err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
	}
	return status.Errorf(codes.InvalidArgument, "Invalid fields: %s", strings.Join(fields, ", "))
}

func ParseID(field, value string) (uuid.UUID, error) {
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, status.Errorf(codes.InvalidArgument, "%s must be a valid id", field)
	}
	return id, nil
}

// CompanyID returns the tenant of an authenticated session.
func CompanyID(sess session.Session) (uuid.UUID, error) {
	id, err := uuid.Parse(sess.CompanyID)
	if err != nil {
		return uuid.Nil, status.Errorf(codes.Unauthenticated, "Session has no company")
	}
	return id, nil
}

func UserID(sess session.Session) uuid.UUID {
	id, _ := uuid.Parse(sess.UserID)
	return id
}

func RequireManager(sess session.Session) error {
	if !sess.CanManage() {
		return status.Errorf(codes.PermissionDenied, "Only managers can perform this action")
	}
	return nil
}

// ParsePeriod reads inclusive calendar dates and returns the half-open
// range [from, to+1day).
func ParsePeriod(from, to string) (time.Time, time.Time, error) {
	start, err := time.Parse(DateLayout, from)
	if err != nil {
		return time.Time{}, time.Time{}, status.Errorf(codes.InvalidArgument, "Invalid start date %q, expected YYYY-MM-DD", from)
	}
	end, err := time.Parse(DateLayout, to)
	if err != nil {
		return time.Time{}, time.Time{}, status.Errorf(codes.InvalidArgument, "Invalid end date %q, expected YYYY-MM-DD", to)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, status.Errorf(codes.InvalidArgument, "End date must not be before start date")
	}
	return start, end.AddDate(0, 0, 1), nil
}

// ParseAmount parses a non-negative money value. Empty means zero.
func ParseAmount(field, value string) (decimal.Decimal, error) {
	if value == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, status.Errorf(codes.InvalidArgument, "%s must be a decimal number", field)
	}
	if d.IsNegative() {
		return decimal.Zero, status.Errorf(codes.InvalidArgument, "%s must not be negative", field)
	}
	return d, nil
}

// Page normalizes pagination input the way list endpoints expect it.
func Page(page, pageSize int) (offset, limit int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return (page - 1) * pageSize, pageSize
}
