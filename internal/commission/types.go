// Package commission decides what a staff member earns on each sold item,
// freezes that decision when a sale is paid and aggregates earnings for reports.
package commission

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Category string

const (
	CategoryService Category = "service"
	CategoryProduct Category = "product"
)

var Categories = []Category{CategoryService, CategoryProduct}

func (c Category) Valid() bool {
	switch c {
	case CategoryService, CategoryProduct:
		return true
	}
	return false
}

func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.Valid() {
		return "", fmt.Errorf("%w: unknown item category %q", ErrInvalidInput, s)
	}
	return c, nil
}

type SaleStatus string

const (
	StatusAwaiting  SaleStatus = "awaiting"
	StatusPaid      SaleStatus = "paid"
	StatusCancelled SaleStatus = "cancelled"
)

// CanTransition reports whether a sale may move from s to next.
// Paid and cancelled are terminal.
func (s SaleStatus) CanTransition(next SaleStatus) bool {
	return s == StatusAwaiting && (next == StatusPaid || next == StatusCancelled)
}

type StaffMember struct {
	ID                string
	Name              string
	ServicePercentage decimal.Decimal
	ProductPercentage decimal.Decimal
	Active            bool
}

// DefaultPercentage is the staff member's baseline rate for a category.
func (s StaffMember) DefaultPercentage(c Category) decimal.Decimal {
	if c == CategoryProduct {
		return s.ProductPercentage
	}
	return s.ServicePercentage
}

type LineItem struct {
	ID        string
	ItemID    string
	Category  Category
	Name      string
	Quantity  int64
	UnitPrice decimal.Decimal
	Discount  decimal.Decimal
	// Subtotal is what was actually charged for the line, after discounts.
	Subtotal decimal.Decimal
}

type Sale struct {
	ID       string
	StaffID  string
	ClientID string
	Status   SaleStatus
	Total    decimal.Decimal
	Discount decimal.Decimal
	// DiscountInSubtotals is set when Discount was already spread over the
	// line subtotals and must not be subtracted again.
	DiscountInSubtotals bool
	Items               []LineItem
	PaidAt              *time.Time
	CreatedAt           time.Time
}

type Override struct {
	StaffID    string
	Category   Category
	ItemID     string
	Percentage decimal.Decimal
}

type HistoryRecord struct {
	ID         string
	SaleID     string
	StaffID    string
	LineItemID string
	Category   Category
	Percentage decimal.Decimal
	Amount     decimal.Decimal
	CreatedAt  time.Time
}

type lineKey struct {
	saleID     string
	lineItemID string
}

type overrideKey struct {
	category Category
	itemID   string
}
