package handler

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"barbershop-system/internal/commission"
	"barbershop-system/internal/events"
)

type listOnlyOverrides struct {
	list  []commission.Override
	err   error
	calls int
}

func (l *listOnlyOverrides) FindOverride(ctx context.Context, staffID string, category commission.Category, itemID string) (commission.Override, error) {
	return commission.Override{}, errors.New("FindOverride must not be called")
}

func (l *listOnlyOverrides) ListOverrides(ctx context.Context, staffID string) ([]commission.Override, error) {
	l.calls++
	return l.list, l.err
}

func TestResolveRate(t *testing.T) {
	staff := commission.StaffMember{ID: "s-1", ServicePercentage: decimal.NewFromInt(40), ProductPercentage: decimal.NewFromInt(10)}
	store := &listOnlyOverrides{list: []commission.Override{
		{StaffID: "s-1", Category: commission.CategoryService, ItemID: "cut", Percentage: decimal.RequireFromString("62.5")},
	}}

	tests := []struct {
		name           string
		category       commission.Category
		itemID         string
		want           string
		wantOverridden bool
	}{
		{"override", commission.CategoryService, "cut", "62.5", true},
		{"service default", commission.CategoryService, "beard", "40", false},
		{"product default", commission.CategoryProduct, "cut", "10", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store.calls = 0
			pct, overridden, err := resolveRate(context.Background(), store, staff, tt.category, tt.itemID)
			if err != nil {
				t.Fatalf("resolveRate: %v", err)
			}
			if !pct.Equal(decimal.RequireFromString(tt.want)) || overridden != tt.wantOverridden {
				t.Errorf("got %s overridden=%v, want %s overridden=%v", pct, overridden, tt.want, tt.wantOverridden)
			}
			if store.calls != 1 {
				t.Errorf("store calls = %d, want 1", store.calls)
			}
		})
	}
}

func TestResolveRate_StoreFailure(t *testing.T) {
	store := &listOnlyOverrides{err: errors.New("timeout")}
	_, overridden, err := resolveRate(context.Background(), store, commission.StaffMember{ID: "s-1"}, commission.CategoryService, "cut")
	if !commission.IsLookupError(err) {
		t.Fatalf("err = %v, want LookupError", err)
	}
	if overridden {
		t.Error("overridden reported on failure")
	}
}

func TestNewCommissionHandler_Epsilon(t *testing.T) {
	logger := logrus.New()
	h := NewCommissionHandler(nil, nil, logger, events.Discard{}, decimal.RequireFromString("0.05"))
	if !h.epsilon.Equal(decimal.RequireFromString("0.05")) {
		t.Errorf("epsilon = %s, want configured 0.05", h.epsilon)
	}
	h = NewCommissionHandler(nil, nil, logger, events.Discard{}, decimal.Zero)
	if !h.epsilon.Equal(commission.DefaultEpsilon) {
		t.Errorf("epsilon = %s, want default", h.epsilon)
	}
}
