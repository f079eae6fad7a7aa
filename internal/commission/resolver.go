package commission

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// OverrideStore reads per-staff, per-item commission overrides.
// FindOverride returns ErrNotFound when no override matches.
type OverrideStore interface {
	FindOverride(ctx context.Context, staffID string, category Category, itemID string) (Override, error)
	ListOverrides(ctx context.Context, staffID string) ([]Override, error)
}

type Resolver struct {
	overrides OverrideStore
}

func NewResolver(overrides OverrideStore) *Resolver {
	return &Resolver{overrides: overrides}
}

// ResolvePercentage returns the override for (staff, category, item) when one
// exists, exactly as entered, and defaultPct otherwise.
func (r *Resolver) ResolvePercentage(ctx context.Context, staffID, itemID string, category Category, defaultPct decimal.Decimal) (decimal.Decimal, error) {
	if staffID == "" || itemID == "" {
		return decimal.Zero, fmt.Errorf("%w: staff and item ids are required", ErrInvalidInput)
	}
	if !category.Valid() {
		return decimal.Zero, fmt.Errorf("%w: unknown item category %q", ErrInvalidInput, category)
	}

	o, err := r.overrides.FindOverride(ctx, staffID, category, itemID)
	if errors.Is(err, ErrNotFound) {
		return defaultPct, nil
	}
	if err != nil {
		return decimal.Zero, &LookupError{Op: "override", Err: err}
	}
	return o.Percentage, nil
}

// Rates loads every override of one staff member in a single round trip and
// resolves from memory afterwards.
func (r *Resolver) Rates(ctx context.Context, staff StaffMember) (*RateTable, error) {
	list, err := r.overrides.ListOverrides(ctx, staff.ID)
	if err != nil {
		return nil, &LookupError{Op: "override", Err: err}
	}
	return NewRateTable(staff, list), nil
}

// RateTable is a snapshot of the percentages that apply to one staff member.
type RateTable struct {
	staff     StaffMember
	overrides map[overrideKey]decimal.Decimal
}

func NewRateTable(staff StaffMember, overrides []Override) *RateTable {
	t := &RateTable{staff: staff, overrides: make(map[overrideKey]decimal.Decimal, len(overrides))}
	for _, o := range overrides {
		if o.StaffID != "" && o.StaffID != staff.ID {
			continue
		}
		t.overrides[overrideKey{category: o.Category, itemID: o.ItemID}] = o.Percentage
	}
	return t
}

// Percentage returns the applicable rate and whether it came from an override.
func (t *RateTable) Percentage(category Category, itemID string) (decimal.Decimal, bool) {
	if p, ok := t.overrides[overrideKey{category: category, itemID: itemID}]; ok {
		return p, true
	}
	return t.staff.DefaultPercentage(category), false
}
