package commission

import (
	"context"
	"errors"
	"testing"
)

func TestResolvePercentage(t *testing.T) {
	store := &memOverrides{rows: []Override{
		{StaffID: "barber-1", Category: CategoryService, ItemID: "haircut", Percentage: dec("50")},
		{StaffID: "barber-1", Category: CategoryProduct, ItemID: "pomade", Percentage: dec("125")},
		{StaffID: "barber-1", Category: CategoryProduct, ItemID: "wax", Percentage: dec("-5")},
	}}
	r := NewResolver(store)

	cases := []struct {
		name     string
		staffID  string
		itemID   string
		category Category
		def      string
		want     string
	}{
		{"override wins over default", "barber-1", "haircut", CategoryService, "40", "50"},
		{"override equal to default still returned", "barber-1", "haircut", CategoryService, "50", "50"},
		{"no override uses default", "barber-1", "beard", CategoryService, "40", "40"},
		{"category is part of the key", "barber-1", "haircut", CategoryProduct, "10", "10"},
		{"other staff does not match", "barber-2", "haircut", CategoryService, "35", "35"},
		{"over 100 is not clamped", "barber-1", "pomade", CategoryProduct, "10", "125"},
		{"negative is not clamped", "barber-1", "wax", CategoryProduct, "10", "-5"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := r.ResolvePercentage(context.Background(), tc.staffID, tc.itemID, tc.category, dec(tc.def))
			if err != nil {
				t.Fatalf("ResolvePercentage: %v", err)
			}
			if !got.Equal(dec(tc.want)) {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestResolvePercentage_LookupFailureIsNotDefault(t *testing.T) {
	storeErr := errors.New("connection refused")
	r := NewResolver(&memOverrides{err: storeErr})

	_, err := r.ResolvePercentage(context.Background(), "barber-1", "haircut", CategoryService, dec("40"))
	if err == nil {
		t.Fatal("expected an error when the store is unreachable")
	}
	if !IsLookupError(err) {
		t.Fatalf("expected LookupError, got %T: %v", err, err)
	}
	if !errors.Is(err, storeErr) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
	if errors.Is(err, ErrNotFound) {
		t.Fatal("lookup failure must not look like not-found")
	}
}

func TestResolvePercentage_RejectsBadInput(t *testing.T) {
	store := &memOverrides{}
	r := NewResolver(store)

	for _, tc := range []struct {
		staffID, itemID string
		category        Category
	}{
		{"", "haircut", CategoryService},
		{"barber-1", "", CategoryService},
		{"barber-1", "haircut", Category("gift")},
	} {
		if _, err := r.ResolvePercentage(context.Background(), tc.staffID, tc.itemID, tc.category, dec("10")); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("%+v: expected ErrInvalidInput, got %v", tc, err)
		}
	}
	if store.findCalls != 0 {
		t.Fatalf("store should not be queried for invalid input, got %d calls", store.findCalls)
	}
}

func TestRateTable(t *testing.T) {
	staff := StaffMember{ID: "barber-1", ServicePercentage: dec("40"), ProductPercentage: dec("10")}
	table := NewRateTable(staff, []Override{
		{StaffID: "barber-1", Category: CategoryService, ItemID: "haircut", Percentage: dec("50")},
		{StaffID: "barber-2", Category: CategoryService, ItemID: "beard", Percentage: dec("99")},
	})

	if p, ok := table.Percentage(CategoryService, "haircut"); !ok || !p.Equal(dec("50")) {
		t.Fatalf("haircut: expected override 50, got %s (override=%v)", p, ok)
	}
	if p, ok := table.Percentage(CategoryService, "beard"); ok || !p.Equal(dec("40")) {
		t.Fatalf("beard: expected service default 40, got %s (override=%v)", p, ok)
	}
	if p, ok := table.Percentage(CategoryProduct, "pomade"); ok || !p.Equal(dec("10")) {
		t.Fatalf("pomade: expected product default 10, got %s (override=%v)", p, ok)
	}
}

func TestParseCategory(t *testing.T) {
	if c, err := ParseCategory("product"); err != nil || c != CategoryProduct {
		t.Fatalf("ParseCategory(product) = %q, %v", c, err)
	}
	if _, err := ParseCategory("Service"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected categories to be case sensitive, got %v", err)
	}
}

func TestSaleStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to SaleStatus
		want     bool
	}{
		{StatusAwaiting, StatusPaid, true},
		{StatusAwaiting, StatusCancelled, true},
		{StatusPaid, StatusAwaiting, false},
		{StatusPaid, StatusCancelled, false},
		{StatusCancelled, StatusPaid, false},
		{StatusAwaiting, StatusAwaiting, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransition(tc.to); got != tc.want {
			t.Fatalf("%s -> %s: expected %v, got %v", tc.from, tc.to, tc.want, got)
		}
	}
}
