package commission

import (
	"context"
	"errors"
	"testing"
	"time"
)

func paidSale(id, staffID string, items ...LineItem) Sale {
	total := dec("0")
	for _, it := range items {
		total = total.Add(it.Subtotal)
	}
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return Sale{ID: id, StaffID: staffID, Status: StatusPaid, Total: total, Items: items, PaidAt: &now}
}

func line(id, itemID string, c Category, qty int64, subtotal string) LineItem {
	return LineItem{ID: id, ItemID: itemID, Category: c, Name: itemID, Quantity: qty, Subtotal: dec(subtotal)}
}

func TestRecordCommission_Idempotent(t *testing.T) {
	store := newMemHistory()
	h := NewHistorian(store, NewResolver(&memOverrides{}))
	ctx := context.Background()

	first, err := h.RecordCommission(ctx, "sale-1", "barber-1", "line-1", CategoryService, dec("20"), dec("10"))
	if err != nil {
		t.Fatalf("first record: %v", err)
	}
	second, err := h.RecordCommission(ctx, "sale-1", "barber-1", "line-1", CategoryService, dec("30"), dec("15"))
	if err != nil {
		t.Fatalf("second record: %v", err)
	}

	if store.count() != 1 {
		t.Fatalf("expected exactly one stored record, got %d", store.count())
	}
	if second.ID != first.ID || !second.Percentage.Equal(dec("20")) || !second.Amount.Equal(dec("10")) {
		t.Fatalf("expected the original record back, got %+v", second)
	}
}

func TestRecordCommission_WriteFailure(t *testing.T) {
	store := newMemHistory()
	store.insertErr = errors.New("disk full")
	h := NewHistorian(store, NewResolver(&memOverrides{}))

	_, err := h.RecordCommission(context.Background(), "sale-1", "barber-1", "line-1", CategoryProduct, dec("10"), dec("1"))
	if !IsWriteError(err) {
		t.Fatalf("expected WriteError, got %v", err)
	}
	var we *WriteError
	if errors.As(err, &we) && (we.SaleID != "sale-1" || we.LineItemID != "line-1") {
		t.Fatalf("write error should name the sale and line, got %+v", we)
	}
}

func TestRecordSale_UsesRatesAtPaymentTime(t *testing.T) {
	overrides := &memOverrides{rows: []Override{
		{StaffID: "barber-1", Category: CategoryService, ItemID: "haircut", Percentage: dec("50")},
	}}
	store := newMemHistory()
	h := NewHistorian(store, NewResolver(overrides))
	staff := StaffMember{ID: "barber-1", ServicePercentage: dec("40"), ProductPercentage: dec("10")}

	sale := paidSale("sale-1", "barber-1",
		line("l1", "haircut", CategoryService, 1, "100"),
		line("l2", "beard", CategoryService, 1, "50"),
		line("l3", "pomade", CategoryProduct, 2, "60"),
	)
	records, err := h.RecordSale(context.Background(), sale, staff)
	if err != nil {
		t.Fatalf("RecordSale: %v", err)
	}
	want := map[string][2]string{
		"l1": {"50", "50"},
		"l2": {"40", "20"},
		"l3": {"10", "6"},
	}
	if len(records) != len(want) {
		t.Fatalf("expected %d records, got %d", len(want), len(records))
	}
	for _, r := range records {
		w := want[r.LineItemID]
		if !r.Percentage.Equal(dec(w[0])) || !r.Amount.Equal(dec(w[1])) {
			t.Fatalf("line %s: expected %s%% / %s, got %s%% / %s", r.LineItemID, w[0], w[1], r.Percentage, r.Amount)
		}
	}
	if overrides.listCalls != 1 || overrides.findCalls != 0 {
		t.Fatalf("expected one batched override query, got list=%d find=%d", overrides.listCalls, overrides.findCalls)
	}

	// double submission
	if _, err := h.RecordSale(context.Background(), sale, staff); err != nil {
		t.Fatalf("second RecordSale: %v", err)
	}
	if store.count() != 3 {
		t.Fatalf("expected 3 records after double submission, got %d", store.count())
	}
}

func TestRecordSale_OnlyPaidSales(t *testing.T) {
	h := NewHistorian(newMemHistory(), NewResolver(&memOverrides{}))
	staff := StaffMember{ID: "barber-1"}

	for _, status := range []SaleStatus{StatusAwaiting, StatusCancelled} {
		sale := paidSale("sale-1", "barber-1", line("l1", "haircut", CategoryService, 1, "10"))
		sale.Status = status
		if _, err := h.RecordSale(context.Background(), sale, staff); !errors.Is(err, ErrSaleNotPaid) {
			t.Fatalf("%s: expected ErrSaleNotPaid, got %v", status, err)
		}
	}

	other := paidSale("sale-2", "barber-2", line("l1", "haircut", CategoryService, 1, "10"))
	if _, err := h.RecordSale(context.Background(), other, staff); !errors.Is(err, ErrStaffMismatch) {
		t.Fatalf("expected ErrStaffMismatch, got %v", err)
	}
}
