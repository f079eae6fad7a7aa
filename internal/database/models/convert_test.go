package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"barbershop-system/internal/commission"
)

func TestSaleToCommission(t *testing.T) {
	client := uuid.New()
	paid := time.Date(2026, 5, 2, 15, 4, 0, 0, time.UTC)
	sale := Sale{
		ID:       uuid.New(),
		ClientID: &client,
		StaffID:  uuid.New(),
		Status:   string(commission.StatusPaid),
		Total:    decimal.NewFromInt(90),
		Discount: decimal.NewFromInt(10),
		PaidAt:   &paid,
		Items: []SaleLineItem{
			{ID: uuid.New(), ItemID: uuid.New(), Category: "service", Name: "Corte", Quantity: 1, Subtotal: decimal.NewFromInt(100)},
		},
	}

	got := sale.ToCommission()
	if got.ID != sale.ID.String() || got.StaffID != sale.StaffID.String() || got.ClientID != client.String() {
		t.Fatalf("ids not carried over: %+v", got)
	}
	if got.Status != commission.StatusPaid || len(got.Items) != 1 {
		t.Fatalf("unexpected sale %+v", got)
	}
	if got.Items[0].Category != commission.CategoryService || !got.Items[0].Subtotal.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("unexpected line %+v", got.Items[0])
	}
}

func TestHistoryFromCommission(t *testing.T) {
	company := uuid.New()
	rec := commission.HistoryRecord{
		SaleID:     uuid.NewString(),
		StaffID:    uuid.NewString(),
		LineItemID: uuid.NewString(),
		Category:   commission.CategoryProduct,
		Percentage: decimal.RequireFromString("12.5"),
		Amount:     decimal.RequireFromString("1.875"),
	}
	row, err := HistoryFromCommission(company, rec)
	if err != nil {
		t.Fatalf("HistoryFromCommission: %v", err)
	}
	back := row.ToCommission()
	if back.SaleID != rec.SaleID || back.LineItemID != rec.LineItemID || !back.Amount.Equal(rec.Amount) {
		t.Fatalf("round trip mismatch: %+v vs %+v", back, rec)
	}
	if row.CompanyID != company {
		t.Fatalf("expected company %s, got %s", company, row.CompanyID)
	}

	rec.LineItemID = "not-a-uuid"
	if _, err := HistoryFromCommission(company, rec); err == nil {
		t.Fatal("expected an error for a malformed line item id")
	}
}
