package commission

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// HistoryStore is the append-only commission ledger.
//
// InsertIfAbsent must be atomic per (sale, line item): when a record already
// exists the stored one is returned with created=false.
type HistoryStore interface {
	InsertIfAbsent(ctx context.Context, rec HistoryRecord) (stored HistoryRecord, created bool, err error)
	FindBySales(ctx context.Context, saleIDs []string) ([]HistoryRecord, error)
}

type Historian struct {
	store    HistoryStore
	resolver *Resolver
	now      func() time.Time
}

func NewHistorian(store HistoryStore, resolver *Resolver) *Historian {
	return &Historian{store: store, resolver: resolver, now: time.Now}
}

// RecordCommission freezes the percentage and amount of one sold line.
// Calling it again for the same sale and line returns the first record.
func (h *Historian) RecordCommission(ctx context.Context, saleID, staffID, lineItemID string, category Category, percentage, amount decimal.Decimal) (HistoryRecord, error) {
	if saleID == "" || staffID == "" || lineItemID == "" {
		return HistoryRecord{}, fmt.Errorf("%w: sale, staff and line item ids are required", ErrInvalidInput)
	}
	if !category.Valid() {
		return HistoryRecord{}, fmt.Errorf("%w: unknown item category %q", ErrInvalidInput, category)
	}

	rec := HistoryRecord{
		SaleID:     saleID,
		StaffID:    staffID,
		LineItemID: lineItemID,
		Category:   category,
		Percentage: percentage,
		Amount:     amount,
		CreatedAt:  h.now(),
	}
	stored, _, err := h.store.InsertIfAbsent(ctx, rec)
	if err != nil {
		return HistoryRecord{}, &WriteError{SaleID: saleID, LineItemID: lineItemID, Err: err}
	}
	return stored, nil
}

// RecordSale historicizes every line of a paid sale using the rates in
// effect right now. It must run inside the transaction that marks the sale paid.
func (h *Historian) RecordSale(ctx context.Context, sale Sale, staff StaffMember) ([]HistoryRecord, error) {
	if sale.Status != StatusPaid {
		return nil, fmt.Errorf("%w: sale %s is %s", ErrSaleNotPaid, sale.ID, sale.Status)
	}
	if sale.StaffID != staff.ID {
		return nil, fmt.Errorf("%w: sale %s", ErrStaffMismatch, sale.ID)
	}

	rates, err := h.resolver.Rates(ctx, staff)
	if err != nil {
		return nil, err
	}

	records := make([]HistoryRecord, 0, len(sale.Items))
	for _, line := range sale.Items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pct, _ := rates.Percentage(line.Category, line.ItemID)
		rec, err := h.RecordCommission(ctx, sale.ID, staff.ID, line.ID, line.Category, pct, ComputeLineCommission(line.Subtotal, pct))
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}
