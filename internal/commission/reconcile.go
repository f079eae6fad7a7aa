package commission

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultEpsilon is the tolerance between a sale total and its lines.
var DefaultEpsilon = decimal.New(1, -2)

type Reconciliation struct {
	LinesTotal decimal.Decimal `json:"lines_total"`
	Expected   decimal.Decimal `json:"expected"`
	Total      decimal.Decimal `json:"total"`
	Difference decimal.Decimal `json:"difference"`
	Balanced   bool            `json:"balanced"`
}

// ReconcileSale checks that line subtotals, less the venue discount when it
// is not already spread over them, match the sale total within epsilon.
func ReconcileSale(sale Sale, epsilon decimal.Decimal) Reconciliation {
	lines := decimal.Zero
	for _, l := range sale.Items {
		lines = lines.Add(l.Subtotal)
	}
	expected := lines
	if !sale.DiscountInSubtotals {
		expected = expected.Sub(sale.Discount)
	}
	diff := sale.Total.Sub(expected)
	return Reconciliation{
		LinesTotal: lines,
		Expected:   expected,
		Total:      sale.Total,
		Difference: diff,
		Balanced:   diff.Abs().LessThanOrEqual(epsilon),
	}
}

type IssueKind string

const (
	IssueMissingHistory IssueKind = "missing_history"
	IssueOrphanHistory  IssueKind = "orphan_history"
	IssueUnbalanced     IssueKind = "unbalanced_total"
	IssueExcessive      IssueKind = "commission_exceeds_subtotal"
)

type Issue struct {
	SaleID string    `json:"sale_id"`
	Kind   IssueKind `json:"kind"`
	Detail string    `json:"detail"`
}

// Audit lists integrity defects of one sale given its ledger records.
// Only paid sales are expected to carry history.
func Audit(sale Sale, records []HistoryRecord, epsilon decimal.Decimal) []Issue {
	var issues []Issue

	if r := ReconcileSale(sale, epsilon); !r.Balanced {
		issues = append(issues, Issue{
			SaleID: sale.ID,
			Kind:   IssueUnbalanced,
			Detail: fmt.Sprintf("total %s, expected %s", r.Total.StringFixed(2), r.Expected.StringFixed(2)),
		})
	}
	if sale.Status != StatusPaid {
		return issues
	}

	lines := make(map[string]LineItem, len(sale.Items))
	subtotal := decimal.Zero
	for _, l := range sale.Items {
		lines[l.ID] = l
		subtotal = subtotal.Add(l.Subtotal)
	}

	recorded := make(map[string]struct{}, len(records))
	earned := decimal.Zero
	for _, rec := range records {
		if rec.SaleID != sale.ID {
			continue
		}
		recorded[rec.LineItemID] = struct{}{}
		earned = earned.Add(rec.Amount)
		if _, ok := lines[rec.LineItemID]; !ok {
			issues = append(issues, Issue{SaleID: sale.ID, Kind: IssueOrphanHistory, Detail: "line " + rec.LineItemID})
		}
	}

	var missing int
	for _, l := range sale.Items {
		if _, ok := recorded[l.ID]; !ok {
			missing++
		}
	}
	if missing > 0 {
		issues = append(issues, Issue{
			SaleID: sale.ID,
			Kind:   IssueMissingHistory,
			Detail: fmt.Sprintf("%d of %d lines without history", missing, len(sale.Items)),
		})
	}

	if earned.GreaterThan(subtotal) {
		issues = append(issues, Issue{
			SaleID: sale.ID,
			Kind:   IssueExcessive,
			Detail: fmt.Sprintf("commission %s over subtotal %s", earned.StringFixed(2), subtotal.StringFixed(2)),
		})
	}
	return issues
}
