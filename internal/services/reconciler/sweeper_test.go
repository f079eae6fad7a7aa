package reconciler

import (
	"testing"

	"github.com/shopspring/decimal"

	"barbershop-system/internal/commission"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func paid(id string, total string, lines ...commission.LineItem) commission.Sale {
	return commission.Sale{ID: id, StaffID: "staff", Status: commission.StatusPaid, Total: d(total), Items: lines}
}

func TestAuditSales(t *testing.T) {
	healthy := paid("healthy", "100", commission.LineItem{ID: "h1", Category: commission.CategoryService, Subtotal: d("100")})
	missing := paid("missing", "50", commission.LineItem{ID: "m1", Category: commission.CategoryService, Subtotal: d("50")})
	unbalanced := paid("unbalanced", "80", commission.LineItem{ID: "u1", Category: commission.CategoryProduct, Subtotal: d("100")})

	records := []commission.HistoryRecord{
		{SaleID: "healthy", LineItemID: "h1", Percentage: d("50"), Amount: d("50")},
		{SaleID: "unbalanced", LineItemID: "u1", Percentage: d("20"), Amount: d("20")},
	}

	found := auditSales([]commission.Sale{healthy, missing, unbalanced}, records, commission.DefaultEpsilon)

	if _, ok := found["healthy"]; ok {
		t.Fatalf("healthy sale reported: %+v", found["healthy"])
	}
	if got := found["missing"]; len(got) != 1 || got[0].Kind != commission.IssueMissingHistory {
		t.Fatalf("missing history not reported: %+v", got)
	}
	if got := found["unbalanced"]; len(got) != 1 || got[0].Kind != commission.IssueUnbalanced {
		t.Fatalf("unbalanced total not reported: %+v", got)
	}
}

func TestAuditSales_RecordsOfOtherSalesIgnored(t *testing.T) {
	sale := paid("a", "10", commission.LineItem{ID: "a1", Category: commission.CategoryService, Subtotal: d("10")})
	records := []commission.HistoryRecord{
		{SaleID: "a", LineItemID: "a1", Amount: d("1")},
		{SaleID: "b", LineItemID: "b1", Amount: d("999")},
	}
	if found := auditSales([]commission.Sale{sale}, records, commission.DefaultEpsilon); len(found) != 0 {
		t.Fatalf("unexpected issues %+v", found)
	}
}
