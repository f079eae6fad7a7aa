package commission

import "testing"

func TestReconcileSale(t *testing.T) {
	items := []LineItem{
		line("l1", "haircut", CategoryService, 1, "60"),
		line("l2", "pomade", CategoryProduct, 1, "40"),
	}
	cases := []struct {
		name         string
		total        string
		discount     string
		inSubtotals  bool
		wantBalanced bool
		wantExpected string
	}{
		{"no discount", "100", "0", false, true, "100"},
		{"venue discount subtracted", "90", "10", false, true, "90"},
		{"discount already in subtotals", "100", "10", true, true, "100"},
		{"within epsilon", "89.995", "10", false, true, "90"},
		{"off by more than epsilon", "89.98", "10", false, false, "90"},
		{"discount counted twice", "80", "10", false, false, "90"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sale := Sale{ID: "s", Items: items, Total: dec(tc.total), Discount: dec(tc.discount), DiscountInSubtotals: tc.inSubtotals}
			r := ReconcileSale(sale, DefaultEpsilon)
			if r.Balanced != tc.wantBalanced {
				t.Fatalf("expected balanced=%v, got %+v", tc.wantBalanced, r)
			}
			if !r.Expected.Equal(dec(tc.wantExpected)) {
				t.Fatalf("expected %s, got %s", tc.wantExpected, r.Expected)
			}
		})
	}
}

func TestAudit(t *testing.T) {
	sale := paidSale("s1", "barber-1",
		line("l1", "haircut", CategoryService, 1, "60"),
		line("l2", "pomade", CategoryProduct, 1, "40"),
	)

	if issues := Audit(sale, []HistoryRecord{
		{SaleID: "s1", LineItemID: "l1", Amount: dec("30")},
		{SaleID: "s1", LineItemID: "l2", Amount: dec("4")},
	}, DefaultEpsilon); len(issues) != 0 {
		t.Fatalf("expected a clean sale, got %+v", issues)
	}

	issues := Audit(sale, []HistoryRecord{
		{SaleID: "s1", LineItemID: "l1", Amount: dec("90")},
		{SaleID: "s1", LineItemID: "gone", Amount: dec("20")},
	}, DefaultEpsilon)
	kinds := map[IssueKind]bool{}
	for _, is := range issues {
		kinds[is.Kind] = true
	}
	for _, k := range []IssueKind{IssueMissingHistory, IssueOrphanHistory, IssueExcessive} {
		if !kinds[k] {
			t.Fatalf("expected issue %s in %+v", k, issues)
		}
	}
	if kinds[IssueUnbalanced] {
		t.Fatalf("totals balance, got %+v", issues)
	}

	awaiting := sale
	awaiting.Status = StatusAwaiting
	awaiting.Total = dec("1")
	issues = Audit(awaiting, nil, DefaultEpsilon)
	if len(issues) != 1 || issues[0].Kind != IssueUnbalanced {
		t.Fatalf("unpaid sale: expected only the unbalanced issue, got %+v", issues)
	}
}
