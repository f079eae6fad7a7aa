package commission

import (
	"context"
	"errors"
	"testing"
)

func findItem(t *testing.T, agg Aggregate, itemID string) ItemBreakdown {
	t.Helper()
	for _, it := range agg.Items {
		if it.ItemID == itemID {
			return it
		}
	}
	t.Fatalf("item %s missing from breakdown %+v", itemID, agg.Items)
	return ItemBreakdown{}
}

func TestAggregateCommissions_EndToEnd(t *testing.T) {
	overrides := &memOverrides{rows: []Override{
		{StaffID: "barber-1", Category: CategoryService, ItemID: "item-x", Percentage: dec("50")},
	}}
	history := newMemHistory()
	resolver := NewResolver(overrides)
	staff := StaffMember{ID: "barber-1", ServicePercentage: dec("40"), ProductPercentage: dec("10")}

	sale := paidSale("sale-1", "barber-1",
		line("l1", "item-x", CategoryService, 1, "100"),
		line("l2", "item-y", CategoryService, 1, "50"),
	)
	if _, err := NewHistorian(history, resolver).RecordSale(context.Background(), sale, staff); err != nil {
		t.Fatalf("RecordSale: %v", err)
	}

	agg, err := NewEngine(history, resolver).AggregateCommissions(context.Background(), staff, []Sale{sale})
	if err != nil {
		t.Fatalf("AggregateCommissions: %v", err)
	}
	if !agg.TotalServices.Equal(dec("70")) {
		t.Fatalf("expected services total 70, got %s", agg.TotalServices)
	}
	if !agg.TotalProducts.IsZero() || !agg.TotalOverall.Equal(dec("70")) {
		t.Fatalf("expected products 0 and overall 70, got %s / %s", agg.TotalProducts, agg.TotalOverall)
	}
	if x := findItem(t, agg, "item-x"); !x.Commission.Equal(dec("50")) {
		t.Fatalf("item-x: expected 50, got %s", x.Commission)
	}
	if y := findItem(t, agg, "item-y"); !y.Commission.Equal(dec("20")) {
		t.Fatalf("item-y: expected 20, got %s", y.Commission)
	}
	if agg.SalesCounted != 1 {
		t.Fatalf("expected 1 sale counted, got %d", agg.SalesCounted)
	}
}

func TestAggregateCommissions_HistoryIsImmutable(t *testing.T) {
	overrides := &memOverrides{rows: []Override{
		{StaffID: "barber-1", Category: CategoryService, ItemID: "haircut", Percentage: dec("20")},
	}}
	history := newMemHistory()
	resolver := NewResolver(overrides)
	staff := StaffMember{ID: "barber-1", ServicePercentage: dec("40")}
	sale := paidSale("sale-1", "barber-1", line("l1", "haircut", CategoryService, 1, "100"))

	if _, err := NewHistorian(history, resolver).RecordSale(context.Background(), sale, staff); err != nil {
		t.Fatalf("RecordSale: %v", err)
	}
	overrides.set(Override{StaffID: "barber-1", Category: CategoryService, ItemID: "haircut", Percentage: dec("30")})

	agg, err := NewEngine(history, resolver).AggregateCommissions(context.Background(), staff, []Sale{sale})
	if err != nil {
		t.Fatalf("AggregateCommissions: %v", err)
	}
	if !agg.TotalOverall.Equal(dec("20")) {
		t.Fatalf("expected the 20%% amount to survive the rate change, got %s", agg.TotalOverall)
	}
	item := findItem(t, agg, "haircut")
	if item.HistoricalLines != 1 || item.LiveLines != 0 {
		t.Fatalf("expected one historical line, got %+v", item)
	}
	if !item.Variance.Equal(dec("-10")) || !agg.TotalVariance.Equal(dec("-10")) {
		t.Fatalf("expected variance -10 against the live 30%% rate, got %s / %s", item.Variance, agg.TotalVariance)
	}
}

func TestAggregateCommissions_MixedSources(t *testing.T) {
	history := newMemHistory()
	overrides := &memOverrides{}
	resolver := NewResolver(overrides)
	staff := StaffMember{ID: "barber-1", ServicePercentage: dec("40"), ProductPercentage: dec("10")}

	sale := paidSale("sale-1", "barber-1",
		line("l1", "haircut", CategoryService, 1, "100"),
		line("l2", "pomade", CategoryProduct, 3, "90"),
	)
	// only the first line was historicized, at a rate that differs from today's
	if _, err := NewHistorian(history, resolver).RecordCommission(context.Background(), "sale-1", "barber-1", "l1", CategoryService, dec("25"), dec("25")); err != nil {
		t.Fatalf("RecordCommission: %v", err)
	}

	lines, err := NewEngine(history, resolver).SaleLines(context.Background(), staff, []Sale{sale})
	if err != nil {
		t.Fatalf("SaleLines: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	for _, l := range lines {
		switch l.LineItemID {
		case "l1":
			if l.Source != SourceHistory || !l.Amount.Equal(dec("25")) || !l.Percentage.Equal(dec("25")) {
				t.Fatalf("l1: expected stored 25, got %+v", l)
			}
		case "l2":
			if l.Source != SourceLive || !l.Amount.Equal(dec("9")) || !l.Percentage.Equal(dec("10")) {
				t.Fatalf("l2: expected live 9 at 10%%, got %+v", l)
			}
		}
	}

	agg, err := NewEngine(history, resolver).AggregateCommissions(context.Background(), staff, []Sale{sale})
	if err != nil {
		t.Fatalf("AggregateCommissions: %v", err)
	}
	if !agg.TotalServices.Equal(dec("25")) || !agg.TotalProducts.Equal(dec("9")) || !agg.TotalOverall.Equal(dec("34")) {
		t.Fatalf("unexpected totals %s / %s / %s", agg.TotalServices, agg.TotalProducts, agg.TotalOverall)
	}
	if p := findItem(t, agg, "pomade"); p.Quantity != 3 || !p.SalesBase.Equal(dec("90")) {
		t.Fatalf("pomade: expected quantity 3 and base 90, got %+v", p)
	}
}

func TestAggregateCommissions_IgnoresUnpaidAndForeignSales(t *testing.T) {
	history := newMemHistory()
	resolver := NewResolver(&memOverrides{})
	staff := StaffMember{ID: "barber-1", ServicePercentage: dec("50")}

	paid := paidSale("paid", "barber-1", line("l1", "haircut", CategoryService, 1, "10"))
	awaiting := paidSale("awaiting", "barber-1", line("l1", "haircut", CategoryService, 1, "1000"))
	awaiting.Status = StatusAwaiting
	cancelled := paidSale("cancelled", "barber-1", line("l1", "haircut", CategoryService, 1, "1000"))
	cancelled.Status = StatusCancelled
	foreign := paidSale("foreign", "barber-2", line("l1", "haircut", CategoryService, 1, "1000"))

	agg, err := NewEngine(history, resolver).AggregateCommissions(context.Background(), staff, []Sale{paid, awaiting, cancelled, foreign, paid})
	if err != nil {
		t.Fatalf("AggregateCommissions: %v", err)
	}
	if !agg.TotalOverall.Equal(dec("5")) {
		t.Fatalf("expected only the paid sale to count once (5), got %s", agg.TotalOverall)
	}
	if agg.SalesCounted != 1 {
		t.Fatalf("expected 1 sale counted, got %d", agg.SalesCounted)
	}
}

func TestAggregateCommissions_NoEligibleSalesSkipsStore(t *testing.T) {
	history := newMemHistory()
	overrides := &memOverrides{}
	staff := StaffMember{ID: "barber-1"}
	awaiting := paidSale("s", "barber-1", line("l1", "haircut", CategoryService, 1, "10"))
	awaiting.Status = StatusAwaiting

	agg, err := NewEngine(history, NewResolver(overrides)).AggregateCommissions(context.Background(), staff, []Sale{awaiting})
	if err != nil {
		t.Fatalf("AggregateCommissions: %v", err)
	}
	if !agg.TotalOverall.IsZero() || len(agg.Items) != 0 {
		t.Fatalf("expected an empty aggregate, got %+v", agg)
	}
	if history.findCalls != 0 || overrides.listCalls != 0 {
		t.Fatalf("expected no store round trips, got history=%d overrides=%d", history.findCalls, overrides.listCalls)
	}
}

func TestAggregateCommissions_BatchesHistoryLookup(t *testing.T) {
	history := newMemHistory()
	overrides := &memOverrides{}
	staff := StaffMember{ID: "barber-1", ServicePercentage: dec("10")}

	var sales []Sale
	for _, id := range []string{"a", "b", "c", "d"} {
		sales = append(sales, paidSale(id, "barber-1",
			line(id+"-1", "haircut", CategoryService, 1, "10"),
			line(id+"-2", "beard", CategoryService, 1, "10"),
		))
	}
	if _, err := NewEngine(history, NewResolver(overrides)).AggregateCommissions(context.Background(), staff, sales); err != nil {
		t.Fatalf("AggregateCommissions: %v", err)
	}
	if history.findCalls != 1 || overrides.listCalls != 1 || overrides.findCalls != 0 {
		t.Fatalf("expected one history and one override query, got history=%d list=%d find=%d",
			history.findCalls, overrides.listCalls, overrides.findCalls)
	}
}

func TestAggregateCommissions_FailsWholeOnLookupError(t *testing.T) {
	staff := StaffMember{ID: "barber-1"}
	sale := paidSale("s", "barber-1", line("l1", "haircut", CategoryService, 1, "10"))

	history := newMemHistory()
	history.findErr = errors.New("timeout")
	if _, err := NewEngine(history, NewResolver(&memOverrides{})).AggregateCommissions(context.Background(), staff, []Sale{sale}); !IsLookupError(err) {
		t.Fatalf("history failure: expected LookupError, got %v", err)
	}

	overrides := &memOverrides{err: errors.New("permission denied")}
	if _, err := NewEngine(newMemHistory(), NewResolver(overrides)).AggregateCommissions(context.Background(), staff, []Sale{sale}); !IsLookupError(err) {
		t.Fatalf("override failure: expected LookupError, got %v", err)
	}
}

func TestAggregateCommissions_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	staff := StaffMember{ID: "barber-1"}
	sale := paidSale("s", "barber-1", line("l1", "haircut", CategoryService, 1, "10"))
	agg, err := NewEngine(newMemHistory(), NewResolver(&memOverrides{})).AggregateCommissions(ctx, staff, []Sale{sale})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(agg.Items) != 0 || !agg.TotalOverall.IsZero() {
		t.Fatalf("partial results must not be returned, got %+v", agg)
	}
}

func TestAggregateCommissions_CategoryTotalsSumToOverall(t *testing.T) {
	history := newMemHistory()
	overrides := &memOverrides{rows: []Override{
		{StaffID: "barber-1", Category: CategoryProduct, ItemID: "oil", Percentage: dec("12.5")},
	}}
	resolver := NewResolver(overrides)
	staff := StaffMember{ID: "barber-1", ServicePercentage: dec("33.3"), ProductPercentage: dec("7.77")}

	var sales []Sale
	for i, sub := range []string{"0.01", "9.99", "13.37", "250", "0", "71.05"} {
		id := string(rune('a' + i))
		sales = append(sales, paidSale(id, "barber-1",
			line(id+"s", "cut", CategoryService, 1, sub),
			line(id+"p", "oil", CategoryProduct, 2, sub),
			line(id+"q", "gel", CategoryProduct, 1, sub),
		))
	}
	if _, err := NewHistorian(history, resolver).RecordSale(context.Background(), sales[0], staff); err != nil {
		t.Fatalf("RecordSale: %v", err)
	}

	agg, err := NewEngine(history, resolver).AggregateCommissions(context.Background(), staff, sales)
	if err != nil {
		t.Fatalf("AggregateCommissions: %v", err)
	}
	if !agg.TotalServices.Add(agg.TotalProducts).Equal(agg.TotalOverall) {
		t.Fatalf("services %s + products %s != overall %s", agg.TotalServices, agg.TotalProducts, agg.TotalOverall)
	}
	sum := dec("0")
	for _, it := range agg.Items {
		sum = sum.Add(it.Commission)
	}
	if !sum.Equal(agg.TotalOverall) {
		t.Fatalf("breakdown sum %s != overall %s", sum, agg.TotalOverall)
	}
}
