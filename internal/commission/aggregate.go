package commission

import (
	"context"

	"github.com/shopspring/decimal"
)

// Source tells where a line's commission came from.
type Source string

const (
	SourceHistory Source = "history"
	SourceLive    Source = "live"
)

type ItemBreakdown struct {
	ItemID     string          `json:"item_id"`
	Category   Category        `json:"category"`
	Name       string          `json:"name"`
	Quantity   int64           `json:"quantity"`
	SalesBase  decimal.Decimal `json:"sales_base"`
	Commission decimal.Decimal `json:"commission"`
	// Variance is stored minus live-recomputed commission over the
	// historical lines of this item. Zero when rates never changed.
	Variance        decimal.Decimal `json:"variance"`
	HistoricalLines int             `json:"historical_lines"`
	LiveLines       int             `json:"live_lines"`
}

type Aggregate struct {
	StaffID       string          `json:"staff_id"`
	TotalServices decimal.Decimal `json:"total_services"`
	TotalProducts decimal.Decimal `json:"total_products"`
	TotalOverall  decimal.Decimal `json:"total_overall"`
	TotalVariance decimal.Decimal `json:"total_variance"`
	SalesCounted  int             `json:"sales_counted"`
	Items         []ItemBreakdown `json:"items"`
}

// LineCommission is the per-line result, used by per-sale breakdowns.
type LineCommission struct {
	SaleID     string          `json:"sale_id"`
	LineItemID string          `json:"line_item_id"`
	ItemID     string          `json:"item_id"`
	Category   Category        `json:"category"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	Percentage decimal.Decimal `json:"percentage"`
	Amount     decimal.Decimal `json:"amount"`
	Source     Source          `json:"source"`
}

type Engine struct {
	history  HistoryStore
	resolver *Resolver
}

func NewEngine(history HistoryStore, resolver *Resolver) *Engine {
	return &Engine{history: history, resolver: resolver}
}

// AggregateCommissions totals what staff earned over sales. Only paid sales
// sold by staff contribute. Historical records are used verbatim; lines
// without one are computed from the current rates. Any store failure fails
// the whole call.
func (e *Engine) AggregateCommissions(ctx context.Context, staff StaffMember, sales []Sale) (Aggregate, error) {
	lines, err := e.resolveLines(ctx, staff, sales)
	if err != nil {
		return Aggregate{}, err
	}

	agg := Aggregate{StaffID: staff.ID}
	index := make(map[overrideKey]int)
	counted := make(map[string]struct{})

	for _, l := range lines {
		counted[l.lc.SaleID] = struct{}{}
		switch l.lc.Category {
		case CategoryService:
			agg.TotalServices = agg.TotalServices.Add(l.lc.Amount)
		case CategoryProduct:
			agg.TotalProducts = agg.TotalProducts.Add(l.lc.Amount)
		}

		k := overrideKey{category: l.lc.Category, itemID: l.lc.ItemID}
		i, ok := index[k]
		if !ok {
			i = len(agg.Items)
			index[k] = i
			agg.Items = append(agg.Items, ItemBreakdown{ItemID: l.lc.ItemID, Category: l.lc.Category, Name: l.name})
		}
		item := &agg.Items[i]
		item.Quantity += l.quantity
		item.SalesBase = item.SalesBase.Add(l.lc.Subtotal)
		item.Commission = item.Commission.Add(l.lc.Amount)
		if l.lc.Source == SourceHistory {
			item.HistoricalLines++
			item.Variance = item.Variance.Add(l.variance)
			agg.TotalVariance = agg.TotalVariance.Add(l.variance)
		} else {
			item.LiveLines++
		}
	}

	agg.TotalOverall = agg.TotalServices.Add(agg.TotalProducts)
	agg.SalesCounted = len(counted)
	return agg, nil
}

type resolvedLine struct {
	lc       LineCommission
	name     string
	quantity int64
	variance decimal.Decimal
}

// SaleLines returns the per-line commissions of the paid sales in sales.
func (e *Engine) SaleLines(ctx context.Context, staff StaffMember, sales []Sale) ([]LineCommission, error) {
	lines, err := e.resolveLines(ctx, staff, sales)
	if err != nil {
		return nil, err
	}
	out := make([]LineCommission, len(lines))
	for i, l := range lines {
		out[i] = l.lc
	}
	return out, nil
}

// resolveLines resolves every contributing line. History is fetched in one query
// for all eligible sales and overrides in one query for the staff member.
func (e *Engine) resolveLines(ctx context.Context, staff StaffMember, sales []Sale) ([]resolvedLine, error) {
	eligible := eligibleSales(staff, sales)
	if len(eligible) == 0 {
		return nil, nil
	}

	ids := make([]string, len(eligible))
	for i, s := range eligible {
		ids[i] = s.ID
	}
	records, err := e.history.FindBySales(ctx, ids)
	if err != nil {
		return nil, &LookupError{Op: "history", Err: err}
	}
	byLine := make(map[lineKey]HistoryRecord, len(records))
	for _, r := range records {
		byLine[lineKey{saleID: r.SaleID, lineItemID: r.LineItemID}] = r
	}

	rates, err := e.resolver.Rates(ctx, staff)
	if err != nil {
		return nil, err
	}

	var out []resolvedLine
	for _, sale := range eligible {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, line := range sale.Items {
			livePct, _ := rates.Percentage(line.Category, line.ItemID)
			live := ComputeLineCommission(line.Subtotal, livePct)

			rl := resolvedLine{
				name:     line.Name,
				quantity: line.Quantity,
				lc: LineCommission{
					SaleID:     sale.ID,
					LineItemID: line.ID,
					ItemID:     line.ItemID,
					Category:   line.Category,
					Subtotal:   line.Subtotal,
				},
			}
			if rec, ok := byLine[lineKey{saleID: sale.ID, lineItemID: line.ID}]; ok {
				rl.lc.Percentage = rec.Percentage
				rl.lc.Amount = rec.Amount
				rl.lc.Source = SourceHistory
				if rec.Category.Valid() {
					rl.lc.Category = rec.Category
				}
				rl.variance = rec.Amount.Sub(live)
			} else {
				rl.lc.Percentage = livePct
				rl.lc.Amount = live
				rl.lc.Source = SourceLive
			}
			out = append(out, rl)
		}
	}
	return out, nil
}

func eligibleSales(staff StaffMember, sales []Sale) []Sale {
	out := make([]Sale, 0, len(sales))
	seen := make(map[string]struct{}, len(sales))
	for _, s := range sales {
		if s.Status != StatusPaid || s.StaffID != staff.ID {
			continue
		}
		if _, dup := seen[s.ID]; dup {
			continue
		}
		seen[s.ID] = struct{}{}
		out = append(out, s)
	}
	return out
}
