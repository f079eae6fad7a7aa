// Package report builds period dashboards and spreadsheet exports from
// commission aggregates.
package report

import (
	"time"

	"github.com/shopspring/decimal"

	"barbershop-system/internal/commission"
)

type PeriodSummary struct {
	From          time.Time                  `json:"from"`
	To            time.Time                  `json:"to"`
	PaidSales     int                        `json:"paid_sales"`
	Revenue       decimal.Decimal            `json:"revenue"`
	Commissions   decimal.Decimal            `json:"commissions"`
	Expenses      decimal.Decimal            `json:"expenses"`
	Net           decimal.Decimal            `json:"net"`
	ByStaff       []StaffTotal               `json:"by_staff"`
	ExpenseByKind map[string]decimal.Decimal `json:"expense_by_kind"`
}

type StaffTotal struct {
	StaffID    string          `json:"staff_id"`
	Name       string          `json:"name"`
	Commission decimal.Decimal `json:"commission"`
}

type ExpenseLine struct {
	Category string
	Amount   decimal.Decimal
}

type StaffAggregate struct {
	Name      string
	Aggregate commission.Aggregate
}

// Summarize computes revenue over paid sales, commission owed per staff
// member, expenses and the resulting net for [from, to).
func Summarize(from, to time.Time, sales []commission.Sale, staff []StaffAggregate, expenses []ExpenseLine) PeriodSummary {
	s := PeriodSummary{
		From:          from,
		To:            to,
		ExpenseByKind: make(map[string]decimal.Decimal),
	}
	for _, sale := range sales {
		if sale.Status != commission.StatusPaid {
			continue
		}
		s.PaidSales++
		s.Revenue = s.Revenue.Add(sale.Total)
	}
	for _, st := range staff {
		s.Commissions = s.Commissions.Add(st.Aggregate.TotalOverall)
		s.ByStaff = append(s.ByStaff, StaffTotal{
			StaffID:    st.Aggregate.StaffID,
			Name:       st.Name,
			Commission: st.Aggregate.TotalOverall,
		})
	}
	for _, e := range expenses {
		s.Expenses = s.Expenses.Add(e.Amount)
		s.ExpenseByKind[e.Category] = s.ExpenseByKind[e.Category].Add(e.Amount)
	}
	s.Net = s.Revenue.Sub(s.Commissions).Sub(s.Expenses)
	return s
}
