package commission

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type memOverrides struct {
	rows      []Override
	err       error
	findCalls int
	listCalls int
}

func (m *memOverrides) FindOverride(_ context.Context, staffID string, category Category, itemID string) (Override, error) {
	m.findCalls++
	if m.err != nil {
		return Override{}, m.err
	}
	for _, o := range m.rows {
		if o.StaffID == staffID && o.Category == category && o.ItemID == itemID {
			return o, nil
		}
	}
	return Override{}, ErrNotFound
}

func (m *memOverrides) ListOverrides(_ context.Context, staffID string) ([]Override, error) {
	m.listCalls++
	if m.err != nil {
		return nil, m.err
	}
	var out []Override
	for _, o := range m.rows {
		if o.StaffID == staffID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memOverrides) set(o Override) {
	for i, existing := range m.rows {
		if existing.StaffID == o.StaffID && existing.Category == o.Category && existing.ItemID == o.ItemID {
			m.rows[i] = o
			return
		}
	}
	m.rows = append(m.rows, o)
}

type memHistory struct {
	mu        sync.Mutex
	rows      map[lineKey]HistoryRecord
	seq       int
	insertErr error
	findErr   error
	findCalls int
}

func newMemHistory() *memHistory {
	return &memHistory{rows: make(map[lineKey]HistoryRecord)}
}

func (m *memHistory) InsertIfAbsent(_ context.Context, rec HistoryRecord) (HistoryRecord, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return HistoryRecord{}, false, m.insertErr
	}
	k := lineKey{saleID: rec.SaleID, lineItemID: rec.LineItemID}
	if existing, ok := m.rows[k]; ok {
		return existing, false, nil
	}
	m.seq++
	rec.ID = fmt.Sprintf("h-%d", m.seq)
	m.rows[k] = rec
	return rec, true, nil
}

func (m *memHistory) FindBySales(_ context.Context, saleIDs []string) ([]HistoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.findCalls++
	if m.findErr != nil {
		return nil, m.findErr
	}
	want := make(map[string]bool, len(saleIDs))
	for _, id := range saleIDs {
		want[id] = true
	}
	var out []HistoryRecord
	for _, r := range m.rows {
		if want[r.SaleID] {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memHistory) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}
