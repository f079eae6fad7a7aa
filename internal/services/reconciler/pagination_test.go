package reconciler

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"

	"barbershop-system/internal/database/models"
	"barbershop-system/internal/services/commissions/repository"
)

// keysetSales answers ListPaidAfter over an in-memory table the way the
// (paid_at, id) query does.
type keysetSales struct {
	rows  []models.Sale
	pages int
	err   error
}

func (k *keysetSales) ListPaidAfter(ctx context.Context, cur repository.PaidCursor, limit int) ([]models.Sale, error) {
	if k.err != nil {
		return nil, k.err
	}
	k.pages++
	sorted := append([]models.Sale(nil), k.rows...)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := *sorted[i].PaidAt, *sorted[j].PaidAt
		if !a.Equal(b) {
			return a.Before(b)
		}
		return sorted[i].ID.String() < sorted[j].ID.String()
	})
	var out []models.Sale
	for _, s := range sorted {
		at := *s.PaidAt
		if at.After(cur.PaidAt) || (at.Equal(cur.PaidAt) && s.ID.String() > cur.ID.String()) {
			out = append(out, s)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func paidAt(t time.Time) models.Sale {
	return models.Sale{ID: uuid.New(), Status: "paid", PaidAt: &t}
}

func TestEachPaidBatch_TiesOnPaidAtAreNotSkipped(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	src := &keysetSales{rows: []models.Sale{
		paidAt(base),
		paidAt(base.Add(time.Minute)),
		paidAt(base.Add(time.Minute)),
		paidAt(base.Add(time.Minute)),
		paidAt(base.Add(2 * time.Minute)),
	}}

	seen := map[uuid.UUID]int{}
	err := eachPaidBatch(context.Background(), src, repository.PaidCursor{PaidAt: base.Add(-time.Hour)}, 2, func(rows []models.Sale) error {
		for _, r := range rows {
			seen[r.ID]++
		}
		return nil
	})
	if err != nil {
		t.Fatalf("eachPaidBatch: %v", err)
	}
	if len(seen) != len(src.rows) {
		t.Fatalf("visited %d sales, want %d", len(seen), len(src.rows))
	}
	for id, n := range seen {
		if n != 1 {
			t.Errorf("sale %s visited %d times", id, n)
		}
	}
	if src.pages != 3 {
		t.Errorf("pages = %d, want 3", src.pages)
	}
}

func TestEachPaidBatch_StopsOnError(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	src := &keysetSales{rows: []models.Sale{paidAt(base), paidAt(base)}}
	boom := errors.New("write failed")

	calls := 0
	err := eachPaidBatch(context.Background(), src, repository.PaidCursor{}, 1, func(rows []models.Sale) error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) || calls != 1 {
		t.Fatalf("err = %v after %d calls", err, calls)
	}

	src.err = errors.New("db down")
	if err := eachPaidBatch(context.Background(), src, repository.PaidCursor{}, 1, func([]models.Sale) error { return nil }); err == nil {
		t.Fatal("expected list error")
	}
}

func TestEachPaidBatch_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src := &keysetSales{rows: []models.Sale{paidAt(time.Now())}}
	if err := eachPaidBatch(ctx, src, repository.PaidCursor{}, 10, func([]models.Sale) error { return nil }); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
