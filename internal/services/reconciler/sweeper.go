// Package reconciler periodically audits paid sales against their
// commission history and records what does not add up.
package reconciler

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"barbershop-system/config"
	"barbershop-system/internal/commission"
	"barbershop-system/internal/database/models"
	"barbershop-system/internal/services/commissions/repository"
)

const (
	LockKey   = "barbershop:reconciler:lock"
	batchSize = 500
)

type Result struct {
	Skipped  bool
	Sales    int
	Issues   int
	Resolved int64
	Took     time.Duration
}

type Sweeper struct {
	db      *gorm.DB
	locker  *redislock.Client
	logger  *logrus.Logger
	epsilon decimal.Decimal
	window  time.Duration
	lockTTL time.Duration
	now     func() time.Time
}

func NewSweeper(db *gorm.DB, locker *redislock.Client, logger *logrus.Logger, cfg config.WorkerConfig) *Sweeper {
	eps, err := decimal.NewFromString(cfg.Epsilon)
	if err != nil || eps.IsNegative() {
		eps = commission.DefaultEpsilon
	}
	return &Sweeper{
		db:      db,
		locker:  locker,
		logger:  logger,
		epsilon: eps,
		window:  cfg.SweepWindow,
		lockTTL: cfg.LockTTL,
		now:     time.Now,
	}
}

// Run sweeps once. When another instance holds the lock the sweep is
// skipped without error.
func (s *Sweeper) Run(ctx context.Context) (Result, error) {
	start := s.now()
	lock, err := s.locker.Obtain(ctx, LockKey, s.lockTTL, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		s.logger.Info("reconciliation already running elsewhere, skipping")
		return Result{Skipped: true}, nil
	}
	if err != nil {
		return Result{}, err
	}
	defer func() {
		if err := lock.Release(context.Background()); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			config.LogError(s.logger, "reconciler", "Run", "release lock", LockKey, err)
		}
	}()

	var res Result
	from := repository.PaidCursor{PaidAt: start.Add(-s.window)}
	err = eachPaidBatch(ctx, repository.NewSaleRepository(s.db), from, batchSize, func(rows []models.Sale) error {
		issues, resolved, err := s.sweepBatch(ctx, rows)
		if err != nil {
			return err
		}
		res.Sales += len(rows)
		res.Issues += issues
		res.Resolved += resolved
		return nil
	})
	if err != nil {
		return res, err
	}

	res.Took = s.now().Sub(start)
	s.logger.WithFields(logrus.Fields{
		"sales":    res.Sales,
		"issues":   res.Issues,
		"resolved": res.Resolved,
		"took":     res.Took.String(),
	}).Info("reconciliation sweep finished")
	return res, nil
}

type paidSales interface {
	ListPaidAfter(ctx context.Context, cur repository.PaidCursor, limit int) ([]models.Sale, error)
}

// eachPaidBatch pages through paid sales after cur, resuming each page from
// the (paid_at, id) of the last row seen.
func eachPaidBatch(ctx context.Context, src paidSales, cur repository.PaidCursor, limit int, fn func([]models.Sale) error) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		rows, err := src.ListPaidAfter(ctx, cur, limit)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		if err := fn(rows); err != nil {
			return err
		}
		if len(rows) < limit {
			return nil
		}
		last := rows[len(rows)-1]
		cur.ID = last.ID
		if last.PaidAt != nil {
			cur.PaidAt = *last.PaidAt
		}
	}
}

func (s *Sweeper) sweepBatch(ctx context.Context, rows []models.Sale) (int, int64, error) {
	sales := repository.ToCommissionSales(rows)
	ids := make([]string, len(sales))
	for i, sale := range sales {
		ids[i] = sale.ID
	}
	records, err := repository.NewHistoryRepository(s.db, uuid.Nil).FindBySales(ctx, ids)
	if err != nil {
		return 0, 0, err
	}
	found := auditSales(sales, records, s.epsilon)

	companies := make(map[string]uuid.UUID, len(rows))
	for _, r := range rows {
		companies[r.ID.String()] = r.CompanyID
	}

	now := s.now()
	count := 0
	var resolved int64
	for _, sale := range sales {
		issues := found[sale.ID]
		kinds := make([]string, 0, len(issues))
		for _, is := range issues {
			kinds = append(kinds, string(is.Kind))
			row := models.ReconciliationIssue{
				CompanyID:   companies[sale.ID],
				SaleID:      uuid.MustParse(sale.ID),
				Kind:        string(is.Kind),
				Detail:      is.Detail,
				FirstSeenAt: now,
				LastSeenAt:  now,
			}
			err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "sale_id"}, {Name: "kind"}},
				DoUpdates: clause.Assignments(map[string]interface{}{
					"detail":       is.Detail,
					"last_seen_at": now,
					"resolved_at":  nil,
				}),
			}).Create(&row).Error
			if err != nil {
				return count, resolved, err
			}
			count++
		}

		q := s.db.WithContext(ctx).Model(&models.ReconciliationIssue{}).
			Where("sale_id = ? AND resolved_at IS NULL", sale.ID)
		if len(kinds) > 0 {
			q = q.Where("kind NOT IN ?", kinds)
		}
		res := q.Update("resolved_at", now)
		if res.Error != nil {
			return count, resolved, res.Error
		}
		resolved += res.RowsAffected
	}
	return count, resolved, nil
}

// auditSales groups history by sale and audits each sale in isolation.
func auditSales(sales []commission.Sale, records []commission.HistoryRecord, eps decimal.Decimal) map[string][]commission.Issue {
	bySale := make(map[string][]commission.HistoryRecord, len(sales))
	for _, r := range records {
		bySale[r.SaleID] = append(bySale[r.SaleID], r)
	}
	out := make(map[string][]commission.Issue)
	for _, sale := range sales {
		if issues := commission.Audit(sale, bySale[sale.ID], eps); len(issues) > 0 {
			out[sale.ID] = issues
		}
	}
	return out
}
