package services

import (
	"context"
	"time"

	"expensetracker/internal/cache"
	"expensetracker/internal/core"
	"expensetracker/internal/storage"
)

// StatsService serves the aggregate endpoints through a per-owner read
// through cache. Writes do not invalidate it; entries age out after the TTL.
type StatsService struct {
	agg        storage.ExpenseAggregator
	monthly    *cache.ReadThrough[[]core.MonthlyTotal]
	categories *cache.ReadThrough[[]core.CategoryTotal]
}

// NewStatsService caches up to size results per kind for ttl. A zero ttl
// disables caching.
func NewStatsService(agg storage.ExpenseAggregator, size int, ttl time.Duration) *StatsService {
	return &StatsService{
		agg:        agg,
		monthly:    cache.NewReadThrough[[]core.MonthlyTotal](size, ttl),
		categories: cache.NewReadThrough[[]core.CategoryTotal](size, ttl),
	}
}

// Monthly returns totals per UTC (year, month), ascending.
func (s *StatsService) Monthly(ctx context.Context, ownerID string) ([]core.MonthlyTotal, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	return s.monthly.Get(ctx, "monthly:"+ownerID, func(ctx context.Context) ([]core.MonthlyTotal, error) {
		out, err := s.agg.MonthlyTotals(ctx, ownerID)
		if err != nil {
			return nil, err
		}
		if out == nil {
			out = []core.MonthlyTotal{}
		}
		return out, nil
	})
}

// Categories returns totals per category, largest first.
func (s *StatsService) Categories(ctx context.Context, ownerID string) ([]core.CategoryTotal, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	return s.categories.Get(ctx, "category:"+ownerID, func(ctx context.Context) ([]core.CategoryTotal, error) {
		out, err := s.agg.CategoryTotals(ctx, ownerID)
		if err != nil {
			return nil, err
		}
		if out == nil {
			out = []core.CategoryTotal{}
		}
		return out, nil
	})
}

// Cleaners exposes the caches for a cache.Manager.
func (s *StatsService) Cleaners() []cache.Cleaner {
	return []cache.Cleaner{s.monthly, s.categories}
}
