package service

import (
	"context"
	"time"

	"go-pos-checkout/internal/repository"
)

// DailyAggregateUpdater maintains the per-day sales summary.
type DailyAggregateUpdater struct {
	store repository.Store
	now   func() time.Time
}

func NewDailyAggregateUpdater(store repository.Store, clock func() time.Time) *DailyAggregateUpdater {
	if clock == nil {
		clock = time.Now
	}
	return &DailyAggregateUpdater{store: store, now: clock}
}

// Update adds one sale of amount to date.
func (u *DailyAggregateUpdater) Update(ctx context.Context, date string, amount int64) error {
	return u.Apply(ctx, u.store.DailySales(), date, amount)
}

// Apply is Update against repo, so the increment can share a transaction.
func (u *DailyAggregateUpdater) Apply(ctx context.Context, repo repository.DailySalesRepository, date string, amount int64) error {
	if err := repo.Increment(ctx, date, amount, u.now()); err != nil {
		return &AggregateUpdateError{Date: date, Err: err}
	}
	return nil
}
