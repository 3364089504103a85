package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go-pos-checkout/internal/model"
	"go-pos-checkout/internal/repository"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

type OutboxOptions struct {
	PollInterval time.Duration
	BatchSize    int
	// MaxDeliveries is how many rounds an event gets before it is
	// marked dead.
	MaxDeliveries int
	// StepAttempts bounds the in-round retry of each step.
	StepAttempts uint
	StepDelay    time.Duration
	Clock        func() time.Time
	Logger       *zap.Logger
}

// OutboxProcessor derives the ledger entry and daily aggregate of every
// recorded sale. The ledger step is idempotent on the transaction id and is
// skipped once done, so an event can be redelivered safely.
type OutboxProcessor struct {
	store     repository.Store
	aggregate *DailyAggregateUpdater
	opts      OutboxOptions
	log       *zap.Logger
}

func NewOutboxProcessor(store repository.Store, aggregate *DailyAggregateUpdater, opts OutboxOptions) *OutboxProcessor {
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 50
	}
	if opts.MaxDeliveries <= 0 {
		opts.MaxDeliveries = 10
	}
	if opts.StepAttempts == 0 {
		opts.StepAttempts = 1
	}
	if opts.StepDelay <= 0 {
		opts.StepDelay = 50 * time.Millisecond
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &OutboxProcessor{
		store:     store,
		aggregate: aggregate,
		opts:      opts,
		log:       opts.Logger.Named("outbox"),
	}
}

// Run polls until ctx is done.
func (p *OutboxProcessor) Run(ctx context.Context) {
	ticker := time.NewTicker(p.opts.PollInterval)
	defer ticker.Stop()

	p.log.Info("outbox processor started", zap.Duration("poll_interval", p.opts.PollInterval))
	for {
		if _, err := p.ProcessPending(ctx); err != nil && ctx.Err() == nil {
			p.log.Error("outbox poll failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			p.log.Info("outbox processor stopped")
			return
		case <-ticker.C:
		}
	}
}

// ProcessPending handles one batch of due events and reports how many
// completed.
func (p *OutboxProcessor) ProcessPending(ctx context.Context) (int, error) {
	events, err := p.store.Outbox().FindDue(ctx, p.opts.Clock(), p.opts.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("find due outbox events: %w", err)
	}

	done := 0
	for i := range events {
		if ctx.Err() != nil {
			return done, ctx.Err()
		}
		err := p.handle(ctx, &events[i])
		switch {
		case err == nil:
			done++
		case errors.Is(err, repository.ErrConflict):
			p.log.Debug("outbox event delivered elsewhere", zap.String("event_id", events[i].ID.String()))
		default:
			p.fail(ctx, &events[i], err)
		}
	}
	return done, nil
}

func (p *OutboxProcessor) handle(ctx context.Context, ev *model.OutboxEvent) error {
	if ev.Kind != model.EventSaleRecorded {
		return backoff.Permanent(fmt.Errorf("unknown outbox event kind %q", ev.Kind))
	}
	var sale model.SaleRecorded
	if err := json.Unmarshal([]byte(ev.Payload), &sale); err != nil {
		return backoff.Permanent(fmt.Errorf("decode payload: %w", err))
	}

	if !ev.LedgerRecorded {
		err := p.step(ctx, func() error {
			return p.store.Transaction(ctx, func(tx repository.Repositories) error {
				entry := model.NewSalesIncome(sale)
				if _, err := tx.Financials().CreateIfAbsent(ctx, &entry); err != nil {
					return fmt.Errorf("ledger entry: %w", err)
				}
				return tx.Outbox().MarkLedgerRecorded(ctx, ev.ID)
			})
		})
		if err != nil {
			return err
		}
		ev.LedgerRecorded = true
	}

	return p.step(ctx, func() error {
		return p.store.Transaction(ctx, func(tx repository.Repositories) error {
			// Claim first: a second processor holding the same event stops
			// here and its increment never happens.
			if err := tx.Outbox().MarkProcessed(ctx, ev.ID, p.opts.Clock()); err != nil {
				return err
			}
			return p.aggregate.Apply(ctx, tx.DailySales(), sale.DateString, sale.TotalAmount)
		})
	})
}

func (p *OutboxProcessor) step(ctx context.Context, fn func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.opts.StepDelay
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := fn()
		if errors.Is(err, repository.ErrConflict) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(p.opts.StepAttempts))
	return err
}

// fail records a failed delivery. The sale itself is unaffected.
func (p *OutboxProcessor) fail(ctx context.Context, ev *model.OutboxEvent, err error) {
	attempts := ev.Attempts + 1
	var perm *backoff.PermanentError
	dead := attempts >= p.opts.MaxDeliveries || errors.As(err, &perm)
	next := p.opts.Clock().Add(p.redeliveryDelay(attempts))

	fields := []zap.Field{
		zap.String("event_id", ev.ID.String()),
		zap.String("transaction_id", ev.AggregateID.String()),
		zap.Int("attempts", attempts),
		zap.Bool("dead", dead),
		zap.Error(err),
	}
	if errors.Is(err, ErrAggregateUpdate) {
		p.log.Error("AggregateUpdateFailure", fields...)
	} else {
		p.log.Error("outbox delivery failed", fields...)
	}

	markErr := p.store.Outbox().MarkAttemptFailed(ctx, ev.ID, attempts, err.Error(), next, dead)
	switch {
	case errors.Is(markErr, repository.ErrConflict):
		p.log.Debug("outbox event settled elsewhere", zap.String("event_id", ev.ID.String()))
	case markErr != nil:
		p.log.Error("record outbox failure", zap.String("event_id", ev.ID.String()), zap.Error(markErr))
	}
}

func (p *OutboxProcessor) redeliveryDelay(attempts int) time.Duration {
	shift := attempts
	if shift > 6 {
		shift = 6
	}
	return p.opts.PollInterval << uint(shift)
}
