package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go-pos-checkout/internal/model"
	"go-pos-checkout/internal/repository"
	"go-pos-checkout/internal/repository/memory"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutboxWritesLedgerAndAggregateOnce(t *testing.T) {
	fx := newFixture(t)
	chips := fx.product(t, "CHIPS", 10, 5000)
	ctx := context.Background()

	sale, err := fx.checkout.ProcessPOSTransaction(cashierCtx(), nonCashCheckout(line(chips, 2)))
	require.NoError(t, err)

	n, err := fx.outbox.ProcessPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = fx.outbox.ProcessPending(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "processed events are not redelivered")

	entry, err := fx.store.Financials().FindByTransactionID(ctx, uuid.MustParse(sale.ID))
	require.NoError(t, err)
	assert.Equal(t, model.FinancialIncome, entry.Type)
	assert.Equal(t, model.CategorySales, entry.Category)
	assert.Equal(t, int64(10000), entry.Amount)
	assert.Equal(t, "2025-07-01", entry.Date)
	assert.Equal(t, model.PaymentNonCash, entry.PaymentMethod)
	assert.Contains(t, entry.Description, sale.ID[:8])

	daily, err := fx.store.DailySales().FindByDate(ctx, "2025-07-01")
	require.NoError(t, err)
	assert.Equal(t, int64(10000), daily.TotalSales)
	assert.Equal(t, 1, daily.TransactionCount)

	events := fx.store.OutboxEvents()
	require.Len(t, events, 1)
	assert.Equal(t, model.OutboxProcessed, events[0].Status)
	assert.True(t, events[0].LedgerRecorded)
	require.NotNil(t, events[0].ProcessedAt)
}

func TestAggregateFailureDoesNotFailSale(t *testing.T) {
	fx := newFixture(t)
	chips := fx.product(t, "CHIPS", 10, 5000)
	ctx := context.Background()

	sale, err := fx.checkout.ProcessPOSTransaction(cashierCtx(), cashCheckout(5000, line(chips, 1)))
	require.NoError(t, err)

	fx.store.FailNext(memory.OpIncrementDaily, 1, errors.New("daily_sales locked"))
	n, err := fx.outbox.ProcessPending(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	// The sale and its ledger entry stand.
	_, err = fx.query.GetTransaction(ctx, sale.ID)
	require.NoError(t, err)
	_, err = fx.store.Financials().FindByTransactionID(ctx, uuid.MustParse(sale.ID))
	require.NoError(t, err)
	assert.Equal(t, 9, fx.stock(t, chips))

	ev := fx.store.OutboxEvents()[0]
	assert.Equal(t, model.OutboxPending, ev.Status)
	assert.Equal(t, 1, ev.Attempts)
	assert.True(t, ev.LedgerRecorded)
	assert.Contains(t, ev.LastError, "daily_sales locked")

	// Not due until the redelivery delay passes.
	n, err = fx.outbox.ProcessPending(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	fx.clock.Advance(time.Minute)
	n, err = fx.outbox.ProcessPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	daily, err := fx.store.DailySales().FindByDate(ctx, "2025-07-01")
	require.NoError(t, err)
	assert.Equal(t, 1, daily.TransactionCount)
	summary, err := fx.store.Financials().Summary(ctx, fx.clock.Now().Add(-time.Hour), fx.clock.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.TransactionCount, "ledger entry written once")
}

func TestLedgerFailureRetriesWholeEvent(t *testing.T) {
	fx := newFixture(t)
	chips := fx.product(t, "CHIPS", 10, 5000)
	ctx := context.Background()

	_, err := fx.checkout.ProcessPOSTransaction(cashierCtx(), nonCashCheckout(line(chips, 1)))
	require.NoError(t, err)

	fx.store.FailNext(memory.OpCreateFinancial, 1, errors.New("timeout"))
	_, err = fx.outbox.ProcessPending(ctx)
	require.NoError(t, err)

	ev := fx.store.OutboxEvents()[0]
	assert.False(t, ev.LedgerRecorded)
	_, err = fx.store.DailySales().FindByDate(ctx, "2025-07-01")
	assert.Error(t, err, "aggregate waits for the ledger")

	fx.clock.Advance(time.Minute)
	n, err := fx.outbox.ProcessPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestOutboxMarksEventDeadAfterMaxDeliveries(t *testing.T) {
	fx := newFixture(t)
	chips := fx.product(t, "CHIPS", 10, 5000)
	ctx := context.Background()

	_, err := fx.checkout.ProcessPOSTransaction(cashierCtx(), nonCashCheckout(line(chips, 1)))
	require.NoError(t, err)
	fx.store.FailNext(memory.OpIncrementDaily, 100, errors.New("permanently broken"))

	for i := 0; i < 3; i++ {
		_, err := fx.outbox.ProcessPending(ctx)
		require.NoError(t, err)
		fx.clock.Advance(time.Hour)
	}

	ev := fx.store.OutboxEvents()[0]
	assert.Equal(t, model.OutboxDead, ev.Status)
	assert.Equal(t, 3, ev.Attempts)

	n, err := fx.outbox.ProcessPending(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestOutboxUndecodablePayloadIsDead(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	require.NoError(t, fx.store.Outbox().Enqueue(ctx, &model.OutboxEvent{
		Kind:          model.EventSaleRecorded,
		AggregateID:   uuid.New(),
		Payload:       "{not json",
		NextAttemptAt: fx.clock.Now(),
		CreatedAt:     fx.clock.Now(),
	}))

	_, err := fx.outbox.ProcessPending(ctx)
	require.NoError(t, err)
	ev := fx.store.OutboxEvents()[0]
	assert.Equal(t, model.OutboxDead, ev.Status)
	assert.Equal(t, 1, ev.Attempts)
}

func TestOutboxRunStopsOnCancel(t *testing.T) {
	fx := newFixture(t)
	chips := fx.product(t, "CHIPS", 10, 5000)
	_, err := fx.checkout.ProcessPOSTransaction(cashierCtx(), nonCashCheckout(line(chips, 1)))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		fx.outbox.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return fx.store.OutboxEvents()[0].Status == model.OutboxProcessed
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestDailyAggregateUpdaterWrapsFailure(t *testing.T) {
	store := memory.New()
	u := NewDailyAggregateUpdater(store, nil)
	ctx := context.Background()

	require.NoError(t, u.Update(ctx, "2025-07-01", 1000))
	store.FailNext(memory.OpIncrementDaily, 1, errors.New("boom"))
	err := u.Update(ctx, "2025-07-01", 1000)
	require.ErrorIs(t, err, ErrAggregateUpdate)
	var aggErr *AggregateUpdateError
	require.ErrorAs(t, err, &aggErr)
	assert.Equal(t, "2025-07-01", aggErr.Date)
}

func TestOutboxEventSharedByTwoProcessorsCountsOnce(t *testing.T) {
	fx := newFixture(t)
	chips := fx.product(t, "CHIPS", 10, 5000)
	ctx := context.Background()
	other := NewOutboxProcessor(fx.store, NewDailyAggregateUpdater(fx.store, fx.clock.Now), OutboxOptions{Clock: fx.clock.Now})

	_, err := fx.checkout.ProcessPOSTransaction(cashierCtx(), nonCashCheckout(line(chips, 2)))
	require.NoError(t, err)

	// Both instances read the event before either settles it.
	due, err := fx.store.Outbox().FindDue(ctx, fx.clock.Now(), 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	first, second := due[0], due[0]

	require.NoError(t, fx.outbox.handle(ctx, &first))
	err = other.handle(ctx, &second)
	require.ErrorIs(t, err, repository.ErrConflict)

	daily, err := fx.store.DailySales().FindByDate(ctx, "2025-07-01")
	require.NoError(t, err)
	assert.Equal(t, int64(10000), daily.TotalSales)
	assert.Equal(t, 1, daily.TransactionCount)
	assert.Equal(t, model.OutboxProcessed, fx.store.OutboxEvents()[0].Status)
}

func TestConcurrentProcessorsDeliverEachEventOnce(t *testing.T) {
	fx := newFixture(t)
	chips := fx.product(t, "CHIPS", 50, 5000)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := fx.checkout.ProcessPOSTransaction(cashierCtx(), nonCashCheckout(line(chips, 1)))
		require.NoError(t, err)
	}

	processors := []*OutboxProcessor{
		fx.outbox,
		NewOutboxProcessor(fx.store, NewDailyAggregateUpdater(fx.store, fx.clock.Now), OutboxOptions{Clock: fx.clock.Now}),
		NewOutboxProcessor(fx.store, NewDailyAggregateUpdater(fx.store, fx.clock.Now), OutboxOptions{Clock: fx.clock.Now}),
	}
	var wg sync.WaitGroup
	var total int64
	for _, p := range processors {
		wg.Add(1)
		go func(p *OutboxProcessor) {
			defer wg.Done()
			n, err := p.ProcessPending(ctx)
			assert.NoError(t, err)
			atomic.AddInt64(&total, int64(n))
		}(p)
	}
	wg.Wait()

	assert.Equal(t, int64(5), total)
	daily, err := fx.store.DailySales().FindByDate(ctx, "2025-07-01")
	require.NoError(t, err)
	assert.Equal(t, int64(25000), daily.TotalSales)
	assert.Equal(t, 5, daily.TransactionCount)
	for _, ev := range fx.store.OutboxEvents() {
		assert.Equal(t, model.OutboxProcessed, ev.Status)
		assert.Zero(t, ev.Attempts)
	}
}

func TestLateFailureDoesNotReopenProcessedEvent(t *testing.T) {
	fx := newFixture(t)
	chips := fx.product(t, "CHIPS", 10, 5000)
	ctx := context.Background()

	_, err := fx.checkout.ProcessPOSTransaction(cashierCtx(), nonCashCheckout(line(chips, 1)))
	require.NoError(t, err)
	due, err := fx.store.Outbox().FindDue(ctx, fx.clock.Now(), 10)
	require.NoError(t, err)
	stale := due[0]

	n, err := fx.outbox.ProcessPending(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	fx.outbox.fail(ctx, &stale, errors.New("timed out"))

	ev := fx.store.OutboxEvents()[0]
	assert.Equal(t, model.OutboxProcessed, ev.Status)
	assert.Zero(t, ev.Attempts)
	assert.Empty(t, ev.LastError)

	fx.clock.Advance(time.Hour)
	n, err = fx.outbox.ProcessPending(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
