package service

import (
	"context"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"go-pos-checkout/internal/feed"
	"go-pos-checkout/internal/model"
	"go-pos-checkout/internal/repository/memory"

	"github.com/stretchr/testify/require"
)

var jakarta = mustLoadLocation("Asia/Jakarta")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock(t time.Time) *testClock { return &testClock{t: t} }

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

var cashierAni = model.CashierRef{ID: "5f1c0d7e-8d1b-4c55-9a55-0c8f7f6a9b01", Name: "Ani"}

func cashierCtx() context.Context {
	return WithCashier(context.Background(), cashierAni)
}

type fixture struct {
	store    *memory.Store
	feed     *feed.LocalFeed
	clock    *testClock
	checkout CheckoutService
	query    *TransactionQueryService
	outbox   *OutboxProcessor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	f := feed.NewLocalFeed()
	t.Cleanup(func() { _ = f.Close() })
	clock := newTestClock(time.Date(2025, 7, 1, 10, 0, 0, 0, jakarta))

	return &fixture{
		store: store,
		feed:  f,
		clock: clock,
		checkout: NewCheckoutService(store, f, CheckoutOptions{
			Location: jakarta,
			Retry:    RetryPolicy{MaxAttempts: 5, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond},
			Clock:    clock.Now,
		}),
		query: NewTransactionQueryService(store, f, jakarta, clock.Now, nil),
		outbox: NewOutboxProcessor(store, NewDailyAggregateUpdater(store, clock.Now), OutboxOptions{
			PollInterval:  time.Second,
			MaxDeliveries: 3,
			StepAttempts:  1,
			StepDelay:     time.Millisecond,
			Clock:         clock.Now,
		}),
	}
}

func (fx *fixture) product(t *testing.T, sku string, stock int, price int64) model.Product {
	t.Helper()
	p := model.Product{SKU: sku, Name: "Item " + sku, Category: "snacks", Stock: stock, Price: price}
	require.NoError(t, fx.store.Products().Create(context.Background(), &p))
	return p
}

func (fx *fixture) stock(t *testing.T, p model.Product) int {
	t.Helper()
	got, err := fx.store.Products().FindByID(context.Background(), p.ID)
	require.NoError(t, err)
	return got.Stock
}

func line(p model.Product, qty int) CheckoutItem {
	return CheckoutItem{ProductID: p.ID, Quantity: qty, Price: p.Price, TotalPrice: p.Price * int64(qty)}
}

func cash(amount int64) *int64 { return &amount }

func cashCheckout(received int64, items ...CheckoutItem) *CheckoutRequest {
	return &CheckoutRequest{Items: items, PaymentMethod: model.PaymentCash, CashReceived: cash(received)}
}

func nonCashCheckout(items ...CheckoutItem) *CheckoutRequest {
	return &CheckoutRequest{Items: items, PaymentMethod: model.PaymentNonCash}
}
