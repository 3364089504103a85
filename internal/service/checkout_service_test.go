package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"go-pos-checkout/internal/feed"
	"go-pos-checkout/internal/model"
	"go-pos-checkout/internal/repository/memory"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckoutDecrementsStockAndRecordsSale(t *testing.T) {
	fx := newFixture(t)
	chips := fx.product(t, "CHIPS", 10, 5000)
	soda := fx.product(t, "SODA", 4, 7000)

	sale, err := fx.checkout.ProcessPOSTransaction(cashierCtx(), cashCheckout(30000, line(chips, 3), line(soda, 2)))
	require.NoError(t, err)

	assert.Equal(t, 7, fx.stock(t, chips))
	assert.Equal(t, 2, fx.stock(t, soda))

	assert.Equal(t, int64(15000+14000), sale.TotalAmount)
	assert.Equal(t, model.PaymentCash, sale.PaymentMethod)
	require.NotNil(t, sale.CashReceived)
	require.NotNil(t, sale.Change)
	assert.Equal(t, int64(30000), *sale.CashReceived)
	assert.Equal(t, int64(1000), *sale.Change)
	assert.Equal(t, model.TxStatusCompleted, sale.Status)
	assert.Equal(t, cashierAni.ID, sale.CashierID)
	assert.Equal(t, cashierAni.Name, sale.CashierName)
	assert.Equal(t, "2025-07-01", sale.DateString)
	assert.True(t, fx.clock.Now().Equal(sale.Timestamp))
	require.Len(t, sale.Items, 2)
	assert.Equal(t, "Item CHIPS", sale.Items[0].Product.Name)
	assert.Equal(t, int64(15000), sale.Items[0].TotalPrice)

	stored, err := fx.query.GetTransaction(context.Background(), sale.ID)
	require.NoError(t, err)
	assert.Equal(t, sale.TotalAmount, stored.TotalAmount)
	assert.Len(t, stored.Items, 2)

	events := fx.store.OutboxEvents()
	require.Len(t, events, 1)
	assert.Equal(t, model.EventSaleRecorded, events[0].Kind)
	assert.Equal(t, model.OutboxPending, events[0].Status)
	var payload model.SaleRecorded
	require.NoError(t, json.Unmarshal([]byte(events[0].Payload), &payload))
	assert.Equal(t, sale.ID, payload.TransactionID.String())
	assert.Equal(t, sale.TotalAmount, payload.TotalAmount)
}

func TestCheckoutMergesLinesForSameProduct(t *testing.T) {
	fx := newFixture(t)
	chips := fx.product(t, "CHIPS", 5, 1000)

	_, err := fx.checkout.ProcessPOSTransaction(cashierCtx(), nonCashCheckout(line(chips, 3), line(chips, 3)))
	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 5, stockErr.Available)
	assert.Equal(t, 6, stockErr.Requested)

	sale, err := fx.checkout.ProcessPOSTransaction(cashierCtx(), nonCashCheckout(line(chips, 2), line(chips, 3)))
	require.NoError(t, err)
	assert.Len(t, sale.Items, 2)
	assert.Equal(t, 0, fx.stock(t, chips))
}

func TestCheckoutInsufficientStockLeavesInventoryUntouched(t *testing.T) {
	fx := newFixture(t)
	chips := fx.product(t, "CHIPS", 10, 5000)
	soda := fx.product(t, "SODA", 1, 7000)

	_, err := fx.checkout.ProcessPOSTransaction(cashierCtx(), nonCashCheckout(line(chips, 2), line(soda, 2)))
	require.ErrorIs(t, err, ErrInsufficientStock)

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, soda.ID.String(), stockErr.ProductID)
	assert.Equal(t, "Item SODA", stockErr.ProductName)

	assert.Equal(t, 10, fx.stock(t, chips))
	assert.Equal(t, 1, fx.stock(t, soda))
	assert.Empty(t, fx.store.OutboxEvents())
}

func TestCheckoutUnknownProductWritesNothing(t *testing.T) {
	fx := newFixture(t)
	chips := fx.product(t, "CHIPS", 10, 5000)
	ghost := model.Product{Record: model.Record{ID: uuid.New()}, Price: 100}

	_, err := fx.checkout.ProcessPOSTransaction(cashierCtx(), nonCashCheckout(line(chips, 1), line(ghost, 1)))
	require.ErrorIs(t, err, ErrProductNotFound)

	assert.Equal(t, 10, fx.stock(t, chips))
	assert.Empty(t, fx.store.OutboxEvents())
	txs, err := fx.query.GetTransactionsByRange(context.Background(), fx.clock.Now().Add(-time.Hour), fx.clock.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestValidateStockIsRepeatable(t *testing.T) {
	fx := newFixture(t)
	chips := fx.product(t, "CHIPS", 10, 5000)
	soda := fx.product(t, "SODA", 3, 7000)
	lines := []StockLine{{ProductID: chips.ID, Quantity: 2}, {ProductID: soda.ID, Quantity: 3}}

	first, err := fx.checkout.ValidateStock(context.Background(), lines)
	require.NoError(t, err)
	second, err := fx.checkout.ValidateStock(context.Background(), lines)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	require.Len(t, first, 2)
	assert.Equal(t, 10, first[0].CurrentStock)
	assert.Equal(t, 2, first[0].QuantityToReduce)
	assert.Equal(t, 10, fx.stock(t, chips))
}

func TestCheckoutRequiresCashier(t *testing.T) {
	fx := newFixture(t)
	chips := fx.product(t, "CHIPS", 10, 5000)

	_, err := fx.checkout.ProcessPOSTransaction(context.Background(), nonCashCheckout(line(chips, 1)))
	assert.ErrorIs(t, err, ErrMissingCashier)
	assert.Equal(t, 10, fx.stock(t, chips))
}

func TestCheckoutRejectsBadRequests(t *testing.T) {
	fx := newFixture(t)
	chips := fx.product(t, "CHIPS", 10, 5000)

	badTotal := line(chips, 2)
	badTotal.TotalPrice = 1

	cases := map[string]*CheckoutRequest{
		"empty cart":             nonCashCheckout(),
		"zero quantity":          nonCashCheckout(CheckoutItem{ProductID: chips.ID, Quantity: 0, Price: 1}),
		"missing product id":     nonCashCheckout(CheckoutItem{Quantity: 1, Price: 1}),
		"line total mismatch":    nonCashCheckout(badTotal),
		"unknown payment method": {Items: []CheckoutItem{line(chips, 1)}, PaymentMethod: "voucher"},
		"cash without amount":    {Items: []CheckoutItem{line(chips, 1)}, PaymentMethod: model.PaymentCash},
		"cash short":             cashCheckout(4999, line(chips, 1)),
		"non cash with cash":     {Items: []CheckoutItem{line(chips, 1)}, PaymentMethod: model.PaymentNonCash, CashReceived: cash(5000)},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := fx.checkout.ProcessPOSTransaction(cashierCtx(), req)
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}
	assert.Equal(t, 10, fx.stock(t, chips))
}

func TestCheckoutComputesMissingLineTotal(t *testing.T) {
	fx := newFixture(t)
	chips := fx.product(t, "CHIPS", 10, 5000)

	item := line(chips, 2)
	item.TotalPrice = 0
	sale, err := fx.checkout.ProcessPOSTransaction(cashierCtx(), nonCashCheckout(item))
	require.NoError(t, err)
	assert.Equal(t, int64(10000), sale.TotalAmount)
	assert.Nil(t, sale.CashReceived)
	assert.Nil(t, sale.Change)
}

func TestCheckoutRetriesCommitConflict(t *testing.T) {
	fx := newFixture(t)
	chips := fx.product(t, "CHIPS", 10, 5000)
	fx.store.FailNext(memory.OpCompareAndSetStock, 2, nil)

	sale, err := fx.checkout.ProcessPOSTransaction(cashierCtx(), nonCashCheckout(line(chips, 4)))
	require.NoError(t, err)
	assert.NotEmpty(t, sale.ID)
	assert.Equal(t, 6, fx.stock(t, chips))
	assert.Len(t, fx.store.OutboxEvents(), 1)
}

func TestCheckoutRevalidatesAfterConflict(t *testing.T) {
	fx := newFixture(t)
	chips := fx.product(t, "CHIPS", 10, 5000)
	// Another till sells most of the stock between read and write.
	fx.store.InterleaveStockWrite(chips.ID, 2)

	_, err := fx.checkout.ProcessPOSTransaction(cashierCtx(), nonCashCheckout(line(chips, 4)))
	require.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, 2, fx.stock(t, chips))
}

func TestCheckoutGivesUpAfterRetryBudget(t *testing.T) {
	fx := newFixture(t)
	chips := fx.product(t, "CHIPS", 10, 5000)
	fx.store.FailNext(memory.OpCompareAndSetStock, 100, nil)

	_, err := fx.checkout.ProcessPOSTransaction(cashierCtx(), nonCashCheckout(line(chips, 1)))
	require.ErrorIs(t, err, ErrCommitConflict)
	var conflict *CommitConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, chips.ID.String(), conflict.ProductID)

	assert.Equal(t, 10, fx.stock(t, chips))
	assert.Empty(t, fx.store.OutboxEvents())
}

func TestCheckoutRecordFailureRollsBackStock(t *testing.T) {
	fx := newFixture(t)
	chips := fx.product(t, "CHIPS", 10, 5000)
	fx.store.FailNext(memory.OpCreateTransaction, 1, errors.New("disk full"))

	_, err := fx.checkout.ProcessPOSTransaction(cashierCtx(), nonCashCheckout(line(chips, 1)))
	require.ErrorIs(t, err, ErrRecordWrite)
	assert.Equal(t, 10, fx.stock(t, chips))
	assert.Empty(t, fx.store.OutboxEvents())
}

func TestCheckoutOutboxFailureRollsBackSale(t *testing.T) {
	fx := newFixture(t)
	chips := fx.product(t, "CHIPS", 10, 5000)
	fx.store.FailNext(memory.OpEnqueueOutbox, 1, errors.New("constraint"))

	_, err := fx.checkout.ProcessPOSTransaction(cashierCtx(), nonCashCheckout(line(chips, 1)))
	require.ErrorIs(t, err, ErrRecordWrite)
	assert.Equal(t, 10, fx.stock(t, chips))

	txs, err := fx.query.GetTransactionsByRange(context.Background(), fx.clock.Now().Add(-time.Hour), fx.clock.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestConcurrentCheckoutsNeverOversell(t *testing.T) {
	fx := newFixture(t)
	chips := fx.product(t, "CHIPS", 5, 1000)

	var wg sync.WaitGroup
	var mu sync.Mutex
	sold, rejected := 0, 0
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := fx.checkout.ProcessPOSTransaction(cashierCtx(), nonCashCheckout(line(chips, 1)))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				sold++
			case errors.Is(err, ErrInsufficientStock):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, sold)
	assert.Equal(t, 7, rejected)
	assert.Equal(t, 0, fx.stock(t, chips))
	assert.Len(t, fx.store.OutboxEvents(), 5)
}

func TestCheckoutPublishesSale(t *testing.T) {
	fx := newFixture(t)
	chips := fx.product(t, "CHIPS", 10, 5000)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, err := fx.feed.Subscribe(ctx)
	require.NoError(t, err)

	sale, err := fx.checkout.ProcessPOSTransaction(cashierCtx(), nonCashCheckout(line(chips, 1)))
	require.NoError(t, err)

	var got []feed.Event
	for len(got) < 2 {
		select {
		case ev := <-events:
			got = append(got, ev)
		case <-time.After(time.Second):
			t.Fatalf("got %d events, want 2", len(got))
		}
	}
	assert.Equal(t, feed.TransactionRecorded, got[0].Type)
	assert.Equal(t, sale.ID, got[0].TransactionID)
	assert.Equal(t, feed.StockUpdate, got[1].Type)
	assert.Equal(t, 9, got[1].Data["new_stock"])
}
