package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"go-pos-checkout/internal/model"
	"go-pos-checkout/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedProduct(t *testing.T, s *Store, sku string, stock int) model.Product {
	t.Helper()
	p := model.Product{SKU: sku, Name: "Product " + sku, Stock: stock, Price: 1000}
	require.NoError(t, s.Products().Create(context.Background(), &p))
	return p
}

func TestTransactionRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := New()
	p := seedProduct(t, s, "A1", 10)

	boom := errors.New("boom")
	err := s.Transaction(ctx, func(tx repository.Repositories) error {
		ok, err := tx.Products().CompareAndSetStock(ctx, p.ID, 10, 7, "c1", time.Now())
		require.NoError(t, err)
		require.True(t, ok)
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.Products().FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.Stock)
}

func TestTransactionCommits(t *testing.T) {
	ctx := context.Background()
	s := New()
	p := seedProduct(t, s, "A1", 10)

	err := s.Transaction(ctx, func(tx repository.Repositories) error {
		_, err := tx.Products().CompareAndSetStock(ctx, p.ID, 10, 4, "c1", time.Now())
		return err
	})
	require.NoError(t, err)

	got, _ := s.Products().FindByID(ctx, p.ID)
	assert.Equal(t, 4, got.Stock)
	assert.Equal(t, "c1", got.UpdatedBy)
}

func TestCompareAndSetStockGuard(t *testing.T) {
	ctx := context.Background()
	s := New()
	p := seedProduct(t, s, "A1", 10)

	ok, err := s.Products().CompareAndSetStock(ctx, p.ID, 9, 5, "c1", time.Now())
	require.NoError(t, err)
	assert.False(t, ok)

	s.FailNext(OpCompareAndSetStock, 1, nil)
	ok, err = s.Products().CompareAndSetStock(ctx, p.ID, 10, 5, "c1", time.Now())
	require.NoError(t, err)
	assert.False(t, ok, "injected conflict")

	ok, err = s.Products().CompareAndSetStock(ctx, p.ID, 10, 5, "c1", time.Now())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDuplicateSKU(t *testing.T) {
	s := New()
	seedProduct(t, s, "A1", 1)
	p := model.Product{SKU: "A1", Name: "again"}
	assert.ErrorIs(t, s.Products().Create(context.Background(), &p), repository.ErrDuplicate)
}

func TestFindByTimeRangeNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := New()
	base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		s.PutRecord(model.POSTransactionRecord{
			ID:        uuid.New(),
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Document:  "{}",
		})
	}
	s.PutRecord(model.POSTransactionRecord{ID: uuid.New(), Timestamp: base.Add(24 * time.Hour), Document: "{}"})

	records, err := s.Transactions().FindByTimeRange(ctx, base, base.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, base.Add(2*time.Hour), records[0].Timestamp)
	assert.Equal(t, base, records[2].Timestamp)
}

func TestCreateIfAbsentIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := New()
	txID := uuid.New()
	entry := model.FinancialTransaction{TransactionID: txID, Type: model.FinancialIncome, Category: model.CategorySales, Amount: 500, Timestamp: time.Now()}

	created, err := s.Financials().CreateIfAbsent(ctx, &entry)
	require.NoError(t, err)
	assert.True(t, created)

	again := entry
	again.ID = uuid.Nil
	created, err = s.Financials().CreateIfAbsent(ctx, &again)
	require.NoError(t, err)
	assert.False(t, created)
}

func TestOutboxLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Now()
	ev := model.OutboxEvent{Kind: model.EventSaleRecorded, AggregateID: uuid.New(), Payload: "{}", NextAttemptAt: now}
	require.NoError(t, s.Outbox().Enqueue(ctx, &ev))

	due, err := s.Outbox().FindDue(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)

	require.NoError(t, s.Outbox().MarkAttemptFailed(ctx, ev.ID, 1, "db down", now.Add(time.Minute), false))
	due, _ = s.Outbox().FindDue(ctx, now, 10)
	assert.Empty(t, due)

	require.NoError(t, s.Outbox().MarkProcessed(ctx, ev.ID, now))
	events := s.OutboxEvents()
	require.Len(t, events, 1)
	assert.Equal(t, model.OutboxProcessed, events[0].Status)
	assert.Empty(t, events[0].LastError)
}

func TestOutboxTransitionsOnlyLeavePending(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Now()
	ev := model.OutboxEvent{Kind: model.EventSaleRecorded, AggregateID: uuid.New(), Payload: "{}", NextAttemptAt: now}
	require.NoError(t, s.Outbox().Enqueue(ctx, &ev))
	require.NoError(t, s.Outbox().MarkProcessed(ctx, ev.ID, now))

	err := s.Outbox().MarkProcessed(ctx, ev.ID, now)
	assert.ErrorIs(t, err, repository.ErrConflict)
	err = s.Outbox().MarkAttemptFailed(ctx, ev.ID, 1, "late failure", now, false)
	assert.ErrorIs(t, err, repository.ErrConflict)

	events := s.OutboxEvents()
	assert.Equal(t, model.OutboxProcessed, events[0].Status)
	assert.Empty(t, events[0].LastError)
}

func TestDailySalesIncrement(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.DailySales().Increment(ctx, "2024-05-01", 1000, time.Now()))
	require.NoError(t, s.DailySales().Increment(ctx, "2024-05-01", 500, time.Now()))
	require.NoError(t, s.DailySales().Increment(ctx, "2024-05-03", 10, time.Now()))

	row, err := s.DailySales().FindByDate(ctx, "2024-05-01")
	require.NoError(t, err)
	assert.Equal(t, int64(1500), row.TotalSales)
	assert.Equal(t, 2, row.TransactionCount)

	recent, err := s.DailySales().FindRecent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "2024-05-03", recent[0].Date)
}
