package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportsFromDerivedRecords(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	chips := fx.product(t, "CHIPS", 100, 5000)
	fx.product(t, "LOW", 2, 1000)
	reports := NewReportService(fx.store, jakarta, fx.clock.Now, 10)

	_, err := fx.checkout.ProcessPOSTransaction(cashierCtx(), nonCashCheckout(line(chips, 2)))
	require.NoError(t, err)
	_, err = fx.checkout.ProcessPOSTransaction(cashierCtx(), cashCheckout(5000, line(chips, 1)))
	require.NoError(t, err)
	_, err = fx.outbox.ProcessPending(ctx)
	require.NoError(t, err)

	daily, err := reports.GetDailySales(ctx, "2025-07-01")
	require.NoError(t, err)
	assert.Equal(t, int64(15000), daily.TotalSales)
	assert.Equal(t, 2, daily.TransactionCount)

	empty, err := reports.GetDailySales(ctx, "2025-07-02")
	require.NoError(t, err)
	assert.Equal(t, "2025-07-02", empty.Date)
	assert.Zero(t, empty.TransactionCount)

	_, err = reports.GetDailySales(ctx, "July 1st")
	assert.ErrorIs(t, err, ErrInvalidDate)

	month, err := reports.GetMonthlySales(ctx, 2025, 7)
	require.NoError(t, err)
	require.Len(t, month, 1)
	_, err = reports.GetMonthlySales(ctx, 2025, 13)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	recent, err := reports.GetRecentDailySales(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, recent, 1)

	now := fx.clock.Now()
	fin, err := reports.GetFinancialSummary(ctx, now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(15000), fin.TotalSales)
	assert.Equal(t, int64(0), fin.TotalExpenses)
	assert.Equal(t, int64(15000), fin.NetProfit)
	assert.Equal(t, int64(2), fin.TransactionCount)

	stats, err := reports.GetDashboardStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Inventory.TotalProducts)
	assert.Equal(t, int64(1), stats.Inventory.LowStockCount)
	assert.Equal(t, int64(97*5000+2*1000), stats.Inventory.TotalValuation)
	assert.Equal(t, 2, stats.Today.TransactionCount)
}
