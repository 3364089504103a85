package repository

import (
	"context"
	"errors"
	"time"

	"go-pos-checkout/internal/model"

	"github.com/google/uuid"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
	// ErrConflict means the row left the state the write was guarded on.
	ErrConflict = errors.New("record changed concurrently")
)

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	FindAll(ctx context.Context) ([]model.Product, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	// FindByIDForUpdate locks the row until the surrounding transaction ends.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Product, error)
	FindBySKU(ctx context.Context, sku string) (*model.Product, error)
	Update(ctx context.Context, product *model.Product) error
	// CompareAndSetStock writes newStock only while the stored stock still
	// equals expected. It reports false when the guard did not hold.
	CompareAndSetStock(ctx context.Context, id uuid.UUID, expected, newStock int, updatedBy string, at time.Time) (bool, error)
	Stats(ctx context.Context, lowStockThreshold int) (*model.InventoryStats, error)
}

type CashierRepository interface {
	Create(ctx context.Context, cashier *model.Cashier) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Cashier, error)
	FindByEmail(ctx context.Context, email string) (*model.Cashier, error)
	FindActive(ctx context.Context) ([]model.Cashier, error)
	UpdateTokenVersion(ctx context.Context, id uuid.UUID, version string) error
}

type TransactionRepository interface {
	Create(ctx context.Context, record *model.POSTransactionRecord) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.POSTransactionRecord, error)
	// FindByTimeRange returns records with start <= timestamp < end,
	// newest first.
	FindByTimeRange(ctx context.Context, start, end time.Time) ([]model.POSTransactionRecord, error)
}

type FinancialRepository interface {
	// CreateIfAbsent inserts entry unless one exists for the same
	// transaction. It reports whether a row was written.
	CreateIfAbsent(ctx context.Context, entry *model.FinancialTransaction) (bool, error)
	FindByTransactionID(ctx context.Context, transactionID uuid.UUID) (*model.FinancialTransaction, error)
	Summary(ctx context.Context, start, end time.Time) (*model.FinancialSummary, error)
}

type DailySalesRepository interface {
	Increment(ctx context.Context, date string, amount int64, at time.Time) error
	FindByDate(ctx context.Context, date string) (*model.DailySales, error)
	// FindByDateRange is inclusive on both ends.
	FindByDateRange(ctx context.Context, from, to string) ([]model.DailySales, error)
	FindRecent(ctx context.Context, limit int) ([]model.DailySales, error)
}

type OutboxRepository interface {
	Enqueue(ctx context.Context, event *model.OutboxEvent) error
	// FindDue returns pending events whose next attempt is not after now,
	// oldest first.
	FindDue(ctx context.Context, now time.Time, limit int) ([]model.OutboxEvent, error)
	MarkLedgerRecorded(ctx context.Context, id uuid.UUID) error
	// MarkProcessed and MarkAttemptFailed only move a pending event and
	// return ErrConflict otherwise.
	MarkProcessed(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkAttemptFailed(ctx context.Context, id uuid.UUID, attempts int, lastErr string, nextAttemptAt time.Time, dead bool) error
}

// Repositories groups the repositories bound to one database handle, either
// the pool or an open transaction.
type Repositories interface {
	Products() ProductRepository
	Cashiers() CashierRepository
	Transactions() TransactionRepository
	Financials() FinancialRepository
	DailySales() DailySalesRepository
	Outbox() OutboxRepository
}

// Store is the inventory database. Transaction runs fn atomically: every
// write made through tx commits together or not at all.
type Store interface {
	Repositories
	Transaction(ctx context.Context, fn func(tx Repositories) error) error
}
