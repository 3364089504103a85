package repository

import (
	"context"
	"errors"

	"go-pos-checkout/internal/model"

	"gorm.io/gorm"
)

type gormStore struct {
	db *gorm.DB
}

// NewStore binds the repositories to db.
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Products() ProductRepository         { return NewProductRepo(s.db) }
func (s *gormStore) Cashiers() CashierRepository         { return NewCashierRepo(s.db) }
func (s *gormStore) Transactions() TransactionRepository { return NewTransactionRepo(s.db) }
func (s *gormStore) Financials() FinancialRepository     { return NewFinancialRepo(s.db) }
func (s *gormStore) DailySales() DailySalesRepository    { return NewDailySalesRepo(s.db) }
func (s *gormStore) Outbox() OutboxRepository            { return NewOutboxRepo(s.db) }

func (s *gormStore) Transaction(ctx context.Context, fn func(tx Repositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

// AutoMigrate creates or updates every table the store uses.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Product{},
		&model.Cashier{},
		&model.POSTransactionRecord{},
		&model.FinancialTransaction{},
		&model.DailySales{},
		&model.OutboxEvent{},
	)
}

// translate maps GORM errors onto the package sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	}
	return err
}
