package repository

import (
	"context"
	"time"

	"go-pos-checkout/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type transactionRepo struct {
	db *gorm.DB
}

func NewTransactionRepo(db *gorm.DB) TransactionRepository {
	return &transactionRepo{db}
}

func (r *transactionRepo) Create(ctx context.Context, record *model.POSTransactionRecord) error {
	return translate(r.db.WithContext(ctx).Create(record).Error)
}

func (r *transactionRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.POSTransactionRecord, error) {
	var record model.POSTransactionRecord
	if err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &record, nil
}

func (r *transactionRepo) FindByTimeRange(ctx context.Context, start, end time.Time) ([]model.POSTransactionRecord, error) {
	var records []model.POSTransactionRecord
	err := r.db.WithContext(ctx).
		Where("timestamp >= ? AND timestamp < ?", start, end).
		Order("timestamp DESC").
		Find(&records).Error
	return records, translate(err)
}
