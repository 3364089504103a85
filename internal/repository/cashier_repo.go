package repository

import (
	"context"

	"go-pos-checkout/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type cashierRepo struct {
	db *gorm.DB
}

func NewCashierRepo(db *gorm.DB) CashierRepository {
	return &cashierRepo{db}
}

func (r *cashierRepo) Create(ctx context.Context, cashier *model.Cashier) error {
	return translate(r.db.WithContext(ctx).Create(cashier).Error)
}

func (r *cashierRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Cashier, error) {
	var cashier model.Cashier
	if err := r.db.WithContext(ctx).First(&cashier, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &cashier, nil
}

func (r *cashierRepo) FindByEmail(ctx context.Context, email string) (*model.Cashier, error) {
	var cashier model.Cashier
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&cashier).Error; err != nil {
		return nil, translate(err)
	}
	return &cashier, nil
}

func (r *cashierRepo) FindActive(ctx context.Context) ([]model.Cashier, error) {
	var cashiers []model.Cashier
	err := r.db.WithContext(ctx).Where("is_active = ?", true).Order("name ASC").Find(&cashiers).Error
	return cashiers, translate(err)
}

func (r *cashierRepo) UpdateTokenVersion(ctx context.Context, id uuid.UUID, version string) error {
	return translate(r.db.WithContext(ctx).Model(&model.Cashier{}).Where("id = ?", id).Update("token_version", version).Error)
}
