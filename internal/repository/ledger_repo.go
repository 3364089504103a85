package repository

import (
	"context"
	"time"

	"go-pos-checkout/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type financialRepo struct {
	db *gorm.DB
}

func NewFinancialRepo(db *gorm.DB) FinancialRepository {
	return &financialRepo{db}
}

func (r *financialRepo) CreateIfAbsent(ctx context.Context, entry *model.FinancialTransaction) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "transaction_id"}},
			DoNothing: true,
		}).
		Create(entry)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *financialRepo) FindByTransactionID(ctx context.Context, transactionID uuid.UUID) (*model.FinancialTransaction, error) {
	var entry model.FinancialTransaction
	if err := r.db.WithContext(ctx).First(&entry, "transaction_id = ?", transactionID).Error; err != nil {
		return nil, translate(err)
	}
	return &entry, nil
}

func (r *financialRepo) Summary(ctx context.Context, start, end time.Time) (*model.FinancialSummary, error) {
	var row struct {
		Income  int64
		Expense int64
		Sales   int64
	}
	err := r.db.WithContext(ctx).Model(&model.FinancialTransaction{}).
		Select(`
			COALESCE(SUM(CASE WHEN type = ? THEN amount ELSE 0 END), 0) AS income,
			COALESCE(SUM(CASE WHEN type = ? THEN amount ELSE 0 END), 0) AS expense,
			COUNT(CASE WHEN type = ? AND category = ? THEN 1 END) AS sales
		`, model.FinancialIncome, model.FinancialExpense, model.FinancialIncome, model.CategorySales).
		Where("timestamp >= ? AND timestamp < ?", start, end).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	return &model.FinancialSummary{
		TotalSales:       row.Income,
		TotalExpenses:    row.Expense,
		NetProfit:        row.Income - row.Expense,
		TransactionCount: row.Sales,
	}, nil
}

type dailySalesRepo struct {
	db *gorm.DB
}

func NewDailySalesRepo(db *gorm.DB) DailySalesRepository {
	return &dailySalesRepo{db}
}

func (r *dailySalesRepo) Increment(ctx context.Context, date string, amount int64, at time.Time) error {
	row := model.DailySales{
		Date:             date,
		TotalSales:       amount,
		TransactionCount: 1,
		UpdatedAt:        at,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "date"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"total_sales":       gorm.Expr("daily_sales.total_sales + ?", amount),
				"transaction_count": gorm.Expr("daily_sales.transaction_count + 1"),
				"updated_at":        at,
			}),
		}).
		Create(&row).Error
}

func (r *dailySalesRepo) FindByDate(ctx context.Context, date string) (*model.DailySales, error) {
	var row model.DailySales
	if err := r.db.WithContext(ctx).First(&row, "date = ?", date).Error; err != nil {
		return nil, translate(err)
	}
	return &row, nil
}

// YYYY-MM-DD sorts lexically, so the range is a plain string comparison.
func (r *dailySalesRepo) FindByDateRange(ctx context.Context, from, to string) ([]model.DailySales, error) {
	var rows []model.DailySales
	err := r.db.WithContext(ctx).
		Where("date >= ? AND date <= ?", from, to).
		Order("date ASC").
		Find(&rows).Error
	return rows, err
}

func (r *dailySalesRepo) FindRecent(ctx context.Context, limit int) ([]model.DailySales, error) {
	var rows []model.DailySales
	err := r.db.WithContext(ctx).Order("date DESC").Limit(limit).Find(&rows).Error
	return rows, err
}
