package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type FinancialType string

const (
	FinancialIncome  FinancialType = "income"
	FinancialExpense FinancialType = "expense"
)

const CategorySales = "sales"

// FinancialTransaction is the ledger entry derived 1:1 from a sale.
type FinancialTransaction struct {
	ID            uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	TransactionID uuid.UUID     `gorm:"type:uuid;uniqueIndex;not null" json:"transaction_id"`
	Date          string        `gorm:"type:varchar(10);not null;index" json:"date"`
	Category      string        `gorm:"type:varchar(50);not null" json:"category"`
	Type          FinancialType `gorm:"type:varchar(10);not null" json:"type"`
	Amount        int64         `gorm:"not null" json:"amount"`
	Description   string        `gorm:"type:text" json:"description"`
	PaymentMethod PaymentMethod `gorm:"type:varchar(20)" json:"payment_method"`
	Timestamp     time.Time     `gorm:"not null;index" json:"timestamp"`
}

func (FinancialTransaction) TableName() string {
	return "financial_transactions"
}

// NewSalesIncome derives the ledger entry for a recorded sale.
func NewSalesIncome(sale SaleRecorded) FinancialTransaction {
	return FinancialTransaction{
		ID:            uuid.New(),
		TransactionID: sale.TransactionID,
		Date:          sale.DateString,
		Category:      CategorySales,
		Type:          FinancialIncome,
		Amount:        sale.TotalAmount,
		Description:   fmt.Sprintf("POS sale #%s (%d items)", shortID(sale.TransactionID), sale.ItemCount),
		PaymentMethod: sale.PaymentMethod,
		Timestamp:     sale.Timestamp,
	}
}

// DailySales accumulates sales per calendar day. It is derived data and
// may lag the transactions it summarizes.
type DailySales struct {
	Date             string    `gorm:"type:varchar(10);primaryKey" json:"date"`
	TotalSales       int64     `gorm:"not null;default:0" json:"total_sales"`
	TransactionCount int       `gorm:"not null;default:0" json:"transaction_count"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (DailySales) TableName() string {
	return "daily_sales"
}

// FinancialSummary for a date range, read from the ledger.
type FinancialSummary struct {
	TotalSales       int64 `json:"total_sales"`
	TotalExpenses    int64 `json:"total_expenses"`
	NetProfit        int64 `json:"net_profit"`
	TransactionCount int64 `json:"transaction_count"`
}

func shortID(id uuid.UUID) string {
	return id.String()[:8]
}
