package model

import (
	"time"

	"github.com/google/uuid"
)

type OutboxStatus string

const (
	OutboxPending   OutboxStatus = "pending"
	OutboxProcessed OutboxStatus = "processed"
	OutboxDead      OutboxStatus = "dead"
)

const EventSaleRecorded = "pos_transaction.recorded"

// OutboxEvent is written in the same store transaction as the sale and
// drives the derived ledger and aggregate records.
type OutboxEvent struct {
	ID             uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	Kind           string       `gorm:"type:varchar(64);not null" json:"kind"`
	AggregateID    uuid.UUID    `gorm:"type:uuid;not null;index" json:"aggregate_id"`
	Payload        string       `gorm:"type:jsonb;not null" json:"payload"`
	Status         OutboxStatus `gorm:"type:varchar(16);not null;index:idx_outbox_due,priority:1" json:"status"`
	Attempts       int          `gorm:"not null;default:0" json:"attempts"`
	LedgerRecorded bool         `gorm:"not null;default:false" json:"ledger_recorded"`
	LastError      string       `gorm:"type:text" json:"last_error,omitempty"`
	NextAttemptAt  time.Time    `gorm:"not null;index:idx_outbox_due,priority:2" json:"next_attempt_at"`
	CreatedAt      time.Time    `json:"created_at"`
	ProcessedAt    *time.Time   `json:"processed_at,omitempty"`
}

func (OutboxEvent) TableName() string {
	return "outbox_events"
}

// SaleRecorded is the payload of EventSaleRecorded.
type SaleRecorded struct {
	TransactionID uuid.UUID     `json:"transaction_id"`
	DateString    string        `json:"date_string"`
	TotalAmount   int64         `json:"total_amount"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	CashierID     string        `json:"cashier_id"`
	ItemCount     int           `json:"item_count"`
	Timestamp     time.Time     `json:"timestamp"`
}
