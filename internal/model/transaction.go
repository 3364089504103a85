package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type PaymentMethod string

const (
	PaymentCash    PaymentMethod = "cash"
	PaymentNonCash PaymentMethod = "non_cash"
)

const TxStatusCompleted = "completed"

// DateLayout is the layout of every date_string field.
const DateLayout = "2006-01-02"

// CartItem is one sold line. TotalPrice is Price * Quantity.
type CartItem struct {
	ID         string     `json:"id"`
	Product    ProductRef `json:"product"`
	Quantity   int        `json:"quantity"`
	Price      int64      `json:"price"`
	TotalPrice int64      `json:"total_price"`
}

// POSTransaction is an immutable sale record.
type POSTransaction struct {
	ID            string        `json:"id"`
	Items         []CartItem    `json:"items"`
	TotalAmount   int64         `json:"total_amount"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	CashReceived  *int64        `json:"cash_received,omitempty"`
	Change        *int64        `json:"change,omitempty"`
	Status        string        `json:"status"`
	CashierID     string        `json:"cashier_id"`
	CashierName   string        `json:"cashier_name"`
	Timestamp     time.Time     `json:"timestamp"`
	DateString    string        `json:"date_string"`
}

// Payment is the settled payment of a sale: either CashPayment or
// NonCashPayment.
type Payment interface {
	Method() PaymentMethod
	applyTo(tx *POSTransaction)
}

type CashPayment struct {
	Received int64
	Change   int64
}

func (CashPayment) Method() PaymentMethod { return PaymentCash }

func (p CashPayment) applyTo(tx *POSTransaction) {
	received, change := p.Received, p.Change
	tx.PaymentMethod = PaymentCash
	tx.CashReceived = &received
	tx.Change = &change
}

type NonCashPayment struct{}

func (NonCashPayment) Method() PaymentMethod { return PaymentNonCash }

func (NonCashPayment) applyTo(tx *POSTransaction) {
	tx.PaymentMethod = PaymentNonCash
	tx.CashReceived = nil
	tx.Change = nil
}

// SetPayment copies the payment summary onto the transaction.
func (t *POSTransaction) SetPayment(p Payment) {
	p.applyTo(t)
}

// Payment rebuilds the payment union from the stored fields.
func (t *POSTransaction) Payment() Payment {
	if t.PaymentMethod != PaymentCash {
		return NonCashPayment{}
	}
	p := CashPayment{}
	if t.CashReceived != nil {
		p.Received = *t.CashReceived
	}
	if t.Change != nil {
		p.Change = *t.Change
	}
	return p
}

// DateString formats t as a calendar day in loc.
func DateString(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(DateLayout)
}

// POSTransactionRecord is the stored form of a POSTransaction: the full
// document plus the columns range queries run on.
type POSTransactionRecord struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Timestamp  time.Time `gorm:"not null;index" json:"timestamp"`
	DateString string    `gorm:"type:varchar(10);not null;index" json:"date_string"`
	CashierID  string    `gorm:"type:varchar(255);index" json:"cashier_id"`
	Document   string    `gorm:"type:jsonb;not null" json:"document"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM
func (POSTransactionRecord) TableName() string {
	return "pos_transactions"
}

// NewPOSTransactionRecord encodes tx for storage. tx.ID must be a UUID.
func NewPOSTransactionRecord(tx *POSTransaction) (*POSTransactionRecord, error) {
	id, err := uuid.Parse(tx.ID)
	if err != nil {
		return nil, err
	}
	doc, err := json.Marshal(tx)
	if err != nil {
		return nil, err
	}
	return &POSTransactionRecord{
		ID:         id,
		Timestamp:  tx.Timestamp,
		DateString: tx.DateString,
		CashierID:  tx.CashierID,
		Document:   string(doc),
	}, nil
}
