package service

import (
	"context"
	"encoding/json"
	"time"

	"go-pos-checkout/internal/model"
	"go-pos-checkout/internal/repository"

	"github.com/google/uuid"
)

// TransactionRecorder writes the sale document and the outbox event the
// ledger and daily aggregate are derived from.
type TransactionRecorder struct {
	loc *time.Location
}

func NewTransactionRecorder(loc *time.Location) *TransactionRecorder {
	if loc == nil {
		loc = time.UTC
	}
	return &TransactionRecorder{loc: loc}
}

func (r *TransactionRecorder) Record(ctx context.Context, tx repository.Repositories, draft *checkoutDraft, reservations []StockReservation, cashier model.CashierRef, at time.Time) (*model.POSTransaction, error) {
	refs := make(map[uuid.UUID]model.ProductRef, len(reservations))
	for _, res := range reservations {
		refs[res.ProductID] = res.Product
	}

	sale := &model.POSTransaction{
		ID:          uuid.New().String(),
		Items:       make([]model.CartItem, 0, len(draft.Lines)),
		TotalAmount: draft.Total,
		Status:      model.TxStatusCompleted,
		CashierID:   cashier.ID,
		CashierName: cashier.Name,
		Timestamp:   at,
		DateString:  model.DateString(at, r.loc),
	}
	for _, line := range draft.Lines {
		ref := refs[line.ProductID]
		ref.Price = line.Price
		sale.Items = append(sale.Items, model.CartItem{
			ID:         line.ID,
			Product:    ref,
			Quantity:   line.Quantity,
			Price:      line.Price,
			TotalPrice: line.TotalPrice,
		})
	}
	sale.SetPayment(draft.Payment)

	record, err := model.NewPOSTransactionRecord(sale)
	if err != nil {
		return nil, &RecordWriteError{TransactionID: sale.ID, Err: err}
	}
	record.CreatedAt = at
	if err := tx.Transactions().Create(ctx, record); err != nil {
		return nil, &RecordWriteError{TransactionID: sale.ID, Err: err}
	}

	payload, err := json.Marshal(model.SaleRecorded{
		TransactionID: record.ID,
		DateString:    sale.DateString,
		TotalAmount:   sale.TotalAmount,
		PaymentMethod: sale.PaymentMethod,
		CashierID:     sale.CashierID,
		ItemCount:     len(sale.Items),
		Timestamp:     sale.Timestamp,
	})
	if err != nil {
		return nil, &RecordWriteError{TransactionID: sale.ID, Err: err}
	}
	event := &model.OutboxEvent{
		Kind:          model.EventSaleRecorded,
		AggregateID:   record.ID,
		Payload:       string(payload),
		Status:        model.OutboxPending,
		NextAttemptAt: at,
		CreatedAt:     at,
	}
	if err := tx.Outbox().Enqueue(ctx, event); err != nil {
		return nil, &RecordWriteError{TransactionID: sale.ID, Err: err}
	}
	return sale, nil
}
