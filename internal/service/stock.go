package service

import (
	"context"
	"errors"
	"time"

	"go-pos-checkout/internal/model"
	"go-pos-checkout/internal/repository"

	"github.com/google/uuid"
)

// StockReservation is a validated stock reading: the committer writes
// CurrentStock - QuantityToReduce only while the stored stock is still
// CurrentStock.
type StockReservation struct {
	ProductID        uuid.UUID        `json:"product_id"`
	Product          model.ProductRef `json:"product"`
	CurrentStock     int              `json:"current_stock"`
	QuantityToReduce int              `json:"quantity_to_reduce"`
}

type StockValidator struct {
	store repository.Store
}

func NewStockValidator(store repository.Store) *StockValidator {
	return &StockValidator{store: store}
}

// Validate reads every product in one store transaction and writes nothing.
func (v *StockValidator) Validate(ctx context.Context, lines []StockLine) ([]StockReservation, error) {
	var reservations []StockReservation
	err := v.store.Transaction(ctx, func(tx repository.Repositories) error {
		var err error
		reservations, err = v.Check(ctx, tx.Products(), lines)
		return err
	})
	if err != nil {
		return nil, err
	}
	return reservations, nil
}

// Check runs the validation against products, usually bound to an open
// checkout transaction.
func (v *StockValidator) Check(ctx context.Context, products repository.ProductRepository, lines []StockLine) ([]StockReservation, error) {
	lines = mergeLines(lines)
	reservations := make([]StockReservation, 0, len(lines))
	for _, line := range lines {
		product, err := products.FindByID(ctx, line.ProductID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &ProductNotFoundError{ProductID: line.ProductID.String()}
		}
		if err != nil {
			return nil, err
		}
		if product.Stock < line.Quantity {
			return nil, &InsufficientStockError{
				ProductID:   product.ID.String(),
				ProductName: product.Name,
				Available:   product.Stock,
				Requested:   line.Quantity,
			}
		}
		reservations = append(reservations, StockReservation{
			ProductID:        product.ID,
			Product:          product.Ref(product.Price),
			CurrentStock:     product.Stock,
			QuantityToReduce: line.Quantity,
		})
	}
	return reservations, nil
}

type StockCommitter struct{}

// Commit decrements every reservation with a compare-and-swap on the read
// stock. It must run inside the transaction the reservations were read in
// so a miss rolls back the writes already made.
func (StockCommitter) Commit(ctx context.Context, products repository.ProductRepository, reservations []StockReservation, cashier model.CashierRef, at time.Time) error {
	for _, r := range reservations {
		ok, err := products.CompareAndSetStock(ctx, r.ProductID, r.CurrentStock, r.CurrentStock-r.QuantityToReduce, cashier.ID, at)
		if err != nil {
			return err
		}
		if !ok {
			return &CommitConflictError{ProductID: r.ProductID.String()}
		}
	}
	return nil
}
