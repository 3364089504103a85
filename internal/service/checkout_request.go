package service

import (
	"math"

	"go-pos-checkout/internal/model"
	"go-pos-checkout/pkg/validator"

	"github.com/google/uuid"
)

// CheckoutItem is one cart line as submitted by the till.
type CheckoutItem struct {
	ID         string    `json:"id"`
	ProductID  uuid.UUID `json:"product_id" validate:"uuid_required"`
	Quantity   int       `json:"quantity" validate:"gt=0"`
	Price      int64     `json:"price" validate:"gte=0"`
	TotalPrice int64     `json:"total_price" validate:"gte=0"`
}

// CheckoutRequest is the body of POST /transactions.
type CheckoutRequest struct {
	Items         []CheckoutItem      `json:"items" validate:"required,min=1,dive"`
	PaymentMethod model.PaymentMethod `json:"payment_method" validate:"required,oneof=cash non_cash"`
	CashReceived  *int64              `json:"cash_received,omitempty" validate:"omitempty,gte=0"`
}

// checkoutDraft is a request that passed boundary validation.
type checkoutDraft struct {
	Lines   []CheckoutItem
	Total   int64
	Payment model.Payment
}

// StockLine is a quantity wanted of one product.
type StockLine struct {
	ProductID uuid.UUID `json:"product_id" validate:"uuid_required"`
	Quantity  int       `json:"quantity" validate:"gt=0"`
}

// Build validates the request and settles the payment. A zero TotalPrice is
// filled in from Price * Quantity; any other value must match it.
func (r *CheckoutRequest) Build() (*checkoutDraft, error) {
	if r == nil {
		return nil, invalidf("empty checkout request")
	}
	if errs := validator.ValidateStruct(r); len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}

	draft := &checkoutDraft{Lines: make([]CheckoutItem, len(r.Items))}
	quantities := map[uuid.UUID]int{}
	for i, item := range r.Items {
		if item.Price > math.MaxInt64/int64(item.Quantity) {
			return nil, invalidf("item %d: price x quantity overflows", i)
		}
		if quantities[item.ProductID] > math.MaxInt-item.Quantity {
			return nil, invalidf("item %d: quantity for product %s overflows", i, item.ProductID)
		}
		quantities[item.ProductID] += item.Quantity
		want := item.Price * int64(item.Quantity)
		switch {
		case item.TotalPrice == 0:
			item.TotalPrice = want
		case item.TotalPrice != want:
			return nil, invalidf("item %d: total_price %d does not equal price x quantity (%d)", i, item.TotalPrice, want)
		}
		if item.ID == "" {
			item.ID = item.ProductID.String()
		}
		if draft.Total > math.MaxInt64-item.TotalPrice {
			return nil, invalidf("cart total overflows at item %d", i)
		}
		draft.Lines[i] = item
		draft.Total += item.TotalPrice
	}

	switch r.PaymentMethod {
	case model.PaymentCash:
		if r.CashReceived == nil {
			return nil, invalidf("cash_received is required for cash payments")
		}
		if *r.CashReceived < draft.Total {
			return nil, invalidf("cash_received %d is less than total %d", *r.CashReceived, draft.Total)
		}
		draft.Payment = model.CashPayment{Received: *r.CashReceived, Change: *r.CashReceived - draft.Total}
	case model.PaymentNonCash:
		if r.CashReceived != nil {
			return nil, invalidf("cash_received is only allowed for cash payments")
		}
		draft.Payment = model.NonCashPayment{}
	}
	return draft, nil
}

func (d *checkoutDraft) stockLines() []StockLine {
	lines := make([]StockLine, len(d.Lines))
	for i, l := range d.Lines {
		lines[i] = StockLine{ProductID: l.ProductID, Quantity: l.Quantity}
	}
	return mergeLines(lines)
}

// mergeLines sums quantities per product, keeping first-seen order.
func mergeLines(in []StockLine) []StockLine {
	var out []StockLine
	index := map[uuid.UUID]int{}
	for _, l := range in {
		if i, ok := index[l.ProductID]; ok {
			out[i].Quantity += l.Quantity
			continue
		}
		index[l.ProductID] = len(out)
		out = append(out, l)
	}
	return out
}
