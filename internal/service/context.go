package service

import (
	"context"

	"go-pos-checkout/internal/model"
)

type cashierKey struct{}

// WithCashier attaches the operator a request acts for.
func WithCashier(ctx context.Context, cashier model.CashierRef) context.Context {
	return context.WithValue(ctx, cashierKey{}, cashier)
}

func CashierFromContext(ctx context.Context) (model.CashierRef, bool) {
	cashier, ok := ctx.Value(cashierKey{}).(model.CashierRef)
	if !ok || cashier.ID == "" {
		return model.CashierRef{}, false
	}
	return cashier, true
}
