package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-pos-checkout/internal/feed"
	"go-pos-checkout/internal/model"
	"go-pos-checkout/internal/repository"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

type CheckoutService interface {
	ProcessPOSTransaction(ctx context.Context, req *CheckoutRequest) (*model.POSTransaction, error)
	ValidateStock(ctx context.Context, lines []StockLine) ([]StockReservation, error)
}

// RetryPolicy bounds the commit-conflict retry.
type RetryPolicy struct {
	MaxAttempts  uint
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

type checkoutService struct {
	store     repository.Store
	validator *StockValidator
	committer StockCommitter
	recorder  *TransactionRecorder
	feed      feed.Feed
	retry     RetryPolicy
	now       func() time.Time
	log       *zap.Logger
}

type CheckoutOptions struct {
	Location *time.Location
	Retry    RetryPolicy
	// Clock stamps sales; it stands in for the server timestamp.
	Clock  func() time.Time
	Logger *zap.Logger
}

func NewCheckoutService(store repository.Store, f feed.Feed, opts CheckoutOptions) CheckoutService {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry.MaxAttempts = 1
	}
	return &checkoutService{
		store:     store,
		validator: NewStockValidator(store),
		recorder:  NewTransactionRecorder(opts.Location),
		feed:      f,
		retry:     opts.Retry,
		now:       opts.Clock,
		log:       opts.Logger.Named("checkout"),
	}
}

func (s *checkoutService) ValidateStock(ctx context.Context, lines []StockLine) ([]StockReservation, error) {
	if len(lines) == 0 {
		return nil, invalidf("at least one line is required")
	}
	for i, l := range lines {
		if l.Quantity <= 0 {
			return nil, invalidf("line %d: quantity must be positive", i)
		}
	}
	return s.validator.Validate(ctx, lines)
}

// ProcessPOSTransaction validates stock, decrements it and records the sale
// in one store transaction. A lost compare-and-swap re-runs the whole
// transaction, validation included, up to the retry policy's attempts.
func (s *checkoutService) ProcessPOSTransaction(ctx context.Context, req *CheckoutRequest) (*model.POSTransaction, error) {
	cashier, ok := CashierFromContext(ctx)
	if !ok {
		return nil, ErrMissingCashier
	}
	draft, err := req.Build()
	if err != nil {
		return nil, err
	}
	lines := draft.stockLines()

	attempt := 0
	var committed []StockReservation
	operation := func() (*model.POSTransaction, error) {
		attempt++
		at := s.now()
		var sale *model.POSTransaction
		err := s.store.Transaction(ctx, func(tx repository.Repositories) error {
			reservations, err := s.validator.Check(ctx, tx.Products(), lines)
			if err != nil {
				return err
			}
			if err := s.committer.Commit(ctx, tx.Products(), reservations, cashier, at); err != nil {
				return err
			}
			sale, err = s.recorder.Record(ctx, tx, draft, reservations, cashier, at)
			committed = reservations
			return err
		})
		if errors.Is(err, ErrCommitConflict) {
			return nil, err
		}
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		return sale, nil
	}

	sale, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(s.backOff()),
		backoff.WithMaxTries(s.retry.MaxAttempts),
		backoff.WithNotify(func(err error, next time.Duration) {
			s.log.Debug("checkout conflict, retrying",
				zap.String("cashier_id", cashier.ID),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", next),
				zap.Error(err))
		}),
	)
	if err != nil {
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			err = perm.Err
		}
		if errors.Is(err, ErrCommitConflict) {
			s.log.Warn("checkout abandoned after conflicts", zap.Int("attempts", attempt), zap.Error(err))
		}
		return nil, err
	}

	s.log.Info("sale recorded",
		zap.String("transaction_id", sale.ID),
		zap.String("cashier_id", sale.CashierID),
		zap.Int64("total_amount", sale.TotalAmount),
		zap.String("payment_method", string(sale.PaymentMethod)),
		zap.Int("attempts", attempt))
	s.publish(ctx, sale, committed)
	return sale, nil
}

func (s *checkoutService) backOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if s.retry.InitialDelay > 0 {
		b.InitialInterval = s.retry.InitialDelay
	}
	if s.retry.MaxDelay > 0 {
		b.MaxInterval = s.retry.MaxDelay
	}
	return b
}

// publish is best effort; the sale is already committed.
func (s *checkoutService) publish(ctx context.Context, sale *model.POSTransaction, reservations []StockReservation) {
	if s.feed == nil {
		return
	}
	err := s.feed.Publish(ctx, feed.Event{
		Type:          feed.TransactionRecorded,
		Action:        "created",
		TransactionID: sale.ID,
		DateString:    sale.DateString,
		Timestamp:     sale.Timestamp,
		Data: map[string]interface{}{
			"total_amount":   sale.TotalAmount,
			"payment_method": sale.PaymentMethod,
			"cashier_name":   sale.CashierName,
			"item_count":     len(sale.Items),
		},
		Message: fmt.Sprintf("%s recorded a sale of %d", sale.CashierName, sale.TotalAmount),
	})
	if err != nil {
		s.log.Warn("publish sale", zap.String("transaction_id", sale.ID), zap.Error(err))
	}

	for _, r := range reservations {
		err := s.feed.Publish(ctx, feed.Event{
			Type:      feed.StockUpdate,
			Action:    "sold",
			Timestamp: sale.Timestamp,
			Data: map[string]interface{}{
				"id":        r.ProductID.String(),
				"name":      r.Product.Name,
				"old_stock": r.CurrentStock,
				"new_stock": r.CurrentStock - r.QuantityToReduce,
			},
		})
		if err != nil {
			s.log.Warn("publish stock update", zap.String("product_id", r.ProductID.String()), zap.Error(err))
		}
	}
}
