package service

import (
	"errors"
	"fmt"

	"go-pos-checkout/pkg/validator"
)

var (
	ErrProductNotFound     = errors.New("product not found")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrCommitConflict      = errors.New("stock changed by a concurrent checkout")
	ErrInvalidRequest      = errors.New("invalid request")
	ErrMissingCashier      = errors.New("missing cashier identity")
	ErrInvalidDate         = errors.New("invalid date")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrRecordWrite         = errors.New("failed to record transaction")
	ErrAggregateUpdate     = errors.New("failed to update daily sales")
	ErrSKUExists           = errors.New("SKU already exists")
)

type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

func (e *ProductNotFoundError) Is(target error) bool { return target == ErrProductNotFound }

type InsufficientStockError struct {
	ProductID   string
	ProductName string
	Available   int
	Requested   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: available %d, requested %d", e.ProductName, e.Available, e.Requested)
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

type CommitConflictError struct {
	ProductID string
}

func (e *CommitConflictError) Error() string {
	return fmt.Sprintf("stock of product %s changed during checkout", e.ProductID)
}

func (e *CommitConflictError) Is(target error) bool { return target == ErrCommitConflict }

// ValidationError is a rejected request. Fields is set when the failure
// came from struct tags.
type ValidationError struct {
	Message string
	Fields  []*validator.ErrorResponse
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if len(e.Fields) > 0 {
		f := e.Fields[0]
		return fmt.Sprintf("validation failed: field '%s' failed on tag '%s'", f.FailedField, f.Tag)
	}
	return ErrInvalidRequest.Error()
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidRequest }

func invalidf(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

type InvalidDateError struct {
	Input string
}

func (e *InvalidDateError) Error() string {
	return fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", e.Input)
}

func (e *InvalidDateError) Is(target error) bool { return target == ErrInvalidDate }

// RecordWriteError wraps a failed write of the sale document or its outbox
// event. The surrounding store transaction is rolled back with it.
type RecordWriteError struct {
	TransactionID string
	Err           error
}

func (e *RecordWriteError) Error() string {
	return fmt.Sprintf("record transaction %s: %v", e.TransactionID, e.Err)
}

func (e *RecordWriteError) Unwrap() error { return e.Err }

func (e *RecordWriteError) Is(target error) bool { return target == ErrRecordWrite }

type AggregateUpdateError struct {
	Date string
	Err  error
}

func (e *AggregateUpdateError) Error() string {
	return fmt.Sprintf("daily sales %s: %v", e.Date, e.Err)
}

func (e *AggregateUpdateError) Unwrap() error { return e.Err }

func (e *AggregateUpdateError) Is(target error) bool { return target == ErrAggregateUpdate }
