// Package memory is an in-process repository.Store. Transactions are
// serialized and applied to a copy of the data that replaces the live
// state only when the callback succeeds.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"go-pos-checkout/internal/model"
	"go-pos-checkout/internal/repository"

	"github.com/google/uuid"
)

// Op names a store operation for fault injection.
type Op string

const (
	OpCompareAndSetStock Op = "products.compare_and_set_stock"
	OpCreateTransaction  Op = "transactions.create"
	OpCreateFinancial    Op = "financials.create_if_absent"
	OpIncrementDaily     Op = "daily_sales.increment"
	OpEnqueueOutbox      Op = "outbox.enqueue"
)

type state struct {
	products     map[uuid.UUID]model.Product
	cashiers     map[uuid.UUID]model.Cashier
	transactions map[uuid.UUID]model.POSTransactionRecord
	financials   map[uuid.UUID]model.FinancialTransaction // keyed by transaction id
	daily        map[string]model.DailySales
	outbox       map[uuid.UUID]model.OutboxEvent
}

func newState() *state {
	return &state{
		products:     map[uuid.UUID]model.Product{},
		cashiers:     map[uuid.UUID]model.Cashier{},
		transactions: map[uuid.UUID]model.POSTransactionRecord{},
		financials:   map[uuid.UUID]model.FinancialTransaction{},
		daily:        map[string]model.DailySales{},
		outbox:       map[uuid.UUID]model.OutboxEvent{},
	}
}

func (st *state) clone() *state {
	c := newState()
	for k, v := range st.products {
		c.products[k] = v
	}
	for k, v := range st.cashiers {
		c.cashiers[k] = v
	}
	for k, v := range st.transactions {
		c.transactions[k] = v
	}
	for k, v := range st.financials {
		c.financials[k] = v
	}
	for k, v := range st.daily {
		c.daily[k] = v
	}
	for k, v := range st.outbox {
		c.outbox[k] = v
	}
	return c
}

type fault struct {
	remaining int
	err       error
	apply     func(live *state)
}

// Store implements repository.Store.
type Store struct {
	mu     sync.Mutex
	st     *state
	faults map[Op]*fault
	now    func() time.Time
}

func New() *Store {
	return &Store{
		st:     newState(),
		faults: map[Op]*fault{},
		now:    time.Now,
	}
}

// FailNext makes the next n calls of op fail with err. For
// OpCompareAndSetStock a nil err reports a lost compare-and-swap instead.
func (s *Store) FailNext(op Op, n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[op] = &fault{remaining: n, err: err}
}

// InterleaveStockWrite simulates another checkout committing newStock for
// id right before the next compare-and-swap, which then misses.
func (s *Store) InterleaveStockWrite(id uuid.UUID, newStock int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[OpCompareAndSetStock] = &fault{remaining: 1, apply: func(live *state) {
		if p, ok := live.products[id]; ok {
			p.Stock = newStock
			live.products[id] = p
		}
	}}
}

// PutRecord stores a raw transaction record as is. Used to load documents
// written by other clients.
func (s *Store) PutRecord(record model.POSTransactionRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.transactions[record.ID] = record
}

// SetStock overwrites a product's stock outside any transaction.
func (s *Store) SetStock(id uuid.UUID, stock int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.st.products[id]; ok {
		p.Stock = stock
		s.st.products[id] = p
	}
}

// OutboxEvents returns every outbox event, oldest first.
func (s *Store) OutboxEvents() []model.OutboxEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	events := make([]model.OutboxEvent, 0, len(s.st.outbox))
	for _, ev := range s.st.outbox {
		events = append(events, ev)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].CreatedAt.Before(events[j].CreatedAt) })
	return events
}

func (s *Store) Products() repository.ProductRepository         { return &productRepo{unit{s: s}} }
func (s *Store) Cashiers() repository.CashierRepository         { return &cashierRepo{unit{s: s}} }
func (s *Store) Transactions() repository.TransactionRepository { return &transactionRepo{unit{s: s}} }
func (s *Store) Financials() repository.FinancialRepository     { return &financialRepo{unit{s: s}} }
func (s *Store) DailySales() repository.DailySalesRepository    { return &dailySalesRepo{unit{s: s}} }
func (s *Store) Outbox() repository.OutboxRepository            { return &outboxRepo{unit{s: s}} }

func (s *Store) Transaction(ctx context.Context, fn func(tx repository.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.st.clone()
	if err := fn(&txRepos{unit{s: s, st: work}}); err != nil {
		return err
	}
	s.st = work
	return nil
}

// unit is bound either to the live state (st == nil, locks per call) or to
// the working copy of an open transaction (already locked).
type unit struct {
	s  *Store
	st *state
}

func (u unit) do(fn func(st *state) error) error {
	if u.st != nil {
		return fn(u.st)
	}
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	return fn(u.s.st)
}

// injected must be called with the store lock held.
func (u unit) injected(op Op) (bool, error) {
	f, ok := u.s.faults[op]
	if !ok || f.remaining == 0 {
		return false, nil
	}
	f.remaining--
	if f.apply != nil {
		f.apply(u.s.st)
	}
	return true, f.err
}

type txRepos struct {
	u unit
}

func (t *txRepos) Products() repository.ProductRepository         { return &productRepo{t.u} }
func (t *txRepos) Cashiers() repository.CashierRepository         { return &cashierRepo{t.u} }
func (t *txRepos) Transactions() repository.TransactionRepository { return &transactionRepo{t.u} }
func (t *txRepos) Financials() repository.FinancialRepository     { return &financialRepo{t.u} }
func (t *txRepos) DailySales() repository.DailySalesRepository    { return &dailySalesRepo{t.u} }
func (t *txRepos) Outbox() repository.OutboxRepository            { return &outboxRepo{t.u} }
