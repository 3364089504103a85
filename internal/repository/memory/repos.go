package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"go-pos-checkout/internal/model"
	"go-pos-checkout/internal/repository"

	"github.com/google/uuid"
)

type productRepo struct{ u unit }

func (r *productRepo) Create(_ context.Context, product *model.Product) error {
	return r.u.do(func(st *state) error {
		if product.ID == uuid.Nil {
			product.ID = uuid.New()
		}
		if _, ok := st.products[product.ID]; ok {
			return repository.ErrDuplicate
		}
		for _, p := range st.products {
			if p.SKU == product.SKU {
				return repository.ErrDuplicate
			}
		}
		now := r.u.s.now()
		product.CreatedAt, product.UpdatedAt = now, now
		st.products[product.ID] = *product
		return nil
	})
}

func (r *productRepo) FindAll(_ context.Context) ([]model.Product, error) {
	var products []model.Product
	err := r.u.do(func(st *state) error {
		for _, p := range st.products {
			products = append(products, p)
		}
		return nil
	})
	sort.Slice(products, func(i, j int) bool { return products[i].Name < products[j].Name })
	return products, err
}

func (r *productRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	err := r.u.do(func(st *state) error {
		p, ok := st.products[id]
		if !ok {
			return repository.ErrNotFound
		}
		product = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// FindByIDForUpdate needs no lock here: transactions already run one at a
// time.
func (r *productRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	return r.FindByID(ctx, id)
}

func (r *productRepo) FindBySKU(_ context.Context, sku string) (*model.Product, error) {
	var product model.Product
	err := r.u.do(func(st *state) error {
		for _, p := range st.products {
			if p.SKU == sku {
				product = p
				return nil
			}
		}
		return repository.ErrNotFound
	})
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepo) Update(_ context.Context, product *model.Product) error {
	return r.u.do(func(st *state) error {
		if _, ok := st.products[product.ID]; !ok {
			return repository.ErrNotFound
		}
		for id, p := range st.products {
			if id != product.ID && p.SKU == product.SKU {
				return repository.ErrDuplicate
			}
		}
		product.UpdatedAt = r.u.s.now()
		st.products[product.ID] = *product
		return nil
	})
}

func (r *productRepo) CompareAndSetStock(_ context.Context, id uuid.UUID, expected, newStock int, updatedBy string, at time.Time) (bool, error) {
	swapped := false
	err := r.u.do(func(st *state) error {
		if hit, err := r.u.injected(OpCompareAndSetStock); hit {
			return err
		}
		p, ok := st.products[id]
		if !ok || p.Stock != expected {
			return nil
		}
		p.Stock = newStock
		p.UpdatedBy = updatedBy
		p.UpdatedAt = at
		st.products[id] = p
		swapped = true
		return nil
	})
	return swapped, err
}

func (r *productRepo) Stats(_ context.Context, lowStockThreshold int) (*model.InventoryStats, error) {
	var stats model.InventoryStats
	err := r.u.do(func(st *state) error {
		for _, p := range st.products {
			stats.TotalProducts++
			if p.Stock < lowStockThreshold {
				stats.LowStockCount++
			}
			stats.TotalValuation += int64(p.Stock) * p.Price
		}
		return nil
	})
	return &stats, err
}

type cashierRepo struct{ u unit }

func (r *cashierRepo) Create(_ context.Context, cashier *model.Cashier) error {
	return r.u.do(func(st *state) error {
		if cashier.ID == uuid.Nil {
			cashier.ID = uuid.New()
		}
		for _, c := range st.cashiers {
			if strings.EqualFold(c.Email, cashier.Email) {
				return repository.ErrDuplicate
			}
		}
		now := r.u.s.now()
		cashier.CreatedAt, cashier.UpdatedAt = now, now
		st.cashiers[cashier.ID] = *cashier
		return nil
	})
}

func (r *cashierRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Cashier, error) {
	var cashier model.Cashier
	err := r.u.do(func(st *state) error {
		c, ok := st.cashiers[id]
		if !ok {
			return repository.ErrNotFound
		}
		cashier = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &cashier, nil
}

func (r *cashierRepo) FindByEmail(_ context.Context, email string) (*model.Cashier, error) {
	var cashier model.Cashier
	err := r.u.do(func(st *state) error {
		for _, c := range st.cashiers {
			if strings.EqualFold(c.Email, email) {
				cashier = c
				return nil
			}
		}
		return repository.ErrNotFound
	})
	if err != nil {
		return nil, err
	}
	return &cashier, nil
}

func (r *cashierRepo) FindActive(_ context.Context) ([]model.Cashier, error) {
	var cashiers []model.Cashier
	err := r.u.do(func(st *state) error {
		for _, c := range st.cashiers {
			if c.IsActive {
				cashiers = append(cashiers, c)
			}
		}
		return nil
	})
	sort.Slice(cashiers, func(i, j int) bool { return cashiers[i].Name < cashiers[j].Name })
	return cashiers, err
}

func (r *cashierRepo) UpdateTokenVersion(_ context.Context, id uuid.UUID, version string) error {
	return r.u.do(func(st *state) error {
		c, ok := st.cashiers[id]
		if !ok {
			return repository.ErrNotFound
		}
		c.TokenVersion = version
		st.cashiers[id] = c
		return nil
	})
}

type transactionRepo struct{ u unit }

func (r *transactionRepo) Create(_ context.Context, record *model.POSTransactionRecord) error {
	return r.u.do(func(st *state) error {
		if hit, err := r.u.injected(OpCreateTransaction); hit && err != nil {
			return err
		}
		if _, ok := st.transactions[record.ID]; ok {
			return repository.ErrDuplicate
		}
		if record.CreatedAt.IsZero() {
			record.CreatedAt = r.u.s.now()
		}
		st.transactions[record.ID] = *record
		return nil
	})
}

func (r *transactionRepo) FindByID(_ context.Context, id uuid.UUID) (*model.POSTransactionRecord, error) {
	var record model.POSTransactionRecord
	err := r.u.do(func(st *state) error {
		rec, ok := st.transactions[id]
		if !ok {
			return repository.ErrNotFound
		}
		record = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *transactionRepo) FindByTimeRange(_ context.Context, start, end time.Time) ([]model.POSTransactionRecord, error) {
	var records []model.POSTransactionRecord
	err := r.u.do(func(st *state) error {
		for _, rec := range st.transactions {
			if !rec.Timestamp.Before(start) && rec.Timestamp.Before(end) {
				records = append(records, rec)
			}
		}
		return nil
	})
	sort.Slice(records, func(i, j int) bool { return records[i].Timestamp.After(records[j].Timestamp) })
	return records, err
}

type financialRepo struct{ u unit }

func (r *financialRepo) CreateIfAbsent(_ context.Context, entry *model.FinancialTransaction) (bool, error) {
	created := false
	err := r.u.do(func(st *state) error {
		if hit, err := r.u.injected(OpCreateFinancial); hit && err != nil {
			return err
		}
		if _, ok := st.financials[entry.TransactionID]; ok {
			return nil
		}
		if entry.ID == uuid.Nil {
			entry.ID = uuid.New()
		}
		st.financials[entry.TransactionID] = *entry
		created = true
		return nil
	})
	return created, err
}

func (r *financialRepo) FindByTransactionID(_ context.Context, transactionID uuid.UUID) (*model.FinancialTransaction, error) {
	var entry model.FinancialTransaction
	err := r.u.do(func(st *state) error {
		e, ok := st.financials[transactionID]
		if !ok {
			return repository.ErrNotFound
		}
		entry = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *financialRepo) Summary(_ context.Context, start, end time.Time) (*model.FinancialSummary, error) {
	var summary model.FinancialSummary
	err := r.u.do(func(st *state) error {
		for _, e := range st.financials {
			if e.Timestamp.Before(start) || !e.Timestamp.Before(end) {
				continue
			}
			switch e.Type {
			case model.FinancialIncome:
				summary.TotalSales += e.Amount
				if e.Category == model.CategorySales {
					summary.TransactionCount++
				}
			case model.FinancialExpense:
				summary.TotalExpenses += e.Amount
			}
		}
		return nil
	})
	summary.NetProfit = summary.TotalSales - summary.TotalExpenses
	return &summary, err
}

type dailySalesRepo struct{ u unit }

func (r *dailySalesRepo) Increment(_ context.Context, date string, amount int64, at time.Time) error {
	return r.u.do(func(st *state) error {
		if hit, err := r.u.injected(OpIncrementDaily); hit && err != nil {
			return err
		}
		row := st.daily[date]
		row.Date = date
		row.TotalSales += amount
		row.TransactionCount++
		row.UpdatedAt = at
		st.daily[date] = row
		return nil
	})
}

func (r *dailySalesRepo) FindByDate(_ context.Context, date string) (*model.DailySales, error) {
	var row model.DailySales
	err := r.u.do(func(st *state) error {
		d, ok := st.daily[date]
		if !ok {
			return repository.ErrNotFound
		}
		row = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *dailySalesRepo) FindByDateRange(_ context.Context, from, to string) ([]model.DailySales, error) {
	var rows []model.DailySales
	err := r.u.do(func(st *state) error {
		for date, d := range st.daily {
			if date >= from && date <= to {
				rows = append(rows, d)
			}
		}
		return nil
	})
	sort.Slice(rows, func(i, j int) bool { return rows[i].Date < rows[j].Date })
	return rows, err
}

func (r *dailySalesRepo) FindRecent(_ context.Context, limit int) ([]model.DailySales, error) {
	var rows []model.DailySales
	err := r.u.do(func(st *state) error {
		for _, d := range st.daily {
			rows = append(rows, d)
		}
		return nil
	})
	sort.Slice(rows, func(i, j int) bool { return rows[i].Date > rows[j].Date })
	if limit >= 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, err
}

type outboxRepo struct{ u unit }

func (r *outboxRepo) Enqueue(_ context.Context, event *model.OutboxEvent) error {
	return r.u.do(func(st *state) error {
		if hit, err := r.u.injected(OpEnqueueOutbox); hit && err != nil {
			return err
		}
		if event.ID == uuid.Nil {
			event.ID = uuid.New()
		}
		if event.Status == "" {
			event.Status = model.OutboxPending
		}
		if event.CreatedAt.IsZero() {
			event.CreatedAt = r.u.s.now()
		}
		st.outbox[event.ID] = *event
		return nil
	})
}

func (r *outboxRepo) FindDue(_ context.Context, now time.Time, limit int) ([]model.OutboxEvent, error) {
	var events []model.OutboxEvent
	err := r.u.do(func(st *state) error {
		for _, ev := range st.outbox {
			if ev.Status == model.OutboxPending && !ev.NextAttemptAt.After(now) {
				events = append(events, ev)
			}
		}
		return nil
	})
	sort.Slice(events, func(i, j int) bool { return events[i].CreatedAt.Before(events[j].CreatedAt) })
	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	return events, err
}

func (r *outboxRepo) update(id uuid.UUID, fn func(ev *model.OutboxEvent)) error {
	return r.u.do(func(st *state) error {
		ev, ok := st.outbox[id]
		if !ok {
			return repository.ErrNotFound
		}
		fn(&ev)
		st.outbox[id] = ev
		return nil
	})
}

func (r *outboxRepo) MarkLedgerRecorded(_ context.Context, id uuid.UUID) error {
	return r.update(id, func(ev *model.OutboxEvent) { ev.LedgerRecorded = true })
}

// pending is update for the transitions that leave the pending state.
func (r *outboxRepo) pending(id uuid.UUID, fn func(ev *model.OutboxEvent)) error {
	return r.u.do(func(st *state) error {
		ev, ok := st.outbox[id]
		if !ok {
			return repository.ErrNotFound
		}
		if ev.Status != model.OutboxPending {
			return repository.ErrConflict
		}
		fn(&ev)
		st.outbox[id] = ev
		return nil
	})
}

func (r *outboxRepo) MarkProcessed(_ context.Context, id uuid.UUID, at time.Time) error {
	return r.pending(id, func(ev *model.OutboxEvent) {
		ev.Status = model.OutboxProcessed
		ev.ProcessedAt = &at
		ev.LastError = ""
	})
}

func (r *outboxRepo) MarkAttemptFailed(_ context.Context, id uuid.UUID, attempts int, lastErr string, nextAttemptAt time.Time, dead bool) error {
	return r.pending(id, func(ev *model.OutboxEvent) {
		ev.Attempts = attempts
		ev.LastError = lastErr
		ev.NextAttemptAt = nextAttemptAt
		ev.Status = model.OutboxPending
		if dead {
			ev.Status = model.OutboxDead
		}
	})
}
