package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go-pos-checkout/internal/feed"
	"go-pos-checkout/internal/model"
	"go-pos-checkout/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Snapshot is the full listing of one day at a point in time, newest first.
type Snapshot struct {
	Date         string                 `json:"date"`
	Transactions []model.POSTransaction `json:"transactions"`
	// Skipped counts stored documents left out as malformed.
	Skipped int `json:"skipped"`
}

// Summary aggregates a set of transactions.
type Summary struct {
	TotalSales          int64                         `json:"total_sales"`
	TransactionCount    int                           `json:"transaction_count"`
	PaymentMethodCounts map[model.PaymentMethod]int   `json:"payment_method_counts"`
	PaymentMethodTotals map[model.PaymentMethod]int64 `json:"payment_method_totals"`
}

// Summarize totals txs overall and per payment method.
func Summarize(txs []model.POSTransaction) Summary {
	s := Summary{
		PaymentMethodCounts: map[model.PaymentMethod]int{},
		PaymentMethodTotals: map[model.PaymentMethod]int64{},
	}
	for _, tx := range txs {
		s.TotalSales += tx.TotalAmount
		s.TransactionCount++
		s.PaymentMethodCounts[tx.PaymentMethod]++
		s.PaymentMethodTotals[tx.PaymentMethod] += tx.TotalAmount
	}
	return s
}

// Subscription delivers a fresh Snapshot of its day after every recorded
// sale. Only the latest snapshot is kept for a slow reader.
type Subscription struct {
	Date  string
	Start time.Time
	End   time.Time

	updates chan Snapshot
	cancel  context.CancelFunc
	once    sync.Once
}

func (s *Subscription) Updates() <-chan Snapshot { return s.updates }

func (s *Subscription) Close() {
	s.once.Do(s.cancel)
}

type TransactionQueryService struct {
	store repository.Store
	feed  feed.Feed
	loc   *time.Location
	now   func() time.Time
	log   *zap.Logger
}

func NewTransactionQueryService(store repository.Store, f feed.Feed, loc *time.Location, clock func() time.Time, log *zap.Logger) *TransactionQueryService {
	if loc == nil {
		loc = time.UTC
	}
	if clock == nil {
		clock = time.Now
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &TransactionQueryService{store: store, feed: f, loc: loc, now: clock, log: log.Named("query")}
}

// Location is the business time zone days are cut in.
func (q *TransactionQueryService) Location() *time.Location { return q.loc }

// DayWindow resolves date (YYYY-MM-DD, empty for today) to
// [startOfDay, startOfDay+1 day) in the business time zone. An invalid date
// resolves to today and is reported with an InvalidDateError.
func (q *TransactionQueryService) DayWindow(date string) (start, end time.Time, day string, err error) {
	var t time.Time
	if date != "" {
		t, err = time.ParseInLocation(model.DateLayout, date, q.loc)
		if err != nil {
			err = &InvalidDateError{Input: date}
		}
	}
	if date == "" || err != nil {
		t = q.now().In(q.loc)
	}
	start = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, q.loc)
	end = start.AddDate(0, 0, 1)
	return start, end, start.Format(model.DateLayout), err
}

// Day loads date once with the same rules as Subscribe: an invalid date
// yields today's snapshot together with an error matching ErrInvalidDate.
func (q *TransactionQueryService) Day(ctx context.Context, date string) (Snapshot, error) {
	start, end, day, dateErr := q.DayWindow(date)
	snap, err := q.loadDay(ctx, start, end, day)
	if err != nil {
		return Snapshot{}, err
	}
	return snap, dateErr
}

// Subscribe opens a live listing of date. The first snapshot is ready on
// Updates when Subscribe returns. For an invalid date the subscription for
// today is returned together with an error matching ErrInvalidDate; any
// other error means there is no subscription.
func (q *TransactionQueryService) Subscribe(ctx context.Context, date string) (*Subscription, error) {
	start, end, day, dateErr := q.DayWindow(date)

	subCtx, cancel := context.WithCancel(ctx)
	var events <-chan feed.Event
	if q.feed != nil {
		var err error
		events, err = q.feed.Subscribe(subCtx)
		if err != nil {
			cancel()
			return nil, err
		}
	}

	initial, err := q.loadDay(subCtx, start, end, day)
	if err != nil {
		cancel()
		return nil, err
	}

	sub := &Subscription{
		Date:    day,
		Start:   start,
		End:     end,
		updates: make(chan Snapshot, 1),
		cancel:  cancel,
	}
	sub.updates <- initial

	go q.follow(subCtx, sub, events)
	return sub, dateErr
}

func (q *TransactionQueryService) follow(ctx context.Context, sub *Subscription, events <-chan feed.Event) {
	defer close(sub.updates)
	if events == nil {
		<-ctx.Done()
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if !sub.wants(ev) {
				continue
			}
			snap, err := q.loadDay(ctx, sub.Start, sub.End, sub.Date)
			if err != nil {
				if ctx.Err() == nil {
					q.log.Warn("reload transactions", zap.String("date", sub.Date), zap.Error(err))
				}
				continue
			}
			// Replace an unread snapshot with the newer one.
			select {
			case <-sub.updates:
			default:
			}
			sub.updates <- snap
		}
	}
}

// wants reports whether ev may change the listing. After a Resync the
// missed events are unknown, so the day is always reloaded.
func (s *Subscription) wants(ev feed.Event) bool {
	switch ev.Type {
	case feed.Resync:
		return true
	case feed.TransactionRecorded:
		return s.covers(ev)
	}
	return false
}

func (s *Subscription) covers(ev feed.Event) bool {
	if !ev.Timestamp.IsZero() {
		return !ev.Timestamp.Before(s.Start) && ev.Timestamp.Before(s.End)
	}
	return ev.DateString == s.Date
}

// loadDay uses the strict decoder: malformed documents are skipped.
func (q *TransactionQueryService) loadDay(ctx context.Context, start, end time.Time, day string) (Snapshot, error) {
	records, err := q.store.Transactions().FindByTimeRange(ctx, start, end)
	if err != nil {
		return Snapshot{}, err
	}
	snap := Snapshot{Date: day, Transactions: make([]model.POSTransaction, 0, len(records))}
	for i := range records {
		tx, err := records[i].Decode()
		if err != nil {
			snap.Skipped++
			q.log.Debug("skipping malformed transaction", zap.String("id", records[i].ID.String()), zap.Error(err))
			continue
		}
		if tx.Timestamp.Before(start) || !tx.Timestamp.Before(end) {
			continue
		}
		snap.Transactions = append(snap.Transactions, tx)
	}
	sortNewestFirst(snap.Transactions)
	return snap, nil
}

// GetTransactionsByRange returns transactions with start <= timestamp < end,
// newest first. A document whose own timestamp is unusable keeps the
// record's indexed timestamp instead of being dropped.
func (q *TransactionQueryService) GetTransactionsByRange(ctx context.Context, start, end time.Time) ([]model.POSTransaction, error) {
	if !end.After(start) {
		return nil, invalidf("end must be after start")
	}
	records, err := q.store.Transactions().FindByTimeRange(ctx, start, end)
	if err != nil {
		return nil, err
	}
	txs := make([]model.POSTransaction, 0, len(records))
	for i := range records {
		tx, err := records[i].DecodeLenient()
		if err != nil {
			q.log.Debug("skipping malformed transaction", zap.String("id", records[i].ID.String()), zap.Error(err))
			continue
		}
		txs = append(txs, tx)
	}
	sortNewestFirst(txs)
	return txs, nil
}

func (q *TransactionQueryService) GetSummary(ctx context.Context, start, end time.Time) (*Summary, error) {
	txs, err := q.GetTransactionsByRange(ctx, start, end)
	if err != nil {
		return nil, err
	}
	s := Summarize(txs)
	return &s, nil
}

func (q *TransactionQueryService) GetTransaction(ctx context.Context, id string) (*model.POSTransaction, error) {
	txID, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrTransactionNotFound
	}
	record, err := q.store.Transactions().FindByID(ctx, txID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}
	tx, err := record.DecodeLenient()
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

func sortNewestFirst(txs []model.POSTransaction) {
	sort.SliceStable(txs, func(i, j int) bool { return txs[i].Timestamp.After(txs[j].Timestamp) })
}
