package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-pos-checkout/internal/model"
	"go-pos-checkout/internal/repository"
)

type ReportService interface {
	GetDailySales(ctx context.Context, date string) (*model.DailySales, error)
	GetMonthlySales(ctx context.Context, year, month int) ([]model.DailySales, error)
	GetRecentDailySales(ctx context.Context, limit int) ([]model.DailySales, error)
	GetFinancialSummary(ctx context.Context, start, end time.Time) (*model.FinancialSummary, error)
	GetDashboardStats(ctx context.Context) (*DashboardStats, error)
}

const DefaultRecentDays = 7

type DashboardStats struct {
	Inventory model.InventoryStats `json:"inventory"`
	Today     model.DailySales     `json:"today"`
}

type reportService struct {
	store             repository.Store
	loc               *time.Location
	now               func() time.Time
	lowStockThreshold int
}

func NewReportService(store repository.Store, loc *time.Location, clock func() time.Time, lowStockThreshold int) ReportService {
	if loc == nil {
		loc = time.UTC
	}
	if clock == nil {
		clock = time.Now
	}
	return &reportService{store: store, loc: loc, now: clock, lowStockThreshold: lowStockThreshold}
}

// GetDailySales returns a zero row for a day without sales.
func (s *reportService) GetDailySales(ctx context.Context, date string) (*model.DailySales, error) {
	if _, err := time.ParseInLocation(model.DateLayout, date, s.loc); err != nil {
		return nil, &InvalidDateError{Input: date}
	}
	row, err := s.store.DailySales().FindByDate(ctx, date)
	if errors.Is(err, repository.ErrNotFound) {
		return &model.DailySales{Date: date}, nil
	}
	return row, err
}

func (s *reportService) GetMonthlySales(ctx context.Context, year, month int) ([]model.DailySales, error) {
	if month < 1 || month > 12 || year < 1 {
		return nil, invalidf("invalid month %d-%d", year, month)
	}
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, s.loc)
	last := first.AddDate(0, 1, -1)
	return s.store.DailySales().FindByDateRange(ctx, first.Format(model.DateLayout), last.Format(model.DateLayout))
}

func (s *reportService) GetRecentDailySales(ctx context.Context, limit int) ([]model.DailySales, error) {
	if limit <= 0 {
		limit = DefaultRecentDays
	}
	return s.store.DailySales().FindRecent(ctx, limit)
}

func (s *reportService) GetFinancialSummary(ctx context.Context, start, end time.Time) (*model.FinancialSummary, error) {
	if !end.After(start) {
		return nil, invalidf("end must be after start")
	}
	return s.store.Financials().Summary(ctx, start, end)
}

func (s *reportService) GetDashboardStats(ctx context.Context) (*DashboardStats, error) {
	inv, err := s.store.Products().Stats(ctx, s.lowStockThreshold)
	if err != nil {
		return nil, fmt.Errorf("inventory stats: %w", err)
	}
	today, err := s.GetDailySales(ctx, model.DateString(s.now(), s.loc))
	if err != nil {
		return nil, err
	}
	return &DashboardStats{Inventory: *inv, Today: *today}, nil
}
