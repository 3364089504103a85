package handler

import (
	"time"

	"go-pos-checkout/internal/service"

	"github.com/gofiber/fiber/v2"
)

type DashboardHandler struct {
	service service.ReportService
	loc     *time.Location
	now     func() time.Time
}

func NewDashboardHandler(s service.ReportService, loc *time.Location, clock func() time.Time) *DashboardHandler {
	if loc == nil {
		loc = time.UTC
	}
	if clock == nil {
		clock = time.Now
	}
	return &DashboardHandler{service: s, loc: loc, now: clock}
}

// GetDashboardStats returns overview statistics
func (h *DashboardHandler) GetDashboardStats(c *fiber.Ctx) error {
	stats, err := h.service.GetDashboardStats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(stats)
}

func (h *DashboardHandler) GetDailySales(c *fiber.Ctx) error {
	row, err := h.service.GetDailySales(c.UserContext(), c.Params("date"))
	if err != nil {
		return err
	}
	return c.JSON(row)
}

// GetMonthlySales lists daily rows of ?year=&month=, default the current month.
func (h *DashboardHandler) GetMonthlySales(c *fiber.Ctx) error {
	now := h.now().In(h.loc)
	year := c.QueryInt("year", now.Year())
	month := c.QueryInt("month", int(now.Month()))

	rows, err := h.service.GetMonthlySales(c.UserContext(), year, month)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"year": year, "month": month, "data": rows})
}

// Query params: limit (default 7)
func (h *DashboardHandler) GetRecentDailySales(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", service.DefaultRecentDays)
	rows, err := h.service.GetRecentDailySales(c.UserContext(), limit)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"limit": limit, "data": rows})
}

// GetFinancialSummary reads the ledger for ?range=7d|1m|3m|6m|12m. Ranges
// are whole business days up to and including today.
func (h *DashboardHandler) GetFinancialSummary(c *fiber.Ctx) error {
	rangeParam := c.Query("range", "7d")
	today := h.now().In(h.loc)
	end := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, h.loc).AddDate(0, 0, 1)
	var start time.Time

	switch rangeParam {
	case "1m":
		start = end.AddDate(0, -1, 0)
	case "3m":
		start = end.AddDate(0, -3, 0)
	case "6m":
		start = end.AddDate(0, -6, 0)
	case "12m":
		start = end.AddDate(0, -12, 0)
	default:
		rangeParam = "7d"
		start = end.AddDate(0, 0, -7)
	}

	summary, err := h.service.GetFinancialSummary(c.UserContext(), start, end)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"range": rangeParam, "start": start, "end": end, "summary": summary})
}
