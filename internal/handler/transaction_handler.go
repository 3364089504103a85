package handler

import (
	"errors"
	"time"

	"go-pos-checkout/internal/model"
	"go-pos-checkout/internal/receipt"
	"go-pos-checkout/internal/service"

	"github.com/gofiber/fiber/v2"
)

type TransactionHandler struct {
	checkout service.CheckoutService
	query    *service.TransactionQueryService
	receipt  receipt.Options
}

func NewTransactionHandler(checkout service.CheckoutService, query *service.TransactionQueryService, receiptOpts receipt.Options) *TransactionHandler {
	if receiptOpts.Location == nil {
		receiptOpts.Location = query.Location()
	}
	return &TransactionHandler{checkout: checkout, query: query, receipt: receiptOpts}
}

func (h *TransactionHandler) CreateTransaction(c *fiber.Ctx) error {
	var req service.CheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON
	}

	tx, err := h.checkout.ProcessPOSTransaction(c.UserContext(), &req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": tx.ID, "data": tx})
}

// GetDay lists one business day (?date=YYYY-MM-DD, default today). An
// unparsable date falls back to today with a warning instead of failing.
func (h *TransactionHandler) GetDay(c *fiber.Ctx) error {
	snap, err := h.query.Day(c.UserContext(), c.Query("date"))
	var warning string
	if errors.Is(err, service.ErrInvalidDate) {
		warning = err.Error()
	} else if err != nil {
		return err
	}

	body := fiber.Map{
		"date":         snap.Date,
		"transactions": snap.Transactions,
		"skipped":      snap.Skipped,
		"summary":      service.Summarize(snap.Transactions),
	}
	if warning != "" {
		body["warning"] = warning
	}
	return c.JSON(body)
}

func (h *TransactionHandler) GetRange(c *fiber.Ctx) error {
	start, end, err := h.window(c)
	if err != nil {
		return err
	}
	txs, err := h.query.GetTransactionsByRange(c.UserContext(), start, end)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"start": start, "end": end, "transactions": txs})
}

func (h *TransactionHandler) GetSummary(c *fiber.Ctx) error {
	start, end, err := h.window(c)
	if err != nil {
		return err
	}
	summary, err := h.query.GetSummary(c.UserContext(), start, end)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"start": start, "end": end, "summary": summary})
}

func (h *TransactionHandler) GetTransaction(c *fiber.Ctx) error {
	tx, err := h.query.GetTransaction(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(tx)
}

func (h *TransactionHandler) GetReceipt(c *fiber.Ctx) error {
	tx, err := h.query.GetTransaction(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return c.SendString(receipt.Render(tx, h.receipt))
}

// window reads ?start=&end=. Each bound is RFC 3339 or a YYYY-MM-DD day in
// the business time zone; a day given as end includes that whole day.
func (h *TransactionHandler) window(c *fiber.Ctx) (time.Time, time.Time, error) {
	loc := h.query.Location()
	start, err := parseBound(c.Query("start"), loc, false)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := parseBound(c.Query("end"), loc, true)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

func parseBound(raw string, loc *time.Location, isEnd bool) (time.Time, error) {
	if raw == "" {
		return time.Time{}, &service.ValidationError{Message: "start and end are required"}
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	day, err := time.ParseInLocation(model.DateLayout, raw, loc)
	if err != nil {
		return time.Time{}, &service.InvalidDateError{Input: raw}
	}
	if isEnd {
		day = day.AddDate(0, 0, 1)
	}
	return day, nil
}
