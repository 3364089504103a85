package handler

import (
	"errors"

	"go-pos-checkout/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ErrorHandler renders errors returned by handlers as
// {"error": message, "code": kind, ...details}.
func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *fiber.Ctx, err error) error {
		status, body := errorBody(err)
		if status >= fiber.StatusInternalServerError {
			log.Error("request failed",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Error(err))
		}
		return c.Status(status).JSON(body)
	}
}

func errorBody(err error) (int, fiber.Map) {
	var (
		validation   *service.ValidationError
		badDate      *service.InvalidDateError
		noProduct    *service.ProductNotFoundError
		insufficient *service.InsufficientStockError
		conflict     *service.CommitConflictError
		fiberErr     *fiber.Error
	)

	switch {
	case errors.As(err, &validation):
		body := fiber.Map{"error": validation.Error(), "code": "validation"}
		if len(validation.Fields) > 0 {
			body["fields"] = validation.Fields
		}
		return fiber.StatusBadRequest, body
	case errors.As(err, &badDate):
		return fiber.StatusBadRequest, fiber.Map{"error": badDate.Error(), "code": "invalid_date", "input": badDate.Input}
	case errors.Is(err, service.ErrMissingCashier):
		return fiber.StatusUnauthorized, fiber.Map{"error": err.Error(), "code": "unauthorized"}
	case errors.As(err, &noProduct):
		return fiber.StatusNotFound, fiber.Map{"error": noProduct.Error(), "code": "product_not_found", "product_id": noProduct.ProductID}
	case errors.Is(err, service.ErrTransactionNotFound):
		return fiber.StatusNotFound, fiber.Map{"error": err.Error(), "code": "transaction_not_found"}
	case errors.Is(err, service.ErrCashierNotFound):
		return fiber.StatusNotFound, fiber.Map{"error": err.Error(), "code": "cashier_not_found"}
	case errors.As(err, &insufficient):
		return fiber.StatusConflict, fiber.Map{
			"error":        insufficient.Error(),
			"code":         "insufficient_stock",
			"product_id":   insufficient.ProductID,
			"product_name": insufficient.ProductName,
			"available":    insufficient.Available,
			"requested":    insufficient.Requested,
		}
	case errors.As(err, &conflict):
		return fiber.StatusConflict, fiber.Map{"error": conflict.Error(), "code": "commit_conflict", "product_id": conflict.ProductID}
	case errors.Is(err, service.ErrSKUExists):
		return fiber.StatusConflict, fiber.Map{"error": err.Error(), "code": "sku_exists"}
	case errors.As(err, &fiberErr):
		return fiberErr.Code, fiber.Map{"error": fiberErr.Message, "code": "http"}
	default:
		return fiber.StatusInternalServerError, fiber.Map{"error": "Internal Server Error", "code": "internal"}
	}
}

// invalidJSON is returned when the body does not parse.
var invalidJSON = &service.ValidationError{Message: "Invalid JSON"}
