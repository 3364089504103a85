package handler

import (
	"go-pos-checkout/internal/middleware"
	"go-pos-checkout/internal/service"

	"github.com/gofiber/fiber/v2"
)

type CashierHandler struct {
	service service.CashierService
}

func NewCashierHandler(s service.CashierService) *CashierHandler {
	return &CashierHandler{service: s}
}

func (h *CashierHandler) GetCashiers(c *fiber.Ctx) error {
	cashiers, err := h.service.ListActive(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(cashiers)
}

func (h *CashierHandler) Me(c *fiber.Ctx) error {
	cashier := middleware.CurrentCashier(c)
	if cashier == nil {
		return service.ErrMissingCashier
	}
	privileges, _ := c.Locals(middleware.LocalPrivileges).([]string)
	return c.JSON(fiber.Map{"cashier": cashier, "privileges": privileges})
}
