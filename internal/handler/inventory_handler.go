package handler

import (
	"go-pos-checkout/internal/model"
	"go-pos-checkout/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type InventoryHandler struct {
	service  service.InventoryService
	checkout service.CheckoutService
}

func NewInventoryHandler(s service.InventoryService, checkout service.CheckoutService) *InventoryHandler {
	return &InventoryHandler{service: s, checkout: checkout}
}

func productID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, &service.ValidationError{Message: "Invalid product ID"}
	}
	return id, nil
}

func (h *InventoryHandler) CreateProduct(c *fiber.Ctx) error {
	var product model.Product
	if err := c.BodyParser(&product); err != nil {
		return invalidJSON
	}
	product.ID = uuid.Nil

	if err := h.service.CreateProduct(c.UserContext(), &product); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Product created", "data": product})
}

func (h *InventoryHandler) UpdateProduct(c *fiber.Ctx) error {
	id, err := productID(c)
	if err != nil {
		return err
	}
	var product model.Product
	if err := c.BodyParser(&product); err != nil {
		return invalidJSON
	}

	updated, err := h.service.UpdateProduct(c.UserContext(), id, &product)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Product updated", "data": updated})
}

func (h *InventoryHandler) GetProducts(c *fiber.Ctx) error {
	products, err := h.service.GetAllProducts(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(products)
}

func (h *InventoryHandler) GetProduct(c *fiber.Ctx) error {
	id, err := productID(c)
	if err != nil {
		return err
	}
	product, err := h.service.GetProduct(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(product)
}

type validateStockRequest struct {
	Items []service.StockLine `json:"items"`
}

// ValidateStock checks a cart against current stock without changing it.
func (h *InventoryHandler) ValidateStock(c *fiber.Ctx) error {
	var req validateStockRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON
	}
	reservations, err := h.checkout.ValidateStock(c.UserContext(), req.Items)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"valid": true, "items": reservations})
}
