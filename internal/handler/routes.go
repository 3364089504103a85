package handler

import (
	"go-pos-checkout/internal/middleware"
	"go-pos-checkout/internal/model"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Transactions *TransactionHandler
	Inventory    *InventoryHandler
	Dashboard    *DashboardHandler
	Cashiers     *CashierHandler
	WS           *WSHandler
	Health       *HealthHandler
}

// Register mounts every route on app. auth must resolve the cashier before
// any privilege check runs.
func Register(app *fiber.App, h Handlers, auth fiber.Handler) {
	app.Get("/healthz", h.Health.Check)

	api := app.Group("/api/v1")
	protected := api.Group("", auth)
	can := middleware.RequirePrivilege

	protected.Get("/me", h.Cashiers.Me)
	protected.Get("/cashiers", h.Cashiers.GetCashiers)

	// Transaction Routes
	protected.Post("/transactions", can(model.PrivTransactionCreate), h.Transactions.CreateTransaction)
	protected.Get("/transactions", can(model.PrivTransactionView), h.Transactions.GetDay)
	protected.Get("/transactions/range", can(model.PrivTransactionView), h.Transactions.GetRange)
	protected.Get("/transactions/summary", can(model.PrivTransactionView), h.Transactions.GetSummary)
	protected.Get("/transactions/:id", can(model.PrivTransactionView), h.Transactions.GetTransaction)
	protected.Get("/transactions/:id/receipt", can(model.PrivTransactionView), h.Transactions.GetReceipt)

	// Product Routes
	protected.Get("/products", can(model.PrivProductView), h.Inventory.GetProducts)
	protected.Post("/products", can(model.PrivProductCreate), h.Inventory.CreateProduct)
	protected.Post("/products/validate-stock", can(model.PrivTransactionCreate), h.Inventory.ValidateStock)
	protected.Get("/products/:id", can(model.PrivProductView), h.Inventory.GetProduct)
	protected.Put("/products/:id", can(model.PrivProductUpdate), h.Inventory.UpdateProduct)

	// Report Routes
	protected.Get("/reports/daily-sales", can(model.PrivReportView), h.Dashboard.GetMonthlySales)
	protected.Get("/reports/daily-sales/recent", can(model.PrivReportView), h.Dashboard.GetRecentDailySales)
	protected.Get("/reports/daily-sales/:date", can(model.PrivReportView), h.Dashboard.GetDailySales)
	protected.Get("/reports/financial-summary", can(model.PrivReportView), h.Dashboard.GetFinancialSummary)
	protected.Get("/dashboard/stats", can(model.PrivReportView), h.Dashboard.GetDashboardStats)

	// WebSocket Routes
	app.Use("/ws", h.WS.RequireUpgrade)
	app.Get("/ws", auth, h.WS.Events())
	app.Get("/ws/transactions", auth, can(model.PrivTransactionView), h.WS.Transactions())
}
