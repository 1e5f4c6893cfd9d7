package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/application/usecase"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	ItemUC          *usecase.ItemUseCase
	PurchaseOrderUC *usecase.PurchaseOrderUseCase
	Engine          inventory.Adjuster
	Ledger          *inventory.LedgerQuery
	Replenishment   *inventory.ReplenishmentUseCase
	Receiving       *inventory.ReceivingOrchestrator
	Reconciler      *inventory.Reconciler
	AdjustTimeout   time.Duration
	JWTSecret       string
	Log             zerolog.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret))
	writers := RequireRole(RoleAdmin, RoleBodeguero)
	admin := RequireRole(RoleAdmin)

	// Catálogo
	items := api.Group("/items")
	itemHandler := NewItemHandler(deps.ItemUC)
	items.Get("/", itemHandler.List)
	items.Post("/", admin, itemHandler.Create)
	items.Get("/:id", itemHandler.GetByID)
	items.Get("/:id/status", itemHandler.Status)
	items.Put("/:id", admin, itemHandler.Update)
	items.Delete("/:id", admin, itemHandler.Deactivate)

	// Libro de stock
	inv := api.Group("/inventory")
	inventoryHandler := NewInventoryHandler(deps.Engine, deps.Ledger, deps.Replenishment, deps.Reconciler, deps.AdjustTimeout)
	inv.Post("/adjustments", writers, inventoryHandler.Adjust)
	inv.Get("/items/:id/movements", inventoryHandler.ListMovements)
	inv.Get("/replenishment-list", inventoryHandler.GetReplenishmentList)
	inv.Post("/reconcile", admin, inventoryHandler.Reconcile)

	// Órdenes de compra
	orders := api.Group("/purchase-orders")
	poHandler := NewPurchaseOrderHandler(deps.PurchaseOrderUC, deps.Receiving, deps.Log)
	orders.Post("/", writers, poHandler.Create)
	orders.Get("/:id", poHandler.GetByID)
	orders.Post("/:id/send", writers, poHandler.Send)
	orders.Post("/:id/cancel", writers, poHandler.Cancel)
	orders.Post("/:id/receipts", writers, poHandler.Receive)
}
