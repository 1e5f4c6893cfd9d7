package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/application/usecase"
)

// PurchaseOrderHandler órdenes de compra y su recepción (protegido).
type PurchaseOrderHandler struct {
	uc        *usecase.PurchaseOrderUseCase
	receiving *inventory.ReceivingOrchestrator
	log       zerolog.Logger
}

// NewPurchaseOrderHandler construye el handler.
func NewPurchaseOrderHandler(uc *usecase.PurchaseOrderUseCase, receiving *inventory.ReceivingOrchestrator, log zerolog.Logger) *PurchaseOrderHandler {
	return &PurchaseOrderHandler{uc: uc, receiving: receiving, log: log}
}

// Create godoc
// @Summary      Crear orden de compra (DRAFT)
// @Tags         purchase-orders
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreatePurchaseOrderRequest  true  "Número y líneas"
// @Success      201   {object}  dto.PurchaseOrderResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/purchase-orders [post]
func (h *PurchaseOrderHandler) Create(c *fiber.Ctx) error {
	tenantID, ok, err := requireTenant(c)
	if !ok {
		return err
	}
	var in dto.CreatePurchaseOrderRequest
	if ok, err := bindJSON(c, &in); !ok {
		return err
	}
	out, err := h.uc.Create(c.UserContext(), tenantID, GetUserID(c), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// GetByID godoc
// @Summary      Obtener orden de compra
// @Tags         purchase-orders
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la orden"
// @Success      200  {object}  dto.PurchaseOrderResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/purchase-orders/{id} [get]
func (h *PurchaseOrderHandler) GetByID(c *fiber.Ctx) error {
	tenantID, ok, err := requireTenant(c)
	if !ok {
		return err
	}
	out, err := h.uc.GetByID(c.UserContext(), tenantID, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Send godoc
// @Summary      Enviar orden al proveedor (DRAFT → SENT)
// @Tags         purchase-orders
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la orden"
// @Success      200  {object}  dto.PurchaseOrderResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/purchase-orders/{id}/send [post]
func (h *PurchaseOrderHandler) Send(c *fiber.Ctx) error {
	tenantID, ok, err := requireTenant(c)
	if !ok {
		return err
	}
	out, err := h.uc.Send(c.UserContext(), tenantID, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Cancel godoc
// @Summary      Cancelar orden (desde DRAFT o SENT)
// @Tags         purchase-orders
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la orden"
// @Success      200  {object}  dto.PurchaseOrderResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/purchase-orders/{id}/cancel [post]
func (h *PurchaseOrderHandler) Cancel(c *fiber.Ctx) error {
	tenantID, ok, err := requireTenant(c)
	if !ok {
		return err
	}
	out, err := h.uc.Cancel(c.UserContext(), tenantID, c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Receive godoc
// @Summary      Recibir mercancía de una orden
// @Description  Cada línea se aplica por separado; las fallidas se reportan para reintentarlas sin repetir las aplicadas.
// @Tags         purchase-orders
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "ID de la orden"
// @Param        body  body  dto.ReceivePurchaseOrderRequest  true  "Líneas recibidas"
// @Success      200   {object}  inventory.ReceiptResult
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/purchase-orders/{id}/receipts [post]
func (h *PurchaseOrderHandler) Receive(c *fiber.Ctx) error {
	tenantID, ok, err := requireTenant(c)
	if !ok {
		return err
	}
	var in dto.ReceivePurchaseOrderRequest
	if ok, err := bindJSON(c, &in); !ok {
		return err
	}
	cmd := inventory.ReceiveCommand{
		TenantID:        tenantID,
		PurchaseOrderID: c.Params("id"),
		PerformedBy:     GetUserID(c),
	}
	for _, l := range in.Lines {
		cmd.Lines = append(cmd.Lines, inventory.ReceiptLine{ItemID: l.ItemID, Quantity: l.Quantity})
	}
	result, err := h.receiving.Receive(c.UserContext(), cmd)
	if err != nil {
		if result == nil {
			return writeError(c, err)
		}
		// Las líneas aplicadas no se revierten: se devuelve el detalle junto con el error.
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"code":    "ORDER_UPDATE_FAILED",
			"message": "líneas aplicadas; el estado de la orden no se pudo actualizar",
			"result":  result,
		})
	}
	return c.JSON(result)
}
