package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// InventoryHandler maneja ajustes, consulta del libro, reposición y reconciliación (protegido).
type InventoryHandler struct {
	engine        inventory.Adjuster
	ledger        *inventory.LedgerQuery
	replenishment *inventory.ReplenishmentUseCase
	reconciler    *inventory.Reconciler
	adjustTimeout time.Duration
}

// NewInventoryHandler construye el handler. adjustTimeout acota cada ajuste (0 = sin límite propio).
func NewInventoryHandler(
	engine inventory.Adjuster,
	ledger *inventory.LedgerQuery,
	replenishment *inventory.ReplenishmentUseCase,
	reconciler *inventory.Reconciler,
	adjustTimeout time.Duration,
) *InventoryHandler {
	return &InventoryHandler{
		engine:        engine,
		ledger:        ledger,
		replenishment: replenishment,
		reconciler:    reconciler,
		adjustTimeout: adjustTimeout,
	}
}

// Adjust godoc
// @Summary      Ajustar cantidad de un ítem
// @Description  Aplica un delta con signo y registra el movimiento en el libro. operation_id hace el reintento idempotente.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.AdjustStockRequest  true  "item_id, delta, reason, type"
// @Success      201   {object}  dto.MovementResponse
// @Success      202   {object}  dto.ErrorResponse  "aplicado, pendiente de conciliación"
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/inventory/adjustments [post]
func (h *InventoryHandler) Adjust(c *fiber.Ctx) error {
	tenantID, ok, err := requireTenant(c)
	if !ok {
		return err
	}
	var in dto.AdjustStockRequest
	if ok, err := bindJSON(c, &in); !ok {
		return err
	}
	ctx := c.UserContext()
	if h.adjustTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.adjustTimeout)
		defer cancel()
	}
	mov, err := h.engine.Adjust(ctx, inventory.AdjustCommand{
		TenantID:      tenantID,
		ItemID:        in.ItemID,
		Delta:         in.Delta,
		Reason:        in.Reason,
		Type:          entity.MovementType(in.Type),
		ReferenceType: in.ReferenceType,
		ReferenceID:   in.ReferenceID,
		PerformedBy:   GetUserID(c),
		OperationID:   in.OperationID,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toMovementResponse(mov))
}

// ListMovements godoc
// @Summary      Movimientos de un ítem (más recientes primero)
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        id          path   string  true   "ID del ítem"
// @Param        limit       query  int     false  "Tamaño de página"  default(50)
// @Param        page_token  query  string  false  "Token devuelto por la página anterior"
// @Success      200  {object}  dto.MovementListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/items/{id}/movements [get]
func (h *InventoryHandler) ListMovements(c *fiber.Ctx) error {
	tenantID, ok, err := requireTenant(c)
	if !ok {
		return err
	}
	page, err := h.ledger.ListForItem(c.UserContext(), tenantID, c.Params("id"),
		c.QueryInt("limit", inventory.DefaultPageSize), c.Query("page_token"))
	if err != nil {
		return writeError(c, err)
	}
	out := dto.MovementListResponse{Items: make([]dto.MovementResponse, 0, len(page.Items)), NextPageToken: page.NextToken}
	for _, m := range page.Items {
		out.Items = append(out.Items, toMovementResponse(m))
	}
	return c.JSON(out)
}

// GetReplenishmentList godoc
// @Summary      Lista de reposición (LOW y CRITICAL)
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Success      200  {array}   dto.ReplenishmentSuggestionDTO
// @Router       /api/inventory/replenishment-list [get]
func (h *InventoryHandler) GetReplenishmentList(c *fiber.Ctx) error {
	tenantID, ok, err := requireTenant(c)
	if !ok {
		return err
	}
	list, err := h.replenishment.GenerateReplenishmentList(c.UserContext(), tenantID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(list)
}

// Reconcile godoc
// @Summary      Verificar conservación y reparar operaciones pendientes
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ReconcileRequest  true  "item_id opcional; repair ejecuta la reparación del diario"
// @Success      200   {object}  map[string]interface{}
// @Failure      403   {object}  dto.ErrorResponse
// @Router       /api/inventory/reconcile [post]
func (h *InventoryHandler) Reconcile(c *fiber.Ctx) error {
	tenantID, ok, err := requireTenant(c)
	if !ok {
		return err
	}
	var in dto.ReconcileRequest
	if ok, err := bindJSON(c, &in); !ok {
		return err
	}
	ctx := c.UserContext()

	var reports []inventory.ReconcileReport
	if in.ItemID != "" {
		rep, err := h.reconciler.VerifyItem(ctx, tenantID, in.ItemID)
		if err != nil {
			return writeError(c, err)
		}
		reports = append(reports, *rep)
	} else {
		reports, err = h.reconciler.VerifyTenant(ctx, tenantID)
		if err != nil {
			return writeError(c, err)
		}
	}
	if reports == nil {
		reports = []inventory.ReconcileReport{}
	}

	resp := fiber.Map{"reports": reports}
	if in.Repair {
		limit := in.Limit
		if limit == 0 {
			limit = 100
		}
		summary, err := h.reconciler.RepairPending(ctx, limit)
		if err != nil {
			return writeError(c, err)
		}
		resp["repair"] = summary
	}
	return c.JSON(resp)
}

func toMovementResponse(m *entity.StockMovement) dto.MovementResponse {
	return dto.MovementResponse{
		ID:               m.ID,
		ItemID:           m.ItemID,
		OperationID:      m.OperationID,
		Type:             string(m.Type),
		QuantityDelta:    m.QuantityDelta,
		PreviousQuantity: m.PreviousQuantity,
		NewQuantity:      m.NewQuantity,
		Reason:           m.Reason,
		ReferenceType:    m.ReferenceType,
		ReferenceID:      m.ReferenceID,
		PerformedBy:      m.PerformedBy,
		CostPerUnit:      m.CostPerUnit,
		TotalCost:        m.TotalCost,
		CreatedAt:        m.CreatedAt,
	}
}
