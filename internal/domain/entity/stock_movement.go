package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// MovementType tipo de movimiento en el libro de stock.
type MovementType string

// Tipos de movimiento de inventario.
const (
	MovementManualAdjustment MovementType = "MANUAL_ADJUSTMENT"
	MovementPurchaseReceipt  MovementType = "PURCHASE_RECEIPT"
	MovementSaleDispatch     MovementType = "SALE_DISPATCH"
	MovementReturn           MovementType = "RETURN"
	MovementTransfer         MovementType = "TRANSFER"
	MovementCorrection       MovementType = "CORRECTION"
)

// Valid indica si el tipo pertenece al catálogo de movimientos.
func (t MovementType) Valid() bool {
	switch t {
	case MovementManualAdjustment, MovementPurchaseReceipt, MovementSaleDispatch,
		MovementReturn, MovementTransfer, MovementCorrection:
		return true
	}
	return false
}

// StockMovement registro inmutable de un cambio de cantidad (solo inserción).
// Cumple NewQuantity = PreviousQuantity + QuantityDelta.
type StockMovement struct {
	ID               string
	TenantID         string
	ItemID           string
	OperationID      string // único por tenant; clave de idempotencia y de operación pendiente
	Type             MovementType
	QuantityDelta    int64 // positivo = entrada
	PreviousQuantity int64
	NewQuantity      int64
	ItemVersion      int64 // versión del ítem producida por este movimiento
	Reason           string
	ReferenceType    string
	ReferenceID      string
	PerformedBy      string
	CostPerUnit      decimal.Decimal
	TotalCost        decimal.Decimal
	CreatedAt        time.Time
}
