package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// AdjustStockRequest body para POST /api/inventory/adjustments.
// Delta con signo: positivo entrada, negativo salida.
type AdjustStockRequest struct {
	ItemID        string `json:"item_id" validate:"required"`
	Delta         int64  `json:"delta" validate:"required,ne=0"`
	Reason        string `json:"reason" validate:"required,max=500"`
	Type          string `json:"type" validate:"required,oneof=MANUAL_ADJUSTMENT SALE_DISPATCH RETURN TRANSFER CORRECTION"`
	ReferenceType string `json:"reference_type,omitempty" validate:"max=100"`
	ReferenceID   string `json:"reference_id,omitempty" validate:"max=100"`
	OperationID   string `json:"operation_id,omitempty" validate:"omitempty,max=100"`
}

// MovementResponse salida de un movimiento del libro.
type MovementResponse struct {
	ID               string          `json:"id"`
	ItemID           string          `json:"item_id"`
	OperationID      string          `json:"operation_id"`
	Type             string          `json:"type"`
	QuantityDelta    int64           `json:"quantity_delta"`
	PreviousQuantity int64           `json:"previous_quantity"`
	NewQuantity      int64           `json:"new_quantity"`
	Reason           string          `json:"reason"`
	ReferenceType    string          `json:"reference_type,omitempty"`
	ReferenceID      string          `json:"reference_id,omitempty"`
	PerformedBy      string          `json:"performed_by"`
	CostPerUnit      decimal.Decimal `json:"cost_per_unit"`
	TotalCost        decimal.Decimal `json:"total_cost"`
	CreatedAt        time.Time       `json:"created_at"`
}

// MovementListResponse página de movimientos; next_page_token vacío = fin.
type MovementListResponse struct {
	Items         []MovementResponse `json:"items"`
	NextPageToken string             `json:"next_page_token,omitempty"`
}

// ReplenishmentSuggestionDTO sugerencia de reposición para un ítem LOW o CRITICAL.
type ReplenishmentSuggestionDTO struct {
	ItemID             string          `json:"item_id"`
	SKU                string          `json:"sku"`
	Name               string          `json:"name"`
	Status             string          `json:"status"` // LOW | CRITICAL
	CurrentStock       int64           `json:"current_stock"`
	ReorderLevel       int64           `json:"reorder_level"`
	SuggestedOrderQty  int64           `json:"suggested_order_qty"`
	UnitCost           decimal.Decimal `json:"unit_cost"`
	EstimatedOrderCost decimal.Decimal `json:"estimated_order_cost"` // SuggestedOrderQty * UnitCost
	Priority           int             `json:"priority"`             // 1 = más urgente
}

// ReconcileRequest body para POST /api/inventory/reconcile.
type ReconcileRequest struct {
	ItemID string `json:"item_id,omitempty"`
	Repair bool   `json:"repair"`
	Limit  int    `json:"limit,omitempty" validate:"min=0,max=1000"`
}
