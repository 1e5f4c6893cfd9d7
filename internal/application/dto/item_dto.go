package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateItemRequest entrada para dar de alta un ítem en el catálogo.
type CreateItemRequest struct {
	SKU             string          `json:"sku" validate:"required,min=1,max=100"`
	Name            string          `json:"name" validate:"required,min=1,max=200"`
	InitialQuantity int64           `json:"initial_quantity" validate:"min=0"`
	ReorderLevel    int64           `json:"reorder_level" validate:"min=0"`
	ReorderQuantity int64           `json:"reorder_quantity" validate:"min=0"`
	UnitCost        decimal.Decimal `json:"unit_cost"`
}

// UpdateItemRequest entrada para actualizar un ítem (sin cantidad: se maneja vía ajustes).
type UpdateItemRequest struct {
	Name            *string          `json:"name" validate:"omitempty,min=1,max=200"`
	ReorderLevel    *int64           `json:"reorder_level" validate:"omitempty,min=0"`
	ReorderQuantity *int64           `json:"reorder_quantity" validate:"omitempty,min=0"`
	UnitCost        *decimal.Decimal `json:"unit_cost"`
}

// ItemResponse salida de un ítem.
type ItemResponse struct {
	ID              string          `json:"id"`
	TenantID        string          `json:"tenant_id"`
	SKU             string          `json:"sku"`
	Name            string          `json:"name"`
	Quantity        int64           `json:"quantity"`
	ReorderLevel    int64           `json:"reorder_level"`
	ReorderQuantity int64           `json:"reorder_quantity"`
	UnitCost        decimal.Decimal `json:"unit_cost"`
	Version         int64           `json:"version"`
	Active          bool            `json:"active"`
	Status          string          `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// ItemListResponse lista paginada de ítems.
type ItemListResponse struct {
	Items []ItemResponse `json:"items"`
	Page  PageResponse   `json:"page"`
}

// ItemStatusResponse clasificación de reorden de un ítem.
type ItemStatusResponse struct {
	ItemID       string `json:"item_id"`
	Quantity     int64  `json:"quantity"`
	ReorderLevel int64  `json:"reorder_level"`
	Status       string `json:"status"` // OK | LOW | CRITICAL
}
