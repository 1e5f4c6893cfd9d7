package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item proyección mutable de la cantidad disponible de un SKU dentro de una empresa (tenant).
// Quantity y Version solo cambian vía el motor de ajustes (compare-and-swap).
type Item struct {
	ID              string
	TenantID        string
	SKU             string // único por tenant
	Name            string
	Quantity        int64 // siempre >= 0
	InitialQuantity int64 // cantidad al ingresar al catálogo; base de la conservación
	ReorderLevel    int64
	ReorderQuantity int64
	UnitCost        decimal.Decimal // valoración referencial, no contable
	Version         int64
	LastOperationID string
	Active          bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
