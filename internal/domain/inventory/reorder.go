package inventory

import "github.com/jhoicas/stock-ledger/internal/domain/entity"

// StockStatus clasificación de reorden de un ítem.
type StockStatus string

const (
	StatusOK       StockStatus = "OK"
	StatusLow      StockStatus = "LOW"
	StatusCritical StockStatus = "CRITICAL"
)

// Classify función pura sobre la proyección del catálogo:
// CRITICAL si la cantidad es 0, LOW si 0 < cantidad <= nivel de reorden, OK en otro caso.
func Classify(item entity.Item) StockStatus {
	switch {
	case item.Quantity <= 0:
		return StatusCritical
	case item.Quantity <= item.ReorderLevel:
		return StatusLow
	default:
		return StatusOK
	}
}

// SuggestedOrderQuantity cantidad sugerida para reponer: ReorderQuantity, o el déficit
// hasta el nivel de reorden si es mayor. 0 para ítems OK.
func SuggestedOrderQuantity(item entity.Item) int64 {
	if Classify(item) == StatusOK {
		return 0
	}
	deficit := item.ReorderLevel - item.Quantity
	if deficit > item.ReorderQuantity {
		return deficit
	}
	return item.ReorderQuantity
}
