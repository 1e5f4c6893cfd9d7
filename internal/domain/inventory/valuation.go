package inventory

import "github.com/shopspring/decimal"

// MovementValuation valoriza un movimiento al costo unitario vigente del ítem (servicio de dominio).
// TotalCost conserva el signo del delta, igual que las salidas del libro.
func MovementValuation(delta int64, unitCost decimal.Decimal) (costPerUnit, totalCost decimal.Decimal) {
	if unitCost.LessThan(decimal.Zero) {
		unitCost = decimal.Zero
	}
	return unitCost, decimal.NewFromInt(delta).Mul(unitCost)
}
