package inventory

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	domaininv "github.com/jhoicas/stock-ledger/internal/domain/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// ReplenishmentUseCase genera la lista de reposición de un tenant a partir de la proyección
// del catálogo. Es de solo lectura y nunca participa en el camino de escritura.
type ReplenishmentUseCase struct {
	items repository.ItemRepository
}

// NewReplenishmentUseCase construye el caso de uso de reposición.
func NewReplenishmentUseCase(items repository.ItemRepository) *ReplenishmentUseCase {
	return &ReplenishmentUseCase{items: items}
}

// GenerateReplenishmentList devuelve los ítems LOW o CRITICAL con la cantidad sugerida de pedido,
// críticos primero y luego por mayor déficit frente al nivel de reorden.
func (uc *ReplenishmentUseCase) GenerateReplenishmentList(ctx context.Context, tenantID string) ([]dto.ReplenishmentSuggestionDTO, error) {
	const batch = 200
	suggestions := []dto.ReplenishmentSuggestionDTO{}

	for offset := 0; ; offset += batch {
		items, err := uc.items.ListByTenant(ctx, tenantID, true, batch, offset)
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			status := domaininv.Classify(*item)
			if status == domaininv.StatusOK {
				continue
			}
			qty := domaininv.SuggestedOrderQuantity(*item)
			suggestions = append(suggestions, dto.ReplenishmentSuggestionDTO{
				ItemID:             item.ID,
				SKU:                item.SKU,
				Name:               item.Name,
				Status:             string(status),
				CurrentStock:       item.Quantity,
				ReorderLevel:       item.ReorderLevel,
				SuggestedOrderQty:  qty,
				UnitCost:           item.UnitCost,
				EstimatedOrderCost: item.UnitCost.Mul(decimal.NewFromInt(qty)),
			})
		}
		if len(items) < batch {
			break
		}
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		a, b := suggestions[i], suggestions[j]
		if a.Status != b.Status {
			return a.Status == string(domaininv.StatusCritical)
		}
		return a.ReorderLevel-a.CurrentStock > b.ReorderLevel-b.CurrentStock
	})
	for i := range suggestions {
		suggestions[i].Priority = i + 1
	}
	return suggestions, nil
}
