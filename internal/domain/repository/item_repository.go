package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// ItemRepository define el puerto del catálogo de ítems (proyección de cantidad).
// Todas las operaciones están acotadas a un tenant.
type ItemRepository interface {
	Create(ctx context.Context, item *entity.Item) error
	// Get devuelve domain.ErrNotFound si el ítem no existe en el tenant.
	Get(ctx context.Context, tenantID, itemID string) (*entity.Item, error)
	// GetBySKU devuelve nil si no existe.
	GetBySKU(ctx context.Context, tenantID, sku string) (*entity.Item, error)
	ListByTenant(ctx context.Context, tenantID string, activeOnly bool, limit, offset int) ([]*entity.Item, error)
	// UpdateDetails actualiza campos descriptivos y de reorden; nunca Quantity ni Version.
	UpdateDetails(ctx context.Context, item *entity.Item) error
	SetActive(ctx context.Context, tenantID, itemID string, active bool) error
	// CompareAndSwapQuantity es la única mutación de cantidad: actualización condicional atómica
	// sobre la versión esperada. Devuelve domain.ErrVersionConflict o domain.ErrNotFound.
	CompareAndSwapQuantity(ctx context.Context, tenantID, itemID string, expectedVersion, newQuantity int64, operationID string) error
}
