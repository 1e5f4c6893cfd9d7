package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// PurchaseOrderRepository define el puerto de persistencia para órdenes de compra.
type PurchaseOrderRepository interface {
	Create(ctx context.Context, po *entity.PurchaseOrder) error
	Get(ctx context.Context, tenantID, id string) (*entity.PurchaseOrder, error)
	// Update guarda estado y cantidades recibidas si la versión coincide (domain.ErrVersionConflict si no).
	Update(ctx context.Context, po *entity.PurchaseOrder, expectedVersion int64) error
}
