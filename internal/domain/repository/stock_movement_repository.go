package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// MovementPage página de movimientos (created_at DESC); NextToken vacío = última página.
type MovementPage struct {
	Items     []*entity.StockMovement
	NextToken string
}

// StockMovementRepository define el puerto del libro de movimientos (solo inserción).
type StockMovementRepository interface {
	// Append falla solo por almacenamiento (o ErrDuplicate si el OperationID ya existe).
	Append(ctx context.Context, movement *entity.StockMovement) error
	// GetByOperationID devuelve nil si no existe.
	GetByOperationID(ctx context.Context, tenantID, operationID string) (*entity.StockMovement, error)
	// GetByItemVersion busca el movimiento que produjo una versión del ítem (nil si no existe).
	GetByItemVersion(ctx context.Context, tenantID, itemID string, version int64) (*entity.StockMovement, error)
	ListForItem(ctx context.Context, tenantID, itemID string, limit int, pageToken string) (*MovementPage, error)
	SumDeltaForItem(ctx context.Context, tenantID, itemID string) (int64, error)
}
