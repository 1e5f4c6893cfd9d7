package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// PendingOperationRepository diario de operaciones para almacenamientos no transaccionales.
type PendingOperationRepository interface {
	// Open reclama la operación. Solo reemplaza una entrada ABANDONED; si ya existe una
	// OPEN, COMPLETED o REPLAYED devuelve domain.ErrDuplicate.
	Open(ctx context.Context, op *entity.PendingOperation) error
	// Get devuelve nil si la operación no existe.
	Get(ctx context.Context, tenantID, id string) (*entity.PendingOperation, error)
	// Resolve cierra la entrada OPEN de owner. domain.ErrVersionConflict si otro la reclamó
	// o ya estaba cerrada.
	Resolve(ctx context.Context, tenantID, id, owner, status string) error
	ListOpen(ctx context.Context, limit int) ([]*entity.PendingOperation, error)
	// ListOpenForVersion operaciones abiertas que compiten por la misma versión del ítem.
	ListOpenForVersion(ctx context.Context, tenantID, itemID string, expectedVersion int64) ([]*entity.PendingOperation, error)
}
