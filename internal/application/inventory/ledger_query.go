package inventory

import (
	"context"
	"fmt"
	"iter"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// Límites de página para el libro.
const (
	DefaultPageSize = 50
	MaxPageSize     = 500
)

// LedgerQuery lectura del libro de movimientos para colaboradores de reportes (solo lectura).
type LedgerQuery struct {
	items     repository.ItemRepository
	movements repository.StockMovementRepository
}

// NewLedgerQuery construye el caso de uso de consulta.
func NewLedgerQuery(items repository.ItemRepository, movements repository.StockMovementRepository) *LedgerQuery {
	return &LedgerQuery{items: items, movements: movements}
}

func clampPageSize(limit int) int {
	switch {
	case limit <= 0:
		return DefaultPageSize
	case limit > MaxPageSize:
		return MaxPageSize
	}
	return limit
}

// ListForItem devuelve una página de movimientos del ítem, más recientes primero.
// pageToken vacío = primera página; el token devuelto permite reanudar la lectura.
func (q *LedgerQuery) ListForItem(ctx context.Context, tenantID, itemID string, limit int, pageToken string) (*repository.MovementPage, error) {
	if tenantID == "" || itemID == "" {
		return nil, domain.ErrInvalidRequest
	}
	if _, err := q.items.Get(ctx, tenantID, itemID); err != nil {
		return nil, err
	}
	page, err := q.movements.ListForItem(ctx, tenantID, itemID, clampPageSize(limit), pageToken)
	if err != nil {
		return nil, fmt.Errorf("listar movimientos: %w", err)
	}
	return page, nil
}

// All recorre perezosamente todos los movimientos del ítem pidiendo páginas bajo demanda.
// La secuencia es finita y se detiene en el primer error.
func (q *LedgerQuery) All(ctx context.Context, tenantID, itemID string, pageSize int) iter.Seq2[*entity.StockMovement, error] {
	return func(yield func(*entity.StockMovement, error) bool) {
		token := ""
		for {
			page, err := q.ListForItem(ctx, tenantID, itemID, pageSize, token)
			if err != nil {
				yield(nil, err)
				return
			}
			for _, m := range page.Items {
				if !yield(m, nil) {
					return
				}
			}
			if page.NextToken == "" {
				return
			}
			token = page.NextToken
		}
	}
}

// SumDeltaForItem suma de deltas del ítem; solo para reconciliación y pruebas.
func (q *LedgerQuery) SumDeltaForItem(ctx context.Context, tenantID, itemID string) (int64, error) {
	return q.movements.SumDeltaForItem(ctx, tenantID, itemID)
}
