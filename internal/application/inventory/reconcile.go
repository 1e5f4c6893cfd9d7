package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// DefaultPendingGrace antigüedad mínima de una operación abierta antes de repararla,
// para no competir con un ajuste que todavía está en curso.
const DefaultPendingGrace = 30 * time.Second

// ReconcileReport compara la proyección del catálogo con lo que dice el libro.
type ReconcileReport struct {
	TenantID       string `json:"tenant_id"`
	ItemID         string `json:"item_id"`
	SKU            string `json:"sku"`
	Quantity       int64  `json:"quantity"`
	LedgerQuantity int64  `json:"ledger_quantity"` // inicial + Σ deltas
	Difference     int64  `json:"difference"`
	Consistent     bool   `json:"consistent"`
}

// RepairSummary resultado de una pasada de reparación del diario.
type RepairSummary struct {
	Scanned   int      `json:"scanned"`
	Completed int      `json:"completed"`
	Replayed  int      `json:"replayed"`
	Abandoned int      `json:"abandoned"`
	Skipped   int      `json:"skipped"`
	Manual    []string `json:"manual"` // operaciones ambiguas que requieren revisión humana
}

// Reconciler trabajo fuera de banda que verifica la conservación y repara operaciones
// que quedaron con cantidad actualizada sin movimiento en el libro.
type Reconciler struct {
	items     repository.ItemRepository
	movements repository.StockMovementRepository
	pending   repository.PendingOperationRepository
	log       zerolog.Logger
	metrics   Recorder
	grace     time.Duration
	now       func() time.Time
}

// NewReconciler construye el reconciliador.
func NewReconciler(
	items repository.ItemRepository,
	movements repository.StockMovementRepository,
	pending repository.PendingOperationRepository,
	log zerolog.Logger,
	rec Recorder,
) *Reconciler {
	if rec == nil {
		rec = nopRecorder{}
	}
	return &Reconciler{
		items:     items,
		movements: movements,
		pending:   pending,
		log:       log.With().Str("component", "reconciler").Logger(),
		metrics:   rec,
		grace:     DefaultPendingGrace,
		now:       time.Now,
	}
}

// WithGrace cambia la antigüedad mínima de las operaciones a reparar.
func (r *Reconciler) WithGrace(d time.Duration) *Reconciler {
	r.grace = d
	return r
}

// VerifyItem verifica Quantity == InitialQuantity + Σ QuantityDelta.
func (r *Reconciler) VerifyItem(ctx context.Context, tenantID, itemID string) (*ReconcileReport, error) {
	item, err := r.items.Get(ctx, tenantID, itemID)
	if err != nil {
		return nil, err
	}
	return r.verify(ctx, item)
}

func (r *Reconciler) verify(ctx context.Context, item *entity.Item) (*ReconcileReport, error) {
	sum, err := r.movements.SumDeltaForItem(ctx, item.TenantID, item.ID)
	if err != nil {
		return nil, fmt.Errorf("sumar deltas: %w", err)
	}
	ledgerQty := item.InitialQuantity + sum
	rep := &ReconcileReport{
		TenantID:       item.TenantID,
		ItemID:         item.ID,
		SKU:            item.SKU,
		Quantity:       item.Quantity,
		LedgerQuantity: ledgerQty,
		Difference:     item.Quantity - ledgerQty,
		Consistent:     item.Quantity == ledgerQty,
	}
	if !rep.Consistent {
		r.log.Error().
			Str("tenant_id", item.TenantID).
			Str("item_id", item.ID).
			Int64("expected_quantity", ledgerQty).
			Int64("actual_quantity", item.Quantity).
			Msg("proyección y libro no coinciden")
	}
	return rep, nil
}

// VerifyTenant verifica todos los ítems del tenant y devuelve solo los inconsistentes.
func (r *Reconciler) VerifyTenant(ctx context.Context, tenantID string) ([]ReconcileReport, error) {
	const batch = 200
	var out []ReconcileReport
	for offset := 0; ; offset += batch {
		items, err := r.items.ListByTenant(ctx, tenantID, false, batch, offset)
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			rep, err := r.verify(ctx, item)
			if err != nil {
				return nil, err
			}
			if !rep.Consistent {
				out = append(out, *rep)
			}
		}
		if len(items) < batch {
			return out, nil
		}
	}
}

// RepairPending resuelve operaciones abiertas del diario. Solo reproduce el movimiento cuando
// el compare-and-swap de esa operación se aplicó con certeza; los casos ambiguos se reportan.
func (r *Reconciler) RepairPending(ctx context.Context, limit int) (*RepairSummary, error) {
	ops, err := r.pending.ListOpen(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("listar operaciones pendientes: %w", err)
	}
	summary := &RepairSummary{Manual: []string{}}
	cutoff := r.now().Add(-r.grace)
	for _, op := range ops {
		if op.CreatedAt.After(cutoff) {
			summary.Skipped++
			continue
		}
		summary.Scanned++
		status, err := r.repair(ctx, op)
		if err != nil {
			return summary, err
		}
		if status == "" {
			summary.Manual = append(summary.Manual, op.ID)
			continue
		}
		err = r.pending.Resolve(ctx, op.TenantID, op.ID, op.Owner, status)
		if errors.Is(err, domain.ErrVersionConflict) {
			// El motor la cerró o la volvió a reclamar mientras se reparaba.
			r.log.Info().Str("operation_id", op.ID).Msg("operación cerrada por otro proceso")
			summary.Skipped++
			continue
		}
		if err != nil {
			return summary, fmt.Errorf("cerrar operación %s: %w", op.ID, err)
		}
		switch status {
		case entity.PendingCompleted:
			summary.Completed++
		case entity.PendingReplayed:
			summary.Replayed++
		case entity.PendingAbandoned:
			summary.Abandoned++
		}
		r.metrics.PendingResolved(status)
	}
	return summary, nil
}

// repair decide el destino de una operación abierta; "" = requiere revisión manual.
func (r *Reconciler) repair(ctx context.Context, op *entity.PendingOperation) (string, error) {
	logger := r.log.With().
		Str("tenant_id", op.TenantID).
		Str("item_id", op.ItemID).
		Str("operation_id", op.ID).
		Int64("expected_version", op.ExpectedVersion).
		Logger()

	item, err := r.items.Get(ctx, op.TenantID, op.ItemID)
	if errors.Is(err, domain.ErrNotFound) {
		logger.Warn().Msg("ítem inexistente, operación abandonada")
		return entity.PendingAbandoned, nil
	}
	if err != nil {
		return "", err
	}
	if item.Version == op.ExpectedVersion {
		return entity.PendingAbandoned, nil
	}

	existing, err := r.movements.GetByOperationID(ctx, op.TenantID, op.ID)
	if err != nil {
		return "", err
	}
	if existing != nil {
		return entity.PendingCompleted, nil
	}

	claimed, err := r.movements.GetByItemVersion(ctx, op.TenantID, op.ItemID, op.ExpectedVersion+1)
	if err != nil {
		return "", err
	}
	if claimed != nil {
		// Otra operación produjo esa versión: este compare-and-swap no se aplicó.
		return entity.PendingAbandoned, nil
	}

	if item.Version == op.ExpectedVersion+1 {
		// El último compare-and-swap produjo justo la versión disputada: identifica al ganador.
		if item.LastOperationID != op.ID {
			return entity.PendingAbandoned, nil
		}
	} else {
		rivals, err := r.pending.ListOpenForVersion(ctx, op.TenantID, op.ItemID, op.ExpectedVersion)
		if err != nil {
			return "", err
		}
		if len(rivals) > 1 {
			logger.Error().Int("rivals", len(rivals)).Int64("item_version", item.Version).
				Msg("operación ambigua, requiere revisión manual")
			return "", nil
		}
	}

	mov := op.Movement
	if err := r.movements.Append(ctx, &mov); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return entity.PendingCompleted, nil
		}
		return "", fmt.Errorf("reproducir movimiento: %w", err)
	}
	logger.Info().
		Int64("delta", mov.QuantityDelta).
		Int64("new_quantity", mov.NewQuantity).
		Msg("movimiento reproducido en el libro")
	return entity.PendingReplayed, nil
}
