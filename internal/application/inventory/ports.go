package inventory

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// Repos repositorios atados a la unidad de trabajo abierta por TxRunner.
type Repos struct {
	Items     repository.ItemRepository
	Movements repository.StockMovementRepository
	Pending   repository.PendingOperationRepository
}

// TxRunner ejecuta una función dentro de una unidad de trabajo, pasando repositorios atados a ella.
// Atomic indica si la unidad abarca catálogo y libro en una sola transacción; si es false,
// el motor lleva un diario de operaciones pendientes para reparar inconsistencias.
type TxRunner interface {
	Run(ctx context.Context, fn func(repos Repos) error) error
	Atomic() bool
}

// Adjuster contrato del motor de ajustes consumido por los orquestadores.
type Adjuster interface {
	Adjust(ctx context.Context, cmd AdjustCommand) (*entity.StockMovement, error)
}

// Recorder métricas del motor (implementación Prometheus en infrastructure/metrics).
type Recorder interface {
	AdjustmentApplied(movementType entity.MovementType)
	AdjustmentRejected(kind domain.ErrorKind)
	VersionConflict()
	Inconsistency()
	ReceiptLine(succeeded bool)
	PendingResolved(status string)
}

type nopRecorder struct{}

func (nopRecorder) AdjustmentApplied(entity.MovementType) {}
func (nopRecorder) AdjustmentRejected(domain.ErrorKind)   {}
func (nopRecorder) VersionConflict()                      {}
func (nopRecorder) Inconsistency()                        {}
func (nopRecorder) ReceiptLine(bool)                      {}
func (nopRecorder) PendingResolved(string)                {}
