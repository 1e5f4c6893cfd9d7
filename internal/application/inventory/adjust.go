package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	domaininv "github.com/jhoicas/stock-ledger/internal/domain/inventory"
)

// DefaultMaxAttempts intentos de compare-and-swap antes de reportar ErrContention.
const DefaultMaxAttempts = 5

// AdjustCommand intención de cambio de cantidad enviada por un llamador
// (corrección manual, despacho de venta, devolución, recepción de compra).
type AdjustCommand struct {
	TenantID      string
	ItemID        string
	Delta         int64
	Reason        string
	Type          entity.MovementType
	ReferenceType string
	ReferenceID   string
	PerformedBy   string
	// OperationID opcional: clave de idempotencia. Reintentar con el mismo valor devuelve
	// el movimiento ya registrado en lugar de aplicar el delta dos veces.
	OperationID string
}

func (c AdjustCommand) validate() error {
	var missing []string
	if strings.TrimSpace(c.TenantID) == "" {
		missing = append(missing, "tenant_id")
	}
	if strings.TrimSpace(c.ItemID) == "" {
		missing = append(missing, "item_id")
	}
	if strings.TrimSpace(c.Reason) == "" {
		missing = append(missing, "reason")
	}
	if strings.TrimSpace(c.PerformedBy) == "" {
		missing = append(missing, "performed_by")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: campos requeridos: %s", domain.ErrInvalidRequest, strings.Join(missing, ", "))
	}
	if c.Delta == 0 {
		return fmt.Errorf("%w: delta no puede ser cero", domain.ErrInvalidRequest)
	}
	if !c.Type.Valid() {
		return fmt.Errorf("%w: tipo de movimiento %q", domain.ErrInvalidRequest, c.Type)
	}
	return nil
}

// AdjustmentEngine único camino que modifica la cantidad de un ítem. Actualiza la proyección
// del catálogo con compare-and-swap y agrega un movimiento al libro por cada cambio.
// No mantiene locks en proceso: es seguro invocarlo concurrentemente.
type AdjustmentEngine struct {
	runner      TxRunner
	log         zerolog.Logger
	metrics     Recorder
	maxAttempts int
	grace       time.Duration
	now         func() time.Time
}

// EngineOption configura el motor.
type EngineOption func(*AdjustmentEngine)

// WithMaxAttempts fija el presupuesto de reintentos ante conflictos de versión.
func WithMaxAttempts(n int) EngineOption {
	return func(e *AdjustmentEngine) {
		if n > 0 {
			e.maxAttempts = n
		}
	}
}

// WithRecorder inyecta las métricas.
func WithRecorder(r Recorder) EngineOption {
	return func(e *AdjustmentEngine) {
		if r != nil {
			e.metrics = r
		}
	}
}

// WithClock reemplaza el reloj (tests).
func WithClock(now func() time.Time) EngineOption {
	return func(e *AdjustmentEngine) { e.now = now }
}

// WithPendingGrace tiempo durante el cual una operación abierta se considera en curso.
// Debe coincidir con la gracia del reconciliador.
func WithPendingGrace(d time.Duration) EngineOption {
	return func(e *AdjustmentEngine) {
		if d >= 0 {
			e.grace = d
		}
	}
}

// NewAdjustmentEngine construye el motor de ajustes.
func NewAdjustmentEngine(runner TxRunner, log zerolog.Logger, opts ...EngineOption) *AdjustmentEngine {
	e := &AdjustmentEngine{
		runner:      runner,
		log:         log.With().Str("component", "adjustment_engine").Logger(),
		metrics:     nopRecorder{},
		maxAttempts: DefaultMaxAttempts,
		grace:       DefaultPendingGrace,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// inconsistency el compare-and-swap se aplicó pero el append al libro falló.
type inconsistency struct {
	item     *entity.Item
	movement *entity.StockMovement
	cause    error
}

func (i *inconsistency) Error() string { return "append tras compare-and-swap: " + i.cause.Error() }
func (i *inconsistency) Unwrap() error { return i.cause }

// claimLost otra llamada con el mismo OperationID ya reclamó o aplicó la operación.
func claimLost(err error) bool {
	var inc *inconsistency
	return errors.Is(err, domain.ErrDuplicate) && !errors.As(err, &inc)
}

// Adjust valida la intención, carga el ítem, verifica no-negatividad, aplica el compare-and-swap
// (reintentando ante conflictos de versión) y registra el movimiento.
func (e *AdjustmentEngine) Adjust(ctx context.Context, cmd AdjustCommand) (*entity.StockMovement, error) {
	if err := cmd.validate(); err != nil {
		e.metrics.AdjustmentRejected(domain.Kind(err))
		return nil, err
	}

	keyed := cmd.OperationID != ""
	if keyed {
		existing, err := e.lookupOperation(ctx, cmd)
		if err != nil || existing != nil {
			if err != nil {
				e.metrics.AdjustmentRejected(domain.Kind(err))
			}
			return existing, err
		}
	} else {
		cmd.OperationID = uuid.New().String()
	}
	owner := uuid.New().String()

	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		mov, err := e.attempt(ctx, cmd, owner)
		switch {
		case errors.Is(err, domain.ErrVersionConflict):
			e.metrics.VersionConflict()
			e.log.Debug().
				Str("tenant_id", cmd.TenantID).
				Str("item_id", cmd.ItemID).
				Int("attempt", attempt).
				Msg("conflicto de versión, reintentando")
			continue
		case keyed && claimLost(err):
			// Un reintento concurrente ganó: se devuelve su resultado en lugar de aplicar otra vez.
			existing, lerr := e.lookupOperation(ctx, cmd)
			if lerr != nil {
				e.metrics.AdjustmentRejected(domain.Kind(lerr))
				return nil, lerr
			}
			if existing != nil {
				return existing, nil
			}
			continue
		case err != nil:
			err = e.classify(cmd, err)
			e.metrics.AdjustmentRejected(domain.Kind(err))
			return nil, err
		}
		e.metrics.AdjustmentApplied(mov.Type)
		return mov, nil
	}

	e.metrics.AdjustmentRejected(domain.KindContention)
	e.log.Warn().
		Str("tenant_id", cmd.TenantID).
		Str("item_id", cmd.ItemID).
		Int("attempts", e.maxAttempts).
		Msg("reintentos de compare-and-swap agotados")
	return nil, fmt.Errorf("%w: ítem %s tras %d intentos", domain.ErrContention, cmd.ItemID, e.maxAttempts)
}

// lookupOperation resuelve reintentos con un OperationID ya usado.
func (e *AdjustmentEngine) lookupOperation(ctx context.Context, cmd AdjustCommand) (*entity.StockMovement, error) {
	var existing *entity.StockMovement
	err := e.runner.Run(ctx, func(r Repos) error {
		mov, err := r.Movements.GetByOperationID(ctx, cmd.TenantID, cmd.OperationID)
		if err != nil {
			return err
		}
		if mov != nil {
			if mov.ItemID != cmd.ItemID || mov.QuantityDelta != cmd.Delta {
				return fmt.Errorf("%w: operation_id %s ya usado con otra intención", domain.ErrInvalidRequest, cmd.OperationID)
			}
			existing = mov
			return nil
		}
		if r.Pending == nil {
			return nil
		}
		op, err := r.Pending.Get(ctx, cmd.TenantID, cmd.OperationID)
		if err != nil {
			return err
		}
		if op == nil || op.Status != entity.PendingOpen {
			return nil
		}
		if e.now().Sub(op.CreatedAt) < e.grace {
			// Otra llamada la tiene reclamada y puede no haber aplicado nada todavía.
			return fmt.Errorf("%w: operación %s en curso", domain.ErrContention, cmd.OperationID)
		}
		// La cantidad pudo cambiar ya: aplicar de nuevo contaría el delta dos veces.
		return fmt.Errorf("%w: operación %s pendiente de reconciliación", domain.ErrInconsistent, cmd.OperationID)
	})
	if err != nil {
		if domain.Kind(err) == domain.KindUnknown {
			return nil, fmt.Errorf("%w: %w", domain.ErrStorageUnavailable, err)
		}
		return nil, err
	}
	return existing, nil
}

func (e *AdjustmentEngine) attempt(ctx context.Context, cmd AdjustCommand, owner string) (*entity.StockMovement, error) {
	atomic := e.runner.Atomic()
	var mov *entity.StockMovement

	err := e.runner.Run(ctx, func(r Repos) error {
		item, err := r.Items.Get(ctx, cmd.TenantID, cmd.ItemID)
		if err != nil {
			return err
		}
		if item.LastOperationID == cmd.OperationID {
			return fmt.Errorf("%w: operación %s ya aplicada al ítem", domain.ErrDuplicate, cmd.OperationID)
		}
		if !item.Active {
			return fmt.Errorf("%w: ítem %s desactivado", domain.ErrInvalidState, item.ID)
		}
		newQty := item.Quantity + cmd.Delta
		if newQty < 0 {
			return fmt.Errorf("%w: disponible %d, delta %d", domain.ErrInsufficientStock, item.Quantity, cmd.Delta)
		}
		mov = e.buildMovement(cmd, item, newQty)

		if !atomic {
			if err := r.Pending.Open(ctx, &entity.PendingOperation{
				ID:              cmd.OperationID,
				TenantID:        cmd.TenantID,
				ItemID:          cmd.ItemID,
				Owner:           owner,
				ExpectedVersion: item.Version,
				Movement:        *mov,
				Status:          entity.PendingOpen,
				CreatedAt:       mov.CreatedAt,
			}); err != nil {
				return fmt.Errorf("abrir operación pendiente: %w", err)
			}
		}

		if err := r.Items.CompareAndSwapQuantity(ctx, cmd.TenantID, cmd.ItemID, item.Version, newQty, cmd.OperationID); err != nil {
			if !atomic {
				e.resolvePending(ctx, r, cmd, owner, entity.PendingAbandoned)
			}
			return err
		}

		if err := r.Movements.Append(ctx, mov); err != nil {
			if atomic {
				return err
			}
			return &inconsistency{item: item, movement: mov, cause: err}
		}

		if !atomic {
			e.resolvePending(ctx, r, cmd, owner, entity.PendingCompleted)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return mov, nil
}

// resolvePending cierra la entrada del diario aunque el contexto del llamador haya expirado;
// si falla, el reconciliador la cerrará.
func (e *AdjustmentEngine) resolvePending(ctx context.Context, r Repos, cmd AdjustCommand, owner, status string) {
	if err := r.Pending.Resolve(context.WithoutCancel(ctx), cmd.TenantID, cmd.OperationID, owner, status); err != nil {
		e.log.Warn().Err(err).
			Str("tenant_id", cmd.TenantID).
			Str("operation_id", cmd.OperationID).
			Str("status", status).
			Msg("no se pudo cerrar la operación pendiente")
	}
}

func (e *AdjustmentEngine) buildMovement(cmd AdjustCommand, item *entity.Item, newQty int64) *entity.StockMovement {
	costPerUnit, totalCost := domaininv.MovementValuation(cmd.Delta, item.UnitCost)
	return &entity.StockMovement{
		ID:               uuid.New().String(),
		TenantID:         cmd.TenantID,
		ItemID:           cmd.ItemID,
		OperationID:      cmd.OperationID,
		Type:             cmd.Type,
		QuantityDelta:    cmd.Delta,
		PreviousQuantity: item.Quantity,
		NewQuantity:      newQty,
		ItemVersion:      item.Version + 1,
		Reason:           cmd.Reason,
		ReferenceType:    cmd.ReferenceType,
		ReferenceID:      cmd.ReferenceID,
		PerformedBy:      cmd.PerformedBy,
		CostPerUnit:      costPerUnit,
		TotalCost:        totalCost,
		CreatedAt:        e.now().UTC(),
	}
}

// classify traduce errores de infraestructura a la taxonomía del dominio y registra
// las inconsistencias con el detalle que necesita la reparación fuera de banda.
func (e *AdjustmentEngine) classify(cmd AdjustCommand, err error) error {
	var inc *inconsistency
	if errors.As(err, &inc) {
		e.metrics.Inconsistency()
		e.log.Error().Err(inc.cause).
			Str("tenant_id", cmd.TenantID).
			Str("item_id", cmd.ItemID).
			Str("operation_id", cmd.OperationID).
			Int64("expected_quantity", inc.movement.PreviousQuantity).
			Int64("actual_quantity", inc.movement.NewQuantity).
			Int64("delta", inc.movement.QuantityDelta).
			Int64("item_version", inc.movement.ItemVersion).
			Msg("cantidad actualizada sin movimiento en el libro: requiere reconciliación")
		return fmt.Errorf("%w: operación %s: %w", domain.ErrInconsistent, cmd.OperationID, inc.cause)
	}
	if domain.Kind(err) == domain.KindUnknown {
		e.log.Error().Err(err).
			Str("tenant_id", cmd.TenantID).
			Str("item_id", cmd.ItemID).
			Msg("fallo de almacenamiento en ajuste")
		return fmt.Errorf("%w: %w", domain.ErrStorageUnavailable, err)
	}
	return err
}
