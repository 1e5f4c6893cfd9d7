package inventory

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// ReferenceTypePurchaseOrder referencia usada en los movimientos de recepción.
const ReferenceTypePurchaseOrder = "PurchaseOrder"

// ReasonPurchaseReceipt motivo registrado en cada línea recibida.
const ReasonPurchaseReceipt = "purchase_order_receipt"

// ReceiptLine línea recibida: ítem y cantidad (> 0).
type ReceiptLine struct {
	ItemID   string
	Quantity int64
}

// ReceiveCommand recepción de una orden de compra.
type ReceiveCommand struct {
	TenantID        string
	PurchaseOrderID string
	Lines           []ReceiptLine
	PerformedBy     string
}

// LineOutcome resultado de una línea de la recepción.
type LineOutcome struct {
	Index      int              `json:"index"`
	ItemID     string           `json:"item_id"`
	Quantity   int64            `json:"quantity"`
	MovementID string           `json:"movement_id,omitempty"`
	ErrorKind  domain.ErrorKind `json:"error_kind,omitempty"`
	Error      string           `json:"error,omitempty"`
}

// OutstandingLine cantidad que sigue pendiente en una línea de la orden.
type OutstandingLine struct {
	LineID      string `json:"line_id"`
	ItemID      string `json:"item_id"`
	Outstanding int64  `json:"outstanding"`
}

// ReceiptResult enumera líneas aplicadas y fallidas para que el llamador reintente solo las fallidas.
type ReceiptResult struct {
	PurchaseOrderID string            `json:"purchase_order_id"`
	Status          string            `json:"status"`
	Succeeded       []LineOutcome     `json:"succeeded"`
	Failed          []LineOutcome     `json:"failed"`
	Outstanding     []OutstandingLine `json:"outstanding"`
}

// Complete indica si todas las líneas enviadas se aplicaron.
func (r *ReceiptResult) Complete() bool { return len(r.Failed) == 0 }

// ReceivingOrchestrator aplica la recepción de una orden de compra como una secuencia de
// ajustes, uno por línea. No es atómico entre líneas y nunca compensa líneas ya aplicadas.
//
// Antes de tocar el stock aparta en la orden las cantidades a recibir con una escritura por
// versión; dos recepciones concurrentes no pueden reservar más de lo pendiente. Al terminar
// convierte la reserva en recibido (líneas aplicadas) o la libera (líneas fallidas).
type ReceivingOrchestrator struct {
	engine      Adjuster
	orders      repository.PurchaseOrderRepository
	log         zerolog.Logger
	metrics     Recorder
	maxAttempts int
}

// NewReceivingOrchestrator construye el orquestador de recepción.
func NewReceivingOrchestrator(engine Adjuster, orders repository.PurchaseOrderRepository, log zerolog.Logger, rec Recorder) *ReceivingOrchestrator {
	if rec == nil {
		rec = nopRecorder{}
	}
	return &ReceivingOrchestrator{
		engine:      engine,
		orders:      orders,
		log:         log.With().Str("component", "receiving").Logger(),
		metrics:     rec,
		maxAttempts: DefaultMaxAttempts,
	}
}

func (c ReceiveCommand) validate() error {
	if strings.TrimSpace(c.TenantID) == "" || strings.TrimSpace(c.PurchaseOrderID) == "" || strings.TrimSpace(c.PerformedBy) == "" {
		return fmt.Errorf("%w: tenant_id, purchase_order_id y performed_by son requeridos", domain.ErrInvalidRequest)
	}
	if len(c.Lines) == 0 {
		return fmt.Errorf("%w: la recepción no tiene líneas", domain.ErrInvalidRequest)
	}
	for i, l := range c.Lines {
		if strings.TrimSpace(l.ItemID) == "" {
			return fmt.Errorf("%w: línea %d sin item_id", domain.ErrInvalidRequest, i+1)
		}
		if l.Quantity <= 0 {
			return fmt.Errorf("%w: línea %d con cantidad %d", domain.ErrInvalidRequest, i+1, l.Quantity)
		}
	}
	return nil
}

// reservation cantidades apartadas por una recepción, por índice de línea del comando.
type reservation struct {
	order    *entity.PurchaseOrder
	lineIDs  map[int]string // índice en ReceiveCommand.Lines -> LineID de la orden
	byLine   map[string]int64
	rejected []rejectedLine
}

type rejectedLine struct {
	outcome LineOutcome
	err     error
}

// Receive valida la orden, reserva lo pendiente, ajusta cada línea de forma independiente
// y liquida la reserva actualizando el estado de la orden.
func (o *ReceivingOrchestrator) Receive(ctx context.Context, cmd ReceiveCommand) (*ReceiptResult, error) {
	if err := cmd.validate(); err != nil {
		return nil, err
	}
	res, err := o.reserve(ctx, cmd)
	if err != nil {
		return nil, err
	}

	result := &ReceiptResult{
		PurchaseOrderID: res.order.ID,
		Succeeded:       []LineOutcome{},
		Failed:          []LineOutcome{},
	}
	for _, r := range res.rejected {
		o.fail(result, r.outcome, r.err)
	}

	// Cantidades que ya movieron el stock, por línea de la orden.
	accepted := make(map[string]int64)
	for i, line := range cmd.Lines {
		lineID, ok := res.lineIDs[i]
		if !ok {
			continue
		}
		outcome := LineOutcome{Index: i, ItemID: line.ItemID, Quantity: line.Quantity}
		mov, err := o.engine.Adjust(ctx, AdjustCommand{
			TenantID:      cmd.TenantID,
			ItemID:        line.ItemID,
			Delta:         line.Quantity,
			Reason:        ReasonPurchaseReceipt,
			Type:          entity.MovementPurchaseReceipt,
			ReferenceType: ReferenceTypePurchaseOrder,
			ReferenceID:   res.order.ID,
			PerformedBy:   cmd.PerformedBy,
		})
		if err != nil {
			if errors.Is(err, domain.ErrInconsistent) {
				// La cantidad ya cambió: se cuenta como recibida para no volver a aplicarla.
				accepted[lineID] += line.Quantity
			}
			o.fail(result, outcome, err)
			continue
		}
		outcome.MovementID = mov.ID
		accepted[lineID] += line.Quantity
		result.Succeeded = append(result.Succeeded, outcome)
		o.metrics.ReceiptLine(true)
	}
	slices.SortFunc(result.Failed, func(a, b LineOutcome) int { return a.Index - b.Index })

	// La reserva se liquida aunque el llamador haya cancelado: si no, bloquearía la orden.
	po, err := o.settle(context.WithoutCancel(ctx), res.order, res.byLine, accepted, result.Complete())
	if po == nil {
		po = res.order
	}
	result.Status = po.Status
	result.Outstanding = outstandingLines(po)
	if err != nil {
		o.log.Error().Err(err).
			Str("tenant_id", cmd.TenantID).
			Str("purchase_order_id", cmd.PurchaseOrderID).
			Int("lines_applied", len(result.Succeeded)).
			Msg("líneas aplicadas pero la orden no se pudo actualizar")
		return result, fmt.Errorf("actualizar orden %s: %w", cmd.PurchaseOrderID, err)
	}
	return result, nil
}

func (o *ReceivingOrchestrator) fail(result *ReceiptResult, outcome LineOutcome, err error) {
	outcome.ErrorKind = domain.Kind(err)
	outcome.Error = err.Error()
	result.Failed = append(result.Failed, outcome)
	o.metrics.ReceiptLine(false)
}

// reserve aparta en la orden lo pedido por cada línea que cabe en lo pendiente. Ante conflicto
// de versión recarga la orden y vuelve a evaluar estado y pendientes.
func (o *ReceivingOrchestrator) reserve(ctx context.Context, cmd ReceiveCommand) (*reservation, error) {
	for attempt := 1; attempt <= o.maxAttempts; attempt++ {
		po, err := o.orders.Get(ctx, cmd.TenantID, cmd.PurchaseOrderID)
		if err != nil {
			return nil, err
		}
		if !po.CanReceive() {
			return nil, fmt.Errorf("%w: orden %s en estado %s", domain.ErrInvalidState, po.ID, po.Status)
		}

		next := po.Clone()
		res := &reservation{order: po, lineIDs: map[int]string{}, byLine: map[string]int64{}}
		for i, line := range cmd.Lines {
			outcome := LineOutcome{Index: i, ItemID: line.ItemID, Quantity: line.Quantity}
			idx := next.LineForItem(line.ItemID)
			if idx < 0 {
				res.rejected = append(res.rejected, rejectedLine{outcome, fmt.Errorf("%w: el ítem no pertenece a la orden", domain.ErrInvalidRequest)})
				continue
			}
			if outstanding := next.Lines[idx].Outstanding(); line.Quantity > outstanding {
				res.rejected = append(res.rejected, rejectedLine{outcome, fmt.Errorf("%w: cantidad %d excede lo pendiente (%d)", domain.ErrInvalidRequest, line.Quantity, outstanding)})
				continue
			}
			next.Lines[idx].QuantityReserved += line.Quantity
			res.lineIDs[i] = next.Lines[idx].LineID
			res.byLine[next.Lines[idx].LineID] += line.Quantity
		}
		if len(res.lineIDs) == 0 {
			return res, nil
		}

		next.UpdatedAt = time.Now().UTC()
		err = o.orders.Update(ctx, next, po.Version)
		if err == nil {
			next.Version = po.Version + 1
			res.order = next
			return res, nil
		}
		if !errors.Is(err, domain.ErrVersionConflict) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: orden %s", domain.ErrContention, cmd.PurchaseOrderID)
}

// settle libera lo reservado, suma lo recibido y recalcula el estado. La orden pasa a
// RECEIVED cuando no queda nada por recibir y todas las líneas de la recepción se aplicaron;
// si una recepción con líneas fallidas dejó la orden sin pendientes, la siguiente la cierra.
func (o *ReceivingOrchestrator) settle(ctx context.Context, po *entity.PurchaseOrder, reserved, accepted map[string]int64, allLinesOK bool) (*entity.PurchaseOrder, error) {
	if len(reserved) == 0 && (!po.FullyReceived() || po.Status == entity.PurchaseOrderReceived) {
		return po, nil
	}

	current := po
	for attempt := 1; attempt <= o.maxAttempts; attempt++ {
		next := current.Clone()
		for i := range next.Lines {
			id := next.Lines[i].LineID
			next.Lines[i].QuantityReserved = max(next.Lines[i].QuantityReserved-reserved[id], 0)
			next.Lines[i].QuantityReceived += accepted[id]
		}
		switch {
		case next.FullyReceived() && (allLinesOK || len(reserved) == 0):
			next.Status = entity.PurchaseOrderReceived
		case next.AnyReceived():
			next.Status = entity.PurchaseOrderPartiallyReceived
		}
		next.UpdatedAt = time.Now().UTC()

		err := o.orders.Update(ctx, next, current.Version)
		if err == nil {
			next.Version = current.Version + 1
			return next, nil
		}
		if !errors.Is(err, domain.ErrVersionConflict) {
			return nil, err
		}
		reloaded, err := o.orders.Get(ctx, po.TenantID, po.ID)
		if err != nil {
			return nil, err
		}
		current = reloaded
	}
	// TODO: liberar en el reconciliador las reservas que quedan huérfanas cuando la liquidación
	// agota sus reintentos o el proceso cae entre reserva y liquidación.
	return nil, fmt.Errorf("%w: orden %s", domain.ErrContention, po.ID)
}

func outstandingLines(po *entity.PurchaseOrder) []OutstandingLine {
	out := []OutstandingLine{}
	for _, l := range po.Lines {
		if n := l.Outstanding(); n > 0 {
			out = append(out, OutstandingLine{LineID: l.LineID, ItemID: l.ItemID, Outstanding: n})
		}
	}
	return out
}
