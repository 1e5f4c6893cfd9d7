package inventory_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
)

func seedOrder(t *testing.T, s *memory.Store, id, status string, lines ...entity.PurchaseOrderLine) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, s.PurchaseOrders().Create(context.Background(), &entity.PurchaseOrder{
		ID: id, TenantID: tenant, Number: "OC-" + id, Status: status, Lines: lines,
		CreatedBy: "u1", CreatedAt: now, UpdatedAt: now,
	}))
}

func line(id, itemID string, ordered int64) entity.PurchaseOrderLine {
	return entity.PurchaseOrderLine{LineID: id, ItemID: itemID, QuantityOrdered: ordered}
}

func newOrchestrator(s *memory.Store, rec inventory.Recorder) *inventory.ReceivingOrchestrator {
	engine := inventory.NewAdjustmentEngine(s, nopLog, inventory.WithRecorder(rec))
	return inventory.NewReceivingOrchestrator(engine, s.PurchaseOrders(), nopLog, rec)
}

func receive(po string, lines ...inventory.ReceiptLine) inventory.ReceiveCommand {
	return inventory.ReceiveCommand{TenantID: tenant, PurchaseOrderID: po, Lines: lines, PerformedBy: "bodega"}
}

func TestReceive_RecepcionParcialSinCompensacion(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	seedItem(t, s, "a", 0, 0)
	seedItem(t, s, "c", 1, 0)
	seedOrder(t, s, "po1", entity.PurchaseOrderSent,
		line("l1", "a", 5), line("l2", "ghost", 3), line("l3", "c", 2))
	rec := &countingRecorder{}

	res, err := newOrchestrator(s, rec).Receive(ctx, receive("po1",
		inventory.ReceiptLine{ItemID: "a", Quantity: 5},
		inventory.ReceiptLine{ItemID: "ghost", Quantity: 3},
		inventory.ReceiptLine{ItemID: "c", Quantity: 2},
	))
	require.NoError(t, err)
	assert.False(t, res.Complete())
	require.Len(t, res.Succeeded, 2)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, 1, res.Failed[0].Index)
	assert.Equal(t, domain.KindNotFound, res.Failed[0].ErrorKind)
	assert.Equal(t, entity.PurchaseOrderPartiallyReceived, res.Status)
	require.Len(t, res.Outstanding, 1)
	assert.Equal(t, "ghost", res.Outstanding[0].ItemID)
	assert.Equal(t, 2, rec.receiptOK)
	assert.Equal(t, 1, rec.receiptFailed)

	a, err := s.Items().Get(ctx, tenant, "a")
	require.NoError(t, err)
	assert.Equal(t, int64(5), a.Quantity)
	c, err := s.Items().Get(ctx, tenant, "c")
	require.NoError(t, err)
	assert.Equal(t, int64(3), c.Quantity)
	assertConserved(t, s, "a")
	assertConserved(t, s, "c")

	page, err := s.Movements().ListForItem(ctx, tenant, "a", 10, "")
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, entity.MovementPurchaseReceipt, page.Items[0].Type)
	assert.Equal(t, inventory.ReferenceTypePurchaseOrder, page.Items[0].ReferenceType)
	assert.Equal(t, "po1", page.Items[0].ReferenceID)

	po, err := s.PurchaseOrders().Get(ctx, tenant, "po1")
	require.NoError(t, err)
	assert.Equal(t, entity.PurchaseOrderPartiallyReceived, po.Status)
	assert.Equal(t, int64(5), po.Lines[0].QuantityReceived)
	assert.Equal(t, int64(0), po.Lines[1].QuantityReceived)
}

func TestReceive_CompletaYDobleRecepcion(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	seedItem(t, s, "a", 0, 0)
	seedItem(t, s, "b", 0, 0)
	seedOrder(t, s, "po1", entity.PurchaseOrderSent, line("l1", "a", 4), line("l2", "b", 6))
	orch := newOrchestrator(s, nil)

	cmd := receive("po1",
		inventory.ReceiptLine{ItemID: "a", Quantity: 4},
		inventory.ReceiptLine{ItemID: "b", Quantity: 6},
	)
	res, err := orch.Receive(ctx, cmd)
	require.NoError(t, err)
	assert.True(t, res.Complete())
	assert.Equal(t, entity.PurchaseOrderReceived, res.Status)
	assert.Empty(t, res.Outstanding)

	_, err = orch.Receive(ctx, cmd)
	assert.True(t, errors.Is(err, domain.ErrInvalidState))

	b, err := s.Items().Get(ctx, tenant, "b")
	require.NoError(t, err)
	assert.Equal(t, int64(6), b.Quantity)
}

func TestReceive_EnVariasEntregas(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	seedItem(t, s, "a", 0, 0)
	seedOrder(t, s, "po1", entity.PurchaseOrderSent, line("l1", "a", 5))
	orch := newOrchestrator(s, nil)

	res, err := orch.Receive(ctx, receive("po1", inventory.ReceiptLine{ItemID: "a", Quantity: 2}))
	require.NoError(t, err)
	assert.Equal(t, entity.PurchaseOrderPartiallyReceived, res.Status)
	require.Len(t, res.Outstanding, 1)
	assert.Equal(t, int64(3), res.Outstanding[0].Outstanding)

	// Exceder lo pendiente falla solo esa línea.
	res, err = orch.Receive(ctx, receive("po1", inventory.ReceiptLine{ItemID: "a", Quantity: 4}))
	require.NoError(t, err)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, domain.KindInvalidRequest, res.Failed[0].ErrorKind)
	assert.Equal(t, entity.PurchaseOrderPartiallyReceived, res.Status)

	res, err = orch.Receive(ctx, receive("po1", inventory.ReceiptLine{ItemID: "a", Quantity: 3}))
	require.NoError(t, err)
	assert.Equal(t, entity.PurchaseOrderReceived, res.Status)

	a, err := s.Items().Get(ctx, tenant, "a")
	require.NoError(t, err)
	assert.Equal(t, int64(5), a.Quantity)
	assertConserved(t, s, "a")
}

func TestReceive_LineasRepetidasNoExcedenLoPedido(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	seedItem(t, s, "a", 0, 0)
	seedOrder(t, s, "po1", entity.PurchaseOrderSent, line("l1", "a", 5))

	res, err := newOrchestrator(s, nil).Receive(ctx, receive("po1",
		inventory.ReceiptLine{ItemID: "a", Quantity: 3},
		inventory.ReceiptLine{ItemID: "a", Quantity: 3},
	))
	require.NoError(t, err)
	assert.Len(t, res.Succeeded, 1)
	assert.Len(t, res.Failed, 1)

	a, err := s.Items().Get(ctx, tenant, "a")
	require.NoError(t, err)
	assert.Equal(t, int64(3), a.Quantity)
}

func TestReceive_EstadosYValidacion(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	seedItem(t, s, "a", 0, 0)
	seedOrder(t, s, "draft", entity.PurchaseOrderDraft, line("l1", "a", 5))
	seedOrder(t, s, "cancelled", entity.PurchaseOrderCancelled, line("l1", "a", 5))
	orch := newOrchestrator(s, nil)
	ok := inventory.ReceiptLine{ItemID: "a", Quantity: 1}

	_, err := orch.Receive(ctx, receive("draft", ok))
	assert.True(t, errors.Is(err, domain.ErrInvalidState))
	_, err = orch.Receive(ctx, receive("cancelled", ok))
	assert.True(t, errors.Is(err, domain.ErrInvalidState))
	_, err = orch.Receive(ctx, receive("nope", ok))
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	_, err = orch.Receive(ctx, receive("draft"))
	assert.True(t, errors.Is(err, domain.ErrInvalidRequest))
	_, err = orch.Receive(ctx, receive("draft", inventory.ReceiptLine{ItemID: "a", Quantity: 0}))
	assert.True(t, errors.Is(err, domain.ErrInvalidRequest))

	a, err := s.Items().Get(ctx, tenant, "a")
	require.NoError(t, err)
	assert.Equal(t, int64(0), a.Quantity)
}

func TestReceive_NingunaLineaAplicadaNoCambiaEstado(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	seedOrder(t, s, "po1", entity.PurchaseOrderSent, line("l1", "ghost", 5))

	res, err := newOrchestrator(s, nil).Receive(ctx, receive("po1", inventory.ReceiptLine{ItemID: "ghost", Quantity: 5}))
	require.NoError(t, err)
	assert.Equal(t, entity.PurchaseOrderSent, res.Status)
	assert.Len(t, res.Failed, 1)

	// La reserva de la línea fallida se libera.
	po, err := s.PurchaseOrders().Get(ctx, tenant, "po1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), po.Lines[0].QuantityReserved)
	assert.Equal(t, int64(5), po.Lines[0].Outstanding())
}

func TestReceive_RecepcionesConcurrentesNoExcedenLoPedido(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	seedItem(t, s, "a", 0, 0)
	seedOrder(t, s, "po1", entity.PurchaseOrderSent, line("l1", "a", 10))
	engine := inventory.NewAdjustmentEngine(s, nopLog)
	orch := inventory.NewReceivingOrchestrator(engine, &slowOrders{PurchaseOrderRepository: s.PurchaseOrders(), delay: 20 * time.Millisecond}, nopLog, nil)

	results := make([]*inventory.ReceiptResult, 2)
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = orch.Receive(ctx, receive("po1", inventory.ReceiptLine{ItemID: "a", Quantity: 10}))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for i, err := range errs {
		if err != nil {
			// Llegó tarde: la orden ya estaba recibida.
			assert.True(t, errors.Is(err, domain.ErrInvalidState), "error inesperado: %v", err)
			continue
		}
		succeeded += len(results[i].Succeeded)
		for _, f := range results[i].Failed {
			assert.Equal(t, domain.KindInvalidRequest, f.ErrorKind)
		}
	}
	assert.Equal(t, 1, succeeded)

	a, err := s.Items().Get(ctx, tenant, "a")
	require.NoError(t, err)
	assert.Equal(t, int64(10), a.Quantity)
	assertConserved(t, s, "a")

	po, err := s.PurchaseOrders().Get(ctx, tenant, "po1")
	require.NoError(t, err)
	assert.Equal(t, entity.PurchaseOrderReceived, po.Status)
	assert.Equal(t, int64(10), po.Lines[0].QuantityReceived)
	assert.Equal(t, int64(0), po.Lines[0].QuantityReserved)
}

func TestReceive_LineaExtraFallidaYCierreEnLaSiguiente(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	seedItem(t, s, "a", 0, 0)
	seedItem(t, s, "b", 0, 0)
	seedOrder(t, s, "po1", entity.PurchaseOrderSent, line("l1", "a", 4), line("l2", "b", 6))
	orch := newOrchestrator(s, nil)

	res, err := orch.Receive(ctx, receive("po1",
		inventory.ReceiptLine{ItemID: "a", Quantity: 4},
		inventory.ReceiptLine{ItemID: "otro", Quantity: 1},
		inventory.ReceiptLine{ItemID: "b", Quantity: 6},
	))
	require.NoError(t, err)
	assert.False(t, res.Complete())
	require.Len(t, res.Failed, 1)
	assert.Equal(t, 1, res.Failed[0].Index)
	assert.Equal(t, entity.PurchaseOrderPartiallyReceived, res.Status)
	assert.Empty(t, res.Outstanding)

	// Nada pendiente: la siguiente recepción cierra la orden sin mover stock.
	res, err = orch.Receive(ctx, receive("po1", inventory.ReceiptLine{ItemID: "a", Quantity: 1}))
	require.NoError(t, err)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, entity.PurchaseOrderReceived, res.Status)

	_, err = orch.Receive(ctx, receive("po1", inventory.ReceiptLine{ItemID: "a", Quantity: 1}))
	assert.True(t, errors.Is(err, domain.ErrInvalidState))

	a, err := s.Items().Get(ctx, tenant, "a")
	require.NoError(t, err)
	assert.Equal(t, int64(4), a.Quantity)
	assertConserved(t, s, "a")
}

func TestReceive_OrdenSinPendientesPasaARecibida(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	seedItem(t, s, "a", 5, 0)
	full := line("l1", "a", 5)
	full.QuantityReceived = 5
	seedOrder(t, s, "po1", entity.PurchaseOrderPartiallyReceived, full)

	res, err := newOrchestrator(s, nil).Receive(ctx, receive("po1", inventory.ReceiptLine{ItemID: "a", Quantity: 1}))
	require.NoError(t, err)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, entity.PurchaseOrderReceived, res.Status)

	a, err := s.Items().Get(ctx, tenant, "a")
	require.NoError(t, err)
	assert.Equal(t, int64(5), a.Quantity)
}
