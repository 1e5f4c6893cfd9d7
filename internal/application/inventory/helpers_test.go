package inventory_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
)

const tenant = "t1"

func newStore(t *testing.T, opts ...memory.Option) *memory.Store {
	t.Helper()
	s, err := memory.NewStore(opts...)
	require.NoError(t, err)
	return s
}

func seedItem(t *testing.T, s *memory.Store, id string, qty, reorderLevel int64) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, s.Items().Create(context.Background(), &entity.Item{
		ID: id, TenantID: tenant, SKU: "SKU-" + id, Name: "Item " + id,
		Quantity: qty, InitialQuantity: qty, ReorderLevel: reorderLevel, ReorderQuantity: 10,
		Active: true, CreatedAt: now, UpdatedAt: now,
	}))
}

func manual(itemID string, delta int64) inventory.AdjustCommand {
	return inventory.AdjustCommand{
		TenantID: tenant, ItemID: itemID, Delta: delta,
		Reason: "conteo físico", Type: entity.MovementManualAdjustment, PerformedBy: "u1",
	}
}

// assertConserved verifica cantidad = inicial + Σ deltas y no-negatividad.
func assertConserved(t *testing.T, s *memory.Store, itemID string) {
	t.Helper()
	ctx := context.Background()
	item, err := s.Items().Get(ctx, tenant, itemID)
	require.NoError(t, err)
	sum, err := s.Movements().SumDeltaForItem(ctx, tenant, itemID)
	require.NoError(t, err)
	require.Equal(t, item.InitialQuantity+sum, item.Quantity, "cantidad y libro divergen")
	require.GreaterOrEqual(t, item.Quantity, int64(0))
}

var nopLog = zerolog.Nop()

// faultyRunner envuelve un TxRunner y permite inyectar fallos en el append o en el CAS.
type faultyRunner struct {
	inner inventory.TxRunner

	mu         sync.Mutex
	failAppend int // número de appends que fallarán
	conflicts  int // número de CAS que devolverán conflicto de versión
}

var (
	errAppend   = errors.New("disco lleno")
	errConflict = domain.ErrVersionConflict
)

func (f *faultyRunner) Atomic() bool { return f.inner.Atomic() }

func (f *faultyRunner) Run(ctx context.Context, fn func(repos inventory.Repos) error) error {
	return f.inner.Run(ctx, func(r inventory.Repos) error {
		r.Movements = &faultyMovements{StockMovementRepository: r.Movements, f: f}
		r.Items = &faultyItems{ItemRepository: r.Items, f: f}
		return fn(r)
	})
}

func (f *faultyRunner) take(counter *int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if *counter > 0 {
		*counter--
		return true
	}
	return false
}

type faultyMovements struct {
	repository.StockMovementRepository
	f *faultyRunner
}

func (m *faultyMovements) Append(ctx context.Context, mov *entity.StockMovement) error {
	if m.f.take(&m.f.failAppend) {
		return errAppend
	}
	return m.StockMovementRepository.Append(ctx, mov)
}

type faultyItems struct {
	repository.ItemRepository
	f *faultyRunner
}

func (i *faultyItems) CompareAndSwapQuantity(ctx context.Context, tenantID, itemID string, expectedVersion, newQuantity int64, operationID string) error {
	if i.f.take(&i.f.conflicts) {
		return errConflict
	}
	return i.ItemRepository.CompareAndSwapQuantity(ctx, tenantID, itemID, expectedVersion, newQuantity, operationID)
}

// slowRunner ensancha las ventanas entre lecturas y escrituras para forzar intercalados.
type slowRunner struct {
	inner inventory.TxRunner
	delay time.Duration
}

func (s *slowRunner) Atomic() bool { return s.inner.Atomic() }

func (s *slowRunner) Run(ctx context.Context, fn func(repos inventory.Repos) error) error {
	return s.inner.Run(ctx, func(r inventory.Repos) error {
		r.Movements = &slowMovements{StockMovementRepository: r.Movements, delay: s.delay}
		if r.Pending != nil {
			r.Pending = &slowPending{PendingOperationRepository: r.Pending, delay: s.delay}
		}
		return fn(r)
	})
}

type slowMovements struct {
	repository.StockMovementRepository
	delay time.Duration
}

func (m *slowMovements) GetByOperationID(ctx context.Context, tenantID, operationID string) (*entity.StockMovement, error) {
	mov, err := m.StockMovementRepository.GetByOperationID(ctx, tenantID, operationID)
	time.Sleep(m.delay)
	return mov, err
}

func (m *slowMovements) Append(ctx context.Context, mov *entity.StockMovement) error {
	time.Sleep(m.delay)
	return m.StockMovementRepository.Append(ctx, mov)
}

type slowPending struct {
	repository.PendingOperationRepository
	delay time.Duration
}

func (p *slowPending) Get(ctx context.Context, tenantID, id string) (*entity.PendingOperation, error) {
	op, err := p.PendingOperationRepository.Get(ctx, tenantID, id)
	time.Sleep(p.delay)
	return op, err
}

// slowOrders retrasa la lectura de la orden para que dos recepciones partan del mismo estado.
type slowOrders struct {
	repository.PurchaseOrderRepository
	delay time.Duration
}

func (o *slowOrders) Get(ctx context.Context, tenantID, id string) (*entity.PurchaseOrder, error) {
	po, err := o.PurchaseOrderRepository.Get(ctx, tenantID, id)
	time.Sleep(o.delay)
	return po, err
}

func ledgerCount(t *testing.T, s *memory.Store, itemID string) int {
	t.Helper()
	page, err := s.Movements().ListForItem(context.Background(), tenant, itemID, inventory.MaxPageSize, "")
	require.NoError(t, err)
	return len(page.Items)
}
