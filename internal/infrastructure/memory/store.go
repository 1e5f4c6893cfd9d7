// Package memory implementa los repositorios sobre go-memdb para desarrollo local y pruebas.
package memory

import (
	"context"

	"github.com/hashicorp/go-memdb"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var (
	_ inventory.TxRunner                    = (*Store)(nil)
	_ repository.ItemRepository             = (*ItemRepo)(nil)
	_ repository.StockMovementRepository    = (*MovementRepo)(nil)
	_ repository.PurchaseOrderRepository    = (*PurchaseOrderRepo)(nil)
	_ repository.PendingOperationRepository = (*PendingRepo)(nil)
)

const (
	tableItems     = "items"
	tableMovements = "movements"
	tableOrders    = "purchase_orders"
	tablePending   = "pending_operations"
)

func schema() *memdb.DBSchema {
	tenantAnd := func(fields ...memdb.Indexer) *memdb.CompoundIndex {
		return &memdb.CompoundIndex{Indexes: append([]memdb.Indexer{&memdb.StringFieldIndex{Field: "TenantID"}}, fields...)}
	}
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			tableItems: {
				Name: tableItems,
				Indexes: map[string]*memdb.IndexSchema{
					"id":     {Name: "id", Unique: true, Indexer: tenantAnd(&memdb.StringFieldIndex{Field: "ID"})},
					"sku":    {Name: "sku", Unique: true, Indexer: tenantAnd(&memdb.StringFieldIndex{Field: "SKU"})},
					"tenant": {Name: "tenant", Indexer: &memdb.StringFieldIndex{Field: "TenantID"}},
				},
			},
			tableMovements: {
				Name: tableMovements,
				Indexes: map[string]*memdb.IndexSchema{
					"id":        {Name: "id", Unique: true, Indexer: &memdb.StringFieldIndex{Field: "ID"}},
					"operation": {Name: "operation", Unique: true, Indexer: tenantAnd(&memdb.StringFieldIndex{Field: "OperationID"})},
					"item":      {Name: "item", Indexer: tenantAnd(&memdb.StringFieldIndex{Field: "ItemID"})},
					"version": {Name: "version", Indexer: tenantAnd(
						&memdb.StringFieldIndex{Field: "ItemID"},
						&memdb.IntFieldIndex{Field: "ItemVersion"},
					)},
				},
			},
			tableOrders: {
				Name: tableOrders,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {Name: "id", Unique: true, Indexer: tenantAnd(&memdb.StringFieldIndex{Field: "ID"})},
				},
			},
			tablePending: {
				Name: tablePending,
				Indexes: map[string]*memdb.IndexSchema{
					"id":     {Name: "id", Unique: true, Indexer: tenantAnd(&memdb.StringFieldIndex{Field: "ID"})},
					"status": {Name: "status", Indexer: &memdb.StringFieldIndex{Field: "Status"}},
					"version": {Name: "version", Indexer: tenantAnd(
						&memdb.StringFieldIndex{Field: "ItemID"},
						&memdb.IntFieldIndex{Field: "ExpectedVersion"},
					)},
				},
			},
		},
	}
}

// Store base de datos en memoria. En modo atómico (por defecto) Run abre una única
// transacción de escritura; con WithSeparateWrites cada operación confirma por separado
// y el motor recurre al diario de operaciones pendientes.
type Store struct {
	db     *memdb.MemDB
	atomic bool
}

// Option configura el Store.
type Option func(*Store)

// WithSeparateWrites desactiva la transacción que abarca catálogo y libro.
func WithSeparateWrites() Option {
	return func(s *Store) { s.atomic = false }
}

// NewStore crea un Store vacío.
func NewStore(opts ...Option) (*Store, error) {
	db, err := memdb.NewMemDB(schema())
	if err != nil {
		return nil, err
	}
	s := &Store{db: db, atomic: true}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// session ejecuta lecturas y escrituras sobre una transacción abierta o, si no la hay,
// sobre transacciones propias de cada llamada.
type session struct {
	db  *memdb.MemDB
	txn *memdb.Txn
}

func (s *session) read(ctx context.Context, fn func(txn *memdb.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.txn != nil {
		return fn(s.txn)
	}
	txn := s.db.Txn(false)
	defer txn.Abort()
	return fn(txn)
}

func (s *session) write(ctx context.Context, fn func(txn *memdb.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.txn != nil {
		return fn(s.txn)
	}
	txn := s.db.Txn(true)
	if err := fn(txn); err != nil {
		txn.Abort()
		return err
	}
	txn.Commit()
	return nil
}

func (s *Store) autocommit() *session { return &session{db: s.db} }

// Items repositorio de ítems fuera de una unidad de trabajo.
func (s *Store) Items() *ItemRepo { return &ItemRepo{s: s.autocommit()} }

// Movements repositorio del libro fuera de una unidad de trabajo.
func (s *Store) Movements() *MovementRepo { return &MovementRepo{s: s.autocommit()} }

// PurchaseOrders repositorio de órdenes de compra.
func (s *Store) PurchaseOrders() *PurchaseOrderRepo { return &PurchaseOrderRepo{s: s.autocommit()} }

// Pending diario de operaciones pendientes.
func (s *Store) Pending() *PendingRepo { return &PendingRepo{s: s.autocommit()} }

// Atomic implementa inventory.TxRunner.
func (s *Store) Atomic() bool { return s.atomic }

// Run implementa inventory.TxRunner.
func (s *Store) Run(ctx context.Context, fn func(repos inventory.Repos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !s.atomic {
		return fn(inventory.Repos{Items: s.Items(), Movements: s.Movements(), Pending: s.Pending()})
	}
	txn := s.db.Txn(true)
	sess := &session{db: s.db, txn: txn}
	if err := fn(inventory.Repos{
		Items:     &ItemRepo{s: sess},
		Movements: &MovementRepo{s: sess},
		Pending:   &PendingRepo{s: sess},
	}); err != nil {
		txn.Abort()
		return err
	}
	txn.Commit()
	return nil
}
