package storage

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/stock-ledger/pkg/config"
)

// Backend repositorios y runner del driver configurado.
type Backend struct {
	Items          repository.ItemRepository
	Movements      repository.StockMovementRepository
	PurchaseOrders repository.PurchaseOrderRepository
	Pending        repository.PendingOperationRepository
	Runner         inventory.TxRunner
	close          func()
}

// Close libera conexiones (no-op en memoria).
func (b *Backend) Close() {
	if b.close != nil {
		b.close()
	}
}

// Open construye el backend según cfg.Storage.Driver. En postgres aplica las migraciones embebidas.
func Open(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Backend, error) {
	switch cfg.Storage.Driver {
	case config.StorageMemory:
		var opts []memory.Option
		if cfg.Storage.SeparateWrites {
			opts = append(opts, memory.WithSeparateWrites())
		}
		store, err := memory.NewStore(opts...)
		if err != nil {
			return nil, fmt.Errorf("crear store en memoria: %w", err)
		}
		log.Info().Bool("atomic", store.Atomic()).Msg("almacenamiento en memoria")
		return &Backend{
			Items:          store.Items(),
			Movements:      store.Movements(),
			PurchaseOrders: store.PurchaseOrders(),
			Pending:        store.Pending(),
			Runner:         store,
		}, nil

	case config.StoragePostgres:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			return nil, fmt.Errorf("conexión a PostgreSQL: %w", err)
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migraciones: %w", err)
		}
		log.Info().Msg("almacenamiento PostgreSQL listo")
		return &Backend{
			Items:          postgres.NewItemRepository(pool),
			Movements:      postgres.NewStockMovementRepository(pool),
			PurchaseOrders: postgres.NewPurchaseOrderRepository(pool),
			Pending:        postgres.NewPendingOperationRepository(pool),
			Runner:         postgres.NewTxRunner(pool),
			close:          pool.Close,
		}, nil
	}
	return nil, fmt.Errorf("driver de almacenamiento no soportado: %q", cfg.Storage.Driver)
}
