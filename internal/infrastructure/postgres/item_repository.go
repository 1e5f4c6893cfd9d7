package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.ItemRepository = (*ItemRepo)(nil)

// ItemRepo implementación del catálogo sobre PostgreSQL (usable con pool o tx).
type ItemRepo struct {
	q Querier
}

// NewItemRepository construye el adaptador. Pasar pool o tx (Querier).
func NewItemRepository(q Querier) *ItemRepo {
	return &ItemRepo{q: q}
}

const itemColumns = `id, tenant_id, sku, name, quantity, initial_quantity, reorder_level, reorder_quantity,
	unit_cost, version, last_operation_id, active, created_at, updated_at`

func scanItem(row pgx.Row) (*entity.Item, error) {
	var it entity.Item
	err := row.Scan(
		&it.ID, &it.TenantID, &it.SKU, &it.Name, &it.Quantity, &it.InitialQuantity,
		&it.ReorderLevel, &it.ReorderQuantity, &it.UnitCost, &it.Version, &it.LastOperationID,
		&it.Active, &it.CreatedAt, &it.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &it, nil
}

// Create persiste un ítem nuevo.
func (r *ItemRepo) Create(ctx context.Context, item *entity.Item) error {
	query := `
		INSERT INTO items (` + itemColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err := r.q.Exec(ctx, query,
		item.ID, item.TenantID, item.SKU, item.Name, item.Quantity, item.InitialQuantity,
		item.ReorderLevel, item.ReorderQuantity, item.UnitCost, item.Version, item.LastOperationID,
		item.Active, item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

func (r *ItemRepo) Get(ctx context.Context, tenantID, itemID string) (*entity.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE tenant_id = $1 AND id = $2`
	it, err := scanItem(r.q.QueryRow(ctx, query, tenantID, itemID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get item: %w", err)
	}
	return it, nil
}

func (r *ItemRepo) GetBySKU(ctx context.Context, tenantID, sku string) (*entity.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE tenant_id = $1 AND sku = $2`
	it, err := scanItem(r.q.QueryRow(ctx, query, tenantID, sku))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get item by sku: %w", err)
	}
	return it, nil
}

// ListByTenant lista ítems por fecha de creación.
func (r *ItemRepo) ListByTenant(ctx context.Context, tenantID string, activeOnly bool, limit, offset int) ([]*entity.Item, error) {
	query := `
		SELECT ` + itemColumns + ` FROM items
		WHERE tenant_id = $1 AND ($2 = FALSE OR active)
		ORDER BY created_at, id
		LIMIT $3 OFFSET $4`
	rows, err := r.q.Query(ctx, query, tenantID, activeOnly, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	list := []*entity.Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		list = append(list, it)
	}
	return list, rows.Err()
}

// UpdateDetails no toca quantity ni version.
func (r *ItemRepo) UpdateDetails(ctx context.Context, item *entity.Item) error {
	query := `
		UPDATE items SET sku = $3, name = $4, reorder_level = $5, reorder_quantity = $6, unit_cost = $7, updated_at = now()
		WHERE tenant_id = $1 AND id = $2`
	tag, err := r.q.Exec(ctx, query,
		item.TenantID, item.ID, item.SKU, item.Name, item.ReorderLevel, item.ReorderQuantity, item.UnitCost,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("update item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ItemRepo) SetActive(ctx context.Context, tenantID, itemID string, active bool) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE items SET active = $3, updated_at = now() WHERE tenant_id = $1 AND id = $2`,
		tenantID, itemID, active,
	)
	if err != nil {
		return fmt.Errorf("set item active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// CompareAndSwapQuantity actualización condicional sobre la versión; sin filas afectadas
// distingue ítem inexistente de versión obsoleta.
func (r *ItemRepo) CompareAndSwapQuantity(ctx context.Context, tenantID, itemID string, expectedVersion, newQuantity int64, operationID string) error {
	query := `
		UPDATE items
		SET quantity = $4, version = version + 1, last_operation_id = $5, updated_at = now()
		WHERE tenant_id = $1 AND id = $2 AND version = $3`
	tag, err := r.q.Exec(ctx, query, tenantID, itemID, expectedVersion, newQuantity, operationID)
	if err != nil {
		return fmt.Errorf("compare-and-swap item: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	var exists bool
	if err := r.q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM items WHERE tenant_id = $1 AND id = $2)`, tenantID, itemID,
	).Scan(&exists); err != nil {
		return fmt.Errorf("check item: %w", err)
	}
	if !exists {
		return domain.ErrNotFound
	}
	return domain.ErrVersionConflict
}
