package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.PurchaseOrderRepository = (*PurchaseOrderRepo)(nil)

// PurchaseOrderRepo órdenes de compra y sus líneas; cada escritura en su propia transacción.
type PurchaseOrderRepo struct {
	pool *pgxpool.Pool
}

// NewPurchaseOrderRepository construye el adaptador.
func NewPurchaseOrderRepository(pool *pgxpool.Pool) *PurchaseOrderRepo {
	return &PurchaseOrderRepo{pool: pool}
}

func (r *PurchaseOrderRepo) Create(ctx context.Context, po *entity.PurchaseOrder) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO purchase_orders (id, tenant_id, number, status, version, created_by, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			po.ID, po.TenantID, po.Number, po.Status, po.Version, po.CreatedBy, po.CreatedAt, po.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return domain.ErrDuplicate
			}
			return fmt.Errorf("insert purchase order: %w", err)
		}
		batch := &pgx.Batch{}
		for i, l := range po.Lines {
			batch.Queue(`
				INSERT INTO purchase_order_lines (tenant_id, purchase_order_id, line_id, position, item_id, quantity_ordered, quantity_received, quantity_reserved)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				po.TenantID, po.ID, l.LineID, i, l.ItemID, l.QuantityOrdered, l.QuantityReceived, l.QuantityReserved,
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert purchase order lines: %w", err)
		}
		return nil
	})
}

func (r *PurchaseOrderRepo) Get(ctx context.Context, tenantID, id string) (*entity.PurchaseOrder, error) {
	var po entity.PurchaseOrder
	err := r.pool.QueryRow(ctx, `
		SELECT id, tenant_id, number, status, version, created_by, created_at, updated_at
		FROM purchase_orders WHERE tenant_id = $1 AND id = $2`, tenantID, id,
	).Scan(&po.ID, &po.TenantID, &po.Number, &po.Status, &po.Version, &po.CreatedBy, &po.CreatedAt, &po.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get purchase order: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT line_id, item_id, quantity_ordered, quantity_received, quantity_reserved
		FROM purchase_order_lines WHERE tenant_id = $1 AND purchase_order_id = $2
		ORDER BY position`, tenantID, id)
	if err != nil {
		return nil, fmt.Errorf("get purchase order lines: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var l entity.PurchaseOrderLine
		if err := rows.Scan(&l.LineID, &l.ItemID, &l.QuantityOrdered, &l.QuantityReceived, &l.QuantityReserved); err != nil {
			return nil, fmt.Errorf("scan purchase order line: %w", err)
		}
		po.Lines = append(po.Lines, l)
	}
	return &po, rows.Err()
}

// Update incrementa la versión solo si coincide con expectedVersion.
func (r *PurchaseOrderRepo) Update(ctx context.Context, po *entity.PurchaseOrder, expectedVersion int64) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE purchase_orders SET status = $3, version = version + 1, updated_at = $4
			WHERE tenant_id = $1 AND id = $2 AND version = $5`,
			po.TenantID, po.ID, po.Status, po.UpdatedAt, expectedVersion,
		)
		if err != nil {
			return fmt.Errorf("update purchase order: %w", err)
		}
		if tag.RowsAffected() == 0 {
			var exists bool
			if err := tx.QueryRow(ctx,
				`SELECT EXISTS (SELECT 1 FROM purchase_orders WHERE tenant_id = $1 AND id = $2)`, po.TenantID, po.ID,
			).Scan(&exists); err != nil {
				return fmt.Errorf("check purchase order: %w", err)
			}
			if !exists {
				return domain.ErrNotFound
			}
			return domain.ErrVersionConflict
		}
		for _, l := range po.Lines {
			if _, err := tx.Exec(ctx, `
				UPDATE purchase_order_lines SET quantity_received = $4, quantity_reserved = $5
				WHERE tenant_id = $1 AND purchase_order_id = $2 AND line_id = $3`,
				po.TenantID, po.ID, l.LineID, l.QuantityReceived, l.QuantityReserved,
			); err != nil {
				return fmt.Errorf("update purchase order line: %w", err)
			}
		}
		return nil
	})
}
