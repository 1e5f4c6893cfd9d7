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

var _ repository.StockMovementRepository = (*StockMovementRepo)(nil)

// StockMovementRepo libro de movimientos sobre PostgreSQL. Solo INSERT y SELECT.
type StockMovementRepo struct {
	q Querier
}

// NewStockMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockMovementRepository(q Querier) *StockMovementRepo {
	return &StockMovementRepo{q: q}
}

const movementColumns = `id, tenant_id, item_id, operation_id, type, quantity_delta, previous_quantity, new_quantity,
	item_version, reason, reference_type, reference_id, performed_by, cost_per_unit, total_cost, created_at`

func scanMovement(row pgx.Row) (*entity.StockMovement, error) {
	var m entity.StockMovement
	err := row.Scan(
		&m.ID, &m.TenantID, &m.ItemID, &m.OperationID, &m.Type, &m.QuantityDelta,
		&m.PreviousQuantity, &m.NewQuantity, &m.ItemVersion, &m.Reason, &m.ReferenceType,
		&m.ReferenceID, &m.PerformedBy, &m.CostPerUnit, &m.TotalCost, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *StockMovementRepo) Append(ctx context.Context, m *entity.StockMovement) error {
	query := `
		INSERT INTO stock_movements (` + movementColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	_, err := r.q.Exec(ctx, query,
		m.ID, m.TenantID, m.ItemID, m.OperationID, string(m.Type), m.QuantityDelta,
		m.PreviousQuantity, m.NewQuantity, m.ItemVersion, m.Reason, m.ReferenceType,
		m.ReferenceID, m.PerformedBy, m.CostPerUnit, m.TotalCost, m.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("append movement: %w", err)
	}
	return nil
}

func (r *StockMovementRepo) getOne(ctx context.Context, query string, args ...any) (*entity.StockMovement, error) {
	m, err := scanMovement(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get movement: %w", err)
	}
	return m, nil
}

func (r *StockMovementRepo) GetByOperationID(ctx context.Context, tenantID, operationID string) (*entity.StockMovement, error) {
	return r.getOne(ctx,
		`SELECT `+movementColumns+` FROM stock_movements WHERE tenant_id = $1 AND operation_id = $2`,
		tenantID, operationID)
}

func (r *StockMovementRepo) GetByItemVersion(ctx context.Context, tenantID, itemID string, version int64) (*entity.StockMovement, error) {
	return r.getOne(ctx,
		`SELECT `+movementColumns+` FROM stock_movements WHERE tenant_id = $1 AND item_id = $2 AND item_version = $3 LIMIT 1`,
		tenantID, itemID, version)
}

// ListForItem pagina con keyset sobre (created_at, id) descendente; pide limit+1 filas
// para saber si hay otra página.
func (r *StockMovementRepo) ListForItem(ctx context.Context, tenantID, itemID string, limit int, pageToken string) (*repository.MovementPage, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit debe ser positivo", domain.ErrInvalidInput)
	}
	cursor, err := repository.DecodeMovementCursor(pageToken)
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + movementColumns + ` FROM stock_movements WHERE tenant_id = $1 AND item_id = $2`
	args := []any{tenantID, itemID}
	if cursor != nil {
		query += ` AND (created_at, id) < ($3, $4)`
		args = append(args, cursor.CreatedAt, cursor.ID)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit+1)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	defer rows.Close()

	page := &repository.MovementPage{Items: []*entity.StockMovement{}}
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		page.Items = append(page.Items, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(page.Items) > limit {
		page.Items = page.Items[:limit]
		last := page.Items[limit-1]
		page.NextToken = repository.MovementCursor{CreatedAt: last.CreatedAt, ID: last.ID}.Encode()
	}
	return page, nil
}

func (r *StockMovementRepo) SumDeltaForItem(ctx context.Context, tenantID, itemID string) (int64, error) {
	var sum int64
	err := r.q.QueryRow(ctx,
		`SELECT COALESCE(SUM(quantity_delta), 0)::BIGINT FROM stock_movements WHERE tenant_id = $1 AND item_id = $2`,
		tenantID, itemID,
	).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum movements: %w", err)
	}
	return sum, nil
}
