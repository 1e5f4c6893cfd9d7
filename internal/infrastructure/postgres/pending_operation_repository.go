package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.PendingOperationRepository = (*PendingOperationRepo)(nil)

// PendingOperationRepo diario de operaciones; el movimiento se guarda como JSONB.
type PendingOperationRepo struct {
	q Querier
}

// NewPendingOperationRepository construye el adaptador. Pasar pool o tx (Querier).
func NewPendingOperationRepository(q Querier) *PendingOperationRepo {
	return &PendingOperationRepo{q: q}
}

const pendingColumns = `id, tenant_id, item_id, owner, expected_version, movement, status, created_at, resolved_at`

func scanPending(row pgx.Row) (*entity.PendingOperation, error) {
	var (
		op  entity.PendingOperation
		raw []byte
	)
	if err := row.Scan(&op.ID, &op.TenantID, &op.ItemID, &op.Owner, &op.ExpectedVersion, &raw, &op.Status, &op.CreatedAt, &op.ResolvedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &op.Movement); err != nil {
		return nil, fmt.Errorf("decode pending movement: %w", err)
	}
	return &op, nil
}

// Open inserta la operación o reabre una ABANDONED; cualquier otro estado la deja intacta.
func (r *PendingOperationRepo) Open(ctx context.Context, op *entity.PendingOperation) error {
	raw, err := json.Marshal(op.Movement)
	if err != nil {
		return fmt.Errorf("encode pending movement: %w", err)
	}
	tag, err := r.q.Exec(ctx, `
		INSERT INTO pending_operations (`+pendingColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, 'OPEN', $7, NULL)
		ON CONFLICT (tenant_id, id) DO UPDATE
		SET owner = EXCLUDED.owner, expected_version = EXCLUDED.expected_version, movement = EXCLUDED.movement,
			status = 'OPEN', created_at = EXCLUDED.created_at, resolved_at = NULL
		WHERE pending_operations.status = 'ABANDONED'`,
		op.ID, op.TenantID, op.ItemID, op.Owner, op.ExpectedVersion, raw, op.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("open pending operation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDuplicate
	}
	return nil
}

func (r *PendingOperationRepo) Get(ctx context.Context, tenantID, id string) (*entity.PendingOperation, error) {
	op, err := scanPending(r.q.QueryRow(ctx,
		`SELECT `+pendingColumns+` FROM pending_operations WHERE tenant_id = $1 AND id = $2`, tenantID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get pending operation: %w", err)
	}
	return op, nil
}

func (r *PendingOperationRepo) Resolve(ctx context.Context, tenantID, id, owner, status string) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE pending_operations SET status = $4, resolved_at = now()
		WHERE tenant_id = $1 AND id = $2 AND owner = $3 AND status = 'OPEN'`,
		tenantID, id, owner, status)
	if err != nil {
		return fmt.Errorf("resolve pending operation: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	existing, err := r.Get(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return domain.ErrNotFound
	}
	return domain.ErrVersionConflict
}

func (r *PendingOperationRepo) list(ctx context.Context, query string, args ...any) ([]*entity.PendingOperation, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list pending operations: %w", err)
	}
	defer rows.Close()
	list := []*entity.PendingOperation{}
	for rows.Next() {
		op, err := scanPending(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, op)
	}
	return list, rows.Err()
}

func (r *PendingOperationRepo) ListOpen(ctx context.Context, limit int) ([]*entity.PendingOperation, error) {
	return r.list(ctx,
		`SELECT `+pendingColumns+` FROM pending_operations WHERE status = 'OPEN' ORDER BY created_at LIMIT $1`, limit)
}

func (r *PendingOperationRepo) ListOpenForVersion(ctx context.Context, tenantID, itemID string, expectedVersion int64) ([]*entity.PendingOperation, error) {
	return r.list(ctx, `
		SELECT `+pendingColumns+` FROM pending_operations
		WHERE tenant_id = $1 AND item_id = $2 AND expected_version = $3 AND status = 'OPEN'
		ORDER BY created_at`, tenantID, itemID, expectedVersion)
}
