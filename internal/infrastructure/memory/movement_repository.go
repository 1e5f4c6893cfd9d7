package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/hashicorp/go-memdb"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// MovementRepo implementa repository.StockMovementRepository. Solo inserta.
type MovementRepo struct {
	s *session
}

func (r *MovementRepo) Append(ctx context.Context, m *entity.StockMovement) error {
	return r.s.write(ctx, func(txn *memdb.Txn) error {
		if dup, err := txn.First(tableMovements, "operation", m.TenantID, m.OperationID); err != nil {
			return err
		} else if dup != nil {
			return domain.ErrDuplicate
		}
		if dup, err := txn.First(tableMovements, "id", m.ID); err != nil {
			return err
		} else if dup != nil {
			return domain.ErrDuplicate
		}
		cp := *m
		return txn.Insert(tableMovements, &cp)
	})
}

func (r *MovementRepo) first(ctx context.Context, index string, args ...interface{}) (*entity.StockMovement, error) {
	var out *entity.StockMovement
	err := r.s.read(ctx, func(txn *memdb.Txn) error {
		raw, err := txn.First(tableMovements, index, args...)
		if err != nil || raw == nil {
			return err
		}
		m := *raw.(*entity.StockMovement)
		out = &m
		return nil
	})
	return out, err
}

func (r *MovementRepo) GetByOperationID(ctx context.Context, tenantID, operationID string) (*entity.StockMovement, error) {
	return r.first(ctx, "operation", tenantID, operationID)
}

func (r *MovementRepo) GetByItemVersion(ctx context.Context, tenantID, itemID string, version int64) (*entity.StockMovement, error) {
	return r.first(ctx, "version", tenantID, itemID, version)
}

func (r *MovementRepo) forItem(ctx context.Context, tenantID, itemID string) ([]*entity.StockMovement, error) {
	var out []*entity.StockMovement
	err := r.s.read(ctx, func(txn *memdb.Txn) error {
		it, err := txn.Get(tableMovements, "item", tenantID, itemID)
		if err != nil {
			return err
		}
		for raw := it.Next(); raw != nil; raw = it.Next() {
			m := *raw.(*entity.StockMovement)
			out = append(out, &m)
		}
		return nil
	})
	return out, err
}

// ListForItem pagina por cursor (created_at DESC, id DESC).
func (r *MovementRepo) ListForItem(ctx context.Context, tenantID, itemID string, limit int, pageToken string) (*repository.MovementPage, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit debe ser positivo", domain.ErrInvalidInput)
	}
	cursor, err := repository.DecodeMovementCursor(pageToken)
	if err != nil {
		return nil, err
	}
	all, err := r.forItem(ctx, tenantID, itemID)
	if err != nil {
		return nil, err
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	page := &repository.MovementPage{Items: []*entity.StockMovement{}}
	for _, m := range all {
		if cursor != nil && !cursor.Before(m.CreatedAt, m.ID) {
			continue
		}
		if len(page.Items) == limit {
			last := page.Items[len(page.Items)-1]
			page.NextToken = repository.MovementCursor{CreatedAt: last.CreatedAt, ID: last.ID}.Encode()
			break
		}
		page.Items = append(page.Items, m)
	}
	return page, nil
}

func (r *MovementRepo) SumDeltaForItem(ctx context.Context, tenantID, itemID string) (int64, error) {
	all, err := r.forItem(ctx, tenantID, itemID)
	if err != nil {
		return 0, err
	}
	var sum int64
	for _, m := range all {
		sum += m.QuantityDelta
	}
	return sum, nil
}
