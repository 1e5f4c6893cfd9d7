package memory

import (
	"context"
	"sort"
	"time"

	"github.com/hashicorp/go-memdb"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// PendingRepo implementa repository.PendingOperationRepository.
type PendingRepo struct {
	s *session
}

// Open la lectura y la inserción ocurren en la misma transacción de escritura.
func (r *PendingRepo) Open(ctx context.Context, op *entity.PendingOperation) error {
	return r.s.write(ctx, func(txn *memdb.Txn) error {
		raw, err := txn.First(tablePending, "id", op.TenantID, op.ID)
		if err != nil {
			return err
		}
		if raw != nil && raw.(*entity.PendingOperation).Status != entity.PendingAbandoned {
			return domain.ErrDuplicate
		}
		cp := *op
		cp.Status = entity.PendingOpen
		cp.ResolvedAt = nil
		return txn.Insert(tablePending, &cp)
	})
}

func (r *PendingRepo) Get(ctx context.Context, tenantID, id string) (*entity.PendingOperation, error) {
	var out *entity.PendingOperation
	err := r.s.read(ctx, func(txn *memdb.Txn) error {
		raw, err := txn.First(tablePending, "id", tenantID, id)
		if err != nil || raw == nil {
			return err
		}
		op := *raw.(*entity.PendingOperation)
		out = &op
		return nil
	})
	return out, err
}

func (r *PendingRepo) Resolve(ctx context.Context, tenantID, id, owner, status string) error {
	return r.s.write(ctx, func(txn *memdb.Txn) error {
		raw, err := txn.First(tablePending, "id", tenantID, id)
		if err != nil {
			return err
		}
		if raw == nil {
			return domain.ErrNotFound
		}
		op := *raw.(*entity.PendingOperation)
		if op.Owner != owner || op.Status != entity.PendingOpen {
			return domain.ErrVersionConflict
		}
		now := time.Now().UTC()
		op.Status = status
		op.ResolvedAt = &now
		return txn.Insert(tablePending, &op)
	})
}

func (r *PendingRepo) collect(ctx context.Context, index string, args ...interface{}) ([]*entity.PendingOperation, error) {
	var out []*entity.PendingOperation
	err := r.s.read(ctx, func(txn *memdb.Txn) error {
		it, err := txn.Get(tablePending, index, args...)
		if err != nil {
			return err
		}
		for raw := it.Next(); raw != nil; raw = it.Next() {
			op := *raw.(*entity.PendingOperation)
			if op.Status == entity.PendingOpen {
				out = append(out, &op)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, err
}

// ListOpen devuelve las más antiguas primero.
func (r *PendingRepo) ListOpen(ctx context.Context, limit int) ([]*entity.PendingOperation, error) {
	ops, err := r.collect(ctx, "status", entity.PendingOpen)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(ops) > limit {
		ops = ops[:limit]
	}
	return ops, nil
}

func (r *PendingRepo) ListOpenForVersion(ctx context.Context, tenantID, itemID string, expectedVersion int64) ([]*entity.PendingOperation, error) {
	return r.collect(ctx, "version", tenantID, itemID, expectedVersion)
}
