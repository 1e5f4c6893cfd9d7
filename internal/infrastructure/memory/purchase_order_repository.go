package memory

import (
	"context"

	"github.com/hashicorp/go-memdb"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// PurchaseOrderRepo implementa repository.PurchaseOrderRepository.
type PurchaseOrderRepo struct {
	s *session
}

func (r *PurchaseOrderRepo) Create(ctx context.Context, po *entity.PurchaseOrder) error {
	return r.s.write(ctx, func(txn *memdb.Txn) error {
		if dup, err := txn.First(tableOrders, "id", po.TenantID, po.ID); err != nil {
			return err
		} else if dup != nil {
			return domain.ErrDuplicate
		}
		return txn.Insert(tableOrders, po.Clone())
	})
}

func (r *PurchaseOrderRepo) Get(ctx context.Context, tenantID, id string) (*entity.PurchaseOrder, error) {
	var out *entity.PurchaseOrder
	err := r.s.read(ctx, func(txn *memdb.Txn) error {
		raw, err := txn.First(tableOrders, "id", tenantID, id)
		if err != nil {
			return err
		}
		if raw == nil {
			return domain.ErrNotFound
		}
		out = raw.(*entity.PurchaseOrder).Clone()
		return nil
	})
	return out, err
}

func (r *PurchaseOrderRepo) Update(ctx context.Context, po *entity.PurchaseOrder, expectedVersion int64) error {
	return r.s.write(ctx, func(txn *memdb.Txn) error {
		raw, err := txn.First(tableOrders, "id", po.TenantID, po.ID)
		if err != nil {
			return err
		}
		if raw == nil {
			return domain.ErrNotFound
		}
		if raw.(*entity.PurchaseOrder).Version != expectedVersion {
			return domain.ErrVersionConflict
		}
		next := po.Clone()
		next.Version = expectedVersion + 1
		return txn.Insert(tableOrders, next)
	})
}
