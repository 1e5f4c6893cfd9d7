package memory

import (
	"context"
	"sort"
	"time"

	"github.com/hashicorp/go-memdb"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// ItemRepo implementa repository.ItemRepository.
type ItemRepo struct {
	s *session
}

func getItem(txn *memdb.Txn, tenantID, itemID string) (*entity.Item, error) {
	raw, err := txn.First(tableItems, "id", tenantID, itemID)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, domain.ErrNotFound
	}
	item := *raw.(*entity.Item)
	return &item, nil
}

func (r *ItemRepo) Create(ctx context.Context, item *entity.Item) error {
	return r.s.write(ctx, func(txn *memdb.Txn) error {
		if existing, err := txn.First(tableItems, "id", item.TenantID, item.ID); err != nil {
			return err
		} else if existing != nil {
			return domain.ErrDuplicate
		}
		if existing, err := txn.First(tableItems, "sku", item.TenantID, item.SKU); err != nil {
			return err
		} else if existing != nil {
			return domain.ErrDuplicate
		}
		cp := *item
		return txn.Insert(tableItems, &cp)
	})
}

func (r *ItemRepo) Get(ctx context.Context, tenantID, itemID string) (*entity.Item, error) {
	var out *entity.Item
	err := r.s.read(ctx, func(txn *memdb.Txn) error {
		item, err := getItem(txn, tenantID, itemID)
		out = item
		return err
	})
	return out, err
}

func (r *ItemRepo) GetBySKU(ctx context.Context, tenantID, sku string) (*entity.Item, error) {
	var out *entity.Item
	err := r.s.read(ctx, func(txn *memdb.Txn) error {
		raw, err := txn.First(tableItems, "sku", tenantID, sku)
		if err != nil || raw == nil {
			return err
		}
		item := *raw.(*entity.Item)
		out = &item
		return nil
	})
	return out, err
}

// ListByTenant ordena por fecha de creación e id, igual que la implementación en Postgres.
func (r *ItemRepo) ListByTenant(ctx context.Context, tenantID string, activeOnly bool, limit, offset int) ([]*entity.Item, error) {
	var all []*entity.Item
	err := r.s.read(ctx, func(txn *memdb.Txn) error {
		it, err := txn.Get(tableItems, "tenant", tenantID)
		if err != nil {
			return err
		}
		for raw := it.Next(); raw != nil; raw = it.Next() {
			item := *raw.(*entity.Item)
			if activeOnly && !item.Active {
				continue
			}
			all = append(all, &item)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})
	if offset >= len(all) {
		return []*entity.Item{}, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (r *ItemRepo) UpdateDetails(ctx context.Context, item *entity.Item) error {
	return r.s.write(ctx, func(txn *memdb.Txn) error {
		current, err := getItem(txn, item.TenantID, item.ID)
		if err != nil {
			return err
		}
		if current.SKU != item.SKU {
			if dup, err := txn.First(tableItems, "sku", item.TenantID, item.SKU); err != nil {
				return err
			} else if dup != nil {
				return domain.ErrDuplicate
			}
		}
		current.SKU = item.SKU
		current.Name = item.Name
		current.ReorderLevel = item.ReorderLevel
		current.ReorderQuantity = item.ReorderQuantity
		current.UnitCost = item.UnitCost
		current.UpdatedAt = time.Now().UTC()
		return txn.Insert(tableItems, current)
	})
}

func (r *ItemRepo) SetActive(ctx context.Context, tenantID, itemID string, active bool) error {
	return r.s.write(ctx, func(txn *memdb.Txn) error {
		current, err := getItem(txn, tenantID, itemID)
		if err != nil {
			return err
		}
		current.Active = active
		current.UpdatedAt = time.Now().UTC()
		return txn.Insert(tableItems, current)
	})
}

// CompareAndSwapQuantity la lectura de la versión y la escritura ocurren en la misma
// transacción de escritura de memdb, que es exclusiva.
func (r *ItemRepo) CompareAndSwapQuantity(ctx context.Context, tenantID, itemID string, expectedVersion, newQuantity int64, operationID string) error {
	return r.s.write(ctx, func(txn *memdb.Txn) error {
		current, err := getItem(txn, tenantID, itemID)
		if err != nil {
			return err
		}
		if current.Version != expectedVersion {
			return domain.ErrVersionConflict
		}
		current.Quantity = newQuantity
		current.Version++
		current.LastOperationID = operationID
		current.UpdatedAt = time.Now().UTC()
		return txn.Insert(tableItems, current)
	})
}
