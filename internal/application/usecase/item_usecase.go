package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	domaininv "github.com/jhoicas/stock-ledger/internal/domain/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// ItemUseCase casos de uso CRUD del catálogo. La cantidad se maneja solo vía el motor de ajustes.
type ItemUseCase struct {
	repo repository.ItemRepository
}

// NewItemUseCase construye el caso de uso.
func NewItemUseCase(repo repository.ItemRepository) *ItemUseCase {
	return &ItemUseCase{repo: repo}
}

// Create da de alta un ítem. La cantidad inicial es la base de la conservación del libro.
func (uc *ItemUseCase) Create(ctx context.Context, tenantID string, in dto.CreateItemRequest) (*dto.ItemResponse, error) {
	in.SKU = strings.TrimSpace(in.SKU)
	if in.SKU == "" || in.Name == "" || in.InitialQuantity < 0 || in.ReorderLevel < 0 || in.ReorderQuantity < 0 {
		return nil, domain.ErrInvalidInput
	}
	if in.UnitCost.LessThan(decimal.Zero) {
		return nil, domain.ErrInvalidInput
	}
	existing, err := uc.repo.GetBySKU(ctx, tenantID, in.SKU)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrDuplicate
	}
	now := time.Now().UTC()
	item := &entity.Item{
		ID:              uuid.New().String(),
		TenantID:        tenantID,
		SKU:             in.SKU,
		Name:            in.Name,
		Quantity:        in.InitialQuantity,
		InitialQuantity: in.InitialQuantity,
		ReorderLevel:    in.ReorderLevel,
		ReorderQuantity: in.ReorderQuantity,
		UnitCost:        in.UnitCost,
		Active:          true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := uc.repo.Create(ctx, item); err != nil {
		return nil, err
	}
	return toItemResponse(item), nil
}

// GetByID obtiene un ítem del tenant.
func (uc *ItemUseCase) GetByID(ctx context.Context, tenantID, id string) (*dto.ItemResponse, error) {
	item, err := uc.repo.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	return toItemResponse(item), nil
}

// Update actualiza nombre, costo y parámetros de reorden. No toca cantidad ni versión.
func (uc *ItemUseCase) Update(ctx context.Context, tenantID, id string, in dto.UpdateItemRequest) (*dto.ItemResponse, error) {
	item, err := uc.repo.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		if *in.Name == "" {
			return nil, domain.ErrInvalidInput
		}
		item.Name = *in.Name
	}
	if in.ReorderLevel != nil {
		if *in.ReorderLevel < 0 {
			return nil, domain.ErrInvalidInput
		}
		item.ReorderLevel = *in.ReorderLevel
	}
	if in.ReorderQuantity != nil {
		if *in.ReorderQuantity < 0 {
			return nil, domain.ErrInvalidInput
		}
		item.ReorderQuantity = *in.ReorderQuantity
	}
	if in.UnitCost != nil {
		if in.UnitCost.LessThan(decimal.Zero) {
			return nil, domain.ErrInvalidInput
		}
		item.UnitCost = *in.UnitCost
	}
	item.UpdatedAt = time.Now().UTC()
	if err := uc.repo.UpdateDetails(ctx, item); err != nil {
		return nil, err
	}
	return toItemResponse(item), nil
}

// List lista ítems del tenant con paginación.
func (uc *ItemUseCase) List(ctx context.Context, tenantID string, page dto.PageRequest) (*dto.ItemListResponse, error) {
	page.DefaultPage()
	list, err := uc.repo.ListByTenant(ctx, tenantID, false, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	items := make([]dto.ItemResponse, 0, len(list))
	for _, it := range list {
		items = append(items, *toItemResponse(it))
	}
	return &dto.ItemListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	}, nil
}

// Deactivate desactiva el ítem. Nunca se borra: el libro lo referencia.
func (uc *ItemUseCase) Deactivate(ctx context.Context, tenantID, id string) error {
	return uc.repo.SetActive(ctx, tenantID, id, false)
}

func toItemResponse(it *entity.Item) *dto.ItemResponse {
	if it == nil {
		return nil
	}
	return &dto.ItemResponse{
		ID:              it.ID,
		TenantID:        it.TenantID,
		SKU:             it.SKU,
		Name:            it.Name,
		Quantity:        it.Quantity,
		ReorderLevel:    it.ReorderLevel,
		ReorderQuantity: it.ReorderQuantity,
		UnitCost:        it.UnitCost,
		Version:         it.Version,
		Active:          it.Active,
		Status:          string(domaininv.Classify(*it)),
		CreatedAt:       it.CreatedAt,
		UpdatedAt:       it.UpdatedAt,
	}
}
