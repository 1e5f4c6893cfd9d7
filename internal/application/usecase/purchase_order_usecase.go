package usecase

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// PurchaseOrderUseCase CRUD mínimo de órdenes de compra para poder recibirlas.
type PurchaseOrderUseCase struct {
	repo  repository.PurchaseOrderRepository
	items repository.ItemRepository
}

// NewPurchaseOrderUseCase construye el caso de uso.
func NewPurchaseOrderUseCase(repo repository.PurchaseOrderRepository, items repository.ItemRepository) *PurchaseOrderUseCase {
	return &PurchaseOrderUseCase{repo: repo, items: items}
}

// Create crea la orden en DRAFT. Un ítem aparece como máximo en una línea.
func (uc *PurchaseOrderUseCase) Create(ctx context.Context, tenantID, userID string, in dto.CreatePurchaseOrderRequest) (*dto.PurchaseOrderResponse, error) {
	if in.Number == "" || len(in.Lines) == 0 {
		return nil, domain.ErrInvalidInput
	}
	seen := make(map[string]bool, len(in.Lines))
	lines := make([]entity.PurchaseOrderLine, 0, len(in.Lines))
	for _, l := range in.Lines {
		if l.ItemID == "" || l.Quantity <= 0 || seen[l.ItemID] {
			return nil, domain.ErrInvalidInput
		}
		seen[l.ItemID] = true
		if _, err := uc.items.Get(ctx, tenantID, l.ItemID); err != nil {
			return nil, err
		}
		lines = append(lines, entity.PurchaseOrderLine{
			LineID:          uuid.New().String(),
			ItemID:          l.ItemID,
			QuantityOrdered: l.Quantity,
		})
	}
	now := time.Now().UTC()
	po := &entity.PurchaseOrder{
		ID:        uuid.New().String(),
		TenantID:  tenantID,
		Number:    in.Number,
		Status:    entity.PurchaseOrderDraft,
		Lines:     lines,
		CreatedBy: userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.repo.Create(ctx, po); err != nil {
		return nil, err
	}
	return ToPurchaseOrderResponse(po), nil
}

// GetByID obtiene una orden del tenant.
func (uc *PurchaseOrderUseCase) GetByID(ctx context.Context, tenantID, id string) (*dto.PurchaseOrderResponse, error) {
	po, err := uc.repo.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	return ToPurchaseOrderResponse(po), nil
}

// Send pasa la orden de DRAFT a SENT, el único estado desde el que se puede empezar a recibir.
func (uc *PurchaseOrderUseCase) Send(ctx context.Context, tenantID, id string) (*dto.PurchaseOrderResponse, error) {
	return uc.transition(ctx, tenantID, id, entity.PurchaseOrderSent, entity.PurchaseOrderDraft)
}

// Cancel cancela una orden en DRAFT o SENT.
func (uc *PurchaseOrderUseCase) Cancel(ctx context.Context, tenantID, id string) (*dto.PurchaseOrderResponse, error) {
	return uc.transition(ctx, tenantID, id, entity.PurchaseOrderCancelled, entity.PurchaseOrderDraft, entity.PurchaseOrderSent)
}

func (uc *PurchaseOrderUseCase) transition(ctx context.Context, tenantID, id, to string, from ...string) (*dto.PurchaseOrderResponse, error) {
	po, err := uc.repo.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(from, po.Status) {
		return nil, fmt.Errorf("%w: orden %s en estado %s", domain.ErrInvalidState, po.ID, po.Status)
	}
	if to == entity.PurchaseOrderCancelled && po.ReceiptInProgress() {
		return nil, fmt.Errorf("%w: orden %s con una recepción en curso", domain.ErrInvalidState, po.ID)
	}
	expected := po.Version
	po.Status = to
	po.UpdatedAt = time.Now().UTC()
	if err := uc.repo.Update(ctx, po, expected); err != nil {
		return nil, err
	}
	po.Version = expected + 1
	return ToPurchaseOrderResponse(po), nil
}

// ToPurchaseOrderResponse mapea la entidad a su DTO de salida.
func ToPurchaseOrderResponse(po *entity.PurchaseOrder) *dto.PurchaseOrderResponse {
	if po == nil {
		return nil
	}
	lines := make([]dto.PurchaseOrderLineResponse, 0, len(po.Lines))
	for _, l := range po.Lines {
		lines = append(lines, dto.PurchaseOrderLineResponse{
			LineID:           l.LineID,
			ItemID:           l.ItemID,
			QuantityOrdered:  l.QuantityOrdered,
			QuantityReceived: l.QuantityReceived,
			QuantityReserved: l.QuantityReserved,
		})
	}
	return &dto.PurchaseOrderResponse{
		ID:        po.ID,
		Number:    po.Number,
		Status:    po.Status,
		Lines:     lines,
		Version:   po.Version,
		CreatedAt: po.CreatedAt,
		UpdatedAt: po.UpdatedAt,
	}
}
