package usecase_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/usecase"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

func TestPurchaseOrderUseCase_Lifecycle(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	items := usecase.NewItemUseCase(store.Items())
	uc := usecase.NewPurchaseOrderUseCase(store.PurchaseOrders(), store.Items())

	item, err := items.Create(ctx, tenant, dto.CreateItemRequest{SKU: "A", Name: "A"})
	require.NoError(t, err)

	po, err := uc.Create(ctx, tenant, "u1", dto.CreatePurchaseOrderRequest{
		Number: "PO-1",
		Lines:  []dto.PurchaseOrderLineRequest{{ItemID: item.ID, Quantity: 4}},
	})
	require.NoError(t, err)
	assert.Equal(t, entity.PurchaseOrderDraft, po.Status)
	require.Len(t, po.Lines, 1)
	assert.EqualValues(t, 4, po.Lines[0].QuantityOrdered)

	sent, err := uc.Send(ctx, tenant, po.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.PurchaseOrderSent, sent.Status)
	assert.Equal(t, po.Version+1, sent.Version)

	_, err = uc.Send(ctx, tenant, po.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	cancelled, err := uc.Cancel(ctx, tenant, po.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.PurchaseOrderCancelled, cancelled.Status)

	_, err = uc.Cancel(ctx, tenant, po.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	got, err := uc.GetByID(ctx, tenant, po.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.PurchaseOrderCancelled, got.Status)
}

func TestPurchaseOrderUseCase_CreateValidation(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	items := usecase.NewItemUseCase(store.Items())
	uc := usecase.NewPurchaseOrderUseCase(store.PurchaseOrders(), store.Items())
	item, err := items.Create(ctx, tenant, dto.CreateItemRequest{SKU: "A", Name: "A"})
	require.NoError(t, err)

	_, err = uc.Create(ctx, tenant, "u1", dto.CreatePurchaseOrderRequest{Number: "PO"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = uc.Create(ctx, tenant, "u1", dto.CreatePurchaseOrderRequest{
		Number: "PO",
		Lines:  []dto.PurchaseOrderLineRequest{{ItemID: item.ID, Quantity: 1}, {ItemID: item.ID, Quantity: 2}},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "un ítem solo puede aparecer en una línea")

	_, err = uc.Create(ctx, tenant, "u1", dto.CreatePurchaseOrderRequest{
		Number: "PO",
		Lines:  []dto.PurchaseOrderLineRequest{{ItemID: "ghost", Quantity: 1}},
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = uc.GetByID(ctx, tenant, "ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPurchaseOrderUseCase_NoCancelaConRecepcionEnCurso(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	uc := usecase.NewPurchaseOrderUseCase(store.PurchaseOrders(), store.Items())
	require.NoError(t, store.PurchaseOrders().Create(ctx, &entity.PurchaseOrder{
		ID: "po1", TenantID: tenant, Number: "PO-1", Status: entity.PurchaseOrderSent,
		Lines: []entity.PurchaseOrderLine{{LineID: "l1", ItemID: "a", QuantityOrdered: 5, QuantityReserved: 2}},
	}))

	_, err := uc.Cancel(ctx, tenant, "po1")
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	got, err := uc.GetByID(ctx, tenant, "po1")
	require.NoError(t, err)
	assert.Equal(t, entity.PurchaseOrderSent, got.Status)
	assert.EqualValues(t, 2, got.Lines[0].QuantityReserved)
}
