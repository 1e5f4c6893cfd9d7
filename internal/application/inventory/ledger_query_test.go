package inventory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
)

func TestLedgerQuery_PaginasEIterador(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	seedItem(t, s, "i1", 0, 0)
	engine := inventory.NewAdjustmentEngine(s, nopLog)
	for i := 1; i <= 7; i++ {
		_, err := engine.Adjust(ctx, manual("i1", int64(i)))
		require.NoError(t, err)
	}
	q := inventory.NewLedgerQuery(s.Items(), s.Movements())

	first, err := q.ListForItem(ctx, tenant, "i1", 5, "")
	require.NoError(t, err)
	require.Len(t, first.Items, 5)
	assert.NotEmpty(t, first.NextToken)
	second, err := q.ListForItem(ctx, tenant, "i1", 5, first.NextToken)
	require.NoError(t, err)
	assert.Len(t, second.Items, 2)
	assert.Empty(t, second.NextToken)

	seen := map[string]bool{}
	var total int64
	for m, err := range q.All(ctx, tenant, "i1", 2) {
		require.NoError(t, err)
		assert.False(t, seen[m.ID], "movimiento repetido %s", m.ID)
		seen[m.ID] = true
		total += m.QuantityDelta
	}
	assert.Len(t, seen, 7)
	assert.Equal(t, int64(28), total)

	sum, err := q.SumDeltaForItem(ctx, tenant, "i1")
	require.NoError(t, err)
	assert.Equal(t, total, sum)
}

func TestLedgerQuery_Errores(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	seedItem(t, s, "i1", 0, 0)
	q := inventory.NewLedgerQuery(s.Items(), s.Movements())

	_, err := q.ListForItem(ctx, tenant, "nope", 10, "")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	_, err = q.ListForItem(ctx, tenant, "i1", 10, "***")
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	page, err := q.ListForItem(ctx, tenant, "i1", 0, "")
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Empty(t, page.NextToken)

	for _, err := range q.All(ctx, tenant, "nope", 10) {
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	}
}

func TestReplenishment_CriticosPrimero(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	seedItem(t, s, "ok", 50, 10)
	seedItem(t, s, "low-small", 8, 10)
	seedItem(t, s, "low-big", 2, 10)
	seedItem(t, s, "zero", 0, 3)

	list, err := inventory.NewReplenishmentUseCase(s.Items()).GenerateReplenishmentList(ctx, tenant)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "zero", list[0].ItemID)
	assert.Equal(t, "CRITICAL", list[0].Status)
	assert.Equal(t, "low-big", list[1].ItemID)
	assert.Equal(t, "low-small", list[2].ItemID)
	assert.Equal(t, 1, list[0].Priority)
	assert.Equal(t, int64(10), list[1].SuggestedOrderQty)
}
