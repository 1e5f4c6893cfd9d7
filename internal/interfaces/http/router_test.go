package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/application/usecase"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/metrics"
	apphttp "github.com/jhoicas/stock-ledger/internal/interfaces/http"
)

// buildLedgerApp arma la API completa sobre el store en memoria.
func buildLedgerApp(t *testing.T, engine inventory.Adjuster) (*fiber.App, *metrics.Metrics) {
	t.Helper()
	store, err := memory.NewStore()
	require.NoError(t, err)
	log := zerolog.Nop()
	m := metrics.New("test")

	if engine == nil {
		engine = inventory.NewAdjustmentEngine(store, log, inventory.WithRecorder(m))
	}
	app := fiber.New()
	app.Use(apphttp.MetricsMiddleware(m))
	apphttp.Router(app, apphttp.RouterDeps{
		ItemUC:          usecase.NewItemUseCase(store.Items()),
		PurchaseOrderUC: usecase.NewPurchaseOrderUseCase(store.PurchaseOrders(), store.Items()),
		Engine:          engine,
		Ledger:          inventory.NewLedgerQuery(store.Items(), store.Movements()),
		Replenishment:   inventory.NewReplenishmentUseCase(store.Items()),
		Receiving:       inventory.NewReceivingOrchestrator(engine, store.PurchaseOrders(), log, m),
		Reconciler:      inventory.NewReconciler(store.Items(), store.Movements(), store.Pending(), log, m),
		JWTSecret:       testJWTSecret,
		Log:             log,
	})
	return app, m
}

// call envía la petición con el rol dado y decodifica el cuerpo JSON en out (si no es nil).
func call(t *testing.T, app *fiber.App, role, method, path string, body any, out any) int {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = strings.NewReader(string(raw))
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", tokenForRole(t, role))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func createItem(t *testing.T, app *fiber.App, sku string, qty, reorderLevel int64) string {
	t.Helper()
	var out map[string]any
	status := call(t, app, "admin", http.MethodPost, "/api/items", map[string]any{
		"sku":              sku,
		"name":             "Item " + sku,
		"initial_quantity": qty,
		"reorder_level":    reorderLevel,
		"reorder_quantity": 10,
		"unit_cost":        "2.50",
	}, &out)
	require.Equal(t, http.StatusCreated, status)
	return out["id"].(string)
}

func adjustBody(itemID string, delta int64) map[string]any {
	return map[string]any{"item_id": itemID, "delta": delta, "reason": "conteo", "type": "MANUAL_ADJUSTMENT"}
}

func TestItems_WritesRequireAdmin(t *testing.T) {
	app, _ := buildLedgerApp(t, nil)
	status := call(t, app, "vendedor", http.MethodPost, "/api/items", map[string]any{"sku": "A", "name": "A"}, nil)
	assert.Equal(t, http.StatusForbidden, status)

	id := createItem(t, app, "A-1", 5, 2)
	var item map[string]any
	assert.Equal(t, http.StatusOK, call(t, app, "vendedor", http.MethodGet, "/api/items/"+id, nil, &item))
	assert.Equal(t, "A-1", item["sku"])

	var dup map[string]any
	assert.Equal(t, http.StatusConflict, call(t, app, "admin", http.MethodPost, "/api/items",
		map[string]any{"sku": "A-1", "name": "otro"}, &dup))
	assert.Equal(t, "DUPLICATE", dup["code"])
}

func TestAdjust_AppliesAndMapsErrors(t *testing.T) {
	app, m := buildLedgerApp(t, nil)
	id := createItem(t, app, "SKU-1", 10, 5)

	var mov map[string]any
	require.Equal(t, http.StatusCreated, call(t, app, "bodeguero", http.MethodPost, "/api/inventory/adjustments", adjustBody(id, -7), &mov))
	assert.EqualValues(t, 10, mov["previous_quantity"])
	assert.EqualValues(t, 3, mov["new_quantity"])
	assert.Equal(t, testUserID, mov["performed_by"])

	var status map[string]any
	require.Equal(t, http.StatusOK, call(t, app, "vendedor", http.MethodGet, "/api/items/"+id+"/status", nil, &status))
	assert.Equal(t, "LOW", status["status"])

	var errBody map[string]any
	assert.Equal(t, http.StatusConflict, call(t, app, "bodeguero", http.MethodPost, "/api/inventory/adjustments", adjustBody(id, -5), &errBody))
	assert.Equal(t, "INSUFFICIENT_STOCK", errBody["code"])

	errBody = nil
	assert.Equal(t, http.StatusBadRequest, call(t, app, "bodeguero", http.MethodPost, "/api/inventory/adjustments", adjustBody(id, 0), &errBody))
	assert.Equal(t, "VALIDATION", errBody["code"])

	assert.Equal(t, http.StatusNotFound, call(t, app, "bodeguero", http.MethodPost, "/api/inventory/adjustments", adjustBody("ghost", 1), nil))
	assert.Equal(t, http.StatusForbidden, call(t, app, "vendedor", http.MethodPost, "/api/inventory/adjustments", adjustBody(id, 1), nil))

	assert.Equal(t, 1.0, testutilCounter(t, m, "test_adjustments_applied_total"))
}

// testutilCounter suma las series de un contador en el registro.
func testutilCounter(t *testing.T, m *metrics.Metrics, name string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	var total float64
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, metric := range f.GetMetric() {
			total += metric.GetCounter().GetValue()
		}
	}
	return total
}

func TestListMovements_PagesWithToken(t *testing.T) {
	app, _ := buildLedgerApp(t, nil)
	id := createItem(t, app, "SKU-P", 0, 0)
	for i := 1; i <= 3; i++ {
		require.Equal(t, http.StatusCreated, call(t, app, "admin", http.MethodPost, "/api/inventory/adjustments", adjustBody(id, int64(i)), nil))
	}

	var first struct {
		Items []struct {
			QuantityDelta int64 `json:"quantity_delta"`
		} `json:"items"`
		NextPageToken string `json:"next_page_token"`
	}
	require.Equal(t, http.StatusOK, call(t, app, "vendedor", http.MethodGet, "/api/inventory/items/"+id+"/movements?limit=2", nil, &first))
	require.Len(t, first.Items, 2)
	assert.EqualValues(t, 3, first.Items[0].QuantityDelta)
	require.NotEmpty(t, first.NextPageToken)

	second := first
	second.Items, second.NextPageToken = nil, ""
	path := fmt.Sprintf("/api/inventory/items/%s/movements?limit=2&page_token=%s", id, first.NextPageToken)
	require.Equal(t, http.StatusOK, call(t, app, "vendedor", http.MethodGet, path, nil, &second))
	require.Len(t, second.Items, 1)
	assert.EqualValues(t, 1, second.Items[0].QuantityDelta)
	assert.Empty(t, second.NextPageToken)

	assert.Equal(t, http.StatusBadRequest, call(t, app, "vendedor", http.MethodGet, "/api/inventory/items/"+id+"/movements?page_token=%25%25", nil, nil))
	assert.Equal(t, http.StatusNotFound, call(t, app, "vendedor", http.MethodGet, "/api/inventory/items/ghost/movements", nil, nil))
}

type inconsistentEngine struct{}

func (inconsistentEngine) Adjust(context.Context, inventory.AdjustCommand) (*entity.StockMovement, error) {
	return nil, fmt.Errorf("%w: operación op-1", domain.ErrInconsistent)
}

func TestAdjust_InconsistentIsAccepted(t *testing.T) {
	app, _ := buildLedgerApp(t, inconsistentEngine{})
	var body map[string]any
	status := call(t, app, "admin", http.MethodPost, "/api/inventory/adjustments", adjustBody("any", 1), &body)
	assert.Equal(t, http.StatusAccepted, status)
	assert.Equal(t, "PENDING_RECONCILIATION", body["code"])
}

func TestPurchaseOrder_ReceiveFlow(t *testing.T) {
	app, _ := buildLedgerApp(t, nil)
	a := createItem(t, app, "A", 0, 0)
	b := createItem(t, app, "B", 0, 0)

	var po map[string]any
	require.Equal(t, http.StatusCreated, call(t, app, "bodeguero", http.MethodPost, "/api/purchase-orders", map[string]any{
		"number": "PO-1",
		"lines":  []map[string]any{{"item_id": a, "quantity": 5}, {"item_id": b, "quantity": 2}},
	}, &po))
	poID := po["id"].(string)
	assert.Equal(t, "DRAFT", po["status"])

	receipt := map[string]any{"lines": []map[string]any{{"item_id": a, "quantity": 5}, {"item_id": "ghost", "quantity": 1}}}
	var errBody map[string]any
	assert.Equal(t, http.StatusConflict, call(t, app, "bodeguero", http.MethodPost, "/api/purchase-orders/"+poID+"/receipts", receipt, &errBody))
	assert.Equal(t, "INVALID_STATE", errBody["code"])

	require.Equal(t, http.StatusOK, call(t, app, "bodeguero", http.MethodPost, "/api/purchase-orders/"+poID+"/send", nil, nil))

	var result inventory.ReceiptResult
	require.Equal(t, http.StatusOK, call(t, app, "bodeguero", http.MethodPost, "/api/purchase-orders/"+poID+"/receipts", receipt, &result))
	assert.Equal(t, "PARTIALLY_RECEIVED", result.Status)
	assert.Len(t, result.Succeeded, 1)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, domain.KindInvalidRequest, result.Failed[0].ErrorKind)

	var item map[string]any
	require.Equal(t, http.StatusOK, call(t, app, "vendedor", http.MethodGet, "/api/items/"+a, nil, &item))
	assert.EqualValues(t, 5, item["quantity"])

	result = inventory.ReceiptResult{}
	rest := map[string]any{"lines": []map[string]any{{"item_id": b, "quantity": 2}}}
	require.Equal(t, http.StatusOK, call(t, app, "bodeguero", http.MethodPost, "/api/purchase-orders/"+poID+"/receipts", rest, &result))
	assert.Equal(t, "RECEIVED", result.Status)
	assert.Empty(t, result.Outstanding)

	assert.Equal(t, http.StatusConflict, call(t, app, "bodeguero", http.MethodPost, "/api/purchase-orders/"+poID+"/cancel", nil, nil))
}

func TestReceive_ValidatesBody(t *testing.T) {
	app, _ := buildLedgerApp(t, nil)
	var errBody map[string]any
	status := call(t, app, "admin", http.MethodPost, "/api/purchase-orders/po-1/receipts", map[string]any{"lines": []any{}}, &errBody)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION", errBody["code"])
}

func TestReconcile_AdminOnly(t *testing.T) {
	app, _ := buildLedgerApp(t, nil)
	id := createItem(t, app, "R", 4, 0)
	require.Equal(t, http.StatusCreated, call(t, app, "admin", http.MethodPost, "/api/inventory/adjustments", adjustBody(id, 2), nil))

	assert.Equal(t, http.StatusForbidden, call(t, app, "bodeguero", http.MethodPost, "/api/inventory/reconcile", map[string]any{}, nil))

	var out struct {
		Reports []inventory.ReconcileReport `json:"reports"`
		Repair  *inventory.RepairSummary    `json:"repair"`
	}
	require.Equal(t, http.StatusOK, call(t, app, "admin", http.MethodPost, "/api/inventory/reconcile", map[string]any{"item_id": id, "repair": true}, &out))
	require.Len(t, out.Reports, 1)
	assert.True(t, out.Reports[0].Consistent)
	assert.EqualValues(t, 6, out.Reports[0].LedgerQuantity)
	require.NotNil(t, out.Repair)
	assert.Zero(t, out.Repair.Scanned)
}

func TestReplenishmentList(t *testing.T) {
	app, _ := buildLedgerApp(t, nil)
	createItem(t, app, "OK", 50, 5)
	low := createItem(t, app, "LOW", 3, 5)

	var list []map[string]any
	require.Equal(t, http.StatusOK, call(t, app, "vendedor", http.MethodGet, "/api/inventory/replenishment-list", nil, &list))
	require.Len(t, list, 1)
	assert.Equal(t, low, list[0]["item_id"])
	assert.Equal(t, "LOW", list[0]["status"])
}
