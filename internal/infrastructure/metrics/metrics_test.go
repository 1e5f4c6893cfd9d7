package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

func TestRecorder(t *testing.T) {
	m := New("stock_ledger")

	m.AdjustmentApplied(entity.MovementManualAdjustment)
	m.AdjustmentApplied(entity.MovementManualAdjustment)
	m.AdjustmentRejected(domain.KindInsufficientStock)
	m.VersionConflict()
	m.Inconsistency()
	m.ReceiptLine(true)
	m.ReceiptLine(false)
	m.PendingResolved(entity.PendingReplayed)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.AdjustmentsApplied.WithLabelValues("MANUAL_ADJUSTMENT")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AdjustmentsRejected.WithLabelValues(string(domain.KindInsufficientStock))))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.VersionConflicts))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Inconsistencies))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReceiptLines.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PendingResolutions.WithLabelValues("REPLAYED")))
}

func TestHandler(t *testing.T) {
	m := New("stock_ledger")
	m.RecordHTTPRequest("GET", "/api/items/:id", 200, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "stock_ledger_http_requests_total"))
	assert.True(t, strings.Contains(body, "go_goroutines"))
}
