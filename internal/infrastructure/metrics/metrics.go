// Package metrics expone las métricas Prometheus del libro de stock.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

var _ inventory.Recorder = (*Metrics)(nil)

// Metrics contadores del motor de ajustes, recepción y reconciliación, más HTTP.
type Metrics struct {
	registry *prometheus.Registry

	AdjustmentsApplied  *prometheus.CounterVec
	AdjustmentsRejected *prometheus.CounterVec
	VersionConflicts    prometheus.Counter
	Inconsistencies     prometheus.Counter
	ReceiptLines        *prometheus.CounterVec
	PendingResolutions  *prometheus.CounterVec

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New registra las métricas en un registry propio con el namespace dado.
func New(namespace string) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: registry,
		AdjustmentsApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "adjustments_applied_total",
			Help:      "Ajustes aplicados al catálogo y registrados en el libro",
		}, []string{"type"}),
		AdjustmentsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "adjustments_rejected_total",
			Help:      "Ajustes que terminaron en error, por tipo de error",
		}, []string{"kind"}),
		VersionConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "version_conflicts_total",
			Help:      "Compare-and-swap rechazados por versión obsoleta",
		}),
		Inconsistencies: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inconsistencies_total",
			Help:      "Cantidades actualizadas sin movimiento en el libro",
		}),
		ReceiptLines: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "receipt_lines_total",
			Help:      "Líneas de recepción de órdenes de compra procesadas",
		}, []string{"result"}),
		PendingResolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pending_operations_resolved_total",
			Help:      "Operaciones pendientes cerradas por el reconciliador",
		}, []string{"status"}),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total de peticiones HTTP",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duración de las peticiones HTTP en segundos",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"method", "path"}),
	}
	registry.MustRegister(
		m.AdjustmentsApplied, m.AdjustmentsRejected, m.VersionConflicts, m.Inconsistencies,
		m.ReceiptLines, m.PendingResolutions, m.HTTPRequestsTotal, m.HTTPRequestDuration,
	)
	return m
}

// Handler endpoint /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Registry devuelve el registry de Prometheus.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) AdjustmentApplied(t entity.MovementType) {
	m.AdjustmentsApplied.WithLabelValues(string(t)).Inc()
}

func (m *Metrics) AdjustmentRejected(kind domain.ErrorKind) {
	m.AdjustmentsRejected.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) VersionConflict() { m.VersionConflicts.Inc() }

func (m *Metrics) Inconsistency() { m.Inconsistencies.Inc() }

func (m *Metrics) ReceiptLine(succeeded bool) {
	result := "failed"
	if succeeded {
		result = "succeeded"
	}
	m.ReceiptLines.WithLabelValues(result).Inc()
}

func (m *Metrics) PendingResolved(status string) {
	m.PendingResolutions.WithLabelValues(status).Inc()
}

// RecordHTTPRequest registra una petición HTTP (path = ruta registrada, no la URL concreta).
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}
