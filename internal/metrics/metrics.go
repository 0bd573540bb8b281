// Package metrics holds the Prometheus collectors for HTTP traffic and
// domain events. Collectors live on a Metrics value registered against an
// explicit registry, so tests can build as many as they like.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "restaurante"

type Metrics struct {
	registry *prometheus.Registry

	RequestDuration *prometheus.HistogramVec
	RequestTotal    *prometheus.CounterVec
	RequestInFlight prometheus.Gauge

	StockMoves        *prometheus.CounterVec
	NegativeBalances  prometheus.Counter
	Alerts            *prometheus.CounterVec
	DataQualitySkips  prometheus.Counter
	OrdersPaid        prometheus.Counter
	PayableSettlement *prometheus.CounterVec
}

// New creates every collector and registers it on reg, together with the Go
// runtime and process collectors.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: reg,
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
		RequestTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests.",
			},
			[]string{"method", "route", "status"},
		),
		RequestInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Number of HTTP requests currently being served.",
		}),
		StockMoves: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "stock",
				Name:      "moves_total",
				Help:      "Stock moves appended to the ledger, by type.",
			},
			[]string{"type"},
		),
		NegativeBalances: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stock",
			Name:      "negative_balance_writes_total",
			Help:      "Moves that left a product with a negative balance.",
		}),
		Alerts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "inventory",
				Name:      "alerts_total",
				Help:      "Inventory alerts produced, by severity.",
			},
			[]string{"severity"},
		),
		DataQualitySkips: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "inventory",
			Name:      "data_quality_skips_total",
			Help:      "Products left out of alerting because they cannot be classified.",
		}),
		OrdersPaid: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "paid_total",
			Help:      "Orders settled.",
		}),
		PayableSettlement: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "purchases",
				Name:      "payable_transitions_total",
				Help:      "Payable status transitions, by target status.",
			},
			[]string{"status"},
		),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.RequestDuration,
		m.RequestTotal,
		m.RequestInFlight,
		m.StockMoves,
		m.NegativeBalances,
		m.Alerts,
		m.DataQualitySkips,
		m.OrdersPaid,
		m.PayableSettlement,
	)
	return m
}

// NewNop returns Metrics on a private registry. Used by tests and tools
// that never expose /metrics.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
