// Package metrics exposes Prometheus instrumentation for ledger operations.
package metrics

import (
	"net/http"
	"time"

	"stockledger/internal/core"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector records operation latency and outcomes on a private registry.
type Collector struct {
	registry    *prometheus.Registry
	opDuration  *prometheus.HistogramVec
	opTotal     *prometheus.CounterVec
	unitsMinted prometheus.Counter
	stockMoved  *prometheus.CounterVec
}

func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		opDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stockledger_operation_duration_seconds",
				Help:    "Time taken by stock ledger operations",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		opTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockledger_operations_total",
				Help: "Stock ledger operations by outcome code",
			},
			[]string{"operation", "result"},
		),
		unitsMinted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stockledger_units_minted_total",
			Help: "Individually numbered units created by purchase receipts",
		}),
		stockMoved: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockledger_bucket_quantity_total",
				Help: "Absolute quantity credited into each bucket",
			},
			[]string{"bucket"},
		),
	}
	c.registry.MustRegister(c.opDuration, c.opTotal, c.unitsMinted, c.stockMoved)
	return c
}

// Observe records one completed operation. The result label is core.ErrorCode(err).
func (c *Collector) Observe(operation string, start time.Time, err error) {
	if c == nil {
		return
	}
	c.opDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	c.opTotal.WithLabelValues(operation, core.ErrorCode(err)).Inc()
}

// UnitsMinted adds n to the minted-units counter.
func (c *Collector) UnitsMinted(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.unitsMinted.Add(float64(n))
}

// Credited adds qty to the per-bucket inflow counter.
func (c *Collector) Credited(bucket core.Bucket, qty int) {
	if c == nil || qty <= 0 {
		return
	}
	c.stockMoved.WithLabelValues(string(bucket)).Add(float64(qty))
}

// Registry exposes the underlying registry, mainly for tests.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
