package core

import "github.com/prometheus/client_golang/prometheus"

// Metrics aggregates facade operation counters and settled transaction totals
// for Prometheus scraping.
type Metrics struct {
	operations    *prometheus.CounterVec
	settledTotals prometheus.Histogram
}

// NewMetrics constructs the metric set and registers it with reg. A nil
// registerer leaves the metrics unregistered, which keeps them usable in
// tests without a shared registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storecore",
			Name:      "operations_total",
			Help:      "Facade operations by operation name and terminal status.",
		}, []string{"operation", "status"}),
		settledTotals: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "storecore",
			Name:      "settled_transaction_total",
			Help:      "Totals of settled purchase transactions.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
	}
	if reg != nil {
		reg.MustRegister(m.operations, m.settledTotals)
	}
	return m
}

// ObserveOperation counts one terminal facade outcome.
func (m *Metrics) ObserveOperation(operation string, status Status) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, status.String()).Inc()
}

// ObserveSettled records the total of a settled transaction.
func (m *Metrics) ObserveSettled(total float64) {
	if m == nil {
		return
	}
	m.settledTotals.Observe(total)
}
