package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CartMetrics records cart store and synchronization activity.
type CartMetrics struct {
	mutations        *prometheus.CounterVec
	reconcileReplace prometheus.Counter
	backendDuration  *prometheus.HistogramVec
	backendFailures  *prometheus.CounterVec
}

// NewCartMetrics registers the cart metrics on the provided registerer.
func NewCartMetrics(reg prometheus.Registerer) *CartMetrics {
	if reg == nil {
		return &CartMetrics{}
	}
	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_store_mutations_total",
		Help: "Cart store mutations by operation.",
	}, []string{"op"})
	reconcileReplace := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cart_store_reconcile_replace_total",
		Help: "Reconcile calls that diverged and rewrote local state.",
	})
	backendDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "backend_request_duration_seconds",
		Help:    "Duration of marketplace backend calls in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
	backendFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "backend_request_failures_total",
		Help: "Failed marketplace backend calls by operation.",
	}, []string{"op"})
	reg.MustRegister(mutations, reconcileReplace, backendDuration, backendFailures)
	return &CartMetrics{
		mutations:        mutations,
		reconcileReplace: reconcileReplace,
		backendDuration:  backendDuration,
		backendFailures:  backendFailures,
	}
}

// IncMutation counts one store mutation for the named operation.
func (c *CartMetrics) IncMutation(op string) {
	if c == nil || c.mutations == nil {
		return
	}
	c.mutations.WithLabelValues(normalizeLabel(op)).Inc()
}

// IncReconcileReplace counts a divergent reconcile.
func (c *CartMetrics) IncReconcileReplace() {
	if c == nil || c.reconcileReplace == nil {
		return
	}
	c.reconcileReplace.Inc()
}

// ObserveBackend records the duration of a backend call.
func (c *CartMetrics) ObserveBackend(op string, duration time.Duration) {
	if c == nil || c.backendDuration == nil {
		return
	}
	c.backendDuration.WithLabelValues(normalizeLabel(op)).Observe(duration.Seconds())
}

// IncBackendFailure counts a failed backend call.
func (c *CartMetrics) IncBackendFailure(op string) {
	if c == nil || c.backendFailures == nil {
		return
	}
	c.backendFailures.WithLabelValues(normalizeLabel(op)).Inc()
}

func normalizeLabel(op string) string {
	if op == "" {
		return "unknown"
	}
	return op
}
