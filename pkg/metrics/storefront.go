package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StorefrontMetrics records checkout outcomes and client-state degradations.
type StorefrontMetrics struct {
	registry         *prometheus.Registry
	checkoutOutcomes *prometheus.CounterVec
	snapshotFailures *prometheus.CounterVec
	cartMutations    *prometheus.CounterVec
}

// NewStorefrontMetrics registers the storefront metrics on a fresh registry.
func NewStorefrontMetrics() *StorefrontMetrics {
	registry := prometheus.NewRegistry()

	checkoutOutcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_outcomes_total",
		Help: "Checkout flow terminal outcomes.",
	}, []string{"outcome"})
	snapshotFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "snapshot_store_failures_total",
		Help: "Snapshot store operations degraded to no-ops.",
	}, []string{"op"})
	cartMutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_mutations_total",
		Help: "Cart mutation operations by kind.",
	}, []string{"kind"})

	registry.MustRegister(checkoutOutcomes, snapshotFailures, cartMutations)

	return &StorefrontMetrics{
		registry:         registry,
		checkoutOutcomes: checkoutOutcomes,
		snapshotFailures: snapshotFailures,
		cartMutations:    cartMutations,
	}
}

// Handler exposes the registry for the /metrics endpoint.
func (m *StorefrontMetrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// IncCheckoutOutcome increments the outcome counter (completed/failed/abandoned).
func (m *StorefrontMetrics) IncCheckoutOutcome(outcome string) {
	if m == nil || m.checkoutOutcomes == nil {
		return
	}
	m.checkoutOutcomes.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncSnapshotFailure increments the degradation counter for the named op.
func (m *StorefrontMetrics) IncSnapshotFailure(op string) {
	if m == nil || m.snapshotFailures == nil {
		return
	}
	m.snapshotFailures.WithLabelValues(normalizeLabel(op)).Inc()
}

// IncCartMutation increments the mutation counter (add/update/remove/clear).
func (m *StorefrontMetrics) IncCartMutation(kind string) {
	if m == nil || m.cartMutations == nil {
		return
	}
	m.cartMutations.WithLabelValues(normalizeLabel(kind)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
