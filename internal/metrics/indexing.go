package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every metric exported by the service.
const Namespace = "staysearch"

// Indexing, rebuild and search metrics.
var (
	IndexingOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "indexing_operations_total",
			Help:      "Indexing hook invocations by operation and outcome",
		},
		[]string{"op", "status"}, // status: "ok" / "error"
	)

	IndexingRetriesExhaustedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "indexing_retries_exhausted_total",
			Help:      "Indexing operations abandoned after the retry budget; each needs reconciliation",
		},
		[]string{"op"},
	)

	RebuildUnitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "rebuild_units_total",
			Help:      "Units processed by full rebuilds",
		},
		[]string{"status"}, // "indexed" / "skipped" / "error"
	)

	ActiveGeneration = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "active_generation",
			Help:      "Index generation currently served to readers",
		},
	)

	SearchRelaxationTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "search_relaxation_total",
			Help:      "Searches by the relaxation level finally applied",
		},
		[]string{"level"},
	)

	SearchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "search_duration_seconds",
			Help:      "End-to-end search duration including relaxation tiers",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)
)

var registerOnce sync.Once

// Register adds every service metric to the default registry. Safe to call
// more than once; the embedded SDK keeps its own registry and never calls it.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequestDuration,
			httpRequestsTotal,
			httpInFlight,
			IndexingOperationsTotal,
			IndexingRetriesExhaustedTotal,
			RebuildUnitsTotal,
			ActiveGeneration,
			SearchRelaxationTotal,
			SearchDuration,
		)
	})
}
