// Package metrics holds the Prometheus collectors for the query engine.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "forensic"

// Query outcome labels.
const (
	StatusSuccess = "success"
	StatusInvalid = "invalid"
	StatusError   = "error"
)

// Degraded dependency labels.
const (
	DependencyEmbedding = "embedding"
	DependencyNarrative = "narrative"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	QueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_total",
			Help:      "Total number of executed queries by outcome",
		},
		[]string{"status"},
	)

	QueryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "End-to-end query execution time in seconds",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)

	FacetResults = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "facet_results",
			Help:      "Number of results returned per facet",
			Buckets:   []float64{0, 1, 5, 10, 20, 50, 100},
		},
		[]string{"facet"},
	)

	DependencyDegraded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dependency_degraded_total",
			Help:      "Times a query continued without an optional dependency",
		},
		[]string{"dependency"},
	)

	EmbeddingsBackfilled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "embedding",
			Name:      "backfilled_total",
			Help:      "Messages processed by embedding backfill",
		},
		[]string{"status"},
	)

	MCPToolCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mcp",
			Name:      "tool_calls_total",
			Help:      "MCP tool invocations by tool and outcome",
		},
		[]string{"tool", "status"},
	)
)

// ObserveHTTP records one served HTTP request.
func ObserveHTTP(method, path string, status int, elapsed time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

// ObserveQuery records one query execution.
func ObserveQuery(status string, elapsed time.Duration) {
	QueryTotal.WithLabelValues(status).Inc()
	if status == StatusSuccess {
		QueryDuration.Observe(elapsed.Seconds())
	}
}

// ObserveFacet records the result count of one facet.
func ObserveFacet(facet string, n int) {
	FacetResults.WithLabelValues(facet).Observe(float64(n))
}

// Degraded records that a query proceeded without dependency.
func Degraded(dependency string) {
	DependencyDegraded.WithLabelValues(dependency).Inc()
}

// ObserveToolCall counts one MCP tool invocation. status is StatusSuccess,
// StatusInvalid for tool-level errors or StatusError for protocol failures.
func ObserveToolCall(tool, status string) {
	MCPToolCalls.WithLabelValues(tool, status).Inc()
}
