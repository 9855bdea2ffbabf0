// Package metrics exposes Prometheus counters for tool calls and project
// writes.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// toolCalls counts tool invocations.
	// Labels: tool, status (success, not_found, already_exists, empty, error)
	toolCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "xcodeproj",
		Subsystem: "mcp",
		Name:      "tool_calls_total",
		Help:      "Tool invocations by outcome status",
	}, []string{"tool", "status"})

	// toolLatency measures the full load-edit-save cycle of a tool call.
	// Labels: tool
	toolLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "xcodeproj",
		Subsystem: "mcp",
		Name:      "tool_latency_seconds",
		Help:      "Tool call latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"tool"})

	// projectWrites counts project file writes.
	// Labels: result (ok, failed)
	projectWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "xcodeproj",
		Subsystem: "project",
		Name:      "writes_total",
		Help:      "Project file writes by result",
	}, []string{"result"})

	externalEdits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "xcodeproj",
		Subsystem: "watcher",
		Name:      "external_edits_total",
		Help:      "Project files changed on disk by another process",
	})
)

// RecordToolCall records one tool invocation and its latency.
func RecordToolCall(tool, status string, d time.Duration) {
	toolCalls.WithLabelValues(tool, status).Inc()
	toolLatency.WithLabelValues(tool).Observe(d.Seconds())
}

// RecordWrite records a project file write.
func RecordWrite(err error) {
	result := "ok"
	if err != nil {
		result = "failed"
	}
	projectWrites.WithLabelValues(result).Inc()
}

// RecordExternalEdit records a detected external modification.
func RecordExternalEdit() {
	externalEdits.Inc()
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
