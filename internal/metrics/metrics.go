// Package metrics exposes Prometheus counters for assistant runs.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "unfiltered"

// Recorder holds the orchestrator's collectors on a private registry.
type Recorder struct {
	registry     *prometheus.Registry
	runs         *prometheus.CounterVec
	toolCalls    *prometheus.CounterVec
	pollAttempts prometheus.Histogram
}

// New creates a Recorder with its own registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assistant_runs_total",
			Help:      "Assistant runs by outcome.",
		}, []string{"outcome"}),
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "Dispatched tool calls by tool and outcome.",
		}, []string{"tool", "outcome"}),
		pollAttempts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_poll_attempts",
			Help:      "Run retrievals needed per assistant run.",
			Buckets:   []float64{1, 2, 5, 10, 20, 40, 80},
		}),
	}
	r.registry.MustRegister(r.runs, r.toolCalls, r.pollAttempts)
	return r
}

// RunFinished counts a run and the retrievals it took.
func (r *Recorder) RunFinished(outcome string, attempts int) {
	if r == nil {
		return
	}
	r.runs.WithLabelValues(outcome).Inc()
	r.pollAttempts.Observe(float64(attempts))
}

// ToolCall counts one tool dispatch.
func (r *Recorder) ToolCall(tool, outcome string) {
	if r == nil {
		return
	}
	r.toolCalls.WithLabelValues(tool, outcome).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}
