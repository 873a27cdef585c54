package eventing

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/OmDoke/Book-Inventory-Management-System/orchestrator"
)

// Metrics counts loop activity in Prometheus.
type Metrics struct {
	runs          *prometheus.CounterVec
	providerCalls prometheus.Counter
	toolResults   *prometheus.CounterVec
	callsPerRun   prometheus.Histogram
}

var _ orchestrator.EventSink = (*Metrics)(nil)

// NewMetrics registers the search collectors on registerer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "bookstore",
				Subsystem: "search",
				Name:      "runs_total",
				Help:      "Search loop invocations by terminal outcome",
			},
			[]string{"outcome"},
		),
		providerCalls: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "bookstore",
				Subsystem: "search",
				Name:      "provider_calls_total",
				Help:      "Assistant turns returned by the completion provider",
			},
		),
		toolResults: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "bookstore",
				Subsystem: "search",
				Name:      "tool_results_total",
				Help:      "Tool results appended to search conversations",
			},
			[]string{"tool", "outcome"},
		),
		callsPerRun: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "bookstore",
				Subsystem: "search",
				Name:      "provider_calls_per_run",
				Help:      "Provider calls made by completed or exhausted searches",
				Buckets:   prometheus.LinearBuckets(1, 1, 8),
			},
		),
	}
}

func (m *Metrics) Publish(_ context.Context, event orchestrator.Event) error {
	switch event.Type {
	case orchestrator.EventTypeAssistantMessage:
		m.providerCalls.Inc()
	case orchestrator.EventTypeToolResult:
		outcome := "ok"
		name := ""
		if event.ToolResult != nil {
			name = event.ToolResult.Name
			if event.ToolResult.IsError {
				outcome = "error"
			}
		}
		m.toolResults.WithLabelValues(name, outcome).Inc()
	case orchestrator.EventTypeRunCompleted:
		m.runs.WithLabelValues("completed").Inc()
		m.callsPerRun.Observe(float64(event.Step))
	case orchestrator.EventTypeRunExhausted:
		m.runs.WithLabelValues("exhausted").Inc()
		m.callsPerRun.Observe(float64(event.Step))
	case orchestrator.EventTypeRunFailed:
		m.runs.WithLabelValues("failed").Inc()
	case orchestrator.EventTypeRunCancelled:
		m.runs.WithLabelValues("cancelled").Inc()
	}
	return nil
}
