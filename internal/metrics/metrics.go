// Package metrics holds the prometheus collectors for ingestion, retrieval
// and chat. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "kb_assistant"

// Outcome labels.
const (
	OutcomeIngested = "ingested"
	OutcomeSkipped  = "skipped"
	OutcomeFallback = "fallback"
	OutcomeFailed   = "failed"
	OutcomeHit      = "hit"
	OutcomeMiss     = "miss"
	OutcomeError    = "error"
)

// Metrics groups every collector the service exposes.
type Metrics struct {
	registry *prometheus.Registry

	ingestionRuns     *prometheus.CounterVec
	indexedDocuments  prometheus.Counter
	retrievals        *prometheus.CounterVec
	retrievalDuration prometheus.Histogram
	chatRequests      *prometheus.CounterVec
	toolCalls         *prometheus.CounterVec
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ingestionRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingestion_runs_total",
			Help:      "Ingestion runs by outcome.",
		}, []string{"outcome"}),
		indexedDocuments: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "indexed_documents_total",
			Help:      "Documents written to the vector store.",
		}),
		retrievals: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrievals_total",
			Help:      "Knowledge-base searches by outcome.",
		}, []string{"outcome"}),
		retrievalDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieval_duration_seconds",
			Help:      "Latency of embedding plus vector search.",
			Buckets:   prometheus.DefBuckets,
		}),
		chatRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_requests_total",
			Help:      "Chat API requests by HTTP status.",
		}, []string{"status"}),
		toolCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "Assistant tool invocations by tool and result.",
		}, []string{"tool", "result"}),
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) IngestionRun(outcome string, docs int) {
	if m == nil {
		return
	}
	m.ingestionRuns.WithLabelValues(outcome).Inc()
	m.indexedDocuments.Add(float64(docs))
}

func (m *Metrics) Retrieval(outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.retrievals.WithLabelValues(outcome).Inc()
	m.retrievalDuration.Observe(took.Seconds())
}

func (m *Metrics) ChatRequest(status string) {
	if m == nil {
		return
	}
	m.chatRequests.WithLabelValues(status).Inc()
}

func (m *Metrics) ToolCall(tool string, ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.toolCalls.WithLabelValues(tool, result).Inc()
}
