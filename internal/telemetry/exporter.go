// Package telemetry exposes run metrics in Prometheus exposition format.
package telemetry

import (
	"bytes"
	"fmt"
	"net/http"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"
)

// LatencyBuckets are the fixed histogram bounds in seconds. They span the
// spread seen across hosted APIs and local inference, from sub-100ms cache
// hits to 30s long-form generations.
var LatencyBuckets = []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

// Exporter owns a private registry so concurrent runs in one process never
// collide on metric registration.
type Exporter struct {
	registry *prometheus.Registry

	requests *prometheus.CounterVec
	failures *prometheus.CounterVec
	tokens   *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	active   *prometheus.GaugeVec
}

// NewExporter creates an exporter with all instruments registered.
func NewExporter() *Exporter {
	e := &Exporter{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "promptfire_requests_total",
			Help: "Completed request attempts by outcome.",
		}, []string{"model", "prompt_type", "status"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "promptfire_failure_count",
			Help: "Failed attempts by error kind.",
		}, []string{"model", "prompt_type", "error_kind"}),
		tokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "promptfire_tokens_total",
			Help: "Total tokens consumed, prompt plus completion.",
		}, []string{"model", "prompt_type"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "promptfire_latency_seconds",
			Help:    "End-to-end request latency.",
			Buckets: LatencyBuckets,
		}, []string{"model", "prompt_type"}),
		active: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "promptfire_active_requests",
			Help: "Requests currently in flight.",
		}, []string{"model"}),
	}
	e.registry.MustRegister(e.requests, e.failures, e.tokens, e.latency, e.active)
	return e
}

// ObserveSuccess records one successful attempt.
func (e *Exporter) ObserveSuccess(model, promptType string, latencySeconds float64, totalTokens int) {
	e.requests.WithLabelValues(model, promptType, "success").Inc()
	e.tokens.WithLabelValues(model, promptType).Add(float64(totalTokens))
	e.latency.WithLabelValues(model, promptType).Observe(latencySeconds)
}

// ObserveFailure records one failed attempt. Failures still contribute a
// latency sample; a timeout that takes 30s is part of the latency story.
func (e *Exporter) ObserveFailure(model, promptType, errorKind string, latencySeconds float64) {
	e.requests.WithLabelValues(model, promptType, "failure").Inc()
	e.failures.WithLabelValues(model, promptType, errorKind).Inc()
	e.latency.WithLabelValues(model, promptType).Observe(latencySeconds)
}

// ObserveSkipped records an attempt that never reached the backend.
func (e *Exporter) ObserveSkipped(model, promptType string) {
	e.requests.WithLabelValues(model, promptType, "skipped").Inc()
}

// IncActive marks a request entering flight.
func (e *Exporter) IncActive(model string) {
	e.active.WithLabelValues(model).Inc()
}

// DecActive marks a request leaving flight.
func (e *Exporter) DecActive(model string) {
	e.active.WithLabelValues(model).Dec()
}

// Handler serves the registry over HTTP for scraping during a run.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// Render returns the current metric state in text exposition format, with
// families in a stable order.
func (e *Exporter) Render() (string, error) {
	families, err := e.registry.Gather()
	if err != nil {
		return "", fmt.Errorf("gather metrics: %w", err)
	}
	sort.Slice(families, func(i, j int) bool {
		return families[i].GetName() < families[j].GetName()
	})

	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, fam := range families {
		if err := enc.Encode(fam); err != nil {
			return "", fmt.Errorf("encode metric family %s: %w", fam.GetName(), err)
		}
	}
	return buf.String(), nil
}
