package services

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Analysis outcomes, one per error kind plus success.
const (
	OutcomeSuccess            = "success"
	OutcomeInvalidRequest     = "invalid_request"
	OutcomeExtractionError    = "extraction_error"
	OutcomeConfigurationError = "configuration_error"
	OutcomeTransportError     = "transport_error"
	OutcomeTimeout            = "timeout"
	OutcomeParseError         = "parse_error"
	OutcomeInternalError      = "internal_error"
)

type Metrics struct {
	registry      *prometheus.Registry
	analyses      *prometheus.CounterVec
	llmDuration   *prometheus.HistogramVec
	parseWarnings *prometheus.CounterVec
}

// NewMetrics registers the analyzer collectors on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cv_analyzer",
			Name:      "analyses_total",
			Help:      "Analysis requests by outcome.",
		}, []string{"outcome"}),
		llmDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cv_analyzer",
			Name:      "llm_request_duration_seconds",
			Help:      "Time spent waiting for the LLM, retries included.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 60, 120},
		}, []string{"provider"}),
		parseWarnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cv_analyzer",
			Name:      "parse_warnings_total",
			Help:      "Recoverable problems found in LLM replies.",
		}, []string{"field", "kind"}),
	}

	m.registry.MustRegister(
		m.analyses,
		m.llmDuration,
		m.parseWarnings,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ObserveOutcome(outcome string) {
	m.analyses.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveLLMDuration(provider string, d time.Duration) {
	m.llmDuration.WithLabelValues(provider).Observe(d.Seconds())
}

func (m *Metrics) ObserveParseWarning(field, kind string) {
	m.parseWarnings.WithLabelValues(field, kind).Inc()
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
