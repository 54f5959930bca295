package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ai_secretary"

// Metrics holds the service collectors on a private registry.
// Every method is safe to call on a nil *Metrics.
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	errors          *prometheus.CounterVec
	intake          *prometheus.CounterVec
	classifications *prometheus.CounterVec
	fallback        *prometheus.CounterVec
	tickets         *prometheus.CounterVec
	slaViolations   prometheus.Counter
}

// NewMetrics registers the collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"path", "method", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"path", "method"}),
		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_errors_total",
			Help:      "HTTP errors by route, method and error code.",
		}, []string{"path", "method", "code"}),
		intake: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "intake_messages_total",
			Help:      "Resident messages received by channel and priority.",
		}, []string{"channel", "priority"}),
		classifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifications_total",
			Help:      "Message classifications by method and category.",
		}, []string{"method", "category"}),
		fallback: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_fallback_total",
			Help:      "LLM fallback consultations by outcome.",
		}, []string{"outcome"}),
		tickets: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tickets_created_total",
			Help:      "Tickets created by category and priority.",
		}, []string{"category", "priority"}),
		slaViolations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sla_violations_total",
			Help:      "Tickets detected past their resolution deadline.",
		}),
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(path, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(path, method, code).Inc()
}

// RecordIntake counts a persisted resident message.
func (m *Metrics) RecordIntake(channel, priority string) {
	if m == nil {
		return
	}
	m.intake.WithLabelValues(channel, priority).Inc()
}

// RecordClassification counts a classification decision.
func (m *Metrics) RecordClassification(method, category string) {
	if m == nil {
		return
	}
	m.classifications.WithLabelValues(method, category).Inc()
}

// RecordFallback counts an LLM fallback outcome (unavailable, error, replaced, kept_rule).
func (m *Metrics) RecordFallback(outcome string) {
	if m == nil {
		return
	}
	m.fallback.WithLabelValues(outcome).Inc()
}

// RecordTicketCreated counts a new ticket.
func (m *Metrics) RecordTicketCreated(category, priority string) {
	if m == nil {
		return
	}
	m.tickets.WithLabelValues(category, priority).Inc()
}

// RecordSLAViolation counts a newly detected SLA breach.
func (m *Metrics) RecordSLAViolation() {
	if m == nil {
		return
	}
	m.slaViolations.Inc()
}
