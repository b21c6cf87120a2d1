package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Query outcomes recorded by ObserveQuery
const (
	OutcomeHit   = "hit"
	OutcomeMiss  = "miss"
	OutcomeError = "error"
)

// Collector holds all Prometheus metrics for the application
type Collector struct {
	// Registry for this collector instance
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Knowledge base metrics
	ConceptsCreated  prometheus.Counter
	RelationsCreated prometheus.Counter
	FactsEstablished *prometheus.CounterVec
	Queries          *prometheus.CounterVec
	Reloads          *prometheus.CounterVec
}

// NewCollector creates a collector with its own registry, so several
// collectors can live in one process (tests, reloads).
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		ConceptsCreated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "concepts_created_total",
				Help:      "Total number of concepts created",
			},
		),
		RelationsCreated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "relations_created_total",
				Help:      "Total number of relations created",
			},
		),
		FactsEstablished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "facts_established_total",
				Help:      "Total number of facts established, split by direct and implied",
			},
			[]string{"kind"},
		),
		Queries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "queries_total",
				Help:      "Total number of knowledge base queries",
			},
			[]string{"operation", "outcome"},
		),
		Reloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "kb_reloads_total",
				Help:      "Total number of knowledge base reloads",
			},
			[]string{"status"},
		),
	}

	registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.ConceptsCreated,
		c.RelationsCreated,
		c.FactsEstablished,
		c.Queries,
		c.Reloads,
	)

	return c
}

// ObserveHTTP records one finished request
func (c *Collector) ObserveHTTP(method, route string, status int, duration time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveFact records an established fact
func (c *Collector) ObserveFact(implied bool) {
	kind := "direct"
	if implied {
		kind = "implied"
	}
	c.FactsEstablished.WithLabelValues(kind).Inc()
}

// ObserveQuery records a query and how it ended
func (c *Collector) ObserveQuery(operation, outcome string) {
	c.Queries.WithLabelValues(operation, outcome).Inc()
}

// ObserveReload records a knowledge base reload attempt
func (c *Collector) ObserveReload(err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	c.Reloads.WithLabelValues(status).Inc()
}

// GetRegistry returns the Prometheus registry for this collector
func (c *Collector) GetRegistry() *prometheus.Registry {
	return c.registry
}

// Handler exposes the collector's registry in the Prometheus text format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
