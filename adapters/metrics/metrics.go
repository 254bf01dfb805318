// Package metrics provides Prometheus metrics for the mimsy client and CLI.
package metrics

import (
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "mimsy"

// Collector holds all Prometheus metrics.
type Collector struct {
	// Content API metrics
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge
	RequestErrors    *prometheus.CounterVec

	// Relation resolver metrics
	RelationFetches *prometheus.CounterVec

	// Schema metrics
	SchemaExports     prometheus.Counter
	SchemaCollections prometheus.Gauge

	// Definition reload metrics (msy watch)
	DefinitionReloads      prometheus.Counter
	DefinitionReloadErrors prometheus.Counter
	DefinitionLastReload   prometheus.Gauge
}

// New creates a collector registered with the default Prometheus registry.
func New() *Collector {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a collector with a custom registry.
// Useful for testing to avoid global state.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_requests_total",
				Help:      "Total number of content API requests",
			},
			[]string{"resource", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "api_request_duration_seconds",
				Help:      "Content API request duration in seconds",
				Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"resource"},
		),
		RequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "api_requests_in_flight",
				Help:      "Number of content API requests currently in flight",
			},
		),
		RequestErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_errors_total",
				Help:      "Total number of content API errors",
			},
			[]string{"type"},
		),
		RelationFetches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "relation_fetches_total",
				Help:      "Total number of relation fetches by target kind",
			},
			[]string{"kind", "result"},
		),
		SchemaExports: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "schema_exports_total",
				Help:      "Total number of schema exports",
			},
		),
		SchemaCollections: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "schema_collections",
				Help:      "Number of collections and globals in the last export",
			},
		),
		DefinitionReloads: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "definition_reloads_total",
				Help:      "Total number of definition reloads",
			},
		),
		DefinitionReloadErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "definition_reload_errors_total",
				Help:      "Total number of definition reload errors",
			},
		),
		DefinitionLastReload: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "definition_last_reload_timestamp",
				Help:      "Unix timestamp of the last successful definition reload",
			},
		),
	}
}

// StatusClass groups an HTTP status code as "2xx", "4xx" and so on.
func StatusClass(code int) string {
	if code < 100 || code > 599 {
		return "unknown"
	}
	return strconv.Itoa(code/100) + "xx"
}

// Resource reduces label cardinality by replacing record ids with ":id".
// e.g., /v1/collections/posts/123 -> /v1/collections/posts/:id
func Resource(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	keep := len(parts)
	switch {
	case len(parts) >= 2 && parts[0] == "v1" && (parts[1] == "users" || parts[1] == "media"):
		keep = 2
	case len(parts) >= 3 && parts[0] == "v1" && (parts[1] == "collections" || parts[1] == "globals"):
		keep = 3
	}
	if keep < len(parts) {
		parts = append(parts[:keep], ":id")
	}
	return "/" + strings.Join(parts, "/")
}
