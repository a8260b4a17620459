package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rios0rios0/depaudit/internal/domain/entities"
	"github.com/rios0rios0/depaudit/internal/domain/repositories"
)

const (
	namespace     = "depaudit"
	resultSuccess = "success"
	resultFailure = "failure"
)

// PrometheusMetricsRepository implements repositories.MetricsRepository on its own
// Prometheus registry.
type PrometheusMetricsRepository struct {
	registry        *prometheus.Registry
	audits          *prometheus.CounterVec
	manifests       *prometheus.CounterVec
	skippedLines    prometheus.Counter
	registryLookups *prometheus.CounterVec
	remediations    *prometheus.CounterVec
}

var _ repositories.MetricsRepository = (*PrometheusMetricsRepository)(nil)

// NewPrometheusMetricsRepository creates and registers the pipeline collectors.
func NewPrometheusMetricsRepository() *PrometheusMetricsRepository {
	m := &PrometheusMetricsRepository{
		registry: prometheus.NewRegistry(),
		audits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audits_total",
			Help:      "Audits run, by outcome kind.",
		}, []string{"result"}),
		manifests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "manifests_total",
			Help:      "Manifests discovered during audits, by whether they could be read and parsed.",
		}, []string{"result"}),
		skippedLines: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "manifest_lines_skipped_total",
			Help:      "Manifest entries ignored because they did not match the manifest grammar.",
		}),
		registryLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registry_lookups_total",
			Help:      "Registry lookups, by ecosystem and outcome.",
		}, []string{"ecosystem", "result"}),
		remediations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remediations_total",
			Help:      "Remediations, by last step reached and outcome.",
		}, []string{"step", "result"}),
	}

	m.registry.MustRegister(m.audits, m.manifests, m.skippedLines, m.registryLookups, m.remediations)
	return m
}

func (m *PrometheusMetricsRepository) ObserveAudit(stats entities.AuditStats, err error) {
	result := resultSuccess
	if err != nil {
		result = string(entities.KindOf(err))
		if result == "" {
			result = resultFailure
		}
	}
	m.audits.WithLabelValues(result).Inc()
	m.manifests.WithLabelValues(resultSuccess).Add(float64(stats.ManifestsFound - stats.ManifestsFailed))
	m.manifests.WithLabelValues(resultFailure).Add(float64(stats.ManifestsFailed))
	m.skippedLines.Add(float64(stats.LinesSkipped))
}

func (m *PrometheusMetricsRepository) ObserveLookup(ecosystem entities.Ecosystem, succeeded bool) {
	result := resultSuccess
	if !succeeded {
		result = resultFailure
	}
	m.registryLookups.WithLabelValues(ecosystem.String(), result).Inc()
}

func (m *PrometheusMetricsRepository) ObserveRemediation(step string, err error) {
	result := resultSuccess
	if err != nil {
		result = resultFailure
	}
	m.remediations.WithLabelValues(step, result).Inc()
}

// Handler serves the collected metrics in the Prometheus exposition format.
func (m *PrometheusMetricsRepository) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *PrometheusMetricsRepository) Registry() *prometheus.Registry {
	return m.registry
}
