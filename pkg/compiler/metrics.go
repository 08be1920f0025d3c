package compiler

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wundergraph/graphql-compiler/pkg/operationreport"
	"github.com/wundergraph/graphql-compiler/pkg/transforms"
)

const (
	namespace = "gqlc"
	subsystem = "compiler"
)

// Metrics holds the per generation prometheus collectors.
type Metrics struct {
	definitionsProcessed *prometheus.CounterVec
	diagnosticsEmitted   *prometheus.CounterVec
	artifactsWritten     *prometheus.CounterVec
	artifactsDeleted     *prometheus.CounterVec
	generations          *prometheus.CounterVec
	stageDuration        *prometheus.HistogramVec
	failingDuration      *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		definitionsProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "definitions_processed_total",
				Help:      "Definitions rebuilt and transformed.",
			},
			[]string{"project"},
		),
		diagnosticsEmitted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "diagnostics_emitted_total",
				Help:      "Diagnostics reported by generations.",
			},
			[]string{"project", "severity"},
		),
		artifactsWritten: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "artifacts_written_total",
				Help:      "Artifacts written because their hash changed.",
			},
			[]string{"project"},
		),
		artifactsDeleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "artifacts_deleted_total",
				Help:      "Artifacts deleted because their definition is gone or failing.",
			},
			[]string{"project"},
		),
		generations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "generations_total",
				Help:      "Completed generations by resulting state.",
			},
			[]string{"project", "state"},
		),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "stage_duration_seconds",
				Help:      "Wall time of one transform stage over a whole program.",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14), // 100µs to ~1.6s
			},
			[]string{"stage"},
		),
		failingDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "redgreen_failing_duration_seconds",
				Help:      "Time a definition spent failing before it was fixed.",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 16), // 1s to ~9h
			},
			[]string{"project"},
		),
	}
}

// MustRegister registers the metrics with the given Prometheus registry.
func (m *Metrics) MustRegister(registry prometheus.Registerer) {
	registry.MustRegister(
		m.definitionsProcessed,
		m.diagnosticsEmitted,
		m.artifactsWritten,
		m.artifactsDeleted,
		m.generations,
		m.stageDuration,
		m.failingDuration,
	)
}

func (m *Metrics) observeGeneration(result *ProjectGenerationResult) {
	if m == nil {
		return
	}
	m.generations.WithLabelValues(result.Project, result.State.String()).Inc()
	m.definitionsProcessed.WithLabelValues(result.Project).Add(float64(result.Processed))
	for _, severity := range []operationreport.Severity{operationreport.SeverityError, operationreport.SeverityWarning} {
		if n := result.Diagnostics.Count(severity); n != 0 {
			m.diagnosticsEmitted.WithLabelValues(result.Project, severity.String()).Add(float64(n))
		}
	}
	m.artifactsWritten.WithLabelValues(result.Project).Add(float64(len(result.Written)))
	m.artifactsDeleted.WithLabelValues(result.Project).Add(float64(len(result.Deleted)))
	m.observeStages(result.Timings)
}

func (m *Metrics) observeStages(timings []transforms.StageTiming) {
	for _, timing := range timings {
		m.stageDuration.WithLabelValues(timing.Stage).Observe(timing.Duration.Seconds())
	}
}

func (m *Metrics) observeFixed(project string, failing time.Duration) {
	if m == nil {
		return
	}
	m.failingDuration.WithLabelValues(project).Observe(failing.Seconds())
}
