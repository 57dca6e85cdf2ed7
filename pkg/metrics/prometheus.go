// Package metrics provides Prometheus metrics for the reconciliation batch job.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Stage labels for StageDuration.
const (
	StageRegistry  = "registry"
	StageEnrich    = "enrich"
	StageResolve   = "resolve"
	StageAggregate = "aggregate"
	StageMetrics   = "metrics"
	StageWrite     = "write"
	StageSink      = "sink"
)

// Manager owns every metric of the pipeline.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Ingestion
	recordsRead     prometheus.Counter
	recordsAccepted prometheus.Counter
	recordsRejected *prometheus.CounterVec
	chunksProcessed prometheus.Counter
	issues          *prometheus.CounterVec

	// Data quality
	flags                  *prometheus.CounterVec
	conflicts              prometheus.Gauge
	unmatchedRegistrations prometheus.Gauge
	invalidTaxIDs          prometheus.Gauge

	// Outputs
	aggregatedRows  prometheus.Gauge
	operatorsRanked prometheus.Gauge
	highVariability prometheus.Gauge
	rowsLoaded      *prometheus.CounterVec

	// Run
	stageDuration *prometheus.HistogramVec
	runDuration   prometheus.Gauge
	runStatus     prometheus.Gauge
	lastSuccess   prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "recon",
		subsystem:        "pipeline",
		histogramBuckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
		enabled:          true,
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.recordsRead = auto.NewCounter(m.counterOpts("records_read_total", "Raw expense records read from the source file"))
	m.recordsAccepted = auto.NewCounter(m.counterOpts("records_accepted_total", "Records that survived enrichment"))
	m.recordsRejected = auto.NewCounterVec(m.counterOpts("records_rejected_total", "Records dropped during enrichment by reason"), []string{"reason"})
	m.chunksProcessed = auto.NewCounter(m.counterOpts("chunks_processed_total", "Source chunks processed"))
	m.issues = auto.NewCounterVec(m.counterOpts("issues_total", "Recoverable data issues by kind"), []string{"kind"})

	m.flags = auto.NewCounterVec(m.counterOpts("flagged_records_total", "Final records carrying each quality flag"), []string{"flag"})
	m.conflicts = auto.NewGauge(m.gaugeOpts("tax_id_conflicts", "Tax IDs seen under more than one company name"))
	m.unmatchedRegistrations = auto.NewGauge(m.gaugeOpts("unmatched_registrations", "Registration IDs absent from the registry"))
	m.invalidTaxIDs = auto.NewGauge(m.gaugeOpts("invalid_tax_ids", "Distinct tax IDs failing check digit validation"))

	m.aggregatedRows = auto.NewGauge(m.gaugeOpts("aggregated_rows", "Rows in the aggregated output"))
	m.operatorsRanked = auto.NewGauge(m.gaugeOpts("operators_ranked", "Operators in the metrics output"))
	m.highVariability = auto.NewGauge(m.gaugeOpts("high_variability_operators", "Operators above the variation threshold"))
	m.rowsLoaded = auto.NewCounterVec(m.counterOpts("rows_loaded_total", "Rows written to the database sink by table"), []string{"table"})

	m.stageDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "stage_duration_seconds",
		Help:        "Wall time of each pipeline stage",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"stage"})
	m.runDuration = auto.NewGauge(m.gaugeOpts("run_duration_seconds", "Wall time of the last run"))
	m.runStatus = auto.NewGauge(m.gaugeOpts("last_run_success", "1 when the last run succeeded, 0 otherwise"))
	m.lastSuccess = auto.NewGauge(m.gaugeOpts("last_success_timestamp_seconds", "Unix time of the last successful run"))
}

// RecordRecordsRead adds n to the records read counter.
func RecordRecordsRead(n int) {
	if globalManager.enabled {
		globalManager.recordsRead.Add(float64(n))
	}
}

// RecordRecordsAccepted adds n to the accepted records counter.
func RecordRecordsAccepted(n int) {
	if globalManager.enabled {
		globalManager.recordsAccepted.Add(float64(n))
	}
}

// RecordRecordsRejected adds n records dropped for reason.
func RecordRecordsRejected(reason string, n int) {
	if globalManager.enabled && n > 0 {
		globalManager.recordsRejected.WithLabelValues(reason).Add(float64(n))
	}
}

// RecordChunkProcessed increments the chunk counter.
func RecordChunkProcessed() {
	if globalManager.enabled {
		globalManager.chunksProcessed.Inc()
	}
}

// RecordIssues adds n issues of kind.
func RecordIssues(kind string, n int) {
	if globalManager.enabled && n > 0 {
		globalManager.issues.WithLabelValues(kind).Add(float64(n))
	}
}

// RecordFlag adds n records carrying flag.
func RecordFlag(flag string, n int) {
	if globalManager.enabled && n > 0 {
		globalManager.flags.WithLabelValues(flag).Add(float64(n))
	}
}

// UpdateConflicts sets the number of conflicting tax IDs.
func UpdateConflicts(n int) {
	if globalManager.enabled {
		globalManager.conflicts.Set(float64(n))
	}
}

// UpdateUnmatchedRegistrations sets the number of unmatched registration IDs.
func UpdateUnmatchedRegistrations(n int) {
	if globalManager.enabled {
		globalManager.unmatchedRegistrations.Set(float64(n))
	}
}

// UpdateInvalidTaxIDs sets the number of distinct invalid tax IDs.
func UpdateInvalidTaxIDs(n int) {
	if globalManager.enabled {
		globalManager.invalidTaxIDs.Set(float64(n))
	}
}

// UpdateAggregatedRows sets the aggregated row count.
func UpdateAggregatedRows(n int) {
	if globalManager.enabled {
		globalManager.aggregatedRows.Set(float64(n))
	}
}

// UpdateOperatorsRanked sets the ranked operator count and how many are highly variable.
func UpdateOperatorsRanked(n, high int) {
	if globalManager.enabled {
		globalManager.operatorsRanked.Set(float64(n))
		globalManager.highVariability.Set(float64(high))
	}
}

// RecordRowsLoaded adds n rows written to table.
func RecordRowsLoaded(table string, n int) {
	if globalManager.enabled {
		globalManager.rowsLoaded.WithLabelValues(table).Add(float64(n))
	}
}

// RecordStageDuration observes the duration of stage.
func RecordStageDuration(stage string, d time.Duration) {
	if globalManager.enabled {
		globalManager.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
	}
}

// RecordRun records the outcome of a run.
func RecordRun(success bool, d time.Duration, at time.Time) {
	if !globalManager.enabled {
		return
	}
	globalManager.runDuration.Set(d.Seconds())
	if success {
		globalManager.runStatus.Set(1)
		globalManager.lastSuccess.Set(float64(at.Unix()))
		return
	}
	globalManager.runStatus.Set(0)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// WriteTextfile writes every metric in text exposition format for the node exporter
// textfile collector. The file is written atomically.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, customRegistry); err != nil {
		return fmt.Errorf("%w: textfile %s: %w", ErrExportFailed, path, err)
	}
	return nil
}

// Push sends every metric to a Pushgateway under job, replacing earlier pushes.
func Push(ctx context.Context, url, job string) error {
	if err := push.New(url, job).Gatherer(customRegistry).PushContext(ctx); err != nil {
		return fmt.Errorf("%w: push %s: %w", ErrExportFailed, url, err)
	}
	return nil
}
