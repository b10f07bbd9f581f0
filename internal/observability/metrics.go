package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// fire aggregation pipeline.
type Metrics struct {
	RowsRead             prometheus.Counter
	RowsRejected         *prometheus.CounterVec // labels: reason
	DetectionsLoaded     prometheus.Gauge
	DetectionsUnassigned prometheus.Gauge
	RegionsLoaded        prometheus.Gauge
	PipelineReady        prometheus.Gauge

	// Snapshot build metrics.
	SnapshotBuildDuration prometheus.Histogram
	SnapshotRefreshes     *prometheus.CounterVec // labels: outcome={success,error}
	SinkPublishes         *prometheus.CounterVec // labels: sink, outcome={success,error}

	// Read path.
	AggregationRequests *prometheus.CounterVec // labels: grouping={date,grid,region,summary,detections}
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.RowsRead,
		m.RowsRejected,
		m.DetectionsLoaded,
		m.DetectionsUnassigned,
		m.RegionsLoaded,
		m.PipelineReady,
		m.SnapshotBuildDuration,
		m.SnapshotRefreshes,
		m.SinkPublishes,
		m.AggregationRequests,
	)

	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RowsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fire_etl",
			Name:      "rows_read_total",
			Help:      "Total detection rows read from the source table.",
		}),
		RowsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fire_etl",
			Name:      "rows_rejected_total",
			Help:      "Detection rows excluded by the loader, by reason.",
		}, []string{"reason"}),
		DetectionsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "fire_etl",
			Name:      "detections_loaded",
			Help:      "Valid detections in the current snapshot.",
		}),
		DetectionsUnassigned: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "fire_etl",
			Name:      "detections_unassigned",
			Help:      "Detections in the current snapshot outside every region.",
		}),
		RegionsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "fire_etl",
			Name:      "regions_loaded",
			Help:      "Region polygons in the current snapshot.",
		}),
		PipelineReady: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "fire_etl",
			Name:      "pipeline_ready",
			Help:      "1 once a snapshot has been built, 0 before.",
		}),
		SnapshotBuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "fire_etl",
			Name:      "snapshot_build_duration_seconds",
			Help:      "Duration of a complete load-classify snapshot build.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		SnapshotRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fire_etl",
			Name:      "snapshot_refreshes_total",
			Help:      "Snapshot refresh attempts by outcome.",
		}, []string{"outcome"}),
		SinkPublishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fire_etl",
			Name:      "sink_publishes_total",
			Help:      "Snapshot publishes to output sinks by sink and outcome.",
		}, []string{"sink", "outcome"}),
		AggregationRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fire_etl",
			Name:      "aggregation_requests_total",
			Help:      "Aggregation requests served, by grouping.",
		}, []string{"grouping"}),
	}
}
