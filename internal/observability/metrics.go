package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the analytics service.
type Metrics struct {
	// Data refresh metrics.
	RefreshTotal    prometheus.Counter
	RefreshErrors   *prometheus.CounterVec // labels: dataset={observations,trend,prediction,models}
	RefreshDuration prometheus.Histogram
	PointsIngested  *prometheus.GaugeVec // labels: dataset={observations,prediction_final}

	// Analysis metrics.
	Recomputes        *prometheus.CounterVec // labels: kind={comparison,trend,spatial}
	AnalysisErrors    *prometheus.CounterVec // labels: kind={comparison,trend,spatial}
	LargeClusterInput prometheus.Counter

	// Playback metrics.
	PlaybackTicks      prometheus.Counter
	PlaybackState      prometheus.Gauge
	PlaybackFrameIndex prometheus.Gauge

	// Event publishing metrics.
	EventsPublished *prometheus.CounterVec // labels: kind={timeframe,comparison,trend,spatial}, outcome={success,error}

	// Data source cache.
	SourceCache *prometheus.CounterVec // labels: method={prediction,models}, result={hit,miss}
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RefreshTotal,
		m.RefreshErrors,
		m.RefreshDuration,
		m.PointsIngested,
		m.Recomputes,
		m.AnalysisErrors,
		m.LargeClusterInput,
		m.PlaybackTicks,
		m.PlaybackState,
		m.PlaybackFrameIndex,
		m.EventsPublished,
		m.SourceCache,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RefreshTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "infection_analytics",
			Name:      "refresh_total",
			Help:      "Total data refresh cycles started.",
		}),
		RefreshErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "infection_analytics",
			Name:      "refresh_errors_total",
			Help:      "Data source failures by dataset.",
		}, []string{"dataset"}),
		RefreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "infection_analytics",
			Name:      "refresh_duration_seconds",
			Help:      "Duration of a complete fetch-and-analyze refresh cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		PointsIngested: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "infection_analytics",
			Name:      "points_ingested",
			Help:      "Number of points in the most recently ingested dataset.",
		}, []string{"dataset"}),
		Recomputes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "infection_analytics",
			Name:      "recomputes_total",
			Help:      "Statistics recomputations by kind.",
		}, []string{"kind"}),
		AnalysisErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "infection_analytics",
			Name:      "analysis_errors_total",
			Help:      "Statistics that could not be computed, by kind.",
		}, []string{"kind"}),
		LargeClusterInput: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "infection_analytics",
			Name:      "large_cluster_input_total",
			Help:      "Cluster analyses run on more points than the pair-scan limit.",
		}),
		PlaybackTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "infection_analytics",
			Name:      "playback_ticks_total",
			Help:      "Timer ticks that advanced the playback frame.",
		}),
		PlaybackState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "infection_analytics",
			Name:      "playback_state",
			Help:      "0 idle, 1 stopped, 2 playing, 3 paused.",
		}),
		PlaybackFrameIndex: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "infection_analytics",
			Name:      "playback_frame_index",
			Help:      "Index of the timeframe currently displayed.",
		}),
		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "infection_analytics",
			Name:      "events_published_total",
			Help:      "Events handed to the Kafka publisher by kind and outcome.",
		}, []string{"kind", "outcome"}),
		SourceCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "infection_analytics",
			Name:      "source_cache_total",
			Help:      "Data source cache lookups by method and result.",
		}, []string{"method", "result"}),
	}
}
