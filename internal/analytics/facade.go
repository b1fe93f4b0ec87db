// Package analytics composes the statistics and playback components over the
// data handed in by the data source, and exposes read-only views for rendering.
package analytics

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/infection-analytics-service/internal/analysis"
	"github.com/couchcryptid/infection-analytics-service/internal/domain"
	"github.com/couchcryptid/infection-analytics-service/internal/observability"
	"github.com/couchcryptid/infection-analytics-service/internal/playback"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// Options tunes the analyses and playback run by a Facade.
type Options struct {
	// SessionID names this facade in logs and published events. A random
	// UUID is used when empty.
	SessionID             string
	ProximityThresholdDeg float64
	PlaybackInterval      time.Duration
}

// Facade owns the current observation set, trend series and prediction for
// one session. All accessors return copies.
type Facade struct {
	id        string
	threshold float64
	listener  Listener
	logger    *slog.Logger
	metrics   *observability.Metrics
	playback  *playback.Controller

	mu           sync.RWMutex
	observations []domain.InfectionPoint
	trend        domain.TrendSeries
	models       []domain.ModelInfo
	prediction   *domain.PredictionSeries
	displayed    bool

	// horizon requested by the Refresh that loaded prediction; 0 when none
	predictionDays int
	stats        Statistics
}

// New creates a Facade with its own playback controller. A nil listener
// discards notifications.
func New(clock clockwork.Clock, opts Options, listener Listener, logger *slog.Logger, metrics *observability.Metrics) *Facade {
	if listener == nil {
		listener = Listeners(nil)
	}
	if opts.ProximityThresholdDeg <= 0 {
		opts.ProximityThresholdDeg = analysis.DefaultProximityThresholdDeg
	}

	id := opts.SessionID
	if id == "" {
		id = uuid.NewString()
	}
	f := &Facade{
		id:        id,
		threshold: opts.ProximityThresholdDeg,
		listener:  listener,
		logger:    logger.With("session_id", id),
		metrics:   metrics,
	}
	f.playback = playback.New(clock, opts.PlaybackInterval, listener.OnTimeframeChanged, f.logger, metrics)
	return f
}

// SessionID identifies this facade instance in logs and published events.
func (f *Facade) SessionID() string {
	return f.id
}

// SetObservations replaces the observation set and recomputes the cluster analysis.
// Points failing validation are dropped.
func (f *Facade) SetObservations(points []domain.InfectionPoint) {
	clean := f.validPoints(points)

	view := SpatialView{LargeInput: len(clean) > analysis.ClusterScalabilityLimit}
	if view.LargeInput {
		f.logger.Warn("cluster analysis input exceeds pair-scan limit",
			"points", len(clean),
			"limit", analysis.ClusterScalabilityLimit,
		)
		f.metrics.LargeClusterInput.Inc()
	}
	pattern, err := analysis.AnalyzeClusters(clean, f.threshold)
	if err != nil {
		view.Error = errorText(err)
		f.recordAnalysisError(KindSpatial, err)
	} else {
		view.Pattern = &pattern
	}

	f.mu.Lock()
	f.observations = clean
	f.stats.Spatial = view
	f.mu.Unlock()

	f.metrics.PointsIngested.WithLabelValues("observations").Set(float64(len(clean)))
	f.metrics.Recomputes.WithLabelValues(string(KindSpatial)).Inc()
	f.listener.OnStatisticsUpdated(KindSpatial, view.clone())
}

// SetTrend replaces the trend series and recomputes its summary.
func (f *Facade) SetTrend(series domain.TrendSeries) {
	owned := make(domain.TrendSeries, len(series))
	copy(owned, series)

	var view TrendView
	summary, err := analysis.SummarizeTrend(owned)
	if err != nil {
		view.Error = errorText(err)
		f.recordAnalysisError(KindTrend, err)
	}
	if err == nil || summary.Records > 0 {
		view.Summary = &summary
	}

	f.mu.Lock()
	f.trend = owned
	f.stats.Trend = view
	f.mu.Unlock()

	f.metrics.Recomputes.WithLabelValues(string(KindTrend)).Inc()
	f.listener.OnStatisticsUpdated(KindTrend, view.clone())
}

// SetPrediction replaces the prediction, restarts playback in the Stopped state
// and computes the before/after comparison once. An invalid series leaves the
// current prediction untouched.
func (f *Facade) SetPrediction(series domain.PredictionSeries) error {
	if err := domain.ValidateSeries(series); err != nil {
		return fmt.Errorf("set prediction: %w", err)
	}
	owned := series.Clone()

	view := ComparisonView{Days: owned.Days()}
	metrics, err := analysis.CompareStates(owned.InitialState, owned.FinalState)
	if err != nil {
		view.Error = errorText(err)
		f.recordAnalysisError(KindComparison, err)
	} else {
		view.Metrics = &metrics
	}

	f.mu.Lock()
	if err := f.playback.Load(owned.Timeframes); err != nil {
		f.mu.Unlock()
		return fmt.Errorf("set prediction: %w", err)
	}
	f.prediction = &owned
	f.stats.Comparison = view
	f.mu.Unlock()

	f.metrics.PointsIngested.WithLabelValues("prediction_final").Set(float64(len(owned.FinalState)))
	f.metrics.Recomputes.WithLabelValues(string(KindComparison)).Inc()
	f.logger.Info("prediction loaded", "days", owned.Days(), "timeframes", len(owned.Timeframes))
	f.listener.OnStatisticsUpdated(KindComparison, view.clone())
	return nil
}

// SetModels replaces the model metadata.
func (f *Facade) SetModels(models []domain.ModelInfo) {
	owned := make([]domain.ModelInfo, len(models))
	copy(owned, models)

	f.mu.Lock()
	f.models = owned
	f.mu.Unlock()
}

// SetPredictionDisplayed records whether the prediction layer is on screen.
// Exports only include prediction points while it is.
func (f *Facade) SetPredictionDisplayed(displayed bool) {
	f.mu.Lock()
	f.displayed = displayed
	f.mu.Unlock()
}

// Statistics returns a copy of the current derived metrics.
func (f *Facade) Statistics() Statistics {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.stats.clone()
}

// Snapshot returns a copy of the full facade state.
func (f *Facade) Snapshot() View {
	f.mu.RLock()
	defer f.mu.RUnlock()

	v := View{
		SessionID:    f.id,
		Observations: domain.ClonePoints(f.observations),
		Trend:        append(domain.TrendSeries{}, f.trend...),
		Models:       append([]domain.ModelInfo{}, f.models...),
		Statistics:   f.stats.clone(),
		Playback:     f.playback.Status(),
	}
	if f.prediction != nil {
		v.Prediction = &PredictionView{
			Days:       f.prediction.Days(),
			Timeframes: len(f.prediction.Timeframes),
			Displayed:  f.displayed,
		}
	}
	return v
}

// Play starts timeframe playback.
func (f *Facade) Play() error { return f.playback.Play() }

// Pause stops timeframe playback at the current frame.
func (f *Facade) Pause() { f.playback.Pause() }

// Reset rewinds playback to the first timeframe.
func (f *Facade) Reset() error { return f.playback.Reset() }

// Seek jumps playback to a timeframe index.
func (f *Facade) Seek(index int) error { return f.playback.Seek(index) }

// PlaybackStatus reports the playback state.
func (f *Facade) PlaybackStatus() playback.Status { return f.playback.Status() }

// Close stops the playback ticker.
func (f *Facade) Close() { f.playback.Close() }

func (f *Facade) validPoints(points []domain.InfectionPoint) []domain.InfectionPoint {
	clean := make([]domain.InfectionPoint, 0, len(points))
	for _, p := range points {
		if err := domain.ValidatePoint(p); err != nil {
			f.logger.Warn("dropping invalid observation", "error", err)
			continue
		}
		clean = append(clean, p)
	}
	return clean
}

func (f *Facade) recordAnalysisError(kind Kind, err error) {
	f.metrics.AnalysisErrors.WithLabelValues(string(kind)).Inc()
	f.logger.Warn("statistics unavailable", "kind", kind, "error", err)
}
