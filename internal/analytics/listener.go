package analytics

import (
	"log/slog"

	"github.com/couchcryptid/infection-analytics-service/internal/domain"
)

// Kind names the statistics group carried by an update notification.
type Kind string

const (
	KindComparison Kind = "comparison"
	KindTrend      Kind = "trend"
	KindSpatial    Kind = "spatial"
)

// Listener is the rendering side of the facade. Metrics is one of
// ComparisonView, TrendView or SpatialView, matching kind.
//
// OnTimeframeChanged is called with playback locked; implementations must
// return promptly and must not call playback controls synchronously.
type Listener interface {
	OnTimeframeChanged(index int, frame domain.Timeframe)
	OnStatisticsUpdated(kind Kind, metrics any)
}

// Listeners fans notifications out to every listener in order. Each listener
// receives its own copy of the metrics.
type Listeners []Listener

func (ls Listeners) OnTimeframeChanged(index int, frame domain.Timeframe) {
	for _, l := range ls {
		l.OnTimeframeChanged(index, frame)
	}
}

func (ls Listeners) OnStatisticsUpdated(kind Kind, metrics any) {
	for _, l := range ls {
		l.OnStatisticsUpdated(kind, cloneMetrics(metrics))
	}
}

// LogListener writes notifications to a logger at debug level.
type LogListener struct {
	Logger *slog.Logger
}

func (l LogListener) OnTimeframeChanged(index int, frame domain.Timeframe) {
	l.Logger.Debug("timeframe changed", "index", index, "day", frame.Day, "points", len(frame.Points))
}

func (l LogListener) OnStatisticsUpdated(kind Kind, metrics any) {
	l.Logger.Debug("statistics updated", "kind", kind, "metrics", metrics)
}
