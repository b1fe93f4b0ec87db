package analytics

import (
	"maps"

	"github.com/couchcryptid/infection-analytics-service/internal/analysis"
	"github.com/couchcryptid/infection-analytics-service/internal/domain"
	"github.com/couchcryptid/infection-analytics-service/internal/playback"
)

// ComparisonView is the static before/after summary of the loaded prediction.
type ComparisonView struct {
	Metrics *analysis.ComparisonMetrics `json:"metrics,omitempty"`
	Days    int                         `json:"days"`
	Error   string                      `json:"error,omitempty"`
}

// TrendView carries the trend summary. Summary may be set together with Error
// when only the count growth could not be computed.
type TrendView struct {
	Summary *analysis.TrendSummary `json:"summary,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

// SpatialView carries the cluster analysis of the current observations.
type SpatialView struct {
	Pattern    *analysis.SpatialPattern `json:"pattern,omitempty"`
	LargeInput bool                     `json:"large_input,omitempty"`
	Error      string                   `json:"error,omitempty"`
}

// PredictionView describes the loaded prediction without its point data.
type PredictionView struct {
	Days       int  `json:"days"`
	Timeframes int  `json:"timeframes"`
	Displayed  bool `json:"displayed"`
}

// Statistics groups the derived metrics for rendering.
type Statistics struct {
	Comparison ComparisonView `json:"comparison"`
	Trend      TrendView      `json:"trend"`
	Spatial    SpatialView    `json:"spatial"`
}

// View is a read-only copy of the facade state.
type View struct {
	SessionID    string                  `json:"session_id"`
	Observations []domain.InfectionPoint `json:"observations"`
	Trend        domain.TrendSeries      `json:"trend"`
	Models       []domain.ModelInfo      `json:"models"`
	Prediction   *PredictionView         `json:"prediction,omitempty"`
	Statistics   Statistics              `json:"statistics"`
	Playback     playback.Status         `json:"playback"`
}

func (v ComparisonView) clone() ComparisonView {
	if v.Metrics != nil {
		m := *v.Metrics
		v.Metrics = &m
	}
	return v
}

func (v TrendView) clone() TrendView {
	if v.Summary != nil {
		s := *v.Summary
		v.Summary = &s
	}
	return v
}

func (v SpatialView) clone() SpatialView {
	if v.Pattern != nil {
		p := *v.Pattern
		p.SeverityCounts = maps.Clone(p.SeverityCounts)
		v.Pattern = &p
	}
	return v
}

func (s Statistics) clone() Statistics {
	return Statistics{
		Comparison: s.Comparison.clone(),
		Trend:      s.Trend.clone(),
		Spatial:    s.Spatial.clone(),
	}
}

// cloneMetrics deep-copies a view handed to a listener. Other values are
// returned as is.
func cloneMetrics(metrics any) any {
	switch v := metrics.(type) {
	case ComparisonView:
		return v.clone()
	case TrendView:
		return v.clone()
	case SpatialView:
		return v.clone()
	default:
		return metrics
	}
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
