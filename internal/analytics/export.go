package analytics

import (
	"fmt"

	"github.com/couchcryptid/infection-analytics-service/internal/domain"
	geojson "github.com/paulmach/go.geojson"
)

// Export builds a GeoJSON FeatureCollection of the observations and, when a
// prediction is loaded and displayed, the points of the current timeframe.
func (f *Facade) Export() *geojson.FeatureCollection {
	f.mu.RLock()
	observations := domain.ClonePoints(f.observations)
	var (
		frame    domain.Timeframe
		hasFrame bool
	)
	if f.prediction != nil && f.displayed {
		// Read under f.mu so the frame belongs to the series checked above.
		frame, hasFrame = f.playback.Current()
	}
	f.mu.RUnlock()

	fc := geojson.NewFeatureCollection()
	for _, p := range observations {
		feature := geojson.NewPointFeature([]float64{p.Lng, p.Lat})
		feature.SetProperty("level", p.Level)
		if p.Date != "" {
			feature.SetProperty("date", p.Date)
		} else {
			feature.SetProperty("date", nil)
		}
		fc.AddFeature(feature)
	}

	if !hasFrame {
		return fc
	}
	for _, p := range frame.Points {
		feature := geojson.NewPointFeature([]float64{p.Lng, p.Lat})
		feature.SetProperty("level", p.Level)
		feature.SetProperty("predicted", true)
		feature.SetProperty("day", frame.Day)
		fc.AddFeature(feature)
	}
	return fc
}

// ExportJSON encodes Export and returns it with the suggested download filename.
func (f *Facade) ExportJSON() ([]byte, string, error) {
	data, err := f.Export().MarshalJSON()
	if err != nil {
		return nil, "", fmt.Errorf("encode export: %w", err)
	}
	return data, domain.ExportFilename(), nil
}
