package analysis

import (
	"fmt"
	"math"

	"github.com/couchcryptid/infection-analytics-service/internal/domain"
	"github.com/montanaflynn/stats"
)

// BoundingBox is the lat/lng extent of a point set.
type BoundingBox struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLng float64 `json:"min_lng"`
	MaxLng float64 `json:"max_lng"`
}

// ComparisonMetrics summarizes the change between an initial and a final state.
type ComparisonMetrics struct {
	InitialCount          int         `json:"initial_count"`
	FinalCount            int         `json:"final_count"`
	GrowthCount           int         `json:"growth_count"`
	GrowthPercent         float64     `json:"growth_percent"`
	InitialAvgSeverity    float64     `json:"initial_avg_severity"`
	FinalAvgSeverity      float64     `json:"final_avg_severity"`
	SeverityChangePercent float64     `json:"severity_change_percent"`
	Bounds                BoundingBox `json:"bounds"`
	AreaKm2               float64     `json:"area_km2"`
	DiagonalKm            float64     `json:"diagonal_km"`
}

// CompareStates computes growth, severity change and the affected area of the
// final state. The area is the bounding box of final, with longitude spans
// scaled by cos of the box's mid latitude.
func CompareStates(initial, final []domain.InfectionPoint) (ComparisonMetrics, error) {
	if len(initial) == 0 {
		return ComparisonMetrics{}, fmt.Errorf("compare states: initial state: %w", domain.ErrEmptyInput)
	}
	if len(final) == 0 {
		return ComparisonMetrics{}, fmt.Errorf("compare states: final state: %w", domain.ErrEmptyInput)
	}

	avgInitial, err := meanLevel(initial)
	if err != nil {
		return ComparisonMetrics{}, fmt.Errorf("compare states: initial severity: %w", err)
	}
	avgFinal, err := meanLevel(final)
	if err != nil {
		return ComparisonMetrics{}, fmt.Errorf("compare states: final severity: %w", err)
	}

	growth := len(final) - len(initial)
	box := boundingBox(final)

	avgLat := (box.MinLat + box.MaxLat) / 2
	latSpanKm := (box.MaxLat - box.MinLat) * KmPerDegree
	lngSpanKm := (box.MaxLng - box.MinLng) * KmPerDegree * math.Cos(degToRad(avgLat))

	return ComparisonMetrics{
		InitialCount:          len(initial),
		FinalCount:            len(final),
		GrowthCount:           growth,
		GrowthPercent:         float64(growth) / float64(len(initial)) * 100,
		InitialAvgSeverity:    avgInitial,
		FinalAvgSeverity:      avgFinal,
		SeverityChangePercent: (avgFinal - avgInitial) * 100,
		Bounds:                box,
		AreaKm2:               latSpanKm * lngSpanKm,
		DiagonalKm:            greatCircleKm(box.MinLat, box.MinLng, box.MaxLat, box.MaxLng),
	}, nil
}

func meanLevel(points []domain.InfectionPoint) (float64, error) {
	levels := make(stats.Float64Data, len(points))
	for i, p := range points {
		levels[i] = p.Level
	}
	m, err := stats.Mean(levels)
	if err != nil {
		return 0, domain.ErrEmptyInput
	}
	return m, nil
}

// boundingBox expects a non-empty slice.
func boundingBox(points []domain.InfectionPoint) BoundingBox {
	box := BoundingBox{
		MinLat: points[0].Lat,
		MaxLat: points[0].Lat,
		MinLng: points[0].Lng,
		MaxLng: points[0].Lng,
	}
	for _, p := range points[1:] {
		box.MinLat = math.Min(box.MinLat, p.Lat)
		box.MaxLat = math.Max(box.MaxLat, p.Lat)
		box.MinLng = math.Min(box.MinLng, p.Lng)
		box.MaxLng = math.Max(box.MaxLng, p.Lng)
	}
	return box
}
