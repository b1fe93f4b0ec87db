package analysis

import (
	"fmt"
	"math"

	"github.com/couchcryptid/infection-analytics-service/internal/domain"
	"github.com/montanaflynn/stats"
)

const (
	// DefaultProximityThresholdDeg is the pair distance (~5.5 km) under which
	// two points count as close.
	DefaultProximityThresholdDeg = 0.05

	// ClusterScalabilityLimit is the point count above which the quadratic
	// pair scan should be flagged. The scan still runs in full.
	ClusterScalabilityLimit = 2000
)

// Pattern is the qualitative label derived from the clustering index.
type Pattern string

const (
	PatternClustered Pattern = "Clustered"
	PatternMixed     Pattern = "Mixed"
	PatternDispersed Pattern = "Dispersed"
)

// SpatialPattern describes where a point set is centred, how far it spreads
// and how tightly its points group.
type SpatialPattern struct {
	Points                int                     `json:"points"`
	CenterLat             float64                 `json:"center_lat"`
	CenterLng             float64                 `json:"center_lng"`
	MeanDistanceDeg       float64                 `json:"mean_distance_deg"`
	SpreadAreaKm2         float64                 `json:"spread_area_km2"`
	MaxExtentKm           float64                 `json:"max_extent_km"`
	ProximityThresholdDeg float64                 `json:"proximity_threshold_deg"`
	ClosePairs            int                     `json:"close_pairs"`
	TotalPairs            int                     `json:"total_pairs"`
	ClusteringIndex       float64                 `json:"clustering_index"`
	Pattern               Pattern                 `json:"pattern"`
	SeverityCounts        map[domain.Severity]int `json:"severity_counts"`
}

// AnalyzeClusters computes the severity-weighted centre of mass, the mean
// distance of points from it, a circular spread area and the fraction of point
// pairs closer than thresholdDeg.
//
// When every level is zero the centre is (0, 0). A single point has no pairs
// and a clustering index of 0.
func AnalyzeClusters(points []domain.InfectionPoint, thresholdDeg float64) (SpatialPattern, error) {
	n := len(points)
	if n == 0 {
		return SpatialPattern{}, fmt.Errorf("analyze clusters: %w", domain.ErrEmptyInput)
	}

	centerLat, centerLng := centerOfMass(points)

	dists := make(stats.Float64Data, n)
	var maxExtent float64
	for i, p := range points {
		dists[i] = planarDistanceDeg(p.Lat, p.Lng, centerLat, centerLng)
		maxExtent = math.Max(maxExtent, greatCircleKm(p.Lat, p.Lng, centerLat, centerLng))
	}
	meanDist, err := stats.Mean(dists)
	if err != nil {
		return SpatialPattern{}, fmt.Errorf("analyze clusters: %w", domain.ErrEmptyInput)
	}

	closePairs := 0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if planarDistanceDeg(points[i].Lat, points[i].Lng, points[j].Lat, points[j].Lng) < thresholdDeg {
				closePairs++
			}
		}
	}
	pairs := n * (n - 1) / 2

	index := 0.0
	if pairs > 0 {
		index = float64(closePairs) / float64(pairs)
	}

	return SpatialPattern{
		Points:                n,
		CenterLat:             centerLat,
		CenterLng:             centerLng,
		MeanDistanceDeg:       meanDist,
		SpreadAreaKm2:         math.Pi * math.Pow(meanDist*KmPerDegree, 2),
		MaxExtentKm:           maxExtent,
		ProximityThresholdDeg: thresholdDeg,
		ClosePairs:            closePairs,
		TotalPairs:            pairs,
		ClusteringIndex:       index,
		Pattern:               LabelPattern(index),
		SeverityCounts:        domain.CountBySeverity(points),
	}, nil
}

// LabelPattern maps a clustering index to its label, checking thresholds from
// the highest down.
func LabelPattern(index float64) Pattern {
	switch {
	case index > 0.5:
		return PatternClustered
	case index > 0.2:
		return PatternMixed
	default:
		return PatternDispersed
	}
}

func centerOfMass(points []domain.InfectionPoint) (lat, lng float64) {
	var sumLat, sumLng, weight float64
	for _, p := range points {
		sumLat += p.Lat * p.Level
		sumLng += p.Lng * p.Level
		weight += p.Level
	}
	if weight == 0 {
		return 0, 0
	}
	return sumLat / weight, sumLng / weight
}
