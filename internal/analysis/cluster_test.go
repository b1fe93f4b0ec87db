package analysis

import (
	"math"
	"math/rand"
	"testing"

	"github.com/couchcryptid/infection-analytics-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeClusters_TwoClosePoints(t *testing.T) {
	points := []domain.InfectionPoint{
		{Lat: 1.00, Lng: 101.0, Level: 0.5},
		{Lat: 1.03, Lng: 101.0, Level: 0.5},
	}

	p, err := AnalyzeClusters(points, DefaultProximityThresholdDeg)
	require.NoError(t, err)

	assert.Equal(t, 1, p.TotalPairs)
	assert.Equal(t, 1, p.ClosePairs)
	assert.InDelta(t, 1.0, p.ClusteringIndex, 1e-12)
	assert.Equal(t, PatternClustered, p.Pattern)
}

func TestAnalyzeClusters_ThresholdIsStrict(t *testing.T) {
	points := []domain.InfectionPoint{
		{Lat: 0, Lng: 0, Level: 1},
		{Lat: 0, Lng: 0.5, Level: 1},
	}

	p, err := AnalyzeClusters(points, 0.5)
	require.NoError(t, err)
	assert.Zero(t, p.ClosePairs)
	assert.Equal(t, PatternDispersed, p.Pattern)
}

func TestAnalyzeClusters_SinglePoint(t *testing.T) {
	p, err := AnalyzeClusters([]domain.InfectionPoint{{Lat: 2, Lng: 102, Level: 0.7}}, DefaultProximityThresholdDeg)
	require.NoError(t, err)

	assert.Zero(t, p.TotalPairs)
	assert.Zero(t, p.ClusteringIndex)
	assert.False(t, math.IsNaN(p.ClusteringIndex))
	assert.InDelta(t, 2.0, p.CenterLat, 1e-12)
	assert.InDelta(t, 102.0, p.CenterLng, 1e-12)
	assert.Zero(t, p.MeanDistanceDeg)
	assert.Zero(t, p.SpreadAreaKm2)
	assert.Equal(t, 1, p.SeverityCounts[domain.SeverityHigh])
}

func TestAnalyzeClusters_WeightedCenter(t *testing.T) {
	points := []domain.InfectionPoint{
		{Lat: 0, Lng: 0, Level: 0.25},
		{Lat: 2, Lng: 4, Level: 0.75},
	}

	p, err := AnalyzeClusters(points, DefaultProximityThresholdDeg)
	require.NoError(t, err)
	assert.InDelta(t, 1.5, p.CenterLat, 1e-12)
	assert.InDelta(t, 3.0, p.CenterLng, 1e-12)
}

func TestAnalyzeClusters_ZeroWeightCenterDefaultsToOrigin(t *testing.T) {
	points := []domain.InfectionPoint{
		{Lat: 3, Lng: 4, Level: 0},
		{Lat: 3, Lng: 4, Level: 0},
	}

	p, err := AnalyzeClusters(points, DefaultProximityThresholdDeg)
	require.NoError(t, err)
	assert.Zero(t, p.CenterLat)
	assert.Zero(t, p.CenterLng)
	// Both points are 5 degrees from the origin.
	assert.InDelta(t, 5.0, p.MeanDistanceDeg, 1e-12)
	assert.InDelta(t, 1.0, p.ClusteringIndex, 1e-12)
}

func TestAnalyzeClusters_SpreadArea(t *testing.T) {
	points := []domain.InfectionPoint{
		{Lat: 1, Lng: 0, Level: 0.5},
		{Lat: -1, Lng: 0, Level: 0.5},
	}

	p, err := AnalyzeClusters(points, DefaultProximityThresholdDeg)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, p.MeanDistanceDeg, 1e-12)
	assert.InDelta(t, math.Pi*111*111, p.SpreadAreaKm2, 1e-6)
	assert.InDelta(t, 111.19, p.MaxExtentKm, 0.1)
}

func TestAnalyzeClusters_MixedLabel(t *testing.T) {
	// Three points close together and one far away: 3 of 6 pairs are close.
	points := []domain.InfectionPoint{
		{Lat: 0, Lng: 0, Level: 0.5},
		{Lat: 0.01, Lng: 0, Level: 0.5},
		{Lat: 0, Lng: 0.01, Level: 0.5},
		{Lat: 5, Lng: 5, Level: 0.5},
	}

	p, err := AnalyzeClusters(points, DefaultProximityThresholdDeg)
	require.NoError(t, err)
	assert.Equal(t, 6, p.TotalPairs)
	assert.Equal(t, 3, p.ClosePairs)
	assert.InDelta(t, 0.5, p.ClusteringIndex, 1e-12)
	assert.Equal(t, PatternMixed, p.Pattern)
}

func TestAnalyzeClusters_IndexAlwaysInUnitRange(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for n := 1; n <= 60; n++ {
		points := make([]domain.InfectionPoint, n)
		for i := range points {
			points[i] = domain.InfectionPoint{
				Lat:   rng.Float64()*0.2 - 0.1,
				Lng:   100 + rng.Float64()*0.2,
				Level: rng.Float64(),
			}
		}
		p, err := AnalyzeClusters(points, DefaultProximityThresholdDeg)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, p.ClusteringIndex, 0.0)
		assert.LessOrEqual(t, p.ClusteringIndex, 1.0)
	}
}

func TestAnalyzeClusters_Empty(t *testing.T) {
	_, err := AnalyzeClusters(nil, DefaultProximityThresholdDeg)
	assert.ErrorIs(t, err, domain.ErrEmptyInput)
}

func TestLabelPattern(t *testing.T) {
	assert.Equal(t, PatternClustered, LabelPattern(0.51))
	assert.Equal(t, PatternMixed, LabelPattern(0.5))
	assert.Equal(t, PatternMixed, LabelPattern(0.21))
	assert.Equal(t, PatternDispersed, LabelPattern(0.2))
	assert.Equal(t, PatternDispersed, LabelPattern(0))
}
