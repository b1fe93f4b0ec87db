package analysis

import (
	"math"

	"github.com/golang/geo/s2"
)

const (
	// KmPerDegree is the planar degree-to-kilometre factor used by every area estimate.
	KmPerDegree = 111.0

	// EarthRadiusKm is the mean Earth radius used for great-circle figures.
	EarthRadiusKm = 6371.0
)

func degToRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// greatCircleKm returns the great-circle distance between two points.
func greatCircleKm(lat1, lng1, lat2, lng2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lng1)
	p2 := s2.LatLngFromDegrees(lat2, lng2)
	return p1.Distance(p2).Radians() * EarthRadiusKm
}

// planarDistanceDeg is the Euclidean distance in degree space.
func planarDistanceDeg(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := lat1 - lat2
	dLng := lng1 - lng2
	return math.Sqrt(dLat*dLat + dLng*dLng)
}
