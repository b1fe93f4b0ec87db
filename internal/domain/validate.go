package domain

import (
	"fmt"
	"math"
)

// Prediction horizon accepted by the data source.
const (
	MinPredictionDays = 1
	MaxPredictionDays = 365
)

// ValidatePoint checks that coordinates are finite and within WGS-84 bounds and
// that the severity level is in [0, 1].
func ValidatePoint(p InfectionPoint) error {
	switch {
	case math.IsNaN(p.Lat) || math.IsNaN(p.Lng) || math.IsNaN(p.Level):
		return fmt.Errorf("point (%v, %v): NaN field", p.Lat, p.Lng)
	case p.Lat < -90 || p.Lat > 90:
		return fmt.Errorf("point latitude %v out of range", p.Lat)
	case p.Lng < -180 || p.Lng > 180:
		return fmt.Errorf("point longitude %v out of range", p.Lng)
	case p.Level < 0 || p.Level > 1:
		return fmt.Errorf("point level %v outside [0, 1]", p.Level)
	}
	return nil
}

// ValidateSeries checks that the series has at least one timeframe, that day
// offsets are non-negative and strictly increasing, and that every point is valid.
func ValidateSeries(s PredictionSeries) error {
	if len(s.Timeframes) == 0 {
		return fmt.Errorf("%w: no timeframes", ErrInvalidSeries)
	}
	prev := -1
	for i, tf := range s.Timeframes {
		if tf.Day < 0 {
			return fmt.Errorf("%w: timeframe %d has negative day %d", ErrInvalidSeries, i, tf.Day)
		}
		if tf.Day <= prev {
			return fmt.Errorf("%w: timeframe %d day %d does not follow day %d", ErrInvalidSeries, i, tf.Day, prev)
		}
		prev = tf.Day
		for _, p := range tf.Points {
			if err := ValidatePoint(p); err != nil {
				return fmt.Errorf("%w: timeframe %d: %w", ErrInvalidSeries, i, err)
			}
		}
	}
	return nil
}

// ClampDays bounds a requested prediction horizon to the supported range.
func ClampDays(days int) int {
	if days < MinPredictionDays {
		return MinPredictionDays
	}
	if days > MaxPredictionDays {
		return MaxPredictionDays
	}
	return days
}
