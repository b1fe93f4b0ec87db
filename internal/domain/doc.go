// Package domain models geolocated plant-infection observations and the
// multi-timeframe spread predictions produced by the external simulation.
//
// # Data Source
//
// Observations come from field surveys and from imagery classified upstream.
// Each observation is a WGS-84 point with a normalized severity. The data
// source also serves a date-grouped trend series and, on request, a spread
// prediction for a number of days computed by a cellular-automata model that
// this service treats as opaque.
//
// # Conventions
//
// Coordinates:
//
//	Latitude and longitude are decimal degrees. GeoJSON output uses the
//	[lng, lat] axis order.
//
// Severity:
//
//	Level is a float in [0, 1]. Display classes follow the map legend:
//
//	  <0.3 low | <0.7 medium | ≥0.7 high
//
// Dates:
//
//	Observation and trend dates are "YYYY-MM-DD" strings. Trend series arrive
//	sorted; consumers never re-sort them. See [BuildTrendSeries].
//
// Distances:
//
//	Planar estimates use 111 km per degree, with a cos(latitude) correction
//	for longitude spans. Great-circle figures are reported separately and
//	never substituted for the planar ones.
//
// # Predictions
//
// A [PredictionSeries] holds timeframes with strictly increasing day offsets.
// InitialState matches the day-0 timeframe and FinalState matches the last
// one. [ValidateSeries] enforces the ordering invariant before playback.
package domain
