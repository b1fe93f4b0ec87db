package domain

// Severity is the display class of an infection level.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// ClassifySeverity buckets a level: <0.3 low, <0.7 medium, otherwise high.
func ClassifySeverity(level float64) Severity {
	switch {
	case level < 0.3:
		return SeverityLow
	case level < 0.7:
		return SeverityMedium
	default:
		return SeverityHigh
	}
}

// CountBySeverity tallies points per severity class.
func CountBySeverity(points []InfectionPoint) map[Severity]int {
	counts := map[Severity]int{
		SeverityLow:    0,
		SeverityMedium: 0,
		SeverityHigh:   0,
	}
	for _, p := range points {
		counts[ClassifySeverity(p.Level)]++
	}
	return counts
}
