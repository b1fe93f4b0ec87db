package analysis

import (
	"fmt"

	"github.com/couchcryptid/infection-analytics-service/internal/domain"
)

// TrendSummary compares the first and last records of a trend series.
type TrendSummary struct {
	FirstDate             string  `json:"first_date"`
	LastDate              string  `json:"last_date"`
	Records               int     `json:"records"`
	CountGrowthPercent    float64 `json:"count_growth_percent"`
	CountGrowthDefined    bool    `json:"count_growth_defined"`
	SeverityChangePercent float64 `json:"severity_change_percent"`
	TotalInfections       int     `json:"total_infections"`
}

// SummarizeTrend reports count growth and severity change between the first
// and last records, in the order given. The series is not re-sorted.
//
// When the first record has a zero count the summary is still returned, with
// CountGrowthDefined false, alongside ErrDivisionByZero.
func SummarizeTrend(series domain.TrendSeries) (TrendSummary, error) {
	if len(series) == 0 {
		return TrendSummary{}, fmt.Errorf("summarize trend: %w", domain.ErrEmptyInput)
	}

	first := series[0]
	last := series[len(series)-1]

	total := 0
	for _, r := range series {
		total += r.Count
	}

	summary := TrendSummary{
		FirstDate:             first.Date,
		LastDate:              last.Date,
		Records:               len(series),
		SeverityChangePercent: (last.AvgLevel - first.AvgLevel) * 100,
		TotalInfections:       total,
	}

	if first.Count == 0 {
		return summary, fmt.Errorf("summarize trend: first record %q has zero count: %w", first.Date, domain.ErrDivisionByZero)
	}
	summary.CountGrowthPercent = float64(last.Count-first.Count) / float64(first.Count) * 100
	summary.CountGrowthDefined = true
	return summary, nil
}
