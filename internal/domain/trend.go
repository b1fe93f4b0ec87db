package domain

import "sort"

// BuildTrendSeries groups observations by date and reports the count and mean
// level for each date, sorted chronologically. Points without a date are skipped.
func BuildTrendSeries(points []InfectionPoint) TrendSeries {
	type bucket struct {
		count int
		total float64
	}
	byDate := make(map[string]*bucket)
	for _, p := range points {
		if p.Date == "" {
			continue
		}
		b, ok := byDate[p.Date]
		if !ok {
			b = &bucket{}
			byDate[p.Date] = b
		}
		b.count++
		b.total += p.Level
	}

	series := make(TrendSeries, 0, len(byDate))
	for date, b := range byDate {
		series = append(series, TrendRecord{
			Date:     date,
			Count:    b.count,
			AvgLevel: b.total / float64(b.count),
		})
	}
	// ISO dates sort lexically.
	sort.Slice(series, func(i, j int) bool { return series[i].Date < series[j].Date })
	return series
}
