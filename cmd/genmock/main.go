// Command genmock generates a fixture directory for the fixture data source:
// sample observations scattered around a centre point, their trend
// aggregation, a level-growth prediction and model metadata.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -out data/mock \
//	  -lat 3.139 -lng 101.687 \
//	  -count 20 -dates 5 -days 30
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"time"

	"github.com/couchcryptid/infection-analytics-service/internal/adapter/fixture"
	"github.com/couchcryptid/infection-analytics-service/internal/analysis"
	"github.com/couchcryptid/infection-analytics-service/internal/domain"
)

// Points are placed within +/-spreadDeg of the centre (roughly 5 km).
const spreadDeg = 0.05

// growthPerDay is the relative level increase applied per predicted day.
const growthPerDay = 0.005

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output fixture directory")
	lat := flag.Float64("lat", 3.139, "centre latitude")
	lng := flag.Float64("lng", 101.687, "centre longitude")
	count := flag.Int("count", 20, "observations per date")
	dates := flag.Int("dates", 5, "number of consecutive observation dates")
	days := flag.Int("days", 30, "prediction horizon in days")
	start := flag.String("start", "2024-05-01", "first observation date (YYYY-MM-DD)")
	seed := flag.Uint64("seed", 42, "random seed")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}
	if *count < 1 || *dates < 1 {
		return fmt.Errorf("-count and -dates must be positive")
	}
	if *days != domain.ClampDays(*days) {
		return fmt.Errorf("-days must be between %d and %d", domain.MinPredictionDays, domain.MaxPredictionDays)
	}
	startDate, err := time.Parse(domain.DateLayout, *start)
	if err != nil {
		return fmt.Errorf("parse -start: %w", err)
	}

	rng := rand.New(rand.NewPCG(*seed, *seed))
	observations := samplePoints(rng, *lat, *lng, *count, *dates, startDate)
	trend := domain.BuildTrendSeries(observations)
	prediction := predict(observations, *days)

	if err := os.MkdirAll(*out, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	files := []struct {
		name string
		v    any
	}{
		{fixture.ObservationsFile, observations},
		{fixture.TrendFile, trend},
		{fixture.PredictionFile, prediction},
		{fixture.ModelsFile, sampleModels},
	}
	for _, f := range files {
		if err := fixture.Write(*out, f.name, f.v); err != nil {
			return err
		}
		log.Printf("wrote %s", f.name)
	}

	return printStats(observations, trend, prediction)
}

// samplePoints scatters count points per date uniformly around the centre.
func samplePoints(rng *rand.Rand, lat, lng float64, count, dates int, start time.Time) []domain.InfectionPoint {
	points := make([]domain.InfectionPoint, 0, count*dates)
	for d := range dates {
		date := start.AddDate(0, 0, d).Format(domain.DateLayout)
		for range count {
			points = append(points, domain.InfectionPoint{
				Lat:   lat + (rng.Float64()-0.5)*2*spreadDeg,
				Lng:   lng + (rng.Float64()-0.5)*2*spreadDeg,
				Level: rng.Float64(),
				Date:  date,
			})
		}
	}
	return points
}

// predict grows every level by growthPerDay per day, capped at 1, with
// timeframes every days/5 days. No new infection sites are introduced.
func predict(current []domain.InfectionPoint, days int) domain.PredictionSeries {
	initial := make([]domain.InfectionPoint, len(current))
	for i, p := range current {
		initial[i] = domain.InfectionPoint{Lat: p.Lat, Lng: p.Lng, Level: p.Level}
	}

	step := max(1, days/5)
	var timeframes []domain.Timeframe
	for day := 0; day <= days; day += step {
		timeframes = append(timeframes, domain.Timeframe{Day: day, Points: grow(initial, day)})
	}

	return domain.PredictionSeries{
		Timeframes:   timeframes,
		InitialState: initial,
		FinalState:   grow(initial, days),
	}
}

func grow(points []domain.InfectionPoint, day int) []domain.InfectionPoint {
	out := domain.ClonePoints(points)
	for i := range out {
		out[i].Level = min(1.0, out[i].Level*(1+float64(day)*growthPerDay))
	}
	return out
}

var sampleModels = []domain.ModelInfo{
	{
		Name:        "UNet Multispectral",
		Type:        "UNet",
		Description: "UNet architecture for segmentation of multispectral imagery",
		Accuracy:    0.89,
		Active:      true,
		LastUpdated: "2023-05-15",
	},
	{
		Name:        "ANN Classifier",
		Type:        "ANN",
		Description: "Artificial Neural Network for classification of infections",
		Accuracy:    0.92,
		Active:      true,
		LastUpdated: "2023-06-10",
	},
}

func printStats(observations []domain.InfectionPoint, trend domain.TrendSeries, prediction domain.PredictionSeries) error {
	pattern, err := analysis.AnalyzeClusters(observations, analysis.DefaultProximityThresholdDeg)
	if err != nil {
		return fmt.Errorf("analyze clusters: %w", err)
	}
	summary, err := analysis.SummarizeTrend(trend)
	if err != nil {
		return fmt.Errorf("summarize trend: %w", err)
	}
	cmp, err := analysis.CompareStates(prediction.InitialState, prediction.FinalState)
	if err != nil {
		return fmt.Errorf("compare states: %w", err)
	}

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Observations: %d over %d dates\n", len(observations), len(trend))
	fmt.Printf("Centre of mass: %.5f, %.5f\n", pattern.CenterLat, pattern.CenterLng)
	fmt.Printf("Clustering index: %.4f (%s), close pairs %d/%d\n",
		pattern.ClusteringIndex, pattern.Pattern, pattern.ClosePairs, pattern.TotalPairs)
	fmt.Printf("By severity: low=%d, medium=%d, high=%d\n",
		pattern.SeverityCounts[domain.SeverityLow],
		pattern.SeverityCounts[domain.SeverityMedium],
		pattern.SeverityCounts[domain.SeverityHigh])
	fmt.Printf("Trend: %s..%s, count growth %.2f%%, severity change %.2f points\n",
		summary.FirstDate, summary.LastDate, summary.CountGrowthPercent, summary.SeverityChangePercent)
	fmt.Printf("Prediction: %d days, %d timeframes, severity change %.2f%%, area %.2f km2\n",
		prediction.Days(), len(prediction.Timeframes), cmp.SeverityChangePercent, cmp.AreaKm2)
	return nil
}
