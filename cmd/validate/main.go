// Command validate performs integrity checks on a fixture directory before it
// is served by the fixture data source: point ranges, prediction ordering,
// consistency between the trend file and the observations, and model metadata.
//
// Usage:
//
//	go run ./cmd/validate -dir data/mock
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math"
	"os"

	"github.com/couchcryptid/infection-analytics-service/internal/adapter/fixture"
	"github.com/couchcryptid/infection-analytics-service/internal/analysis"
	"github.com/couchcryptid/infection-analytics-service/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	dir := flag.String("dir", "", "fixture directory to validate")
	flag.Parse()

	if *dir == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*dir); code != 0 {
		os.Exit(code)
	}
}

func run(dir string) int {
	ctx := context.Background()
	src := fixture.NewSource(dir)

	fmt.Println("=== Infection Fixture Validation ===")
	fmt.Println()

	observations, err := src.FetchObservations(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load observations: %v\n", err)
		return 1
	}
	trend, err := src.FetchTrend(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load trend: %v\n", err)
		return 1
	}
	prediction, err := src.FetchPrediction(ctx, domain.MaxPredictionDays)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load prediction: %v\n", err)
		return 1
	}
	models, err := src.FetchModelMetadata(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load models: %v\n", err)
		return 1
	}

	// ── Run validation phases ──
	phases := []*phase{
		validateObservations(observations),
		validateTrend(trend, observations),
		validatePrediction(prediction),
		validateModels(models),
	}

	// ── Report results ──
	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d observations, %d trend dates, %d timeframes, %d models\n",
		len(observations), len(trend), len(prediction.Timeframes), len(models))

	// Print detailed errors.
	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func validateObservations(points []domain.InfectionPoint) *phase {
	p := &phase{name: "Observations: ranges and dates"}
	if len(points) == 0 {
		p.errorf("no observations")
		return p
	}
	for i, pt := range points {
		if err := domain.ValidatePoint(pt); err != nil {
			p.errorf("observation %d: %v", i, err)
		}
		if pt.Date == "" {
			p.errorf("observation %d: missing date", i)
		}
	}
	if _, err := analysis.AnalyzeClusters(points, analysis.DefaultProximityThresholdDeg); err != nil {
		p.errorf("cluster analysis: %v", err)
	}
	return p
}

// validateTrend checks the trend against a fresh aggregation of the observations.
func validateTrend(trend domain.TrendSeries, points []domain.InfectionPoint) *phase {
	p := &phase{name: "Trend: matches observations"}
	want := domain.BuildTrendSeries(points)
	if len(trend) != len(want) {
		p.errorf("trend has %d dates, observations span %d", len(trend), len(want))
		return p
	}
	for i := range want {
		got := trend[i]
		if got.Date != want[i].Date {
			p.errorf("record %d: date %s, expected %s", i, got.Date, want[i].Date)
			continue
		}
		if got.Count != want[i].Count {
			p.errorf("%s: count %d, expected %d", got.Date, got.Count, want[i].Count)
		}
		if !floatEq(got.AvgLevel, want[i].AvgLevel) {
			p.errorf("%s: avg_level %g, expected %g", got.Date, got.AvgLevel, want[i].AvgLevel)
		}
	}
	if _, err := analysis.SummarizeTrend(trend); err != nil && !errors.Is(err, domain.ErrDivisionByZero) {
		p.errorf("trend summary: %v", err)
	}
	return p
}

func validatePrediction(s domain.PredictionSeries) *phase {
	p := &phase{name: "Prediction: series ordering and states"}
	if err := domain.ValidateSeries(s); err != nil {
		p.errorf("%v", err)
		return p
	}
	if s.Timeframes[0].Day != 0 {
		p.errorf("first timeframe is day %d, expected 0", s.Timeframes[0].Day)
	}
	for i, pt := range s.InitialState {
		if err := domain.ValidatePoint(pt); err != nil {
			p.errorf("initial_state %d: %v", i, err)
		}
	}
	for i, pt := range s.FinalState {
		if err := domain.ValidatePoint(pt); err != nil {
			p.errorf("final_state %d: %v", i, err)
		}
	}
	if _, err := analysis.CompareStates(s.InitialState, s.FinalState); err != nil {
		p.errorf("comparison: %v", err)
	}
	return p
}

func validateModels(models []domain.ModelInfo) *phase {
	p := &phase{name: "Models: metadata fields"}
	for i, m := range models {
		if m.Name == "" {
			p.errorf("model %d: missing name", i)
		}
		if m.Accuracy < 0 || m.Accuracy > 1 {
			p.errorf("model %q: accuracy %g outside [0, 1]", m.Name, m.Accuracy)
		}
	}
	return p
}

func floatEq(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
