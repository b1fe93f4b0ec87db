// Package fixture serves data source reads from JSON files on disk, as
// written by cmd/genmock.
package fixture

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/couchcryptid/infection-analytics-service/internal/domain"
)

// File names inside a fixture directory.
const (
	ObservationsFile = "observations.json"
	TrendFile        = "trend.json"
	PredictionFile   = "prediction.json"
	ModelsFile       = "models.json"
)

// Source implements analytics.DataSource over a fixture directory. Files are
// re-read on every call so edits show up on the next refresh.
type Source struct {
	dir string
}

// NewSource returns a Source reading from dir.
func NewSource(dir string) *Source {
	return &Source{dir: dir}
}

func (s *Source) FetchObservations(ctx context.Context) ([]domain.InfectionPoint, error) {
	var points []domain.InfectionPoint
	if err := s.read(ctx, ObservationsFile, &points); err != nil {
		return nil, err
	}
	return points, nil
}

// FetchTrend reads trend.json, or derives the trend from the observations
// when the file is absent.
func (s *Source) FetchTrend(ctx context.Context) (domain.TrendSeries, error) {
	var series domain.TrendSeries
	err := s.read(ctx, TrendFile, &series)
	if errors.Is(err, os.ErrNotExist) {
		points, obsErr := s.FetchObservations(ctx)
		if obsErr != nil {
			return nil, obsErr
		}
		return domain.BuildTrendSeries(points), nil
	}
	if err != nil {
		return nil, err
	}
	return series, nil
}

// FetchPrediction reads prediction.json. The stored series has a fixed
// horizon, so timeframes beyond days are dropped and the final state becomes
// the last kept timeframe.
func (s *Source) FetchPrediction(ctx context.Context, days int) (domain.PredictionSeries, error) {
	var series domain.PredictionSeries
	if err := s.read(ctx, PredictionFile, &series); err != nil {
		return domain.PredictionSeries{}, err
	}
	kept := series.Timeframes[:0]
	for _, tf := range series.Timeframes {
		if tf.Day <= days {
			kept = append(kept, tf)
		}
	}
	series.Timeframes = kept
	if len(kept) > 0 {
		series.FinalState = domain.ClonePoints(kept[len(kept)-1].Points)
	}
	return series, nil
}

func (s *Source) FetchModelMetadata(ctx context.Context) ([]domain.ModelInfo, error) {
	var models []domain.ModelInfo
	err := s.read(ctx, ModelsFile, &models)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return models, nil
}

func (s *Source) read(ctx context.Context, name string, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := filepath.Join(s.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read fixture: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode fixture %s: %w", path, err)
	}
	return nil
}

// Write encodes v as indented JSON into dir/name.
func Write(dir, name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
