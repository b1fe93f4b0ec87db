package analytics

import (
	"context"
	"errors"

	"github.com/couchcryptid/infection-analytics-service/internal/domain"
)

// Refresh fetches every dataset from src and applies the ones that arrived.
// Fetch failures are returned unchanged, joined when more than one dataset
// failed, and leave the previous data for that dataset in place.
//
// The prediction is only fetched when none has been loaded by Refresh yet or
// when days differs from the horizon of the loaded one, so repeated refreshes
// keep the playback position.
func (f *Facade) Refresh(ctx context.Context, src DataSource, days int) error {
	days = domain.ClampDays(days)
	var errs []error

	if points, err := src.FetchObservations(ctx); err != nil {
		errs = append(errs, f.fetchFailed("observations", err))
	} else {
		f.SetObservations(points)
	}

	if series, err := src.FetchTrend(ctx); err != nil {
		errs = append(errs, f.fetchFailed("trend", err))
	} else {
		f.SetTrend(series)
	}

	if f.needsPrediction(days) {
		if series, err := src.FetchPrediction(ctx, days); err != nil {
			errs = append(errs, f.fetchFailed("prediction", err))
		} else if err := f.SetPrediction(series); err != nil {
			errs = append(errs, f.fetchFailed("prediction", err))
		} else {
			f.mu.Lock()
			f.predictionDays = days
			f.mu.Unlock()
		}
	}

	if models, err := src.FetchModelMetadata(ctx); err != nil {
		errs = append(errs, f.fetchFailed("models", err))
	} else {
		f.SetModels(models)
	}

	return errors.Join(errs...)
}

func (f *Facade) needsPrediction(days int) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.prediction == nil || f.predictionDays != days
}

func (f *Facade) fetchFailed(dataset string, err error) error {
	f.metrics.RefreshErrors.WithLabelValues(dataset).Inc()
	f.logger.Error("data source fetch failed", "dataset", dataset, "error", err)
	return err
}
