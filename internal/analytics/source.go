package analytics

import (
	"context"

	"github.com/couchcryptid/infection-analytics-service/internal/domain"
)

// DataSource supplies observations, trends, predictions and model metadata.
// Errors are opaque to the facade and are passed on unchanged.
type DataSource interface {
	FetchObservations(ctx context.Context) ([]domain.InfectionPoint, error)
	FetchTrend(ctx context.Context) (domain.TrendSeries, error)
	FetchPrediction(ctx context.Context, days int) (domain.PredictionSeries, error)
	FetchModelMetadata(ctx context.Context) ([]domain.ModelInfo, error)
}
