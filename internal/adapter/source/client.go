// Package source fetches observations, trends, predictions and model metadata
// from the infection data API.
package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/couchcryptid/infection-analytics-service/internal/domain"
)

// Client implements analytics.DataSource over the data API's JSON endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a data API client rooted at baseURL.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// FetchObservations returns every recorded infection point.
func (c *Client) FetchObservations(ctx context.Context) ([]domain.InfectionPoint, error) {
	var records []observation
	if err := c.doJSON(ctx, http.MethodGet, "/api/infection_data", nil, &records); err != nil {
		return nil, fmt.Errorf("fetch observations: %w", err)
	}
	points := make([]domain.InfectionPoint, len(records))
	for i, r := range records {
		points[i] = domain.InfectionPoint{Lat: r.Lat, Lng: r.Lng, Level: r.Level, Date: r.Date}
	}
	c.logger.Debug("observations fetched", "points", len(points))
	return points, nil
}

// FetchTrend returns the per-date aggregation of observations.
func (c *Client) FetchTrend(ctx context.Context) (domain.TrendSeries, error) {
	var series domain.TrendSeries
	if err := c.doJSON(ctx, http.MethodGet, "/api/trend_data", nil, &series); err != nil {
		return nil, fmt.Errorf("fetch trend: %w", err)
	}
	return series, nil
}

// FetchPrediction asks the spread model for a prediction days ahead.
func (c *Client) FetchPrediction(ctx context.Context, days int) (domain.PredictionSeries, error) {
	var series domain.PredictionSeries
	if err := c.doJSON(ctx, http.MethodPost, "/api/predict", predictRequest{Days: days}, &series); err != nil {
		return domain.PredictionSeries{}, fmt.Errorf("fetch prediction (%d days): %w", days, err)
	}
	c.logger.Debug("prediction fetched", "days", days, "timeframes", len(series.Timeframes))
	return series, nil
}

// FetchModelMetadata returns the classification models known to the API.
func (c *Client) FetchModelMetadata(ctx context.Context) ([]domain.ModelInfo, error) {
	var models []domain.ModelInfo
	if err := c.doJSON(ctx, http.MethodGet, "/api/model_info", nil, &models); err != nil {
		return nil, fmt.Errorf("fetch model metadata: %w", err)
	}
	return models, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("data API error: %s %s: status %d: %s", method, path, resp.StatusCode, bytes.TrimSpace(msg))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Data API wire types.

type observation struct {
	ID    int64   `json:"id"`
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
	Level float64 `json:"level"`
	Date  string  `json:"date"`
}

type predictRequest struct {
	Days int `json:"days"`
}
