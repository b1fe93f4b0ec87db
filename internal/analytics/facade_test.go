package analytics_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/couchcryptid/infection-analytics-service/internal/analytics"
	"github.com/couchcryptid/infection-analytics-service/internal/analysis"
	"github.com/couchcryptid/infection-analytics-service/internal/domain"
	"github.com/couchcryptid/infection-analytics-service/internal/observability"
	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type update struct {
	kind    analytics.Kind
	metrics any
}

type recorder struct {
	mu      sync.Mutex
	frames  []int
	updates []update
}

func (r *recorder) OnTimeframeChanged(index int, _ domain.Timeframe) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, index)
}

func (r *recorder) OnStatisticsUpdated(kind analytics.Kind, metrics any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, update{kind: kind, metrics: metrics})
}

func (r *recorder) kinds() []analytics.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]analytics.Kind, len(r.updates))
	for i, u := range r.updates {
		out[i] = u.kind
	}
	return out
}

func (r *recorder) last() update {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.updates[len(r.updates)-1]
}

func newFacade(t *testing.T) (*analytics.Facade, *recorder, *observability.Metrics) {
	t.Helper()
	rec := &recorder{}
	metrics := observability.NewMetricsForTesting()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := analytics.New(clockwork.NewFakeClock(), analytics.Options{}, rec, logger, metrics)
	t.Cleanup(f.Close)
	return f, rec, metrics
}

func samplePrediction() domain.PredictionSeries {
	initial := []domain.InfectionPoint{
		{Lat: 10, Lng: 20, Level: 0.2},
		{Lat: 10.1, Lng: 20.1, Level: 0.2},
	}
	final := []domain.InfectionPoint{
		{Lat: 10, Lng: 20, Level: 0.4},
		{Lat: 10.1, Lng: 20.1, Level: 0.4},
		{Lat: 10.2, Lng: 20.2, Level: 0.4},
	}
	return domain.PredictionSeries{
		Timeframes: []domain.Timeframe{
			{Day: 0, Points: initial},
			{Day: 15, Points: final[:2]},
			{Day: 30, Points: final},
		},
		InitialState: initial,
		FinalState:   final,
	}
}

func TestFacade_SetObservationsNotifiesSpatial(t *testing.T) {
	f, rec, metrics := newFacade(t)

	f.SetObservations([]domain.InfectionPoint{
		{Lat: 1, Lng: 1, Level: 0.5, Date: "2024-01-01"},
		{Lat: 1.01, Lng: 1.01, Level: 0.5, Date: "2024-01-01"},
		{Lat: 5, Lng: 5, Level: 2}, // invalid level, dropped
	})

	require.Equal(t, []analytics.Kind{analytics.KindSpatial}, rec.kinds())
	view, ok := rec.last().metrics.(analytics.SpatialView)
	require.True(t, ok)
	require.NotNil(t, view.Pattern)
	assert.Empty(t, view.Error)
	assert.Equal(t, 2, view.Pattern.Points)
	assert.Equal(t, analysis.PatternClustered, view.Pattern.Pattern)

	snap := f.Snapshot()
	assert.Len(t, snap.Observations, 2)
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.PointsIngested.WithLabelValues("observations")), 0)
}

func TestFacade_EmptyObservationsCarryError(t *testing.T) {
	f, rec, metrics := newFacade(t)

	f.SetObservations(nil)

	view := rec.last().metrics.(analytics.SpatialView)
	assert.Nil(t, view.Pattern)
	assert.Contains(t, view.Error, domain.ErrEmptyInput.Error())
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.AnalysisErrors.WithLabelValues("spatial")), 0)
}

func TestFacade_SetTrendZeroFirstCountKeepsPartialSummary(t *testing.T) {
	f, rec, _ := newFacade(t)

	f.SetTrend(domain.TrendSeries{
		{Date: "2024-01-01", Count: 0, AvgLevel: 0.2},
		{Date: "2024-01-02", Count: 4, AvgLevel: 0.4},
	})

	view := rec.last().metrics.(analytics.TrendView)
	require.NotNil(t, view.Summary)
	assert.False(t, view.Summary.CountGrowthDefined)
	assert.Equal(t, 4, view.Summary.TotalInfections)
	assert.Contains(t, view.Error, domain.ErrDivisionByZero.Error())
}

func TestFacade_SetPredictionLoadsPlaybackAndComparison(t *testing.T) {
	f, rec, _ := newFacade(t)

	require.NoError(t, f.SetPrediction(samplePrediction()))

	assert.Equal(t, []int{0}, rec.frames)
	view := rec.last().metrics.(analytics.ComparisonView)
	require.NotNil(t, view.Metrics)
	assert.Equal(t, 30, view.Days)
	assert.Equal(t, 1, view.Metrics.GrowthCount)
	assert.InDelta(t, 50.0, view.Metrics.GrowthPercent, 1e-9)
	assert.InDelta(t, 100.0, view.Metrics.SeverityChangePercent, 1e-9)

	st := f.PlaybackStatus()
	assert.Equal(t, "stopped", st.State)
	assert.Equal(t, 3, st.Frames)

	snap := f.Snapshot()
	require.NotNil(t, snap.Prediction)
	assert.Equal(t, analytics.PredictionView{Days: 30, Timeframes: 3}, *snap.Prediction)
}

func TestFacade_InvalidPredictionKeepsPrevious(t *testing.T) {
	f, _, _ := newFacade(t)
	require.NoError(t, f.SetPrediction(samplePrediction()))

	bad := samplePrediction()
	bad.Timeframes[2].Day = 15
	err := f.SetPrediction(bad)
	require.ErrorIs(t, err, domain.ErrInvalidSeries)

	assert.Equal(t, 30, f.Snapshot().Prediction.Days)
}

func TestFacade_PlaybackPassthroughs(t *testing.T) {
	f, rec, _ := newFacade(t)

	require.ErrorIs(t, f.Play(), domain.ErrNoSeriesLoaded)
	require.NoError(t, f.SetPrediction(samplePrediction()))

	require.NoError(t, f.Seek(2))
	err := f.Seek(3)
	var rangeErr *domain.IndexOutOfRangeError
	require.ErrorAs(t, err, &rangeErr)
	assert.Equal(t, 3, rangeErr.Len)

	require.NoError(t, f.Play())
	assert.True(t, f.PlaybackStatus().Running)
	f.Pause()
	assert.Equal(t, "paused", f.PlaybackStatus().State)
	require.NoError(t, f.Reset())

	assert.Equal(t, []int{0, 2, 0}, rec.frames)
}

func TestFacade_SnapshotIsACopy(t *testing.T) {
	f, _, _ := newFacade(t)
	f.SetObservations([]domain.InfectionPoint{{Lat: 1, Lng: 2, Level: 0.3}})

	snap := f.Snapshot()
	snap.Observations[0].Level = 0.9

	assert.InDelta(t, 0.3, f.Snapshot().Observations[0].Level, 0)
}

func TestFacade_StatisticsIsADeepCopy(t *testing.T) {
	f, rec, _ := newFacade(t)
	f.SetObservations([]domain.InfectionPoint{
		{Lat: 1, Lng: 1, Level: 0.8},
		{Lat: 1.01, Lng: 1.01, Level: 0.8},
	})
	f.SetTrend(domain.TrendSeries{{Date: "d1", Count: 10, AvgLevel: 0.2}, {Date: "d2", Count: 15, AvgLevel: 0.3}})
	require.NoError(t, f.SetPrediction(samplePrediction()))

	got := f.Statistics()
	got.Spatial.Pattern.SeverityCounts[domain.SeverityHigh] = 999
	got.Spatial.Pattern.ClusteringIndex = 42
	got.Trend.Summary.TotalInfections = -1
	got.Comparison.Metrics.GrowthCount = -1

	snap := f.Snapshot()
	snap.Statistics.Spatial.Pattern.SeverityCounts[domain.SeverityHigh] = 999

	for _, u := range rec.updates {
		if view, ok := u.metrics.(analytics.SpatialView); ok {
			view.Pattern.SeverityCounts[domain.SeverityHigh] = 999
			view.Pattern.ClusteringIndex = 42
		}
	}

	after := f.Statistics()
	assert.Equal(t, 2, after.Spatial.Pattern.SeverityCounts[domain.SeverityHigh])
	assert.InDelta(t, 1.0, after.Spatial.Pattern.ClusteringIndex, 1e-12)
	assert.Equal(t, 25, after.Trend.Summary.TotalInfections)
	assert.Equal(t, 1, after.Comparison.Metrics.GrowthCount)
}

func TestListeners_EachGetsOwnCopy(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	ls := analytics.Listeners{a, b}
	pattern := &analysis.SpatialPattern{SeverityCounts: map[domain.Severity]int{domain.SeverityLow: 1}}

	ls.OnStatisticsUpdated(analytics.KindSpatial, analytics.SpatialView{Pattern: pattern})

	va := a.last().metrics.(analytics.SpatialView)
	vb := b.last().metrics.(analytics.SpatialView)
	va.Pattern.SeverityCounts[domain.SeverityLow] = 7
	assert.Equal(t, 1, vb.Pattern.SeverityCounts[domain.SeverityLow])
	assert.Equal(t, 1, pattern.SeverityCounts[domain.SeverityLow])
}

func TestFacade_SetObservationsCopiesInput(t *testing.T) {
	f, _, _ := newFacade(t)
	in := []domain.InfectionPoint{{Lat: 1, Lng: 2, Level: 0.3}}
	f.SetObservations(in)

	in[0].Level = 0.9

	assert.InDelta(t, 0.3, f.Snapshot().Observations[0].Level, 0)
}

type exportDoc struct {
	Type     string `json:"type"`
	Features []struct {
		Geometry struct {
			Type        string    `json:"type"`
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties map[string]any `json:"properties"`
	} `json:"features"`
}

func decodeExport(t *testing.T, f *analytics.Facade) exportDoc {
	t.Helper()
	data, name, err := f.ExportJSON()
	require.NoError(t, err)
	assert.Equal(t, "infection_export_2024-03-05.geojson", name)
	var doc exportDoc
	require.NoError(t, json.Unmarshal(data, &doc))
	return doc
}

func TestFacade_ExportObservationsOnly(t *testing.T) {
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)))
	t.Cleanup(func() { domain.SetClock(nil) })

	f, _, _ := newFacade(t)
	f.SetObservations([]domain.InfectionPoint{{Lat: 10, Lng: 20, Level: 0.5, Date: "2024-01-01"}})
	require.NoError(t, f.SetPrediction(samplePrediction()))

	doc := decodeExport(t, f)
	assert.Equal(t, "FeatureCollection", doc.Type)
	require.Len(t, doc.Features, 1)
	assert.Equal(t, "Point", doc.Features[0].Geometry.Type)
	assert.Equal(t, []float64{20, 10}, doc.Features[0].Geometry.Coordinates)
	want := map[string]any{"level": 0.5, "date": "2024-01-01"}
	if diff := cmp.Diff(want, doc.Features[0].Properties); diff != "" {
		t.Errorf("properties mismatch (-want +got):\n%s", diff)
	}
}

func TestFacade_ExportIncludesDisplayedTimeframe(t *testing.T) {
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)))
	t.Cleanup(func() { domain.SetClock(nil) })

	f, _, _ := newFacade(t)
	f.SetObservations([]domain.InfectionPoint{{Lat: 10, Lng: 20, Level: 0.5, Date: "2024-01-01"}})
	require.NoError(t, f.SetPrediction(samplePrediction()))
	f.SetPredictionDisplayed(true)
	require.NoError(t, f.Seek(1))

	doc := decodeExport(t, f)
	require.Len(t, doc.Features, 3)
	for _, feat := range doc.Features[1:] {
		assert.Equal(t, true, feat.Properties["predicted"])
		assert.InDelta(t, 15, feat.Properties["day"], 0)
		assert.NotContains(t, feat.Properties, "date")
	}
}

type stubSource struct {
	points     []domain.InfectionPoint
	trend      domain.TrendSeries
	prediction domain.PredictionSeries
	models     []domain.ModelInfo
	trendErr   error
	predErr    error
	gotDays    int
	predCalls  int
}

func (s *stubSource) FetchObservations(context.Context) ([]domain.InfectionPoint, error) {
	return s.points, nil
}

func (s *stubSource) FetchTrend(context.Context) (domain.TrendSeries, error) {
	return s.trend, s.trendErr
}

func (s *stubSource) FetchPrediction(_ context.Context, days int) (domain.PredictionSeries, error) {
	s.gotDays = days
	s.predCalls++
	return s.prediction, s.predErr
}

func (s *stubSource) FetchModelMetadata(context.Context) ([]domain.ModelInfo, error) {
	return s.models, nil
}

func TestFacade_RefreshAppliesAllDatasets(t *testing.T) {
	f, rec, _ := newFacade(t)
	src := &stubSource{
		points:     []domain.InfectionPoint{{Lat: 1, Lng: 1, Level: 0.5}},
		trend:      domain.TrendSeries{{Date: "2024-01-01", Count: 2, AvgLevel: 0.5}},
		prediction: samplePrediction(),
		models:     []domain.ModelInfo{{Name: "RandomForest", Accuracy: 0.9, Active: true}},
	}

	require.NoError(t, f.Refresh(context.Background(), src, 500))

	assert.Equal(t, domain.MaxPredictionDays, src.gotDays)
	assert.Equal(t, []analytics.Kind{analytics.KindSpatial, analytics.KindTrend, analytics.KindComparison}, rec.kinds())
	snap := f.Snapshot()
	assert.Len(t, snap.Models, 1)
	assert.Len(t, snap.Trend, 1)
}

func TestFacade_RefreshForwardsSourceErrors(t *testing.T) {
	f, rec, metrics := newFacade(t)
	errTrend := errors.New("trend backend down")
	errPred := errors.New("model timeout")
	src := &stubSource{
		points:   []domain.InfectionPoint{{Lat: 1, Lng: 1, Level: 0.5}},
		trendErr: errTrend,
		predErr:  errPred,
	}

	err := f.Refresh(context.Background(), src, 30)
	require.Error(t, err)
	assert.ErrorIs(t, err, errTrend)
	assert.ErrorIs(t, err, errPred)

	assert.Equal(t, []analytics.Kind{analytics.KindSpatial}, rec.kinds())
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.RefreshErrors.WithLabelValues("trend")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.RefreshErrors.WithLabelValues("prediction")), 0)
}

func TestFacade_RefreshKeepsPlaybackPosition(t *testing.T) {
	f, _, _ := newFacade(t)
	src := &stubSource{
		points:     []domain.InfectionPoint{{Lat: 1, Lng: 1, Level: 0.5}},
		trend:      domain.TrendSeries{{Date: "2024-01-01", Count: 2, AvgLevel: 0.5}},
		prediction: samplePrediction(),
	}
	ctx := context.Background()

	require.NoError(t, f.Refresh(ctx, src, 30))
	require.NoError(t, f.Play())
	require.NoError(t, f.Seek(2))
	before := f.PlaybackStatus()

	require.NoError(t, f.Refresh(ctx, src, 30))

	assert.Equal(t, before, f.PlaybackStatus())
	assert.Equal(t, "playing", f.PlaybackStatus().State)
	assert.Equal(t, 2, f.PlaybackStatus().Index)
	assert.Equal(t, 1, src.predCalls)
}

func TestFacade_RefreshReloadsPredictionOnNewHorizon(t *testing.T) {
	f, _, _ := newFacade(t)
	src := &stubSource{prediction: samplePrediction()}
	ctx := context.Background()

	require.NoError(t, f.Refresh(ctx, src, 30))
	require.NoError(t, f.Seek(2))

	require.NoError(t, f.Refresh(ctx, src, 60))

	assert.Equal(t, 2, src.predCalls)
	assert.Equal(t, 60, src.gotDays)
	assert.Equal(t, "stopped", f.PlaybackStatus().State)
	assert.Equal(t, 0, f.PlaybackStatus().Index)
}

func TestFacade_RefreshRetriesFailedPrediction(t *testing.T) {
	f, _, _ := newFacade(t)
	src := &stubSource{predErr: errors.New("model timeout")}
	ctx := context.Background()

	require.Error(t, f.Refresh(ctx, src, 30))

	src.predErr = nil
	src.prediction = samplePrediction()
	require.NoError(t, f.Refresh(ctx, src, 30))

	assert.Equal(t, 2, src.predCalls)
	assert.Equal(t, "stopped", f.PlaybackStatus().State)
}

func TestFacade_ExportTracksReloadedSeries(t *testing.T) {
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)))
	t.Cleanup(func() { domain.SetClock(nil) })

	f, _, _ := newFacade(t)
	require.NoError(t, f.SetPrediction(samplePrediction()))
	f.SetPredictionDisplayed(true)
	require.NoError(t, f.Seek(2))

	next := samplePrediction()
	next.Timeframes[0].Day = 0
	next.Timeframes[1].Day = 5
	next.Timeframes[2].Day = 10
	require.NoError(t, f.SetPrediction(next))

	doc := decodeExport(t, f)
	require.Len(t, doc.Features, 2)
	for _, feat := range doc.Features {
		assert.InDelta(t, 0, feat.Properties["day"], 0)
	}
}

func TestListeners_FanOut(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	ls := analytics.Listeners{a, b}

	ls.OnTimeframeChanged(4, domain.Timeframe{Day: 4})
	ls.OnStatisticsUpdated(analytics.KindTrend, analytics.TrendView{})

	for _, r := range []*recorder{a, b} {
		assert.Equal(t, []int{4}, r.frames)
		assert.Equal(t, []analytics.Kind{analytics.KindTrend}, r.kinds())
	}
}

func TestFacade_SessionID(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := observability.NewMetricsForTesting()

	named := analytics.New(clockwork.NewFakeClock(), analytics.Options{SessionID: "s-1"}, nil, logger, metrics)
	defer named.Close()
	assert.Equal(t, "s-1", named.SessionID())
	assert.Equal(t, "s-1", named.Snapshot().SessionID)

	random := analytics.New(clockwork.NewFakeClock(), analytics.Options{}, nil, logger, metrics)
	defer random.Close()
	assert.Len(t, random.SessionID(), 36)
}
