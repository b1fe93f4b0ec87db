package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/couchcryptid/infection-analytics-service/internal/analytics"
	"github.com/couchcryptid/infection-analytics-service/internal/domain"
	"github.com/couchcryptid/infection-analytics-service/internal/playback"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Analytics is the facade surface served over HTTP.
type Analytics interface {
	Statistics() analytics.Statistics
	Snapshot() analytics.View
	PlaybackStatus() playback.Status
	Play() error
	Pause()
	Reset() error
	Seek(index int) error
	SetPredictionDisplayed(displayed bool)
	ExportJSON() ([]byte, string, error)
}

// RefreshRequester schedules an out-of-band data refresh.
type RefreshRequester interface {
	Days() int
	RequestRefresh(days int) int
}

// Server exposes health, readiness, metrics and the analytics API.
type Server struct {
	httpServer *http.Server
	api        Analytics
	refresher  RefreshRequester
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and /api/v1 routes.
// A nil refresher disables POST /api/v1/refresh.
func NewServer(addr string, ready sharedobs.ReadinessChecker, api Analytics, refresher RefreshRequester, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		api:       api,
		refresher: refresher,
		logger:    logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/v1/statistics", s.handleStatistics)
	mux.HandleFunc("GET /api/v1/snapshot", s.handleSnapshot)
	mux.HandleFunc("GET /api/v1/playback", s.handlePlaybackStatus)
	mux.HandleFunc("POST /api/v1/playback/play", s.handlePlay)
	mux.HandleFunc("POST /api/v1/playback/pause", s.handlePause)
	mux.HandleFunc("POST /api/v1/playback/reset", s.handleReset)
	mux.HandleFunc("POST /api/v1/playback/seek", s.handleSeek)
	mux.HandleFunc("PUT /api/v1/display", s.handleDisplay)
	mux.HandleFunc("GET /api/v1/export", s.handleExport)
	if refresher != nil {
		mux.HandleFunc("POST /api/v1/refresh", s.handleRefresh)
	}

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleStatistics(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, s.api.Statistics())
}

func (s *Server) handleSnapshot(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, s.api.Snapshot())
}

func (s *Server) handlePlaybackStatus(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, s.api.PlaybackStatus())
}

func (s *Server) handlePlay(w http.ResponseWriter, _ *http.Request) {
	s.playbackResult(w, s.api.Play())
}

func (s *Server) handlePause(w http.ResponseWriter, _ *http.Request) {
	s.api.Pause()
	s.playbackResult(w, nil)
}

func (s *Server) handleReset(w http.ResponseWriter, _ *http.Request) {
	s.playbackResult(w, s.api.Reset())
}

func (s *Server) handleSeek(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.URL.Query().Get("index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "index must be an integer")
		return
	}
	s.playbackResult(w, s.api.Seek(index))
}

func (s *Server) playbackResult(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		sharedobs.WriteJSON(w, http.StatusOK, s.api.PlaybackStatus())
	case errors.Is(err, domain.ErrNoSeriesLoaded):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrIndexOutOfRange):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("playback control failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) handleDisplay(w http.ResponseWriter, r *http.Request) {
	displayed, err := strconv.ParseBool(r.URL.Query().Get("prediction"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "prediction must be a boolean")
		return
	}
	s.api.SetPredictionDisplayed(displayed)
	sharedobs.WriteJSON(w, http.StatusOK, map[string]bool{"prediction_displayed": displayed})
}

func (s *Server) handleExport(w http.ResponseWriter, _ *http.Request) {
	data, filename, err := s.api.ExportJSON()
	if err != nil {
		s.logger.Error("export failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.logger.Warn("write export", "error", err)
	}
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	days := s.refresher.Days()
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "days must be an integer")
			return
		}
		days = n
	}
	days = s.refresher.RequestRefresh(days)
	sharedobs.WriteJSON(w, http.StatusAccepted, map[string]int{"days": days})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": msg})
}
