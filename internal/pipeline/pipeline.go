// Package pipeline keeps the analytics facade fed from its data source on a
// fixed schedule, with on-demand refreshes and retry on failure.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/infection-analytics-service/internal/analytics"
	"github.com/couchcryptid/infection-analytics-service/internal/domain"
	"github.com/couchcryptid/infection-analytics-service/internal/observability"
	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/jonboulle/clockwork"
)

// Refresher applies one fetch of every dataset from a source.
type Refresher interface {
	Refresh(ctx context.Context, src analytics.DataSource, days int) error
}

// Pipeline orchestrates the fetch-and-analyze loop.
type Pipeline struct {
	source   analytics.DataSource
	target   Refresher
	clock    clockwork.Clock
	interval time.Duration
	logger   *slog.Logger
	metrics  *observability.Metrics
	ready    atomic.Bool
	days     atomic.Int64
	requests chan struct{}
}

// New creates a Pipeline that refreshes target from src every interval,
// requesting predictions days ahead.
func New(src analytics.DataSource, target Refresher, clock clockwork.Clock, interval time.Duration, days int, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	p := &Pipeline{
		source:   src,
		target:   target,
		clock:    clock,
		interval: interval,
		logger:   logger,
		metrics:  metrics,
		requests: make(chan struct{}, 1),
	}
	p.days.Store(int64(domain.ClampDays(days)))
	return p
}

// CheckReadiness returns nil once a refresh has completed without errors.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no complete data refresh yet")
	}
	return nil
}

// Days returns the prediction horizon used by the next refresh.
func (p *Pipeline) Days() int {
	return int(p.days.Load())
}

// RequestRefresh sets the prediction horizon and schedules an immediate
// refresh. Requests made while one is pending are merged. It returns the
// horizon after clamping to the supported range.
func (p *Pipeline) RequestRefresh(days int) int {
	days = domain.ClampDays(days)
	p.days.Store(int64(days))
	select {
	case p.requests <- struct{}{}:
	default:
	}
	return days
}

// Run refreshes immediately, then on every tick or request until the context
// is cancelled. Failed refreshes are retried with exponential backoff.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "interval", p.interval, "days", p.Days())

	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	// Exponential backoff: start at 200ms, double each retry, cap at 5s.
	const initialBackoff = 200 * time.Millisecond
	const maxBackoff = 5 * time.Second
	backoff := initialBackoff

	for {
		err := p.refreshOnce(ctx)
		if ctx.Err() != nil {
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		}
		if err != nil {
			if !retry.SleepWithContext(ctx, backoff) {
				p.logger.Info("pipeline stopping", "reason", ctx.Err())
				return nil
			}
			backoff = retry.NextBackoff(backoff, maxBackoff)
			continue
		}
		backoff = initialBackoff

		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
		case <-p.requests:
		}
	}
}

func (p *Pipeline) refreshOnce(ctx context.Context) error {
	start := p.clock.Now()
	days := p.Days()
	p.metrics.RefreshTotal.Inc()

	err := p.target.Refresh(ctx, p.source, days)
	p.metrics.RefreshDuration.Observe(p.clock.Since(start).Seconds())
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Error("refresh failed", "days", days, "error", err)
		}
		return err
	}

	p.ready.Store(true)
	p.logger.Debug("refresh complete", "days", days)
	return nil
}
