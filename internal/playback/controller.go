// Package playback steps through the timeframes of a prediction series on a
// fixed interval, with play, pause, reset and seek controls.
package playback

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/infection-analytics-service/internal/domain"
	"github.com/couchcryptid/infection-analytics-service/internal/observability"
	"github.com/jonboulle/clockwork"
)

// DefaultInterval is the time each timeframe stays on screen while playing.
const DefaultInterval = time.Second

// State is the playback lifecycle state.
type State int

const (
	StateIdle State = iota
	StateStopped
	StatePlaying
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStopped:
		return "stopped"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// FrameFunc receives the current timeframe after every index change. It runs
// with the controller locked and must not call back into the controller.
type FrameFunc func(index int, frame domain.Timeframe)

// Status is a point-in-time copy of the playback state.
type Status struct {
	State   string `json:"state"`
	Running bool   `json:"running"`
	Index   int    `json:"index"`
	Frames  int    `json:"frames"`
	Day     int    `json:"day"`
}

// Controller owns the playback state for one prediction series. The timeframe
// slice handed to Load is treated as read-only.
type Controller struct {
	clock    clockwork.Clock
	interval time.Duration
	onFrame  FrameFunc
	logger   *slog.Logger
	metrics  *observability.Metrics

	mu         sync.Mutex
	timeframes []domain.Timeframe
	index      int
	state      State
	ticker     clockwork.Ticker
	stop       chan struct{}
}

// New creates an idle Controller. A non-positive interval falls back to DefaultInterval.
func New(clock clockwork.Clock, interval time.Duration, onFrame FrameFunc, logger *slog.Logger, metrics *observability.Metrics) *Controller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Controller{
		clock:    clock,
		interval: interval,
		onFrame:  onFrame,
		logger:   logger,
		metrics:  metrics,
		state:    StateIdle,
	}
}

// Load replaces the timeframe sequence, cancels any running ticker and moves
// to Stopped at index 0.
func (c *Controller) Load(timeframes []domain.Timeframe) error {
	if err := domain.ValidateSeries(domain.PredictionSeries{Timeframes: timeframes}); err != nil {
		return fmt.Errorf("load playback: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopTickerLocked()
	c.timeframes = timeframes
	c.setStateLocked(StateStopped)
	c.logger.Debug("playback loaded", "frames", len(timeframes))
	c.moveLocked(0)
	return nil
}

// Play starts advancing one frame per interval, wrapping after the last frame.
// It is a no-op while already playing.
func (c *Controller) Play() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateIdle:
		return fmt.Errorf("play: %w", domain.ErrNoSeriesLoaded)
	case StatePlaying:
		return nil
	}

	c.ticker = c.clock.NewTicker(c.interval)
	c.stop = make(chan struct{})
	go c.run(c.ticker, c.stop)

	c.setStateLocked(StatePlaying)
	c.logger.Debug("playback started", "index", c.index, "interval", c.interval)
	return nil
}

// Pause stops the ticker and keeps the current index. Once Pause returns no
// further tick advances the index. It is a no-op unless playing.
func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StatePlaying {
		return
	}
	c.stopTickerLocked()
	c.setStateLocked(StatePaused)
	c.logger.Debug("playback paused", "index", c.index)
}

// Reset stops the ticker and returns to index 0 in the Stopped state.
func (c *Controller) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateIdle {
		return fmt.Errorf("reset: %w", domain.ErrNoSeriesLoaded)
	}
	c.stopTickerLocked()
	c.setStateLocked(StateStopped)
	c.moveLocked(0)
	return nil
}

// Seek jumps to index without changing whether playback is running.
func (c *Controller) Seek(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateIdle {
		return fmt.Errorf("seek: %w", domain.ErrNoSeriesLoaded)
	}
	if index < 0 || index >= len(c.timeframes) {
		return fmt.Errorf("seek: %w", &domain.IndexOutOfRangeError{Index: index, Len: len(c.timeframes)})
	}
	c.moveLocked(index)
	return nil
}

// Close stops the ticker without changing the loaded series.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopTickerLocked()
	if c.state == StatePlaying {
		c.setStateLocked(StatePaused)
	}
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Index returns the current timeframe index.
func (c *Controller) Index() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index
}

// Current returns a copy of the current timeframe, or false when idle.
func (c *Controller) Current() (domain.Timeframe, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateIdle {
		return domain.Timeframe{}, false
	}
	return c.timeframes[c.index].Clone(), true
}

// Status returns a snapshot of the playback state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := Status{
		State:   c.state.String(),
		Running: c.state == StatePlaying,
		Index:   c.index,
		Frames:  len(c.timeframes),
	}
	if c.state != StateIdle {
		st.Day = c.timeframes[c.index].Day
	}
	return st
}

func (c *Controller) run(ticker clockwork.Ticker, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case <-ticker.Chan():
			c.mu.Lock()
			// A tick that raced with Pause/Reset/Load must not advance.
			select {
			case <-stop:
				c.mu.Unlock()
				return
			default:
			}
			c.tickLocked()
			c.mu.Unlock()
		}
	}
}

// tickLocked advances one frame, wrapping to 0 after the last.
func (c *Controller) tickLocked() {
	next := c.index + 1
	if next >= len(c.timeframes) {
		next = 0
	}
	c.metrics.PlaybackTicks.Inc()
	c.moveLocked(next)
}

func (c *Controller) moveLocked(index int) {
	c.index = index
	c.metrics.PlaybackFrameIndex.Set(float64(index))
	if c.onFrame != nil {
		c.onFrame(index, c.timeframes[index].Clone())
	}
}

func (c *Controller) setStateLocked(s State) {
	c.state = s
	c.metrics.PlaybackState.Set(float64(s))
}

func (c *Controller) stopTickerLocked() {
	if c.ticker == nil {
		return
	}
	c.ticker.Stop()
	close(c.stop)
	c.ticker = nil
	c.stop = nil
}
