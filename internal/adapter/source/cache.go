package source

import (
	"context"
	"sync"
	"time"

	"github.com/couchcryptid/infection-analytics-service/internal/analytics"
	"github.com/couchcryptid/infection-analytics-service/internal/domain"
	"github.com/couchcryptid/infection-analytics-service/internal/observability"
	"github.com/jonboulle/clockwork"
)

const modelsKey = "models"

// CachedSource wraps a DataSource with in-memory LRU caches for predictions,
// keyed by horizon, and model metadata. Observations and trends always pass
// through since they change with every upload.
type CachedSource struct {
	inner       analytics.DataSource
	predictions *lruCache[int, domain.PredictionSeries]
	models      *lruCache[string, []domain.ModelInfo]
	metrics     *observability.Metrics
}

// NewCachedSource creates a cache decorator around a data source. Entries
// expire ttl after they were stored.
func NewCachedSource(inner analytics.DataSource, maxEntries int, ttl time.Duration, clock clockwork.Clock, metrics *observability.Metrics) *CachedSource {
	return &CachedSource{
		inner:       inner,
		predictions: newLRUCache[int, domain.PredictionSeries](maxEntries, ttl, clock),
		models:      newLRUCache[string, []domain.ModelInfo](1, ttl, clock),
		metrics:     metrics,
	}
}

func (c *CachedSource) FetchObservations(ctx context.Context) ([]domain.InfectionPoint, error) {
	return c.inner.FetchObservations(ctx)
}

func (c *CachedSource) FetchTrend(ctx context.Context) (domain.TrendSeries, error) {
	return c.inner.FetchTrend(ctx)
}

func (c *CachedSource) FetchPrediction(ctx context.Context, days int) (domain.PredictionSeries, error) {
	if series, ok := c.predictions.get(days); ok {
		c.metrics.SourceCache.WithLabelValues("prediction", "hit").Inc()
		return series.Clone(), nil
	}
	c.metrics.SourceCache.WithLabelValues("prediction", "miss").Inc()

	series, err := c.inner.FetchPrediction(ctx, days)
	if err != nil {
		return series, err
	}
	// Only cache series that playback will accept so a bad response is refetched.
	if domain.ValidateSeries(series) == nil {
		c.predictions.put(days, series.Clone())
	}
	return series, nil
}

func (c *CachedSource) FetchModelMetadata(ctx context.Context) ([]domain.ModelInfo, error) {
	if models, ok := c.models.get(modelsKey); ok {
		c.metrics.SourceCache.WithLabelValues("models", "hit").Inc()
		return append([]domain.ModelInfo(nil), models...), nil
	}
	c.metrics.SourceCache.WithLabelValues("models", "miss").Inc()

	models, err := c.inner.FetchModelMetadata(ctx)
	if err != nil {
		return models, err
	}
	if len(models) > 0 {
		c.models.put(modelsKey, append([]domain.ModelInfo(nil), models...))
	}
	return models, nil
}

// lruCache is a simple thread-safe LRU cache with per-entry expiry.
type lruCache[K comparable, V any] struct {
	maxEntries int
	ttl        time.Duration
	clock      clockwork.Clock
	mu         sync.Mutex
	entries    map[K]*entry[K, V]
	head       *entry[K, V] // most recently used
	tail       *entry[K, V] // least recently used
}

type entry[K comparable, V any] struct {
	key     K
	value   V
	expires time.Time
	prev    *entry[K, V]
	next    *entry[K, V]
}

func newLRUCache[K comparable, V any](maxEntries int, ttl time.Duration, clock clockwork.Clock) *lruCache[K, V] {
	return &lruCache[K, V]{
		maxEntries: maxEntries,
		ttl:        ttl,
		clock:      clock,
		entries:    make(map[K]*entry[K, V]),
	}
}

func (c *lruCache[K, V]) get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	if !c.clock.Now().Before(e.expires) {
		delete(c.entries, key)
		c.remove(e)
		return zero, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache[K, V]) put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expires := c.clock.Now().Add(c.ttl)
	if e, ok := c.entries[key]; ok {
		e.value = value
		e.expires = expires
		c.moveToFront(e)
		return
	}

	e := &entry[K, V]{key: key, value: value, expires: expires}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache[K, V]) moveToFront(e *entry[K, V]) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache[K, V]) addToFront(e *entry[K, V]) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache[K, V]) remove(e *entry[K, V]) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache[K, V]) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
