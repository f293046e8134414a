package analytics

import (
	"context"
	"sync"
	"time"

	"github.com/cbejar93/astroSocial-sub001/internal/logger"
	"github.com/cbejar93/astroSocial-sub001/internal/metrics"
	"go.uber.org/zap"
)

// DefaultSummaryTTL is how long a cached summary stays fresh.
const DefaultSummaryTTL = 5 * time.Minute

// summaryComputer is what the cache needs from the aggregator.
type summaryComputer interface {
	ComputeSummary(ctx context.Context, rangeDays int) (*Summary, error)
}

// flusher is what the cache needs from the event buffer: a pre-read flush so
// just-ingested events land in the rollup.
type flusher interface {
	Flush(ctx context.Context) error
}

type cacheEntry struct {
	summary   *Summary
	expiresAt time.Time
}

// SummaryCache caches computed summaries per range with a TTL. The map is
// the only shared state and is mutated only under the mutex; computation
// happens outside it.
type SummaryCache struct {
	mu      sync.Mutex
	entries map[int]cacheEntry

	aggregator summaryComputer
	buffer     flusher
	ttl        time.Duration
	now        func() time.Time
}

// NewSummaryCache creates a summary cache over the aggregator and buffer.
func NewSummaryCache(aggregator summaryComputer, buffer flusher, ttl time.Duration) *SummaryCache {
	if ttl <= 0 {
		ttl = DefaultSummaryTTL
	}
	return &SummaryCache{
		entries:    make(map[int]cacheEntry),
		aggregator: aggregator,
		buffer:     buffer,
		ttl:        ttl,
		now:        time.Now,
	}
}

// Get returns the summary for rangeDays, computing and caching it when the
// cached copy is missing or expired. Before recomputing it flushes the event
// buffer; if that flush fails, the last cached snapshot is served even when
// stale rather than failing the read.
func (c *SummaryCache) Get(ctx context.Context, rangeDays int) (*Summary, error) {
	if rangeDays <= 0 {
		rangeDays = DefaultRangeDays
	}

	m := metrics.Get()

	c.mu.Lock()
	entry, ok := c.entries[rangeDays]
	c.mu.Unlock()
	if ok && c.now().Before(entry.expiresAt) {
		m.SummaryCacheHits.Inc()
		return entry.summary, nil
	}
	m.SummaryCacheMisses.Inc()

	if err := c.buffer.Flush(ctx); err != nil {
		logger.Log.Warn("Pre-summary flush failed",
			zap.Int("range_days", rangeDays),
			zap.Error(err))
		if ok {
			return entry.summary, nil
		}
		// No snapshot to fall back on; compute from what is persisted. The
		// failed batch stays buffered and lands in a later rollup.
	}

	summary, err := c.aggregator.ComputeSummary(ctx, rangeDays)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[rangeDays] = cacheEntry{summary: summary, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()

	return summary, nil
}

// Invalidate clears all cached ranges. Called after any write that could
// change aggregate results.
func (c *SummaryCache) Invalidate() {
	c.mu.Lock()
	c.entries = make(map[int]cacheEntry)
	c.mu.Unlock()
}

// Warm proactively recomputes and caches the given ranges, bypassing any
// fresh entries so the scheduled warm always reflects current data.
func (c *SummaryCache) Warm(ctx context.Context, ranges []int) {
	for _, rangeDays := range ranges {
		if rangeDays <= 0 {
			rangeDays = DefaultRangeDays
		}
		summary, err := c.aggregator.ComputeSummary(ctx, rangeDays)
		if err != nil {
			logger.Log.Warn("Summary warm failed",
				zap.Int("range_days", rangeDays),
				zap.Error(err))
			continue
		}
		c.mu.Lock()
		c.entries[rangeDays] = cacheEntry{summary: summary, expiresAt: c.now().Add(c.ttl)}
		c.mu.Unlock()
	}
}
