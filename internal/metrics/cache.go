package metrics

import (
	"log/slog"
	"sync"
	"time"

	"github.com/fableforge/fable-api/internal/domain"
	"github.com/fableforge/fable-api/internal/platform/clock"
)

// DefaultCacheTTL is how long a cached bulk summary stays fresh.
const DefaultCacheTTL = 5 * time.Second

// Summarizer is the read side of the metric store the cache wraps.
type Summarizer interface {
	SummaryAll() map[domain.TaskKind]domain.PerformanceSummary
}

// SummaryCache serves bulk performance summaries from a snapshot with a
// time-to-live. Summaries feed estimates, not correctness-critical values,
// so a slightly stale read is acceptable and saves recomputing the
// averages on every poll.
type SummaryCache struct {
	mu        sync.Mutex
	source    Summarizer
	ttl       time.Duration
	clock     clock.Clock
	snapshot  map[domain.TaskKind]domain.PerformanceSummary
	fetchedAt time.Time
	logger    *slog.Logger
}

// NewSummaryCache wraps source with a TTL cache. A non-positive ttl falls
// back to DefaultCacheTTL.
func NewSummaryCache(source Summarizer, ttl time.Duration, clk clock.Clock, logger *slog.Logger) *SummaryCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if clk == nil {
		clk = clock.New()
	}

	return &SummaryCache{
		source: source,
		ttl:    ttl,
		clock:  clk,
		logger: logger.With("component", "summary_cache"),
	}
}

// SummaryAll returns the cached snapshot, refreshing it from the source
// when the TTL has elapsed.
func (c *SummaryCache) SummaryAll() map[domain.TaskKind]domain.PerformanceSummary {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	if c.snapshot == nil || now.Sub(c.fetchedAt) >= c.ttl {
		c.snapshot = c.source.SummaryAll()
		c.fetchedAt = now
		c.logger.Debug("summary cache refreshed", "kinds", len(c.snapshot))
	}

	// Hand out a copy so callers cannot mutate the cached snapshot.
	out := make(map[domain.TaskKind]domain.PerformanceSummary, len(c.snapshot))
	for kind, summary := range c.snapshot {
		out[kind] = summary
	}
	return out
}
