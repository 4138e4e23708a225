package metrics_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fableforge/fable-api/internal/domain"
	"github.com/fableforge/fable-api/internal/metrics"
	"github.com/fableforge/fable-api/internal/platform/clock"
)

// countingSummarizer records how often the underlying store is consulted.
type countingSummarizer struct {
	calls     int
	summaries map[domain.TaskKind]domain.PerformanceSummary
}

func (c *countingSummarizer) SummaryAll() map[domain.TaskKind]domain.PerformanceSummary {
	c.calls++
	return c.summaries
}

func TestSummaryCache(t *testing.T) {
	t.Parallel()

	source := &countingSummarizer{
		summaries: map[domain.TaskKind]domain.PerformanceSummary{
			domain.KindChapter: {Kind: domain.KindChapter, AverageDurationSeconds: 45, SampleCount: 12},
		},
	}
	mock := clock.NewMock(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
	cache := metrics.NewSummaryCache(source, 5*time.Second, mock, testLogger())

	t.Run("first read populates the cache", func(t *testing.T) {
		got := cache.SummaryAll()
		assert.Equal(t, 45.0, got[domain.KindChapter].AverageDurationSeconds)
		assert.Equal(t, 1, source.calls)
	})

	t.Run("reads within the TTL are served from the snapshot", func(t *testing.T) {
		mock.Advance(3 * time.Second)
		cache.SummaryAll()
		cache.SummaryAll()
		assert.Equal(t, 1, source.calls)
	})

	t.Run("a read after the TTL refreshes", func(t *testing.T) {
		source.summaries[domain.KindChapter] = domain.PerformanceSummary{
			Kind: domain.KindChapter, AverageDurationSeconds: 60, SampleCount: 13,
		}

		mock.Advance(3 * time.Second) // 6s since fetch, past the 5s TTL
		got := cache.SummaryAll()
		assert.Equal(t, 2, source.calls)
		assert.Equal(t, 60.0, got[domain.KindChapter].AverageDurationSeconds)
	})

	t.Run("callers cannot mutate the snapshot", func(t *testing.T) {
		got := cache.SummaryAll()
		got[domain.KindChapter] = domain.PerformanceSummary{Kind: domain.KindChapter}

		again := cache.SummaryAll()
		assert.Equal(t, 60.0, again[domain.KindChapter].AverageDurationSeconds)
	})
}

func TestSummaryCacheDefaults(t *testing.T) {
	t.Parallel()

	source := &countingSummarizer{summaries: map[domain.TaskKind]domain.PerformanceSummary{}}
	cache := metrics.NewSummaryCache(source, 0, nil, testLogger())

	cache.SummaryAll()
	cache.SummaryAll()

	// The default TTL keeps the second immediate read cached.
	assert.Equal(t, 1, source.calls)
}
