package metrics_test

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fableforge/fable-api/internal/domain"
	"github.com/fableforge/fable-api/internal/metrics"
	"github.com/fableforge/fable-api/internal/platform/clock"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newStore(t *testing.T) (*metrics.MemoryStore, *clock.Mock) {
	t.Helper()
	mock := clock.NewMock(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
	return metrics.NewMemoryStore(metrics.DefaultConfig(), mock, testLogger()), mock
}

func TestMemoryStore_Record(t *testing.T) {
	t.Parallel()

	t.Run("appends metrics", func(t *testing.T) {
		t.Parallel()
		store, mock := newStore(t)

		require.NoError(t, store.Record(domain.KindChapter, 42.0, map[string]any{"word_count": 2000}, true))
		mock.Advance(time.Second)
		require.NoError(t, store.Record(domain.KindChapter, 38.0, nil, false))

		retained := store.Metrics(domain.KindChapter)
		require.Len(t, retained, 2)
		assert.Equal(t, 42.0, retained[0].DurationSeconds)
		assert.True(t, retained[0].Success)
		assert.False(t, retained[1].Success)
		assert.True(t, retained[0].RecordedAt.Before(retained[1].RecordedAt))
	})

	t.Run("rejects unknown kind", func(t *testing.T) {
		t.Parallel()
		store, _ := newStore(t)
		assert.ErrorIs(t, store.Record(domain.TaskKind("limerick"), 5, nil, true), domain.ErrInvalidTaskKind)
	})

	t.Run("rejects negative duration", func(t *testing.T) {
		t.Parallel()
		store, _ := newStore(t)
		assert.ErrorIs(t, store.Record(domain.KindPlot, -0.1, nil, true), domain.ErrNegativeDuration)
	})
}

func TestMemoryStore_RetentionCap(t *testing.T) {
	t.Parallel()

	store, mock := newStore(t)

	// 60 inserts, one second apart, durations 0..59.
	for i := 0; i < 60; i++ {
		require.NoError(t, store.Record(domain.KindOutline, float64(i), nil, true))
		mock.Advance(time.Second)
	}

	retained := store.Metrics(domain.KindOutline)
	require.Len(t, retained, 50)

	// Survivors are the 50 most recent: durations 10..59.
	assert.Equal(t, 10.0, retained[0].DurationSeconds)
	assert.Equal(t, 59.0, retained[49].DurationSeconds)

	summary := store.Summary(domain.KindOutline)
	assert.Equal(t, 50, summary.SampleCount)
	// mean(10..59) = 34.5
	assert.InDelta(t, 34.5, summary.AverageDurationSeconds, 1e-9)
}

func TestMemoryStore_EvictionTieBreak(t *testing.T) {
	t.Parallel()

	// A frozen clock gives every metric the same RecordedAt; ties must
	// evict in insertion order.
	store := metrics.NewMemoryStore(metrics.Config{RetentionCap: 3}, clock.NewMock(time.Unix(1700000000, 0)), testLogger())

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Record(domain.KindBrainstorm, float64(i), nil, true))
	}

	retained := store.Metrics(domain.KindBrainstorm)
	require.Len(t, retained, 3)
	assert.Equal(t, 2.0, retained[0].DurationSeconds)
	assert.Equal(t, 3.0, retained[1].DurationSeconds)
	assert.Equal(t, 4.0, retained[2].DurationSeconds)
}

func TestMemoryStore_Summary(t *testing.T) {
	t.Parallel()

	t.Run("empty kind reports default duration with zero count", func(t *testing.T) {
		t.Parallel()
		store, _ := newStore(t)

		summary := store.Summary(domain.KindChapter)
		assert.Equal(t, domain.KindChapter, summary.Kind)
		assert.Equal(t, 30.0, summary.AverageDurationSeconds)
		assert.Equal(t, 0, summary.SampleCount)
	})

	t.Run("per-kind default overrides the global default", func(t *testing.T) {
		t.Parallel()

		cfg := metrics.DefaultConfig()
		cfg.KindDefaults = map[domain.TaskKind]time.Duration{
			domain.KindChapter: 120 * time.Second,
		}
		store := metrics.NewMemoryStore(cfg, clock.NewMock(time.Unix(1700000000, 0)), testLogger())

		assert.Equal(t, 120.0, store.Summary(domain.KindChapter).AverageDurationSeconds)
		assert.Equal(t, 30.0, store.Summary(domain.KindPlot).AverageDurationSeconds)
	})

	t.Run("failed attempts are excluded from the average", func(t *testing.T) {
		t.Parallel()
		store, mock := newStore(t)

		require.NoError(t, store.Record(domain.KindPlot, 10, nil, true))
		mock.Advance(time.Second)
		require.NoError(t, store.Record(domain.KindPlot, 20, nil, true))
		mock.Advance(time.Second)
		require.NoError(t, store.Record(domain.KindPlot, 500, nil, false))

		summary := store.Summary(domain.KindPlot)
		assert.Equal(t, 2, summary.SampleCount)
		assert.InDelta(t, 15.0, summary.AverageDurationSeconds, 1e-9)
	})

	t.Run("only failures falls back to the default", func(t *testing.T) {
		t.Parallel()
		store, _ := newStore(t)

		require.NoError(t, store.Record(domain.KindScore, 7, nil, false))

		summary := store.Summary(domain.KindScore)
		assert.Equal(t, 0, summary.SampleCount)
		assert.Equal(t, 30.0, summary.AverageDurationSeconds)
	})
}

func TestMemoryStore_SummaryAll(t *testing.T) {
	t.Parallel()

	store, _ := newStore(t)
	require.NoError(t, store.Record(domain.KindBrainstorm, 12, nil, true))

	summaries := store.SummaryAll()
	assert.Len(t, summaries, len(domain.Kinds()))
	assert.Equal(t, 1, summaries[domain.KindBrainstorm].SampleCount)
	assert.Equal(t, 0, summaries[domain.KindChapter].SampleCount)
	assert.Equal(t, 30.0, summaries[domain.KindChapter].AverageDurationSeconds)
}

func TestMemoryStore_ConcurrentRecord(t *testing.T) {
	t.Parallel()

	store, mock := newStore(t)

	// Fill one kind to the cap.
	for i := 0; i < 50; i++ {
		require.NoError(t, store.Record(domain.KindOutline, float64(i), nil, true))
		mock.Advance(time.Second)
	}

	// Hammer the full kind from many goroutines; the cap must hold exactly.
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, store.Record(domain.KindOutline, 1000+float64(i), nil, true))
		}(i)
	}
	wg.Wait()

	retained := store.Metrics(domain.KindOutline)
	require.Len(t, retained, 50)

	// All 20 new inserts survive; the 20 oldest priors were evicted.
	newer := 0
	for _, m := range retained {
		if m.DurationSeconds >= 1000 {
			newer++
		} else {
			// Survivor from the initial fill: must be one of the 30 newest.
			assert.GreaterOrEqual(t, m.DurationSeconds, 20.0)
		}
	}
	assert.Equal(t, 20, newer)
}
