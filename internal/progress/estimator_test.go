package progress_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fableforge/fable-api/internal/progress"
)

func TestIncrementPerTick(t *testing.T) {
	t.Parallel()

	cfg := progress.DefaultConfig()

	t.Run("unclamped for a 60s estimate", func(t *testing.T) {
		t.Parallel()

		// 95 / (60 / 2) = 3.1666...
		inc := cfg.IncrementPerTick(60 * time.Second)
		assert.InDelta(t, 95.0/30.0, inc, 1e-9)
	})

	t.Run("clamped to ceiling increment for a 2s estimate", func(t *testing.T) {
		t.Parallel()

		// 95 / (2 / 2) = 95, clamped to the 10% max.
		inc := cfg.IncrementPerTick(2 * time.Second)
		assert.Equal(t, 10.0, inc)
	})

	t.Run("clamped to floor increment for a very long estimate", func(t *testing.T) {
		t.Parallel()

		// 95 / (600 / 2) = 0.3166..., clamped to the 1% min.
		inc := cfg.IncrementPerTick(10 * time.Minute)
		assert.Equal(t, 1.0, inc)
	})

	t.Run("zero estimate falls back to default total", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, cfg.IncrementPerTick(progress.DefaultTotalDuration), cfg.IncrementPerTick(0))
	})

	t.Run("negative estimate falls back to default total", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, cfg.IncrementPerTick(progress.DefaultTotalDuration), cfg.IncrementPerTick(-5*time.Second))
	})

	t.Run("zero-valued config uses defaults", func(t *testing.T) {
		t.Parallel()

		var zero progress.Config
		assert.Equal(t, progress.DefaultConfig().IncrementPerTick(60*time.Second), zero.IncrementPerTick(60*time.Second))
	})
}

func TestAdvance(t *testing.T) {
	t.Parallel()

	cfg := progress.DefaultConfig()

	t.Run("adds the increment", func(t *testing.T) {
		t.Parallel()
		assert.InDelta(t, 43.0, cfg.Advance(40, 3), 1e-9)
	})

	t.Run("never exceeds the ceiling", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, 95.0, cfg.Advance(94, 10))
		assert.Equal(t, 95.0, cfg.Advance(95, 10))
	})

	t.Run("is monotonic over many ticks", func(t *testing.T) {
		t.Parallel()

		inc := cfg.IncrementPerTick(60 * time.Second)
		current := 0.0
		previous := 0.0
		for i := 0; i < 100; i++ {
			current = cfg.Advance(current, inc)
			assert.GreaterOrEqual(t, current, previous)
			assert.LessOrEqual(t, current, 95.0)
			previous = current
		}
		assert.Equal(t, 95.0, current)
	})
}
