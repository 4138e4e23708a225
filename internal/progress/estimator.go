// Package progress computes synthetic progress for running tasks: a
// believable, monotonically increasing percentage derived from historical
// execution durations, shown before a real result is known. The functions
// here are pure; the observer loop driving a task owns the accumulated
// value and advances it once per tick until a terminal signal arrives.
package progress

import "time"

// Default estimation parameters. The ceiling is reserved as an asymptotic
// limit: only confirmed completion snaps the displayed value to 100.
const (
	DefaultTickInterval    = 2 * time.Second
	DefaultMinIncrement    = 1.0
	DefaultMaxIncrement    = 10.0
	DefaultCeiling         = 95.0
	DefaultTotalDuration   = 30 * time.Second
	CompletedProgressValue = 100
)

// Config holds the tunable parameters of the estimator.
type Config struct {
	// TickInterval is how often the observer loop advances progress.
	TickInterval time.Duration

	// MinIncrement guarantees visible motion on very long estimates.
	MinIncrement float64

	// MaxIncrement prevents absurd jumps on very short estimates.
	MaxIncrement float64

	// Ceiling is the highest value synthetic progress may reach.
	Ceiling float64

	// DefaultTotal substitutes for unknown or non-positive duration
	// estimates so the increment is never computed from a zero divisor.
	DefaultTotal time.Duration
}

// DefaultConfig returns the standard estimation parameters: a 2 second
// tick, increments clamped to [1%, 10%], a 95% ceiling, and a 30 second
// fallback estimate.
func DefaultConfig() Config {
	return Config{
		TickInterval: DefaultTickInterval,
		MinIncrement: DefaultMinIncrement,
		MaxIncrement: DefaultMaxIncrement,
		Ceiling:      DefaultCeiling,
		DefaultTotal: DefaultTotalDuration,
	}
}

// normalized fills zero-valued fields with defaults so a partially
// configured Config still produces sane increments.
func (c Config) normalized() Config {
	if c.TickInterval <= 0 {
		c.TickInterval = DefaultTickInterval
	}
	if c.MinIncrement <= 0 {
		c.MinIncrement = DefaultMinIncrement
	}
	if c.MaxIncrement <= 0 {
		c.MaxIncrement = DefaultMaxIncrement
	}
	if c.Ceiling <= 0 {
		c.Ceiling = DefaultCeiling
	}
	if c.DefaultTotal <= 0 {
		c.DefaultTotal = DefaultTotalDuration
	}
	return c
}

// IncrementPerTick returns the percentage points to add each tick for a
// task expected to run for estimatedTotal:
//
//	clamp(ceiling / (estimatedTotal / tick), min, max)
//
// A non-positive estimatedTotal falls back to the configured default total.
func (c Config) IncrementPerTick(estimatedTotal time.Duration) float64 {
	cfg := c.normalized()

	if estimatedTotal <= 0 {
		estimatedTotal = cfg.DefaultTotal
	}

	ticks := estimatedTotal.Seconds() / cfg.TickInterval.Seconds()
	if ticks < 1 {
		ticks = 1
	}

	increment := cfg.Ceiling / ticks
	if increment < cfg.MinIncrement {
		return cfg.MinIncrement
	}
	if increment > cfg.MaxIncrement {
		return cfg.MaxIncrement
	}
	return increment
}

// Advance returns the synthetic progress after one tick, never exceeding
// the ceiling. The caller keeps the running value between ticks.
func (c Config) Advance(current, increment float64) float64 {
	cfg := c.normalized()

	next := current + increment
	if next > cfg.Ceiling {
		return cfg.Ceiling
	}
	return next
}
