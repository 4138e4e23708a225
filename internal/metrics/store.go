package metrics

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fableforge/fable-api/internal/domain"
	"github.com/fableforge/fable-api/internal/platform/clock"
)

// DefaultRetentionCap is the number of metrics retained per kind.
const DefaultRetentionCap = 50

// Config holds the tunable parameters of the metric store.
type Config struct {
	// RetentionCap bounds how many metrics are kept per kind.
	RetentionCap int

	// DefaultDuration is the estimate reported for a kind with no
	// successful history.
	DefaultDuration time.Duration

	// KindDefaults overrides DefaultDuration for specific kinds.
	KindDefaults map[domain.TaskKind]time.Duration
}

// DefaultConfig returns the standard metric store parameters: 50 retained
// metrics per kind and a 30 second fallback estimate.
func DefaultConfig() Config {
	return Config{
		RetentionCap:    DefaultRetentionCap,
		DefaultDuration: 30 * time.Second,
	}
}

// defaultFor returns the fallback duration for a kind.
func (c Config) defaultFor(kind domain.TaskKind) time.Duration {
	if d, ok := c.KindDefaults[kind]; ok {
		return d
	}
	return c.DefaultDuration
}

// Store is the ledger of completed generation attempts.
type Store interface {
	// Record appends one metric and applies the retention cap atomically.
	Record(kind domain.TaskKind, durationSeconds float64, parameters map[string]any, success bool) error

	// Summary returns the rolling average for one kind.
	Summary(kind domain.TaskKind) domain.PerformanceSummary

	// SummaryAll returns the rolling average for every known kind.
	SummaryAll() map[domain.TaskKind]domain.PerformanceSummary
}

// MemoryStore is the in-memory Store implementation. A single mutex
// serializes writes, so concurrent Record calls for the same kind cannot
// race the eviction rule past the cap.
type MemoryStore struct {
	mu     sync.Mutex
	config Config
	clock  clock.Clock
	byKind map[domain.TaskKind][]*domain.PerformanceMetric
	logger *slog.Logger
}

// NewMemoryStore creates an empty MemoryStore. Zero-valued config fields
// fall back to DefaultConfig values.
func NewMemoryStore(config Config, clk clock.Clock, logger *slog.Logger) *MemoryStore {
	defaults := DefaultConfig()
	if config.RetentionCap <= 0 {
		config.RetentionCap = defaults.RetentionCap
	}
	if config.DefaultDuration <= 0 {
		config.DefaultDuration = defaults.DefaultDuration
	}
	if clk == nil {
		clk = clock.New()
	}

	return &MemoryStore{
		config: config,
		clock:  clk,
		byKind: make(map[domain.TaskKind][]*domain.PerformanceMetric),
		logger: logger.With("component", "metric_store"),
	}
}

// Record appends a metric for the kind, then evicts the oldest entries by
// RecordedAt beyond the retention cap. Ties on RecordedAt evict in
// insertion order. Append and eviction happen under one lock, so a reader
// never observes more than the cap.
func (s *MemoryStore) Record(
	kind domain.TaskKind,
	durationSeconds float64,
	parameters map[string]any,
	success bool,
) error {
	metric, err := domain.NewPerformanceMetric(kind, durationSeconds, parameters, success, s.clock.Now())
	if err != nil {
		return fmt.Errorf("failed to record metric: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	retained := append(s.byKind[kind], metric)
	for len(retained) > s.config.RetentionCap {
		idx := oldestIndex(retained)
		retained = append(retained[:idx], retained[idx+1:]...)
	}
	s.byKind[kind] = retained

	s.logger.Debug("metric recorded",
		"kind", kind,
		"duration_seconds", durationSeconds,
		"success", success,
		"retained", len(retained))
	return nil
}

// oldestIndex returns the index of the entry with the smallest RecordedAt.
// Scanning from the front makes insertion order the tie-break.
func oldestIndex(metrics []*domain.PerformanceMetric) int {
	oldest := 0
	for i, m := range metrics {
		if m.RecordedAt.Before(metrics[oldest].RecordedAt) {
			oldest = i
		}
	}
	return oldest
}

// Summary computes the mean duration and sample count over the currently
// retained successful metrics for the kind. Failed attempts are retained
// but excluded from the average. With no successful samples it reports the
// configured default duration and a count of zero.
func (s *MemoryStore) Summary(kind domain.TaskKind) domain.PerformanceSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summaryLocked(kind)
}

// SummaryAll returns a summary for every kind in the closed set, so
// clients can seed their estimates in bulk.
func (s *MemoryStore) SummaryAll() map[domain.TaskKind]domain.PerformanceSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	summaries := make(map[domain.TaskKind]domain.PerformanceSummary, len(domain.Kinds()))
	for _, kind := range domain.Kinds() {
		summaries[kind] = s.summaryLocked(kind)
	}
	return summaries
}

func (s *MemoryStore) summaryLocked(kind domain.TaskKind) domain.PerformanceSummary {
	var total float64
	var count int
	for _, m := range s.byKind[kind] {
		if m.Success {
			total += m.DurationSeconds
			count++
		}
	}

	if count == 0 {
		return domain.PerformanceSummary{
			Kind:                   kind,
			AverageDurationSeconds: s.config.defaultFor(kind).Seconds(),
			SampleCount:            0,
		}
	}

	return domain.PerformanceSummary{
		Kind:                   kind,
		AverageDurationSeconds: total / float64(count),
		SampleCount:            count,
	}
}

// Metrics returns a snapshot copy of the retained metrics for a kind, in
// insertion order.
func (s *MemoryStore) Metrics(kind domain.TaskKind) []domain.PerformanceMetric {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := make([]domain.PerformanceMetric, 0, len(s.byKind[kind]))
	for _, m := range s.byKind[kind] {
		snapshot = append(snapshot, *m)
	}
	return snapshot
}
