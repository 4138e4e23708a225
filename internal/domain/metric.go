package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for PerformanceMetric
var (
	ErrEmptyMetricID      = errors.New("metric ID cannot be empty")
	ErrNegativeDuration   = errors.New("metric duration cannot be negative")
	ErrZeroMetricRecorded = errors.New("metric recorded timestamp cannot be zero")
)

// PerformanceMetric records the wall-clock duration of one completed
// generation attempt, success or failure. Metrics are immutable once
// recorded and are deleted only by the retention cap's eviction rule.
type PerformanceMetric struct {
	ID              uuid.UUID      `json:"id"`
	Kind            TaskKind       `json:"kind"`
	DurationSeconds float64        `json:"duration_seconds"`
	Parameters      map[string]any `json:"parameters,omitempty"`
	Success         bool           `json:"success"`
	RecordedAt      time.Time      `json:"recorded_at"`
}

// NewPerformanceMetric creates a metric for one finished attempt of the
// given kind, recorded at the supplied timestamp.
func NewPerformanceMetric(
	kind TaskKind,
	durationSeconds float64,
	parameters map[string]any,
	success bool,
	recordedAt time.Time,
) (*PerformanceMetric, error) {
	metric := &PerformanceMetric{
		ID:              uuid.New(),
		Kind:            kind,
		DurationSeconds: durationSeconds,
		Parameters:      parameters,
		Success:         success,
		RecordedAt:      recordedAt,
	}

	if err := metric.Validate(); err != nil {
		return nil, err
	}

	return metric, nil
}

// Validate checks if the PerformanceMetric has valid data.
func (m *PerformanceMetric) Validate() error {
	if m.ID == uuid.Nil {
		return ErrEmptyMetricID
	}

	if !m.Kind.Valid() {
		return ErrInvalidTaskKind
	}

	if m.DurationSeconds < 0 {
		return ErrNegativeDuration
	}

	if m.RecordedAt.IsZero() {
		return ErrZeroMetricRecorded
	}

	return nil
}

// PerformanceSummary is the derived rolling average for one kind: the mean
// duration over currently retained successful metrics and their count. When
// no successful metrics exist the average falls back to a configured
// default and the count is zero.
type PerformanceSummary struct {
	Kind                   TaskKind `json:"kind"`
	AverageDurationSeconds float64  `json:"average_duration_seconds"`
	SampleCount            int      `json:"sample_count"`
}
