package config

import (
	"time"

	"github.com/fableforge/fable-api/internal/domain"
)

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database"`
	LLM      LLMConfig      `mapstructure:"llm"      validate:"required"`
	Task     TaskConfig     `mapstructure:"task"     validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains the optional task-archive database settings.
// An empty URL disables archiving of terminal tasks.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"omitempty,url"`
}

// LLMConfig contains all LLM integration related settings.
type LLMConfig struct {
	GeminiAPIKey      string `mapstructure:"gemini_api_key" validate:"required"`
	ModelName         string `mapstructure:"model_name"     validate:"required"`
	MaxRetries        int    `mapstructure:"max_retries"    validate:"gte=0,lte=10"`
	RetryDelaySeconds int    `mapstructure:"retry_delay_seconds" validate:"gte=0,lte=60"`
}

// TaskConfig contains the orchestration and estimation settings.
type TaskConfig struct {
	WorkerCount int `mapstructure:"worker_count" validate:"required,gt=0,lte=32"`
	QueueSize   int `mapstructure:"queue_size"   validate:"required,gt=0"`

	// Progress estimation surface.
	TickIntervalSeconds float64 `mapstructure:"tick_interval_seconds" validate:"required,gt=0"`
	MinIncrement        float64 `mapstructure:"min_increment"         validate:"required,gt=0,lte=100"`
	MaxIncrement        float64 `mapstructure:"max_increment"         validate:"required,gt=0,lte=100"`
	ProgressCeiling     float64 `mapstructure:"progress_ceiling"      validate:"required,gt=0,lt=100"`

	// Metric retention and estimation fallbacks.
	RetentionCap            int                `mapstructure:"retention_cap"             validate:"required,gt=0"`
	DefaultDurationSeconds  float64            `mapstructure:"default_duration_seconds"  validate:"required,gt=0"`
	KindDurationDefaults    map[string]float64 `mapstructure:"kind_duration_defaults"`
	SummaryCacheTTLSeconds  float64            `mapstructure:"summary_cache_ttl_seconds" validate:"gte=0"`
}

// TickInterval returns the estimator tick as a duration.
func (c TaskConfig) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalSeconds * float64(time.Second))
}

// DefaultDuration returns the fallback estimate as a duration.
func (c TaskConfig) DefaultDuration() time.Duration {
	return time.Duration(c.DefaultDurationSeconds * float64(time.Second))
}

// SummaryCacheTTL returns the bulk-summary cache TTL as a duration.
func (c TaskConfig) SummaryCacheTTL() time.Duration {
	return time.Duration(c.SummaryCacheTTLSeconds * float64(time.Second))
}

// KindDefaults converts the configured per-kind fallback durations to the
// closed kind set. Unknown kind names are reported, not silently kept.
func (c TaskConfig) KindDefaults() (map[domain.TaskKind]time.Duration, []string) {
	if len(c.KindDurationDefaults) == 0 {
		return nil, nil
	}

	defaults := make(map[domain.TaskKind]time.Duration, len(c.KindDurationDefaults))
	var unknown []string
	for name, seconds := range c.KindDurationDefaults {
		kind := domain.TaskKind(name)
		if !kind.Valid() {
			unknown = append(unknown, name)
			continue
		}
		defaults[kind] = time.Duration(seconds * float64(time.Second))
	}
	return defaults, unknown
}
