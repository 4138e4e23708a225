package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load configuration from environment variables and optionally config files.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// Config file is optional; environment variables alone are enough.
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// FABLE_SERVER_PORT overrides server.port, and so on.
	v.SetEnvPrefix("FABLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("llm.model_name", "gemini-2.0-flash")
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.retry_delay_seconds", 2)

	v.SetDefault("task.worker_count", 2)
	v.SetDefault("task.queue_size", 100)
	v.SetDefault("task.tick_interval_seconds", 2.0)
	v.SetDefault("task.min_increment", 1.0)
	v.SetDefault("task.max_increment", 10.0)
	v.SetDefault("task.progress_ceiling", 95.0)
	v.SetDefault("task.retention_cap", 50)
	v.SetDefault("task.default_duration_seconds", 30.0)
	v.SetDefault("task.summary_cache_ttl_seconds", 5.0)
}

// bindEnvKeys registers keys that have no default so AutomaticEnv picks
// them up during Unmarshal.
func bindEnvKeys(v *viper.Viper) {
	for _, key := range []string{"database.url", "llm.gemini_api_key"} {
		// BindEnv only fails on an empty key.
		_ = v.BindEnv(key)
	}
}
