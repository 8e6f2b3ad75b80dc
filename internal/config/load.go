package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. TUTOR_LOG_LEVEL.
const EnvPrefix = "TUTOR"

// Load configuration from environment variables and optionally a config file.
// Environment variables take precedence over values from the file. An empty
// path searches for config.yaml in the working directory and silently skips it
// when absent; an explicit path must exist.
// Returns a populated Config struct or an error if loading/validation fails.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks struct tags plus the cross-field rules tags cannot express.
func Validate(cfg *Config) error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if len(cfg.Retention.BandFloors) != len(cfg.Retention.IntervalDays) {
		return fmt.Errorf("invalid configuration: retention.band_floors has %d entries but retention.interval_days has %d",
			len(cfg.Retention.BandFloors), len(cfg.Retention.IntervalDays))
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")

	v.SetDefault("database.driver", "memory")
	v.SetDefault("database.url", "")
	v.SetDefault("database.path", "")

	v.SetDefault("llm.provider", "offline")
	v.SetDefault("llm.gemini_api_key", "")
	v.SetDefault("llm.model", "gemini-2.0-flash")
	v.SetDefault("llm.max_retries", 2)
	v.SetDefault("llm.retry_backoff", "500ms")
	v.SetDefault("llm.requests_per_second", 2.0)
	v.SetDefault("llm.burst", 4)

	v.SetDefault("graph.path", "concepts.yaml")
	v.SetDefault("graph.watch", true)
	v.SetDefault("graph.debounce", "250ms")

	v.SetDefault("retention.threshold", 0.7)
	v.SetDefault("retention.high_urgency_below", 0.5)
	v.SetDefault("retention.base_strength_days", 2.0)
	v.SetDefault("retention.strength_growth", 3.0)
	v.SetDefault("retention.band_floors", []float64{0, 0.4, 0.6, 0.8, 0.9})
	v.SetDefault("retention.interval_days", []int{1, 3, 7, 14, 30})

	v.SetDefault("scheduler.max_revisions", 3)

	v.SetDefault("router.completion_phrases", []string{
		"got it", "i understand", "makes sense now", "that's clear", "done with this", "next topic",
	})
	v.SetDefault("router.topic_shift_min_turns", 5)
	v.SetDefault("router.history_window", 10)
	v.SetDefault("router.content_timeout", "30s")
	v.SetDefault("router.profile_timeout", "10s")
	v.SetDefault("router.note_timeout", "10s")
	v.SetDefault("router.initial_mastery", 0.5)
	v.SetDefault("router.review_gain", 0.1)

	v.SetDefault("metrics.addr", "")

	v.SetDefault("telemetry.exporter", "none")
	v.SetDefault("telemetry.endpoint", "")
	v.SetDefault("telemetry.insecure", false)
	v.SetDefault("telemetry.service_name", "scry-tutor")
	v.SetDefault("telemetry.sample_ratio", 1.0)
}
