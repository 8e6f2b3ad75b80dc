package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Database  DatabaseConfig  `mapstructure:"database"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Graph     GraphConfig     `mapstructure:"graph"`
	Retention RetentionConfig `mapstructure:"retention"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Router    RouterConfig    `mapstructure:"router"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig selects and configures the mastery store backend.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver" validate:"required,oneof=memory postgres badger"`
	URL    string `mapstructure:"url"    validate:"required_if=Driver postgres"`
	Path   string `mapstructure:"path"   validate:"required_if=Driver badger"`
}

// LLMConfig contains all LLM integration related settings.
// Provider "offline" runs the in-process generators and needs no API key.
type LLMConfig struct {
	Provider          string        `mapstructure:"provider"            validate:"required,oneof=offline gemini"`
	GeminiAPIKey      string        `mapstructure:"gemini_api_key"      validate:"required_if=Provider gemini"`
	Model             string        `mapstructure:"model"               validate:"required"`
	MaxRetries        int           `mapstructure:"max_retries"         validate:"gte=0,lte=10"`
	RetryBackoff      time.Duration `mapstructure:"retry_backoff"       validate:"gte=0"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" validate:"gte=0"`
	Burst             int           `mapstructure:"burst"               validate:"gte=0"`
}

// GraphConfig points at the concept catalogue.
type GraphConfig struct {
	Path     string        `mapstructure:"path"     validate:"required"`
	Watch    bool          `mapstructure:"watch"`
	Debounce time.Duration `mapstructure:"debounce" validate:"gte=0"`
}

// RetentionConfig holds the forgetting-curve policy.
type RetentionConfig struct {
	Threshold        float64   `mapstructure:"threshold"          validate:"gt=0,lt=1"`
	HighUrgencyBelow float64   `mapstructure:"high_urgency_below" validate:"gt=0,ltefield=Threshold"`
	BaseStrengthDays float64   `mapstructure:"base_strength_days" validate:"gt=0"`
	StrengthGrowth   float64   `mapstructure:"strength_growth"    validate:"gt=0"`
	BandFloors       []float64 `mapstructure:"band_floors"        validate:"required,dive,gte=0,lte=1"`
	IntervalDays     []int     `mapstructure:"interval_days"      validate:"required,dive,gte=1"`
}

// SchedulerConfig holds revision policy.
type SchedulerConfig struct {
	MaxRevisions int `mapstructure:"max_revisions" validate:"gte=1"`
}

// RouterConfig holds turn routing policy.
type RouterConfig struct {
	CompletionPhrases  []string      `mapstructure:"completion_phrases"    validate:"required,dive,required"`
	TopicShiftMinTurns int           `mapstructure:"topic_shift_min_turns" validate:"gte=1"`
	HistoryWindow      int           `mapstructure:"history_window"        validate:"gtefield=TopicShiftMinTurns"`
	ContentTimeout     time.Duration `mapstructure:"content_timeout"       validate:"gt=0"`
	ProfileTimeout     time.Duration `mapstructure:"profile_timeout"       validate:"gt=0"`
	NoteTimeout        time.Duration `mapstructure:"note_timeout"          validate:"gt=0"`
	InitialMastery     float64       `mapstructure:"initial_mastery"       validate:"gte=0,lte=1"`
	ReviewGain         float64       `mapstructure:"review_gain"           validate:"gte=0,lte=1"`
}

// MetricsConfig controls Prometheus exposition. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `mapstructure:"addr" validate:"omitempty,hostname_port"`
}

// TelemetryConfig controls OpenTelemetry tracing of turns.
type TelemetryConfig struct {
	Exporter    string  `mapstructure:"exporter"     validate:"required,oneof=none stdout otlp"`
	Endpoint    string  `mapstructure:"endpoint"     validate:"required_if=Exporter otlp"`
	Insecure    bool    `mapstructure:"insecure"`
	ServiceName string  `mapstructure:"service_name" validate:"required"`
	SampleRatio float64 `mapstructure:"sample_ratio" validate:"gte=0,lte=1"`
}
