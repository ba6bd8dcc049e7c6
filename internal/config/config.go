// Package config manages application configuration from default values,
// config.yaml, and OBI_* environment variables.
package config

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// Config defines the application configuration parameters for all
// components: logging, the Gemini model boundary, storage, profiles,
// retrieval, session state, and scheduled maintenance.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Profiles  ProfilesConfig  `mapstructure:"profiles"`
	Retrieval RetrievalConfig `mapstructure:"retrieval"`
	Session   SessionConfig   `mapstructure:"session"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// LogConfig controls structured logging output.
type LogConfig struct {
	Level  string `mapstructure:"level"  validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=json text"`
}

// GeminiConfig configures the model boundary: the API key, the primary
// and fallback model targets, and generation parameters. The fallback
// target is used for exactly one retry when the primary reports overload.
type GeminiConfig struct {
	APIKey          string        `mapstructure:"api_key"          validate:"required"`
	PrimaryModel    string        `mapstructure:"primary_model"    validate:"required"`
	FallbackModel   string        `mapstructure:"fallback_model"   validate:"required"`
	Temperature     float32       `mapstructure:"temperature"      validate:"min=0,max=2"`
	MaxOutputTokens int32         `mapstructure:"max_output_tokens" validate:"min=1"`
	Timeout         time.Duration `mapstructure:"timeout"          validate:"min=1s,max=10m"`
	BaseInstruction string        `mapstructure:"base_instruction" validate:"required"`
}

// DatabaseConfig configures the SQLite message log.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// ProfilesConfig locates the read-only user profile file.
type ProfilesConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// RetrievalConfig configures the document snippet provider.
type RetrievalConfig struct {
	DocumentsPath string `mapstructure:"documents_path"`
	SnippetLimit  int    `mapstructure:"snippet_limit" validate:"min=0,max=20"`
}

// SessionConfig selects the calibration-state backend and the default
// intensity applied when a conversation starts.
type SessionConfig struct {
	Backend          string        `mapstructure:"backend"           validate:"required,oneof=memory redis"`
	RedisAddr        string        `mapstructure:"redis_addr"        validate:"required_if=Backend redis"`
	TTL              time.Duration `mapstructure:"ttl"               validate:"min=0"`
	DefaultIntensity int           `mapstructure:"default_intensity" validate:"min=0,max=100"`
}

// SchedulerConfig holds the scheduled task table, keyed by task name.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks"`
}

// TaskConfig enables a named task on a cron schedule.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

// Validate checks the configuration against its struct tags.
func (c *Config) Validate() error {
	return validator.New().Struct(c)
}
