package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ErrConfiguration wraps all configuration loading and validation failures.
var ErrConfiguration = errors.New("configuration error")

// DefaultBaseInstruction is the fixed system instruction sent on every
// turn. It tells the model to treat the most recent [COMMUNICATION UPDATE]
// block as authoritative, which is what makes the assembly order in the
// turn package load-bearing.
const DefaultBaseInstruction = `You are a professional guide helping citizens renew their driver's licenses. Never use exclamation points. Each response must be directly related to the user's most recent message. Use natural questions to guide the conversation forward.

When you see a [COMMUNICATION UPDATE] block, treat the most recent one as the authoritative description of how to communicate and immediately adjust your communication style to match it. Apply its preferences to all subsequent responses.

Relevant reference material may be provided before the user's message; use it confidently when it applies and acknowledge limitations transparently when it does not.`

// Load reads configuration from defaults, an optional config.yaml in the
// given directory (or the working directory when dir is empty), and
// OBI_* environment variables, then validates the result.
func Load(dir string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if dir != "" {
		v.AddConfigPath(dir)
	} else {
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("OBI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: failed to read config file: %v", ErrConfiguration, err)
		}
		// Missing config file is fine; defaults plus env vars apply.
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrConfiguration, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("gemini.primary_model", "gemini-2.0-flash")
	v.SetDefault("gemini.fallback_model", "gemini-2.0-flash-lite")
	v.SetDefault("gemini.temperature", 0.7)
	v.SetDefault("gemini.max_output_tokens", 1024)
	v.SetDefault("gemini.timeout", 2*time.Minute)
	v.SetDefault("gemini.base_instruction", DefaultBaseInstruction)

	v.SetDefault("database.path", "obi.db")
	v.SetDefault("profiles.path", "profiles.yaml")

	v.SetDefault("retrieval.documents_path", "")
	v.SetDefault("retrieval.snippet_limit", 3)

	v.SetDefault("session.backend", "memory")
	v.SetDefault("session.redis_addr", "")
	v.SetDefault("session.ttl", 24*time.Hour)
	v.SetDefault("session.default_intensity", 75)

	v.SetDefault("scheduler.tasks.sql_maintenance.enabled", true)
	v.SetDefault("scheduler.tasks.sql_maintenance.schedule", "0 0 4 * * *")
	v.SetDefault("scheduler.tasks.session_sweep.enabled", true)
	v.SetDefault("scheduler.tasks.session_sweep.schedule", "0 */30 * * * *")
}
