package config

import (
	"time"

	"github.com/rs/zerolog/log"
)

type RateLimitConfig struct {
	Enabled bool
	MaxHits int
	Window  time.Duration
}

// GetRateLimitConfig returns the rate limit settings for a named surface.
func GetRateLimitConfig(key string) RateLimitConfig {
	enabled := GetEnvOrDefault("RATELIMIT_ENABLED", "false") == "true"

	configs := map[string]RateLimitConfig{
		"slack_user": {
			Enabled: enabled,
			MaxHits: parseEnvInt("RATELIMIT_SLACK_USER", 10), // 10 questions per minute per user
			Window:  time.Minute,
		},
		"debug_ws": {
			Enabled: enabled,
			MaxHits: parseEnvInt("RATELIMIT_DEBUG_WS", 30), // 30 questions per minute per connection
			Window:  time.Minute,
		},
	}

	if cfg, exists := configs[key]; exists {
		return cfg
	}

	log.Warn().Str("key", key).Msg("No rate limit config found")
	return RateLimitConfig{Enabled: false}
}
