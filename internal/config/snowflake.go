package config

import (
	"fmt"
	"strings"
	"sync"
)

// AuthMode selects how outbound Snowflake API calls are authenticated.
type AuthMode string

const (
	// AuthModePAT uses a programmatic access token as a bearer token.
	AuthModePAT AuthMode = "pat"
	// AuthModeKeyPair mints a short-lived RS256 JWT from an RSA private key.
	AuthModeKeyPair AuthMode = "keypair"
)

// SnowflakeConfig holds everything needed to reach the Cortex Agent API.
type SnowflakeConfig struct {
	Account        string
	User           string
	PAT            string
	PrivateKeyPath string
	AuthMode       AuthMode
	Database       string
	Schema         string
}

var (
	snowflakeMu  sync.RWMutex
	snowflakeCfg *SnowflakeConfig
)

// GetSnowflakeConfig loads the Snowflake configuration from the environment.
// The result is cached for the process lifetime.
func GetSnowflakeConfig() *SnowflakeConfig {
	snowflakeMu.RLock()
	if snowflakeCfg != nil {
		defer snowflakeMu.RUnlock()
		return snowflakeCfg
	}
	snowflakeMu.RUnlock()

	snowflakeMu.Lock()
	defer snowflakeMu.Unlock()

	cfg := &SnowflakeConfig{
		Account:        GetEnvOrDefault("SNOWFLAKE_ACCOUNT", ""),
		User:           GetEnvOrDefault("SNOWFLAKE_USER", ""),
		PAT:            GetEnvOrDefault("SNOWFLAKE_PAT", ""),
		PrivateKeyPath: GetEnvOrDefault("SNOWFLAKE_PRIVATE_KEY_PATH", ""),
		Database:       GetEnvOrDefault("SNOWFLAKE_AGENT_DATABASE", "SNOWFLAKE_INTELLIGENCE"),
		Schema:         GetEnvOrDefault("SNOWFLAKE_AGENT_SCHEMA", "AGENTS"),
	}

	switch strings.ToLower(GetEnvOrDefault("SNOWFLAKE_AUTH_MODE", "pat")) {
	case "keypair":
		cfg.AuthMode = AuthModeKeyPair
	default:
		cfg.AuthMode = AuthModePAT
	}

	snowflakeCfg = cfg
	return snowflakeCfg
}

// SetSnowflakeConfig temporarily replaces the cached configuration and
// returns a function to restore it. This is primarily used for testing.
func SetSnowflakeConfig(cfg *SnowflakeConfig) func() {
	snowflakeMu.Lock()
	previous := snowflakeCfg
	snowflakeCfg = cfg
	snowflakeMu.Unlock()

	return func() {
		snowflakeMu.Lock()
		snowflakeCfg = previous
		snowflakeMu.Unlock()
	}
}

// AgentRunURL builds the :run endpoint URL for a named agent.
func (c *SnowflakeConfig) AgentRunURL(agentName string) string {
	return fmt.Sprintf(
		"https://%s.snowflakecomputing.com/api/v2/databases/%s/schemas/%s/agents/%s:run",
		c.Account, c.Database, c.Schema, agentName,
	)
}
