package config

import "time"

// AgentRunConfig bounds a single agent request and the chat-facing
// progress chatter it produces.
type AgentRunConfig struct {
	// RequestTimeout caps the whole streamed request. If no terminal
	// event arrives before it elapses the run fails with a timeout.
	RequestTimeout time.Duration
	// ProgressInterval is the minimum gap between non-milestone
	// progress updates posted back to the channel.
	ProgressInterval time.Duration
	// HistoryLimit is the number of turns kept per conversation thread.
	HistoryLimit int
	// MaxThreads bounds the number of threads tracked in memory.
	MaxThreads int
	// ThreadTTL expires idle threads.
	ThreadTTL time.Duration
}

// GetAgentRunConfig loads run behavior settings from the environment.
func GetAgentRunConfig() AgentRunConfig {
	return AgentRunConfig{
		RequestTimeout:   parseEnvDuration("AGENT_REQUEST_TIMEOUT", 60*time.Second),
		ProgressInterval: parseEnvDuration("AGENT_PROGRESS_INTERVAL", 5*time.Second),
		HistoryLimit:     parseEnvInt("AGENT_HISTORY_LIMIT", 10),
		MaxThreads:       parseEnvInt("AGENT_MAX_THREADS", 1024),
		ThreadTTL:        parseEnvDuration("AGENT_THREAD_TTL", 24*time.Hour),
	}
}
