package snowflake

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/Jeremy-Demlow/acme-intelligence-bot/internal/config"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Service is a thin client for the Cortex Agent :run endpoint. It speaks
// the Snowflake REST API v2 and hands the caller the raw SSE stream.
type Service struct {
	mu     sync.RWMutex
	client *http.Client
	cfg    *config.SnowflakeConfig
	signer *KeyPairSigner
}

// Message is one turn in the agent conversation.
type Message struct {
	Role    string         `json:"role"`
	Content []ContentBlock `json:"content"`
}

// ContentBlock is the typed content wrapper the agent API expects.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// TextMessage builds a single-block text message.
func TextMessage(role, text string) Message {
	return Message{
		Role:    role,
		Content: []ContentBlock{{Type: "text", Text: text}},
	}
}

type runRequest struct {
	Messages []Message `json:"messages"`
}

func NewService() *Service {
	cfg := config.GetSnowflakeConfig()

	if cfg.Account == "" {
		log.Warn().Msg("Snowflake service not configured - SNOWFLAKE_ACCOUNT missing")
		return nil
	}

	svc := &Service{
		mu:     sync.RWMutex{},
		client: &http.Client{},
		cfg:    cfg,
	}

	if cfg.AuthMode == config.AuthModeKeyPair {
		signer, err := NewKeyPairSigner(cfg)
		if err != nil {
			log.Error().Err(err).Msg("Failed to load Snowflake key pair")
			return nil
		}
		svc.signer = signer
	} else if cfg.PAT == "" {
		log.Warn().Msg("Snowflake service not configured - SNOWFLAKE_PAT missing")
		return nil
	}

	return svc
}

// overrideURL lets tests point the client at a local server.
var overrideURL func(agentName string) string

// SetRunURLOverride replaces the agent URL builder and returns a restore
// function. This is primarily used for testing.
func SetRunURLOverride(fn func(agentName string) string) func() {
	previous := overrideURL
	overrideURL = fn
	return func() {
		overrideURL = previous
	}
}

// RunAgent issues the streamed :run request and returns the response body.
// The caller owns the stream and must close it.
func (s *Service) RunAgent(ctx context.Context, agentName string, messages []Message) (io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	body, err := json.Marshal(runRequest{Messages: messages})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := s.cfg.AgentRunURL(agentName)
	if overrideURL != nil {
		url = overrideURL(agentName)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("X-Request-ID", uuid.New().String())

	if err := s.authorize(httpReq); err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to call agent %s: %w", agentName, err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		errBody, readErr := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if readErr == nil && len(errBody) > 0 {
			log.Error().
				Int("status", resp.StatusCode).
				Str("agent", agentName).
				Str("body", string(errBody)).
				Msg("Agent run request rejected")
		}
		return nil, fmt.Errorf("agent API returned status %d", resp.StatusCode)
	}

	log.Debug().
		Str("agent", agentName).
		Int("message_count", len(messages)).
		Dur("first_byte", time.Since(start)).
		Msg("Agent stream opened")

	return resp.Body, nil
}

func (s *Service) authorize(req *http.Request) error {
	if s.signer != nil {
		token, err := s.signer.Token()
		if err != nil {
			return fmt.Errorf("failed to mint key-pair token: %w", err)
		}
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
		req.Header.Set("X-Snowflake-Authorization-Token-Type", "KEYPAIR_JWT")
		return nil
	}

	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", s.cfg.PAT))
	req.Header.Set("X-Snowflake-Authorization-Token-Type", "PROGRAMMATIC_ACCESS_TOKEN")
	return nil
}
