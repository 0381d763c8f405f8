package agent

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/Jeremy-Demlow/acme-intelligence-bot/internal/config"
	"github.com/Jeremy-Demlow/acme-intelligence-bot/internal/infrastructure/snowflake"
	"github.com/rs/zerolog/log"
)

// ErrTimeout is returned when the stream stays open past the configured
// request timeout without a terminal event.
var ErrTimeout = errors.New("agent run timed out")

// Service runs questions against Cortex agents and aggregates the streamed
// response.
type Service struct {
	snowflakeService *snowflake.Service
	runCfg           config.AgentRunConfig
}

// AskRequest is one question plus the conversation context to replay.
type AskRequest struct {
	AgentAlias string
	Question   string
	History    []snowflake.Message
	Progress   ProgressFunc
}

func NewService(snowflakeService *snowflake.Service) (*Service, error) {
	if snowflakeService == nil {
		return nil, fmt.Errorf("snowflake service is required")
	}

	return &Service{
		snowflakeService: snowflakeService,
		runCfg:           config.GetAgentRunConfig(),
	}, nil
}

// Ask sends the question (with prior turns for multi-turn context) to the
// named agent, consumes the event stream and returns the aggregated
// response. The run is bounded by the configured request timeout.
func (s *Service) Ask(ctx context.Context, req AskRequest) (*Response, error) {
	if req.Question == "" {
		return nil, fmt.Errorf("empty question")
	}

	ctx, cancel := context.WithTimeout(ctx, s.runCfg.RequestTimeout)
	defer cancel()

	agentName := config.GetAgentName(req.AgentAlias)
	messages := make([]snowflake.Message, 0, len(req.History)+1)
	messages = append(messages, req.History...)
	messages = append(messages, snowflake.TextMessage("user", req.Question))

	if len(req.History) > 0 {
		log.Info().
			Int("history_turns", len(req.History)).
			Str("agent", agentName).
			Msg("Including previous messages for multi-turn context")
	}

	stream, err := s.snowflakeService.RunAgent(ctx, agentName, messages)
	if err != nil {
		return nil, fmt.Errorf("agent call failed: %w", err)
	}
	defer stream.Close()

	agg := NewAggregator(NewProgressNotifier(req.Progress, s.runCfg.ProgressInterval))
	scanner := NewScanner(stream)

	for {
		ev, err := scanner.Next()
		if err == io.EOF {
			// the stream closing finalizes the response
			break
		}
		if err != nil {
			if ctx.Err() == context.DeadlineExceeded {
				return nil, fmt.Errorf("%w after %s", ErrTimeout, s.runCfg.RequestTimeout)
			}
			return nil, fmt.Errorf("agent stream failed: %w", err)
		}

		agg.Observe(ev)
		if agg.Finalized() {
			break
		}
	}

	resp := agg.Response()
	if resp.Err != nil {
		return nil, fmt.Errorf("agent reported error %s: %s", resp.Err.Code, resp.Err.Message)
	}

	log.Info().
		Str("agent", agentName).
		Int("answer_chars", len(resp.Answer)).
		Strs("tools", resp.ToolsUsed).
		Dur("elapsed", resp.Elapsed).
		Msg("Agent run complete")

	return resp, nil
}
