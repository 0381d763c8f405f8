package bot

import (
	"context"
	"strings"

	"github.com/Jeremy-Demlow/acme-intelligence-bot/internal/config"
	"github.com/Jeremy-Demlow/acme-intelligence-bot/internal/services/agent"
	"github.com/Jeremy-Demlow/acme-intelligence-bot/internal/services/format"
	"github.com/rs/zerolog/log"
	"github.com/slack-go/slack"
)

// quick slash commands cap their in-channel answers shorter than threaded
// conversations do
const maxCommandAnswerLen = 800

func (h *handler) handleSlashCommand(ctx context.Context, cmd slack.SlashCommand) {
	question := strings.TrimSpace(cmd.Text)

	log.Info().
		Str("command", cmd.Command).
		Str("user_id", cmd.UserID).
		Msg("Slash command received")

	switch cmd.Command {
	case "/ask-acme":
		h.handleAskCommand(ctx, cmd, question)
	case "/contracts":
		h.handleQuickCommand(cmd, question, "contracts", "📋 Analyzing contracts...")
	case "/perf":
		h.handleQuickCommand(cmd, question, "perf", "⚡ Analyzing performance...")
	default:
		h.respond(cmd, "Unknown command "+cmd.Command, "ephemeral")
	}
}

// handleAskCommand echoes the question publicly, then answers in the thread
// it creates so follow-ups have somewhere to live.
func (h *handler) handleAskCommand(ctx context.Context, cmd slack.SlashCommand, question string) {
	if question == "" {
		h.respond(cmd, "Usage: `/ask-acme <your question>`", "ephemeral")
		return
	}

	if h.limiterCfg.Enabled && !h.limiter.Allow(cmd.UserID) {
		h.respond(cmd, "⏳ Rate limit reached, try again shortly.", "ephemeral")
		return
	}

	_, threadTS, err := h.api.PostMessage(
		cmd.ChannelID,
		slack.MsgOptionBlocks(
			slack.NewSectionBlock(
				slack.NewTextBlockObject(slack.MarkdownType, "<@"+cmd.UserID+"> asked:", false, false),
				nil, nil,
			),
			slack.NewSectionBlock(
				slack.NewTextBlockObject(slack.MarkdownType, "*"+question+"*", false, false),
				nil, nil,
			),
		),
		slack.MsgOptionText(format.Question(cmd.UserID, question), false),
	)
	if err != nil {
		log.Error().Err(err).Msg("Failed to post question")
		h.respond(cmd, format.ErrorMessage(err), "ephemeral")
		return
	}

	h.post(cmd.ChannelID, threadTS, "🤔 Analyzing...")
	h.answer(ctx, cmd.ChannelID, threadTS, cmd.UserID, question, config.DefaultAgentAlias)
}

// handleQuickCommand runs the specialist agents with a short, unthreaded
// in-channel answer.
func (h *handler) handleQuickCommand(cmd slack.SlashCommand, question, agentAlias, ack string) {
	if question == "" {
		h.respond(cmd, "Usage: `"+cmd.Command+" <your question>`", "ephemeral")
		return
	}

	h.respond(cmd, ack, "ephemeral")

	// detached from the socket event's lifetime; the agent run outlives it
	resp, err := h.agentService.Ask(context.Background(), agent.AskRequest{
		AgentAlias: agentAlias,
		Question:   question,
	})
	if err != nil {
		log.Error().Err(err).Str("command", cmd.Command).Msg("Slash command agent run failed")
		h.respond(cmd, format.ErrorMessage(err), "ephemeral")
		return
	}

	if resp.Answer == "" {
		h.respond(cmd, "❌ No response received. Please try again.", "ephemeral")
		return
	}

	answer := resp.Answer
	if len(answer) > maxCommandAnswerLen {
		answer = answer[:maxCommandAnswerLen]
	}
	h.respond(cmd, answer, "in_channel")
}

// respond posts back through the command's response URL.
func (h *handler) respond(cmd slack.SlashCommand, text, responseType string) {
	if cmd.ResponseURL == "" {
		return
	}

	err := slack.PostWebhook(cmd.ResponseURL, &slack.WebhookMessage{
		Text:         text,
		ResponseType: responseType,
	})
	if err != nil {
		log.Warn().Err(err).Str("command", cmd.Command).Msg("Failed to respond to slash command")
	}
}
