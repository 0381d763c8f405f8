package bot

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/Jeremy-Demlow/acme-intelligence-bot/internal/config"
	"github.com/Jeremy-Demlow/acme-intelligence-bot/internal/services/agent"
	"github.com/Jeremy-Demlow/acme-intelligence-bot/internal/services/chart"
	"github.com/Jeremy-Demlow/acme-intelligence-bot/internal/services/conversation"
	"github.com/Jeremy-Demlow/acme-intelligence-bot/internal/services/format"
	"github.com/Jeremy-Demlow/acme-intelligence-bot/pkg/ratelimit"
	"github.com/rs/zerolog/log"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
)

const followUpTip = "💡 _Tip: Ask follow-up questions by @mentioning me in this thread_"

// slackAPI is the subset of the Slack Web API the bot uses. Factored out so
// handler logic is testable without a live workspace.
type slackAPI interface {
	PostMessage(channelID string, options ...slack.MsgOption) (string, string, error)
	UploadFileV2(params slack.UploadFileV2Parameters) (*slack.FileSummary, error)
}

// Bot bridges Slack and the Cortex agent service over Socket Mode.
type Bot struct {
	api       *slack.Client
	socket    *socketmode.Client
	handler   *handler
	botUserID string
}

// handler holds the per-event logic, separated from the socket plumbing.
type handler struct {
	api                 slackAPI
	agentService        *agent.Service
	conversationService *conversation.Service
	limiter             *ratelimit.Limiter
	limiterCfg          config.RateLimitConfig
	botUserID           string
}

func New(agentService *agent.Service, conversationService *conversation.Service) (*Bot, error) {
	botToken := config.GetSlackBotToken()
	appToken := config.GetSlackAppToken()

	if botToken == "" || appToken == "" {
		return nil, fmt.Errorf("SLACK_BOT_TOKEN and SLACK_APP_TOKEN are required")
	}
	if !strings.HasPrefix(appToken, "xapp-") {
		return nil, fmt.Errorf("SLACK_APP_TOKEN must be an app-level token (xapp-)")
	}

	api := slack.New(botToken, slack.OptionAppLevelToken(appToken))

	auth, err := api.AuthTest()
	if err != nil {
		return nil, fmt.Errorf("slack auth test failed: %w", err)
	}

	limiterCfg := config.GetRateLimitConfig("slack_user")

	log.Info().
		Str("bot_user_id", auth.UserID).
		Str("team", auth.Team).
		Msg("Slack authentication successful")

	return &Bot{
		api:    api,
		socket: socketmode.New(api),
		handler: &handler{
			api:                 api,
			agentService:        agentService,
			conversationService: conversationService,
			limiter:             ratelimit.NewLimiter(limiterCfg.Window, limiterCfg.MaxHits),
			limiterCfg:          limiterCfg,
			botUserID:           auth.UserID,
		},
		botUserID: auth.UserID,
	}, nil
}

// Run processes Socket Mode events until the context is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	go b.eventLoop(ctx)

	log.Info().Msg("Starting Slack Socket Mode connection")
	return b.socket.RunContext(ctx)
}

func (b *Bot) eventLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-b.socket.Events:
			if !ok {
				return
			}
			b.dispatch(ctx, evt)
		}
	}
}

func (b *Bot) dispatch(ctx context.Context, evt socketmode.Event) {
	switch evt.Type {
	case socketmode.EventTypeConnected:
		log.Info().Msg("Connected to Slack")

	case socketmode.EventTypeConnectionError:
		log.Warn().Msg("Slack connection error, socket mode will retry")

	case socketmode.EventTypeEventsAPI:
		apiEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
		if !ok {
			return
		}
		if evt.Request != nil {
			b.socket.Ack(*evt.Request)
		}
		b.handleEventsAPI(ctx, apiEvent)

	case socketmode.EventTypeSlashCommand:
		cmd, ok := evt.Data.(slack.SlashCommand)
		if !ok {
			return
		}
		if evt.Request != nil {
			b.socket.Ack(*evt.Request)
		}
		go b.handler.handleSlashCommand(ctx, cmd)
	}
}

func (b *Bot) handleEventsAPI(ctx context.Context, apiEvent slackevents.EventsAPIEvent) {
	switch ev := apiEvent.InnerEvent.Data.(type) {
	case *slackevents.AppMentionEvent:
		go b.handler.handleMention(ctx, ev)

	case *slackevents.MessageEvent:
		go b.handler.handleMessage(ctx, ev)
	}
}

// handleMention answers @mentions in channels.
func (h *handler) handleMention(ctx context.Context, ev *slackevents.AppMentionEvent) {
	threadTS := ev.ThreadTimeStamp
	if threadTS == "" {
		threadTS = ev.TimeStamp
	}

	question := h.stripMention(ev.Text)
	h.answer(ctx, ev.Channel, threadTS, ev.User, question, config.DefaultAgentAlias)
}

// handleMessage answers DMs and follow-ups in threads the bot participates
// in. Channel mentions are left to handleMention to avoid double replies.
func (h *handler) handleMessage(ctx context.Context, ev *slackevents.MessageEvent) {
	if ev.BotID != "" || ev.User == h.botUserID || ev.SubType != "" {
		return
	}
	if strings.Contains(ev.Text, h.mentionTag()) {
		return
	}

	threadTS := ev.ThreadTimeStamp
	if threadTS == "" {
		threadTS = ev.TimeStamp
	}

	isDM := ev.ChannelType == "im"
	inOurThread := ev.ThreadTimeStamp != "" && h.conversationService.Has(ctx, threadTS)
	if !isDM && !inOurThread {
		return
	}

	h.answer(ctx, ev.Channel, threadTS, ev.User, strings.TrimSpace(ev.Text), config.DefaultAgentAlias)
}

// answer runs the shared question path: rate limit, agent run with threaded
// progress updates, formatted reply, optional chart, history bookkeeping.
func (h *handler) answer(ctx context.Context, channel, threadTS, userID, question, agentAlias string) {
	if question == "" {
		return
	}

	if h.limiterCfg.Enabled && !h.limiter.Allow(userID) {
		h.post(channel, threadTS, "⏳ You're asking faster than I can think. Give me a minute.")
		return
	}

	history := h.conversationService.ContextMessages(ctx, threadTS)
	if len(history) > 0 {
		log.Info().Int("turns", len(history)).Str("thread_ts", threadTS).Msg("Multi-turn follow-up")
	} else {
		log.Info().Str("thread_ts", threadTS).Msg("New conversation starting")
	}

	resp, err := h.agentService.Ask(ctx, agent.AskRequest{
		AgentAlias: agentAlias,
		Question:   question,
		History:    history,
		Progress: func(msg string) {
			h.post(channel, threadTS, msg)
		},
	})
	if err != nil {
		log.Error().Err(err).Str("channel", channel).Msg("Agent run failed")
		h.post(channel, threadTS, format.ErrorMessage(err))
		return
	}

	if resp.Answer == "" {
		h.post(channel, threadTS, "❌ No response received. Please try again.")
		return
	}

	h.post(channel, threadTS, format.Answer(resp.Answer, resp.SQL, resp.ToolsUsed, resp.Elapsed))
	h.maybeUploadChart(channel, threadTS, resp)

	_ = h.conversationService.Append(ctx, threadTS, "user", question)
	_ = h.conversationService.Append(ctx, threadTS, "assistant", resp.Answer)

	if len(history) == 0 {
		h.post(channel, threadTS, followUpTip)
	}
}

// maybeUploadChart renders and attaches a chart when the agent produced a
// drawable spec. Failures degrade to the text answer already posted.
func (h *handler) maybeUploadChart(channel, threadTS string, resp *agent.Response) {
	if len(resp.ChartSpec) == 0 {
		return
	}

	png, err := chart.RenderSpec(resp.ChartSpec)
	if err != nil {
		log.Debug().Err(err).Msg("Chart spec not drawable, skipping attachment")
		return
	}

	_, err = h.api.UploadFileV2(slack.UploadFileV2Parameters{
		Channel:         channel,
		ThreadTimestamp: threadTS,
		Filename:        "chart.png",
		Title:           "Chart",
		FileSize:        len(png),
		Reader:          bytes.NewReader(png),
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to upload chart")
	}
}

func (h *handler) post(channel, threadTS, text string) {
	_, _, err := h.api.PostMessage(
		channel,
		slack.MsgOptionText(text, false),
		slack.MsgOptionTS(threadTS),
	)
	if err != nil {
		log.Warn().Err(err).Str("channel", channel).Msg("Failed to post message")
	}
}

func (h *handler) mentionTag() string {
	return "<@" + h.botUserID + ">"
}

// stripMention removes the bot's own mention from the question text.
func (h *handler) stripMention(text string) string {
	return strings.TrimSpace(strings.ReplaceAll(text, h.mentionTag(), ""))
}
