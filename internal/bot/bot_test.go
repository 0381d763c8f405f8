package bot

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Jeremy-Demlow/acme-intelligence-bot/internal/config"
	"github.com/Jeremy-Demlow/acme-intelligence-bot/internal/infrastructure/snowflake"
	"github.com/Jeremy-Demlow/acme-intelligence-bot/internal/services/agent"
	"github.com/Jeremy-Demlow/acme-intelligence-bot/internal/services/conversation"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
)

// fakeSlack records posted messages and uploads instead of calling Slack.
type fakeSlack struct {
	posts   []string
	uploads int
}

func (f *fakeSlack) PostMessage(channelID string, options ...slack.MsgOption) (string, string, error) {
	// MsgOption internals are opaque; recover the text field the same way
	// the client builds its request form
	_, values, err := slack.UnsafeApplyMsgOptions("token", channelID, "https://slack.test/api/", options...)
	if err != nil {
		return "", "", err
	}
	f.posts = append(f.posts, values.Get("text"))
	return channelID, "1699999999.000100", nil
}

func (f *fakeSlack) UploadFileV2(params slack.UploadFileV2Parameters) (*slack.FileSummary, error) {
	f.uploads++
	return &slack.FileSummary{ID: "F123"}, nil
}

func newTestHandler(t *testing.T, sse http.HandlerFunc) (*handler, *fakeSlack, func()) {
	t.Helper()

	server := httptest.NewServer(sse)
	restoreCfg := config.SetSnowflakeConfig(&config.SnowflakeConfig{
		Account:  "testacct",
		PAT:      "test-pat",
		AuthMode: config.AuthModePAT,
		Database: "SNOWFLAKE_INTELLIGENCE",
		Schema:   "AGENTS",
	})
	restoreURL := snowflake.SetRunURLOverride(func(string) string { return server.URL })

	snowflakeService := snowflake.NewService()
	if snowflakeService == nil {
		t.Fatal("Failed to build snowflake service")
	}
	agentService, err := agent.NewService(snowflakeService)
	if err != nil {
		t.Fatalf("Failed to build agent service: %v", err)
	}

	api := &fakeSlack{}
	h := &handler{
		api:                 api,
		agentService:        agentService,
		conversationService: conversation.NewService(nil),
		botUserID:           "UBOT",
	}

	cleanup := func() {
		restoreURL()
		restoreCfg()
		server.Close()
	}
	return h, api, cleanup
}

func answerStream(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	fmt.Fprint(w, "event: response.text.delta\ndata: {\"text\": \"You have 14 customers.\"}\n\n")
	fmt.Fprint(w, "event: response\ndata: {\"content\": []}\n\n")
}

func TestStripMention(t *testing.T) {
	h := &handler{botUserID: "UBOT"}

	tests := []struct {
		text string
		want string
	}{
		{"<@UBOT> how many customers?", "how many customers?"},
		{"how many customers? <@UBOT>", "how many customers?"},
		{"no mention here", "no mention here"},
		{"<@UBOT>", ""},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := h.stripMention(tt.text); got != tt.want {
				t.Errorf("stripMention(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestAnswerPostsAndSavesHistory(t *testing.T) {
	h, api, cleanup := newTestHandler(t, answerStream)
	defer cleanup()

	ctx := context.Background()
	h.answer(ctx, "C1", "1699999999.000100", "U1", "How many customers do we have?", "intelligence")

	if len(api.posts) != 2 {
		t.Fatalf("Expected answer + tip posts, got %d: %v", len(api.posts), api.posts)
	}
	if !strings.Contains(api.posts[0], "You have 14 customers.") {
		t.Errorf("Answer not posted: %q", api.posts[0])
	}
	if !strings.Contains(api.posts[1], "Tip:") {
		t.Errorf("Expected follow-up tip, got: %q", api.posts[1])
	}

	turns, err := h.conversationService.History(ctx, "1699999999.000100")
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(turns) != 2 || turns[0].Role != "user" || turns[1].Role != "assistant" {
		t.Errorf("History not saved correctly: %v", turns)
	}
}

func TestAnswerNoTipOnFollowUp(t *testing.T) {
	h, api, cleanup := newTestHandler(t, answerStream)
	defer cleanup()

	ctx := context.Background()
	h.conversationService.Append(ctx, "thread", "user", "earlier question")
	h.conversationService.Append(ctx, "thread", "assistant", "earlier answer")

	h.answer(ctx, "C1", "thread", "U1", "follow-up", "intelligence")

	for _, post := range api.posts {
		if strings.Contains(post, "Tip:") {
			t.Error("Tip should only appear on the first exchange")
		}
	}
}

func TestAnswerEmptyQuestionIgnored(t *testing.T) {
	h, api, cleanup := newTestHandler(t, answerStream)
	defer cleanup()

	h.answer(context.Background(), "C1", "thread", "U1", "", "intelligence")

	if len(api.posts) != 0 {
		t.Errorf("Expected no posts for empty question, got %v", api.posts)
	}
}

func TestAnswerReportsAgentFailure(t *testing.T) {
	h, api, cleanup := newTestHandler(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	})
	defer cleanup()

	h.answer(context.Background(), "C1", "thread", "U1", "question", "intelligence")

	if len(api.posts) != 1 || !strings.Contains(api.posts[0], "error") {
		t.Errorf("Expected error message, got %v", api.posts)
	}
}

func TestHandleMessageRouting(t *testing.T) {
	h, api, cleanup := newTestHandler(t, answerStream)
	defer cleanup()
	ctx := context.Background()

	tests := []struct {
		name   string
		ev     *slackevents.MessageEvent
		expect bool
	}{
		{
			name: "Bot messages ignored",
			ev: &slackevents.MessageEvent{
				BotID: "B1", Text: "hi", Channel: "C1", TimeStamp: "1.0", ChannelType: "im",
			},
			expect: false,
		},
		{
			name: "Own messages ignored",
			ev: &slackevents.MessageEvent{
				User: "UBOT", Text: "hi", Channel: "C1", TimeStamp: "1.1", ChannelType: "im",
			},
			expect: false,
		},
		{
			name: "Mentions left to the mention handler",
			ev: &slackevents.MessageEvent{
				User: "U1", Text: "<@UBOT> hi", Channel: "C1", TimeStamp: "1.2", ChannelType: "channel",
			},
			expect: false,
		},
		{
			name: "Plain channel chatter ignored",
			ev: &slackevents.MessageEvent{
				User: "U1", Text: "unrelated", Channel: "C1", TimeStamp: "1.3", ChannelType: "channel",
			},
			expect: false,
		},
		{
			name: "DMs answered",
			ev: &slackevents.MessageEvent{
				User: "U1", Text: "how many customers?", Channel: "D1", TimeStamp: "1.4", ChannelType: "im",
			},
			expect: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := len(api.posts)
			h.handleMessage(ctx, tt.ev)
			answered := len(api.posts) > before
			if answered != tt.expect {
				t.Errorf("answered = %v, want %v (posts: %v)", answered, tt.expect, api.posts)
			}
		})
	}
}

func TestHandleMessageThreadFollowUp(t *testing.T) {
	h, api, cleanup := newTestHandler(t, answerStream)
	defer cleanup()
	ctx := context.Background()

	// a thread the bot has answered in before
	h.conversationService.Append(ctx, "42.0", "user", "first question")
	h.conversationService.Append(ctx, "42.0", "assistant", "first answer")

	h.handleMessage(ctx, &slackevents.MessageEvent{
		User: "U1", Text: "and now?", Channel: "C1",
		TimeStamp: "43.0", ThreadTimeStamp: "42.0", ChannelType: "channel",
	})

	if len(api.posts) == 0 {
		t.Fatal("Expected the thread follow-up to be answered")
	}
}
