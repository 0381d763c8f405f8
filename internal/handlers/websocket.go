package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/Jeremy-Demlow/acme-intelligence-bot/internal/config"
	"github.com/Jeremy-Demlow/acme-intelligence-bot/internal/connections"
	"github.com/Jeremy-Demlow/acme-intelligence-bot/internal/services/agent"
	"github.com/Jeremy-Demlow/acme-intelligence-bot/internal/services/conversation"
	"github.com/Jeremy-Demlow/acme-intelligence-bot/pkg/httpext"
	"github.com/Jeremy-Demlow/acme-intelligence-bot/pkg/ratelimit"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// askFrame is one inbound question on the debug chat socket.
type askFrame struct {
	Question string `json:"question" validate:"required,min=1,max=2000"`
	Agent    string `json:"agent" validate:"omitempty,alphanum"`
}

// eventFrame is one outbound update.
type eventFrame struct {
	Type      string   `json:"type"` // connected, progress, answer, error
	Message   string   `json:"message,omitempty"`
	Answer    string   `json:"answer,omitempty"`
	SQL       string   `json:"sql,omitempty"`
	Tools     []string `json:"tools,omitempty"`
	ElapsedMS int64    `json:"elapsed_ms,omitempty"`
	ThreadID  string   `json:"thread_id,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// local debug surface only; not exposed beyond the demo host
		return true
	},
}

// WebSocketHandler serves the local debug chat: one question in, a stream of
// progress frames and a final answer frame out. Each connection gets its own
// conversation thread so multi-turn context works without Slack.
type WebSocketHandler struct {
	manager             *connections.Manager
	agentService        *agent.Service
	conversationService *conversation.Service
	limiter             *ratelimit.Limiter
	limiterCfg          config.RateLimitConfig
	validate            *validator.Validate
}

func NewWebSocketHandler(agentService *agent.Service, conversationService *conversation.Service) *WebSocketHandler {
	limiterCfg := config.GetRateLimitConfig("debug_ws")
	return &WebSocketHandler{
		manager:             connections.NewManager(connections.DefaultTimeouts),
		agentService:        agentService,
		conversationService: conversationService,
		limiter:             ratelimit.NewLimiter(limiterCfg.Window, limiterCfg.MaxHits),
		limiterCfg:          limiterCfg,
		validate:            validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !websocket.IsWebSocketUpgrade(r) {
		httpext.JsonError(w, "this endpoint only speaks websocket", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("Could not upgrade debug chat connection")
		return
	}

	h.manager.AddConnection(conn)
	threadID := uuid.New().String()
	defer func() {
		h.manager.RemoveConnection(conn)
		conn.Close()
	}()

	timeouts := h.manager.Timeouts()
	conn.SetReadDeadline(time.Now().Add(timeouts.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(timeouts.PongWait))
	})

	done := make(chan struct{})
	defer close(done)

	go func() {
		ticker := time.NewTicker(timeouts.PingPeriod)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := h.manager.Ping(conn); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()

	if err := h.manager.WriteJSON(conn, eventFrame{Type: "connected", ThreadID: threadID}); err != nil {
		return
	}

	for {
		conn.SetReadDeadline(time.Now().Add(timeouts.PongWait))
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Msg("Debug chat connection closed unexpectedly")
			}
			break
		}

		h.handleAsk(r, conn, threadID, message)
	}
}

func (h *WebSocketHandler) handleAsk(r *http.Request, conn *websocket.Conn, threadID string, message []byte) {
	var frame askFrame
	if err := json.Unmarshal(message, &frame); err != nil {
		h.writeError(conn, "invalid frame: expected {\"question\": \"...\"}")
		return
	}
	if err := h.validate.Struct(frame); err != nil {
		h.writeError(conn, "invalid question: "+err.Error())
		return
	}

	if h.limiterCfg.Enabled && !h.limiter.Allow(r.RemoteAddr) {
		h.writeError(conn, "rate limit exceeded, slow down")
		return
	}

	ctx := r.Context()
	history := h.conversationService.ContextMessages(ctx, threadID)

	resp, err := h.agentService.Ask(ctx, agent.AskRequest{
		AgentAlias: frame.Agent,
		Question:   frame.Question,
		History:    history,
		Progress: func(msg string) {
			_ = h.manager.WriteJSON(conn, eventFrame{Type: "progress", Message: msg})
		},
	})
	if err != nil {
		log.Error().Err(err).Msg("Debug chat agent run failed")
		h.writeError(conn, err.Error())
		return
	}

	_ = h.conversationService.Append(ctx, threadID, "user", frame.Question)
	_ = h.conversationService.Append(ctx, threadID, "assistant", resp.Answer)

	_ = h.manager.WriteJSON(conn, eventFrame{
		Type:      "answer",
		Answer:    resp.Answer,
		SQL:       resp.SQL,
		Tools:     resp.ToolsUsed,
		ElapsedMS: resp.Elapsed.Milliseconds(),
		ThreadID:  threadID,
	})
}

func (h *WebSocketHandler) writeError(conn *websocket.Conn, message string) {
	_ = h.manager.WriteJSON(conn, eventFrame{Type: "error", Message: message})
}
