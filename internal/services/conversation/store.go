package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/Jeremy-Demlow/acme-intelligence-bot/internal/config"
	"github.com/Jeremy-Demlow/acme-intelligence-bot/internal/infrastructure/redis"
	"github.com/Jeremy-Demlow/acme-intelligence-bot/internal/infrastructure/snowflake"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog/log"
)

// Turn is one exchange half in a conversation thread.
type Turn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Store keeps per-thread conversation history for multi-turn context.
type Store interface {
	Append(ctx context.Context, threadID string, turn Turn) error
	History(ctx context.Context, threadID string) ([]Turn, error)
	Clear(ctx context.Context, threadID string) error
}

// MemoryStore is a bounded in-memory store: least-recently-used threads are
// evicted once MaxThreads is reached, idle threads expire after the TTL, and
// each thread keeps only the most recent HistoryLimit turns.
type MemoryStore struct {
	mu      sync.Mutex
	threads *expirable.LRU[string, []Turn]
	maxTurn int
}

// RedisStore persists history as JSON per thread with a TTL, so context
// survives bot restarts.
type RedisStore struct {
	redisService *redis.Service
	maxTurn      int
	ttl          time.Duration
}

// Service wraps the selected store implementation.
type Service struct {
	store Store
}

// NewService picks a Redis-backed store when Redis is reachable and falls
// back to the in-memory store otherwise.
func NewService(redisService *redis.Service) *Service {
	runCfg := config.GetAgentRunConfig()

	var store Store
	if redisService != nil {
		if err := redisService.Ping(context.Background()); err != nil {
			log.Warn().Err(err).Msg("Redis unreachable - using in-memory conversation store")
			store = NewMemoryStore(runCfg)
		} else {
			store = &RedisStore{
				redisService: redisService,
				maxTurn:      runCfg.HistoryLimit,
				ttl:          runCfg.ThreadTTL,
			}
		}
	} else {
		store = NewMemoryStore(runCfg)
	}

	return &Service{store: store}
}

func NewMemoryStore(runCfg config.AgentRunConfig) *MemoryStore {
	return &MemoryStore{
		threads: expirable.NewLRU[string, []Turn](runCfg.MaxThreads, nil, runCfg.ThreadTTL),
		maxTurn: runCfg.HistoryLimit,
	}
}

// Append adds a turn to the thread, trimming to the configured turn cap.
func (ms *MemoryStore) Append(ctx context.Context, threadID string, turn Turn) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	turns, _ := ms.threads.Get(threadID)
	turns = appendTrimmed(turns, turn, ms.maxTurn)
	ms.threads.Add(threadID, turns)
	return nil
}

// History returns the thread's turns in insertion order.
func (ms *MemoryStore) History(ctx context.Context, threadID string) ([]Turn, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	turns, ok := ms.threads.Get(threadID)
	if !ok {
		return nil, nil
	}

	out := make([]Turn, len(turns))
	copy(out, turns)
	return out, nil
}

func (ms *MemoryStore) Clear(ctx context.Context, threadID string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.threads.Remove(threadID)
	return nil
}

func threadKey(threadID string) string {
	return "thread:" + threadID
}

func (rs *RedisStore) Append(ctx context.Context, threadID string, turn Turn) error {
	turns, err := rs.History(ctx, threadID)
	if err != nil {
		return err
	}

	turns = appendTrimmed(turns, turn, rs.maxTurn)

	data, err := json.Marshal(turns)
	if err != nil {
		return fmt.Errorf("failed to marshal thread history: %w", err)
	}
	return rs.redisService.Set(ctx, threadKey(threadID), string(data), rs.ttl)
}

func (rs *RedisStore) History(ctx context.Context, threadID string) ([]Turn, error) {
	data, err := rs.redisService.Get(ctx, threadKey(threadID))
	if err != nil {
		if redis.IsNil(err) {
			return nil, nil
		}
		return nil, err
	}
	if data == "" {
		return nil, nil
	}

	var turns []Turn
	if err := json.Unmarshal([]byte(data), &turns); err != nil {
		return nil, fmt.Errorf("failed to unmarshal thread history: %w", err)
	}
	return turns, nil
}

func (rs *RedisStore) Clear(ctx context.Context, threadID string) error {
	return rs.redisService.Delete(ctx, threadKey(threadID))
}

func appendTrimmed(turns []Turn, turn Turn, max int) []Turn {
	turns = append(turns, turn)
	if max > 0 && len(turns) > max {
		turns = turns[len(turns)-max:]
	}
	return turns
}

// Append records one turn in the thread's history.
func (s *Service) Append(ctx context.Context, threadID, role, text string) error {
	return s.store.Append(ctx, threadID, Turn{Role: role, Text: text})
}

// History returns the thread's prior turns in insertion order.
func (s *Service) History(ctx context.Context, threadID string) ([]Turn, error) {
	return s.store.History(ctx, threadID)
}

// Has reports whether the thread has any recorded history.
func (s *Service) Has(ctx context.Context, threadID string) bool {
	turns, err := s.store.History(ctx, threadID)
	return err == nil && len(turns) > 0
}

// Clear drops the thread's history.
func (s *Service) Clear(ctx context.Context, threadID string) error {
	return s.store.Clear(ctx, threadID)
}

// ContextMessages converts the thread's history into the message list an
// agent run replays for multi-turn context. Errors degrade to an empty
// context rather than failing the question.
func (s *Service) ContextMessages(ctx context.Context, threadID string) []snowflake.Message {
	turns, err := s.History(ctx, threadID)
	if err != nil {
		log.Warn().Err(err).Str("thread_id", threadID).Msg("Failed to load conversation history")
		return nil
	}

	messages := make([]snowflake.Message, 0, len(turns))
	for _, turn := range turns {
		messages = append(messages, snowflake.TextMessage(turn.Role, turn.Text))
	}
	return messages
}
