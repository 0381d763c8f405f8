package services

import (
	"fmt"
	"sync"

	"github.com/Jeremy-Demlow/acme-intelligence-bot/internal/infrastructure/redis"
	"github.com/Jeremy-Demlow/acme-intelligence-bot/internal/infrastructure/snowflake"
	"github.com/Jeremy-Demlow/acme-intelligence-bot/internal/services/agent"
	"github.com/Jeremy-Demlow/acme-intelligence-bot/internal/services/conversation"
	"github.com/rs/zerolog/log"
)

var (
	// Mutex for thread-safe initialization
	servicesMu sync.RWMutex
)

type Services struct {
	redisService        *redis.Service
	snowflakeService    *snowflake.Service
	agentService        *agent.Service
	conversationService *conversation.Service
}

// InitializeServices initializes all required services
func InitializeServices() (*Services, error) {
	servicesMu.Lock()
	defer servicesMu.Unlock()

	log.Info().Msg("Initializing core services")

	// Redis is optional; the conversation store degrades to memory
	redisService := redis.NewService()

	// Snowflake agent client (required)
	snowflakeService := snowflake.NewService()
	if snowflakeService == nil {
		return nil, fmt.Errorf("snowflake service is required - check SNOWFLAKE_ACCOUNT and credentials")
	}

	agentService, err := agent.NewService(snowflakeService)
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialize agent service")
		return nil, fmt.Errorf("failed to initialize agent service: %w", err)
	}
	log.Info().Msg("Initializing agent service")

	conversationService := conversation.NewService(redisService)
	log.Info().Msg("Initializing conversation service")

	log.Info().Msg("All services initialized successfully")

	return &Services{
		redisService:        redisService,
		snowflakeService:    snowflakeService,
		agentService:        agentService,
		conversationService: conversationService,
	}, nil
}

// GetAgentService returns the agent service
func (s *Services) GetAgentService() *agent.Service {
	return s.agentService
}

// GetConversationService returns the conversation service
func (s *Services) GetConversationService() *conversation.Service {
	return s.conversationService
}

// Close releases held connections.
func (s *Services) Close() {
	if s.redisService != nil {
		if err := s.redisService.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close Redis connection")
		}
	}
}
