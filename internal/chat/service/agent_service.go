package service

import (
	"errors"

	"github.com/BatuhanVarlik/E-Commerce-App-sub002/internal/chat/models"
	"github.com/BatuhanVarlik/E-Commerce-App-sub002/internal/chat/presence"
	"github.com/BatuhanVarlik/E-Commerce-App-sub002/internal/chat/repository"
	"github.com/BatuhanVarlik/E-Commerce-App-sub002/pkg/logger"

	"gorm.io/gorm"
)

// AgentService manages agent profiles and relays presence updates into the
// registry.
type AgentService struct {
	agents   repository.AgentRepository
	registry *presence.Registry
	log      *logger.Logger
}

func NewAgentService(agents repository.AgentRepository, registry *presence.Registry, log *logger.Logger) *AgentService {
	return &AgentService{agents: agents, registry: registry, log: log}
}

// CreateAgent links a user account to a new agent profile and registers it
// for routing.
func (s *AgentService) CreateAgent(userID uint, maxConcurrent int, specializations string) (*models.ChatAgent, error) {
	if maxConcurrent <= 0 {
		maxConcurrent = 3
	}
	agent := &models.ChatAgent{
		UserID:             userID,
		MaxConcurrentChats: maxConcurrent,
		Specializations:    specializations,
	}
	if err := s.agents.Create(agent); err != nil {
		return nil, err
	}
	s.registry.Register(*agent)
	s.log.Info("agent profile created", "agent_id", agent.ID, "user_id", userID)
	return agent, nil
}

// GetByUserID resolves the agent profile behind a user account.
func (s *AgentService) GetByUserID(userID uint) (*models.ChatAgent, error) {
	agent, err := s.agents.GetByUserID(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAgentNotFound
	}
	if err != nil {
		return nil, err
	}
	return agent, nil
}

// UpdateStatus flips the agent's online/available flags through the registry
// so routing sees the change immediately.
func (s *AgentService) UpdateStatus(agentID uint, online, available bool) (*models.ChatAgent, error) {
	err := s.registry.SetStatus(agentID, online, available)
	if errors.Is(err, presence.ErrUnknownAgent) {
		return nil, ErrAgentNotFound
	}
	if err != nil {
		return nil, err
	}
	agent, _ := s.registry.Get(agentID)
	return &agent, nil
}

// Heartbeat refreshes the agent's last-active timestamp.
func (s *AgentService) Heartbeat(agentID uint) {
	s.registry.Heartbeat(agentID)
}

// List returns the registry's current view of all agents.
func (s *AgentService) List() []models.ChatAgent {
	return s.registry.Snapshot()
}
