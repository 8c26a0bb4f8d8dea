package api

import (
	"net/http"

	"github.com/BatuhanVarlik/E-Commerce-App-sub002/internal/chat/service"
	"github.com/BatuhanVarlik/E-Commerce-App-sub002/pkg/logger"
	"github.com/BatuhanVarlik/E-Commerce-App-sub002/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// AgentHandler exposes agent presence and the stats dashboard.
type AgentHandler struct {
	agents *service.AgentService
	stats  *service.StatsService
	logger *logger.Logger
}

// NewAgentHandler creates a new agent handler
func NewAgentHandler(agents *service.AgentService, stats *service.StatsService, logger *logger.Logger) *AgentHandler {
	return &AgentHandler{agents: agents, stats: stats, logger: logger}
}

type createAgentRequest struct {
	UserID             uint   `json:"user_id" binding:"required"`
	MaxConcurrentChats int    `json:"max_concurrent_chats"`
	Specializations    string `json:"specializations"`
}

// Create links a user account to a new agent profile (admin only)
func (h *AgentHandler) Create(c *gin.Context) {
	var req createAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "BAD_REQUEST", "message": "User ID is required"}})
		return
	}

	agent, err := h.agents.CreateAgent(req.UserID, req.MaxConcurrentChats, req.Specializations)
	if err != nil {
		renderChatError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, agent)
}

// List returns the registry's view of all agents (admin only)
func (h *AgentHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"agents": h.agents.List()})
}

type agentStatusRequest struct {
	IsOnline    bool `json:"is_online"`
	IsAvailable bool `json:"is_available"`
}

// UpdateStatus lets an agent flip their own online/available flags.
func (h *AgentHandler) UpdateStatus(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": gin.H{"code": "AUTH_REQUIRED", "message": "Authentication required"}})
		return
	}

	var req agentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "BAD_REQUEST", "message": "Invalid request format"}})
		return
	}

	profile, err := h.agents.GetByUserID(claims.UserID)
	if err != nil {
		renderChatError(c, h.logger, err)
		return
	}

	agent, err := h.agents.UpdateStatus(profile.ID, req.IsOnline, req.IsAvailable)
	if err != nil {
		renderChatError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, agent)
}

// Heartbeat refreshes the calling agent's presence.
func (h *AgentHandler) Heartbeat(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": gin.H{"code": "AUTH_REQUIRED", "message": "Authentication required"}})
		return
	}

	profile, err := h.agents.GetByUserID(claims.UserID)
	if err != nil {
		renderChatError(c, h.logger, err)
		return
	}

	h.agents.Heartbeat(profile.ID)
	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}

// Stats returns the live support dashboard aggregate (agent/admin)
func (h *AgentHandler) Stats(c *gin.Context) {
	stats, err := h.stats.Aggregate()
	if err != nil {
		renderChatError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
