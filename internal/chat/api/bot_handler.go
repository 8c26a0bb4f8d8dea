package api

import (
	"net/http"
	"strconv"

	"github.com/BatuhanVarlik/E-Commerce-App-sub002/internal/chat/models"
	"github.com/BatuhanVarlik/E-Commerce-App-sub002/internal/chat/service"
	"github.com/BatuhanVarlik/E-Commerce-App-sub002/pkg/logger"

	"github.com/gin-gonic/gin"
)

// BotHandler exposes the chatbot matcher directly plus the admin rule CRUD.
type BotHandler struct {
	matcher *service.BotMatcher
	logger  *logger.Logger
}

// NewBotHandler creates a new bot handler
func NewBotHandler(matcher *service.BotMatcher, logger *logger.Logger) *BotHandler {
	return &BotHandler{matcher: matcher, logger: logger}
}

// Query runs the matcher over a free-form question without touching any room.
// Storefront widgets use this for instant answers before a chat is opened.
func (h *BotHandler) Query(c *gin.Context) {
	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "BAD_REQUEST", "message": "Text is required"}})
		return
	}

	match, err := h.matcher.Match(req.Text)
	if err != nil {
		renderChatError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, match)
}

type botRuleRequest struct {
	Question     string `json:"question"`
	Keywords     string `json:"keywords" binding:"required"`
	Answer       string `json:"answer" binding:"required"`
	QuickReplies string `json:"quick_replies"`
	ActionType   string `json:"action_type"`
	ActionData   string `json:"action_data"`
	Category     string `json:"category"`
	Priority     int    `json:"priority"`
	IsActive     *bool  `json:"is_active"`
}

// CreateRule adds a chatbot rule (admin only)
func (h *BotHandler) CreateRule(c *gin.Context) {
	var req botRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "BAD_REQUEST", "message": "Keywords and answer are required"}})
		return
	}

	rule := models.ChatbotResponse{
		Question:     req.Question,
		Keywords:     req.Keywords,
		Answer:       req.Answer,
		QuickReplies: req.QuickReplies,
		ActionType:   req.ActionType,
		ActionData:   req.ActionData,
		Category:     req.Category,
		Priority:     req.Priority,
		IsActive:     true,
	}
	if req.Priority == 0 {
		rule.Priority = 1
	}
	if req.IsActive != nil {
		rule.IsActive = *req.IsActive
	}

	if err := h.matcher.CreateRule(&rule); err != nil {
		renderChatError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, rule)
}

// UpdateRule rewrites a chatbot rule (admin only)
func (h *BotHandler) UpdateRule(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "BAD_REQUEST", "message": "Rule ID must be a number"}})
		return
	}

	var req botRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "BAD_REQUEST", "message": "Keywords and answer are required"}})
		return
	}

	rule := models.ChatbotResponse{
		Question:     req.Question,
		Keywords:     req.Keywords,
		Answer:       req.Answer,
		QuickReplies: req.QuickReplies,
		ActionType:   req.ActionType,
		ActionData:   req.ActionData,
		Category:     req.Category,
		Priority:     req.Priority,
		IsActive:     true,
	}
	rule.ID = uint(id)
	if req.IsActive != nil {
		rule.IsActive = *req.IsActive
	}

	if err := h.matcher.UpdateRule(&rule); err != nil {
		renderChatError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, rule)
}

// DeleteRule removes a chatbot rule (admin only)
func (h *BotHandler) DeleteRule(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "BAD_REQUEST", "message": "Rule ID must be a number"}})
		return
	}

	if err := h.matcher.DeleteRule(uint(id)); err != nil {
		renderChatError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Rule deleted"})
}
