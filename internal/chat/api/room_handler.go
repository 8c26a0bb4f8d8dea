package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/BatuhanVarlik/E-Commerce-App-sub002/internal/chat/models"
	"github.com/BatuhanVarlik/E-Commerce-App-sub002/internal/chat/service"
	"github.com/BatuhanVarlik/E-Commerce-App-sub002/pkg/jwt"
	"github.com/BatuhanVarlik/E-Commerce-App-sub002/pkg/logger"
	"github.com/BatuhanVarlik/E-Commerce-App-sub002/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// RoomHandler exposes the room lifecycle over REST.
type RoomHandler struct {
	rooms  *service.RoomService
	logger *logger.Logger
}

// NewRoomHandler creates a new room handler
func NewRoomHandler(rooms *service.RoomService, logger *logger.Logger) *RoomHandler {
	return &RoomHandler{rooms: rooms, logger: logger}
}

// actorFrom builds the acting identity from validated claims, if any.
func actorFrom(c *gin.Context) service.Actor {
	claims := middleware.ClaimsFrom(c)
	if claims == nil {
		return service.Actor{}
	}
	id := claims.UserID
	return service.Actor{
		UserID:  &id,
		IsAgent: claims.Role == jwt.RoleAgent || claims.Role == jwt.RoleAdmin,
		IsAdmin: claims.Role == jwt.RoleAdmin,
	}
}

// renderChatError maps chat service sentinels onto the HTTP error taxonomy.
func renderChatError(c *gin.Context, log *logger.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrRoomNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": "NOT_FOUND", "message": "Room not found"}})
	case errors.Is(err, service.ErrAgentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": "NOT_FOUND", "message": "Agent not found"}})
	case errors.Is(err, service.ErrRuleNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": "NOT_FOUND", "message": "Chatbot rule not found"}})
	case errors.Is(err, service.ErrRoomClosed):
		c.JSON(http.StatusConflict, gin.H{"error": gin.H{"code": "ROOM_CLOSED", "message": "This conversation is closed"}})
	case errors.Is(err, service.ErrAgentAtCapacity):
		c.JSON(http.StatusConflict, gin.H{"error": gin.H{"code": "AGENT_AT_CAPACITY", "message": "Agent cannot take more chats"}})
	case errors.Is(err, service.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": gin.H{"code": "INVALID_TRANSITION", "message": err.Error()}})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": gin.H{"code": "FORBIDDEN", "message": "Your role does not allow this operation"}})
	default:
		log.Error("chat operation failed", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"code": "INTERNAL_ERROR", "message": "Something went wrong"}})
	}
}

func roomID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "BAD_REQUEST", "message": "Room ID must be a number"}})
		return 0, false
	}
	return uint(id), true
}

type createRoomRequest struct {
	Subject        string              `json:"subject"`
	Category       string              `json:"category"`
	Priority       models.RoomPriority `json:"priority"`
	OrderID        *uint               `json:"order_id"`
	ProductID      *uint               `json:"product_id"`
	InitialMessage string              `json:"message"`
	Guest          *service.GuestInfo  `json:"guest"`
}

// Create opens a conversation for an authenticated customer or a guest.
func (h *RoomHandler) Create(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "BAD_REQUEST", "message": "Invalid request format"}})
		return
	}

	in := service.CreateRoomInput{
		Subject:        req.Subject,
		Category:       req.Category,
		Priority:       req.Priority,
		OrderID:        req.OrderID,
		ProductID:      req.ProductID,
		InitialMessage: req.InitialMessage,
	}
	if claims := middleware.ClaimsFrom(c); claims != nil {
		id := claims.UserID
		in.CustomerID = &id
	} else if req.Guest != nil && req.Guest.Email != "" {
		in.Guest = req.Guest
	} else {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "BAD_REQUEST", "message": "Guest chats need an email address"}})
		return
	}

	result, err := h.rooms.CreateRoom(in)
	if err != nil {
		renderChatError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// Get returns one room. Customers can only read their own rooms.
func (h *RoomHandler) Get(c *gin.Context) {
	id, ok := roomID(c)
	if !ok {
		return
	}

	room, err := h.rooms.GetRoom(id)
	if err != nil {
		renderChatError(c, h.logger, err)
		return
	}
	if !h.canView(c, room) {
		c.JSON(http.StatusForbidden, gin.H{"error": gin.H{"code": "FORBIDDEN", "message": "You cannot view this room"}})
		return
	}
	c.JSON(http.StatusOK, room)
}

// List pages rooms in one status (agent/admin queue view).
func (h *RoomHandler) List(c *gin.Context) {
	status := models.RoomStatus(c.DefaultQuery("status", string(models.RoomWaiting)))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	rooms, err := h.rooms.ListRooms(status, limit, offset)
	if err != nil {
		renderChatError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

// Messages returns the full history of a room in order.
func (h *RoomHandler) Messages(c *gin.Context) {
	id, ok := roomID(c)
	if !ok {
		return
	}

	room, err := h.rooms.GetRoom(id)
	if err != nil {
		renderChatError(c, h.logger, err)
		return
	}
	if !h.canView(c, room) {
		c.JSON(http.StatusForbidden, gin.H{"error": gin.H{"code": "FORBIDDEN", "message": "You cannot view this room"}})
		return
	}

	messages, err := h.rooms.ListMessages(id)
	if err != nil {
		renderChatError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

type postMessageRequest struct {
	Content     string `json:"content" binding:"required"`
	MessageType string `json:"message_type"`
}

// PostMessage appends a message to the room.
func (h *RoomHandler) PostMessage(c *gin.Context) {
	id, ok := roomID(c)
	if !ok {
		return
	}

	var req postMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "BAD_REQUEST", "message": "Message content is required"}})
		return
	}

	msg, err := h.rooms.PostMessage(id, actorFrom(c), req.Content, req.MessageType)
	if err != nil {
		renderChatError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// MarkRead flags the other side's messages as read.
func (h *RoomHandler) MarkRead(c *gin.Context) {
	id, ok := roomID(c)
	if !ok {
		return
	}

	if err := h.rooms.MarkRead(id, actorFrom(c)); err != nil {
		renderChatError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Messages marked as read"})
}

// RequestHuman escalates an open room to the agent queue on customer request.
func (h *RoomHandler) RequestHuman(c *gin.Context) {
	id, ok := roomID(c)
	if !ok {
		return
	}

	room, agent, err := h.rooms.RequestHuman(id)
	if err != nil {
		renderChatError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"room": room, "agent": agent})
}

type updateRoomRequest struct {
	Status      *models.RoomStatus   `json:"status"`
	Priority    *models.RoomPriority `json:"priority"`
	AgentID     *uint                `json:"agent_id"`
	ClosingNote *string              `json:"closing_note"`
	Rating      *int                 `json:"rating"`
}

// Update applies a status, priority, assignment, note or rating change.
func (h *RoomHandler) Update(c *gin.Context) {
	id, ok := roomID(c)
	if !ok {
		return
	}

	var req updateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "BAD_REQUEST", "message": "Invalid request format"}})
		return
	}

	room, err := h.rooms.UpdateRoom(id, actorFrom(c), service.RoomUpdate{
		Status:      req.Status,
		Priority:    req.Priority,
		AgentID:     req.AgentID,
		ClosingNote: req.ClosingNote,
		Rating:      req.Rating,
	})
	if err != nil {
		renderChatError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

// canView enforces room-level read access: agents and admins see everything,
// customers only their own rooms, guests only guest rooms (the room id acts
// as the shared secret for those).
func (h *RoomHandler) canView(c *gin.Context, room *models.ChatRoom) bool {
	claims := middleware.ClaimsFrom(c)
	if claims == nil {
		return room.CustomerID == nil
	}
	if claims.HasRole(jwt.RoleAgent) {
		return true
	}
	return room.CustomerID != nil && *room.CustomerID == claims.UserID
}
