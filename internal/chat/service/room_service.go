package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BatuhanVarlik/E-Commerce-App-sub002/internal/chat/events"
	"github.com/BatuhanVarlik/E-Commerce-App-sub002/internal/chat/models"
	"github.com/BatuhanVarlik/E-Commerce-App-sub002/internal/chat/presence"
	"github.com/BatuhanVarlik/E-Commerce-App-sub002/internal/chat/repository"
	"github.com/BatuhanVarlik/E-Commerce-App-sub002/pkg/logger"
	"github.com/BatuhanVarlik/E-Commerce-App-sub002/shared/observability"

	"gorm.io/gorm"
)

// Actor identifies who is performing a chat operation.
type Actor struct {
	UserID  *uint
	IsAgent bool
	IsAdmin bool
	IsBot   bool
}

// AgentSide reports whether the actor writes on the support side of the
// conversation.
func (a Actor) AgentSide() bool {
	return a.IsAgent || a.IsAdmin || a.IsBot
}

// GuestInfo identifies an unauthenticated customer.
type GuestInfo struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// CreateRoomInput opens a new conversation.
type CreateRoomInput struct {
	CustomerID     *uint
	Guest          *GuestInfo
	Subject        string
	Category       string
	OrderID        *uint
	ProductID      *uint
	Priority       models.RoomPriority
	InitialMessage string
}

// CreateRoomResult reports the new room plus whatever the bot did with the
// initial message.
type CreateRoomResult struct {
	Room     *models.ChatRoom    `json:"room"`
	BotReply *models.ChatMessage `json:"bot_reply,omitempty"`
	Match    *MatchResult        `json:"match,omitempty"`
	Agent    *models.ChatAgent   `json:"agent,omitempty"`
}

// RoomUpdate carries the mutable parts of UpdateRoom. Nil fields are left
// untouched.
type RoomUpdate struct {
	Status      *models.RoomStatus
	Priority    *models.RoomPriority
	AgentID     *uint
	ClosingNote *string
	Rating      *int
}

// RoomService owns the room lifecycle: status transitions, message ordering
// and read state. Mutations on one room are serialized through a per-room
// lock; different rooms proceed in parallel.
type RoomService struct {
	rooms    repository.RoomRepository
	messages repository.MessageRepository
	registry *presence.Registry
	matcher  *BotMatcher
	assigner *Assigner
	hub      *events.Hub
	log      *logger.Logger
	metrics  *observability.ChatMetrics

	locks *roomLocks
}

func NewRoomService(
	rooms repository.RoomRepository,
	messages repository.MessageRepository,
	registry *presence.Registry,
	matcher *BotMatcher,
	assigner *Assigner,
	hub *events.Hub,
	log *logger.Logger,
) *RoomService {
	return &RoomService{
		rooms:    rooms,
		messages: messages,
		registry: registry,
		matcher:  matcher,
		assigner: assigner,
		hub:      hub,
		log:      log,
		locks:    newRoomLocks(),
	}
}

// SetMetrics attaches the optional chat meter counters.
func (s *RoomService) SetMetrics(m *observability.ChatMetrics) {
	s.metrics = m
}

// CreateRoom opens a room, appends the initial message if given and
// immediately lets the chatbot have a go at it. On a miss the room is
// escalated to the waiting queue and an assignment is attempted; a room left
// waiting because no agent was free is a normal outcome, not an error.
func (s *RoomService) CreateRoom(in CreateRoomInput) (*CreateRoomResult, error) {
	priority := in.Priority
	if priority == "" {
		priority = models.PriorityNormal
	}

	room := &models.ChatRoom{
		CustomerID: in.CustomerID,
		Status:     models.RoomOpen,
		Priority:   priority,
		Subject:    in.Subject,
		Category:   in.Category,
		OrderID:    in.OrderID,
		ProductID:  in.ProductID,
	}
	if in.Guest != nil {
		room.GuestEmail = in.Guest.Email
		room.GuestName = in.Guest.Name
	}
	if err := s.rooms.Create(room); err != nil {
		return nil, err
	}

	result := &CreateRoomResult{Room: room}
	if in.InitialMessage == "" {
		return result, nil
	}

	unlock := s.locks.acquire(room.ID)
	defer unlock()

	if _, err := s.appendMessage(room, Actor{UserID: in.CustomerID}, in.InitialMessage, models.MessageText); err != nil {
		return nil, err
	}

	reply, match, agent, err := s.consultBot(room, in.InitialMessage)
	if err != nil {
		return nil, err
	}
	result.BotReply = reply
	result.Match = match
	result.Agent = agent
	return result, nil
}

// GetRoom loads one room.
func (s *RoomService) GetRoom(roomID uint) (*models.ChatRoom, error) {
	return s.loadRoom(roomID)
}

// ListRooms pages rooms in one status, highest priority first.
func (s *RoomService) ListRooms(status models.RoomStatus, limit, offset int) ([]models.ChatRoom, error) {
	return s.rooms.ListByStatus(status, limit, offset)
}

// ListMessages returns the room's history in creation order.
func (s *RoomService) ListMessages(roomID uint) ([]models.ChatMessage, error) {
	if _, err := s.loadRoom(roomID); err != nil {
		return nil, err
	}
	return s.messages.ListByRoom(roomID)
}

// PostMessage appends a message to the room. Posting to a closed room fails
// with ErrRoomClosed and writes nothing. When a customer posts into a room no
// agent holds yet, the chatbot answers or the room is escalated.
func (s *RoomService) PostMessage(roomID uint, sender Actor, content, messageType string) (*models.ChatMessage, error) {
	unlock := s.locks.acquire(roomID)
	defer unlock()

	room, err := s.loadRoom(roomID)
	if err != nil {
		return nil, err
	}
	if room.Status.Terminal() {
		return nil, ErrRoomClosed
	}

	msg, err := s.appendMessage(room, sender, content, messageType)
	if err != nil {
		return nil, err
	}

	if !sender.AgentSide() && room.Status == models.RoomOpen {
		if _, _, _, err := s.consultBot(room, content); err != nil {
			return nil, err
		}
	}
	return msg, nil
}

// MarkRead flags every unread message in the room that the reader did not
// author.
func (s *RoomService) MarkRead(roomID uint, reader Actor) error {
	unlock := s.locks.acquire(roomID)
	defer unlock()

	if _, err := s.loadRoom(roomID); err != nil {
		return err
	}

	now := time.Now()
	n, err := s.messages.MarkRead(roomID, reader.UserID, reader.AgentSide(), now)
	if err != nil {
		return err
	}
	if n > 0 {
		s.hub.Publish(events.EventRead, roomID, map[string]interface{}{
			"reader_id":  reader.UserID,
			"agent_side": reader.AgentSide(),
			"count":      n,
		})
	}
	return nil
}

// Typing relays a typing indicator to the room's live subscribers. Nothing is
// persisted.
func (s *RoomService) Typing(roomID uint, userID uint, agentSide, isTyping bool) {
	s.hub.Publish(events.EventTyping, roomID, map[string]interface{}{
		"user_id":    userID,
		"agent_side": agentSide,
		"is_typing":  isTyping,
	})
}

// RequestHuman escalates an open room at the customer's explicit request.
func (s *RoomService) RequestHuman(roomID uint) (*models.ChatRoom, *models.ChatAgent, error) {
	unlock := s.locks.acquire(roomID)
	defer unlock()

	room, err := s.loadRoom(roomID)
	if err != nil {
		return nil, nil, err
	}
	if room.Status.Terminal() {
		return nil, nil, ErrRoomClosed
	}
	if room.Status != models.RoomOpen {
		return nil, nil, ErrInvalidTransition
	}

	agent, err := s.escalateLocked(room)
	if err != nil {
		return nil, nil, err
	}
	return room, agent, nil
}

// UpdateRoom applies a status/priority/assignment/note/rating change,
// validating the transition table. Role gates: binding an agent or changing
// priority takes an agent or admin; resolving takes an agent or admin;
// force-closing a non-resolved room takes an admin.
func (s *RoomService) UpdateRoom(roomID uint, actor Actor, upd RoomUpdate) (*models.ChatRoom, error) {
	unlock := s.locks.acquire(roomID)
	defer unlock()

	room, err := s.loadRoom(roomID)
	if err != nil {
		return nil, err
	}

	if (upd.AgentID != nil || upd.Priority != nil) && !actor.IsAgent && !actor.IsAdmin {
		return nil, ErrForbidden
	}

	if upd.Priority != nil {
		if room.Status.Terminal() {
			return nil, ErrRoomClosed
		}
		room.Priority = *upd.Priority
	}

	// A manual reservation is undone on any later failure so the agent's
	// slot count never drifts from the room table.
	var reserved *uint
	rollback := func() {
		if reserved != nil {
			s.registry.Unreserve(*reserved)
		}
	}

	if upd.AgentID != nil {
		if err := s.assignSpecificLocked(room, *upd.AgentID); err != nil {
			return nil, err
		}
		reserved = upd.AgentID
	}

	var release *agentRelease
	if upd.Status != nil && *upd.Status != room.Status {
		rel, err := s.transitionLocked(room, actor, *upd.Status, upd)
		if err != nil {
			rollback()
			return nil, err
		}
		release = rel
	} else if upd.ClosingNote != nil {
		room.ClosingNote = *upd.ClosingNote
	}

	// Rating lands after the transition so resolve-and-rate works in one call.
	if upd.Rating != nil {
		if err := s.applyRating(room, *upd.Rating); err != nil {
			rollback()
			return nil, err
		}
	}

	if err := s.rooms.Update(room); err != nil {
		rollback()
		return nil, err
	}

	// The registry and the room's subscribers only hear about changes that
	// actually landed.
	if release != nil {
		if err := s.registry.Release(release.agentID, release.rating, release.handling); err != nil {
			s.log.Warn("agent release failed", "agent_id", release.agentID, "error", err.Error())
		}
	}
	if reserved != nil {
		s.hub.Publish(events.EventAssignment, room.ID, map[string]interface{}{
			"agent_id": *reserved,
			"room_id":  room.ID,
		})
		s.count(func(m *observability.ChatMetrics) { m.Assignments.Add(context.Background(), 1) })
	}
	s.hub.Publish(events.EventRoomUpdated, room.ID, room)
	return room, nil
}

// --- internals ---

func (s *RoomService) loadRoom(roomID uint) (*models.ChatRoom, error) {
	room, err := s.rooms.GetByID(roomID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	return room, nil
}

// appendMessage writes one message and bumps the room's counters. Caller
// holds the room lock.
func (s *RoomService) appendMessage(room *models.ChatRoom, sender Actor, content, messageType string) (*models.ChatMessage, error) {
	if messageType == "" {
		messageType = models.MessageText
	}
	msg := &models.ChatMessage{
		RoomID:      room.ID,
		SenderID:    sender.UserID,
		IsFromAdmin: sender.IsAgent || sender.IsAdmin,
		IsFromBot:   sender.IsBot,
		Content:     content,
		MessageType: messageType,
	}
	if err := s.messages.Create(msg); err != nil {
		return nil, err
	}

	now := time.Now()
	room.MessageCount++
	room.LastMessageAt = &now
	if err := s.rooms.Update(room); err != nil {
		return nil, err
	}

	s.hub.Publish(events.EventMessage, room.ID, msg)
	s.count(func(m *observability.ChatMetrics) { m.MessagesPosted.Add(context.Background(), 1) })
	return msg, nil
}

// consultBot runs the matcher over an inbound customer message on an
// unassigned room and either posts the bot's answer or escalates. Caller
// holds the room lock.
func (s *RoomService) consultBot(room *models.ChatRoom, text string) (*models.ChatMessage, *MatchResult, *models.ChatAgent, error) {
	match, err := s.matcher.Match(text)
	if err != nil {
		// The bot being down should not lose the customer's message; queue
		// for a human instead.
		s.log.Warn("bot match failed, escalating", "room_id", room.ID, "error", err.Error())
		match = &MatchResult{ShouldEscalate: true}
	}

	if match.Matched {
		reply, err := s.appendMessage(room, Actor{IsBot: true}, match.Answer, models.MessageText)
		if err != nil {
			return nil, nil, nil, err
		}
		s.count(func(m *observability.ChatMetrics) { m.BotMatches.Add(context.Background(), 1) })
		return reply, match, nil, nil
	}

	agent, err := s.escalateLocked(room)
	if err != nil {
		return nil, nil, nil, err
	}
	return nil, match, agent, nil
}

// escalateLocked moves an open room to waiting and tries to bind an agent.
// A full queue (no agent available) leaves the room waiting and returns nil.
// Caller holds the room lock.
func (s *RoomService) escalateLocked(room *models.ChatRoom) (*models.ChatAgent, error) {
	if room.Status == models.RoomOpen {
		room.Status = models.RoomWaiting
		if err := s.rooms.Update(room); err != nil {
			return nil, err
		}
		s.hub.Publish(events.EventRoomUpdated, room.ID, room)
		s.count(func(m *observability.ChatMetrics) { m.Escalations.Add(context.Background(), 1) })
	}
	if room.Status != models.RoomWaiting {
		return nil, nil
	}

	agent, err := s.assigner.Assign(room)
	if errors.Is(err, ErrNoAgentAvailable) {
		s.log.Info("room queued, no agent available", "room_id", room.ID)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	s.hub.Publish(events.EventAssignment, room.ID, map[string]interface{}{
		"agent_id": agent.ID,
		"room_id":  room.ID,
	})
	s.count(func(m *observability.ChatMetrics) { m.Assignments.Add(context.Background(), 1) })
	return agent, nil
}

// assignSpecificLocked binds the room to a named agent (admin/manual path).
// Caller holds the room lock, persists the room afterwards and unreserves the
// slot if that write fails.
func (s *RoomService) assignSpecificLocked(room *models.ChatRoom, agentID uint) error {
	if room.Status.Terminal() {
		return ErrRoomClosed
	}
	if room.Status != models.RoomWaiting && room.Status != models.RoomOpen {
		return ErrInvalidTransition
	}

	err := s.registry.Reserve(agentID)
	switch {
	case errors.Is(err, presence.ErrUnknownAgent):
		return ErrAgentNotFound
	case errors.Is(err, presence.ErrAtCapacity):
		return fmt.Errorf("%w: agent %d", ErrAgentAtCapacity, agentID)
	case err != nil:
		return err
	}

	now := time.Now()
	room.AgentID = &agentID
	room.Status = models.RoomAssigned
	room.AssignedAt = &now
	return nil
}

// agentRelease is a registry release that must wait until the room row is
// safely persisted.
type agentRelease struct {
	agentID  uint
	rating   *int
	handling time.Duration
}

// transitionLocked validates and applies a status change on the in-memory
// room. Caller holds the room lock; the repository write and the returned
// registry release both happen in UpdateRoom, after the write succeeds.
func (s *RoomService) transitionLocked(room *models.ChatRoom, actor Actor, to models.RoomStatus, upd RoomUpdate) (*agentRelease, error) {
	if room.Status.Terminal() {
		return nil, ErrRoomClosed
	}
	if !canTransition(room.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, room.Status, to)
	}

	var release *agentRelease
	now := time.Now()
	switch to {
	case models.RoomWaiting:
		room.Status = models.RoomWaiting

	case models.RoomAssigned:
		// Assignment must go through the assigner or an explicit AgentID so
		// the presence registry stays consistent.
		return nil, fmt.Errorf("%w: use assignment, not a bare status change", ErrInvalidTransition)

	case models.RoomResolved:
		if !actor.IsAgent && !actor.IsAdmin {
			return nil, ErrForbidden
		}
		room.Status = models.RoomResolved
		room.ResolvedAt = &now
		if room.AgentID != nil {
			var handling time.Duration
			if room.AssignedAt != nil {
				handling = now.Sub(*room.AssignedAt)
			}
			release = &agentRelease{agentID: *room.AgentID, rating: upd.Rating, handling: handling}
		}

	case models.RoomClosed:
		if room.Status != models.RoomResolved && !actor.IsAdmin {
			// Force-closing a live room is an administrative action.
			return nil, ErrForbidden
		}
		if room.Status == models.RoomAssigned && room.AgentID != nil {
			release = &agentRelease{agentID: *room.AgentID}
		}
		room.Status = models.RoomClosed
		room.ClosedAt = &now
		room.AgentID = nil
		if upd.ClosingNote != nil {
			room.ClosingNote = *upd.ClosingNote
		}
	}
	return release, nil
}

func (s *RoomService) applyRating(room *models.ChatRoom, rating int) error {
	if rating < 1 || rating > 5 {
		return fmt.Errorf("%w: rating must be between 1 and 5", ErrInvalidTransition)
	}
	if room.Status != models.RoomResolved && room.Status != models.RoomClosed {
		return fmt.Errorf("%w: rating requires a resolved room", ErrInvalidTransition)
	}
	room.SatisfactionRating = &rating
	return nil
}

func (s *RoomService) count(fn func(*observability.ChatMetrics)) {
	if s.metrics != nil {
		fn(s.metrics)
	}
}

// canTransition encodes the lifecycle table. Open is never re-entered and
// closed is terminal.
func canTransition(from, to models.RoomStatus) bool {
	switch from {
	case models.RoomOpen:
		return to == models.RoomWaiting || to == models.RoomClosed
	case models.RoomWaiting:
		return to == models.RoomAssigned || to == models.RoomClosed
	case models.RoomAssigned:
		return to == models.RoomResolved || to == models.RoomClosed
	case models.RoomResolved:
		return to == models.RoomClosed
	default:
		return false
	}
}
