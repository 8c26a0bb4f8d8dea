package events

import (
	"sync"
	"time"

	"github.com/BatuhanVarlik/E-Commerce-App-sub002/pkg/logger"
)

// EventType tags a fan-out event.
type EventType string

const (
	EventMessage     EventType = "message"
	EventRoomUpdated EventType = "room_updated"
	EventAssignment  EventType = "assignment"
	EventTyping      EventType = "typing"
	EventRead        EventType = "read"
)

// Event is one state change broadcast to the live subscribers of a room.
type Event struct {
	Type      EventType   `json:"type"`
	RoomID    uint        `json:"room_id"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Subscriber is one live listener on a room. Events are delivered through a
// buffered channel; a full buffer drops the event for that subscriber only.
type Subscriber struct {
	ID     string
	RoomID uint
	ch     chan Event
}

// Events returns the subscriber's delivery channel.
func (s *Subscriber) Events() <-chan Event {
	return s.ch
}

const defaultBuffer = 64

// Hub fans room events out to current subscribers. Delivery is best-effort
// and at-most-once per connection; the message history in the store remains
// the durable source of truth, so reconnecting clients re-fetch instead of
// relying on replay.
type Hub struct {
	mu    sync.RWMutex
	rooms map[uint]map[*Subscriber]struct{}
	log   *logger.Logger

	dropped uint64
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		rooms: make(map[uint]map[*Subscriber]struct{}),
		log:   log,
	}
}

// Subscribe registers a listener on a room.
func (h *Hub) Subscribe(roomID uint, id string) *Subscriber {
	sub := &Subscriber{
		ID:     id,
		RoomID: roomID,
		ch:     make(chan Event, defaultBuffer),
	}

	h.mu.Lock()
	set, ok := h.rooms[roomID]
	if !ok {
		set = make(map[*Subscriber]struct{})
		h.rooms[roomID] = set
	}
	set[sub] = struct{}{}
	h.mu.Unlock()

	h.log.Debug("subscriber joined room", "room_id", roomID, "subscriber", id)
	return sub
}

// Unsubscribe removes a listener and closes its channel.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	if sub == nil {
		return
	}

	h.mu.Lock()
	if set, ok := h.rooms[sub.RoomID]; ok {
		if _, member := set[sub]; member {
			delete(set, sub)
			close(sub.ch)
		}
		if len(set) == 0 {
			delete(h.rooms, sub.RoomID)
		}
	}
	h.mu.Unlock()
}

// Publish emits an event to every current subscriber of the room. The send
// never blocks: a subscriber whose buffer is full misses the event.
func (h *Hub) Publish(eventType EventType, roomID uint, payload interface{}) {
	h.mu.RLock()
	set, ok := h.rooms[roomID]
	if !ok || len(set) == 0 {
		h.mu.RUnlock()
		return
	}
	subs := make([]*Subscriber, 0, len(set))
	for s := range set {
		subs = append(subs, s)
	}
	h.mu.RUnlock()

	ev := Event{
		Type:      eventType,
		RoomID:    roomID,
		Payload:   payload,
		Timestamp: time.Now(),
	}

	for _, s := range subs {
		select {
		case s.ch <- ev:
		default:
			h.mu.Lock()
			h.dropped++
			h.mu.Unlock()
			h.log.Warn("subscriber buffer full, event dropped",
				"room_id", roomID,
				"subscriber", s.ID,
				"type", string(eventType),
			)
		}
	}
}

// SubscriberCount reports the live listeners on a room.
func (h *Hub) SubscriberCount(roomID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

// ActiveConnections reports all live listeners across rooms.
func (h *Hub) ActiveConnections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.rooms {
		n += len(set)
	}
	return n
}

// DroppedEvents reports how many events were lost to full buffers.
func (h *Hub) DroppedEvents() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dropped
}
