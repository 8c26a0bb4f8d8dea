package ws

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/BatuhanVarlik/E-Commerce-App-sub002/internal/chat/events"
	"github.com/BatuhanVarlik/E-Commerce-App-sub002/internal/chat/service"
	"github.com/BatuhanVarlik/E-Commerce-App-sub002/pkg/jwt"
	"github.com/BatuhanVarlik/E-Commerce-App-sub002/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 64 * 1024
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // origin checks are handled by the CORS layer
	},
	HandshakeTimeout: 10 * time.Second,
	ReadBufferSize:   1024,
	WriteBufferSize:  1024,
}

// inbound is one frame from the client.
type inbound struct {
	Type    string          `json:"type"`
	Content json.RawMessage `json:"content"`
}

// outbound is one frame to the client.
type outbound struct {
	Type    string      `json:"type"`
	Content interface{} `json:"content"`
}

// Handler upgrades chat subscribers onto the event hub and relays their
// messages and typing indicators into the room service.
type Handler struct {
	rooms *service.RoomService
	hub   *events.Hub
	log   *logger.Logger
}

func NewHandler(rooms *service.RoomService, hub *events.Hub, log *logger.Logger) *Handler {
	return &Handler{rooms: rooms, hub: hub, log: log}
}

type client struct {
	id     string
	roomID uint
	actor  service.Actor
	conn   *websocket.Conn
	sub    *events.Subscriber
	send   chan outbound

	handler *Handler
}

// Serve handles GET /ws/chat?room_id=N[&client_id=...]. Authenticated users
// carry their role in the JWT claims set upstream; anonymous connections are
// treated as the room's guest customer.
func (h *Handler) Serve(c *gin.Context) {
	roomID64, err := strconv.ParseUint(c.Query("room_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "room_id is required"})
		return
	}
	roomID := uint(roomID64)
	if _, err := h.rooms.GetRoom(roomID); err != nil {
		if errors.Is(err, service.ErrRoomNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load room"})
		return
	}

	clientID := c.Query("client_id")
	if clientID == "" {
		clientID = uuid.New().String()
	}

	actor := service.Actor{}
	if claims, ok := c.Get("claims"); ok {
		if jc, ok := claims.(*jwt.Claims); ok {
			uid := jc.UserID
			actor.UserID = &uid
			actor.IsAgent = jc.Role == jwt.RoleAgent
			actor.IsAdmin = jc.Role == jwt.RoleAdmin
		}
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "error", err.Error())
		return
	}

	cl := &client{
		id:      clientID,
		roomID:  roomID,
		actor:   actor,
		conn:    conn,
		sub:     h.hub.Subscribe(roomID, clientID),
		send:    make(chan outbound, 16),
		handler: h,
	}

	h.log.Info("websocket subscriber connected",
		"room_id", roomID,
		"client_id", clientID,
		"agent_side", actor.AgentSide(),
	)

	go cl.writePump()
	go cl.readPump()
}

func (c *client) readPump() {
	defer func() {
		c.handler.hub.Unsubscribe(c.sub)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.handler.log.Warn("websocket read error", "client_id", c.id, "error", err.Error())
			}
			return
		}

		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			c.sendError("malformed frame")
			continue
		}
		c.handleFrame(msg)
	}
}

func (c *client) handleFrame(msg inbound) {
	switch msg.Type {
	case "message":
		var body struct {
			Content     string `json:"content"`
			MessageType string `json:"message_type"`
		}
		if err := json.Unmarshal(msg.Content, &body); err != nil || body.Content == "" {
			c.sendError("message content is required")
			return
		}
		if _, err := c.handler.rooms.PostMessage(c.roomID, c.actor, body.Content, body.MessageType); err != nil {
			if errors.Is(err, service.ErrRoomClosed) {
				c.sendError("room is closed")
				return
			}
			c.handler.log.Warn("websocket post failed", "room_id", c.roomID, "error", err.Error())
			c.sendError("failed to send message")
		}

	case "typing":
		var body struct {
			IsTyping bool `json:"is_typing"`
		}
		if err := json.Unmarshal(msg.Content, &body); err != nil {
			return
		}
		var uid uint
		if c.actor.UserID != nil {
			uid = *c.actor.UserID
		}
		c.handler.rooms.Typing(c.roomID, uid, c.actor.AgentSide(), body.IsTyping)

	case "read":
		if err := c.handler.rooms.MarkRead(c.roomID, c.actor); err != nil {
			c.handler.log.Warn("websocket mark-read failed", "room_id", c.roomID, "error", err.Error())
		}

	case "ping":
		c.enqueue(outbound{Type: "pong"})

	default:
		c.sendError("unknown frame type")
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.sub.Events():
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(outbound{Type: string(ev.Type), Content: ev}); err != nil {
				return
			}

		case out := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(out); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// enqueue drops the frame if the client's buffer is full rather than block.
func (c *client) enqueue(out outbound) {
	select {
	case c.send <- out:
	default:
	}
}

func (c *client) sendError(text string) {
	c.enqueue(outbound{Type: "error", Content: map[string]string{"message": text}})
}

