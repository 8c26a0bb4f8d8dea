package models

import (
	"strings"
	"time"
)

// RoomStatus is the lifecycle state of a support conversation.
type RoomStatus string

const (
	RoomOpen     RoomStatus = "open"
	RoomWaiting  RoomStatus = "waiting"
	RoomAssigned RoomStatus = "assigned"
	RoomResolved RoomStatus = "resolved"
	RoomClosed   RoomStatus = "closed"
)

// Terminal reports whether no further messages are accepted.
func (s RoomStatus) Terminal() bool {
	return s == RoomClosed
}

// RoomPriority orders the waiting queue for the UI; routing treats it as a hint.
type RoomPriority string

const (
	PriorityLow    RoomPriority = "low"
	PriorityNormal RoomPriority = "normal"
	PriorityHigh   RoomPriority = "high"
	PriorityUrgent RoomPriority = "urgent"
)

// Message types
const (
	MessageText  = "text"
	MessageImage = "image"
	MessageFile  = "file"
)

// ChatRoom is one customer-support conversation thread.
//
// AgentID is set if and only if Status is assigned or resolved.
// SatisfactionRating is set only once the room is resolved or closed.
type ChatRoom struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	CustomerID *uint  `gorm:"index" json:"customer_id,omitempty"`
	GuestEmail string `json:"guest_email,omitempty"`
	GuestName  string `json:"guest_name,omitempty"`
	AgentID    *uint  `gorm:"index" json:"agent_id,omitempty"`

	Status   RoomStatus   `gorm:"index;default:open" json:"status"`
	Priority RoomPriority `gorm:"index;default:normal" json:"priority"`

	Subject  string `json:"subject,omitempty"`
	Category string `gorm:"index" json:"category,omitempty"`
	// Correlation hints back into the storefront; never dereferenced by the core.
	OrderID   *uint `json:"order_id,omitempty"`
	ProductID *uint `json:"product_id,omitempty"`

	MessageCount       int        `json:"message_count"`
	LastMessageAt      *time.Time `json:"last_message_at,omitempty"`
	AssignedAt         *time.Time `json:"assigned_at,omitempty"`
	ResolvedAt         *time.Time `json:"resolved_at,omitempty"`
	ClosedAt           *time.Time `json:"closed_at,omitempty"`
	ClosingNote        string     `json:"closing_note,omitempty"`
	SatisfactionRating *int       `json:"satisfaction_rating,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Messages []ChatMessage `gorm:"constraint:OnDelete:CASCADE" json:"messages,omitempty"`
}

// ChatMessage belongs to exactly one room and is immutable once written,
// except for the read-state fields.
type ChatMessage struct {
	ID       uint  `gorm:"primaryKey" json:"id"`
	RoomID   uint  `gorm:"index" json:"room_id"`
	SenderID *uint `json:"sender_id,omitempty"` // nil means system/bot

	IsFromAdmin bool `json:"is_from_admin"`
	IsFromBot   bool `json:"is_from_bot"`

	Content     string `json:"content"`
	MessageType string `gorm:"default:text" json:"message_type"`

	AttachmentURL  string `json:"attachment_url,omitempty"`
	AttachmentName string `json:"attachment_name,omitempty"`

	IsRead bool       `json:"is_read"`
	ReadAt *time.Time `json:"read_at,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// ChatAgent is the presence record for one human support agent, tied 1:1 to a
// user account. ActiveChats must always equal the number of rooms currently
// assigned to the agent; the assigner owns that invariant.
type ChatAgent struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	UserID uint `gorm:"uniqueIndex" json:"user_id"`

	IsOnline    bool `json:"is_online"`
	IsAvailable bool `json:"is_available"`

	ActiveChats        int `json:"active_chats"`
	MaxConcurrentChats int `gorm:"default:3" json:"max_concurrent_chats"`

	TotalChatsHandled   int     `json:"total_chats_handled"`
	AverageResponseTime float64 `json:"average_response_time"` // seconds
	AverageRating       float64 `json:"average_rating"`

	// Comma-joined category tags, e.g. "billing,shipping".
	Specializations string `json:"specializations,omitempty"`

	LastActiveAt time.Time `json:"last_active_at"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// SpecializationList splits the stored tags.
func (a *ChatAgent) SpecializationList() []string {
	if a.Specializations == "" {
		return nil
	}
	parts := strings.Split(a.Specializations, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, strings.ToLower(p))
		}
	}
	return out
}

// HasSpecialization reports whether the agent is tagged for the category.
func (a *ChatAgent) HasSpecialization(category string) bool {
	category = strings.ToLower(strings.TrimSpace(category))
	if category == "" {
		return false
	}
	for _, s := range a.SpecializationList() {
		if s == category {
			return true
		}
	}
	return false
}

// ChatbotResponse is one keyword rule of the automated responder.
// HitCount is a popularity hint only; lost increments under races are fine.
type ChatbotResponse struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Question string `json:"question"`

	// Lowercase tokens, comma-joined, e.g. "kargo,nerede,teslimat".
	Keywords string `json:"keywords"`
	Answer   string `json:"answer"`
	Category string `gorm:"index" json:"category,omitempty"`

	// Comma-joined suggested replies shown to the customer.
	QuickReplies string `json:"quick_replies,omitempty"`
	ActionType   string `json:"action_type,omitempty"`
	ActionData   string `json:"action_data,omitempty"`

	Priority int  `gorm:"default:1" json:"priority"`
	IsActive bool `gorm:"index;default:true" json:"is_active"`
	HitCount int  `json:"hit_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// KeywordList splits the stored keywords into lowercase tokens.
func (r *ChatbotResponse) KeywordList() []string {
	if r.Keywords == "" {
		return nil
	}
	parts := strings.Split(r.Keywords, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// QuickReplyList splits the stored quick replies.
func (r *ChatbotResponse) QuickReplyList() []string {
	if r.QuickReplies == "" {
		return nil
	}
	parts := strings.Split(r.QuickReplies, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
