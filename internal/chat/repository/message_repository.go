package repository

import (
	"time"

	"github.com/BatuhanVarlik/E-Commerce-App-sub002/internal/chat/models"

	"gorm.io/gorm"
)

// MessageRepository is append-only except for the read-state fields.
type MessageRepository interface {
	Create(message *models.ChatMessage) error
	GetByID(id uint) (*models.ChatMessage, error)
	ListByRoom(roomID uint) ([]models.ChatMessage, error)
	ListByRoomPaginated(roomID uint, limit, offset int) ([]models.ChatMessage, error)
	// MarkRead flags every unread message in the room that was not authored
	// by the reader. Admin/bot messages count as agent-side authorship.
	MarkRead(roomID uint, readerID *uint, readerIsAgentSide bool, at time.Time) (int64, error)
	UnreadCount(roomID uint, readerIsAgentSide bool) (int64, error)
}

type GormMessageRepository struct {
	db *gorm.DB
}

func NewGormMessageRepository(db *gorm.DB) *GormMessageRepository {
	return &GormMessageRepository{db: db}
}

func (r *GormMessageRepository) Create(message *models.ChatMessage) error {
	return r.db.Create(message).Error
}

func (r *GormMessageRepository) GetByID(id uint) (*models.ChatMessage, error) {
	var message models.ChatMessage
	if err := r.db.First(&message, id).Error; err != nil {
		return nil, err
	}
	return &message, nil
}

// ListByRoom returns the room's messages in creation order, ties broken by
// insertion sequence.
func (r *GormMessageRepository) ListByRoom(roomID uint) ([]models.ChatMessage, error) {
	var messages []models.ChatMessage
	err := r.db.Where("room_id = ?", roomID).
		Order("created_at ASC, id ASC").
		Find(&messages).Error
	return messages, err
}

func (r *GormMessageRepository) ListByRoomPaginated(roomID uint, limit, offset int) ([]models.ChatMessage, error) {
	var messages []models.ChatMessage
	err := r.db.Where("room_id = ?", roomID).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Offset(offset).
		Find(&messages).Error
	return messages, err
}

func (r *GormMessageRepository) MarkRead(roomID uint, readerID *uint, readerIsAgentSide bool, at time.Time) (int64, error) {
	q := r.db.Model(&models.ChatMessage{}).
		Where("room_id = ? AND is_read = ?", roomID, false)

	if readerIsAgentSide {
		// Agent reads the customer's messages.
		q = q.Where("is_from_admin = ? AND is_from_bot = ?", false, false)
	} else {
		// Customer reads agent and bot messages.
		q = q.Where("is_from_admin = ? OR is_from_bot = ?", true, true)
	}
	if readerID != nil {
		q = q.Where("sender_id IS NULL OR sender_id <> ?", *readerID)
	}

	res := q.Updates(map[string]interface{}{"is_read": true, "read_at": at})
	return res.RowsAffected, res.Error
}

func (r *GormMessageRepository) UnreadCount(roomID uint, readerIsAgentSide bool) (int64, error) {
	var n int64
	q := r.db.Model(&models.ChatMessage{}).
		Where("room_id = ? AND is_read = ?", roomID, false)
	if readerIsAgentSide {
		q = q.Where("is_from_admin = ? AND is_from_bot = ?", false, false)
	} else {
		q = q.Where("is_from_admin = ? OR is_from_bot = ?", true, true)
	}
	err := q.Count(&n).Error
	return n, err
}
