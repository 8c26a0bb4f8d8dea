package repository

import (
	"github.com/BatuhanVarlik/E-Commerce-App-sub002/internal/chat/models"

	"gorm.io/gorm"
)

// RoomRepository is the persistence collaborator for chat rooms.
type RoomRepository interface {
	Create(room *models.ChatRoom) error
	GetByID(id uint) (*models.ChatRoom, error)
	Update(room *models.ChatRoom) error
	Delete(id uint) error
	ListByStatus(status models.RoomStatus, limit, offset int) ([]models.ChatRoom, error)
	ListWaiting() ([]models.ChatRoom, error)
	ListByCustomer(customerID uint) ([]models.ChatRoom, error)
	ListByAgent(agentID uint) ([]models.ChatRoom, error)
	CountByStatus() (map[models.RoomStatus]int64, error)
	CountByCategory() (map[string]int64, error)
}

type GormRoomRepository struct {
	db *gorm.DB
}

func NewGormRoomRepository(db *gorm.DB) *GormRoomRepository {
	return &GormRoomRepository{db: db}
}

func (r *GormRoomRepository) Create(room *models.ChatRoom) error {
	return r.db.Create(room).Error
}

func (r *GormRoomRepository) GetByID(id uint) (*models.ChatRoom, error) {
	var room models.ChatRoom
	if err := r.db.First(&room, id).Error; err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *GormRoomRepository) Update(room *models.ChatRoom) error {
	return r.db.Save(room).Error
}

// Delete removes a room and, through the FK constraint, its messages.
func (r *GormRoomRepository) Delete(id uint) error {
	return r.db.Delete(&models.ChatRoom{}, id).Error
}

func (r *GormRoomRepository) ListByStatus(status models.RoomStatus, limit, offset int) ([]models.ChatRoom, error) {
	var rooms []models.ChatRoom
	q := r.db.Where("status = ?", status).
		Order("priority DESC, created_at ASC")
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	err := q.Find(&rooms).Error
	return rooms, err
}

// ListWaiting returns the full assignment queue, oldest first.
func (r *GormRoomRepository) ListWaiting() ([]models.ChatRoom, error) {
	var rooms []models.ChatRoom
	err := r.db.Where("status = ?", models.RoomWaiting).
		Order("created_at ASC").
		Find(&rooms).Error
	return rooms, err
}

func (r *GormRoomRepository) ListByCustomer(customerID uint) ([]models.ChatRoom, error) {
	var rooms []models.ChatRoom
	err := r.db.Where("customer_id = ?", customerID).
		Order("created_at DESC").
		Find(&rooms).Error
	return rooms, err
}

func (r *GormRoomRepository) ListByAgent(agentID uint) ([]models.ChatRoom, error) {
	var rooms []models.ChatRoom
	err := r.db.Where("agent_id = ?", agentID).
		Order("created_at DESC").
		Find(&rooms).Error
	return rooms, err
}

func (r *GormRoomRepository) CountByStatus() (map[models.RoomStatus]int64, error) {
	type row struct {
		Status models.RoomStatus
		N      int64
	}
	var rows []row
	err := r.db.Model(&models.ChatRoom{}).
		Select("status, count(*) as n").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[models.RoomStatus]int64, len(rows))
	for _, rw := range rows {
		out[rw.Status] = rw.N
	}
	return out, nil
}

func (r *GormRoomRepository) CountByCategory() (map[string]int64, error) {
	type row struct {
		Category string
		N        int64
	}
	var rows []row
	err := r.db.Model(&models.ChatRoom{}).
		Select("category, count(*) as n").
		Where("category <> ''").
		Group("category").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, rw := range rows {
		out[rw.Category] = rw.N
	}
	return out, nil
}
