package repository

import (
	"github.com/BatuhanVarlik/E-Commerce-App-sub002/internal/chat/models"

	"gorm.io/gorm"
)

// AgentRepository persists agent presence records.
type AgentRepository interface {
	Create(agent *models.ChatAgent) error
	GetByID(id uint) (*models.ChatAgent, error)
	GetByUserID(userID uint) (*models.ChatAgent, error)
	Update(agent *models.ChatAgent) error
	List() ([]models.ChatAgent, error)
	ListOnline() ([]models.ChatAgent, error)
}

type GormAgentRepository struct {
	db *gorm.DB
}

func NewGormAgentRepository(db *gorm.DB) *GormAgentRepository {
	return &GormAgentRepository{db: db}
}

func (r *GormAgentRepository) Create(agent *models.ChatAgent) error {
	return r.db.Create(agent).Error
}

func (r *GormAgentRepository) GetByID(id uint) (*models.ChatAgent, error) {
	var agent models.ChatAgent
	if err := r.db.First(&agent, id).Error; err != nil {
		return nil, err
	}
	return &agent, nil
}

func (r *GormAgentRepository) GetByUserID(userID uint) (*models.ChatAgent, error) {
	var agent models.ChatAgent
	if err := r.db.Where("user_id = ?", userID).First(&agent).Error; err != nil {
		return nil, err
	}
	return &agent, nil
}

func (r *GormAgentRepository) Update(agent *models.ChatAgent) error {
	return r.db.Save(agent).Error
}

func (r *GormAgentRepository) List() ([]models.ChatAgent, error) {
	var agents []models.ChatAgent
	err := r.db.Order("id ASC").Find(&agents).Error
	return agents, err
}

func (r *GormAgentRepository) ListOnline() ([]models.ChatAgent, error) {
	var agents []models.ChatAgent
	err := r.db.Where("is_online = ?", true).Order("id ASC").Find(&agents).Error
	return agents, err
}
