package repository

import (
	"github.com/BatuhanVarlik/E-Commerce-App-sub002/internal/chat/models"

	"gorm.io/gorm"
)

// BotResponseRepository reads and maintains the chatbot rule catalog.
type BotResponseRepository interface {
	Create(rule *models.ChatbotResponse) error
	GetByID(id uint) (*models.ChatbotResponse, error)
	Update(rule *models.ChatbotResponse) error
	Delete(id uint) error
	ListActive() ([]models.ChatbotResponse, error)
	ListActiveByCategory(category string) ([]models.ChatbotResponse, error)
	// IncrementHitCount is a best-effort popularity bump; callers may ignore
	// the error.
	IncrementHitCount(id uint) error
}

type GormBotResponseRepository struct {
	db *gorm.DB
}

func NewGormBotResponseRepository(db *gorm.DB) *GormBotResponseRepository {
	return &GormBotResponseRepository{db: db}
}

func (r *GormBotResponseRepository) Create(rule *models.ChatbotResponse) error {
	return r.db.Create(rule).Error
}

func (r *GormBotResponseRepository) GetByID(id uint) (*models.ChatbotResponse, error) {
	var rule models.ChatbotResponse
	if err := r.db.First(&rule, id).Error; err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *GormBotResponseRepository) Update(rule *models.ChatbotResponse) error {
	return r.db.Save(rule).Error
}

func (r *GormBotResponseRepository) Delete(id uint) error {
	return r.db.Delete(&models.ChatbotResponse{}, id).Error
}

func (r *GormBotResponseRepository) ListActive() ([]models.ChatbotResponse, error) {
	var rules []models.ChatbotResponse
	err := r.db.Where("is_active = ?", true).Order("id ASC").Find(&rules).Error
	return rules, err
}

func (r *GormBotResponseRepository) ListActiveByCategory(category string) ([]models.ChatbotResponse, error) {
	var rules []models.ChatbotResponse
	err := r.db.Where("is_active = ? AND category = ?", true, category).
		Order("id ASC").
		Find(&rules).Error
	return rules, err
}

func (r *GormBotResponseRepository) IncrementHitCount(id uint) error {
	return r.db.Model(&models.ChatbotResponse{}).
		Where("id = ?", id).
		UpdateColumn("hit_count", gorm.Expr("hit_count + 1")).Error
}
