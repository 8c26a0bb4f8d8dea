package service

import (
	"errors"
	"strings"

	"github.com/BatuhanVarlik/E-Commerce-App-sub002/internal/models"
	"github.com/BatuhanVarlik/E-Commerce-App-sub002/pkg/cache"

	"gorm.io/gorm"
)

var ErrProductNotFound = errors.New("product not found")

const productListCacheKey = "products:active"

// ProductService handles catalog reads and admin catalog management. The
// active product list is cached; any write invalidates it.
type ProductService struct {
	db    *gorm.DB
	cache *cache.Cache
}

// NewProductService creates a new product service
func NewProductService(db *gorm.DB, c *cache.Cache) *ProductService {
	return &ProductService{db: db, cache: c}
}

// List returns active products, optionally filtered by category and a
// case-insensitive name search.
func (s *ProductService) List(category, search string) ([]models.Product, error) {
	if category == "" && search == "" {
		if cached, ok := s.cache.Get(productListCacheKey); ok {
			if products, ok := cached.([]models.Product); ok {
				return products, nil
			}
		}
	}

	query := s.db.Where("is_active = ?", true)
	if category != "" {
		query = query.Where("category = ?", category)
	}
	if search != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}

	var products []models.Product
	if err := query.Order("id ASC").Find(&products).Error; err != nil {
		return nil, err
	}

	if category == "" && search == "" {
		s.cache.Set(productListCacheKey, products)
	}
	return products, nil
}

// GetByID retrieves a single product.
func (s *ProductService) GetByID(id uint) (*models.Product, error) {
	var product models.Product
	result := s.db.First(&product, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, result.Error
	}
	return &product, nil
}

// Create adds a catalog entry.
func (s *ProductService) Create(req *models.CreateProductRequest) (*models.Product, error) {
	product := models.Product{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		PriceCents:  req.PriceCents,
		Stock:       req.Stock,
		ImageURL:    req.ImageURL,
		IsActive:    true,
	}
	if err := s.db.Create(&product).Error; err != nil {
		return nil, err
	}
	s.cache.Delete(productListCacheKey)
	return &product, nil
}

// Update applies the non-nil fields of the request.
func (s *ProductService) Update(id uint, req *models.UpdateProductRequest) (*models.Product, error) {
	product, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		product.Name = *req.Name
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	if req.Category != nil {
		product.Category = *req.Category
	}
	if req.PriceCents != nil {
		product.PriceCents = *req.PriceCents
	}
	if req.Stock != nil {
		product.Stock = *req.Stock
	}
	if req.ImageURL != nil {
		product.ImageURL = *req.ImageURL
	}
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}

	if err := s.db.Save(product).Error; err != nil {
		return nil, err
	}
	s.cache.Delete(productListCacheKey)
	return product, nil
}

// Delete deactivates a product. Order history keeps referencing it, so rows
// are never hard-deleted.
func (s *ProductService) Delete(id uint) error {
	result := s.db.Model(&models.Product{}).Where("id = ?", id).Update("is_active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrProductNotFound
	}
	s.cache.Delete(productListCacheKey)
	return nil
}
