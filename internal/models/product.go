package models

import "time"

// Product is one catalog entry. Prices are stored in the smallest currency
// unit (kuruş/cents) to avoid float drift in order totals.
type Product struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"index" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	Category    string    `gorm:"index" json:"category"`
	PriceCents  int64     `json:"price_cents"`
	Stock       int       `json:"stock"`
	ImageURL    string    `json:"image_url,omitempty"`
	IsActive    bool      `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateProductRequest is the admin request to add a catalog entry
type CreateProductRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Category    string `json:"category" binding:"required"`
	PriceCents  int64  `json:"price_cents" binding:"required,gt=0"`
	Stock       int    `json:"stock" binding:"gte=0"`
	ImageURL    string `json:"image_url"`
}

// UpdateProductRequest carries partial product updates
type UpdateProductRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	PriceCents  *int64  `json:"price_cents"`
	Stock       *int    `json:"stock"`
	ImageURL    *string `json:"image_url"`
	IsActive    *bool   `json:"is_active"`
}
