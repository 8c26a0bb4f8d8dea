package api

import (
	"net/http"
	"strconv"

	"github.com/BatuhanVarlik/E-Commerce-App-sub002/internal/models"
	"github.com/BatuhanVarlik/E-Commerce-App-sub002/internal/service"
	"github.com/BatuhanVarlik/E-Commerce-App-sub002/pkg/logger"

	"github.com/gin-gonic/gin"
)

// ProductHandler handles catalog requests
type ProductHandler struct {
	service *service.ProductService
	logger  *logger.Logger
}

// NewProductHandler creates a new product handler
func NewProductHandler(service *service.ProductService, logger *logger.Logger) *ProductHandler {
	return &ProductHandler{service: service, logger: logger}
}

// List returns the catalog, filtered by optional category and search query.
func (h *ProductHandler) List(c *gin.Context) {
	products, err := h.service.List(c.Query("category"), c.Query("q"))
	if err != nil {
		h.logger.Error("Error listing products", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list products"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

// Get returns a single product
func (h *ProductHandler) Get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Product ID must be a number"})
		return
	}

	product, err := h.service.GetByID(uint(id))
	if err != nil {
		switch err {
		case service.ErrProductNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		default:
			h.logger.Error("Error getting product", "error", err.Error())
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve product"})
		}
		return
	}
	c.JSON(http.StatusOK, product)
}

// Create adds a catalog entry (admin only, enforced by the router)
func (h *ProductHandler) Create(c *gin.Context) {
	var req models.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	product, err := h.service.Create(&req)
	if err != nil {
		h.logger.Error("Error creating product", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create product"})
		return
	}
	c.JSON(http.StatusCreated, product)
}

// Update applies partial changes to a product (admin only)
func (h *ProductHandler) Update(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Product ID must be a number"})
		return
	}

	var req models.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	product, err := h.service.Update(uint(id), &req)
	if err != nil {
		switch err {
		case service.ErrProductNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		default:
			h.logger.Error("Error updating product", "error", err.Error())
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update product"})
		}
		return
	}
	c.JSON(http.StatusOK, product)
}

// Delete deactivates a product (admin only)
func (h *ProductHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Product ID must be a number"})
		return
	}

	if err := h.service.Delete(uint(id)); err != nil {
		switch err {
		case service.ErrProductNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		default:
			h.logger.Error("Error deleting product", "error", err.Error())
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete product"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product deactivated"})
}
