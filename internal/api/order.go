package api

import (
	"net/http"
	"strconv"

	"github.com/BatuhanVarlik/E-Commerce-App-sub002/internal/models"
	"github.com/BatuhanVarlik/E-Commerce-App-sub002/internal/service"
	"github.com/BatuhanVarlik/E-Commerce-App-sub002/pkg/jwt"
	"github.com/BatuhanVarlik/E-Commerce-App-sub002/pkg/logger"
	"github.com/BatuhanVarlik/E-Commerce-App-sub002/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// OrderHandler handles checkout and order queries
type OrderHandler struct {
	service *service.OrderService
	logger  *logger.Logger
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(service *service.OrderService, logger *logger.Logger) *OrderHandler {
	return &OrderHandler{service: service, logger: logger}
}

// Create places an order for the authenticated user
func (h *OrderHandler) Create(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req models.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	order, err := h.service.Create(claims.UserID, &req)
	if err != nil {
		switch err {
		case service.ErrProductNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": "A product in the cart no longer exists"})
		case service.ErrInsufficientStock:
			c.JSON(http.StatusConflict, gin.H{"error": "Not enough stock for a product in the cart"})
		case service.ErrCouponNotUsable:
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Coupon is expired, exhausted or below its minimum amount"})
		case service.ErrInsufficientPoints:
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Not enough loyalty points"})
		default:
			h.logger.Error("Error placing order", "error", err.Error())
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to place order"})
		}
		return
	}

	c.JSON(http.StatusCreated, order)
}

// List returns the authenticated user's orders
func (h *OrderHandler) List(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	orders, err := h.service.ListByUser(claims.UserID)
	if err != nil {
		h.logger.Error("Error listing orders", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list orders"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// Get returns one order. Customers can only read their own orders.
func (h *OrderHandler) Get(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Order ID must be a number"})
		return
	}

	order, err := h.service.GetByID(uint(id))
	if err != nil {
		switch err {
		case service.ErrOrderNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		default:
			h.logger.Error("Error getting order", "error", err.Error())
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve order"})
		}
		return
	}

	if order.UserID != claims.UserID && !claims.HasRole(jwt.RoleAgent) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You cannot view this order"})
		return
	}
	c.JSON(http.StatusOK, order)
}

// UpdateStatus moves an order through fulfilment (admin only)
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Order ID must be a number"})
		return
	}

	var req models.UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	order, err := h.service.UpdateStatus(uint(id), &req)
	if err != nil {
		switch err {
		case service.ErrOrderNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		case service.ErrInvalidOrderStatus:
			c.JSON(http.StatusConflict, gin.H{"error": "Order cannot move to the requested status"})
		default:
			h.logger.Error("Error updating order status", "error", err.Error())
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update order"})
		}
		return
	}
	c.JSON(http.StatusOK, order)
}
