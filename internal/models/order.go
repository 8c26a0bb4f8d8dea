package models

import "time"

// OrderStatus tracks an order through fulfilment.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderPaid      OrderStatus = "paid"
	OrderShipped   OrderStatus = "shipped"
	OrderDelivered OrderStatus = "delivered"
	OrderCancelled OrderStatus = "cancelled"
)

// Order is a placed order with its line items.
type Order struct {
	ID             uint        `gorm:"primaryKey" json:"id"`
	UserID         uint        `gorm:"index" json:"user_id"`
	Status         OrderStatus `gorm:"index;default:pending" json:"status"`
	Items          []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	SubtotalCents  int64       `json:"subtotal_cents"`
	DiscountCents  int64       `json:"discount_cents"`
	TotalCents     int64       `json:"total_cents"`
	CouponCode     string      `json:"coupon_code,omitempty"`
	PointsSpent    int         `json:"points_spent"`
	PointsEarned   int         `json:"points_earned"`
	ShippingName   string      `json:"shipping_name"`
	ShippingAddr   string      `gorm:"type:text" json:"shipping_address"`
	TrackingNumber string      `json:"tracking_number,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// OrderItem is one product line inside an order. The unit price is copied
// from the product at purchase time so later price changes do not rewrite
// order history.
type OrderItem struct {
	ID             uint  `gorm:"primaryKey" json:"id"`
	OrderID        uint  `gorm:"index" json:"order_id"`
	ProductID      uint  `gorm:"index" json:"product_id"`
	Quantity       int   `json:"quantity"`
	UnitPriceCents int64 `json:"unit_price_cents"`
}

// CreateOrderRequest is the checkout payload.
type CreateOrderRequest struct {
	Items []struct {
		ProductID uint `json:"product_id" binding:"required"`
		Quantity  int  `json:"quantity" binding:"required,gt=0"`
	} `json:"items" binding:"required,min=1"`
	CouponCode   string `json:"coupon_code"`
	SpendPoints  int    `json:"spend_points" binding:"gte=0"`
	ShippingName string `json:"shipping_name" binding:"required"`
	ShippingAddr string `json:"shipping_address" binding:"required"`
}

// UpdateOrderStatusRequest is the admin status-change payload.
type UpdateOrderStatusRequest struct {
	Status         OrderStatus `json:"status" binding:"required"`
	TrackingNumber string      `json:"tracking_number"`
}
