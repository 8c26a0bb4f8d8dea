package service

import (
	"errors"
	"time"

	"github.com/BatuhanVarlik/E-Commerce-App-sub002/internal/models"
	"github.com/BatuhanVarlik/E-Commerce-App-sub002/pkg/logger"

	"gorm.io/gorm"
)

var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrCouponNotUsable    = errors.New("coupon is not usable for this order")
	ErrInsufficientPoints = errors.New("not enough loyalty points")
	ErrInvalidOrderStatus = errors.New("invalid order status change")
)

// pointsEarnRate: one loyalty point per full currency unit spent.
const pointsEarnRate = 100

// OrderService handles checkout and order lifecycle. Checkout runs inside a
// single DB transaction so stock, coupon usage and loyalty points stay
// consistent.
type OrderService struct {
	db    *gorm.DB
	users *UserService
	log   *logger.Logger
}

// NewOrderService creates a new order service
func NewOrderService(db *gorm.DB, users *UserService, log *logger.Logger) *OrderService {
	return &OrderService{db: db, users: users, log: log}
}

// Create places an order for the user from the request's cart lines.
func (s *OrderService) Create(userID uint, req *models.CreateOrderRequest) (*models.Order, error) {
	var order *models.Order

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var subtotal int64
		items := make([]models.OrderItem, 0, len(req.Items))

		for _, line := range req.Items {
			var product models.Product
			if err := tx.First(&product, line.ProductID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrProductNotFound
				}
				return err
			}
			if !product.IsActive || product.Stock < line.Quantity {
				return ErrInsufficientStock
			}

			result := tx.Model(&models.Product{}).
				Where("id = ? AND stock >= ?", product.ID, line.Quantity).
				Update("stock", gorm.Expr("stock - ?", line.Quantity))
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return ErrInsufficientStock
			}

			items = append(items, models.OrderItem{
				ProductID:      product.ID,
				Quantity:       line.Quantity,
				UnitPriceCents: product.PriceCents,
			})
			subtotal += product.PriceCents * int64(line.Quantity)
		}

		var discount int64
		if req.CouponCode != "" {
			var coupon models.Coupon
			if err := tx.Where("code = ?", req.CouponCode).First(&coupon).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrCouponNotUsable
				}
				return err
			}
			if !coupon.Usable(subtotal, time.Now()) {
				return ErrCouponNotUsable
			}
			discount = coupon.Discount(subtotal)
			if err := tx.Model(&coupon).Update("used_count", gorm.Expr("used_count + 1")).Error; err != nil {
				return err
			}
		}

		pointsSpent := 0
		if req.SpendPoints > 0 {
			var user models.User
			if err := tx.First(&user, userID).Error; err != nil {
				return err
			}
			if user.LoyaltyPoints < req.SpendPoints {
				return ErrInsufficientPoints
			}
			// A point is worth one cent at checkout, never below zero total.
			pointsSpent = req.SpendPoints
			if int64(pointsSpent) > subtotal-discount {
				pointsSpent = int(subtotal - discount)
			}
			if err := s.users.AdjustLoyaltyPoints(tx, userID, -pointsSpent); err != nil {
				return err
			}
		}

		total := subtotal - discount - int64(pointsSpent)
		earned := int(total / pointsEarnRate)

		order = &models.Order{
			UserID:        userID,
			Status:        models.OrderPending,
			Items:         items,
			SubtotalCents: subtotal,
			DiscountCents: discount,
			TotalCents:    total,
			CouponCode:    req.CouponCode,
			PointsSpent:   pointsSpent,
			PointsEarned:  earned,
			ShippingName:  req.ShippingName,
			ShippingAddr:  req.ShippingAddr,
		}
		if err := tx.Create(order).Error; err != nil {
			return err
		}

		if earned > 0 {
			if err := s.users.AdjustLoyaltyPoints(tx, userID, earned); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("order placed",
		"orderID", order.ID,
		"userID", userID,
		"total", order.TotalCents,
	)
	return order, nil
}

// GetByID retrieves an order with its items.
func (s *OrderService) GetByID(id uint) (*models.Order, error) {
	var order models.Order
	result := s.db.Preload("Items").First(&order, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, result.Error
	}
	return &order, nil
}

// ListByUser returns a user's orders, newest first.
func (s *OrderService) ListByUser(userID uint) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&orders).Error
	return orders, err
}

// UpdateStatus moves an order along the fulfilment chain. Cancellation is
// allowed from pending and paid only.
func (s *OrderService) UpdateStatus(id uint, req *models.UpdateOrderStatusRequest) (*models.Order, error) {
	order, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}

	if !validOrderTransition(order.Status, req.Status) {
		return nil, ErrInvalidOrderStatus
	}

	order.Status = req.Status
	if req.TrackingNumber != "" {
		order.TrackingNumber = req.TrackingNumber
	}
	if err := s.db.Save(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func validOrderTransition(from, to models.OrderStatus) bool {
	switch from {
	case models.OrderPending:
		return to == models.OrderPaid || to == models.OrderCancelled
	case models.OrderPaid:
		return to == models.OrderShipped || to == models.OrderCancelled
	case models.OrderShipped:
		return to == models.OrderDelivered
	default:
		return false
	}
}
