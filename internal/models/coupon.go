package models

import "time"

// CouponType selects how a coupon's Value is interpreted.
type CouponType string

const (
	// CouponPercent discounts Value percent of the subtotal.
	CouponPercent CouponType = "percent"
	// CouponFixed discounts Value cents off the subtotal.
	CouponFixed CouponType = "fixed"
)

// Coupon is a discount code with validity and usage constraints.
type Coupon struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	Code           string     `gorm:"uniqueIndex" json:"code"`
	Type           CouponType `json:"type"`
	Value          int64      `json:"value"`
	MinAmountCents int64      `json:"min_amount_cents"`
	UsageLimit     int        `json:"usage_limit"` // 0 means unlimited
	UsedCount      int        `json:"used_count"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	IsActive       bool       `gorm:"default:true" json:"is_active"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Usable reports whether the coupon can still be applied at the given time
// to an order of the given subtotal.
func (c *Coupon) Usable(subtotalCents int64, now time.Time) bool {
	if !c.IsActive {
		return false
	}
	if c.ExpiresAt != nil && now.After(*c.ExpiresAt) {
		return false
	}
	if c.UsageLimit > 0 && c.UsedCount >= c.UsageLimit {
		return false
	}
	return subtotalCents >= c.MinAmountCents
}

// Discount computes the discount in cents for the given subtotal, capped at
// the subtotal itself.
func (c *Coupon) Discount(subtotalCents int64) int64 {
	var d int64
	switch c.Type {
	case CouponPercent:
		d = subtotalCents * c.Value / 100
	case CouponFixed:
		d = c.Value
	}
	if d > subtotalCents {
		d = subtotalCents
	}
	return d
}
