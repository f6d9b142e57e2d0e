package models

import "time"

const (
	PlanMonthly   = "monthly"
	PlanQuarterly = "quarterly"
	PlanYearly    = "yearly"
)

const (
	SubscriptionStatusPending   = "pending"
	SubscriptionStatusActive    = "active"
	SubscriptionStatusExpired   = "expired"
	SubscriptionStatusCancelled = "cancelled"
)

const (
	PaymentMethodMpesa  = "mpesa"
	PaymentMethodPayPal = "paypal"
)

// Subscription tracks one purchased access period. Expiry is lazy: nothing
// flips status to expired, readers must compare ExpiresAt against now.
type Subscription struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	UserID        uint       `gorm:"not null;index" json:"user_id"`
	PlanType      string     `gorm:"type:varchar(20);not null" json:"plan_type"`
	Status        string     `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Amount        float64    `gorm:"type:decimal(10,2);not null" json:"amount"`
	PaymentMethod string     `gorm:"type:varchar(20);not null" json:"payment_method"`
	ReceiptNumber string     `gorm:"type:varchar(100);default:''" json:"receipt_number"`
	StartsAt      *time.Time `gorm:"type:timestamp;default:null" json:"starts_at,omitempty"`
	ExpiresAt     *time.Time `gorm:"type:timestamp;default:null;index" json:"expires_at,omitempty"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsCurrentlyActive reports whether the subscription grants premium access now.
func (s *Subscription) IsCurrentlyActive() bool {
	return s.IsActiveAt(time.Now())
}

// IsActiveAt reports whether the subscription grants premium access at t.
func (s *Subscription) IsActiveAt(t time.Time) bool {
	if s.Status != SubscriptionStatusActive {
		return false
	}
	return s.ExpiresAt != nil && s.ExpiresAt.After(t)
}
