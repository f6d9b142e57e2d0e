package repository

import (
	"time"

	"github.com/HappyLearnKE/HappyLearn/app/models"
	"gorm.io/gorm"
)

type subscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository creates a new subscription repository instance
func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

// GetLatestActiveByUserID returns the newest subscription that is active and
// not yet past its expiry. Expiry is evaluated at read time, no background
// sweeper flips rows to expired.
func (r *subscriptionRepository) GetLatestActiveByUserID(userID uint) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.
		Where("user_id = ? AND status = ? AND expires_at > ?", userID, models.SubscriptionStatusActive, time.Now()).
		Order("expires_at DESC").
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// ListByUserID returns the full subscription history, newest first
func (r *subscriptionRepository) ListByUserID(userID uint) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&subs).Error
	return subs, err
}

// CountActive counts subscriptions that are currently usable
func (r *subscriptionRepository) CountActive() (int64, error) {
	var count int64
	err := r.db.Model(&models.Subscription{}).
		Where("status = ? AND expires_at > ?", models.SubscriptionStatusActive, time.Now()).
		Count(&count).Error
	return count, err
}
