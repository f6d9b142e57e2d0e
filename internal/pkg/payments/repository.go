package payments

import (
	"time"

	"github.com/HappyLearnKE/HappyLearn/app/models"
	"gorm.io/gorm"
)

// Repository provides DB operations used by the payment service.
type Repository interface {
	CreateInitiatedPayment(sub *models.Subscription, txn *models.PaymentTransaction) error
	GetTransactionByCheckoutRequestID(checkoutRequestID string) (*models.PaymentTransaction, error)
	GetTransactionByOrderID(orderID string) (*models.PaymentTransaction, error)
	GetSubscriptionByID(id uint) (*models.Subscription, error)
	CompletePayment(txn *models.PaymentTransaction, receipt string, resultDesc string, startsAt, expiresAt time.Time) error
	FailPayment(txn *models.PaymentTransaction, resultCode int, resultDesc string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a payment repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

// CreateInitiatedPayment writes the pending subscription and its initiated
// transaction atomically so a crash cannot leave one without the other.
func (r *gormRepository) CreateInitiatedPayment(sub *models.Subscription, txn *models.PaymentTransaction) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(sub).Error; err != nil {
			return err
		}
		txn.SubscriptionID = sub.ID
		return tx.Create(txn).Error
	})
}

func (r *gormRepository) GetTransactionByCheckoutRequestID(checkoutRequestID string) (*models.PaymentTransaction, error) {
	var txn models.PaymentTransaction
	err := r.db.Where("checkout_request_id = ?", checkoutRequestID).First(&txn).Error
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *gormRepository) GetTransactionByOrderID(orderID string) (*models.PaymentTransaction, error) {
	var txn models.PaymentTransaction
	err := r.db.Where("order_id = ?", orderID).First(&txn).Error
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *gormRepository) GetSubscriptionByID(id uint) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.First(&sub, id).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// CompletePayment marks the transaction completed and activates the paired
// subscription in one DB transaction.
func (r *gormRepository) CompletePayment(txn *models.PaymentTransaction, receipt string, resultDesc string, startsAt, expiresAt time.Time) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.PaymentTransaction{}).
			Where("id = ?", txn.ID).
			Updates(map[string]interface{}{
				"status":         models.TransactionStatusCompleted,
				"result_code":    0,
				"result_desc":    resultDesc,
				"receipt_number": receipt,
			}).Error; err != nil {
			return err
		}

		return tx.Model(&models.Subscription{}).
			Where("id = ?", txn.SubscriptionID).
			Updates(map[string]interface{}{
				"status":         models.SubscriptionStatusActive,
				"receipt_number": receipt,
				"starts_at":      startsAt,
				"expires_at":     expiresAt,
			}).Error
	})
}

// FailPayment marks the transaction failed and cancels the paired
// subscription in one DB transaction.
func (r *gormRepository) FailPayment(txn *models.PaymentTransaction, resultCode int, resultDesc string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.PaymentTransaction{}).
			Where("id = ?", txn.ID).
			Updates(map[string]interface{}{
				"status":      models.TransactionStatusFailed,
				"result_code": resultCode,
				"result_desc": resultDesc,
			}).Error; err != nil {
			return err
		}

		return tx.Model(&models.Subscription{}).
			Where("id = ?", txn.SubscriptionID).
			Update("status", models.SubscriptionStatusCancelled).Error
	})
}
