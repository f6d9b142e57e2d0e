package models

import "time"

const (
	TransactionStatusInitiated = "initiated"
	TransactionStatusPending   = "pending"
	TransactionStatusCompleted = "completed"
	TransactionStatusFailed    = "failed"
	TransactionStatusCancelled = "cancelled"
)

// PaymentTransaction records a single payment attempt against a provider.
// A transaction is written exactly once by the terminal callback/capture;
// replays must hit the idempotency gate in the payments service.
type PaymentTransaction struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	SubscriptionID    uint      `gorm:"not null;index" json:"subscription_id"`
	UserID            uint      `gorm:"not null;index" json:"user_id"`
	Amount            float64   `gorm:"type:decimal(10,2);not null" json:"amount"`
	PaymentMethod     string    `gorm:"type:varchar(20);not null" json:"payment_method"`
	PhoneNumber       string    `gorm:"type:varchar(20);default:''" json:"phone_number"`
	CheckoutRequestID string    `gorm:"type:varchar(100);default:'';index" json:"checkout_request_id"`
	MerchantRequestID string    `gorm:"type:varchar(100);default:''" json:"merchant_request_id"`
	OrderID           string    `gorm:"type:varchar(100);default:'';index" json:"order_id"`
	Status            string    `gorm:"type:varchar(20);not null;default:'initiated';index" json:"status"`
	ResultCode        int       `gorm:"default:0" json:"result_code"`
	ResultDesc        string    `gorm:"type:text" json:"result_desc"`
	ReceiptNumber     string    `gorm:"type:varchar(100);default:''" json:"receipt_number"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsTerminal reports whether the transaction already reached a final state.
func (t *PaymentTransaction) IsTerminal() bool {
	switch t.Status {
	case TransactionStatusCompleted, TransactionStatusFailed, TransactionStatusCancelled:
		return true
	default:
		return false
	}
}
