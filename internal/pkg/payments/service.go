package payments

import (
	"context"
	"errors"
	"log"
	"math"
	"strings"
	"time"

	"github.com/HappyLearnKE/HappyLearn/app/models"
	"gorm.io/gorm"
)

var (
	// ErrAmountMismatch rejects an initiation amount that does not exactly
	// match the plan's listed price.
	ErrAmountMismatch = errors.New("amount does not match plan price")
	// ErrOrderNotFound means no local transaction matches the vendor order.
	ErrOrderNotFound = errors.New("no transaction for order")
	// ErrNotOwner means the transaction belongs to a different user.
	ErrNotOwner = errors.New("transaction owned by another user")
	// ErrCaptureIncomplete means the vendor did not report a completed capture.
	ErrCaptureIncomplete = errors.New("capture not completed")
)

// Service drives the payment state machine:
// transaction initiated -> pending -> {completed | failed}, with an absorbing
// already-processed answer for replayed terminal callbacks; subscription
// pending -> {active | cancelled}.
type Service struct {
	repo Repository

	// now is swapped in tests to pin expiry arithmetic
	now func() time.Time
}

// NewService creates a payment service from an injected repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// NewServiceFromDB creates a payment service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(NewRepository(db))
}

// PaymentIntent is the validated input for opening a payment attempt.
// UserID always comes from the authenticated request context.
type PaymentIntent struct {
	UserID            uint
	Plan              string
	Amount            float64
	Method            string
	PhoneNumber       string
	CheckoutRequestID string
	MerchantRequestID string
	OrderID           string
}

// BeginPayment records a pending subscription plus an initiated transaction
// after validating plan and exact amount. Called after the vendor accepted
// the initiation request.
func (s *Service) BeginPayment(ctx context.Context, in PaymentIntent) (*models.PaymentTransaction, error) {
	_ = ctx
	plan, err := NormalizePlan(in.Plan)
	if err != nil {
		return nil, err
	}

	var expected float64
	switch in.Method {
	case models.PaymentMethodMpesa:
		expected, _ = PriceKES(plan)
	case models.PaymentMethodPayPal:
		expected, _ = PriceUSD(plan)
	default:
		return nil, errors.New("unknown payment method: " + in.Method)
	}
	if math.Abs(in.Amount-expected) > 0.009 {
		return nil, ErrAmountMismatch
	}

	sub := &models.Subscription{
		UserID:        in.UserID,
		PlanType:      plan,
		Status:        models.SubscriptionStatusPending,
		Amount:        in.Amount,
		PaymentMethod: in.Method,
	}
	txn := &models.PaymentTransaction{
		UserID:            in.UserID,
		Amount:            in.Amount,
		PaymentMethod:     in.Method,
		PhoneNumber:       in.PhoneNumber,
		CheckoutRequestID: in.CheckoutRequestID,
		MerchantRequestID: in.MerchantRequestID,
		OrderID:           in.OrderID,
		Status:            models.TransactionStatusInitiated,
	}
	if err := s.repo.CreateInitiatedPayment(sub, txn); err != nil {
		return nil, err
	}
	return txn, nil
}

// CallbackOutcome describes what the M-Pesa callback handler should
// acknowledge; the vendor always receives a success envelope.
type CallbackOutcome struct {
	NotFound         bool
	AlreadyProcessed bool
	Completed        bool
	AmountMismatch   bool
	Transaction      *models.PaymentTransaction
}

// ProcessSTKCallback applies a parsed Daraja callback to the local state.
// Replays of terminal callbacks are absorbed without writes (idempotency
// gate); an amount mismatch on success is logged, not rejected.
func (s *Service) ProcessSTKCallback(ctx context.Context, ev *STKCallbackEvent) (*CallbackOutcome, error) {
	_ = ctx
	txn, err := s.repo.GetTransactionByCheckoutRequestID(ev.CheckoutRequestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("mpesa callback: unknown CheckoutRequestID %q", ev.CheckoutRequestID)
			return &CallbackOutcome{NotFound: true}, nil
		}
		return nil, err
	}

	if txn.IsTerminal() {
		return &CallbackOutcome{AlreadyProcessed: true, Transaction: txn}, nil
	}

	if ev.ResultCode != 0 {
		if err := s.repo.FailPayment(txn, ev.ResultCode, ev.ResultDesc); err != nil {
			return nil, err
		}
		return &CallbackOutcome{Transaction: txn}, nil
	}

	outcome := &CallbackOutcome{Completed: true, Transaction: txn}
	if ev.Amount > 0 && math.Abs(ev.Amount-txn.Amount) > 0.009 {
		// Documented leniency: credit anyway, record the discrepancy.
		outcome.AmountMismatch = true
		log.Printf("mpesa callback: amount mismatch for %s: expected %.2f, vendor reported %.2f",
			ev.CheckoutRequestID, txn.Amount, ev.Amount)
	}

	sub, err := s.repo.GetSubscriptionByID(txn.SubscriptionID)
	if err != nil {
		return nil, err
	}
	startsAt := s.now()
	expiresAt, err := ExpiryFrom(startsAt, sub.PlanType)
	if err != nil {
		return nil, err
	}

	resultDesc := ev.ResultDesc
	if outcome.AmountMismatch {
		resultDesc = strings.TrimSpace(resultDesc + " (amount mismatch)")
	}
	if err := s.repo.CompletePayment(txn, ev.ReceiptNumber, resultDesc, startsAt, expiresAt); err != nil {
		return nil, err
	}
	return outcome, nil
}

// FindOrderTransaction resolves a PayPal order id to the caller's local
// transaction. Handlers use it to reject foreign or unknown orders before
// touching the vendor.
func (s *Service) FindOrderTransaction(userID uint, orderID string) (*models.PaymentTransaction, error) {
	txn, err := s.repo.GetTransactionByOrderID(orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if txn.UserID != userID {
		return nil, ErrNotOwner
	}
	return txn, nil
}

// CompleteCapture applies a PayPal capture for the authenticated user.
// Unlike the push callback, the caller is a user request, so ownership is
// enforced and not-found is an error.
func (s *Service) CompleteCapture(ctx context.Context, userID uint, capture *PayPalCapture) (*models.PaymentTransaction, error) {
	_ = ctx
	txn, err := s.repo.GetTransactionByOrderID(capture.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if txn.UserID != userID {
		return nil, ErrNotOwner
	}
	if txn.IsTerminal() {
		return txn, nil
	}
	if capture.Status != PayPalOrderCompleted {
		if err := s.repo.FailPayment(txn, 1, "capture status "+capture.Status); err != nil {
			return nil, err
		}
		return nil, ErrCaptureIncomplete
	}

	if capture.Amount > 0 && math.Abs(capture.Amount-txn.Amount) > 0.009 {
		log.Printf("paypal capture: amount mismatch for order %s: expected %.2f, vendor reported %.2f",
			capture.OrderID, txn.Amount, capture.Amount)
	}

	sub, err := s.repo.GetSubscriptionByID(txn.SubscriptionID)
	if err != nil {
		return nil, err
	}
	startsAt := s.now()
	expiresAt, err := ExpiryFrom(startsAt, sub.PlanType)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CompletePayment(txn, capture.CaptureID, "capture completed", startsAt, expiresAt); err != nil {
		return nil, err
	}
	txn.Status = models.TransactionStatusCompleted
	txn.ReceiptNumber = capture.CaptureID
	return txn, nil
}
