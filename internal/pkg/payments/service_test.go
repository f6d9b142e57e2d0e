package payments

import (
	"context"
	"testing"
	"time"

	"github.com/HappyLearnKE/HappyLearn/app/models"
	"github.com/HappyLearnKE/HappyLearn/internal/testutil"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*Service, *gorm.DB, *models.User) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	user := testutil.CreateTestUser(t, db, "learner@example.com")
	svc := NewServiceFromDB(db)
	return svc, db, user
}

func TestBeginPaymentRejectsWrongAmount(t *testing.T) {
	svc, _, user := newTestService(t)

	_, err := svc.BeginPayment(context.Background(), PaymentIntent{
		UserID: user.ID,
		Plan:   models.PlanMonthly,
		Amount: 499,
		Method: models.PaymentMethodMpesa,
	})
	if err != ErrAmountMismatch {
		t.Fatalf("expected ErrAmountMismatch, got %v", err)
	}
}

func TestBeginPaymentCreatesPendingRows(t *testing.T) {
	svc, db, user := newTestService(t)

	txn, err := svc.BeginPayment(context.Background(), PaymentIntent{
		UserID:            user.ID,
		Plan:              models.PlanMonthly,
		Amount:            500,
		Method:            models.PaymentMethodMpesa,
		PhoneNumber:       "254712345678",
		CheckoutRequestID: "ws_CO_1",
		MerchantRequestID: "mr_1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if txn.Status != models.TransactionStatusInitiated {
		t.Fatalf("expected initiated transaction, got %q", txn.Status)
	}

	var sub models.Subscription
	if err := db.First(&sub, txn.SubscriptionID).Error; err != nil {
		t.Fatalf("paired subscription missing: %v", err)
	}
	if sub.Status != models.SubscriptionStatusPending {
		t.Fatalf("expected pending subscription, got %q", sub.Status)
	}
	if sub.PlanType != models.PlanMonthly || sub.Amount != 500 {
		t.Fatalf("unexpected subscription fields: %+v", sub)
	}
}

func TestSTKCallbackEndToEnd(t *testing.T) {
	svc, db, user := newTestService(t)
	now := time.Date(2026, 1, 31, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	txn, err := svc.BeginPayment(context.Background(), PaymentIntent{
		UserID:            user.ID,
		Plan:              models.PlanMonthly,
		Amount:            500,
		Method:            models.PaymentMethodMpesa,
		PhoneNumber:       "254712345678",
		CheckoutRequestID: "ws_CO_1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	outcome, err := svc.ProcessSTKCallback(context.Background(), &STKCallbackEvent{
		CheckoutRequestID: "ws_CO_1",
		ResultCode:        0,
		ResultDesc:        "The service request is processed successfully.",
		Amount:            500,
		ReceiptNumber:     "NLJ7RT61SV",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !outcome.Completed || outcome.AlreadyProcessed || outcome.AmountMismatch {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}

	var stored models.PaymentTransaction
	if err := db.First(&stored, txn.ID).Error; err != nil {
		t.Fatalf("transaction lookup failed: %v", err)
	}
	if stored.Status != models.TransactionStatusCompleted {
		t.Fatalf("expected completed transaction, got %q", stored.Status)
	}
	if stored.ReceiptNumber != "NLJ7RT61SV" {
		t.Fatalf("expected receipt recorded, got %q", stored.ReceiptNumber)
	}

	var sub models.Subscription
	if err := db.First(&sub, txn.SubscriptionID).Error; err != nil {
		t.Fatalf("subscription lookup failed: %v", err)
	}
	if sub.Status != models.SubscriptionStatusActive {
		t.Fatalf("expected active subscription, got %q", sub.Status)
	}
	if sub.StartsAt == nil || !sub.StartsAt.Equal(now) {
		t.Fatalf("expected starts_at %v, got %v", now, sub.StartsAt)
	}
	// Jan 31 + 1 calendar month = Feb 28 (2026 is not a leap year).
	wantExpiry := time.Date(2026, 2, 28, 8, 0, 0, 0, time.UTC)
	if sub.ExpiresAt == nil || !sub.ExpiresAt.Equal(wantExpiry) {
		t.Fatalf("expected expires_at %v, got %v", wantExpiry, sub.ExpiresAt)
	}
	if !sub.IsActiveAt(now.Add(time.Hour)) {
		t.Fatalf("expected subscription active just after purchase")
	}
	if sub.IsActiveAt(wantExpiry.Add(time.Hour)) {
		t.Fatalf("expected subscription lazily expired after expires_at")
	}
}

func TestSTKCallbackIdempotency(t *testing.T) {
	svc, db, user := newTestService(t)

	_, err := svc.BeginPayment(context.Background(), PaymentIntent{
		UserID:            user.ID,
		Plan:              models.PlanMonthly,
		Amount:            500,
		Method:            models.PaymentMethodMpesa,
		CheckoutRequestID: "ws_CO_1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ev := &STKCallbackEvent{
		CheckoutRequestID: "ws_CO_1",
		ResultCode:        0,
		ResultDesc:        "ok",
		Amount:            500,
		ReceiptNumber:     "NLJ7RT61SV",
	}
	if _, err := svc.ProcessSTKCallback(context.Background(), ev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var before models.PaymentTransaction
	if err := db.Where("checkout_request_id = ?", "ws_CO_1").First(&before).Error; err != nil {
		t.Fatalf("lookup failed: %v", err)
	}

	// Replay the identical terminal callback twice more.
	for i := 0; i < 2; i++ {
		outcome, err := svc.ProcessSTKCallback(context.Background(), ev)
		if err != nil {
			t.Fatalf("unexpected error on replay %d: %v", i+1, err)
		}
		if !outcome.AlreadyProcessed {
			t.Fatalf("expected replay %d to be absorbed as already processed", i+1)
		}
	}

	var after models.PaymentTransaction
	if err := db.Where("checkout_request_id = ?", "ws_CO_1").First(&after).Error; err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if !after.UpdatedAt.Equal(before.UpdatedAt) || after.Status != before.Status {
		t.Fatalf("replayed callback must not write: before=%+v after=%+v", before, after)
	}
}

func TestSTKCallbackFailureCancelsSubscription(t *testing.T) {
	svc, db, user := newTestService(t)

	txn, err := svc.BeginPayment(context.Background(), PaymentIntent{
		UserID:            user.ID,
		Plan:              models.PlanQuarterly,
		Amount:            1350,
		Method:            models.PaymentMethodMpesa,
		CheckoutRequestID: "ws_CO_2",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	outcome, err := svc.ProcessSTKCallback(context.Background(), &STKCallbackEvent{
		CheckoutRequestID: "ws_CO_2",
		ResultCode:        1032,
		ResultDesc:        "Request cancelled by user",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Completed {
		t.Fatalf("failure callback must not complete the payment")
	}

	var stored models.PaymentTransaction
	if err := db.First(&stored, txn.ID).Error; err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if stored.Status != models.TransactionStatusFailed || stored.ResultCode != 1032 {
		t.Fatalf("expected failed transaction with vendor code, got %+v", stored)
	}

	var sub models.Subscription
	if err := db.First(&sub, txn.SubscriptionID).Error; err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if sub.Status != models.SubscriptionStatusCancelled {
		t.Fatalf("expected cancelled subscription, got %q", sub.Status)
	}
}

func TestSTKCallbackAmountMismatchStillCredits(t *testing.T) {
	svc, db, user := newTestService(t)

	txn, err := svc.BeginPayment(context.Background(), PaymentIntent{
		UserID:            user.ID,
		Plan:              models.PlanMonthly,
		Amount:            500,
		Method:            models.PaymentMethodMpesa,
		CheckoutRequestID: "ws_CO_3",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	outcome, err := svc.ProcessSTKCallback(context.Background(), &STKCallbackEvent{
		CheckoutRequestID: "ws_CO_3",
		ResultCode:        0,
		ResultDesc:        "ok",
		Amount:            480,
		ReceiptNumber:     "NLJ7RT61SV",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !outcome.Completed || !outcome.AmountMismatch {
		t.Fatalf("expected completed outcome with recorded mismatch, got %+v", outcome)
	}

	var stored models.PaymentTransaction
	if err := db.First(&stored, txn.ID).Error; err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if stored.Status != models.TransactionStatusCompleted {
		t.Fatalf("mismatched amount must still credit, got %q", stored.Status)
	}
}

func TestSTKCallbackUnknownCheckoutRequestID(t *testing.T) {
	svc, _, _ := newTestService(t)

	outcome, err := svc.ProcessSTKCallback(context.Background(), &STKCallbackEvent{
		CheckoutRequestID: "ws_CO_unknown",
		ResultCode:        0,
	})
	if err != nil {
		t.Fatalf("unknown correlation id must not error (vendor is acked): %v", err)
	}
	if !outcome.NotFound {
		t.Fatalf("expected NotFound outcome")
	}
}

func TestCompleteCaptureOwnershipAndIdempotency(t *testing.T) {
	svc, db, user := newTestService(t)
	other := testutil.CreateTestUser(t, db, "other@example.com")

	_, err := svc.BeginPayment(context.Background(), PaymentIntent{
		UserID:  user.ID,
		Plan:    models.PlanYearly,
		Amount:  34.99,
		Method:  models.PaymentMethodPayPal,
		OrderID: "5O190127TN364715T",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	capture := &PayPalCapture{
		OrderID:   "5O190127TN364715T",
		Status:    PayPalOrderCompleted,
		CaptureID: "3C679366HH908993F",
		Amount:    34.99,
		Currency:  "USD",
	}

	if _, err := svc.CompleteCapture(context.Background(), other.ID, capture); err != ErrNotOwner {
		t.Fatalf("expected ErrNotOwner for foreign capture, got %v", err)
	}
	if _, err := svc.CompleteCapture(context.Background(), user.ID, &PayPalCapture{OrderID: "missing"}); err != ErrOrderNotFound {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}

	txn, err := svc.CompleteCapture(context.Background(), user.ID, capture)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if txn.Status != models.TransactionStatusCompleted {
		t.Fatalf("expected completed transaction, got %q", txn.Status)
	}

	// Replay is absorbed without another write.
	again, err := svc.CompleteCapture(context.Background(), user.ID, capture)
	if err != nil {
		t.Fatalf("unexpected error on replay: %v", err)
	}
	if again.Status != models.TransactionStatusCompleted {
		t.Fatalf("expected replay to return terminal transaction, got %q", again.Status)
	}

	var sub models.Subscription
	if err := db.Where("user_id = ?", user.ID).First(&sub).Error; err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if sub.Status != models.SubscriptionStatusActive || sub.ReceiptNumber != "3C679366HH908993F" {
		t.Fatalf("unexpected subscription state: %+v", sub)
	}
}
