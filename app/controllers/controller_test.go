package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/HappyLearnKE/HappyLearn/app/models"
	"github.com/HappyLearnKE/HappyLearn/app/repository"
	"github.com/HappyLearnKE/HappyLearn/internal/pkg/env"
	"github.com/HappyLearnKE/HappyLearn/internal/pkg/payments"
	"github.com/HappyLearnKE/HappyLearn/internal/pkg/usercontext"
	"github.com/HappyLearnKE/HappyLearn/internal/testutil"
)

// newTestApp wires a fiber app against an in-memory database. Protected
// routes are mounted behind a stub that injects the given user identity.
func newTestApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	repository.InitializeFactory(db)
	SetPaymentService(payments.NewServiceFromDB(db))

	env.Env = map[string]string{
		"APP_ENV":    "dev",
		"JWT_SECRET": "test-secret",
	}
	t.Cleanup(func() { env.Env = nil })

	return fiber.New(), db
}

func asUser(userID uint, name, role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(usercontext.KeyUserContext, usercontext.UserContext{
			UserID:     userID,
			Username:   name,
			Role:       role,
			IsLoggedIn: true,
		})
		c.Locals(usercontext.KeyFromProtected, true)
		c.Locals(usercontext.KeyUserID, userID)
		return c.Next()
	}
}

func jsonRequest(t *testing.T, app *fiber.App, method, target string, body any, headers map[string]string) (int, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	parsed := map[string]any{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &parsed); err != nil {
			t.Fatalf("decode response %q: %v", raw, err)
		}
	}
	return resp.StatusCode, parsed
}

func stkCallbackBody(checkoutID string, resultCode int, amount float64, receipt string) map[string]any {
	stk := map[string]any{
		"MerchantRequestID": "mr-1",
		"CheckoutRequestID": checkoutID,
		"ResultCode":        resultCode,
		"ResultDesc":        "The service request is processed successfully.",
	}
	if resultCode == 0 {
		stk["CallbackMetadata"] = map[string]any{
			"Item": []map[string]any{
				{"Name": "Amount", "Value": amount},
				{"Name": "MpesaReceiptNumber", "Value": receipt},
				{"Name": "PhoneNumber", "Value": 254712345678},
			},
		}
	}
	return map[string]any{"Body": map[string]any{"stkCallback": stk}}
}

func TestRegisterAndLogin(t *testing.T) {
	app, _ := newTestApp(t)
	app.Post("/api/v1/auth/register", HandleRegister)
	app.Post("/api/v1/auth/login", HandleLogin)

	status, body := jsonRequest(t, app, "POST", "/api/v1/auth/register", map[string]any{
		"name":     "Wanjiku Test",
		"email":    "wanjiku@example.com",
		"password": "secret123",
	}, nil)
	if status != fiber.StatusCreated {
		t.Fatalf("register: expected 201, got %d (%v)", status, body)
	}
	if body["token"] == "" || body["token"] == nil {
		t.Fatalf("register: expected a token, got %v", body)
	}

	status, _ = jsonRequest(t, app, "POST", "/api/v1/auth/register", map[string]any{
		"name":     "Wanjiku Again",
		"email":    "wanjiku@example.com",
		"password": "secret123",
	}, nil)
	if status != fiber.StatusConflict {
		t.Fatalf("duplicate register: expected 409, got %d", status)
	}

	status, body = jsonRequest(t, app, "POST", "/api/v1/auth/login", map[string]any{
		"email":    "wanjiku@example.com",
		"password": "secret123",
	}, nil)
	if status != fiber.StatusOK {
		t.Fatalf("login: expected 200, got %d (%v)", status, body)
	}
	if body["token"] == "" || body["token"] == nil {
		t.Fatalf("login: expected a token")
	}

	status, _ = jsonRequest(t, app, "POST", "/api/v1/auth/login", map[string]any{
		"email":    "wanjiku@example.com",
		"password": "wrong",
	}, nil)
	if status != fiber.StatusUnauthorized {
		t.Fatalf("bad password: expected 401, got %d", status)
	}
}

func TestMpesaCallbackProductionIPGate(t *testing.T) {
	app, _ := newTestApp(t)
	env.Env["APP_ENV"] = "prod"
	app.Post("/api/v1/payments/mpesa/callback", HandleMpesaCallback)

	payload := stkCallbackBody("ws_CO_unknown", 0, 500, "TEST123")

	status, _ := jsonRequest(t, app, "POST", "/api/v1/payments/mpesa/callback", payload,
		map[string]string{"X-Forwarded-For": "10.1.2.3"})
	if status != fiber.StatusForbidden {
		t.Fatalf("unlisted IP in production: expected 403, got %d", status)
	}

	status, body := jsonRequest(t, app, "POST", "/api/v1/payments/mpesa/callback", payload,
		map[string]string{"X-Forwarded-For": "196.201.212.74"})
	if status != fiber.StatusOK {
		t.Fatalf("Safaricom IP: expected 200, got %d", status)
	}
	if code, ok := body["ResultCode"].(float64); !ok || code != 0 {
		t.Fatalf("expected ResultCode 0 ack, got %v", body)
	}
}

func TestMpesaCallbackSandboxAcceptsAnyIP(t *testing.T) {
	app, db := newTestApp(t)
	app.Post("/api/v1/payments/mpesa/callback", HandleMpesaCallback)

	user := testutil.CreateTestUser(t, db, "learner@example.com")
	svc := payments.NewServiceFromDB(db)
	txn, err := svc.BeginPayment(context.Background(), payments.PaymentIntent{
		UserID:            user.ID,
		Plan:              models.PlanMonthly,
		Amount:            500,
		Method:            models.PaymentMethodMpesa,
		PhoneNumber:       "254712345678",
		CheckoutRequestID: "ws_CO_sandbox_1",
		MerchantRequestID: "mr-1",
	})
	if err != nil {
		t.Fatalf("begin payment: %v", err)
	}

	payload := stkCallbackBody(txn.CheckoutRequestID, 0, 500, "SBX999")
	status, _ := jsonRequest(t, app, "POST", "/api/v1/payments/mpesa/callback", payload,
		map[string]string{"X-Forwarded-For": "10.1.2.3"})
	if status != fiber.StatusOK {
		t.Fatalf("sandbox callback: expected 200, got %d", status)
	}

	var stored models.PaymentTransaction
	if err := db.First(&stored, txn.ID).Error; err != nil {
		t.Fatalf("load transaction: %v", err)
	}
	if stored.Status != models.TransactionStatusCompleted {
		t.Fatalf("expected completed transaction, got %s", stored.Status)
	}

	var sub models.Subscription
	if err := db.First(&sub, stored.SubscriptionID).Error; err != nil {
		t.Fatalf("load subscription: %v", err)
	}
	if sub.Status != models.SubscriptionStatusActive {
		t.Fatalf("expected active subscription, got %s", sub.Status)
	}
}

func TestMpesaCallbackMalformedPayload(t *testing.T) {
	app, _ := newTestApp(t)
	app.Post("/api/v1/payments/mpesa/callback", HandleMpesaCallback)

	status, _ := jsonRequest(t, app, "POST", "/api/v1/payments/mpesa/callback",
		map[string]any{"Body": map[string]any{}}, nil)
	if status != fiber.StatusBadRequest {
		t.Fatalf("malformed callback: expected 400, got %d", status)
	}
}

func TestReportActivityUpdatesProficiency(t *testing.T) {
	app, db := newTestApp(t)
	user := testutil.CreateTestUser(t, db, "skills@example.com")
	app.Post("/api/v1/learning/activities", asUser(user.ID, user.Name, user.Role), HandleReportActivity)
	app.Get("/api/v1/learning/skills", asUser(user.ID, user.Name, user.Role), HandleListSkills)

	status, body := jsonRequest(t, app, "POST", "/api/v1/learning/activities", map[string]any{
		"activity":           "quiz",
		"skill_code":         "math.fractions",
		"score":              1.0,
		"time_spent_seconds": 120,
	}, nil)
	if status != fiber.StatusCreated {
		t.Fatalf("report activity: expected 201, got %d (%v)", status, body)
	}

	skill, ok := body["skill"].(map[string]any)
	if !ok {
		t.Fatalf("expected skill in response, got %v", body)
	}
	// baseline 0.5 + 0.3*(1.0-0.5) = 0.65
	if p := skill["proficiency"].(float64); p < 0.649 || p > 0.651 {
		t.Fatalf("expected proficiency 0.65, got %v", p)
	}

	status, body = jsonRequest(t, app, "GET", "/api/v1/learning/skills", nil, nil)
	if status != fiber.StatusOK {
		t.Fatalf("list skills: expected 200, got %d", status)
	}
	skills := body["skills"].([]any)
	if len(skills) != 1 {
		t.Fatalf("expected one tracked skill, got %d", len(skills))
	}
}

func TestReportActivityRejectsBadScore(t *testing.T) {
	app, db := newTestApp(t)
	user := testutil.CreateTestUser(t, db, "badscore@example.com")
	app.Post("/api/v1/learning/activities", asUser(user.ID, user.Name, user.Role), HandleReportActivity)

	status, _ := jsonRequest(t, app, "POST", "/api/v1/learning/activities", map[string]any{
		"activity":   "quiz",
		"skill_code": "math.fractions",
		"score":      1.5,
	}, nil)
	if status != fiber.StatusBadRequest {
		t.Fatalf("out-of-range score: expected 400, got %d", status)
	}
}

func TestGetMySubscriptionWithoutOne(t *testing.T) {
	app, db := newTestApp(t)
	user := testutil.CreateTestUser(t, db, "nosub@example.com")
	app.Get("/api/v1/subscriptions/me", asUser(user.ID, user.Name, user.Role), HandleGetMySubscription)

	status, body := jsonRequest(t, app, "GET", "/api/v1/subscriptions/me", nil, nil)
	if status != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if premium := body["premium"].(bool); premium {
		t.Fatalf("expected premium=false without a subscription")
	}
}

func TestCapturePayPalOrderOwnership(t *testing.T) {
	app, db := newTestApp(t)
	owner := testutil.CreateTestUser(t, db, "owner@example.com")
	other := testutil.CreateTestUser(t, db, "other@example.com")

	svc := payments.NewServiceFromDB(db)
	if _, err := svc.BeginPayment(context.Background(), payments.PaymentIntent{
		UserID:  owner.ID,
		Plan:    models.PlanMonthly,
		Amount:  3.99,
		Method:  models.PaymentMethodPayPal,
		OrderID: "PP-ORDER-1",
	}); err != nil {
		t.Fatalf("begin payment: %v", err)
	}

	app.Post("/api/v1/payments/paypal/orders/:id/capture",
		asUser(other.ID, other.Name, other.Role), HandleCapturePayPalOrder)

	status, _ := jsonRequest(t, app, "POST", "/api/v1/payments/paypal/orders/PP-ORDER-1/capture", nil, nil)
	if status != fiber.StatusForbidden {
		t.Fatalf("foreign order: expected 403, got %d", status)
	}

	status, _ = jsonRequest(t, app, "POST", "/api/v1/payments/paypal/orders/PP-MISSING/capture", nil, nil)
	if status != fiber.StatusNotFound {
		t.Fatalf("unknown order: expected 404, got %d", status)
	}
}

func TestUpdateProfile(t *testing.T) {
	app, db := newTestApp(t)
	user := testutil.CreateTestUser(t, db, fmt.Sprintf("profile%d@example.com", 1))
	app.Get("/api/v1/profile", asUser(user.ID, user.Name, user.Role), HandleGetProfile)
	app.Put("/api/v1/profile", asUser(user.ID, user.Name, user.Role), HandleUpdateProfile)

	status, body := jsonRequest(t, app, "PUT", "/api/v1/profile", map[string]any{
		"display_name": "Wanjiku",
		"grade_level":  "Grade 4",
		"county":       "Nakuru",
	}, nil)
	if status != fiber.StatusOK {
		t.Fatalf("update profile: expected 200, got %d (%v)", status, body)
	}

	status, body = jsonRequest(t, app, "GET", "/api/v1/profile", nil, nil)
	if status != fiber.StatusOK {
		t.Fatalf("get profile: expected 200, got %d", status)
	}
	profile := body["profile"].(map[string]any)
	if profile["grade_level"] != "Grade 4" || profile["county"] != "Nakuru" {
		t.Fatalf("profile update not persisted: %v", profile)
	}
}
