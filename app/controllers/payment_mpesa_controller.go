package controllers

import (
	"log"
	"sync"

	"github.com/gofiber/fiber/v2"

	"github.com/HappyLearnKE/HappyLearn/app/models"
	"github.com/HappyLearnKE/HappyLearn/internal/pkg/database"
	"github.com/HappyLearnKE/HappyLearn/internal/pkg/env"
	"github.com/HappyLearnKE/HappyLearn/internal/pkg/payments"
	"github.com/HappyLearnKE/HappyLearn/internal/pkg/usercontext"
)

var (
	paymentMu      sync.Mutex
	paymentService *payments.Service
	mpesaClient    *payments.MpesaClient
	paypalClient   *payments.PayPalClient
)

func getPaymentService() *payments.Service {
	paymentMu.Lock()
	defer paymentMu.Unlock()
	if paymentService == nil {
		paymentService = payments.NewServiceFromDB(database.GetDB())
	}
	return paymentService
}

// SetPaymentService swaps the payment service, used by tests.
func SetPaymentService(s *payments.Service) {
	paymentMu.Lock()
	defer paymentMu.Unlock()
	paymentService = s
}

func getMpesaClient() *payments.MpesaClient {
	paymentMu.Lock()
	defer paymentMu.Unlock()
	if mpesaClient == nil {
		mpesaClient = payments.NewMpesaClientFromEnv(env.GetEnv, env.IsProduction())
	}
	return mpesaClient
}

// SetMpesaClient swaps the Daraja client, used by tests.
func SetMpesaClient(c *payments.MpesaClient) {
	paymentMu.Lock()
	defer paymentMu.Unlock()
	mpesaClient = c
}

type stkPushRequest struct {
	Plan        string `json:"plan"`
	PhoneNumber string `json:"phone_number"`
}

// HandleMpesaSTKPush initiates an M-Pesa payment for the authenticated user:
// push prompt to the phone first, then a pending subscription plus an
// initiated transaction keyed by the returned CheckoutRequestID.
func HandleMpesaSTKPush(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)

	var req stkPushRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid request body"})
	}

	plan, err := payments.NormalizePlan(req.Plan)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	}
	phone, err := payments.NormalizePhoneNumber(req.PhoneNumber)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	}
	amount, _ := payments.PriceKES(plan)

	client := getMpesaClient()
	if err := client.CheckConfig(); err != nil {
		log.Printf("mpesa stkpush: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "M-Pesa is not configured"})
	}

	push, err := client.STKPush(c.Context(), phone, amount, "HappyLearn "+plan, "HappyLearn subscription")
	if err != nil {
		log.Printf("mpesa stkpush: vendor call failed: %v", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "payment_gateway_error", "message": "M-Pesa did not accept the payment request"})
	}

	_, err = getPaymentService().BeginPayment(c.Context(), payments.PaymentIntent{
		UserID:            userID,
		Plan:              plan,
		Amount:            amount,
		Method:            models.PaymentMethodMpesa,
		PhoneNumber:       phone,
		CheckoutRequestID: push.CheckoutRequestID,
		MerchantRequestID: push.MerchantRequestID,
	})
	if err != nil {
		log.Printf("mpesa stkpush: recording initiation failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to record payment"})
	}

	return c.JSON(fiber.Map{
		"checkout_request_id": push.CheckoutRequestID,
		"merchant_request_id": push.MerchantRequestID,
		"amount":              amount,
		"currency":            "KES",
		"plan":                plan,
		"customer_message":    push.CustomerMessage,
	})
}

// HandleMpesaCallback receives the asynchronous Daraja result. In production
// the source IP must belong to Safaricom's published callback ranges. The
// vendor always gets a success ack once the payload parses; retries of a
// terminal result are absorbed without writes.
func HandleMpesaCallback(c *fiber.Ctx) error {
	ip := ClientIP(c)
	if env.IsProduction() {
		if !payments.IsAllowlistedCallbackIP(ip) {
			log.Printf("mpesa callback: rejected source IP %s", ip)
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "Unrecognized callback origin"})
		}
	} else if !payments.IsAllowlistedCallbackIP(ip) {
		log.Printf("mpesa callback: non-production request from unlisted IP %s, accepting", ip)
	}

	event, err := payments.ParseSTKCallback(c.Body())
	if err != nil {
		log.Printf("mpesa callback: malformed payload: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Malformed callback payload"})
	}

	outcome, err := getPaymentService().ProcessSTKCallback(c.Context(), event)
	if err != nil {
		// Ack anyway so Safaricom stops retrying; the failure is ours to chase.
		log.Printf("mpesa callback: processing failed for %s: %v", event.CheckoutRequestID, err)
		return c.JSON(fiber.Map{"ResultCode": 0, "ResultDesc": "Accepted"})
	}

	switch {
	case outcome.NotFound:
		return c.JSON(fiber.Map{"ResultCode": 0, "ResultDesc": "Accepted"})
	case outcome.AlreadyProcessed:
		return c.JSON(fiber.Map{"ResultCode": 0, "ResultDesc": "Already processed"})
	default:
		return c.JSON(fiber.Map{"ResultCode": 0, "ResultDesc": "Accepted"})
	}
}
