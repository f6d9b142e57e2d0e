package controllers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/HappyLearnKE/HappyLearn/app/models"
	"github.com/HappyLearnKE/HappyLearn/internal/pkg/env"
	"github.com/HappyLearnKE/HappyLearn/internal/pkg/payments"
	"github.com/HappyLearnKE/HappyLearn/internal/pkg/usercontext"
)

func getPayPalClient() *payments.PayPalClient {
	paymentMu.Lock()
	defer paymentMu.Unlock()
	if paypalClient == nil {
		paypalClient = payments.NewPayPalClientFromEnv(env.GetEnv, env.IsProduction())
	}
	return paypalClient
}

// SetPayPalClient swaps the PayPal client, used by tests.
func SetPayPalClient(c *payments.PayPalClient) {
	paymentMu.Lock()
	defer paymentMu.Unlock()
	paypalClient = c
}

type paypalOrderRequest struct {
	Plan string `json:"plan"`
}

// HandleCreatePayPalOrder opens a PayPal order for the authenticated user and
// records the pending subscription keyed by the vendor order id.
func HandleCreatePayPalOrder(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)

	var req paypalOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid request body"})
	}

	plan, err := payments.NormalizePlan(req.Plan)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	}
	amount, _ := payments.PriceUSD(plan)

	client := getPayPalClient()
	if err := client.CheckConfig(); err != nil {
		log.Printf("paypal order: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "PayPal is not configured"})
	}

	order, err := client.CreateOrder(c.Context(), amount, "HappyLearn "+plan)
	if err != nil {
		log.Printf("paypal order: vendor call failed: %v", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "payment_gateway_error", "message": "PayPal did not accept the order"})
	}

	_, err = getPaymentService().BeginPayment(c.Context(), payments.PaymentIntent{
		UserID:  userID,
		Plan:    plan,
		Amount:  amount,
		Method:  models.PaymentMethodPayPal,
		OrderID: order.ID,
	})
	if err != nil {
		log.Printf("paypal order: recording initiation failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to record payment"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"order_id": order.ID,
		"status":   order.Status,
		"amount":   amount,
		"currency": "USD",
		"plan":     plan,
	})
}

// HandleCapturePayPalOrder captures an approved order. The order must belong
// to the caller; a replayed capture of a settled order answers with the stored
// state and performs no writes.
func HandleCapturePayPalOrder(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)
	orderID := c.Params("id")

	svc := getPaymentService()

	txn, err := svc.FindOrderTransaction(userID, orderID)
	if err != nil {
		switch {
		case errors.Is(err, payments.ErrOrderNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Unknown order"})
		case errors.Is(err, payments.ErrNotOwner):
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "Order belongs to another user"})
		default:
			log.Printf("paypal capture: lookup failed for %s: %v", orderID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Capture failed"})
		}
	}
	if txn.IsTerminal() {
		return c.JSON(fiber.Map{
			"order_id":          orderID,
			"status":            txn.Status,
			"receipt_number":    txn.ReceiptNumber,
			"already_processed": true,
		})
	}

	capture, err := getPayPalClient().CaptureOrder(c.Context(), orderID)
	if err != nil {
		log.Printf("paypal capture: vendor call failed for %s: %v", orderID, err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "payment_gateway_error", "message": "PayPal capture failed"})
	}

	txn, err = svc.CompleteCapture(c.Context(), userID, capture)
	if err != nil {
		if errors.Is(err, payments.ErrCaptureIncomplete) {
			return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{"error": "payment_incomplete", "message": "PayPal reported the capture as not completed"})
		}
		log.Printf("paypal capture: applying capture failed for %s: %v", orderID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Capture failed"})
	}

	return c.JSON(fiber.Map{
		"order_id":       orderID,
		"status":         txn.Status,
		"receipt_number": txn.ReceiptNumber,
	})
}
