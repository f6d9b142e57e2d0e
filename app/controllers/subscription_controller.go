package controllers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/HappyLearnKE/HappyLearn/app/repository"
	"github.com/HappyLearnKE/HappyLearn/internal/pkg/entitlements"
	"github.com/HappyLearnKE/HappyLearn/internal/pkg/usercontext"
)

// HandleGetMySubscription answers with the caller's current subscription and
// a computed premium flag. Expiry is evaluated here, not by a background job,
// so a lapsed subscription reads as non-premium immediately.
func HandleGetMySubscription(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)

	sub, err := repository.GetGlobalFactory().GetSubscriptionRepository().GetLatestActiveByUserID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(fiber.Map{
				"premium":      false,
				"subscription": nil,
				"features":     entitlements.FreeFeatures(),
			})
		}
		log.Printf("subscription: lookup failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load subscription"})
	}

	features := entitlements.FreeFeatures()
	if sub.IsCurrentlyActive() {
		features = entitlements.FeaturesFor(sub.PlanType)
	}

	return c.JSON(fiber.Map{
		"premium":  sub.IsCurrentlyActive(),
		"features": features,
		"subscription": fiber.Map{
			"id":             sub.ID,
			"plan_type":      sub.PlanType,
			"status":         sub.Status,
			"amount":         sub.Amount,
			"payment_method": sub.PaymentMethod,
			"receipt_number": sub.ReceiptNumber,
			"starts_at":      formatTimePtr(sub.StartsAt),
			"expires_at":     formatTimePtr(sub.ExpiresAt),
		},
	})
}

// HandleListMySubscriptions returns the caller's full payment history.
func HandleListMySubscriptions(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)

	subs, err := repository.GetGlobalFactory().GetSubscriptionRepository().ListByUserID(userID)
	if err != nil {
		log.Printf("subscription: history lookup failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load subscriptions"})
	}

	return c.JSON(fiber.Map{"subscriptions": subs})
}
