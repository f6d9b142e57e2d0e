package controllers

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/HappyLearnKE/HappyLearn/app/repository"
	"github.com/HappyLearnKE/HappyLearn/internal/pkg/usercontext"
)

// HandleGetProfile returns the caller's account plus learner profile.
func HandleGetProfile(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	factory := repository.GetGlobalFactory()
	user, err := factory.GetUserRepository().GetByID(userCtx.UserID)
	if err != nil {
		log.Printf("profile: user lookup failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load profile"})
	}
	profile, err := factory.GetProfileRepository().GetOrCreateByUserID(userCtx.UserID)
	if err != nil {
		log.Printf("profile: load failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load profile"})
	}

	return c.JSON(fiber.Map{
		"user":    userResponse(user),
		"profile": profile,
	})
}

type profileUpdateRequest struct {
	DisplayName *string `json:"display_name"`
	GradeLevel  *string `json:"grade_level"`
	School      *string `json:"school"`
	County      *string `json:"county"`
	AvatarURL   *string `json:"avatar_url"`
}

// HandleUpdateProfile applies a partial update to the learner profile.
func HandleUpdateProfile(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)

	var req profileUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid request body"})
	}

	repo := repository.GetGlobalFactory().GetProfileRepository()
	profile, err := repo.GetOrCreateByUserID(userID)
	if err != nil {
		log.Printf("profile: load failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load profile"})
	}

	if req.DisplayName != nil {
		profile.DisplayName = strings.TrimSpace(*req.DisplayName)
	}
	if req.GradeLevel != nil {
		profile.GradeLevel = strings.TrimSpace(*req.GradeLevel)
	}
	if req.School != nil {
		profile.School = strings.TrimSpace(*req.School)
	}
	if req.County != nil {
		profile.County = strings.TrimSpace(*req.County)
	}
	if req.AvatarURL != nil {
		profile.AvatarURL = strings.TrimSpace(*req.AvatarURL)
	}

	if err := repo.Update(profile); err != nil {
		log.Printf("profile: update failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to update profile"})
	}

	return c.JSON(fiber.Map{"profile": profile})
}
