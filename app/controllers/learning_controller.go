package controllers

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/HappyLearnKE/HappyLearn/app/models"
	"github.com/HappyLearnKE/HappyLearn/app/repository"
	"github.com/HappyLearnKE/HappyLearn/internal/pkg/proficiency"
	"github.com/HappyLearnKE/HappyLearn/internal/pkg/usercontext"
)

type activityRequest struct {
	Activity         string   `json:"activity"`
	SkillCode        string   `json:"skill_code"`
	Score            float64  `json:"score"`
	Difficulty       *float64 `json:"difficulty"`
	TimeSpentSeconds int      `json:"time_spent_seconds"`
	Metadata         string   `json:"metadata"`
}

// HandleReportActivity appends a completed activity and, when a skill code is
// given, folds the score into the learner's proficiency estimate.
func HandleReportActivity(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)

	var req activityRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid request body"})
	}

	req.Activity = strings.TrimSpace(req.Activity)
	req.SkillCode = strings.TrimSpace(req.SkillCode)
	if req.Activity == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "message": "activity is required"})
	}
	if req.Score < 0 || req.Score > 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "message": "score must be between 0 and 1"})
	}
	difficulty := proficiency.DefaultBaseline
	if req.Difficulty != nil {
		if *req.Difficulty < 0 || *req.Difficulty > 1 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "message": "difficulty must be between 0 and 1"})
		}
		difficulty = *req.Difficulty
	}
	if req.TimeSpentSeconds < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "message": "time_spent_seconds must not be negative"})
	}

	now := time.Now()
	report := &models.ActivityReport{
		UserID:           userID,
		Activity:         req.Activity,
		SkillCode:        req.SkillCode,
		Score:            req.Score,
		Difficulty:       difficulty,
		TimeSpentSeconds: req.TimeSpentSeconds,
		Metadata:         req.Metadata,
		CompletedAt:      now,
	}

	learner := repository.GetGlobalFactory().GetLearnerRepository()
	if err := learner.CreateActivityReport(report); err != nil {
		log.Printf("learning: activity insert failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to record activity"})
	}

	response := fiber.Map{"report": report}

	if req.SkillCode != "" {
		skill, err := learner.GetSkill(userID, req.SkillCode)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				log.Printf("learning: skill lookup failed: %v", err)
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to update proficiency"})
			}
			skill = &models.LearnerSkill{
				UserID:      userID,
				SkillCode:   req.SkillCode,
				Proficiency: proficiency.DefaultBaseline,
			}
		}

		skill.Proficiency = proficiency.Update(skill.Proficiency, req.Score, difficulty)
		skill.LastPracticedAt = &now
		if err := learner.SaveSkill(skill); err != nil {
			log.Printf("learning: skill save failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to update proficiency"})
		}
		response["skill"] = skill
	}

	return c.Status(fiber.StatusCreated).JSON(response)
}

// HandleListSkills returns every proficiency estimate tracked for the caller.
func HandleListSkills(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)

	skills, err := repository.GetGlobalFactory().GetLearnerRepository().ListSkillsByUserID(userID)
	if err != nil {
		log.Printf("learning: skill list failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load skills"})
	}
	if skills == nil {
		skills = []models.LearnerSkill{}
	}

	return c.JSON(fiber.Map{"skills": skills})
}

// HandleListActivities returns the caller's recent activity history.
func HandleListActivities(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)

	limit := c.QueryInt("limit", 50)
	if limit < 1 || limit > 200 {
		limit = 50
	}
	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	reports, err := repository.GetGlobalFactory().GetLearnerRepository().ListActivityReports(userID, offset, limit)
	if err != nil {
		log.Printf("learning: activity list failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load activities"})
	}
	if reports == nil {
		reports = []models.ActivityReport{}
	}

	return c.JSON(fiber.Map{"activities": reports})
}
