package controllers

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/HappyLearnKE/HappyLearn/internal/pkg/chat"
	"github.com/HappyLearnKE/HappyLearn/internal/pkg/env"
	"github.com/HappyLearnKE/HappyLearn/internal/pkg/ratelimit"
)

// chatLimiter throttles tutor requests per client IP: 50 per minute window.
var chatLimiter = ratelimit.NewLimiter(50, time.Minute)

var (
	chatMu     sync.Mutex
	chatClient *chat.Client
)

func getChatClient() *chat.Client {
	chatMu.Lock()
	defer chatMu.Unlock()
	if chatClient == nil {
		chatClient = chat.NewClientFromEnv(env.GetEnv)
	}
	return chatClient
}

// SetChatClient swaps the gateway client, used by tests.
func SetChatClient(c *chat.Client) {
	chatMu.Lock()
	defer chatMu.Unlock()
	chatClient = c
}

type chatRequest struct {
	Messages []chat.Message `json:"messages"`
	Grade    string         `json:"grade"`
	Subject  string         `json:"subject"`
}

// HandleChatCompletions proxies a tutoring conversation to the LLM gateway
// and streams the SSE response through unchanged.
func HandleChatCompletions(c *fiber.Ctx) error {
	ip := ClientIP(c)
	if !chatLimiter.Allow(ip) {
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate_limited", "message": "Too many chat requests, slow down"})
	}
	chatLimiter.Sweep()

	var req chatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid request body"})
	}
	if len(req.Messages) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "message": "messages must not be empty"})
	}

	resp, err := getChatClient().StreamChat(c.Context(), req.Messages, req.Grade, req.Subject)
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrRateLimited):
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate_limited", "message": "The tutor is busy, try again shortly"})
		case errors.Is(err, chat.ErrQuotaExceeded):
			return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{"error": "quota_exceeded", "message": "The tutor is unavailable right now"})
		default:
			log.Printf("chat: gateway call failed: %v", err)
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "upstream_error", "message": "The tutor is unavailable right now"})
		}
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set("Connection", "keep-alive")
	// fasthttp closes the reader when the stream finishes
	return c.SendStream(resp.Body)
}
