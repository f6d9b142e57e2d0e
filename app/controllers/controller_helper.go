package controllers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// ClientIP determines the actual client IP address considering proxies.
// Behind Cloudflare or a reverse proxy c.IP() only sees the hop in front of
// us, so the forwarding headers win.
func ClientIP(c *fiber.Ctx) string {
	if cfIP := strings.TrimSpace(c.Get("CF-Connecting-IP")); cfIP != "" {
		return cfIP
	}

	if xff := c.Get("X-Forwarded-For"); xff != "" {
		// first entry is the original client
		parts := strings.Split(xff, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}

	return c.IP()
}

func formatTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
