package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultGatewayBaseURL = "https://openrouter.ai/api/v1"

var (
	// ErrRateLimited maps the gateway's 429 onto the caller.
	ErrRateLimited = errors.New("chat gateway rate limited")
	// ErrQuotaExceeded maps the gateway's 402 (credits exhausted).
	ErrQuotaExceeded = errors.New("chat gateway quota exceeded")
	// ErrUpstream covers every other gateway failure; the vendor message is
	// logged server-side, never surfaced to the learner.
	ErrUpstream = errors.New("chat gateway error")
)

// Client speaks the OpenAI-compatible chat completions API of the hosted
// LLM gateway and streams responses through unchanged.
type Client struct {
	APIKey  string
	BaseURL string
	Model   string

	HTTPClient *http.Client
}

// NewClientFromEnv builds a gateway client from environment configuration.
func NewClientFromEnv(getenv func(key, def string) string) *Client {
	return &Client{
		APIKey:  strings.TrimSpace(getenv("LLM_API_KEY", "")),
		BaseURL: strings.TrimRight(getenv("LLM_BASE_URL", defaultGatewayBaseURL), "/"),
		Model:   strings.TrimSpace(getenv("LLM_MODEL", "google/gemini-2.5-flash")),
		HTTPClient: &http.Client{
			// Streamed completions can run long; the per-request context
			// still bounds the overall call.
			Timeout: 120 * time.Second,
		},
	}
}

// CheckConfig fails fast when the gateway key is missing.
func (c *Client) CheckConfig() error {
	if c.APIKey == "" {
		return errors.New("LLM_API_KEY is not configured")
	}
	return nil
}

// StreamChat forwards the bounded message window prefixed with the CBC tutor
// system prompt and returns the live upstream response. The caller owns the
// body and must close it after streaming.
func (c *Client) StreamChat(ctx context.Context, messages []Message, grade, subject string) (*http.Response, error) {
	if err := c.CheckConfig(); err != nil {
		return nil, err
	}

	window := BoundMessages(messages)
	payload := map[string]any{
		"model":    c.Model,
		"messages": append([]Message{{Role: "system", Content: SystemPrompt(grade, subject)}}, window...),
		"stream":   true,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		_ = resp.Body.Close()
		switch resp.StatusCode {
		case http.StatusTooManyRequests:
			return nil, ErrRateLimited
		case http.StatusPaymentRequired:
			return nil, ErrQuotaExceeded
		default:
			return nil, fmt.Errorf("%w: status=%d body=%s", ErrUpstream, resp.StatusCode, string(respBody))
		}
	}
	return resp, nil
}
