package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	paypalSandboxBaseURL    = "https://api-m.sandbox.paypal.com"
	paypalProductionBaseURL = "https://api-m.paypal.com"

	// PayPal's terminal order state after a successful capture.
	PayPalOrderCompleted = "COMPLETED"
)

// PayPalClient talks to the PayPal Orders v2 API.
type PayPalClient struct {
	ClientID string
	Secret   string

	BaseURL string

	HTTPClient *http.Client
	Tokens     TokenCache
}

type paypalTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// PayPalOrder is the subset of an order response the handlers use.
type PayPalOrder struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// PayPalCapture is the flattened result of an order capture.
type PayPalCapture struct {
	OrderID   string
	Status    string
	CaptureID string
	Amount    float64
	Currency  string
}

// NewPayPalClientFromEnv builds a PayPal client from environment configuration.
func NewPayPalClientFromEnv(getenv func(key, def string) string, production bool) *PayPalClient {
	defaultBase := paypalSandboxBaseURL
	if production {
		defaultBase = paypalProductionBaseURL
	}

	return &PayPalClient{
		ClientID: strings.TrimSpace(getenv("PAYPAL_CLIENT_ID", "")),
		Secret:   strings.TrimSpace(getenv("PAYPAL_CLIENT_SECRET", "")),
		BaseURL:  strings.TrimRight(getenv("PAYPAL_BASE_URL", defaultBase), "/"),
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		Tokens: NewRedisTokenCache(),
	}
}

// CheckConfig fails fast when required vendor credentials are missing.
func (c *PayPalClient) CheckConfig() error {
	if c.ClientID == "" || c.Secret == "" {
		return errors.New("PAYPAL_CLIENT_ID/PAYPAL_CLIENT_SECRET are not configured")
	}
	return nil
}

// AccessToken returns a cached or freshly fetched OAuth token.
func (c *PayPalClient) AccessToken(ctx context.Context) (string, error) {
	if err := c.CheckConfig(); err != nil {
		return "", err
	}

	cacheKey := "paypal:token:" + c.ClientID
	if c.Tokens != nil {
		if token, err := c.Tokens.Get(cacheKey); err == nil && token != "" {
			return token, nil
		}
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.BaseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.ClientID, c.Secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("paypal token request failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	var out paypalTokenResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.AccessToken) == "" {
		return "", errors.New("paypal token request returned empty access_token")
	}

	if c.Tokens != nil && out.ExpiresIn > 120 {
		_ = c.Tokens.Set(cacheKey, out.AccessToken, time.Duration(out.ExpiresIn-60)*time.Second)
	}
	return out.AccessToken, nil
}

// CreateOrder opens a CAPTURE-intent order for the given USD amount.
func (c *PayPalClient) CreateOrder(ctx context.Context, amountUSD float64, referenceID string) (*PayPalOrder, error) {
	token, err := c.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	payload := map[string]any{
		"intent": "CAPTURE",
		"purchase_units": []map[string]any{
			{
				"reference_id": referenceID,
				"amount": map[string]string{
					"currency_code": "USD",
					"value":         fmt.Sprintf("%.2f", amountUSD),
				},
			},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.BaseURL+"/v2/checkout/orders", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	// Idempotency key so a retried create does not open two orders.
	req.Header.Set("PayPal-Request-Id", uuid.NewString())

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("paypal order create failed: status=%d body=%s", resp.StatusCode, string(respBody))
	}

	var out PayPalOrder
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.ID) == "" {
		return nil, errors.New("paypal order create response missing order id")
	}
	return &out, nil
}

// CaptureOrder captures an approved order and flattens the capture details.
func (c *PayPalClient) CaptureOrder(ctx context.Context, orderID string) (*PayPalCapture, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, errors.New("order id is required")
	}

	token, err := c.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.BaseURL+"/v2/checkout/orders/"+url.PathEscape(orderID)+"/capture", bytes.NewReader([]byte("{}")))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("paypal order capture failed: status=%d body=%s", resp.StatusCode, string(respBody))
	}

	var raw struct {
		ID            string `json:"id"`
		Status        string `json:"status"`
		PurchaseUnits []struct {
			Payments struct {
				Captures []struct {
					ID     string `json:"id"`
					Status string `json:"status"`
					Amount struct {
						CurrencyCode string `json:"currency_code"`
						Value        string `json:"value"`
					} `json:"amount"`
				} `json:"captures"`
			} `json:"payments"`
		} `json:"purchase_units"`
	}
	if err := json.Unmarshal(respBody, &raw); err != nil {
		return nil, err
	}

	out := &PayPalCapture{
		OrderID: strings.TrimSpace(raw.ID),
		Status:  strings.TrimSpace(raw.Status),
	}
	if len(raw.PurchaseUnits) > 0 && len(raw.PurchaseUnits[0].Payments.Captures) > 0 {
		capture := raw.PurchaseUnits[0].Payments.Captures[0]
		out.CaptureID = capture.ID
		out.Currency = capture.Amount.CurrencyCode
		fmt.Sscanf(capture.Amount.Value, "%f", &out.Amount)
	}
	if out.OrderID == "" {
		return nil, errors.New("paypal capture response missing order id")
	}
	return out, nil
}
