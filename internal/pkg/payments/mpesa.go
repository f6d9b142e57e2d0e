package payments

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	mpesaSandboxBaseURL    = "https://sandbox.safaricom.co.ke"
	mpesaProductionBaseURL = "https://api.safaricom.co.ke"

	mpesaTimestampLayout = "20060102150405"
)

// kenyanMSISDN matches local numbering-plan subscriber numbers in the forms
// 07XXXXXXXX, 01XXXXXXXX, 2547XXXXXXXX, 2541XXXXXXXX, +254...
var kenyanMSISDN = regexp.MustCompile(`^(?:\+?254|0)?((?:7|1)\d{8})$`)

// MpesaClient talks to the Safaricom Daraja API (OAuth + STK push).
type MpesaClient struct {
	ConsumerKey    string
	ConsumerSecret string
	ShortCode      string
	Passkey        string
	CallbackURL    string

	BaseURL string

	HTTPClient *http.Client
	Tokens     TokenCache
}

type mpesaTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

// STKPushResponse is Daraja's acknowledgment of an accepted push request.
type STKPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

// STKCallbackEvent is the flattened result of a Daraja push callback.
type STKCallbackEvent struct {
	MerchantRequestID string
	CheckoutRequestID string
	ResultCode        int
	ResultDesc        string
	Amount            float64
	ReceiptNumber     string
	PhoneNumber       string
	TransactionDate   string
}

// NewMpesaClientFromEnv builds a Daraja client from environment configuration.
func NewMpesaClientFromEnv(getenv func(key, def string) string, production bool) *MpesaClient {
	defaultBase := mpesaSandboxBaseURL
	if production {
		defaultBase = mpesaProductionBaseURL
	}

	return &MpesaClient{
		ConsumerKey:    strings.TrimSpace(getenv("MPESA_CONSUMER_KEY", "")),
		ConsumerSecret: strings.TrimSpace(getenv("MPESA_CONSUMER_SECRET", "")),
		ShortCode:      strings.TrimSpace(getenv("MPESA_SHORTCODE", "")),
		Passkey:        strings.TrimSpace(getenv("MPESA_PASSKEY", "")),
		CallbackURL:    strings.TrimSpace(getenv("MPESA_CALLBACK_URL", "")),
		BaseURL:        strings.TrimRight(getenv("MPESA_BASE_URL", defaultBase), "/"),
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		Tokens: NewRedisTokenCache(),
	}
}

// CheckConfig fails fast when required vendor credentials are missing.
func (c *MpesaClient) CheckConfig() error {
	if c.ConsumerKey == "" || c.ConsumerSecret == "" {
		return errors.New("MPESA_CONSUMER_KEY/MPESA_CONSUMER_SECRET are not configured")
	}
	if c.ShortCode == "" || c.Passkey == "" {
		return errors.New("MPESA_SHORTCODE/MPESA_PASSKEY are not configured")
	}
	if c.CallbackURL == "" {
		return errors.New("MPESA_CALLBACK_URL is not configured")
	}
	return nil
}

// NormalizePhoneNumber validates a Kenyan subscriber number and converts it
// to the 254XXXXXXXXX wire format Daraja expects.
func NormalizePhoneNumber(raw string) (string, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), " ", "")
	m := kenyanMSISDN.FindStringSubmatch(cleaned)
	if m == nil {
		return "", fmt.Errorf("invalid Kenyan phone number: %q", raw)
	}
	return "254" + m[1], nil
}

// AccessToken returns a cached or freshly fetched OAuth token.
func (c *MpesaClient) AccessToken(ctx context.Context) (string, error) {
	if c.ConsumerKey == "" || c.ConsumerSecret == "" {
		return "", errors.New("MPESA_CONSUMER_KEY/MPESA_CONSUMER_SECRET are not configured")
	}

	cacheKey := "mpesa:token:" + c.ConsumerKey
	if c.Tokens != nil {
		if token, err := c.Tokens.Get(cacheKey); err == nil && token != "" {
			return token, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.BaseURL+"/oauth/v1/generate?grant_type=client_credentials", nil)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.ConsumerKey, c.ConsumerSecret)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("mpesa token request failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	var out mpesaTokenResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.AccessToken) == "" {
		return "", errors.New("mpesa token request returned empty access_token")
	}

	if c.Tokens != nil {
		ttl := 50 * time.Minute
		if secs, err := strconv.Atoi(strings.TrimSpace(out.ExpiresIn)); err == nil && secs > 120 {
			ttl = time.Duration(secs-60) * time.Second
		}
		if err := c.Tokens.Set(cacheKey, out.AccessToken, ttl); err != nil {
			// Cache failure is not fatal, the token itself is valid.
			_ = err
		}
	}
	return out.AccessToken, nil
}

// STKPush submits a push payment request for the given normalized phone
// number and whole-shilling amount.
func (c *MpesaClient) STKPush(ctx context.Context, phone string, amount float64, accountRef, description string) (*STKPushResponse, error) {
	if err := c.CheckConfig(); err != nil {
		return nil, err
	}

	token, err := c.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	timestamp := time.Now().Format(mpesaTimestampLayout)
	payload := map[string]any{
		"BusinessShortCode": c.ShortCode,
		"Password":          stkPassword(c.ShortCode, c.Passkey, timestamp),
		"Timestamp":         timestamp,
		"TransactionType":   "CustomerPayBillOnline",
		"Amount":            int64(amount),
		"PartyA":            phone,
		"PartyB":            c.ShortCode,
		"PhoneNumber":       phone,
		"CallBackURL":       c.CallbackURL,
		"AccountReference":  accountRef,
		"TransactionDesc":   description,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.BaseURL+"/mpesa/stkpush/v1/processrequest", bytes.NewReader(body))
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
		return nil, fmt.Errorf("mpesa stk push failed: status=%d body=%s", resp.StatusCode, string(respBody))
	}

	var out STKPushResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, err
	}
	if out.ResponseCode != "0" {
		return nil, fmt.Errorf("mpesa rejected stk push: code=%s desc=%s", out.ResponseCode, out.ResponseDescription)
	}
	if strings.TrimSpace(out.CheckoutRequestID) == "" {
		return nil, errors.New("mpesa stk push response missing CheckoutRequestID")
	}
	return &out, nil
}

// stkPassword is base64(shortcode + passkey + timestamp) per the Daraja docs.
func stkPassword(shortCode, passkey, timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(shortCode + passkey + timestamp))
}

// ParseSTKCallback structurally validates a Daraja push callback payload and
// flattens the CallbackMetadata key/value list.
func ParseSTKCallback(payload []byte) (*STKCallbackEvent, error) {
	var raw struct {
		Body struct {
			StkCallback *struct {
				MerchantRequestID string `json:"MerchantRequestID"`
				CheckoutRequestID string `json:"CheckoutRequestID"`
				ResultCode        int    `json:"ResultCode"`
				ResultDesc        string `json:"ResultDesc"`
				CallbackMetadata  struct {
					Item []struct {
						Name  string          `json:"Name"`
						Value json.RawMessage `json:"Value"`
					} `json:"Item"`
				} `json:"CallbackMetadata"`
			} `json:"stkCallback"`
		} `json:"Body"`
	}

	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, err
	}
	cb := raw.Body.StkCallback
	if cb == nil {
		return nil, errors.New("callback payload missing Body.stkCallback")
	}
	if strings.TrimSpace(cb.CheckoutRequestID) == "" {
		return nil, errors.New("callback payload missing CheckoutRequestID")
	}

	out := &STKCallbackEvent{
		MerchantRequestID: strings.TrimSpace(cb.MerchantRequestID),
		CheckoutRequestID: strings.TrimSpace(cb.CheckoutRequestID),
		ResultCode:        cb.ResultCode,
		ResultDesc:        strings.TrimSpace(cb.ResultDesc),
	}

	for _, item := range cb.CallbackMetadata.Item {
		switch item.Name {
		case "Amount":
			var v float64
			if err := json.Unmarshal(item.Value, &v); err == nil {
				out.Amount = v
			}
		case "MpesaReceiptNumber":
			var v string
			if err := json.Unmarshal(item.Value, &v); err == nil {
				out.ReceiptNumber = v
			}
		case "PhoneNumber":
			// Daraja sends the MSISDN as a JSON number.
			var n json.Number
			if err := json.Unmarshal(item.Value, &n); err == nil {
				out.PhoneNumber = n.String()
			} else {
				var s string
				if err := json.Unmarshal(item.Value, &s); err == nil {
					out.PhoneNumber = s
				}
			}
		case "TransactionDate":
			var n json.Number
			if err := json.Unmarshal(item.Value, &n); err == nil {
				out.TransactionDate = n.String()
			}
		}
	}

	return out, nil
}
