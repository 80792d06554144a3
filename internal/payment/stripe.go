package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const DefaultStripeURL = "https://api.stripe.com"

// StripeClient calls the Stripe PaymentIntents API.
type StripeClient struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewStripeClient returns a Stripe-backed Gateway, or Disabled when no secret key is set.
func NewStripeClient(baseURL, secretKey string, logger *zap.Logger) Gateway {
	if strings.TrimSpace(secretKey) == "" {
		return Disabled{}
	}
	if baseURL == "" {
		baseURL = DefaultStripeURL
	}
	return &StripeClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		secretKey:  secretKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
	}
}

type stripeError struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *StripeClient) Enabled() bool { return true }

func (c *StripeClient) CreatePaymentIntent(ctx context.Context, in CreateIntentInput) (*Intent, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(MinorUnits(in.Amount, in.Currency), 10))
	form.Set("currency", strings.ToLower(in.Currency))
	form.Set("automatic_payment_methods[enabled]", "true")
	form.Set("metadata[order_id]", in.OrderID)
	form.Set("metadata[order_number]", in.OrderNumber)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/payment_intents", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create stripe request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Idempotency-Key", "order-"+in.OrderID)

	return c.do(req)
}

func (c *StripeClient) RetrievePaymentIntent(ctx context.Context, id string) (*Intent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/payment_intents/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, fmt.Errorf("create stripe request: %w", err)
	}
	return c.do(req)
}

func (c *StripeClient) do(req *http.Request) (*Intent, error) {
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute stripe request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read stripe response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrIntentNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr stripeError
		_ = json.Unmarshal(body, &apiErr)
		c.logger.Warn("stripe request failed",
			zap.String("path", req.URL.Path),
			zap.Int("status", resp.StatusCode),
			zap.String("code", apiErr.Error.Code),
		)
		return nil, fmt.Errorf("stripe request failed: status %d: %s", resp.StatusCode, apiErr.Error.Message)
	}

	var intent Intent
	if err := json.Unmarshal(body, &intent); err != nil {
		return nil, fmt.Errorf("unmarshal stripe response: %w", err)
	}
	return &intent, nil
}
