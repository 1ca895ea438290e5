package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pokevisor/pokevisor/internal/pkg/env"
)

const defaultStripeAPIBaseURL = "https://api.stripe.com/v1"

// ProviderStripe is the provider key stored on subscriptions and events.
const ProviderStripe = "stripe"

// CheckoutClient creates hosted checkout sessions with the payment provider.
type CheckoutClient struct {
	SecretKey  string
	PriceID    string
	APIBaseURL string

	HTTPClient *http.Client
}

// CheckoutSession is the subset of the provider response the app needs.
type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// NewCheckoutClientFromEnv builds a client from STRIPE_* env vars.
func NewCheckoutClientFromEnv() *CheckoutClient {
	return &CheckoutClient{
		SecretKey:  strings.TrimSpace(env.GetEnv("STRIPE_SECRET_KEY", "")),
		PriceID:    strings.TrimSpace(env.GetEnv("STRIPE_PRICE_ID", "")),
		APIBaseURL: strings.TrimSpace(env.GetEnv("STRIPE_API_BASE_URL", defaultStripeAPIBaseURL)),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// CreateCheckoutSession starts a subscription checkout for the given user
// and returns the hosted payment page. The user id travels as the client
// reference so the webhook can link the completed session back to a user.
func (c *CheckoutClient) CreateCheckoutSession(ctx context.Context, userID uint, successURL, cancelURL string) (*CheckoutSession, error) {
	if c.SecretKey == "" {
		return nil, errors.New("STRIPE_SECRET_KEY is not configured")
	}
	if c.PriceID == "" {
		return nil, errors.New("STRIPE_PRICE_ID is not configured")
	}
	if userID == 0 {
		return nil, errors.New("user_id is required")
	}

	form := url.Values{}
	form.Set("mode", "subscription")
	form.Set("line_items[0][price]", c.PriceID)
	form.Set("line_items[0][quantity]", "1")
	form.Set("success_url", successURL)
	form.Set("cancel_url", cancelURL)
	form.Set("client_reference_id", strconv.FormatUint(uint64(userID), 10))
	form.Set("metadata[user_id]", strconv.FormatUint(uint64(userID), 10))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIBaseURL+"/checkout/sessions", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("checkout session request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("checkout session request returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var session CheckoutSession
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, fmt.Errorf("decode checkout session: %w", err)
	}
	if session.URL == "" {
		return nil, errors.New("checkout session response had no url")
	}
	return &session, nil
}
