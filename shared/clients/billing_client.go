package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"railzway-console/shared/config"
)

// BillingClient handles communication with the billing API
type BillingClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewBillingClient creates a billing client for the configured API
func NewBillingClient() *BillingClient {
	cfg := config.GetConfig()
	return NewBillingClientWith(cfg.BillingAPIURL, cfg.BillingAPIKey)
}

// NewBillingClientWith creates a billing client for the given endpoint
func NewBillingClientWith(baseURL, apiKey string) *BillingClient {
	return &BillingClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Price represents a billing plan price
type Price struct {
	ID              string         `json:"id"`
	ProductID       string         `json:"product_id"`
	Code            string         `json:"code"`
	Name            string         `json:"name"`
	PricingModel    string         `json:"pricing_model"`
	BillingMode     string         `json:"billing_mode"`
	BillingInterval string         `json:"billing_interval"`
	Active          bool           `json:"active"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

// PriceAmount represents the amount attached to a price
type PriceAmount struct {
	ID              string `json:"id"`
	PriceID         string `json:"price_id"`
	UnitAmountCents int64  `json:"unit_amount_cents"`
}

type listResponse[T any] struct {
	Data []T `json:"data"`
}

// ListPrices lists prices, optionally filtered by code
func (bc *BillingClient) ListPrices(ctx context.Context, code string) ([]Price, error) {
	path := "/api/prices"
	if code != "" {
		path += "?code=" + url.QueryEscape(code)
	}

	var resp listResponse[Price]
	if err := bc.doGet(ctx, path, &resp); err != nil {
		return nil, fmt.Errorf("failed to list prices: %w", err)
	}
	return resp.Data, nil
}

// ListPriceAmounts lists price amounts, optionally filtered by price ID
func (bc *BillingClient) ListPriceAmounts(ctx context.Context, priceID string) ([]PriceAmount, error) {
	path := "/api/price_amounts"
	if priceID != "" {
		path += "?price_id=" + url.QueryEscape(priceID)
	}

	var resp listResponse[PriceAmount]
	if err := bc.doGet(ctx, path, &resp); err != nil {
		return nil, fmt.Errorf("failed to list price amounts: %w", err)
	}
	return resp.Data, nil
}

func (bc *BillingClient) doGet(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, bc.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if bc.apiKey != "" {
		req.Header.Set("X-API-Key", bc.apiKey)
	}

	resp, err := bc.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("billing request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("billing API returned status %d: %s", resp.StatusCode, string(raw))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
