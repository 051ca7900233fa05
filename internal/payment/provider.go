package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Session statuses as reported by the provider.
const (
	StatusCompleted = "completed"
	StatusPending   = "pending"
)

// SessionItem is one line of a hosted-checkout session.
type SessionItem struct {
	Name           string `json:"name"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

// Session is what the provider returns for a newly created checkout.
type Session struct {
	ID          string `json:"id"`
	CheckoutURL string `json:"checkout_url"`
}

// Provider is the hosted-checkout collaborator. The storefront only ever
// creates sessions and asks whether a session finished paying.
type Provider interface {
	CreateSession(ctx context.Context, items []SessionItem, successURL string) (*Session, error)
	GetSessionStatus(ctx context.Context, sessionID string) (string, error)
}

// httpProvider talks JSON to the provider's REST API.
type httpProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPProvider(baseURL, apiKey string, timeout time.Duration) Provider {
	return &httpProvider{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

func (p *httpProvider) CreateSession(ctx context.Context, items []SessionItem, successURL string) (*Session, error) {
	body, err := json.Marshal(map[string]any{
		"items":       items,
		"success_url": successURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/checkout/sessions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment session: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("payment provider returned status %d", resp.StatusCode)
	}

	var session Session
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, fmt.Errorf("failed to decode session response: %w", err)
	}
	return &session, nil
}

func (p *httpProvider) GetSessionStatus(ctx context.Context, sessionID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/v1/checkout/sessions/"+sessionID, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to get session status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("payment provider returned status %d", resp.StatusCode)
	}

	var out struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode status response: %w", err)
	}
	return out.Status, nil
}
