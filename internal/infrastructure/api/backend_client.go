package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"revlens-dashboard-layer/internal/domain"
	"revlens-dashboard-layer/internal/infrastructure/metrics"
	"revlens-dashboard-layer/internal/ports"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// requestTimeout is the fixed ceiling for every analytics-backend call.
// After it the call fails as a network error and takes the same error path
// as any other rejected request.
const requestTimeout = 30 * time.Second

// envelope is the analytics backend's uniform response shape. A missing or
// false success field is a failure even on HTTP 200.
type envelope struct {
	Success  *bool           `json:"success"`
	Message  string          `json:"message"`
	Data     json.RawMessage `json:"data"`
	OAuthURL string          `json:"oauth_url"`
}

func (e *envelope) ok() bool {
	return e.Success != nil && *e.Success
}

// Client is the resty-backed implementation of ports.BackendClient.
type Client struct {
	http           *resty.Client
	sessions       ports.SessionRepository
	onUnauthorized func(token string)
	collector      *metrics.Collector
	logger         zerolog.Logger
}

var _ ports.BackendClient = (*Client)(nil)

// NewClient builds the analytics-backend client. onUnauthorized runs at most
// once per stored token, after the session has been cleared.
func NewClient(
	baseURL string,
	sessions ports.SessionRepository,
	onUnauthorized func(token string),
	collector *metrics.Collector,
	logger zerolog.Logger,
) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(requestTimeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "revlens-dashboard-layer/1.0")

	return &Client{
		http:           httpClient,
		sessions:       sessions,
		onUnauthorized: onUnauthorized,
		collector:      collector,
		logger:         logger,
	}
}

// do executes one request and interprets the response envelope. All error
// classification for the client-side taxonomy happens here so the flows and
// services above never look at HTTP status codes. endpoint is the route
// shape used as the metric label; integration IDs and query strings stay
// out of it to keep the label cardinality bounded.
func (c *Client) do(ctx context.Context, method, endpoint, path string, body any) (*envelope, error) {
	req := c.http.R().SetContext(ctx)
	token := domain.TokenFromContext(ctx)
	if token != "" {
		req.SetAuthToken(token)
	}
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		c.collector.ObserveUpstreamRequest(endpoint, "network_error")
		c.logger.Warn().Err(err).Str("method", method).Str("path", path).Msg("Analytics backend unreachable")
		return nil, fmt.Errorf("%w: %v", domain.ErrNetwork, err)
	}

	var env envelope
	// Error bodies are not guaranteed to be the JSON envelope.
	_ = json.Unmarshal(resp.Body(), &env)

	switch {
	case resp.StatusCode() == http.StatusUnauthorized:
		c.collector.ObserveUpstreamRequest(endpoint, "unauthorized")
		c.invalidateSession(ctx, token)
		return nil, domain.ErrUnauthorized

	case resp.StatusCode() == http.StatusConflict:
		c.collector.ObserveUpstreamRequest(endpoint, "conflict")
		if env.Message != "" {
			return nil, fmt.Errorf("%w: %s", domain.ErrConflict, env.Message)
		}
		return nil, domain.ErrConflict

	case resp.IsError():
		c.collector.ObserveUpstreamRequest(endpoint, "rejected")
		return nil, &domain.BackendError{StatusCode: resp.StatusCode(), Message: env.Message}
	}

	if !env.ok() {
		c.collector.ObserveUpstreamRequest(endpoint, "rejected")
		return nil, &domain.BackendError{StatusCode: resp.StatusCode(), Message: env.Message}
	}

	c.collector.ObserveUpstreamRequest(endpoint, "success")
	return &env, nil
}

// invalidateSession clears the stored session for token. The clear happens
// exactly once: re-clearing an already cleared token is a safe no-op and
// the hook only fires on the first clear.
func (c *Client) invalidateSession(ctx context.Context, token string) {
	if token == "" {
		return
	}
	// The request context may already be cancelled; the clear must still run.
	deleted, err := c.sessions.DeleteByToken(context.WithoutCancel(ctx), token)
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to clear session after 401")
		return
	}
	if !deleted {
		return
	}
	c.collector.ObserveSessionInvalidated()
	c.logger.Info().Msg("Session cleared after 401 from analytics backend")
	if c.onUnauthorized != nil {
		c.onUnauthorized(token)
	}
}

func (c *Client) ListIntegrations(ctx context.Context, displayCurrency string) ([]*domain.Integration, error) {
	path := "/integrations"
	if displayCurrency != "" {
		path += "?currency=" + displayCurrency
	}
	env, err := c.do(ctx, http.MethodGet, "/integrations", path, nil)
	if err != nil {
		return nil, err
	}
	var integrations []*domain.Integration
	if err := json.Unmarshal(env.Data, &integrations); err != nil {
		return nil, fmt.Errorf("failed to decode integration list: %w", err)
	}
	return integrations, nil
}

func (c *Client) CreateIntegration(ctx context.Context, input ports.CreateIntegrationInput) (*domain.Integration, error) {
	env, err := c.do(ctx, http.MethodPost, "/integrations", "/integrations", input)
	if err != nil {
		return nil, err
	}
	if len(env.Data) == 0 {
		return nil, nil
	}
	var integration domain.Integration
	if err := json.Unmarshal(env.Data, &integration); err != nil {
		return nil, fmt.Errorf("failed to decode integration: %w", err)
	}
	return &integration, nil
}

func (c *Client) ConnectPartner(ctx context.Context, input ports.PartnerConnectInput) (*ports.PartnerConnectResult, error) {
	env, err := c.do(ctx, http.MethodPost, "/shopify/connect-partner", "/shopify/connect-partner", input)
	if err != nil {
		return nil, err
	}
	var result ports.PartnerConnectResult
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &result); err != nil {
			return nil, fmt.Errorf("failed to decode partner connect result: %w", err)
		}
	}
	return &result, nil
}

func (c *Client) EconomicOAuthURL(ctx context.Context) (string, error) {
	env, err := c.do(ctx, http.MethodGet, "/economic/oauth-url", "/economic/oauth-url", nil)
	if err != nil {
		return "", err
	}
	if env.OAuthURL == "" {
		return "", &domain.BackendError{StatusCode: http.StatusOK, Message: "no authorization URL returned"}
	}
	return env.OAuthURL, nil
}

func (c *Client) CompleteEconomicOAuth(ctx context.Context, input ports.OAuthCompleteInput) (string, error) {
	env, err := c.do(ctx, http.MethodPost, "/economic/oauth-complete", "/economic/oauth-complete", input)
	if err != nil {
		return "", err
	}
	return env.Message, nil
}

func (c *Client) TriggerSync(ctx context.Context, integrationID int64) error {
	_, err := c.do(ctx, http.MethodPost, "/integrations/{id}/sync", integrationPath(integrationID)+"/sync", nil)
	return err
}

func (c *Client) Disconnect(ctx context.Context, integrationID int64) error {
	_, err := c.do(ctx, http.MethodPost, "/integrations/{id}/disconnect", integrationPath(integrationID)+"/disconnect", nil)
	return err
}

func (c *Client) Remove(ctx context.Context, integrationID int64) error {
	_, err := c.do(ctx, http.MethodDelete, "/integrations/{id}", integrationPath(integrationID), nil)
	return err
}

func (c *Client) ListShops(ctx context.Context, integrationID int64) ([]*domain.Shop, error) {
	env, err := c.do(ctx, http.MethodGet, "/integrations/{id}/shops", integrationPath(integrationID)+"/shops", nil)
	if err != nil {
		return nil, err
	}
	var shops []*domain.Shop
	if err := json.Unmarshal(env.Data, &shops); err != nil {
		return nil, fmt.Errorf("failed to decode shop list: %w", err)
	}
	return shops, nil
}

func (c *Client) StoreShopToken(ctx context.Context, integrationID int64, shopDomain, accessToken string) error {
	body := map[string]string{"access_token": accessToken}
	_, err := c.do(ctx, http.MethodPost, "/integrations/{id}/shops/{shop}/token", integrationPath(integrationID)+"/shops/"+shopDomain+"/token", body)
	return err
}

func (c *Client) RemoveShopToken(ctx context.Context, integrationID int64, shopDomain string) error {
	_, err := c.do(ctx, http.MethodDelete, "/integrations/{id}/shops/{shop}/token", integrationPath(integrationID)+"/shops/"+shopDomain+"/token", nil)
	return err
}

func integrationPath(id int64) string {
	return "/integrations/" + strconv.FormatInt(id, 10)
}
