// internal/gateway/client.go
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/novasniper/novadash/internal/types"
	"go.uber.org/zap"
)

// Pipeline is the remote detection pipeline surface consumed by the core.
// Every call is a single request/response round trip; no call retries.
type Pipeline interface {
	FetchTokens(ctx context.Context, category types.FeedCategory) ([]types.Token, error)
	StartAllPhases(ctx context.Context) error
	StopAllPhases(ctx context.Context) error
	PriceAlertSystem(ctx context.Context, req AlertRequest) (*AlertResponse, error)
	PerformSafetyChecks(ctx context.Context, tokenAddress string) (*types.SafetyCheck, error)
	ListWatchlist(ctx context.Context, userEmail string) ([]types.WatchlistEntry, error)
	UpdateWatchlist(ctx context.Context, id string, patch WatchlistPatch) error
	DeleteWatchlist(ctx context.Context, id string) error
	WhoAmI(ctx context.Context) (*types.User, error)
}

// AlertRequest carries the parameters of one priceAlertSystem invocation.
type AlertRequest struct {
	Action       AlertAction
	TokenAddress string
	AlertType    types.AlertType
	Threshold    float64
}

// Client is the HTTP implementation of Pipeline.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewClient creates a pipeline gateway client.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger.Named("gateway"),
	}
}

// FetchTokens pulls one categorized token feed. Order is preserved as
// received from the pipeline.
func (c *Client) FetchTokens(ctx context.Context, category types.FeedCategory) ([]types.Token, error) {
	var resp fetchTokensResponse
	if err := c.callFunction(ctx, "fetchTokens", fetchTokensRequest{Category: category}, &resp); err != nil {
		return nil, fmt.Errorf("fetch %s feed: %w", category, err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("fetch %s feed: %s", category, resp.Error)
	}
	return resp.Tokens, nil
}

// StartAllPhases activates the remote detection pipeline.
func (c *Client) StartAllPhases(ctx context.Context) error {
	var resp phaseResponse
	if err := c.callFunction(ctx, "startAllPhases", struct{}{}, &resp); err != nil {
		return fmt.Errorf("start all phases: %w", err)
	}
	if !resp.Success {
		if resp.Error != "" {
			return fmt.Errorf("start all phases: %s", resp.Error)
		}
		return fmt.Errorf("start all phases: orchestrator refused")
	}
	return nil
}

// StopAllPhases deactivates the remote detection pipeline.
func (c *Client) StopAllPhases(ctx context.Context) error {
	var resp phaseResponse
	if err := c.callFunction(ctx, "stopAllPhases", struct{}{}, &resp); err != nil {
		return fmt.Errorf("stop all phases: %w", err)
	}
	if !resp.Success {
		return fmt.Errorf("stop all phases: %s", resp.Error)
	}
	return nil
}

// PriceAlertSystem executes one alert action against the pipeline. The
// response envelope is returned as-is so callers can inspect the per-action
// payload; a success=false envelope is already converted to an error.
func (c *Client) PriceAlertSystem(ctx context.Context, req AlertRequest) (*AlertResponse, error) {
	body := alertRequest{
		Action:       req.Action,
		TokenAddress: req.TokenAddress,
		AlertType:    req.AlertType,
		Threshold:    req.Threshold,
	}
	var resp AlertResponse
	if err := c.callFunction(ctx, "priceAlertSystem", body, &resp); err != nil {
		return nil, fmt.Errorf("price alert %s: %w", req.Action, err)
	}
	if !resp.Success {
		return nil, fmt.Errorf("price alert %s: %s", req.Action, resp.Error)
	}
	return &resp, nil
}

// PerformSafetyChecks runs the pipeline's security audit for one token.
func (c *Client) PerformSafetyChecks(ctx context.Context, tokenAddress string) (*types.SafetyCheck, error) {
	var resp safetyResponse
	if err := c.callFunction(ctx, "performSafetyChecks", safetyRequest{TokenAddress: tokenAddress}, &resp); err != nil {
		return nil, fmt.Errorf("safety checks for %s: %w", tokenAddress, err)
	}
	if !resp.Success {
		return nil, fmt.Errorf("safety checks for %s: %s", tokenAddress, resp.Error)
	}
	check := resp.SafetyCheck
	check.TokenAddress = tokenAddress
	return &check, nil
}

// ListWatchlist returns the watchlist entries owned by the given user.
func (c *Client) ListWatchlist(ctx context.Context, userEmail string) ([]types.WatchlistEntry, error) {
	endpoint := fmt.Sprintf("%s/entities/WatchlistToken?userEmail=%s", c.baseURL, url.QueryEscape(userEmail))
	var entries []types.WatchlistEntry
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &entries); err != nil {
		return nil, fmt.Errorf("list watchlist: %w", err)
	}
	return entries, nil
}

// UpdateWatchlist applies a partial update to one watchlist entry.
func (c *Client) UpdateWatchlist(ctx context.Context, id string, patch WatchlistPatch) error {
	endpoint := fmt.Sprintf("%s/entities/WatchlistToken/%s", c.baseURL, url.PathEscape(id))
	if err := c.do(ctx, http.MethodPut, endpoint, patch, nil); err != nil {
		return fmt.Errorf("update watchlist entry %s: %w", id, err)
	}
	return nil
}

// DeleteWatchlist removes one watchlist entry.
func (c *Client) DeleteWatchlist(ctx context.Context, id string) error {
	endpoint := fmt.Sprintf("%s/entities/WatchlistToken/%s", c.baseURL, url.PathEscape(id))
	if err := c.do(ctx, http.MethodDelete, endpoint, nil, nil); err != nil {
		return fmt.Errorf("delete watchlist entry %s: %w", id, err)
	}
	return nil
}

// WhoAmI resolves the authenticated user.
func (c *Client) WhoAmI(ctx context.Context) (*types.User, error) {
	endpoint := c.baseURL + "/auth/me"
	var user types.User
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &user); err != nil {
		return nil, fmt.Errorf("whoami: %w", err)
	}
	return &user, nil
}

// callFunction posts a JSON body to one of the pipeline's named functions.
func (c *Client) callFunction(ctx context.Context, name string, body, out interface{}) error {
	endpoint := fmt.Sprintf("%s/functions/%s", c.baseURL, url.PathEscape(name))
	return c.do(ctx, http.MethodPost, endpoint, body, out)
}

func (c *Client) do(ctx context.Context, method, endpoint string, body, out interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	request, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	request.Header.Set("Content-Type", "application/json")

	start := time.Now()
	response, err := c.client.Do(request)
	if err != nil {
		c.logger.Debug("gateway request failed",
			zap.String("method", method),
			zap.String("url", endpoint),
			zap.Error(err))
		return err
	}
	defer func() { _ = response.Body.Close() }()

	c.logger.Debug("gateway request complete",
		zap.String("method", method),
		zap.String("url", endpoint),
		zap.Int("status", response.StatusCode),
		zap.Duration("duration", time.Since(start)))

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return fmt.Errorf("gateway error: status %d", response.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(response.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
