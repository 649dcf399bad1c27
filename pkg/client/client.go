// Package client provides HTTP clients for communicating with replicactl services.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/DRAJ6/replicactl/pkg/autoscaler"
	"github.com/DRAJ6/replicactl/pkg/journal"
)

// AutoscalerClient is an HTTP client for the autoscaler status API.
// It is safe for concurrent use by multiple goroutines.
type AutoscalerClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewAutoscalerClient creates a new client for the autoscaler service.
// The baseURL should include the scheme and host (e.g., "http://localhost:8080").
// A default timeout of 5 seconds is used for HTTP requests.
func NewAutoscalerClient(baseURL string) *AutoscalerClient {
	return &AutoscalerClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// NewAutoscalerClientWithTimeout creates a new client with a custom timeout.
func NewAutoscalerClientWithTimeout(baseURL string, timeout time.Duration) *AutoscalerClient {
	return &AutoscalerClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type targetsResponse struct {
	Targets []autoscaler.Status `json:"targets"`
}

type decisionsResponse struct {
	Target    string           `json:"target"`
	Decisions []journal.Record `json:"decisions"`
}

// GetTargets fetches the status of every registered target.
//
// The context can be used to cancel the request or set deadlines.
func (c *AutoscalerClient) GetTargets(ctx context.Context) ([]autoscaler.Status, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	u.Path = "/v1/targets"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var body targetsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return body.Targets, nil
}

// GetDecisions fetches the most recent scaling decisions for a target.
// A limit of zero or less uses the server default.
//
// The context can be used to cancel the request or set deadlines.
// If the target is not registered, returns an error.
func (c *AutoscalerClient) GetDecisions(ctx context.Context, target string, limit int) ([]journal.Record, error) {
	if target == "" {
		return nil, fmt.Errorf("target cannot be empty")
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	u.Path = "/v1/decisions"
	query := u.Query()
	query.Set("target", target)
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("target %q not registered", target)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var body decisionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return body.Decisions, nil
}
