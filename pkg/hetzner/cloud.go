package hetzner

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"infrascope/pkg/logger"
)

const (
	cloudBaseURL   = "https://api.hetzner.cloud/v1"
	maxRetries     = 3
	initialBackoff = time.Second
	perPage        = 50
)

// CloudClient talks to the Hetzner Cloud API with Bearer token auth and
// exponential backoff retry on 429 rate-limit responses.
type CloudClient struct {
	token      string
	baseURL    string
	httpClient *http.Client
}

// CloudOption customizes a CloudClient
type CloudOption func(*CloudClient)

// WithCloudBaseURL overrides the API endpoint, used in tests
func WithCloudBaseURL(baseURL string) CloudOption {
	return func(c *CloudClient) {
		c.baseURL = baseURL
	}
}

// WithCloudHTTPClient overrides the underlying HTTP client
func WithCloudHTTPClient(client *http.Client) CloudOption {
	return func(c *CloudClient) {
		c.httpClient = client
	}
}

// NewCloudClient creates a Hetzner Cloud API client
func NewCloudClient(token string, opts ...CloudOption) *CloudClient {
	c := &CloudClient{
		token:   token,
		baseURL: cloudBaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// doRequest issues one request with retry on 429. A Retry-After header wins
// over the computed backoff when present.
func (c *CloudClient) doRequest(ctx context.Context, method, path string, params url.Values) ([]byte, error) {
	backoff := initialBackoff

	for attempt := 1; attempt <= maxRetries; attempt++ {
		reqURL := c.baseURL + path
		if len(params) > 0 {
			reqURL += "?" + params.Encode()
		}

		req, err := http.NewRequestWithContext(ctx, method, reqURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to build request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("cloud api request failed: %w", err)
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read cloud api response: %w", err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			wait := retryDelay(resp.Header.Get("Retry-After"), backoff)
			logger.WarnCtx(ctx, "rate limited by cloud api (attempt %d/%d), retrying in %.1fs",
				attempt, maxRetries, wait.Seconds())
			if err := sleepCtx(ctx, wait); err != nil {
				return nil, err
			}
			backoff *= 2
			continue
		}

		if resp.StatusCode >= 400 {
			return nil, newAPIError("cloud", resp.StatusCode, body)
		}

		return body, nil
	}

	return nil, &APIError{API: "cloud", StatusCode: http.StatusTooManyRequests,
		Detail: "rate limit exceeded after max retries"}
}

// ListServers returns all cloud servers across all pages
func (c *CloudClient) ListServers(ctx context.Context) ([]*CloudServer, error) {
	var all []*CloudServer
	page := 1

	for {
		params := url.Values{}
		params.Set("page", strconv.Itoa(page))
		params.Set("per_page", strconv.Itoa(perPage))

		body, err := c.doRequest(ctx, http.MethodGet, "/servers", params)
		if err != nil {
			return nil, err
		}

		var resp struct {
			Servers []*CloudServer `json:"servers"`
			Meta    meta           `json:"meta"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("failed to decode server list: %w", err)
		}
		all = append(all, resp.Servers...)

		lastPage := resp.Meta.Pagination.LastPage
		if lastPage == 0 {
			lastPage = page
		}
		if page >= lastPage {
			break
		}
		page++
	}

	return all, nil
}

// ListServerTypes returns all server types across all pages
func (c *CloudClient) ListServerTypes(ctx context.Context) ([]*ServerType, error) {
	var all []*ServerType
	page := 1

	for {
		params := url.Values{}
		params.Set("page", strconv.Itoa(page))
		params.Set("per_page", strconv.Itoa(perPage))

		body, err := c.doRequest(ctx, http.MethodGet, "/server_types", params)
		if err != nil {
			return nil, err
		}

		var resp struct {
			ServerTypes []*ServerType `json:"server_types"`
			Meta        meta          `json:"meta"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("failed to decode server type list: %w", err)
		}
		all = append(all, resp.ServerTypes...)

		lastPage := resp.Meta.Pagination.LastPage
		if lastPage == 0 {
			lastPage = page
		}
		if page >= lastPage {
			break
		}
		page++
	}

	return all, nil
}

// GetServerMetrics fetches one metric type for a server over a time window.
// metricType is one of "cpu", "disk", "network".
func (c *CloudClient) GetServerMetrics(ctx context.Context, serverID int64, metricType string, start, end time.Time) (*MetricsResponse, error) {
	params := url.Values{}
	params.Set("type", metricType)
	params.Set("start", start.Format(time.RFC3339))
	params.Set("end", end.Format(time.RFC3339))

	body, err := c.doRequest(ctx, http.MethodGet,
		fmt.Sprintf("/servers/%d/metrics", serverID), params)
	if err != nil {
		return nil, err
	}

	var resp MetricsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode metrics: %w", err)
	}
	return &resp, nil
}

// retryDelay picks the server-instructed delay when given, else the backoff
func retryDelay(retryAfter string, backoff time.Duration) time.Duration {
	if retryAfter != "" {
		if secs, err := strconv.ParseFloat(retryAfter, 64); err == nil && secs >= 0 {
			return time.Duration(secs * float64(time.Second))
		}
	}
	return backoff
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
