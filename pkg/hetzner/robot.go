package hetzner

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"infrascope/pkg/logger"
)

const robotBaseURL = "https://robot-ws.your-server.de"

// RobotClient talks to the Hetzner Robot API with HTTP Basic auth. The
// Robot API does not expose utilization metrics, those come from the host
// agent instead.
type RobotClient struct {
	user       string
	password   string
	baseURL    string
	httpClient *http.Client
}

// RobotOption customizes a RobotClient
type RobotOption func(*RobotClient)

// WithRobotBaseURL overrides the API endpoint, used in tests
func WithRobotBaseURL(baseURL string) RobotOption {
	return func(c *RobotClient) {
		c.baseURL = baseURL
	}
}

// WithRobotHTTPClient overrides the underlying HTTP client
func WithRobotHTTPClient(client *http.Client) RobotOption {
	return func(c *RobotClient) {
		c.httpClient = client
	}
}

// NewRobotClient creates a Hetzner Robot API client
func NewRobotClient(user, password string, opts ...RobotOption) *RobotClient {
	c := &RobotClient{
		user:     user,
		password: password,
		baseURL:  robotBaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *RobotClient) doRequest(ctx context.Context, method, path string) ([]byte, error) {
	backoff := initialBackoff

	for attempt := 1; attempt <= maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to build request: %w", err)
		}
		req.SetBasicAuth(c.user, c.password)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("robot api request failed: %w", err)
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read robot api response: %w", err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			wait := retryDelay(resp.Header.Get("Retry-After"), backoff)
			logger.WarnCtx(ctx, "rate limited by robot api (attempt %d/%d), retrying in %.1fs",
				attempt, maxRetries, wait.Seconds())
			if err := sleepCtx(ctx, wait); err != nil {
				return nil, err
			}
			backoff *= 2
			continue
		}

		if resp.StatusCode >= 400 {
			return nil, newAPIError("robot", resp.StatusCode, body)
		}

		return body, nil
	}

	return nil, &APIError{API: "robot", StatusCode: http.StatusTooManyRequests,
		Detail: "rate limit exceeded after max retries"}
}

// ListServers returns all dedicated servers. The Robot API wraps each entry
// under a "server" key.
func (c *RobotClient) ListServers(ctx context.Context) ([]*RobotServer, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/server")
	if err != nil {
		return nil, err
	}

	var wrapped []struct {
		Server *RobotServer `json:"server"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, fmt.Errorf("failed to decode dedicated server list: %w", err)
	}

	servers := make([]*RobotServer, 0, len(wrapped))
	for _, item := range wrapped {
		if item.Server != nil {
			servers = append(servers, item.Server)
		}
	}
	return servers, nil
}

// GetServer returns details for one dedicated server by its primary IPv4
func (c *RobotClient) GetServer(ctx context.Context, serverIP string) (*RobotServer, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/server/"+serverIP)
	if err != nil {
		return nil, err
	}

	var wrapped struct {
		Server *RobotServer `json:"server"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, fmt.Errorf("failed to decode dedicated server: %w", err)
	}
	if wrapped.Server == nil {
		return nil, fmt.Errorf("robot api returned no server for %s", serverIP)
	}
	return wrapped.Server, nil
}
