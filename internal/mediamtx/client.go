// Package mediamtx talks to the sibling MediaMTX media server: publish URL
// construction, startup readiness probing, and API health checks.
package mediamtx

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// Endpoint locates the MediaMTX instance the publishers push to.
type Endpoint struct {
	Host     string
	RTSPPort int
	APIPort  int
}

// PublishURL returns the RTSP URL a publisher for streamID pushes to.
func (e Endpoint) PublishURL(streamID string) string {
	return fmt.Sprintf("rtsp://%s:%d/%s", e.Host, e.RTSPPort, streamID)
}

func (e Endpoint) rtspAddr() string {
	return net.JoinHostPort(e.Host, fmt.Sprintf("%d", e.RTSPPort))
}

// HealthCheck reports MediaMTX API health.
type HealthCheck struct {
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	PathCount int       `json:"path_count"`
	Timestamp time.Time `json:"timestamp"`
}

type pathListResponse struct {
	ItemCount int `json:"itemCount"`
	Items     []struct {
		Name  string `json:"name"`
		Ready bool   `json:"ready"`
	} `json:"items"`
}

// Client probes a MediaMTX instance.
type Client struct {
	endpoint   Endpoint
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a MediaMTX client.
func NewClient(endpoint Endpoint, logger *slog.Logger) *Client {
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		logger:     logger,
	}
}

// Endpoint returns the configured endpoint.
func (c *Client) Endpoint() Endpoint {
	return c.endpoint
}

// WaitReady blocks until the RTSP port accepts connections or ctx expires.
// Publishers started before MediaMTX listens would just die and not be
// restarted, so startup waits here first.
func (c *Client) WaitReady(ctx context.Context) error {
	addr := c.endpoint.rtspAddr()
	c.logger.Info("Waiting for media server", "addr", addr)

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		conn, err := net.DialTimeout("tcp", addr, time.Second)
		if err == nil {
			conn.Close()
			c.logger.Info("Media server is ready", "addr", addr)
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("media server at %s not ready: %w", addr, ctx.Err())
		case <-ticker.C:
		}
	}
}

// CheckHealth queries the MediaMTX paths API. The returned HealthCheck is
// always usable, even when err is non-nil.
func (c *Client) CheckHealth(ctx context.Context) (*HealthCheck, error) {
	url := fmt.Sprintf("http://%s/v3/paths/list",
		net.JoinHostPort(c.endpoint.Host, fmt.Sprintf("%d", c.endpoint.APIPort)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return unhealthy(fmt.Sprintf("building request: %v", err)), err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return unhealthy(fmt.Sprintf("failed to connect to media server: %v", err)), err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("media server returned status %d", resp.StatusCode)
		return unhealthy(err.Error()), err
	}

	var paths pathListResponse
	if err := json.NewDecoder(resp.Body).Decode(&paths); err != nil {
		return unhealthy(fmt.Sprintf("failed to parse media server response: %v", err)), err
	}

	return &HealthCheck{
		Status:    "ok",
		Message:   "media server is healthy",
		PathCount: paths.ItemCount,
		Timestamp: time.Now(),
	}, nil
}

func unhealthy(message string) *HealthCheck {
	return &HealthCheck{
		Status:    "error",
		Message:   message,
		Timestamp: time.Now(),
	}
}
