package upstream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// streamPath is the connect-RPC procedure the gateway speaks to.
const streamPath = "/aiserver.v1.ChatService/StreamUnifiedChatWithTools"

// Client configuration defaults.
const (
	defaultTimeout             = 5 * time.Minute
	defaultMaxIdleConns        = 100
	defaultMaxIdleConnsPerHost = 10
	defaultIdleConnTimeout     = 90 * time.Second
	defaultMaxRetries          = 2

	// Version and timezone strings the upstream expects to see from a
	// well-formed client.
	defaultClientVersion = "0.42.5"
	defaultTimezone      = "Asia/Shanghai"
)

// ClientConfig configures the upstream HTTP client.
type ClientConfig struct {
	// BaseURL is the upstream origin, without the procedure path.
	BaseURL string

	// Token is the static bearer token sent on every request.
	Token string

	// Timeout bounds a whole request including the streamed response body.
	Timeout time.Duration

	// MaxRetries is the number of re-attempts for network errors and 5xx
	// responses before the first response byte.
	MaxRetries int

	// ClientVersion overrides the x-cursor-client-version header.
	ClientVersion string

	// Timezone overrides the x-cursor-timezone header.
	Timezone string

	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
}

func (c *ClientConfig) applyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = defaultMaxRetries
	}
	if c.ClientVersion == "" {
		c.ClientVersion = defaultClientVersion
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = defaultMaxIdleConns
	}
	if c.MaxIdleConnsPerHost <= 0 {
		c.MaxIdleConnsPerHost = defaultMaxIdleConnsPerHost
	}
	if c.IdleConnTimeout <= 0 {
		c.IdleConnTimeout = defaultIdleConnTimeout
	}
}

// Client issues streaming chat requests against the upstream service over a
// pooled HTTP client. It is safe for concurrent use.
type Client struct {
	config ClientConfig
	client *http.Client
}

// NewClient creates an upstream client with connection pooling.
func NewClient(config ClientConfig) *Client {
	config.applyDefaults()

	transport := &http.Transport{
		MaxIdleConns:        config.MaxIdleConns,
		MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
		IdleConnTimeout:     config.IdleConnTimeout,
		DisableCompression:  false,
		ForceAttemptHTTP2:   true,
	}

	return &Client{
		config: config,
		client: &http.Client{
			Transport: transport,
			Timeout:   config.Timeout,
		},
	}
}

// Stream sends one framed request body and returns the raw response stream.
// The caller owns the returned body and must close it. Network errors and
// 5xx responses are retried with exponential backoff; auth and rate-limit
// rejections return immediately as typed errors.
func (c *Client) Stream(ctx context.Context, body []byte) (io.ReadCloser, error) {
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
			slog.Debug("retrying upstream request",
				"attempt", attempt,
				"max_retries", c.config.MaxRetries,
				"backoff", backoff,
			)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.config.BaseURL+streamPath, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		c.setHeaders(req)

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err

			if ctx.Err() != nil {
				// Context cancelled or timed out, don't retry.
				return nil, &TimeoutError{Timeout: c.config.Timeout}
			}

			slog.Warn("upstream request failed, will retry",
				"attempt", attempt+1,
				"error", err,
			)
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp.Body, nil
		}

		errorBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return nil, &AuthError{Message: string(errorBody)}

		case http.StatusTooManyRequests:
			return nil, &RateLimitError{
				RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
				Message:    string(errorBody),
			}

		case http.StatusBadRequest:
			return nil, &UpstreamError{
				StatusCode: resp.StatusCode,
				Message:    string(errorBody),
			}

		default:
			lastErr = &UpstreamError{
				StatusCode: resp.StatusCode,
				Message:    string(errorBody),
			}
			slog.Warn("upstream returned error status, will retry",
				"status", resp.StatusCode,
				"attempt", attempt+1,
			)
		}
	}

	return nil, lastErr
}

func (c *Client) setHeaders(req *http.Request) {
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/connect+proto")
	req.Header.Set("Authorization", "Bearer "+c.config.Token)
	req.Header.Set("connect-accept-encoding", "gzip,br")
	req.Header.Set("connect-protocol-version", "1")
	req.Header.Set("user-agent", "connect-es/1.6.1")
	req.Header.Set("x-amzn-trace-id", "Root="+requestID)
	req.Header.Set("x-cursor-client-version", c.config.ClientVersion)
	req.Header.Set("x-cursor-timezone", c.config.Timezone)
	req.Header.Set("x-ghost-mode", "false")
	req.Header.Set("x-request-id", requestID)
}

// Close releases pooled connections.
func (c *Client) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

// parseRetryAfter parses the Retry-After header value.
// It supports both delay-seconds and HTTP-date formats.
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}

	var seconds int
	if _, err := fmt.Sscanf(header, "%d", &seconds); err == nil {
		return time.Duration(seconds) * time.Second
	}

	if t, err := http.ParseTime(header); err == nil {
		return time.Until(t)
	}

	return 0
}
