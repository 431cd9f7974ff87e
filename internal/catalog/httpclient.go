package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// maxResponseBytes bounds a single catalog response body
const maxResponseBytes = 4 << 20

// RetryConfig defines retry behaviour for supplier requests
type RetryConfig struct {
	MaxRetries        int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	RetryableStatuses []int
}

// DefaultRetryConfig retries transient failures twice. The matcher's
// per-lookup timeout still bounds the total time spent.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     2,
		InitialBackoff: 150 * time.Millisecond,
		MaxBackoff:     time.Second,
		RetryableStatuses: []int{
			http.StatusRequestTimeout,
			http.StatusTooManyRequests,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout,
		},
	}
}

// HTTPDoer is satisfied by *http.Client
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPClient issues rate-limited, retried requests to one supplier
type HTTPClient struct {
	doer        HTTPDoer
	limiter     *rate.Limiter
	retryConfig RetryConfig
	supplier    string
	userAgent   string
}

// NewHTTPClient creates a client for one supplier. rps <= 0 disables the
// outbound rate limit.
func NewHTTPClient(doer HTTPDoer, supplier string, rps float64) *HTTPClient {
	if doer == nil {
		doer = &http.Client{Timeout: 10 * time.Second}
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if rps > 0 {
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
	return &HTTPClient{
		doer:        doer,
		limiter:     limiter,
		retryConfig: DefaultRetryConfig(),
		supplier:    supplier,
		userAgent:   "trade-basket/1.0 (+price comparison)",
	}
}

// Get fetches url with retries and returns the body of a 2xx response
func (c *HTTPClient) Get(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	var lastErr error
	backoff := c.retryConfig.InitialBackoff

	for attempt := 0; attempt <= c.retryConfig.MaxRetries; attempt++ {
		if attempt > 0 {
			slog.DebugContext(ctx, "retrying supplier request",
				"supplier", c.supplier,
				"attempt", attempt,
				"url", url,
				"backoff", backoff,
			)

			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}

			backoff *= 2
			if backoff > c.retryConfig.MaxBackoff {
				backoff = c.retryConfig.MaxBackoff
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("User-Agent", c.userAgent)
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := c.doer.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = fmt.Errorf("request failed: %w", err)
			continue
		}

		body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		resp.Body.Close()

		if c.isRetryableStatus(resp.StatusCode) {
			lastErr = &HTTPError{StatusCode: resp.StatusCode, Status: resp.Status, Body: body}
			continue
		}
		if resp.StatusCode >= 400 {
			return nil, &HTTPError{StatusCode: resp.StatusCode, Status: resp.Status, Body: body}
		}
		if readErr != nil {
			return nil, fmt.Errorf("read response: %w", readErr)
		}
		return body, nil
	}

	return nil, fmt.Errorf("max retries exceeded for %s: %w", url, lastErr)
}

// GetJSON fetches url and decodes the JSON body into result
func (c *HTTPClient) GetJSON(ctx context.Context, url string, headers map[string]string, result any) error {
	body, err := c.Get(ctx, url, headers)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *HTTPClient) isRetryableStatus(statusCode int) bool {
	for _, s := range c.retryConfig.RetryableStatuses {
		if s == statusCode {
			return true
		}
	}
	return false
}

// HTTPError represents a non-2xx supplier response
type HTTPError struct {
	StatusCode int
	Status     string
	Body       []byte
}

func (e *HTTPError) Error() string {
	if len(e.Body) > 0 && len(e.Body) <= 256 {
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, string(e.Body))
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Status)
}
