package wayback

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	errs "waycrawl/pkg/errors"
	"waycrawl/pkg/logger"
)

// Client is the shared HTTP client for the archive's services. It maps
// transport failures and response statuses onto typed errors so the retry
// layer can tell transient failures from permanent ones.
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	logger     logger.Logger
}

// NewClient creates a new archive HTTP client
func NewClient(timeout time.Duration, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		headers: map[string]string{
			"Accept": "application/json, text/html;q=0.9, */*;q=0.8",
		},
		logger: log,
	}
}

// SetHeader sets a custom header for all subsequent requests
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// Get performs a GET request against the archive. The returned response's
// body is open; callers own closing it. Non-success statuses are returned
// as typed errors with the response body already closed.
func (c *Client) Get(ctx context.Context, requestURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, &errs.Error{
			Type:    errs.ErrorTypeUnknown,
			Message: fmt.Sprintf("failed to create request: %v", err),
			URL:     requestURL,
		}
	}

	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	c.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
		"method": req.Method,
		"url":    requestURL,
	})

	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"url":      requestURL,
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, &errs.Error{
			Type:    errs.ErrorTypeNetwork,
			Message: fmt.Sprintf("network error: %v", err),
			URL:     requestURL,
		}
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"url":      requestURL,
		"status":   resp.StatusCode,
		"duration": duration,
	})

	if err := c.checkResponseStatus(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}

	return resp, nil
}

// checkResponseStatus converts non-success statuses into typed errors.
// 429 responses carry the server's Retry-After hint when present.
func (c *Client) checkResponseStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	apiErr := &errs.Error{
		Type:    errs.TypeForStatusCode(resp.StatusCode),
		Message: fmt.Sprintf("archive returned status %d", resp.StatusCode),
		Code:    resp.StatusCode,
		URL:     resp.Request.URL.String(),
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		apiErr.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
		c.logger.WarnWithFields("rate limited by archive", map[string]interface{}{
			"url":         apiErr.URL,
			"retry_after": apiErr.RetryAfter,
		})
	}

	return apiErr
}

// parseRetryAfter handles both delta-seconds and HTTP-date forms
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds >= 0 {
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}
