package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/serlink/internal/logging"
	"github.com/muurk/serlink/internal/settings"
	"github.com/muurk/serlink/internal/version"
)

const (
	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 10 * time.Second

	// DefaultMaxRetries is the default number of retry attempts for failed requests
	DefaultMaxRetries = 3

	// DefaultRetryDelay is the default delay between retry attempts
	DefaultRetryDelay = 500 * time.Millisecond

	// DefaultMaxRetryDelay is the maximum delay for exponential backoff
	DefaultMaxRetryDelay = 10 * time.Second
)

// Client talks to the JSON API of a serlink bridge.
type Client struct {
	// BaseURL is the bridge root, e.g. "http://192.168.1.50:8080"
	BaseURL string

	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client

	// MaxRetries is the maximum number of retry attempts for failed requests
	MaxRetries int

	// RetryDelay is the initial delay between retry attempts
	RetryDelay time.Duration

	// MaxRetryDelay is the maximum delay for exponential backoff
	MaxRetryDelay time.Duration

	// UseExponentialBackoff doubles the delay after each retry
	UseExponentialBackoff bool
}

// UpdateResult is the body of a successful settings update.
type UpdateResult struct {
	Settings settings.Snapshot `json:"settings"`
	Warnings []string          `json:"warnings,omitempty"`
}

type errorBody struct {
	Error   string   `json:"error"`
	Type    string   `json:"type"`
	Details []string `json:"details"`
}

// NewClient creates a client for the bridge at baseURL. A bare host or
// host:port is given an http:// scheme.
func NewClient(baseURL string) *Client {
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	return &Client{
		BaseURL:               strings.TrimRight(baseURL, "/"),
		HTTPClient:            &http.Client{Timeout: DefaultTimeout},
		MaxRetries:            DefaultMaxRetries,
		RetryDelay:            DefaultRetryDelay,
		MaxRetryDelay:         DefaultMaxRetryDelay,
		UseExponentialBackoff: true,
	}
}

// SetTimeout sets the HTTP request timeout
func (c *Client) SetTimeout(timeout time.Duration) {
	c.HTTPClient.Timeout = timeout
}

// SetRetry configures retry behavior
func (c *Client) SetRetry(maxRetries int, retryDelay time.Duration) {
	c.MaxRetries = maxRetries
	c.RetryDelay = retryDelay
}

// Ping checks that the bridge answers its health probe.
func (c *Client) Ping(ctx context.Context) error {
	return c.retry(ctx, "ping", func() error {
		resp, err := c.do(ctx, http.MethodGet, "/healthz", nil)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()
		if resp.StatusCode != http.StatusOK {
			return NewHTTPError(resp.StatusCode, fmt.Sprintf("unexpected status code: %d", resp.StatusCode))
		}
		return nil
	})
}

// GetSettings fetches the bridge's current settings.
func (c *Client) GetSettings(ctx context.Context) (settings.Snapshot, error) {
	var snap settings.Snapshot
	err := c.retry(ctx, "get settings", func() error {
		resp, err := c.do(ctx, http.MethodGet, "/api/settings", nil)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			return NewHTTPError(resp.StatusCode, fmt.Sprintf("unexpected status code: %d", resp.StatusCode))
		}
		if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
			return NewParseError("failed to parse settings response", err)
		}
		return nil
	})
	return snap, err
}

// PutSettings replaces the bridge's settings with s.
func (c *Client) PutSettings(ctx context.Context, s settings.Snapshot) (*UpdateResult, error) {
	body, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode settings: %w", err)
	}

	var result UpdateResult
	err = c.retry(ctx, "put settings", func() error {
		resp, err := c.do(ctx, http.MethodPut, "/api/settings", body)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			return responseError(resp)
		}
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return NewParseError("failed to parse update response", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Reboot asks the bridge to restart. It is not retried, so a bridge that
// went down mid-request is not rebooted twice.
func (c *Client) Reboot(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodPost, "/api/reboot", nil)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusAccepted {
		return responseError(resp)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rd)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, ClassifyNetworkError(method+" "+path+" failed", err)
	}
	return resp, nil
}

// retry runs attempt until it succeeds, fails with a non-retryable error,
// exhausts MaxRetries or ctx is done.
func (c *Client) retry(ctx context.Context, op string, attempt func() error) error {
	var lastErr error
	delay := c.RetryDelay

	for i := 0; i <= c.MaxRetries; i++ {
		if i > 0 {
			logging.Debug("Retrying request",
				zap.String("op", op),
				zap.Int("attempt", i+1),
				zap.Duration("delay", delay),
				zap.Error(lastErr),
			)
			if err := sleep(ctx, delay); err != nil {
				return lastErr
			}
			if c.UseExponentialBackoff {
				delay *= 2
				if delay > c.MaxRetryDelay {
					delay = c.MaxRetryDelay
				}
			}
		}

		err := attempt()
		if err == nil {
			return nil
		}
		lastErr = err

		if !IsRetryable(err) || ctx.Err() != nil {
			return err
		}
	}

	return lastErr
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// responseError turns a non-success response into a RemoteError, using the
// bridge's JSON error body when it has one.
func responseError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	switch resp.StatusCode {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		var eb errorBody
		if err := json.Unmarshal(data, &eb); err == nil && eb.Error != "" {
			msg := eb.Error
			if eb.Type != "" {
				msg = fmt.Sprintf("%s (%s)", eb.Error, eb.Type)
			}
			return NewRejectedError(resp.StatusCode, msg, eb.Details)
		}
		return NewRejectedError(resp.StatusCode, strings.TrimSpace(string(data)), nil)
	}

	return NewHTTPError(resp.StatusCode, fmt.Sprintf("request failed with status %d: %s",
		resp.StatusCode, strings.TrimSpace(string(data))))
}
