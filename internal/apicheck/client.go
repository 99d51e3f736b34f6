// Package apicheck runs declarative HTTP checks against an API, with retries
// for transient failures and assertions on the JSON response.
package apicheck

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cfranzen/webgrit/internal/log"
)

// Config defines the API client settings. Values can be set via a config yml
// file or environment variables or both.
type Config struct {
	BaseURL    string `yaml:"base_url" env:"API_BASE_URL"`
	TimeoutMS  int    `yaml:"timeout_ms" env:"API_TIMEOUT_MS" env-default:"30000"`
	MaxRetries int    `yaml:"max_retries" env:"API_MAX_RETRIES" env-default:"3"`
	BackoffMS  int    `yaml:"backoff_ms" env:"API_BACKOFF_MS" env-default:"1000"`
	User       string `yaml:"user" env:"API_USER"`         // we want to be able to pass credentials via env vars
	Password   string `yaml:"password" env:"API_PASSWORD"` // we want to be able to pass credentials via env vars
}

// retryable are the statuses worth retrying, transient by nature.
var retryable = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

type Client struct {
	*Config
	httpClient *http.Client
}

func NewClient(cfg *Config) *Client {
	timeout := time.Duration(cfg.TimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		Config:     cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Run executes the check and returns an error if the response status or any
// assertion does not match.
func (c *Client) Run(ctx context.Context, check Check) error {
	logger := log.LoggerFromContext(ctx).With(slog.String("check", check.Name))

	status, body, err := c.do(ctx, check)
	if err != nil {
		return err
	}
	if status != check.expectedStatus() {
		return fmt.Errorf("unexpected status code %d, want %d (body: %s)", status, check.expectedStatus(), shorten(body, 200))
	}
	for _, a := range check.Assert {
		if err := a.eval(body); err != nil {
			return err
		}
	}
	logger.Debug("check passed", slog.Int("status", status))
	return nil
}

// do sends the request, retrying transport errors and transient status codes
// with linear backoff.
func (c *Client) do(ctx context.Context, check Check) (int, string, error) {
	logger := log.LoggerFromContext(ctx).With(slog.String("check", check.Name))
	backoff := time.Duration(c.BackoffMS) * time.Millisecond

	var lastErr error
	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		if attempt > 0 {
			logger.Debug(fmt.Sprintf("retrying request, attempt %d of %d", attempt, c.MaxRetries))
			select {
			case <-time.After(time.Duration(attempt) * backoff):
			case <-ctx.Done():
				return 0, "", ctx.Err()
			}
		}

		req, err := c.newRequest(ctx, check)
		if err != nil {
			return 0, "", err
		}
		start := time.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		logger.Debug("request done",
			slog.String("method", req.Method),
			slog.String("url", req.URL.String()),
			slog.Int("status", resp.StatusCode),
			slog.Duration("elapsed", time.Since(start)))

		if retryable[resp.StatusCode] {
			lastErr = fmt.Errorf("transient status code %d", resp.StatusCode)
			continue
		}
		return resp.StatusCode, string(body), nil
	}
	return 0, "", fmt.Errorf("request failed after %d attempts: %w", c.MaxRetries+1, lastErr)
}

func (c *Client) newRequest(ctx context.Context, check Check) (*http.Request, error) {
	var bodyReader io.Reader
	if check.Body != "" {
		bodyReader = strings.NewReader(check.Body)
	}
	req, err := http.NewRequestWithContext(ctx, check.method(), c.resolveURL(check.Path), bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range check.Headers {
		req.Header.Set(k, v)
	}
	if c.User != "" {
		req.SetBasicAuth(c.User, c.Password)
	}
	return req, nil
}

func (c *Client) resolveURL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimSuffix(c.BaseURL, "/") + "/" + strings.TrimPrefix(path, "/")
}

func shorten(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length] + "..."
}
