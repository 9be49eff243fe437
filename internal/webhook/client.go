// internal/webhook/client.go
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/signalnine/housewatch/internal/protocol"
)

// maxErrorBody caps how much of an error response is kept
const maxErrorBody = 512

// Client posts alerts to a Discord-compatible webhook
type Client struct {
	url        string
	client     *http.Client
	retry      RetryPolicy
	limiter    *rate.Limiter
	thumbnails map[protocol.Kind]string
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// WithRetry sets the retry policy. The default is NoRetry.
func WithRetry(p RetryPolicy) Option {
	return func(c *Client) { c.retry = p }
}

// WithRateLimit spaces deliveries to at most perMinute, with a small burst
func WithRateLimit(perMinute int) Option {
	return func(c *Client) {
		if perMinute > 0 {
			c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 5)
		}
	}
}

// WithThumbnails sets an image URL per alert kind
func WithThumbnails(t map[protocol.Kind]string) Option {
	return func(c *Client) { c.thumbnails = t }
}

// New creates a webhook client for url
func New(url string, opts ...Option) *Client {
	c := &Client{
		url:    url,
		client: &http.Client{Timeout: 30 * time.Second},
		retry:  NoRetry{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Deliver sends one alert. Every failure is returned as a *DeliveryError.
func (c *Client) Deliver(ctx context.Context, alert protocol.Alert) error {
	body, err := json.Marshal(Render(alert, c.thumbnails))
	if err != nil {
		return &DeliveryError{Err: err}
	}

	return c.retry.Do(ctx, func() error {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return &DeliveryError{Err: err}
			}
		}
		return c.post(ctx, body)
	})
}

func (c *Client) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, "POST", c.url, bytes.NewReader(body))
	if err != nil {
		return &DeliveryError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return &DeliveryError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &DeliveryError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(excerpt)),
		}
	}

	// Drain so the connection can be reused
	io.Copy(io.Discard, resp.Body)
	return nil
}
