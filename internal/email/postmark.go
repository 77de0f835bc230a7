// Package email delivers workflow notifications through the Postmark API.
package email

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
)

const DefaultAPIURL = "https://api.postmarkapp.com/email"

type Client struct {
	serverToken string
	fromEmail   string
	apiURL      string
	httpClient  *http.Client
	maxRetries  uint64
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithAPIURL overrides the Postmark endpoint.
func WithAPIURL(url string) Option {
	return func(cl *Client) {
		cl.apiURL = url
	}
}

// WithMaxRetries sets how many times a 5xx or transport failure is retried.
func WithMaxRetries(n uint64) Option {
	return func(cl *Client) {
		cl.maxRetries = n
	}
}

func NewClient(serverToken, fromEmail string, opts ...Option) *Client {
	c := &Client{
		serverToken: serverToken,
		fromEmail:   fromEmail,
		apiURL:      DefaultAPIURL,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		maxRetries:  2,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured returns true if the server token and sender are set.
func (c *Client) Configured() bool {
	return c.serverToken != "" && c.fromEmail != ""
}

type postmarkEmail struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	TextBody string `json:"TextBody"`
	Tag      string `json:"Tag,omitempty"`
}

// APIError is a non-2xx Postmark response.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("postmark API error: status %d: %s", e.StatusCode, e.Body)
}

// Send delivers a plain-text notification email. tag groups messages in
// the Postmark dashboard and may be empty.
func (c *Client) Send(ctx context.Context, to, subject, text, tag string) error {
	if !c.Configured() {
		return fmt.Errorf("email client not configured: missing server token or sender")
	}

	body, err := json.Marshal(postmarkEmail{
		From:     c.fromEmail,
		To:       to,
		Subject:  subject,
		TextBody: text,
		Tag:      tag,
	})
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	backoff := retry.WithMaxRetries(c.maxRetries, retry.NewExponential(200*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := c.post(ctx, body)
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode < 500 {
			return err
		}
		return retry.RetryableError(err)
	})
}

func (c *Client) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Postmark-Server-Token", c.serverToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &APIError{StatusCode: resp.StatusCode, Body: string(msg)}
	}
	return nil
}
