// Package matrix implements the chat-server side of the relay: message
// delivery to a single room with bounded retry, read receipts and the
// /sync event listener.
package matrix

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/go-pkgz/repeater/v2"

	"github.com/feedmx/feedmx/pkg/domain"
)

var (
	// ErrAuth is returned when the server rejects the access token. It will
	// not self-heal, so callers treat it as fatal for the run.
	ErrAuth = errors.New("matrix auth rejected")

	// ErrDeliveryFailed is returned when transient retries are exhausted or
	// the server answered with a non-retryable status. The article stays
	// unseen and is presented again on the next tick.
	ErrDeliveryFailed = errors.New("matrix delivery failed")
)

// Config holds client configuration
type Config struct {
	BaseURL     string // synapse host, scheme optional
	Port        int    // appended to BaseURL when non-zero
	RoomID      string
	Token       string
	Timeout     time.Duration
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// Client sends room messages to a Matrix (Synapse) server
type Client struct {
	baseURL     string
	roomID      string
	token       string
	client      *http.Client
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
}

// NewClient creates a Matrix client for a single target room
func NewClient(cfg Config) *Client {
	base := strings.TrimSuffix(cfg.BaseURL, "/")
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	if cfg.Port != 0 {
		base = fmt.Sprintf("%s:%d", base, cfg.Port)
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.BaseDelay == 0 {
		cfg.BaseDelay = 500 * time.Millisecond
	}
	if cfg.MaxDelay == 0 {
		cfg.MaxDelay = 30 * time.Second
	}

	return &Client{
		baseURL:     base,
		roomID:      cfg.RoomID,
		token:       cfg.Token,
		client:      &http.Client{Timeout: cfg.Timeout},
		maxAttempts: cfg.MaxAttempts,
		baseDelay:   cfg.BaseDelay,
		maxDelay:    cfg.MaxDelay,
	}
}

// SendArticle formats and delivers one article to the configured room
func (c *Client) SendArticle(ctx context.Context, article domain.Article) error {
	body := fmt.Sprintf("New article: %s\n%s", article.Title, article.Link)
	return c.SendMessage(ctx, body)
}

// SendMessage posts a text message to the room, retrying transient failures
// (network errors, 5xx, 429) with exponential backoff. Auth rejections stop
// immediately with ErrAuth; exhausted retries wrap ErrDeliveryFailed.
func (c *Client) SendMessage(ctx context.Context, text string) error {
	retrier := repeater.NewBackoff(c.maxAttempts, c.baseDelay, repeater.WithMaxDelay(c.maxDelay))

	err := retrier.Do(ctx, func() error {
		return c.postMessage(ctx, text)
	}, ErrAuth, ErrDeliveryFailed)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrAuth), errors.Is(err, ErrDeliveryFailed):
		return err
	default:
		return fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}
}

// postMessage performs a single send attempt
func (c *Client) postMessage(ctx context.Context, text string) error {
	endpoint := fmt.Sprintf("%s/_matrix/client/r0/rooms/%s/send/m.room.message",
		c.baseURL, url.PathEscape(c.roomID))

	payload := map[string]string{
		"msgtype": "m.text",
		"body":    text,
	}

	resp, err := c.post(ctx, endpoint, payload)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp); err != nil {
		return fmt.Errorf("send message: %w", err)
	}

	var result struct {
		EventID string `json:"event_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil && result.EventID != "" {
		lgr.Printf("[DEBUG] message sent, event %s", result.EventID)
	}
	return nil
}

// MarkRead posts a read receipt for the given event in the room
func (c *Client) MarkRead(ctx context.Context, eventID string) error {
	endpoint := fmt.Sprintf("%s/_matrix/client/r0/rooms/%s/receipt/m.read/%s",
		c.baseURL, url.PathEscape(c.roomID), url.PathEscape(eventID))

	payload := map[string]any{
		"m.read": map[string]string{"event_id": eventID},
	}

	resp, err := c.post(ctx, endpoint, payload)
	if err != nil {
		return fmt.Errorf("mark read %s: %w", eventID, err)
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp); err != nil {
		return fmt.Errorf("mark read %s: %w", eventID, err)
	}
	return nil
}

// post sends an authenticated JSON POST request
func (c *Client) post(ctx context.Context, endpoint string, payload any) (*http.Response, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	return c.client.Do(req)
}

// checkStatus maps the response status to the error taxonomy: 401/403 are
// terminal auth failures, 429 and 5xx are transient, other non-2xx are
// non-retryable delivery failures.
func (c *Client) checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: status %d: %s", ErrAuth, resp.StatusCode, strings.TrimSpace(string(body)))
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return fmt.Errorf("transient status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	default:
		return fmt.Errorf("%w: status %d: %s", ErrDeliveryFailed, resp.StatusCode, strings.TrimSpace(string(body)))
	}
}
