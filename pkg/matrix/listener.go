package matrix

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-pkgz/lgr"
)

// Listener follows the room timeline via the /sync long-poll endpoint,
// marks incoming messages as read and greets users joining the room.
type Listener struct {
	client     *Client
	welcome    string // welcome message template, one %s for the user id
	retryDelay time.Duration
}

// NewListener creates a listener for the client's room
func NewListener(client *Client, welcome string) *Listener {
	if welcome == "" {
		welcome = "Welcome to the room, %s!"
	}
	return &Listener{
		client:     client,
		welcome:    welcome,
		retryDelay: 10 * time.Second,
	}
}

// Run polls /sync until the context is canceled. Errors are logged and the
// loop resumes after a short delay.
func (l *Listener) Run(ctx context.Context) {
	lgr.Printf("[INFO] matrix listener started for room %s", l.client.roomID)

	since := ""
	for {
		if ctx.Err() != nil {
			lgr.Printf("[INFO] matrix listener stopped")
			return
		}

		next, err := l.syncOnce(ctx, since)
		if err != nil {
			if ctx.Err() != nil {
				lgr.Printf("[INFO] matrix listener stopped")
				return
			}
			lgr.Printf("[WARN] sync failed: %v", err)
			select {
			case <-time.After(l.retryDelay):
			case <-ctx.Done():
			}
			continue
		}
		since = next
	}
}

type syncResponse struct {
	NextBatch string `json:"next_batch"`
	Rooms     struct {
		Join map[string]struct {
			Timeline struct {
				Events []roomEvent `json:"events"`
			} `json:"timeline"`
		} `json:"join"`
	} `json:"rooms"`
}

type roomEvent struct {
	Type     string `json:"type"`
	EventID  string `json:"event_id"`
	StateKey string `json:"state_key"`
	Content  struct {
		Membership string `json:"membership"`
	} `json:"content"`
}

// syncOnce performs one /sync request and handles the returned room events
func (l *Listener) syncOnce(ctx context.Context, since string) (nextBatch string, err error) {
	filter := `{"room":{"timeline":{"limit":10}}}`

	params := url.Values{}
	params.Set("filter", filter)
	params.Set("timeout", "25000") // long poll, below the HTTP client timeout
	if since != "" {
		params.Set("since", since)
	}

	endpoint := l.client.baseURL + "/_matrix/client/r0/sync?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("create sync request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+l.client.token)

	resp, err := l.client.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("sync request: %w", err)
	}
	defer resp.Body.Close()

	if err := l.client.checkStatus(resp); err != nil {
		return "", fmt.Errorf("sync request: %w", err)
	}

	var data syncResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", fmt.Errorf("decode sync response: %w", err)
	}

	room, ok := data.Rooms.Join[l.client.roomID]
	if ok {
		l.handleEvents(ctx, room.Timeline.Events)
	}

	return data.NextBatch, nil
}

// handleEvents marks messages as read and welcomes joining users
func (l *Listener) handleEvents(ctx context.Context, events []roomEvent) {
	for _, ev := range events {
		switch {
		case ev.Type == "m.room.message":
			if err := l.client.MarkRead(ctx, ev.EventID); err != nil {
				lgr.Printf("[WARN] failed to mark %s as read: %v", ev.EventID, err)
			}
		case ev.Type == "m.room.member" && ev.Content.Membership == "join":
			msg := fmt.Sprintf(l.welcome, ev.StateKey)
			if err := l.client.SendMessage(ctx, msg); err != nil {
				lgr.Printf("[WARN] failed to welcome %s: %v", ev.StateKey, err)
			}
		}
	}
}
