package matrix

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListener_SyncOnce(t *testing.T) {
	roomID := "!room:example.org"

	var receipts []string
	var messages []string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/_matrix/client/r0/sync"):
			assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))
			assert.NotEmpty(t, r.URL.Query().Get("filter"))

			resp := fmt.Sprintf(`{
				"next_batch": "batch-2",
				"rooms": {"join": {"%s": {"timeline": {"events": [
					{"type": "m.room.message", "event_id": "$msg1"},
					{"type": "m.room.member", "event_id": "$join1", "state_key": "@alice:example.org",
					 "content": {"membership": "join"}},
					{"type": "m.room.member", "event_id": "$leave1", "state_key": "@bob:example.org",
					 "content": {"membership": "leave"}}
				]}}}}
			}`, roomID)
			w.Write([]byte(resp))

		case strings.Contains(r.URL.Path, "/receipt/m.read/"):
			parts := strings.Split(r.URL.Path, "/")
			receipts = append(receipts, parts[len(parts)-1])
			w.Write([]byte(`{}`))

		case strings.HasSuffix(r.URL.Path, "/send/m.room.message"):
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			messages = append(messages, body["body"])
			w.Write([]byte(`{"event_id":"$welcome"}`))

		default:
			t.Errorf("unexpected request: %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := NewClient(Config{
		BaseURL:     server.URL,
		RoomID:      roomID,
		Token:       "secret-token",
		MaxAttempts: 2,
		BaseDelay:   time.Millisecond,
	})
	listener := NewListener(client, "")

	next, err := listener.syncOnce(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "batch-2", next)

	// message marked read, joiner welcomed, leaver ignored
	assert.Equal(t, []string{"$msg1"}, receipts)
	require.Len(t, messages, 1)
	assert.Equal(t, "Welcome to the room, @alice:example.org!", messages[0])
}

func TestListener_SyncOnce_PassesSinceToken(t *testing.T) {
	var gotSince string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSince = r.URL.Query().Get("since")
		w.Write([]byte(`{"next_batch":"batch-3"}`))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, RoomID: "!r:x", Token: "t"})
	listener := NewListener(client, "")

	next, err := listener.syncOnce(context.Background(), "batch-2")
	require.NoError(t, err)
	assert.Equal(t, "batch-3", next)
	assert.Equal(t, "batch-2", gotSince)
}

func TestListener_SyncOnce_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, RoomID: "!r:x", Token: "t"})
	listener := NewListener(client, "")

	_, err := listener.syncOnce(context.Background(), "")
	require.Error(t, err)
}

func TestListener_RunStopsOnCancel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"next_batch":"b"}`))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, RoomID: "!r:x", Token: "t"})
	listener := NewListener(client, "")
	listener.retryDelay = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		listener.Run(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop after cancel")
	}
}
