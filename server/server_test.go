package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feedmx/feedmx/pkg/scheduler"
	"github.com/feedmx/feedmx/server/mocks"
)

func newTestServer(sched Scheduler, seen SeenCounter) *Server {
	return New(Config{
		Listen:  ":0",
		Timeout: 5 * time.Second,
		Version: "test",
	}, sched, seen)
}

func TestServer_StatusHandler(t *testing.T) {
	nextTick := time.Date(2024, 6, 1, 13, 0, 0, 0, time.UTC)
	sched := &mocks.SchedulerMock{
		StatusFunc: func() scheduler.Status {
			return scheduler.Status{
				Feeds:     2,
				NextTick:  nextTick,
				Delivered: 7,
				Muted:     false,
			}
		},
	}
	seen := &mocks.SeenCounterMock{
		CountFunc: func(ctx context.Context) (int64, error) { return 42, nil },
	}

	srv := newTestServer(sched, seen)
	ts := httptest.NewServer(srv.router)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/v1/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Status    string           `json:"status"`
		Version   string           `json:"version"`
		Seen      int64            `json:"seen"`
		Scheduler scheduler.Status `json:"scheduler"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "test", body.Version)
	assert.Equal(t, int64(42), body.Seen)
	assert.Equal(t, 2, body.Scheduler.Feeds)
	assert.Equal(t, int64(7), body.Scheduler.Delivered)
	assert.True(t, nextTick.Equal(body.Scheduler.NextTick))

	assert.Len(t, sched.StatusCalls(), 1)
	assert.Len(t, seen.CountCalls(), 1)
}

func TestServer_StatusHandler_StoreError(t *testing.T) {
	sched := &mocks.SchedulerMock{
		StatusFunc: func() scheduler.Status { return scheduler.Status{} },
	}
	seen := &mocks.SeenCounterMock{
		CountFunc: func(ctx context.Context) (int64, error) {
			return 0, errors.New("database is locked")
		},
	}

	srv := newTestServer(sched, seen)
	ts := httptest.NewServer(srv.router)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/v1/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestServer_Ping(t *testing.T) {
	sched := &mocks.SchedulerMock{StatusFunc: func() scheduler.Status { return scheduler.Status{} }}
	seen := &mocks.SeenCounterMock{CountFunc: func(ctx context.Context) (int64, error) { return 0, nil }}

	srv := newTestServer(sched, seen)
	ts := httptest.NewServer(srv.router)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/ping")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_RunShutdown(t *testing.T) {
	sched := &mocks.SchedulerMock{StatusFunc: func() scheduler.Status { return scheduler.Status{} }}
	seen := &mocks.SeenCounterMock{CountFunc: func(ctx context.Context) (int64, error) { return 0, nil }}

	srv := New(Config{Listen: "127.0.0.1:0", Timeout: time.Second, Version: "test"}, sched, seen)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not shut down")
	}
}
