package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rfid_llrp_go/internal/manager"
	"rfid_llrp_go/sdk"
)

type fakeController struct {
	mu       sync.Mutex
	starts   int
	stops    int
	startErr error
	status   manager.Status
}

func (f *fakeController) Start(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	if f.startErr != nil {
		return f.startErr
	}
	f.status.Running = true
	return nil
}

func (f *fakeController) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	f.status.Running = false
}

func (f *fakeController) Status() manager.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *fakeController) StatusText() string {
	return fmt.Sprintf("running=%v", f.Status().Running)
}

func newTestServer(t *testing.T, ctrl Controller, feed *Feed) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(New("", ctrl, feed).Router())
	t.Cleanup(srv.Close)
	return srv
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestHealthAndStatus(t *testing.T) {
	ctrl := &fakeController{status: manager.Status{
		State:      sdk.StateRunning,
		Endpoint:   "10.0.0.20:5084",
		Reads:      12,
		LastTagEPC: "3000AB",
		LastTagAt:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}}
	srv := newTestServer(t, ctrl, NewFeed())

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	health := decode(t, resp)
	assert.Equal(t, true, health["ok"])
	assert.Equal(t, float64(0), health["clients"])

	resp, err = http.Get(srv.URL + "/status")
	require.NoError(t, err)
	st := decode(t, resp)
	assert.Equal(t, "Running", st["state"])
	assert.Equal(t, "10.0.0.20:5084", st["endpoint"])
	assert.Equal(t, float64(12), st["reads"])
	assert.Equal(t, "3000AB", st["last_tag_epc"])
	assert.Equal(t, "2026-01-02T03:04:05Z", st["last_tag_at"])

	resp, err = http.Get(srv.URL + "/status/text")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/plain"))
}

func TestStartStop(t *testing.T) {
	ctrl := &fakeController{}
	srv := newTestServer(t, ctrl, nil)

	resp, err := http.Post(srv.URL+"/start", "application/json", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	body := decode(t, resp)
	assert.Equal(t, true, body["status"].(map[string]any)["running"])

	resp, err = http.Post(srv.URL+"/stop", "application/json", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	assert.Equal(t, 1, ctrl.starts)
	assert.Equal(t, 1, ctrl.stops)
}

func TestStartFailure(t *testing.T) {
	ctrl := &fakeController{startErr: errors.Wrap(sdk.ErrConnection, "dial")}
	srv := newTestServer(t, ctrl, nil)

	resp, err := http.Post(srv.URL+"/start", "application/json", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	body := decode(t, resp)
	assert.Equal(t, false, body["ok"])
	assert.Contains(t, body["error"], "connection")
}

func TestWrongMethod(t *testing.T) {
	srv := newTestServer(t, &fakeController{}, nil)

	resp, err := http.Get(srv.URL + "/start")
	require.NoError(t, err)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/events")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "feed disabled")
	resp.Body.Close()
}

func TestEventFeed(t *testing.T) {
	feed := NewFeed()
	srv := newTestServer(t, &fakeController{}, feed)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return feed.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	when := time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)
	require.NoError(t, feed.HandleRead(sdk.ReadEvent{
		Tag:    sdk.Tag{EPC: "E200ABCD", Antenna: 2},
		Reader: sdk.Endpoint{Host: "10.0.0.20"},
		When:   when,
	}))
	feed.Notify("reader running")

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var first, second struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	require.NoError(t, conn.ReadJSON(&first))
	require.NoError(t, conn.ReadJSON(&second))

	assert.Equal(t, "read", first.Type)
	assert.Equal(t, "E200ABCD", first.Payload["epc"])
	assert.Equal(t, float64(2), first.Payload["antenna"])
	assert.Equal(t, "10.0.0.20:5084", first.Payload["reader"])
	assert.Equal(t, "2026-05-06T07:08:09Z", first.Payload["at"])
	assert.Equal(t, "status", second.Type)
	assert.Equal(t, "reader running", second.Payload["message"])

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return feed.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestFeedCloseAll(t *testing.T) {
	feed := NewFeed()
	srv := newTestServer(t, &fakeController{}, feed)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return feed.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	feed.CloseAll()
	assert.Equal(t, 0, feed.ClientCount())

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}
