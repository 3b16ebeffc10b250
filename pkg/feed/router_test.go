package feed

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/climabus/climabus/pkg/climate"
	"github.com/climabus/climabus/pkg/monitor"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func get(t *testing.T, url string, header http.Header) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestRouterLatest(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	srv := httptest.NewServer(hub.Router(nil))
	defer srv.Close()

	resp, _ := get(t, srv.URL+"/api/climate", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	hub.PublishClimate(climate.Snapshot{Driver: 72, HasDriver: true})
	hub.PublishStatus(monitor.Status{Frames: 7})

	resp, body := get(t, srv.URL+"/api/climate", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Contains(t, body, `"type":"climate"`)
	assert.Contains(t, body, `"driver_setpoint":72`)

	_, body = get(t, srv.URL+"/api/status", nil)
	assert.Contains(t, body, `"frames":7`)

	resp, _ = get(t, srv.URL+"/api/nothing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = get(t, srv.URL+"/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRouterCORS(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	srv := httptest.NewServer(hub.Router([]string{"http://dash.local"}))
	defer srv.Close()

	resp, _ := get(t, srv.URL+"/api/status", http.Header{"Origin": {"http://dash.local"}})
	assert.Equal(t, "http://dash.local", resp.Header.Get("Access-Control-Allow-Origin"))

	resp, _ = get(t, srv.URL+"/api/status", http.Header{"Origin": {"http://elsewhere"}})
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestRouterWebsocket(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub(zerolog.Nop())
	go hub.Run(ctx)
	srv := httptest.NewServer(hub.Router(nil))
	defer srv.Close()

	hub.PublishClimate(climate.Snapshot{Fan: 3})
	require.Eventually(t, func() bool { return len(hub.broadcast) == 0 }, time.Second, time.Millisecond)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	msg := read(t, conn)
	assert.Equal(t, TypeClimate, msg.Type)
	assert.Contains(t, string(msg.Data), `"fan_level":3`)
}
