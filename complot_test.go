/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Seednode/complot/history"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T, ledger *history.Store) *httptest.Server {
	t.Helper()

	errs := make(chan error, 16)
	mux, gm := newRouter(testConfig(), testCatalog(t), ledger, errs)

	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		gm.closeAll()
		srv.Close()
	})

	return srv
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()

	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, string(body)
}

// readType reads frames from conn until one has the given type.
func readType(t *testing.T, conn *websocket.Conn, typ string) map[string]any {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(wait)))
	for {
		var msg map[string]any
		require.NoError(t, conn.ReadJSON(&msg))
		if msg["type"] == typ {
			return msg
		}
	}
}

func TestStaticRoutes(t *testing.T) {
	srv := startServer(t, nil)

	resp, body := get(t, srv.URL+"/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Ok\n", body)

	_, body = get(t, srv.URL+"/version")
	assert.Equal(t, "complot v"+releaseVersion+"\n", body)

	resp, body = get(t, srv.URL+"/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "/complot")
	assert.NotContains(t, body, "/history")

	resp, _ = get(t, srv.URL+"/assets/complot/app.js")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "javascript")

	resp, _ = get(t, srv.URL+"/assets/complot/missing.js")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = get(t, srv.URL+"/history")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestNewMatchRedirect(t *testing.T) {
	srv := startServer(t, nil)

	client := &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	resp, err := client.Get(srv.URL + "/complot")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)
	loc := resp.Header.Get("Location")
	require.True(t, strings.HasPrefix(loc, "/complot/"), loc)
	assert.True(t, validMatchName(strings.TrimPrefix(loc, "/complot/")))
}

func TestMatchPage(t *testing.T) {
	srv := startServer(t, nil)

	resp, body := get(t, srv.URL+"/complot/room")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "app.js")
	assert.Contains(t, resp.Header.Get("Set-Cookie"), playerCookieName+"=")
	assert.NotEmpty(t, resp.Header.Get("Content-Security-Policy"))

	resp, _ = get(t, srv.URL+"/complot/"+strings.Repeat("x", 21))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestQRCode(t *testing.T) {
	srv := startServer(t, nil)

	resp, body := get(t, srv.URL+"/complot/room/qr")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.True(t, strings.HasPrefix(body, "\x89PNG"))
}

func TestWebsocketRoundTrip(t *testing.T) {
	srv := startServer(t, nil)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/complot/room/ws"

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	dialer := &websocket.Dialer{Jar: jar, HandshakeTimeout: wait}

	conn, resp, err := dialer.Dial(url, nil)
	require.NoError(t, err)
	assert.Contains(t, resp.Header.Get("Set-Cookie"), playerCookieName+"=")

	info := readType(t, conn, "session_info")
	assert.Equal(t, "room", info["match"])
	assert.Equal(t, false, info["seated"])

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: "join", Name: "Alice"}))
	info = readType(t, conn, "session_info")
	assert.Equal(t, true, info["seated"])
	assert.Equal(t, true, info["host"])
	id := info["player_id"]

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: "start"}))
	refused := readType(t, conn, "error")
	assert.Equal(t, "validation", refused["kind"])
	require.NoError(t, conn.Close())

	// the cookie jar brings the same seat back
	again, _, err := dialer.Dial(url, nil)
	require.NoError(t, err)
	defer again.Close()

	info = readType(t, again, "session_info")
	assert.Equal(t, true, info["seated"])
	assert.Equal(t, id, info["player_id"])
}

func TestWebsocketRejectsBadMatchName(t *testing.T) {
	srv := startServer(t, nil)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/complot/" + strings.Repeat("x", 21) + "/ws"

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHistoryRoute(t *testing.T) {
	ledger, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = ledger.Close() })

	for _, winner := range []string{"Alice", "Bob", "Cleo"} {
		_, err := ledger.Record(context.Background(), history.Result{
			Match:   "room",
			Winner:  winner,
			Players: []string{"Alice", "Bob", "Cleo"},
			Turns:   7,
		})
		require.NoError(t, err)
	}

	srv := startServer(t, ledger)

	resp, body := get(t, srv.URL+"/history?limit=2")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var results []history.Result
	require.NoError(t, json.Unmarshal([]byte(body), &results))
	require.Len(t, results, 2)
	assert.Equal(t, "room", results[0].Match)

	_, body = get(t, srv.URL+"/")
	assert.Contains(t, body, "/history")
}
