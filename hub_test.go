/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"testing"
	"time"

	"github.com/Seednode/complot/games/complot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wait = 2 * time.Second

func testConfig() *Config {
	return &Config{
		port:            8080,
		reactionTimeout: time.Second,
		playerTimeout:   time.Minute,
	}
}

func testCatalog(t *testing.T) *complot.Catalog {
	t.Helper()

	cat, err := complot.DefaultCatalog()
	require.NoError(t, err)

	return cat
}

func startHub(t *testing.T, cfg *Config) *Hub {
	t.Helper()

	h := newHub(cfg, "room", testCatalog(t), nil)
	go h.run()
	t.Cleanup(h.closeAll)

	return h
}

func fakeClient(cookie string) *Client {
	return &Client{send: make(chan any, 512), cookie: cookie}
}

// next returns the next message of type T queued for c, skipping others.
func next[T any](t *testing.T, c *Client) T {
	t.Helper()

	return until(t, c, func(T) bool { return true })
}

// until returns the first message of type T for which ok is true.
func until[T any](t *testing.T, c *Client, ok func(T) bool) T {
	t.Helper()

	deadline := time.After(wait)
	for {
		select {
		case msg, open := <-c.send:
			require.True(t, open, "client was disconnected")
			if m, is := msg.(T); is && ok(m) {
				return m
			}
		case <-deadline:
			var zero T
			require.FailNowf(t, "timed out", "no %T arrived", zero)
			return zero
		}
	}
}

func (h *Hub) say(c *Client, msg ClientMessage) {
	h.intents <- intent{client: c, msg: msg}
}

// seat joins c under name and returns its player id.
func seat(t *testing.T, h *Hub, c *Client, name string) string {
	t.Helper()

	h.say(c, ClientMessage{Type: "join", Name: name})
	info := until(t, c, func(m SessionInfoMessage) bool { return m.Seated })

	return info.PlayerID
}

func TestHubGreetsNewConnections(t *testing.T) {
	h := startHub(t, testConfig())
	c := fakeClient("alice")

	h.register <- c

	info := next[SessionInfoMessage](t, c)
	assert.Equal(t, "room", info.Match)
	assert.False(t, info.Seated)
	assert.Empty(t, info.PlayerID)

	cat := next[complot.CatalogMessage](t, c)
	assert.NotEmpty(t, cat.Actions)
	assert.NotEmpty(t, cat.Roles)

	lobby := next[complot.LobbyMessage](t, c)
	assert.Equal(t, complot.StatusWaiting, lobby.Status)
	assert.Empty(t, lobby.Players)

	state := next[complot.PublicState](t, c)
	assert.Equal(t, "room", state.Match)
}

func TestHubJoinAndStart(t *testing.T) {
	h := startHub(t, testConfig())
	a, b := fakeClient("alice"), fakeClient("bob")
	h.register <- a
	h.register <- b

	aliceID := seat(t, h, a, "Alice")
	bobID := seat(t, h, b, "Bob")
	assert.NotEqual(t, aliceID, bobID)
	assert.NotEqual(t, "alice", aliceID, "cookies are never exposed as player ids")

	h.say(b, ClientMessage{Type: "start"})
	refused := next[complot.ErrorMessage](t, b)
	assert.Equal(t, complot.KindValidation, refused.Kind)

	h.say(a, ClientMessage{Type: "start"})

	for _, c := range []*Client{a, b} {
		private := until(t, c, func(m complot.PrivateState) bool { return m.Public.Status == complot.StatusPlaying })
		assert.Len(t, private.Self.Concealed, 2)
		assert.Len(t, private.Public.Players, 2)
	}
}

func TestHubReportsErrorsOnlyToSender(t *testing.T) {
	h := startHub(t, testConfig())
	a, b := fakeClient("alice"), fakeClient("bob")
	h.register <- a
	h.register <- b

	h.say(a, ClientMessage{Type: "bribe"})

	msg := next[complot.ErrorMessage](t, a)
	assert.Equal(t, "error", msg.Type)
	assert.Equal(t, complot.KindUnknownAction, msg.Kind)
	assert.Contains(t, msg.Message, "bribe")

	h.say(b, ClientMessage{Type: "join", Name: "Bob"})
	until(t, b, func(m SessionInfoMessage) bool { return m.Seated })

	for {
		select {
		case msg := <-b.send:
			_, isErr := msg.(complot.ErrorMessage)
			assert.False(t, isErr, "bob received alice's error")
		default:
			return
		}
	}
}

func TestHubTimerResolvesThroughRunLoop(t *testing.T) {
	cfg := testConfig()
	cfg.reactionTimeout = 20 * time.Millisecond

	h := startHub(t, cfg)
	a, b := fakeClient("alice"), fakeClient("bob")
	h.register <- a
	h.register <- b

	ids := map[string]*Client{
		seat(t, h, a, "Alice"): a,
		seat(t, h, b, "Bob"):   b,
	}

	h.say(a, ClientMessage{Type: "start"})
	started := until(t, a, func(m complot.PublicState) bool { return m.Status == complot.StatusPlaying })

	first := started.Current
	h.say(ids[first], ClientMessage{Type: "declare", Action: "foreign_aid"})

	after := until(t, a, func(m complot.PublicState) bool {
		return m.Turn == complot.TurnAwaitingAction && m.Current != first
	})
	for _, p := range after.Players {
		if p.ID == first {
			assert.Equal(t, 4, p.Coins)
		}
	}

	// a challenge after the window closed is stale
	for id, c := range ids {
		if id != first {
			h.say(c, ClientMessage{Type: "challenge"})
			stale := next[complot.ErrorMessage](t, c)
			assert.Equal(t, "stale", stale.Type)
		}
	}
}

func TestHubKeepsSeatAcrossReconnect(t *testing.T) {
	cfg := testConfig()
	cfg.playerTimeout = 50 * time.Millisecond

	h := startHub(t, cfg)
	first := fakeClient("alice")
	h.register <- first
	id := seat(t, h, first, "Alice")

	h.unreg <- first
	again := fakeClient("alice")
	h.register <- again

	info := next[SessionInfoMessage](t, again)
	assert.True(t, info.Seated)
	assert.Equal(t, id, info.PlayerID)

	time.Sleep(4 * cfg.playerTimeout)

	observer := fakeClient("observer")
	h.register <- observer
	lobby := next[complot.LobbyMessage](t, observer)
	require.Len(t, lobby.Players, 1)
	assert.Equal(t, "Alice", lobby.Players[0].Name)
}

func TestHubRemovesDisconnectedPlayer(t *testing.T) {
	cfg := testConfig()
	cfg.playerTimeout = 10 * time.Millisecond

	h := startHub(t, cfg)
	a, b := fakeClient("alice"), fakeClient("bob")
	h.register <- a
	h.register <- b
	seat(t, h, a, "Alice")
	seat(t, h, b, "Bob")

	h.unreg <- a

	lobby := until(t, b, func(m complot.LobbyMessage) bool {
		return len(m.Players) == 1 && m.Players[0].Name == "Bob"
	})
	assert.Equal(t, lobby.Players[0].ID, lobby.Host)
}

func TestHubCloseAllDisconnectsClients(t *testing.T) {
	h := newHub(testConfig(), "room", testCatalog(t), nil)
	go h.run()

	c := fakeClient("alice")
	h.register <- c
	h.closeAll()
	h.closeAll()

	for range c.send {
		// drain until the hub closes the channel
	}

	select {
	case <-h.done:
	default:
		t.Fatal("run loop still going")
	}
}
