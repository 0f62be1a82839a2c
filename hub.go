/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"sync"
	"time"

	"github.com/Seednode/complot/games/complot"
	"github.com/Seednode/complot/history"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ClientMessage is every intent a client may send.
type ClientMessage struct {
	Type    string   `json:"type"`              // "join", "start", "declare", "challenge", "block", "reveal", "exchange", "leave"
	Name    string   `json:"name,omitempty"`    // join
	Action  string   `json:"action,omitempty"`  // declare
	Target  string   `json:"target,omitempty"`  // declare
	Faction string   `json:"faction,omitempty"` // block
	Card    string   `json:"card,omitempty"`    // reveal
	Keep    []string `json:"keep,omitempty"`    // exchange
}

// SessionInfoMessage tells a connection which seat, if any, its cookie holds.
type SessionInfoMessage struct {
	Type     string `json:"type"` // "session_info"
	Match    string `json:"match"`
	PlayerID string `json:"player_id,omitempty"`
	Seated   bool   `json:"seated"`
	Host     bool   `json:"host"`
}

type Client struct {
	conn   *websocket.Conn
	send   chan any
	cookie string
}

type intent struct {
	client *Client
	msg    ClientMessage
}

// Hub is the single writer for one match. Client intents, disconnect
// grace periods and reaction timers all reach the match through run.
type Hub struct {
	id     string
	cfg    *Config
	match  *complot.Match
	ledger *history.Store

	clients map[*Client]bool
	seats   map[string]string // cookie -> player id
	timer   *time.Timer

	register chan *Client
	unreg    chan *Client
	intents  chan intent
	timeouts chan uint64
	removals chan string
	quit     chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	// release is told when the match has nobody left in it.
	release func(*Hub)

	mu         sync.RWMutex
	lastActive time.Time
	vacant     bool
}

func newHub(cfg *Config, id string, cat *complot.Catalog, ledger *history.Store) *Hub {
	now := time.Now()

	h := &Hub{
		id:         id,
		cfg:        cfg,
		ledger:     ledger,
		clients:    make(map[*Client]bool),
		seats:      make(map[string]string),
		register:   make(chan *Client),
		unreg:      make(chan *Client),
		intents:    make(chan intent),
		timeouts:   make(chan uint64, 1),
		removals:   make(chan string),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
		lastActive: now,
		vacant:     true,
	}

	h.match = complot.NewMatch(id, cat, complot.Options{
		Notifier:        h,
		Timer:           h,
		Logf:            logger(cfg),
		ReactionTimeout: cfg.reactionTimeout,
		OnFinish:        h.record,
	})

	return h
}

func (h *Hub) run() {
	defer close(h.done)

	for {
		select {
		case c := <-h.register:
			h.connect(c)

		case c := <-h.unreg:
			h.disconnect(c)

		case in := <-h.intents:
			h.handle(in.client, in.msg)

		case epoch := <-h.timeouts:
			// stale epochs are logged by the match
			_ = h.match.Timeout(epoch)

		case cookie := <-h.removals:
			h.remove(cookie)

		case <-h.quit:
			h.match.Close()
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				if c.conn != nil {
					_ = c.conn.Close()
				}
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return
		}

		h.touch()
	}
}

// touch records activity and tells the directory when the match is empty.
func (h *Hub) touch() {
	h.mu.Lock()
	h.lastActive = time.Now()
	vacant := h.match.Empty() && !h.match.InProgress() && len(h.clients) == 0
	h.vacant = vacant
	h.mu.Unlock()

	if vacant && h.release != nil {
		go h.release(h)
	}
}

func (h *Hub) isVacant() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.vacant
}

func (h *Hub) idleSince() time.Time {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.lastActive
}

// closeAll stops the match and disconnects every client. It is safe to
// call more than once.
func (h *Hub) closeAll() {
	h.stopOnce.Do(func() { close(h.quit) })
	<-h.done
}

func (h *Hub) connect(c *Client) {
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()

	h.deliver(c, h.sessionInfo(c))
	h.deliver(c, h.match.Catalog().Message())
	h.deliver(c, h.match.Lobby())
	h.deliver(c, h.match.Snapshot())

	if seat := h.seats[c.cookie]; seat != "" && h.match.InProgress() {
		if s, err := h.match.PrivateSnapshot(seat); err == nil {
			h.deliver(c, s)
		}
	}
}

func (h *Hub) disconnect(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()

	if h.seats[c.cookie] != "" {
		go h.scheduleRemoval(c.cookie, h.cfg.playerTimeout)
	}
}

// scheduleRemoval waits for d, then asks run to drop the cookie's seat
// unless it has reconnected by then.
func (h *Hub) scheduleRemoval(cookie string, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
	case <-h.quit:
		return
	}

	select {
	case h.removals <- cookie:
	case <-h.quit:
	}
}

func (h *Hub) remove(cookie string) {
	if h.connected(cookie) {
		return
	}

	seat := h.seats[cookie]
	if seat == "" {
		return
	}
	delete(h.seats, cookie)

	if h.match.Seated(seat) {
		logf(h.cfg, "GAMES: Removing disconnected player from %s", h.id)
		_ = h.match.Leave(seat)
	}
}

func (h *Hub) connected(cookie string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		if c.cookie == cookie {
			return true
		}
	}
	return false
}

func (h *Hub) handle(c *Client, msg ClientMessage) {
	seat := h.seats[c.cookie]

	var err error
	switch msg.Type {
	case "join":
		if seat == "" {
			seat = uuid.NewString()
		}
		if err = h.match.Join(seat, msg.Name); err == nil {
			h.seats[c.cookie] = seat
			h.refreshSessions(c.cookie)
		}
	case "start":
		err = h.match.Start(seat)
	case "declare":
		err = h.match.Declare(seat, msg.Action, msg.Target)
	case "challenge":
		err = h.match.Challenge(seat)
	case "block":
		err = h.match.Block(seat, msg.Faction)
	case "reveal":
		err = h.match.ChooseInfluence(seat, msg.Card)
	case "exchange":
		err = h.match.Exchange(seat, msg.Keep)
	case "leave":
		if err = h.match.Leave(seat); err == nil {
			delete(h.seats, c.cookie)
			h.refreshSessions(c.cookie)
		}
	default:
		err = &complot.Error{Kind: complot.KindUnknownAction, Reason: "unknown message type " + msg.Type}
	}

	if err == nil {
		return
	}

	switch complot.KindOf(err) {
	case complot.KindConfig:
		// already announced to the whole match
		return
	case complot.KindStateRace:
		logf(h.cfg, "GAMES: Late %s in %s: %v", msg.Type, h.id, err)
	}

	h.deliver(c, complot.NewErrorMessage(err))
}

func (h *Hub) sessionInfo(c *Client) SessionInfoMessage {
	seat := h.seats[c.cookie]

	return SessionInfoMessage{
		Type:     "session_info",
		Match:    h.id,
		PlayerID: seat,
		Seated:   seat != "" && h.match.Seated(seat),
		Host:     seat != "" && h.match.Host() == seat,
	}
}

// refreshSessions resends session_info to every connection of cookie.
func (h *Hub) refreshSessions(cookie string) {
	h.mu.RLock()
	var targets []*Client
	for c := range h.clients {
		if c.cookie == cookie {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		h.deliver(c, h.sessionInfo(c))
	}
}

// deliver queues msg for c, dropping the client if it cannot keep up.
func (h *Hub) deliver(c *Client, msg any) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.deliverLocked(c, msg)
}

func (h *Hub) deliverLocked(c *Client, msg any) {
	if !h.clients[c] {
		return
	}

	select {
	case c.send <- msg:
	default:
		delete(h.clients, c)
		close(c.send)
	}
}

// Send implements complot.Notifier.
func (h *Hub) Send(playerID string, msg any) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		if h.seats[c.cookie] == playerID {
			h.deliverLocked(c, msg)
		}
	}
}

// Broadcast implements complot.Notifier.
func (h *Hub) Broadcast(msg any) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		h.deliverLocked(c, msg)
	}
}

// Start implements complot.Timer. The expiry is posted back onto run, so a
// reaction and a timeout can never interleave.
func (h *Hub) Start(d time.Duration, epoch uint64) {
	h.Stop()

	h.timer = time.AfterFunc(d, func() {
		select {
		case h.timeouts <- epoch:
		case <-h.quit:
		}
	})
}

// Stop implements complot.Timer.
func (h *Hub) Stop() {
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
}

func (h *Hub) record(s complot.Summary) {
	logf(h.cfg, "GAMES: Match %s won by %q after %d turns", s.Match, s.WinnerName, s.Turns)

	if h.ledger == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		_, err := h.ledger.Record(ctx, history.Result{
			Match:   s.Match,
			Winner:  s.WinnerName,
			Players: s.Players,
			Turns:   s.Turns,
		})
		if err != nil {
			logf(h.cfg, "ERROR: Recording %s: %v", s.Match, err)
		}
	}()
}
