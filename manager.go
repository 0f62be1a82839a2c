/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"crypto/rand"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/Seednode/complot/games/complot"
	"github.com/Seednode/complot/history"
)

// GameManager is the match directory: one hub per match name, each its own
// isolated session.
type GameManager struct {
	cfg     *Config
	catalog *complot.Catalog
	ledger  *history.Store

	mu          sync.Mutex
	hubs        map[string]*Hub
	idleTimeout time.Duration
}

func newGameManager(cfg *Config, cat *complot.Catalog, ledger *history.Store) *GameManager {
	gm := &GameManager{
		cfg:         cfg,
		catalog:     cat,
		ledger:      ledger,
		hubs:        make(map[string]*Hub),
		idleTimeout: cfg.sessionTimeout,
	}
	if gm.idleTimeout > 0 {
		go gm.reaperLoop()
	}
	return gm
}

// validMatchName reports whether name can address a match.
func validMatchName(name string) bool {
	clean, err := complot.CleanName(name)
	return err == nil && clean == name && utf8.RuneCountInString(name) <= complot.MaxNameLength
}

// getHub returns the hub for name, creating and starting it on first use.
func (gm *GameManager) getHub(name string) *Hub {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	if hub, ok := gm.hubs[name]; ok {
		return hub
	}

	hub := newHub(gm.cfg, name, gm.catalog, gm.ledger)
	hub.release = gm.release
	gm.hubs[name] = hub
	go hub.run()

	logf(gm.cfg, "GAMES: Opened match %s (%d active)", name, len(gm.hubs))

	return hub
}

// attach registers c with the hub for name. A hub torn down between lookup
// and registration is replaced.
func (gm *GameManager) attach(name string, c *Client) *Hub {
	for {
		hub := gm.getHub(name)

		select {
		case hub.register <- c:
			return hub
		case <-hub.done:
			gm.forget(name, hub)
		}
	}
}

// release tears hub down if it is still empty.
func (gm *GameManager) release(hub *Hub) {
	gm.mu.Lock()
	if gm.hubs[hub.id] != hub || !hub.isVacant() {
		gm.mu.Unlock()
		return
	}
	delete(gm.hubs, hub.id)
	gm.mu.Unlock()

	logf(gm.cfg, "GAMES: Released empty match %s", hub.id)
	hub.closeAll()
}

func (gm *GameManager) forget(name string, hub *Hub) {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	if gm.hubs[name] == hub {
		delete(gm.hubs, name)
	}
}

// newGameID generates a crypto-random match name that is not in use.
func (gm *GameManager) newGameID() string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	for {
		buf := make([]byte, 8)
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		out := make([]byte, 8)
		for i := range out {
			out[i] = letters[int(buf[i])%len(letters)]
		}
		id := string(out)

		gm.mu.Lock()
		_, exists := gm.hubs[id]
		gm.mu.Unlock()

		if !exists {
			return id
		}
	}
}

// reaperLoop periodically ends matches idle longer than idleTimeout.
func (gm *GameManager) reaperLoop() {
	ticker := time.NewTicker(gm.idleTimeout / 2)
	defer ticker.Stop()

	for range ticker.C {
		gm.reap(time.Now().Add(-gm.idleTimeout))
	}
}

func (gm *GameManager) reap(cutoff time.Time) {
	gm.mu.Lock()
	var idle []*Hub
	for id, hub := range gm.hubs {
		if hub.idleSince().Before(cutoff) {
			delete(gm.hubs, id)
			idle = append(idle, hub)
		}
	}
	gm.mu.Unlock()

	for _, hub := range idle {
		logf(gm.cfg, "GAMES: Ending idle match %s", hub.id)
		go hub.closeAll()
	}
}

// closeAll ends every match, for shutdown.
func (gm *GameManager) closeAll() {
	gm.mu.Lock()
	hubs := make([]*Hub, 0, len(gm.hubs))
	for id, hub := range gm.hubs {
		hubs = append(hubs, hub)
		delete(gm.hubs, id)
	}
	gm.mu.Unlock()

	for _, hub := range hubs {
		hub.closeAll()
	}
}
