/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package complot

import (
	"fmt"
	"math/rand/v2"
	"reflect"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type note struct {
	to  string // empty for broadcasts
	msg any
}

// recorder is a Notifier that keeps everything it is given.
type recorder struct {
	notes []note
}

func (r *recorder) Send(playerID string, msg any) {
	r.notes = append(r.notes, note{to: playerID, msg: msg})
}

func (r *recorder) Broadcast(msg any) {
	r.notes = append(r.notes, note{msg: msg})
}

func (r *recorder) reset() {
	r.notes = nil
}

// sent returns every message of type T addressed to playerID ("" for
// broadcasts).
func sent[T any](r *recorder, playerID string) []T {
	var out []T
	for _, n := range r.notes {
		if n.to != playerID {
			continue
		}
		if m, ok := n.msg.(T); ok {
			out = append(out, m)
		}
	}
	return out
}

func (r *recorder) logs() []string {
	var out []string
	for _, m := range sent[LogMessage](r, "") {
		out = append(out, m.Message)
	}
	return out
}

// position is the index of the first broadcast of type T, or -1.
func position[T any](r *recorder) int {
	for i, n := range r.notes {
		if _, ok := n.msg.(T); ok && n.to == "" {
			return i
		}
	}
	return -1
}

// manualTimer records what the match asked for; tests fire it by hand.
type manualTimer struct {
	epoch   uint64
	running bool
	starts  int
}

func (t *manualTimer) Start(_ time.Duration, epoch uint64) {
	t.epoch = epoch
	t.running = true
	t.starts++
}

func (t *manualTimer) Stop() {
	t.running = false
}

type rig struct {
	t     *testing.T
	m     *Match
	notes *recorder
	timer *manualTimer

	summaries []Summary
}

var seats = []struct{ id, name string }{
	{"a", "Alice"},
	{"b", "Bob"},
	{"c", "Cleo"},
	{"d", "Dmitri"},
	{"e", "Esme"},
	{"f", "Farid"},
}

func defaultCatalog(t *testing.T) *Catalog {
	t.Helper()

	cat, err := DefaultCatalog()
	require.NoError(t, err)

	return cat
}

// newRig seats n players (a, b, c...) in a fresh match on cat.
func newRig(t *testing.T, cat *Catalog, n int) *rig {
	t.Helper()

	r := &rig{t: t, notes: &recorder{}, timer: &manualTimer{}}
	r.m = NewMatch("test", cat, Options{
		Notifier:        r.notes,
		Timer:           r.timer,
		Rand:            rand.New(rand.NewPCG(1, 2)),
		ReactionTimeout: time.Second,
		OnFinish:        func(s Summary) { r.summaries = append(r.summaries, s) },
	})

	for _, s := range seats[:n] {
		require.NoError(t, r.m.Join(s.id, s.name))
	}

	return r
}

// started seats n players, starts the match and hands the turn to first.
func started(t *testing.T, n int, first string) *rig {
	t.Helper()

	r := newRig(t, defaultCatalog(t), n)
	require.NoError(t, r.m.Start("a"))
	r.m.current = first
	r.notes.reset()

	return r
}

// hand replaces a player's concealed cards with the named ones, taking
// them from the deck so every card stays accounted for.
func (r *rig) hand(playerID string, cards ...string) {
	r.t.Helper()

	p := r.m.player(playerID)
	require.NotNil(r.t, p)

	for _, c := range p.Concealed {
		r.m.deck.Return(c)
	}
	p.Concealed = nil

	for _, c := range cards {
		i := slices.Index(r.m.deck.cards, c)
		require.GreaterOrEqual(r.t, i, 0, "no %s left in the deck", c)
		r.m.deck.cards = slices.Delete(r.m.deck.cards, i, i+1)
		p.Concealed = append(p.Concealed, c)
	}
}

func (r *rig) coins(playerID string, n int) {
	r.m.player(playerID).Coins = n
}

func (r *rig) p(playerID string) *Player {
	return r.m.player(playerID)
}

// fire expires the most recently armed timer.
func (r *rig) fire() error {
	return r.m.Timeout(r.timer.epoch)
}

// conserved checks that every card of the catalog is somewhere.
func (r *rig) conserved() {
	r.t.Helper()

	var all []string
	if r.m.deck != nil {
		all = append(all, r.m.deck.Cards()...)
	}
	for _, p := range r.m.players {
		all = append(all, p.Concealed...)
	}
	all = append(all, r.m.discard...)
	if r.m.swap != nil {
		all = append(all, r.m.swap.drawn...)
	}

	want := r.m.cat.FullDeck()
	slices.Sort(all)
	slices.Sort(want)

	assert.Equal(r.t, want, all, "cards were created or lost")
}

// unchanged asserts that fn is rejected with kind and leaves the match as
// it was.
func (r *rig) unchanged(kind error, fn func() error) {
	r.t.Helper()

	before := r.m.Snapshot()
	hands := make(map[string][]string)
	for _, p := range r.m.players {
		hands[p.ID] = slices.Clone(p.Concealed)
	}
	epoch := r.timer.epoch

	err := fn()
	require.Error(r.t, err)
	assert.ErrorIs(r.t, err, kind, "got %v", err)

	assert.True(r.t, reflect.DeepEqual(before, r.m.Snapshot()), "snapshot changed after %v", err)
	for _, p := range r.m.players {
		assert.Equal(r.t, hands[p.ID], p.Concealed, fmt.Sprintf("hand of %s changed", p.ID))
	}
	assert.Equal(r.t, epoch, r.timer.epoch, "timer was touched")
}

// deal gives every seated player exactly the listed cards.
func (r *rig) deal(hands map[string][]string) {
	r.t.Helper()

	for _, p := range r.m.players {
		for _, c := range p.Concealed {
			r.m.deck.Return(c)
		}
		p.Concealed = nil
	}
	for _, p := range r.m.players {
		cards, ok := hands[p.ID]
		require.True(r.t, ok, "no hand for %s", p.ID)
		r.hand(p.ID, cards...)
	}
}

// eliminate reveals every card playerID still holds.
func (r *rig) eliminate(playerID string) {
	p := r.m.player(playerID)
	for !p.Eliminated() {
		r.m.reveal(p, 0)
	}
}
