/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package complot

import (
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDeckExpandsCatalog(t *testing.T) {
	cat := defaultCatalog(t)

	d := NewDeck(cat, nil)
	require.Equal(t, 18, d.Remaining())

	counts := make(map[string]int)
	for _, c := range d.Cards() {
		counts[c]++
	}
	for _, r := range cat.Roles() {
		assert.Equal(t, *r.CountInDeck, counts[r.ID], r.ID)
	}
}

func TestDeckDrawTakesFromTheEnd(t *testing.T) {
	d := NewDeck(defaultCatalog(t), nil)
	cards := d.Cards()

	got := d.Draw(2)
	assert.Equal(t, cards[len(cards)-2:], got)
	assert.Equal(t, len(cards)-2, d.Remaining())
	assert.Equal(t, cards[:len(cards)-2], d.Cards())
}

func TestDeckDrawIsPartialWhenExhausted(t *testing.T) {
	d := NewDeck(defaultCatalog(t), nil)

	assert.Len(t, d.Draw(16), 16)
	assert.Len(t, d.Draw(5), 2)
	assert.Empty(t, d.Draw(1))
	assert.Nil(t, d.Draw(0))
	assert.Zero(t, d.Remaining())
}

func TestDeckReturnAppends(t *testing.T) {
	d := NewDeck(defaultCatalog(t), nil)
	d.Draw(18)

	d.Return("duke")
	d.Return("contessa")

	assert.Equal(t, []string{"duke", "contessa"}, d.Cards())
	assert.Equal(t, []string{"contessa"}, d.Draw(1))
}

func TestDeckShuffleKeepsEveryCard(t *testing.T) {
	d := NewDeck(defaultCatalog(t), rand.New(rand.NewPCG(7, 11)))
	before := d.Cards()

	d.Shuffle()
	after := d.Cards()

	assert.NotEqual(t, before, after)

	slices.Sort(before)
	slices.Sort(after)
	assert.Equal(t, before, after)
}

func TestDeckShuffleDiffersBetweenDecks(t *testing.T) {
	cat := defaultCatalog(t)

	a, b := NewDeck(cat, nil), NewDeck(cat, nil)
	a.Shuffle()
	b.Shuffle()

	assert.NotEqual(t, a.Cards(), b.Cards())
}

func TestDeckCardsIsACopy(t *testing.T) {
	d := NewDeck(defaultCatalog(t), nil)

	cards := d.Cards()
	cards[0] = "forged"

	assert.NotContains(t, d.Cards(), "forged")
}
