/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package complot

import (
	crand "crypto/rand"
	"math/rand/v2"
)

// Deck is the undrawn pile of one match. Cards are drawn from the end.
type Deck struct {
	cards []string
	rng   *rand.Rand
}

// NewDeck expands every role of cat into its countInDeck copies. The pile is
// not shuffled. A nil rng uses a freshly seeded generator.
func NewDeck(cat *Catalog, rng *rand.Rand) *Deck {
	if rng == nil {
		rng = newRand()
	}
	return &Deck{
		cards: cat.FullDeck(),
		rng:   rng,
	}
}

func newRand() *rand.Rand {
	var seed [32]byte
	_, _ = crand.Read(seed[:])
	return rand.New(rand.NewChaCha8(seed))
}

// Shuffle permutes the pile uniformly (Fisher-Yates).
func (d *Deck) Shuffle() {
	for i := len(d.cards) - 1; i > 0; i-- {
		j := d.rng.IntN(i + 1)
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
}

// Draw removes up to n cards from the end of the pile. Fewer than n are
// returned when the pile runs out.
func (d *Deck) Draw(n int) []string {
	if n <= 0 {
		return nil
	}
	n = min(n, len(d.cards))

	at := len(d.cards) - n
	out := make([]string, n)
	copy(out, d.cards[at:])
	d.cards = d.cards[:at]

	return out
}

// Return puts a card back on the pile.
func (d *Deck) Return(id string) {
	d.cards = append(d.cards, id)
}

// Remaining reports how many cards are left in the pile.
func (d *Deck) Remaining() int {
	return len(d.cards)
}

// Cards returns a copy of the pile, bottom first.
func (d *Deck) Cards() []string {
	return append([]string(nil), d.cards...)
}
