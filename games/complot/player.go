/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package complot

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// MaxNameLength bounds player and match names, in runes.
const MaxNameLength = 20

// Player is one seat of a match. Only the owning Match mutates it.
type Player struct {
	ID        string
	Name      string
	Coins     int
	Concealed []string
	Revealed  []string
}

// Eliminated is true once every influence card has been revealed.
func (p *Player) Eliminated() bool {
	return len(p.Concealed) == 0
}

// Influence is the number of concealed cards left.
func (p *Player) Influence() int {
	return len(p.Concealed)
}

func (p *Player) holds(card string) int {
	for i, c := range p.Concealed {
		if c == card {
			return i
		}
	}
	return -1
}

func (p *Player) remove(i int) string {
	card := p.Concealed[i]
	p.Concealed = append(p.Concealed[:i:i], p.Concealed[i+1:]...)
	return card
}

// PublicPlayer is what every seat may see about a player.
type PublicPlayer struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Coins      int      `json:"coins"`
	Influence  int      `json:"influence"`
	Revealed   []string `json:"revealed"`
	Eliminated bool     `json:"eliminated"`
}

// PrivatePlayer adds the concealed hand, for its owner only.
type PrivatePlayer struct {
	PublicPlayer
	Concealed []string `json:"concealed"`
}

func (p *Player) public(started bool) PublicPlayer {
	return PublicPlayer{
		ID:         p.ID,
		Name:       p.Name,
		Coins:      p.Coins,
		Influence:  len(p.Concealed),
		Revealed:   append([]string{}, p.Revealed...),
		Eliminated: started && p.Eliminated(),
	}
}

func (p *Player) private(started bool) PrivatePlayer {
	return PrivatePlayer{
		PublicPlayer: p.public(started),
		Concealed:    append([]string{}, p.Concealed...),
	}
}

// foldName is the form two names are compared in. Casers are stateful, so
// each call gets its own.
func foldName(name string) string {
	return cases.Fold().String(norm.NFC.String(name))
}

// CleanName trims name and checks its length.
func CleanName(name string) (string, error) {
	name = strings.TrimSpace(norm.NFC.String(name))

	n := utf8.RuneCountInString(name)
	switch {
	case n == 0:
		return "", invalidf("a name is required")
	case n > MaxNameLength:
		return "", invalidf("names are limited to %d characters", MaxNameLength)
	}

	return name, nil
}
