/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package complot

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalogDoc []byte

const (
	defaultStartingCoins      = 2
	defaultInfluencePerPlayer = 2
	defaultMinPlayers         = 2
	defaultMaxPlayers         = 6

	// cards an exchange draws on top of the initial deal
	exchangeDraw = 2
)

// Role is one card of the catalog document.
type Role struct {
	ID                 string   `yaml:"id" json:"id"`
	Name               string   `yaml:"name" json:"name"`
	Faction            string   `yaml:"faction" json:"faction"`
	ActionType         string   `yaml:"actionType,omitempty" json:"actionType,omitempty"`
	Cost               int      `yaml:"cost,omitempty" json:"cost,omitempty"`
	Targeted           bool     `yaml:"targeted,omitempty" json:"targeted,omitempty"`
	BlockType          []string `yaml:"blockType,omitempty" json:"blockType,omitempty"`
	CounteredByFaction []string `yaml:"counteredByFaction,omitempty" json:"counteredByFaction,omitempty"`
	CountInDeck        *int     `yaml:"countInDeck" json:"countInDeck,omitempty"`
	Description        string   `yaml:"description,omitempty" json:"description,omitempty"`
	Script             string   `yaml:"script,omitempty" json:"script,omitempty"`
}

// GeneralAction is an action every player may take regardless of cards.
type GeneralAction struct {
	ID                      string   `yaml:"id" json:"id"`
	Cost                    int      `yaml:"cost,omitempty" json:"cost,omitempty"`
	Description             string   `yaml:"description,omitempty" json:"description,omitempty"`
	Targeted                bool     `yaml:"targeted,omitempty" json:"targeted,omitempty"`
	BlockedByFaction        []string `yaml:"blockedByFaction,omitempty" json:"blockedByFaction,omitempty"`
	MustActionCoinThreshold int      `yaml:"mustActionCoinThreshold,omitempty" json:"mustActionCoinThreshold,omitempty"`
	Script                  string   `yaml:"script,omitempty" json:"script,omitempty"`
}

// Document is the catalog as written on disk. JSON documents decode too,
// since YAML is a superset of the JSON used for card catalogs.
type Document struct {
	StartingCoins      *int            `yaml:"startingCoins" json:"startingCoins,omitempty"`
	InfluencePerPlayer int             `yaml:"influencePerPlayer" json:"influencePerPlayer,omitempty"`
	MinPlayers         int             `yaml:"minPlayers" json:"minPlayers,omitempty"`
	MaxPlayers         int             `yaml:"maxPlayers" json:"maxPlayers,omitempty"`
	Roles              []Role          `yaml:"roles" json:"roles"`
	Actions            []GeneralAction `yaml:"actions" json:"actions,omitempty"`
}

// Catalog is a validated, immutable card catalog. It is safe to share
// between matches.
type Catalog struct {
	StartingCoins      int
	InfluencePerPlayer int
	MinPlayers         int
	MaxPlayers         int

	roles    []Role
	byID     map[string]*Role
	factions map[string][]string // faction -> role ids
	registry *Registry
}

// DefaultCatalog returns the embedded catalog.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultCatalogDoc)
}

// LoadCatalog reads and validates the catalog at path.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, configErrorf("read catalog %s: %v", path, err)
	}

	cat, err := ParseCatalog(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}

	return cat, nil
}

// ParseCatalog decodes and validates a catalog document. Any failure is a
// ConfigError.
func ParseCatalog(data []byte) (*Catalog, error) {
	var doc Document

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, configErrorf("catalog is empty")
		}
		return nil, configErrorf("parse catalog: %v", err)
	}

	if err := ValidateSchema(&doc); err != nil {
		return nil, err
	}

	return newCatalog(&doc)
}

func newCatalog(doc *Document) (*Catalog, error) {
	cat := &Catalog{
		StartingCoins:      defaultStartingCoins,
		InfluencePerPlayer: doc.InfluencePerPlayer,
		MinPlayers:         doc.MinPlayers,
		MaxPlayers:         doc.MaxPlayers,
		roles:              make([]Role, len(doc.Roles)),
		byID:               make(map[string]*Role, len(doc.Roles)),
		factions:           make(map[string][]string),
	}
	if doc.StartingCoins != nil {
		cat.StartingCoins = *doc.StartingCoins
	}
	if cat.InfluencePerPlayer == 0 {
		cat.InfluencePerPlayer = defaultInfluencePerPlayer
	}
	if cat.MinPlayers == 0 {
		cat.MinPlayers = defaultMinPlayers
	}
	if cat.MaxPlayers == 0 {
		cat.MaxPlayers = defaultMaxPlayers
	}

	switch {
	case cat.StartingCoins < 0:
		return nil, configErrorf("startingCoins must not be negative")
	case cat.InfluencePerPlayer < 1:
		return nil, configErrorf("influencePerPlayer must be at least 1")
	case cat.MinPlayers < 2:
		return nil, configErrorf("minPlayers must be at least 2")
	case cat.MaxPlayers < cat.MinPlayers:
		return nil, configErrorf("maxPlayers (%d) is below minPlayers (%d)", cat.MaxPlayers, cat.MinPlayers)
	}

	if len(doc.Roles) == 0 {
		return nil, configErrorf("catalog defines no roles")
	}

	copy(cat.roles, doc.Roles)

	size := 0
	for i := range cat.roles {
		r := &cat.roles[i]
		if r.ID == "" || r.Name == "" || r.Faction == "" {
			return nil, configErrorf("role #%d: id, name and faction are required", i+1)
		}
		if r.CountInDeck == nil {
			return nil, configErrorf("role %q: countInDeck is required", r.ID)
		}
		if *r.CountInDeck < 0 {
			return nil, configErrorf("role %q: countInDeck must not be negative", r.ID)
		}
		if r.Cost < 0 {
			return nil, configErrorf("role %q: cost must not be negative", r.ID)
		}
		if _, dup := cat.byID[r.ID]; dup {
			return nil, configErrorf("duplicate role id %q", r.ID)
		}
		cat.byID[r.ID] = r
		cat.factions[r.Faction] = append(cat.factions[r.Faction], r.ID)
		size += *r.CountInDeck
	}

	need := cat.MaxPlayers*cat.InfluencePerPlayer + exchangeDraw
	if size < need {
		return nil, configErrorf("deck holds %d cards, %d players need at least %d", size, cat.MaxPlayers, need)
	}

	reg, err := newRegistry(cat, doc.Actions)
	if err != nil {
		return nil, err
	}
	cat.registry = reg

	return cat, nil
}

// Role looks up a card by id.
func (c *Catalog) Role(id string) (Role, bool) {
	r, ok := c.byID[id]
	if !ok {
		return Role{}, false
	}
	return *r, true
}

// Roles returns the catalog's cards in document order.
func (c *Catalog) Roles() []Role {
	out := make([]Role, len(c.roles))
	copy(out, c.roles)
	return out
}

// Faction reports the faction of card id, or "" when unknown.
func (c *Catalog) Faction(id string) string {
	if r, ok := c.byID[id]; ok {
		return r.Faction
	}
	return ""
}

// Factions returns every faction name, sorted.
func (c *Catalog) Factions() []string {
	out := make([]string, 0, len(c.factions))
	for f := range c.factions {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Registry returns the action registry derived from the catalog.
func (c *Catalog) Registry() *Registry {
	return c.registry
}

// FullDeck expands every role into countInDeck copies, in document order.
func (c *Catalog) FullDeck() []string {
	var cards []string
	for _, r := range c.roles {
		for i := 0; i < *r.CountInDeck; i++ {
			cards = append(cards, r.ID)
		}
	}
	return cards
}

// factionBlocks reports whether some role of faction lists action in its
// blockType.
func (c *Catalog) factionBlocks(faction, action string) bool {
	for _, id := range c.factions[faction] {
		for _, b := range c.byID[id].BlockType {
			if b == action {
				return true
			}
		}
	}
	return false
}

// Message describes the catalog to clients.
func (c *Catalog) Message() CatalogMessage {
	msg := CatalogMessage{
		Type:  "catalog",
		Roles: c.Roles(),
	}
	for _, id := range c.registry.IDs() {
		spec, _ := c.registry.Lookup(id)
		msg.Actions = append(msg.Actions, ActionInfo{
			ID:            spec.ID,
			Description:   spec.Description,
			Cost:          spec.Cost,
			Targeted:      spec.Targeted,
			Challengeable: spec.Challengeable,
			ClaimedCard:   spec.ClaimedCard,
			BlockableBy:   spec.BlockableBy,
			Threshold:     spec.Threshold,
		})
	}
	return msg
}
