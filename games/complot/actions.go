/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package complot

import (
	"sort"
)

// Effect applies a resolved action to the match. It must call done exactly
// once, possibly later, after any prompt it opens has been answered.
type Effect func(m *Match, d *Declared, done func())

// ActionSpec is the registry entry for one action type.
type ActionSpec struct {
	ID          string
	Description string
	Cost        int
	Targeted    bool

	// Role actions are claims and may be challenged. ClaimedCard is the
	// role whose power is claimed.
	Challengeable  bool
	ClaimedCard    string
	ClaimedFaction string

	// Factions whose claim can block this action, sorted.
	BlockableBy []string

	// Forced is set on the single action a player must take once their
	// coins reach Threshold.
	Forced    bool
	Threshold int

	Effect Effect
	script string
}

// Blockable reports whether any faction may block the action.
func (a *ActionSpec) Blockable() bool {
	return len(a.BlockableBy) > 0
}

// Reactable reports whether the action opens a reaction window.
func (a *ActionSpec) Reactable() bool {
	return a.Challengeable || a.Blockable()
}

func (a *ActionSpec) blockableBy(faction string) bool {
	for _, f := range a.BlockableBy {
		if f == faction {
			return true
		}
	}
	return false
}

type builtin struct {
	targeted bool
	effect   Effect
}

var builtins = map[string]builtin{
	"income":      {effect: gain(1, "takes income")},
	"foreign_aid": {effect: gain(2, "takes foreign aid")},
	"tax":         {effect: gain(3, "collects tax")},
	"coup":        {targeted: true, effect: strike("launches a coup against")},
	"assassinate": {targeted: true, effect: strike("assassinates")},
	"steal":       {targeted: true, effect: steal},
	"exchange":    {effect: exchange},
}

func gain(n int, verb string) Effect {
	return func(m *Match, d *Declared, done func()) {
		if p := m.player(d.Actor); p != nil {
			p.Coins += n
			m.say("%s %s (+%d).", p.Name, verb, n)
		}
		done()
	}
}

func strike(verb string) Effect {
	return func(m *Match, d *Declared, done func()) {
		t := m.player(d.Target)
		if t == nil || t.Eliminated() {
			m.say("%s is no longer in play.", m.name(d.Target))
			done()
			return
		}
		m.say("%s %s %s.", m.name(d.Actor), verb, t.Name)
		m.loseInfluence(t.ID, d.Action, done)
	}
}

func steal(m *Match, d *Declared, done func()) {
	a, t := m.player(d.Actor), m.player(d.Target)
	if a == nil || t == nil || t.Eliminated() {
		done()
		return
	}

	n := min(2, t.Coins)
	t.Coins -= n
	a.Coins += n
	m.say("%s steals %d from %s.", a.Name, n, t.Name)

	done()
}

func exchange(m *Match, d *Declared, done func()) {
	m.beginExchange(d.Actor, done)
}

// Registry maps action ids to their specs. It is built once from a catalog
// and never mutated.
type Registry struct {
	specs  map[string]*ActionSpec
	order  []string
	forced *ActionSpec
}

func newRegistry(cat *Catalog, actions []GeneralAction) (*Registry, error) {
	r := &Registry{specs: make(map[string]*ActionSpec)}

	add := func(spec *ActionSpec, targeted bool, script string) error {
		if _, dup := r.specs[spec.ID]; dup {
			return configErrorf("duplicate action id %q", spec.ID)
		}

		if b, ok := builtins[spec.ID]; ok && script == "" {
			spec.Targeted = b.targeted
			spec.Effect = b.effect
		} else {
			if script == "" {
				return configErrorf("action %q has no built-in effect and no script", spec.ID)
			}
			if err := compileScript(script); err != nil {
				return configErrorf("action %q: script: %v", spec.ID, err)
			}
			spec.Targeted = targeted
			spec.script = script
			spec.Effect = scripted
		}

		for _, f := range spec.BlockableBy {
			if _, ok := cat.factions[f]; !ok {
				return configErrorf("action %q: unknown blocking faction %q", spec.ID, f)
			}
			if !cat.factionBlocks(f, spec.ID) {
				return configErrorf("action %q: no %s role lists it in blockType", spec.ID, f)
			}
		}
		sort.Strings(spec.BlockableBy)

		r.specs[spec.ID] = spec
		r.order = append(r.order, spec.ID)

		return nil
	}

	for _, a := range actions {
		spec := &ActionSpec{
			ID:          a.ID,
			Description: a.Description,
			Cost:        a.Cost,
			BlockableBy: append([]string(nil), a.BlockedByFaction...),
			Threshold:   a.MustActionCoinThreshold,
		}
		if a.Cost < 0 {
			return nil, configErrorf("action %q: cost must not be negative", a.ID)
		}
		if err := add(spec, a.Targeted, a.Script); err != nil {
			return nil, err
		}
		if spec.Threshold > 0 {
			if r.forced != nil {
				return nil, configErrorf("actions %q and %q both set mustActionCoinThreshold", r.forced.ID, spec.ID)
			}
			if !spec.Targeted {
				return nil, configErrorf("forced action %q must be targeted", spec.ID)
			}
			spec.Forced = true
			r.forced = spec
		}
	}

	for _, role := range cat.roles {
		if role.ActionType == "" {
			continue
		}
		spec := &ActionSpec{
			ID:             role.ActionType,
			Description:    role.Description,
			Cost:           role.Cost,
			Challengeable:  true,
			ClaimedCard:    role.ID,
			ClaimedFaction: role.Faction,
			BlockableBy:    append([]string(nil), role.CounteredByFaction...),
		}
		if err := add(spec, role.Targeted, role.Script); err != nil {
			return nil, err
		}
	}

	if r.forced == nil {
		return nil, configErrorf("no general action sets mustActionCoinThreshold")
	}

	for _, role := range cat.roles {
		for _, b := range role.BlockType {
			if _, ok := r.specs[b]; !ok {
				return nil, configErrorf("role %q blocks unknown action %q", role.ID, b)
			}
		}
	}

	return r, nil
}

// Lookup resolves an action id.
func (r *Registry) Lookup(id string) (*ActionSpec, error) {
	spec, ok := r.specs[id]
	if !ok {
		return nil, unknownf("unknown action %q", id)
	}
	return spec, nil
}

// Forced returns the action players above its threshold must take.
func (r *Registry) Forced() *ActionSpec {
	return r.forced
}

// IDs returns every action id, general actions first, in catalog order.
func (r *Registry) IDs() []string {
	return append([]string(nil), r.order...)
}
