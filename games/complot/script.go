/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package complot

import (
	"context"
	"fmt"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// scriptTimeout bounds one scripted effect.
const scriptTimeout = 250 * time.Millisecond

func compileScript(src string) error {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()

	_, err := L.LoadString(src)
	return err
}

// scripted runs the action's Lua source against the match. Scripts see no
// standard libraries, only the globals below:
//
//	actor, target          player ids (target may be nil)
//	players(), others()    living player ids in turn order
//	coins(id)              coin balance
//	give(id, n)            add n coins (negative removes, never below zero)
//	take(from, to, n)      move up to n coins, returns the amount moved
//	say(msg)               send a log line to every player
//	lose_influence(id)     the player loses one influence after the script
//
// A script that fails leaves every balance as it found it.
func scripted(m *Match, d *Declared, done func()) {
	losses, err := runScript(m, d)
	if err != nil {
		m.logf("GAMES: Script for %q in %s failed: %v", d.Action, m.id, err)
		m.say("The %s effect fizzles.", d.Action)
	}

	var next func(i int)
	next = func(i int) {
		if i == len(losses) {
			done()
			return
		}
		m.loseInfluence(losses[i], d.Action, func() { next(i + 1) })
	}
	next(0)
}

func runScript(m *Match, d *Declared) ([]string, error) {
	spec, err := m.cat.registry.Lookup(d.Action)
	if err != nil {
		return nil, err
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()

	ctx, cancel := context.WithTimeout(context.Background(), scriptTimeout)
	defer cancel()
	L.SetContext(ctx)

	// coins are written through and restored on failure; log lines and
	// influence losses only take effect once the script has finished
	coins := make(map[*Player]int, len(m.players))
	for _, p := range m.players {
		coins[p] = p.Coins
	}
	var (
		losses []string
		said   []string
	)

	living := func(exclude string) *lua.LTable {
		t := L.NewTable()
		for _, p := range m.players {
			if p.Eliminated() || p.ID == exclude {
				continue
			}
			t.Append(lua.LString(p.ID))
		}
		return t
	}

	seat := func(n int) *Player {
		id := L.CheckString(n)
		p := m.player(id)
		if p == nil {
			L.ArgError(n, fmt.Sprintf("no player %q", id))
		}
		return p
	}

	L.SetGlobal("actor", lua.LString(d.Actor))
	if d.Target != "" {
		L.SetGlobal("target", lua.LString(d.Target))
	}

	L.SetGlobal("players", L.NewFunction(func(L *lua.LState) int {
		L.Push(living(""))
		return 1
	}))
	L.SetGlobal("others", L.NewFunction(func(L *lua.LState) int {
		L.Push(living(d.Actor))
		return 1
	}))
	L.SetGlobal("coins", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LNumber(seat(1).Coins))
		return 1
	}))
	L.SetGlobal("give", L.NewFunction(func(L *lua.LState) int {
		p := seat(1)
		p.Coins = max(0, p.Coins+L.CheckInt(2))
		return 0
	}))
	L.SetGlobal("take", L.NewFunction(func(L *lua.LState) int {
		from, to := seat(1), seat(2)
		n := min(max(0, L.CheckInt(3)), from.Coins)
		from.Coins -= n
		to.Coins += n
		L.Push(lua.LNumber(n))
		return 1
	}))
	L.SetGlobal("say", L.NewFunction(func(L *lua.LState) int {
		said = append(said, L.CheckString(1))
		return 0
	}))
	L.SetGlobal("lose_influence", L.NewFunction(func(L *lua.LState) int {
		losses = append(losses, seat(1).ID)
		return 0
	}))

	if err := L.DoString(spec.script); err != nil {
		for p, n := range coins {
			p.Coins = n
		}
		return nil, err
	}

	for _, line := range said {
		m.say("%s", line)
	}
	return losses, nil
}
