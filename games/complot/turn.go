/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package complot

import (
	"slices"
)

func (m *Match) playing() error {
	switch m.status {
	case StatusWaiting:
		return invalidf("the match has not started")
	case StatusFinished:
		return invalidf("the match is over")
	case StatusError:
		return invalidf("the match could not be started")
	}
	return nil
}

// seat returns playerID's record if they are still in play.
func (m *Match) seat(playerID string) (*Player, error) {
	p := m.player(playerID)
	if p == nil {
		return nil, invalidf("you are not in this match")
	}
	if p.Eliminated() {
		return nil, invalidf("you have been eliminated")
	}
	return p, nil
}

// Declare is the current player's action for this turn.
func (m *Match) Declare(playerID, actionID, targetID string) error {
	if err := m.playing(); err != nil {
		return err
	}
	p, err := m.seat(playerID)
	if err != nil {
		return err
	}
	if m.current != playerID {
		return invalidf("it is not your turn")
	}
	if m.turn != TurnAwaitingAction {
		return invalidf("an action is already under way")
	}

	spec, err := m.cat.registry.Lookup(actionID)
	if err != nil {
		return err
	}

	if f := m.cat.registry.Forced(); p.Coins >= f.Threshold && spec.ID != f.ID {
		return forcedf("with %d coins you must declare %s", p.Coins, f.ID)
	}
	if p.Coins < spec.Cost {
		return invalidf("%s costs %d coins, you have %d", spec.ID, spec.Cost, p.Coins)
	}

	switch {
	case spec.Targeted && targetID == "":
		return invalidf("%s needs a target", spec.ID)
	case spec.Targeted && targetID == playerID:
		return invalidf("you cannot target yourself")
	case !spec.Targeted && targetID != "":
		return invalidf("%s does not take a target", spec.ID)
	}
	if spec.Targeted {
		if t := m.player(targetID); t == nil || t.Eliminated() {
			return invalidf("the target is not a living player")
		}
	}

	p.Coins -= spec.Cost
	m.declared = &Declared{
		Action:      spec.ID,
		Actor:       playerID,
		Target:      targetID,
		ClaimedCard: spec.ClaimedCard,
		spec:        spec,
		paid:        spec.Cost,
	}

	if targetID != "" {
		m.say("%s declares %s against %s.", p.Name, spec.ID, m.name(targetID))
	} else {
		m.say("%s declares %s.", p.Name, spec.ID)
	}

	if !spec.Reactable() {
		m.resolve()
		m.publish()
		return nil
	}

	m.turn = TurnAwaitingReaction
	m.arm()
	m.notify.Broadcast(ActionOpportunity{
		Type:          "action_opportunity",
		Stage:         "action",
		Actor:         playerID,
		Action:        spec.ID,
		Target:        targetID,
		ClaimedCard:   spec.ClaimedCard,
		BlockableBy:   spec.BlockableBy,
		Challengeable: spec.Challengeable,
		TimeoutMS:     m.timeout.Milliseconds(),
	})
	m.publish()

	return nil
}

// Challenge calls the pending claim: the actor's role claim, or the
// blocker's claim once a block is up.
func (m *Match) Challenge(playerID string) error {
	if err := m.playing(); err != nil {
		return err
	}

	d := m.declared
	var claimant string
	switch m.turn {
	case TurnAwaitingReaction:
		if !d.spec.Challengeable {
			return invalidf("%s claims no role and cannot be challenged", d.Action)
		}
		claimant = d.Actor
	case TurnAwaitingBlockChallenge:
		claimant = d.Blocker
	default:
		return stalef("there is no claim to challenge")
	}

	c, err := m.seat(playerID)
	if err != nil {
		return err
	}
	if playerID == claimant {
		return invalidf("you cannot challenge your own claim")
	}

	stage := m.turn
	m.disarm()
	m.turn = TurnResolving

	claimer := m.player(claimant)

	if stage == TurnAwaitingReaction {
		m.say("%s challenges %s's claim to the %s.", c.Name, claimer.Name, m.cardName(d.ClaimedCard))

		if i := claimer.holds(d.ClaimedCard); i >= 0 {
			m.prove(claimer, i)
			m.loseInfluence(c.ID, "failed challenge", m.resolve)
		} else {
			m.say("%s was bluffing.", claimer.Name)
			claimer.Coins += d.paid
			d.paid = 0
			m.loseInfluence(claimer.ID, "caught bluffing", m.endTurn)
		}
	} else {
		m.say("%s challenges %s's block as %s.", c.Name, claimer.Name, d.BlockFaction)

		if i := m.holdsFaction(claimer, d.BlockFaction); i >= 0 {
			m.prove(claimer, i)
			m.loseInfluence(c.ID, "failed challenge", m.blockStands)
		} else {
			m.say("%s was bluffing; the block fails.", claimer.Name)
			d.Blocker, d.BlockFaction = "", ""
			m.loseInfluence(claimer.ID, "caught bluffing", m.resolve)
		}
	}

	m.publish()

	return nil
}

// Block counter-claims a faction able to stop the pending action. faction
// may be empty when only one faction can block.
func (m *Match) Block(playerID, faction string) error {
	if err := m.playing(); err != nil {
		return err
	}

	d := m.declared
	switch m.turn {
	case TurnAwaitingReaction:
	case TurnAwaitingBlockChallenge:
		return invalidf("%s is already blocked", d.Action)
	default:
		return stalef("there is no action to block")
	}

	b, err := m.seat(playerID)
	if err != nil {
		return err
	}
	if playerID == d.Actor {
		return invalidf("you cannot block your own action")
	}

	spec := d.spec
	if !spec.Blockable() {
		return invalidf("%s cannot be blocked", d.Action)
	}
	switch {
	case faction == "" && len(spec.BlockableBy) == 1:
		faction = spec.BlockableBy[0]
	case faction == "":
		return invalidf("name the faction you claim: one of %v", spec.BlockableBy)
	case !spec.blockableBy(faction):
		return invalidf("%s cannot block %s", faction, d.Action)
	}

	m.disarm()
	d.Blocker = playerID
	d.BlockFaction = faction
	m.turn = TurnAwaitingBlockChallenge
	m.arm()

	m.say("%s blocks %s, claiming %s.", b.Name, d.Action, faction)
	m.notify.Broadcast(ActionOpportunity{
		Type:          "action_opportunity",
		Stage:         "block",
		Actor:         d.Actor,
		Action:        d.Action,
		Target:        d.Target,
		ClaimedCard:   d.ClaimedCard,
		Blocker:       playerID,
		BlockFaction:  faction,
		Challengeable: true,
		TimeoutMS:     m.timeout.Milliseconds(),
	})
	m.publish()

	return nil
}

// ChooseInfluence answers a lose-influence prompt.
func (m *Match) ChooseInfluence(playerID, cardID string) error {
	if err := m.playing(); err != nil {
		return err
	}
	if m.turn != TurnAwaitingInfluenceLoss {
		return stalef("no influence loss is pending")
	}
	if m.loss.player != playerID {
		return invalidf("%s is choosing, not you", m.name(m.loss.player))
	}

	p := m.player(playerID)
	i := p.holds(cardID)
	if i < 0 {
		return invalidf("you do not hold %s", cardID)
	}

	m.disarm()
	m.settleLoss(p, i)
	m.publish()

	return nil
}

// Exchange answers an exchange prompt with the cards to keep.
func (m *Match) Exchange(playerID string, keep []string) error {
	if err := m.playing(); err != nil {
		return err
	}
	if m.turn != TurnAwaitingExchange {
		return stalef("no exchange is pending")
	}
	if m.swap.player != playerID {
		return invalidf("%s is exchanging, not you", m.name(m.swap.player))
	}

	p := m.player(playerID)
	if len(keep) != len(p.Concealed) {
		return invalidf("keep exactly %d cards", len(p.Concealed))
	}

	pool := append(slices.Clone(p.Concealed), m.swap.drawn...)
	for _, c := range keep {
		i := slices.Index(pool, c)
		if i < 0 {
			return invalidf("%s is not among the cards offered", c)
		}
		pool = slices.Delete(pool, i, i+1)
	}

	m.disarm()
	m.settleExchange(p, keep, pool)
	m.publish()

	return nil
}

// Timeout handles an expired reaction timer. Only the most recently armed
// epoch counts; anything else already lost the race and is ignored.
func (m *Match) Timeout(epoch uint64) error {
	if m.status != StatusPlaying || !m.armed || epoch != m.epoch {
		m.logf("GAMES: Ignored stale timer %d in %s (current %d)", epoch, m.id, m.epoch)
		return stalef("timer %d was superseded", epoch)
	}
	m.armed = false

	switch m.turn {
	case TurnAwaitingReaction:
		m.turn = TurnResolving
		m.say("Nobody reacts to %s.", m.declared.Action)
		m.resolve()
	case TurnAwaitingBlockChallenge:
		m.turn = TurnResolving
		m.blockStands()
	case TurnAwaitingInfluenceLoss:
		p := m.player(m.loss.player)
		m.settleLoss(p, len(p.Concealed)-1)
	case TurnAwaitingExchange:
		p := m.player(m.swap.player)
		m.settleExchange(p, slices.Clone(p.Concealed), m.swap.drawn)
	}

	m.publish()

	return nil
}

func (m *Match) resolve() {
	if m.status != StatusPlaying {
		return
	}
	d := m.declared
	m.turn = TurnResolving
	if m.player(d.Actor) == nil {
		m.say("The %s is cancelled because its player left.", d.Action)
		m.endTurn()
		return
	}
	d.spec.Effect(m, d, m.endTurn)
}

func (m *Match) blockStands() {
	d := m.declared
	m.say("%s's block stands; %s is cancelled.", m.name(d.Blocker), d.Action)
	m.endTurn()
}

// prove reveals a claimed card, shuffles it back into the deck and deals
// its owner a replacement, all in one step.
func (m *Match) prove(p *Player, i int) {
	card := p.remove(i)
	m.say("%s reveals the %s, returns it to the deck and draws a replacement.", p.Name, m.cardName(card))

	m.deck.Return(card)
	m.deck.Shuffle()
	p.Concealed = append(p.Concealed, m.deck.Draw(1)...)
}

func (m *Match) holdsFaction(p *Player, faction string) int {
	return slices.IndexFunc(p.Concealed, func(card string) bool {
		return m.cat.Faction(card) == faction
	})
}

// loseInfluence makes playerID reveal a card, prompting when they have a
// choice, then continues with then.
func (m *Match) loseInfluence(playerID, reason string, then func()) {
	p := m.player(playerID)
	if m.status != StatusPlaying || p == nil || p.Eliminated() {
		then()
		return
	}

	if len(p.Concealed) == 1 {
		m.reveal(p, 0)
		then()
		return
	}

	m.loss = &lossPrompt{player: playerID, reason: reason, then: then}
	m.turn = TurnAwaitingInfluenceLoss
	m.arm()
	m.notify.Send(playerID, ChooseInfluence{
		Type:      "choose_influence",
		Reason:    reason,
		Cards:     slices.Clone(p.Concealed),
		TimeoutMS: m.timeout.Milliseconds(),
	})
}

func (m *Match) settleLoss(p *Player, i int) {
	prompt := m.loss
	m.loss = nil
	m.turn = TurnResolving
	m.reveal(p, i)
	prompt.then()
}

func (m *Match) reveal(p *Player, i int) {
	card := p.remove(i)
	p.Revealed = append(p.Revealed, card)
	m.discard = append(m.discard, card)
	m.say("%s loses the %s.", p.Name, m.cardName(card))

	if p.Eliminated() {
		m.logf("GAMES: Player %q eliminated from %s", p.Name, m.id)
		m.say("%s is out of the match.", p.Name)
		m.notify.Broadcast(PlayerEliminated{
			Type:   "player_eliminated",
			Player: p.ID,
			Name:   p.Name,
		})
	}
}

func (m *Match) beginExchange(playerID string, then func()) {
	p := m.player(playerID)
	if p == nil || p.Eliminated() {
		then()
		return
	}

	drawn := m.deck.Draw(exchangeDraw)
	if len(drawn) == 0 {
		m.say("The deck is empty; there is nothing to exchange.")
		then()
		return
	}

	m.swap = &exchangePrompt{player: playerID, drawn: drawn, then: then}
	m.turn = TurnAwaitingExchange
	m.arm()
	m.notify.Send(playerID, ChooseExchange{
		Type:      "choose_exchange",
		Hand:      slices.Clone(p.Concealed),
		Drawn:     slices.Clone(drawn),
		Keep:      len(p.Concealed),
		TimeoutMS: m.timeout.Milliseconds(),
	})
}

func (m *Match) settleExchange(p *Player, keep, rest []string) {
	prompt := m.swap
	m.swap = nil
	m.turn = TurnResolving

	p.Concealed = slices.Clone(keep)
	m.returnToDeck(rest)
	m.say("%s exchanges cards with the deck.", p.Name)

	prompt.then()
}

// endTurn passes play to the next living player in join order, or ends the
// match when at most one is left.
func (m *Match) endTurn() {
	if m.status != StatusPlaying {
		return
	}

	m.declared = nil

	if len(m.living()) <= 1 {
		m.finish()
		return
	}

	start := m.resumeAt
	if i := m.index(m.current); i >= 0 {
		start = i + 1
	}
	for k := range m.players {
		p := m.players[(start+k)%len(m.players)]
		if !p.Eliminated() {
			m.current = p.ID
			break
		}
	}

	m.turn = TurnAwaitingAction
	m.turns++
	m.notify.Send(m.current, m.yourTurn(m.player(m.current)))
}

func (m *Match) yourTurn(p *Player) YourTurn {
	reg := m.cat.registry
	msg := YourTurn{Type: "your_turn"}

	if f := reg.Forced(); p.Coins >= f.Threshold {
		msg.Actions = []string{f.ID}
		msg.Forced = true
		return msg
	}

	for _, id := range reg.IDs() {
		if spec, _ := reg.Lookup(id); spec.Cost <= p.Coins {
			msg.Actions = append(msg.Actions, id)
		}
	}
	return msg
}

func (m *Match) finish() {
	m.disarm()
	if m.swap != nil {
		m.returnToDeck(m.swap.drawn)
		m.swap = nil
	}
	m.status = StatusFinished
	m.turn = TurnFinished
	m.declared = nil
	m.loss = nil

	msg := GameOver{Type: "game_over"}
	summary := Summary{
		Match:   m.id,
		Players: slices.Clone(m.roster),
		Turns:   m.turns,
	}
	if living := m.living(); len(living) == 1 {
		msg.Winner, msg.Name = living[0].ID, living[0].Name
		summary.Winner, summary.WinnerName = living[0].ID, living[0].Name
		m.say("%s wins the match.", living[0].Name)
	} else {
		m.say("The match ends with no winner.")
	}

	m.logf("GAMES: Finished %s after %d turns, winner %q", m.id, m.turns, summary.WinnerName)
	m.notify.Broadcast(msg)

	if m.onFinish != nil {
		m.onFinish(summary)
	}
}
