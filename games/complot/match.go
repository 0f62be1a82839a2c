/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package complot referees one hidden-role bluffing match: who holds which
// influence card, whose turn it is, and how a declared action travels through
// challenges and blocks before it resolves.
//
// A Match is not safe for concurrent use. The caller serializes every
// operation, including Timeout, on one goroutine per match.
package complot

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"time"
)

type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
	StatusError    Status = "error"
)

type TurnState string

const (
	TurnWaiting                TurnState = "waiting"
	TurnAwaitingAction         TurnState = "awaiting_action"
	TurnAwaitingReaction       TurnState = "awaiting_reaction"
	TurnAwaitingBlockChallenge TurnState = "awaiting_block_challenge"
	TurnAwaitingInfluenceLoss  TurnState = "awaiting_influence_loss"
	TurnAwaitingExchange       TurnState = "awaiting_exchange"
	TurnResolving              TurnState = "resolving"
	TurnFinished               TurnState = "finished"
)

// DefaultReactionTimeout is used when Options leaves it unset.
const DefaultReactionTimeout = 15 * time.Second

// Notifier delivers outbound messages. Implementations must not block.
type Notifier interface {
	Send(playerID string, msg any)
	Broadcast(msg any)
}

// Timer schedules a call to Match.Timeout(epoch) after d. Start replaces any
// pending expiry; Stop cancels it.
type Timer interface {
	Start(d time.Duration, epoch uint64)
	Stop()
}

type Options struct {
	Notifier        Notifier
	Timer           Timer
	Logf            func(format string, args ...any)
	Rand            *rand.Rand
	ReactionTimeout time.Duration
	OnFinish        func(Summary)
}

type nopNotifier struct{}

func (nopNotifier) Send(string, any) {}
func (nopNotifier) Broadcast(any)    {}

type nopTimer struct{}

func (nopTimer) Start(time.Duration, uint64) {}
func (nopTimer) Stop()                       {}

// Declared is the action awaiting resolution.
type Declared struct {
	Action       string `json:"action"`
	Actor        string `json:"actor"`
	Target       string `json:"target,omitempty"`
	ClaimedCard  string `json:"claimed_card,omitempty"`
	Blocker      string `json:"blocker,omitempty"`
	BlockFaction string `json:"block_faction,omitempty"`

	spec *ActionSpec
	paid int
}

type lossPrompt struct {
	player string
	reason string
	then   func()
}

type exchangePrompt struct {
	player string
	drawn  []string
	then   func()
}

type Match struct {
	id  string
	cat *Catalog

	notify   Notifier
	timer    Timer
	logf     func(format string, args ...any)
	rng      *rand.Rand
	timeout  time.Duration
	onFinish func(Summary)

	status   Status
	turn     TurnState
	players  []*Player // join order is turn order
	roster   []string
	deck     *Deck
	discard  []string
	current  string
	resumeAt int
	declared *Declared
	loss     *lossPrompt
	swap     *exchangePrompt
	epoch    uint64
	armed    bool
	turns    int
}

func NewMatch(id string, cat *Catalog, opts Options) *Match {
	m := &Match{
		id:       id,
		cat:      cat,
		notify:   opts.Notifier,
		timer:    opts.Timer,
		logf:     opts.Logf,
		rng:      opts.Rand,
		timeout:  opts.ReactionTimeout,
		onFinish: opts.OnFinish,
		status:   StatusWaiting,
		turn:     TurnWaiting,
	}
	if m.notify == nil {
		m.notify = nopNotifier{}
	}
	if m.timer == nil {
		m.timer = nopTimer{}
	}
	if m.logf == nil {
		m.logf = func(string, ...any) {}
	}
	if m.rng == nil {
		m.rng = newRand()
	}
	if m.timeout <= 0 {
		m.timeout = DefaultReactionTimeout
	}
	return m
}

func (m *Match) ID() string           { return m.id }
func (m *Match) Status() Status       { return m.status }
func (m *Match) TurnState() TurnState { return m.turn }
func (m *Match) Current() string      { return m.current }
func (m *Match) Catalog() *Catalog    { return m.cat }

// Empty reports whether nobody is seated.
func (m *Match) Empty() bool {
	return len(m.players) == 0
}

// InProgress reports whether turns are being played.
func (m *Match) InProgress() bool {
	return m.status == StatusPlaying
}

// Seated reports whether playerID holds a seat.
func (m *Match) Seated(playerID string) bool {
	return m.player(playerID) != nil
}

// Host is the first-joined player, who may start the match.
func (m *Match) Host() string {
	if len(m.players) == 0 {
		return ""
	}
	return m.players[0].ID
}

// Join seats playerID under name, or renames them if already seated.
func (m *Match) Join(playerID, name string) error {
	switch m.status {
	case StatusWaiting:
	case StatusError:
		return invalidf("the match could not be started")
	default:
		return invalidf("the match has already started")
	}

	name, err := CleanName(name)
	if err != nil {
		return err
	}

	folded := foldName(name)
	for _, p := range m.players {
		if p.ID != playerID && foldName(p.Name) == folded {
			return invalidf("the name %q is already taken", name)
		}
	}

	if p := m.player(playerID); p != nil {
		p.Name = name
		m.lobby()
		return nil
	}

	if len(m.players) >= m.cat.MaxPlayers {
		return invalidf("the match is full (%d players)", m.cat.MaxPlayers)
	}

	m.players = append(m.players, &Player{
		ID:    playerID,
		Name:  name,
		Coins: m.cat.StartingCoins,
	})
	m.logf("GAMES: Player %q joined %s", name, m.id)
	m.say("%s joined.", name)
	m.lobby()

	return nil
}

// Leave removes playerID. During play their concealed cards are discarded
// and whatever was waiting on them moves on.
func (m *Match) Leave(playerID string) error {
	i := slices.IndexFunc(m.players, func(p *Player) bool { return p.ID == playerID })
	if i < 0 {
		return invalidf("you are not in this match")
	}

	p := m.players[i]
	m.players = slices.Delete(m.players, i, i+1)
	m.logf("GAMES: Player %q left %s", p.Name, m.id)
	m.say("%s left the match.", p.Name)

	if m.status != StatusPlaying {
		m.lobby()
		m.publish()
		return nil
	}

	wasLiving := !p.Eliminated()
	m.discard = append(m.discard, p.Concealed...)
	p.Concealed = nil

	if m.swap != nil && m.swap.player == playerID {
		m.returnToDeck(m.swap.drawn)
		m.swap = nil
	}
	if m.current == playerID {
		m.resumeAt = i
	}

	d := m.declared
	living := len(m.living())
	switch {
	case living <= 1 || (wasLiving && living < m.cat.MinPlayers):
		m.finish()
	case m.loss != nil && m.loss.player == playerID:
		m.disarm()
		then := m.loss.then
		m.loss = nil
		m.turn = TurnResolving
		then()
	case m.loss != nil:
		// someone else still owes an influence; resolve drops the
		// leaver's action once it is settled
	case m.current == playerID || (d != nil && d.Actor == playerID):
		m.disarm()
		m.turn = TurnResolving
		m.endTurn()
	case m.turn == TurnAwaitingBlockChallenge && d.Blocker == playerID:
		m.disarm()
		m.say("The block on %s is withdrawn.", d.Action)
		d.Blocker, d.BlockFaction = "", ""
		m.resolve()
	}

	m.lobby()
	m.publish()

	return nil
}

// Start deals the cards and picks the first player at random.
func (m *Match) Start(playerID string) error {
	if m.status != StatusWaiting {
		return invalidf("the match has already started")
	}
	if m.Host() != playerID {
		return invalidf("only the host can start the match")
	}
	if n := len(m.players); n < m.cat.MinPlayers || n > m.cat.MaxPlayers {
		return invalidf("%d to %d players are needed, %d are seated", m.cat.MinPlayers, m.cat.MaxPlayers, n)
	}

	deck := NewDeck(m.cat, m.rng)
	deck.Shuffle()

	hands := make([][]string, len(m.players))
	for i := range m.players {
		hands[i] = deck.Draw(m.cat.InfluencePerPlayer)
		if len(hands[i]) < m.cat.InfluencePerPlayer {
			err := configErrorf("the deck ran out while dealing to %d players", len(m.players))
			m.status = StatusError
			m.logf("ERROR: Match %s: %v", m.id, err)
			m.notify.Broadcast(NewErrorMessage(err))
			m.lobby()
			return err
		}
	}

	m.deck = deck
	m.discard = nil
	m.roster = m.roster[:0]
	for i, p := range m.players {
		p.Coins = m.cat.StartingCoins
		p.Concealed = hands[i]
		p.Revealed = nil
		m.roster = append(m.roster, p.Name)
	}

	m.status = StatusPlaying
	m.turn = TurnAwaitingAction
	m.turns = 1
	m.current = m.players[m.rng.IntN(len(m.players))].ID

	m.logf("GAMES: Started %s with %d players", m.id, len(m.players))
	m.say("The match begins. %s goes first.", m.name(m.current))
	m.lobby()
	m.publish()
	m.notify.Send(m.current, m.yourTurn(m.player(m.current)))

	return nil
}

// Close tears the match down and cancels any outstanding timer.
func (m *Match) Close() {
	m.disarm()
	m.timer.Stop()
	if m.status == StatusPlaying {
		m.status = StatusFinished
		m.turn = TurnFinished
	}
}

// Snapshot is the public view of the match.
func (m *Match) Snapshot() PublicState {
	started := m.status != StatusWaiting

	s := PublicState{
		Type:    "public_state",
		Match:   m.id,
		Status:  m.status,
		Turn:    m.turn,
		Round:   m.turns,
		Current: m.current,
		Players: make([]PublicPlayer, 0, len(m.players)),
		Discard: len(m.discard),
	}
	for _, p := range m.players {
		s.Players = append(s.Players, p.public(started))
	}
	if m.deck != nil {
		s.Deck = m.deck.Remaining()
	}
	if m.declared != nil {
		d := *m.declared
		s.Pending = &d
	}
	switch {
	case m.loss != nil:
		s.Awaiting = m.loss.player
	case m.swap != nil:
		s.Awaiting = m.swap.player
	}

	return s
}

// PrivateSnapshot is the view of the match owed to playerID alone.
func (m *Match) PrivateSnapshot(playerID string) (PrivateState, error) {
	p := m.player(playerID)
	if p == nil {
		return PrivateState{}, invalidf("you are not in this match")
	}
	return PrivateState{
		Type:   "private_state",
		Self:   p.private(m.status != StatusWaiting),
		Public: m.Snapshot(),
	}, nil
}

// Lobby is the roster message.
func (m *Match) Lobby() LobbyMessage {
	msg := LobbyMessage{
		Type:       "lobby",
		Match:      m.id,
		Status:     m.status,
		Host:       m.Host(),
		Players:    make([]LobbyPlayer, 0, len(m.players)),
		MinPlayers: m.cat.MinPlayers,
		MaxPlayers: m.cat.MaxPlayers,
	}
	for _, p := range m.players {
		msg.Players = append(msg.Players, LobbyPlayer{ID: p.ID, Name: p.Name})
	}
	return msg
}

func (m *Match) lobby() {
	m.notify.Broadcast(m.Lobby())
}

func (m *Match) publish() {
	m.notify.Broadcast(m.Snapshot())
	if m.status == StatusWaiting {
		return
	}
	for _, p := range m.players {
		if s, err := m.PrivateSnapshot(p.ID); err == nil {
			m.notify.Send(p.ID, s)
		}
	}
}

func (m *Match) say(format string, args ...any) {
	m.notify.Broadcast(LogMessage{
		Type:    "log",
		Message: fmt.Sprintf(format, args...),
	})
}

func (m *Match) player(id string) *Player {
	for _, p := range m.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (m *Match) index(id string) int {
	return slices.IndexFunc(m.players, func(p *Player) bool { return p.ID == id })
}

func (m *Match) name(id string) string {
	if p := m.player(id); p != nil {
		return p.Name
	}
	return "a departed player"
}

func (m *Match) cardName(id string) string {
	if r, ok := m.cat.Role(id); ok {
		return r.Name
	}
	return id
}

func (m *Match) living() []*Player {
	var out []*Player
	for _, p := range m.players {
		if !p.Eliminated() {
			out = append(out, p)
		}
	}
	return out
}

func (m *Match) returnToDeck(cards []string) {
	for _, c := range cards {
		m.deck.Return(c)
	}
	m.deck.Shuffle()
}

func (m *Match) arm() {
	m.disarm()
	m.epoch++
	m.armed = true
	m.timer.Start(m.timeout, m.epoch)
}

func (m *Match) disarm() {
	if !m.armed {
		return
	}
	m.epoch++
	m.armed = false
	m.timer.Stop()
}
