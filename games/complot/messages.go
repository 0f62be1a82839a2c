/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package complot

// Outbound notifications. Every message carries its "type" so the client can
// dispatch on it.

// LobbyMessage lists the roster and who may start the match.
type LobbyMessage struct {
	Type       string        `json:"type"` // "lobby"
	Match      string        `json:"match"`
	Status     Status        `json:"status"`
	Host       string        `json:"host,omitempty"`
	Players    []LobbyPlayer `json:"players"`
	MinPlayers int           `json:"min_players"`
	MaxPlayers int           `json:"max_players"`
}

type LobbyPlayer struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// PublicState is broadcast after every change. It never carries another
// player's concealed cards.
type PublicState struct {
	Type     string         `json:"type"` // "public_state"
	Match    string         `json:"match"`
	Status   Status         `json:"status"`
	Turn     TurnState      `json:"turn_state"`
	Round    int            `json:"turn"`
	Current  string         `json:"current_player,omitempty"`
	Awaiting string         `json:"awaiting,omitempty"`
	Players  []PublicPlayer `json:"players"`
	Pending  *Declared      `json:"pending,omitempty"`
	Deck     int            `json:"deck_count"`
	Discard  int            `json:"discard_count"`
}

// PrivateState is sent to one seat only.
type PrivateState struct {
	Type   string        `json:"type"` // "private_state"
	Self   PrivatePlayer `json:"self"`
	Public PublicState   `json:"public"`
}

// ActionOpportunity opens a reaction window.
type ActionOpportunity struct {
	Type          string   `json:"type"`  // "action_opportunity"
	Stage         string   `json:"stage"` // "action" or "block"
	Actor         string   `json:"actor"`
	Action        string   `json:"action"`
	Target        string   `json:"target,omitempty"`
	ClaimedCard   string   `json:"claimed_card,omitempty"`
	Blocker       string   `json:"blocker,omitempty"`
	BlockFaction  string   `json:"block_faction,omitempty"`
	BlockableBy   []string `json:"blockable_by,omitempty"`
	Challengeable bool     `json:"challengeable"`
	TimeoutMS     int64    `json:"timeout_ms"`
}

// YourTurn tells the current player which actions they may declare.
type YourTurn struct {
	Type    string   `json:"type"` // "your_turn"
	Actions []string `json:"actions"`
	Forced  bool     `json:"forced,omitempty"`
}

// ChooseInfluence asks a player which concealed card to give up.
type ChooseInfluence struct {
	Type      string   `json:"type"` // "choose_influence"
	Reason    string   `json:"reason"`
	Cards     []string `json:"cards"`
	TimeoutMS int64    `json:"timeout_ms"`
}

// ChooseExchange asks the exchanging player which cards to keep.
type ChooseExchange struct {
	Type      string   `json:"type"` // "choose_exchange"
	Hand      []string `json:"hand"`
	Drawn     []string `json:"drawn"`
	Keep      int      `json:"keep"`
	TimeoutMS int64    `json:"timeout_ms"`
}

type PlayerEliminated struct {
	Type   string `json:"type"` // "player_eliminated"
	Player string `json:"player"`
	Name   string `json:"name"`
}

// GameOver has an empty winner when nobody is left standing.
type GameOver struct {
	Type   string `json:"type"` // "game_over"
	Winner string `json:"winner,omitempty"`
	Name   string `json:"name,omitempty"`
}

type LogMessage struct {
	Type    string `json:"type"` // "log"
	Message string `json:"message"`
}

// ErrorMessage reports a rejected request to its sender.
type ErrorMessage struct {
	Type    string `json:"type"` // "error" or "stale"
	Kind    Kind   `json:"kind,omitempty"`
	Message string `json:"message"`
}

// NewErrorMessage converts a rejected request into the message its sender
// should see. Races with an already resolved state are reported as "stale".
func NewErrorMessage(err error) ErrorMessage {
	kind := KindOf(err)
	msg := ErrorMessage{
		Type:    "error",
		Kind:    kind,
		Message: err.Error(),
	}
	if kind == KindStateRace {
		msg.Type = "stale"
	}
	return msg
}

// Summary describes a finished match.
type Summary struct {
	Match      string
	Winner     string
	WinnerName string
	Players    []string
	Turns      int
}

// ActionInfo describes one declarable action to clients.
type ActionInfo struct {
	ID            string   `json:"id"`
	Description   string   `json:"description,omitempty"`
	Cost          int      `json:"cost"`
	Targeted      bool     `json:"targeted"`
	Challengeable bool     `json:"challengeable"`
	ClaimedCard   string   `json:"claimed_card,omitempty"`
	BlockableBy   []string `json:"blockable_by,omitempty"`
	Threshold     int      `json:"threshold,omitempty"`
}

// CatalogMessage is sent once per connection so clients can label cards
// and actions.
type CatalogMessage struct {
	Type    string       `json:"type"` // "catalog"
	Roles   []Role       `json:"roles"`
	Actions []ActionInfo `json:"actions"`
}
