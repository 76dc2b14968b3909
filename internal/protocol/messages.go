// Package protocol defines the newline-delimited JSON wire format spoken
// between the dealer and its clients. Every line is one envelope of the
// shape {"type": <int>, "message": <payload>}.
package protocol

import "fmt"

// Type is the integer message discriminator carried in every envelope.
type Type int

const (
	TypeConnect       Type = 0 // S->C, assigned player id
	TypeDisconnect    Type = 1 // S->C, reason string
	TypeGameStart     Type = 2 // S->C, per-player hand start info
	TypeRoundStart    Type = 3 // S->C, round name
	TypeRequestAction Type = 4 // S->C, solicits one player
	TypePlayerAction  Type = 5 // C->S, the solicited action
	TypeRoundEnd      Type = 6 // S->C, round name
	TypeGameEnd       Type = 7 // S->C, per-player score delta
	TypeText          Type = 8 // S<->C, free-form text
	TypeGameState     Type = 9 // S->C, table snapshot
)

func (t Type) String() string {
	switch t {
	case TypeConnect:
		return "Connect"
	case TypeDisconnect:
		return "Disconnect"
	case TypeGameStart:
		return "GameStart"
	case TypeRoundStart:
		return "RoundStart"
	case TypeRequestAction:
		return "RequestAction"
	case TypePlayerAction:
		return "PlayerAction"
	case TypeRoundEnd:
		return "RoundEnd"
	case TypeGameEnd:
		return "GameEnd"
	case TypeText:
		return "Message"
	case TypeGameState:
		return "GameState"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// Known reports whether t is a defined message type.
func (t Type) Known() bool {
	return t >= TypeConnect && t <= TypeGameState
}

// GameStart is sent to each player individually when a hand begins; the
// hole cards are private to the recipient.
type GameStart struct {
	Text         string   `json:"text"`
	HoleCards    []string `json:"hole_cards"`
	Blind        int      `json:"blind"`
	IsSmallBlind bool     `json:"is_small_blind"`
	IsBigBlind   bool     `json:"is_big_blind"`
}

// RequestAction solicits exactly one player for their next action.
type RequestAction struct {
	PlayerID int     `json:"player_id"`
	TimeLeft float64 `json:"time_left"` // seconds
}

// PlayerAction is the client's reply to RequestAction. Action carries
// the integer action code (Fold=1 .. AllIn=5).
type PlayerAction struct {
	PlayerID int `json:"player_id"`
	Action   int `json:"action"`
	Amount   int `json:"amount"`
}

// GameEnd delivers the recipient's own score delta for the hand.
type GameEnd struct {
	Score int `json:"score"`
}

// SidePot mirrors one entry of the engine's pot structure.
type SidePot struct {
	Amount          int   `json:"amount"`
	EligiblePlayers []int `json:"eligible_players"`
}

// GameState is the full table snapshot broadcast after every applied
// action and at round boundaries.
type GameState struct {
	RoundNum       int               `json:"round_num"`
	Round          string            `json:"round"`
	CommunityCards []string          `json:"community_cards"`
	Pot            int               `json:"pot"`
	CurrentPlayer  []int             `json:"current_player"`
	CurrentBet     int               `json:"current_bet"`
	PlayerBets     map[string]int    `json:"player_bets"`
	PlayerActions  map[string]string `json:"player_actions"`
	MinRaise       int               `json:"min_raise"`
	MaxRaise       int               `json:"max_raise"`
	SidePots       []SidePot         `json:"side_pots"`
}
