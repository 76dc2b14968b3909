package server

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/charmbracelet/log"

	"github.com/cardroom/dealerd/internal/deck"
	"github.com/cardroom/dealerd/internal/fileutil"
	"github.com/cardroom/dealerd/internal/game"
)

// HandLog is the persisted record of one complete hand. Player ids in
// the log are zero-based offsets (wire id - 1); map keys are their
// decimal form because JSON objects key on strings.
type HandLog struct {
	GameID      string              `json:"gameId"`
	PlayerNames map[string]string   `json:"playerNames"`
	PlayerHands map[string][]string `json:"playerHands"`
	Blinds      BlindLog            `json:"blinds"`
	FinalBoard  []string            `json:"finalBoard"`
	Rounds      map[string]RoundLog `json:"rounds"`
	PlayerMoney *MoneyLog           `json:"playerMoney,omitempty"`
}

// BlindLog records the forced-bet sizes for the hand.
type BlindLog struct {
	Small int `json:"small"`
	Big   int `json:"big"`
}

// RoundLog freezes one betting round.
type RoundLog struct {
	Pot            int               `json:"pot"`
	Bets           map[string]int    `json:"bets"`
	Actions        map[string]string `json:"actions"`
	ActionSequence []ActionLog       `json:"action_sequence"`
	ActionTimes    map[string]int64  `json:"actionTimes"`
	SidePots       []SidePotLog      `json:"sidePots"`
}

// ActionLog is one applied action with the pot structure it produced.
type ActionLog struct {
	Player         int          `json:"player"`
	Action         string       `json:"action"`
	Amount         int          `json:"amount"`
	TimeMS         int64        `json:"time_ms"`
	SidePots       []SidePotLog `json:"side_pots"`
	CumulativePots []SidePotLog `json:"cumulative_pots"`
}

// SidePotLog mirrors one pot with its eligibility set.
type SidePotLog struct {
	Amount          int   `json:"amount"`
	EligiblePlayers []int `json:"eligible_players"`
}

// MoneyLog carries the bankroll accounting across hands: where each
// player stood entering the hand and where the score map left them.
type MoneyLog struct {
	InitialAmount int            `json:"initialAmount"`
	StartingMoney map[string]int `json:"startingMoney"`
	StartingDelta map[string]int `json:"startingDelta"`
	FinalMoney    map[string]int `json:"finalMoney"`
	FinalDelta    map[string]int `json:"finalDelta"`
	GameScores    map[string]int `json:"gameScores"`
	ThisGameDelta map[string]int `json:"thisGameDelta"`
}

// logKey renders a wire player id as the zero-based log key.
func logKey(p game.PlayerID) string {
	return strconv.Itoa(int(p) - 1)
}

// logID renders a wire player id as the zero-based log id.
func logID(p game.PlayerID) int {
	return int(p) - 1
}

func logPots(pots []game.Pot) []SidePotLog {
	out := make([]SidePotLog, len(pots))
	for i, pot := range pots {
		eligible := make([]int, len(pot.Eligible))
		for j, p := range pot.Eligible {
			eligible[j] = logID(p)
		}
		out[i] = SidePotLog{Amount: pot.Amount, EligiblePlayers: eligible}
	}
	return out
}

// BuildHandLog assembles the persisted document from a settled hand.
func BuildHandLog(h *game.Hand, names map[game.PlayerID]string, money *MoneyLog) HandLog {
	hl := HandLog{
		GameID:      h.ID(),
		PlayerNames: make(map[string]string),
		PlayerHands: make(map[string][]string),
		Blinds:      BlindLog{Small: h.Blind() / 2, Big: h.Blind()},
		FinalBoard:  deck.Strings(h.Board()),
		Rounds:      make(map[string]RoundLog),
		PlayerMoney: money,
	}

	for _, p := range h.Players() {
		hl.PlayerNames[logKey(p)] = names[p]
		hl.PlayerHands[logKey(p)] = deck.Strings(h.HoleCards(p))
	}

	for i, arc := range h.Archives() {
		rl := RoundLog{
			Pot:         arc.Pot,
			Bets:        make(map[string]int, len(arc.Bets)),
			Actions:     make(map[string]string, len(arc.Actions)),
			ActionTimes: make(map[string]int64),
			SidePots:    logPots(arc.SidePots),
		}
		for p, bet := range arc.Bets {
			rl.Bets[logKey(p)] = bet
		}
		for p, a := range arc.Actions {
			rl.Actions[logKey(p)] = a.Type.String()
		}
		for _, rec := range arc.Sequence {
			rl.ActionSequence = append(rl.ActionSequence, ActionLog{
				Player:         logID(rec.Player),
				Action:         rec.Action.String(),
				Amount:         rec.Amount,
				TimeMS:         rec.ElapsedMS,
				SidePots:       logPots(rec.Pots),
				CumulativePots: logPots(rec.Cumulative),
			})
			// The last recorded action per player carries its timestamp.
			rl.ActionTimes[logKey(rec.Player)] = rec.ElapsedMS
		}
		hl.Rounds[strconv.Itoa(i)] = rl
	}

	return hl
}

// HandLogWriter persists one JSON document per hand into a directory.
type HandLogWriter struct {
	dir    string
	logger *log.Logger
}

// NewHandLogWriter creates the output directory if needed.
func NewHandLogWriter(dir string, logger *log.Logger) (*HandLogWriter, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating hand log dir: %w", err)
	}
	return &HandLogWriter{dir: dir, logger: logger.WithPrefix("handlog")}, nil
}

// Write persists the log, named by sequence number and hand id, and
// returns the file path.
func (w *HandLogWriter) Write(hl HandLog, seq int) (string, error) {
	data, err := json.MarshalIndent(hl, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding hand log: %w", err)
	}
	path := filepath.Join(w.dir, fmt.Sprintf("hand-%04d-%s.json", seq, hl.GameID))
	if err := fileutil.WriteFileAtomic(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing hand log: %w", err)
	}
	w.logger.Debug("hand log written", "path", path)
	return path, nil
}
