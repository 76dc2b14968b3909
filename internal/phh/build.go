package phh

import (
	"fmt"
	"strings"

	"github.com/cardroom/dealerd/internal/deck"
	"github.com/cardroom/dealerd/internal/game"
)

// Build converts a finished hand into PHH form. Players appear in join
// order; stacks gives each player's chips before the hand was dealt and
// may be nil, in which case stack fields are omitted.
func Build(h *game.Hand, names map[game.PlayerID]string, stacks map[game.PlayerID]int) *HandHistory {
	order := h.Players()
	index := make(map[game.PlayerID]int, len(order))
	for i, p := range order {
		index[p] = i
	}

	hist := &HandHistory{
		Variant:           "NT",
		Antes:             make([]int, len(order)),
		BlindsOrStraddles: make([]int, len(order)),
		MinBet:            h.Blind(),
		Actions:           make([]string, 0, 16),
		Players:           make([]string, len(order)),
		HandID:            h.ID(),
	}
	hist.BlindsOrStraddles[index[h.SmallBlindPlayer()]] = h.Blind() / 2
	hist.BlindsOrStraddles[index[h.BigBlindPlayer()]] = h.Blind()
	for i, p := range order {
		hist.Players[i] = names[p]
	}

	if stacks != nil {
		scores := h.Scores()
		hist.StartingStacks = make([]int, len(order))
		hist.FinishingStacks = make([]int, len(order))
		hist.Winnings = make([]int, len(order))
		for i, p := range order {
			hist.StartingStacks[i] = stacks[p]
			hist.FinishingStacks[i] = stacks[p] + scores[p]
			if scores[p] > 0 {
				hist.Winnings[i] = scores[p]
			}
		}
	}

	started := h.StartedAt().UTC()
	hist.Time = started.Format("15:04:05")
	hist.TimeZone = "UTC"
	hist.Day = started.Day()
	hist.Month = int(started.Month())
	hist.Year = started.Year()

	for i, p := range order {
		cards := strings.Join(NormalizeCards(deck.Strings(h.HoleCards(p))), "")
		hist.Actions = append(hist.Actions, fmt.Sprintf("d dh p%d %s", i+1, cards))
	}

	board := NormalizeCards(deck.Strings(h.Board()))
	contributions := make(map[game.PlayerID]int, len(order))
	for _, arch := range h.Archives() {
		if dealt := boardAction(arch.Round, board); dealt != "" {
			hist.Actions = append(hist.Actions, dealt)
		}
		if arch.Round != game.Preflop {
			contributions = make(map[game.PlayerID]int, len(order))
		}
		for seq, rec := range arch.Sequence {
			contributions[rec.Player] += rec.Amount
			if arch.Round == game.Preflop && isBlindPost(h, seq, rec) {
				continue
			}
			if formatted, ok := FormatAction(index[rec.Player], rec.Action, contributions[rec.Player], rec.Amount); ok {
				hist.Actions = append(hist.Actions, formatted)
			}
		}
	}

	// Showdown: every player still in the hand reveals.
	if len(board) == 5 && len(h.Active()) > 1 {
		for _, p := range game.SortedPlayers(h.Active()) {
			cards := strings.Join(NormalizeCards(deck.Strings(h.HoleCards(p))), "")
			hist.Actions = append(hist.Actions, fmt.Sprintf("p%d sm %s", index[p]+1, cards))
		}
	}

	return hist
}

// boardAction renders the dealer's board deal entering the given round.
func boardAction(round game.Round, board []string) string {
	var dealt []string
	switch round {
	case game.Flop:
		if len(board) >= 3 {
			dealt = board[:3]
		}
	case game.Turn:
		if len(board) >= 4 {
			dealt = board[3:4]
		}
	case game.River:
		if len(board) >= 5 {
			dealt = board[4:5]
		}
	}
	if len(dealt) == 0 {
		return ""
	}
	return fmt.Sprintf("d db %s", strings.Join(dealt, ""))
}

// isBlindPost reports whether a leading preflop record is a forced
// blind rather than a voluntary action. Blinds are carried in
// blinds_or_straddles, not in the action list.
func isBlindPost(h *game.Hand, seq int, rec game.ActionRecord) bool {
	switch seq {
	case 0:
		return rec.Player == h.SmallBlindPlayer() && rec.Action == game.Raise && rec.Amount == h.Blind()/2
	case 1:
		return rec.Player == h.BigBlindPlayer() && rec.Action == game.Raise && rec.Amount == h.Blind()
	}
	return false
}

// FormatAction renders one voluntary action as a PHH action string.
// totalBet is the player's cumulative bet for the street, which is what
// PHH's cbr records. Carried all-ins commit nothing and emit nothing.
func FormatAction(index int, action game.ActionType, totalBet, committed int) (string, bool) {
	player := fmt.Sprintf("p%d", index+1)
	switch action {
	case game.Fold:
		return player + " f", true
	case game.Check, game.Call:
		return player + " cc", true
	case game.Raise, game.AllIn:
		if committed <= 0 {
			return "", false
		}
		return fmt.Sprintf("%s cbr %d", player, totalBet), true
	}
	return "", false
}
