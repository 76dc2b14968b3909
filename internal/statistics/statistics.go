// Package statistics accumulates per-player results across a session:
// chip deltas, win rates and showdown frequency, normalized to big
// blinds so sessions with different stakes stay comparable.
package statistics

import (
	"math"

	"github.com/cardroom/dealerd/internal/game"
)

// PlayerStats is one player's running aggregate.
type PlayerStats struct {
	Hands     int
	Wins      int // hands with a positive score
	Showdowns int // hands where this player reached a showdown
	NetChips  int

	sumBB  float64
	sumBB2 float64 // sum of squares for variance
}

// MeanBB returns the mean result in big blinds per hand.
func (ps *PlayerStats) MeanBB() float64 {
	if ps.Hands == 0 {
		return 0
	}
	return ps.sumBB / float64(ps.Hands)
}

// StdDevBB returns the sample standard deviation in big blinds.
func (ps *PlayerStats) StdDevBB() float64 {
	if ps.Hands < 2 {
		return 0
	}
	mean := ps.MeanBB()
	variance := (ps.sumBB2 - float64(ps.Hands)*mean*mean) / float64(ps.Hands-1)
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance)
}

// Tracker collects hand outcomes for every player at the table.
type Tracker struct {
	blind   int
	players map[game.PlayerID]*PlayerStats
	hands   int
	maxPot  int
}

// NewTracker creates a tracker for a table with the given big blind.
func NewTracker(blind int) *Tracker {
	if blind < 1 {
		blind = game.DefaultBlind
	}
	return &Tracker{
		blind:   blind,
		players: make(map[game.PlayerID]*PlayerStats),
	}
}

// Record folds one settled hand into the aggregates. The hand must be
// over: it is inspected for its pot sizes and showdown participants.
func (t *Tracker) Record(h *game.Hand, scores map[game.PlayerID]int) {
	t.hands++

	pot := 0
	for _, arch := range h.Archives() {
		pot += arch.Pot
	}
	if pot > t.maxPot {
		t.maxPot = pot
	}

	showdown := len(h.Board()) == 5 && len(h.Active()) > 1
	atShowdown := make(map[game.PlayerID]bool, len(h.Active()))
	if showdown {
		for _, p := range h.Active() {
			atShowdown[p] = true
		}
	}

	for _, p := range h.Players() {
		ps := t.players[p]
		if ps == nil {
			ps = &PlayerStats{}
			t.players[p] = ps
		}
		score := scores[p]
		netBB := float64(score) / float64(t.blind)

		ps.Hands++
		ps.NetChips += score
		ps.sumBB += netBB
		ps.sumBB2 += netBB * netBB
		if score > 0 {
			ps.Wins++
		}
		if atShowdown[p] {
			ps.Showdowns++
		}
	}
}

// Hands returns the number of hands recorded.
func (t *Tracker) Hands() int { return t.hands }

// MaxPot returns the largest pot observed, in chips.
func (t *Tracker) MaxPot() int { return t.maxPot }

// Player returns a copy of one player's aggregate.
func (t *Tracker) Player(p game.PlayerID) PlayerStats {
	if ps := t.players[p]; ps != nil {
		return *ps
	}
	return PlayerStats{}
}

// Line pairs a player with their aggregate for reporting.
type Line struct {
	Player game.PlayerID
	Stats  PlayerStats
}

// Summary returns every player's aggregate in player-id order.
func (t *Tracker) Summary() []Line {
	ids := make([]game.PlayerID, 0, len(t.players))
	for p := range t.players {
		ids = append(ids, p)
	}
	lines := make([]Line, 0, len(ids))
	for _, p := range game.SortedPlayers(ids) {
		lines = append(lines, Line{Player: p, Stats: *t.players[p]})
	}
	return lines
}
