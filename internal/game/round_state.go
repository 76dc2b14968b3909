package game

import (
	"errors"
	"fmt"
	"sort"
)

// Betting legality errors. The session layer relays these verbatim to the
// offending client and re-solicits.
var (
	ErrNegativeAmount       = errors.New("amount cannot be negative")
	ErrNotToAct             = errors.New("player is not due to act")
	ErrCheckAfterAggression = errors.New("cannot check once the pot has been raised")
	ErrNothingToCall        = errors.New("nothing to call, check instead")
	ErrRaiseTooSmall        = errors.New("raise must exceed the current high bet")
)

// ActionRecord captures one successfully applied action together with
// the pot structure it produced. ElapsedMS is measured from hand start.
type ActionRecord struct {
	Player     PlayerID
	Action     ActionType
	Amount     int // chips actually committed by this action
	ElapsedMS  int64
	Pots       []Pot // this round's pots after the action
	Cumulative []Pot // prior rounds' pots plus this round's snapshot
}

// RoundState tracks a single betting round: who still owes an action,
// what everyone has put in, and the rolling pot structure.
type RoundState struct {
	order         []PlayerID // positional order, fixed at round start
	contributions map[PlayerID]int
	highBet       int
	aggressor     PlayerID // 0 = no aggression yet
	toAct         map[PlayerID]bool
	actions       map[PlayerID]Action // last action; cleared when a raise reopens
	allIn         map[PlayerID]bool
	folded        map[PlayerID]bool
	pots          []Pot
	history       []ActionRecord
}

// NewRoundState initialises a round over the given actors, with the main
// pot covering everyone.
func NewRoundState(active []PlayerID) *RoundState {
	rs := &RoundState{
		order:         append([]PlayerID(nil), active...),
		contributions: make(map[PlayerID]int, len(active)),
		toAct:         make(map[PlayerID]bool, len(active)),
		actions:       make(map[PlayerID]Action, len(active)),
		allIn:         make(map[PlayerID]bool),
		folded:        make(map[PlayerID]bool),
	}
	for _, p := range active {
		rs.contributions[p] = 0
		rs.toAct[p] = true
	}
	rs.recomputePots()
	return rs
}

// Apply validates and applies an action, returning the number of chips
// the player committed. The pot structure is recomputed before Apply
// returns, so external views are always current.
func (rs *RoundState) Apply(player PlayerID, action Action) (int, error) {
	if action.Amount < 0 {
		return 0, ErrNegativeAmount
	}
	if !rs.toAct[player] {
		return 0, fmt.Errorf("player %d: %w", player, ErrNotToAct)
	}

	committed := 0
	switch action.Type {
	case Fold:
		rs.folded[player] = true
		delete(rs.toAct, player)

	case Check:
		if rs.aggressor != 0 {
			return 0, ErrCheckAfterAggression
		}
		delete(rs.toAct, player)

	case Call:
		owed := rs.highBet - rs.contributions[player]
		if owed <= 0 {
			return 0, ErrNothingToCall
		}
		rs.contributions[player] += owed
		committed = owed
		delete(rs.toAct, player)

	case Raise:
		if action.Amount+rs.contributions[player] <= rs.highBet {
			return 0, fmt.Errorf("raise to %d over high bet %d: %w",
				action.Amount+rs.contributions[player], rs.highBet, ErrRaiseTooSmall)
		}
		rs.contributions[player] += action.Amount
		committed = action.Amount
		rs.highBet = rs.contributions[player]
		rs.aggressor = player
		rs.reopen(player)

	case AllIn:
		rs.contributions[player] += action.Amount
		committed = action.Amount
		rs.allIn[player] = true
		delete(rs.toAct, player)
		if rs.contributions[player] > rs.highBet {
			// A raising all-in reopens the action like a raise would.
			rs.highBet = rs.contributions[player]
			rs.aggressor = player
			rs.reopen(player)
		}

	default:
		return 0, fmt.Errorf("game: unknown action type %d", action.Type)
	}

	rs.actions[player] = Action{Type: action.Type, Amount: committed}
	rs.recomputePots()
	return committed, nil
}

// reopen resets toAct to every non-folded, non-all-in player other than
// the aggressor, clearing their recorded actions so they must act again.
func (rs *RoundState) reopen(aggressor PlayerID) {
	rs.toAct = make(map[PlayerID]bool)
	for _, p := range rs.order {
		if p == aggressor || rs.folded[p] || rs.allIn[p] {
			continue
		}
		rs.toAct[p] = true
		delete(rs.actions, p)
	}
	// The aggressor has acted; their own slot never reopens.
	delete(rs.toAct, aggressor)
}

func (rs *RoundState) recomputePots() {
	rs.pots = ComputePots(rs.contributions, rs.folded)
}

// Record appends an action record to this round's history. The hand owns
// timestamps and the cumulative view, so it builds the record.
func (rs *RoundState) Record(rec ActionRecord) {
	rs.history = append(rs.history, rec)
}

// IsComplete reports whether every player has resolved their action.
func (rs *RoundState) IsComplete() bool {
	return len(rs.toAct) == 0
}

// CurrentActors returns the set of players still owing an action,
// sorted for deterministic iteration.
func (rs *RoundState) CurrentActors() []PlayerID {
	actors := make([]PlayerID, 0, len(rs.toAct))
	for p := range rs.toAct {
		actors = append(actors, p)
	}
	sort.Slice(actors, func(i, j int) bool { return actors[i] < actors[j] })
	return actors
}

// NeedsAction reports whether the given player still owes an action.
func (rs *RoundState) NeedsAction(player PlayerID) bool {
	return rs.toAct[player]
}

// SidePots returns a snapshot of the current pot structure.
func (rs *RoundState) SidePots() []Pot {
	return ClonePots(rs.pots)
}

// PotTotal is the sum of this round's contributions.
func (rs *RoundState) PotTotal() int {
	return PotTotal(rs.pots)
}

// HighBet is the amount any player must have matched to stay.
func (rs *RoundState) HighBet() int {
	return rs.highBet
}

// Aggressor returns the most recent raiser, or 0 if the round has seen
// no aggression.
func (rs *RoundState) Aggressor() PlayerID {
	return rs.aggressor
}

// Contribution returns the chips the player has put into this round.
func (rs *RoundState) Contribution(player PlayerID) int {
	return rs.contributions[player]
}

// Contributions returns a copy of the per-player contribution map.
func (rs *RoundState) Contributions() map[PlayerID]int {
	out := make(map[PlayerID]int, len(rs.contributions))
	for p, c := range rs.contributions {
		out[p] = c
	}
	return out
}

// Actions returns a copy of each player's last recorded action.
func (rs *RoundState) Actions() map[PlayerID]Action {
	out := make(map[PlayerID]Action, len(rs.actions))
	for p, a := range rs.actions {
		out[p] = a
	}
	return out
}

// LastAction returns the player's recorded action for this round, if any.
func (rs *RoundState) LastAction(player PlayerID) (Action, bool) {
	a, ok := rs.actions[player]
	return a, ok
}

// IsAllIn reports whether the player went all-in this round.
func (rs *RoundState) IsAllIn(player PlayerID) bool {
	return rs.allIn[player]
}

// IsFolded reports whether the player folded this round.
func (rs *RoundState) IsFolded(player PlayerID) bool {
	return rs.folded[player]
}

// History returns the ordered action records applied this round.
func (rs *RoundState) History() []ActionRecord {
	return rs.history
}
