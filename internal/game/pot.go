package game

import "sort"

// Pot is a portion of the total wager with a specific eligibility set.
// Index 0 of a pot list is the main pot; higher indices are side pots
// created by all-ins.
type Pot struct {
	Amount   int
	Eligible []PlayerID
}

// clone returns a deep copy so snapshots stay immutable.
func (p Pot) clone() Pot {
	eligible := make([]PlayerID, len(p.Eligible))
	copy(eligible, p.Eligible)
	return Pot{Amount: p.Amount, Eligible: eligible}
}

// ClonePots deep-copies a pot list.
func ClonePots(pots []Pot) []Pot {
	out := make([]Pot, len(pots))
	for i, p := range pots {
		out[i] = p.clone()
	}
	return out
}

// ComputePots derives the main-pot/side-pot structure from contributions
// and the fold set. It is a pure function, called after every action so
// the external view is always current.
//
// Each distinct contribution level of a non-folded player opens a pot
// layer; the layer collects min(contribution, level) - previousLevel from
// every contributor (folded players pay into layers they reached but are
// never eligible). Chips a folded player committed above the highest
// live level are folded into the last pot so that the pot total always
// equals the contribution total.
func ComputePots(contributions map[PlayerID]int, folded map[PlayerID]bool) []Pot {
	live := make([]PlayerID, 0, len(contributions))
	for p := range contributions {
		if !folded[p] {
			live = append(live, p)
		}
	}
	sort.Slice(live, func(i, j int) bool { return live[i] < live[j] })

	levelSet := make(map[int]bool)
	for _, p := range live {
		if contributions[p] > 0 {
			levelSet[contributions[p]] = true
		}
	}
	levels := make([]int, 0, len(levelSet))
	for l := range levelSet {
		levels = append(levels, l)
	}
	sort.Ints(levels)

	if len(levels) == 0 {
		// No live bets yet; everything committed so far (dead chips from
		// folders included) sits in a single pot for the live players.
		total := 0
		for _, c := range contributions {
			total += c
		}
		return []Pot{{Amount: total, Eligible: live}}
	}

	pots := make([]Pot, 0, len(levels))
	prev := 0
	for _, level := range levels {
		pot := Pot{}
		for _, c := range contributions {
			share := min(c, level) - prev
			if share > 0 {
				pot.Amount += share
			}
		}
		for _, p := range live {
			if contributions[p] >= level {
				pot.Eligible = append(pot.Eligible, p)
			}
		}
		pots = append(pots, pot)
		prev = level
	}

	// Dead chips above the highest live level.
	excess := 0
	for _, c := range contributions {
		if c > prev {
			excess += c - prev
		}
	}
	pots[len(pots)-1].Amount += excess

	return pots
}

// PotTotal sums the amounts across a pot list.
func PotTotal(pots []Pot) int {
	total := 0
	for _, p := range pots {
		total += p.Amount
	}
	return total
}
