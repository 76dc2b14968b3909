package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputePotsSingleLevel(t *testing.T) {
	pots := ComputePots(
		map[PlayerID]int{1: 50, 2: 50, 3: 50},
		map[PlayerID]bool{},
	)
	require.Len(t, pots, 1)
	assert.Equal(t, 150, pots[0].Amount)
	assert.Equal(t, []PlayerID{1, 2, 3}, pots[0].Eligible)
}

func TestComputePotsSimpleSidePot(t *testing.T) {
	// Short all-in at 50, two callers at 100.
	pots := ComputePots(
		map[PlayerID]int{1: 50, 2: 100, 3: 100},
		map[PlayerID]bool{},
	)
	require.Len(t, pots, 2)
	assert.Equal(t, 150, pots[0].Amount)
	assert.Equal(t, []PlayerID{1, 2, 3}, pots[0].Eligible)
	assert.Equal(t, 100, pots[1].Amount)
	assert.Equal(t, []PlayerID{2, 3}, pots[1].Eligible)
}

func TestComputePotsMultiLevel(t *testing.T) {
	pots := ComputePots(
		map[PlayerID]int{1: 30, 2: 60, 3: 90, 4: 90},
		map[PlayerID]bool{},
	)
	require.Len(t, pots, 3)
	assert.Equal(t, 120, pots[0].Amount)
	assert.Equal(t, []PlayerID{1, 2, 3, 4}, pots[0].Eligible)
	assert.Equal(t, 90, pots[1].Amount)
	assert.Equal(t, []PlayerID{2, 3, 4}, pots[1].Eligible)
	assert.Equal(t, 60, pots[2].Amount)
	assert.Equal(t, []PlayerID{3, 4}, pots[2].Eligible)
}

func TestComputePotsFoldedChipsStayInPot(t *testing.T) {
	// Player 1 folded after committing 40; the chips stay in the pot but
	// player 1 is not eligible for anything.
	pots := ComputePots(
		map[PlayerID]int{1: 40, 2: 100, 3: 100},
		map[PlayerID]bool{1: true},
	)
	assert.Equal(t, 240, PotTotal(pots))
	for _, pot := range pots {
		assert.NotContains(t, pot.Eligible, PlayerID(1))
	}
}

func TestComputePotsFolderAboveTopLiveLevel(t *testing.T) {
	// The folder committed more than any live player; the excess is dead
	// money in the last pot rather than a layer nobody can win.
	pots := ComputePots(
		map[PlayerID]int{1: 120, 2: 100, 3: 100},
		map[PlayerID]bool{1: true},
	)
	assert.Equal(t, 320, PotTotal(pots))
	last := pots[len(pots)-1]
	assert.Equal(t, []PlayerID{2, 3}, last.Eligible)
}

func TestComputePotsNoContributions(t *testing.T) {
	pots := ComputePots(
		map[PlayerID]int{1: 0, 2: 0},
		map[PlayerID]bool{},
	)
	require.Len(t, pots, 1)
	assert.Equal(t, 0, pots[0].Amount)
	assert.Equal(t, []PlayerID{1, 2}, pots[0].Eligible)
}

// Conservation and eligibility are pure functions of contributions and
// the fold set, so we can sweep a grid of tables.
func TestComputePotsProperties(t *testing.T) {
	cases := []struct {
		name          string
		contributions map[PlayerID]int
		folded        map[PlayerID]bool
	}{
		{"equal", map[PlayerID]int{1: 10, 2: 10, 3: 10}, nil},
		{"two levels", map[PlayerID]int{1: 5, 2: 25, 3: 25}, nil},
		{"three levels", map[PlayerID]int{1: 1, 2: 2, 3: 3}, nil},
		{"fold low", map[PlayerID]int{1: 5, 2: 25, 3: 25}, map[PlayerID]bool{1: true}},
		{"fold high", map[PlayerID]int{1: 50, 2: 25, 3: 25}, map[PlayerID]bool{1: true}},
		{"one bettor", map[PlayerID]int{1: 10, 2: 0, 3: 0}, nil},
		{"all zero", map[PlayerID]int{1: 0, 2: 0, 3: 0}, nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			folded := tc.folded
			if folded == nil {
				folded = map[PlayerID]bool{}
			}
			pots := ComputePots(tc.contributions, folded)

			total := 0
			for _, c := range tc.contributions {
				total += c
			}
			assert.Equal(t, total, PotTotal(pots), "conservation")

			prev := 0
			for i, pot := range pots {
				threshold := potThreshold(tc.contributions, folded, i)
				for p, c := range tc.contributions {
					eligible := false
					for _, e := range pot.Eligible {
						if e == p {
							eligible = true
						}
					}
					wantEligible := !folded[p] && c >= threshold
					assert.Equal(t, wantEligible, eligible,
						"pot %d threshold %d player %d", i, threshold, p)
				}
				assert.GreaterOrEqual(t, threshold, prev)
				prev = threshold
			}
		})
	}
}

// potThreshold recovers the contribution level that opened pot i: the
// i-th smallest distinct positive live contribution (0 when no live
// player has bet).
func potThreshold(contributions map[PlayerID]int, folded map[PlayerID]bool, i int) int {
	seen := map[int]bool{}
	var levels []int
	for p, c := range contributions {
		if c > 0 && !folded[p] && !seen[c] {
			seen[c] = true
			levels = append(levels, c)
		}
	}
	if len(levels) == 0 {
		return 0
	}
	for a := range levels {
		for b := a + 1; b < len(levels); b++ {
			if levels[b] < levels[a] {
				levels[a], levels[b] = levels[b], levels[a]
			}
		}
	}
	return levels[i]
}
