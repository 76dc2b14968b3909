package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundStateCheckAround(t *testing.T) {
	rs := NewRoundState([]PlayerID{1, 2, 3})

	for _, p := range []PlayerID{1, 2, 3} {
		assert.True(t, rs.NeedsAction(p))
		_, err := rs.Apply(p, Action{Type: Check})
		require.NoError(t, err)
	}

	assert.True(t, rs.IsComplete())
	assert.Equal(t, 0, rs.PotTotal())
	assert.Equal(t, PlayerID(0), rs.Aggressor())
}

func TestRoundStateCheckAfterRaiseRejected(t *testing.T) {
	rs := NewRoundState([]PlayerID{1, 2})

	_, err := rs.Apply(1, Action{Type: Raise, Amount: 20})
	require.NoError(t, err)

	_, err = rs.Apply(2, Action{Type: Check})
	assert.ErrorIs(t, err, ErrCheckAfterAggression)
}

func TestRoundStateCallWithNothingOwedRejected(t *testing.T) {
	rs := NewRoundState([]PlayerID{1, 2})

	_, err := rs.Apply(1, Action{Type: Call})
	assert.ErrorIs(t, err, ErrNothingToCall)
}

func TestRoundStateCallCommitsTheDifference(t *testing.T) {
	rs := NewRoundState([]PlayerID{1, 2})

	_, err := rs.Apply(1, Action{Type: Raise, Amount: 30})
	require.NoError(t, err)

	committed, err := rs.Apply(2, Action{Type: Call})
	require.NoError(t, err)
	assert.Equal(t, 30, committed)
	assert.Equal(t, 30, rs.Contribution(2))
	assert.True(t, rs.IsComplete())
}

func TestRoundStateCallAfterPartialRaise(t *testing.T) {
	rs := NewRoundState([]PlayerID{1, 2})

	_, err := rs.Apply(1, Action{Type: Raise, Amount: 10})
	require.NoError(t, err)
	_, err = rs.Apply(2, Action{Type: Raise, Amount: 25})
	require.NoError(t, err)

	// Player 1 already has 10 in, so calling up to 25 costs 15.
	committed, err := rs.Apply(1, Action{Type: Call})
	require.NoError(t, err)
	assert.Equal(t, 15, committed)
	assert.Equal(t, 25, rs.Contribution(1))
}

func TestRoundStateRaiseMustExceedHighBet(t *testing.T) {
	rs := NewRoundState([]PlayerID{1, 2})

	_, err := rs.Apply(1, Action{Type: Raise, Amount: 50})
	require.NoError(t, err)

	_, err = rs.Apply(2, Action{Type: Raise, Amount: 50})
	assert.ErrorIs(t, err, ErrRaiseTooSmall)

	// The failed raise must not have changed anything.
	assert.Equal(t, 0, rs.Contribution(2))
	assert.True(t, rs.NeedsAction(2))
}

func TestRoundStateRaiseReopensAction(t *testing.T) {
	rs := NewRoundState([]PlayerID{1, 2, 3})

	_, err := rs.Apply(1, Action{Type: Check})
	require.NoError(t, err)
	_, err = rs.Apply(2, Action{Type: Raise, Amount: 40})
	require.NoError(t, err)

	// Player 1 already acted but owes a response to the raise now.
	assert.True(t, rs.NeedsAction(1))
	assert.True(t, rs.NeedsAction(3))
	assert.False(t, rs.NeedsAction(2))
	assert.Equal(t, PlayerID(2), rs.Aggressor())

	_, ok := rs.LastAction(1)
	assert.False(t, ok, "check must be cleared by the reopen")
}

func TestRoundStateFoldedPlayerNotReopened(t *testing.T) {
	rs := NewRoundState([]PlayerID{1, 2, 3})

	_, err := rs.Apply(1, Action{Type: Fold})
	require.NoError(t, err)
	_, err = rs.Apply(2, Action{Type: Raise, Amount: 40})
	require.NoError(t, err)

	assert.False(t, rs.NeedsAction(1))
	assert.True(t, rs.NeedsAction(3))
	assert.True(t, rs.IsFolded(1))
}

func TestRoundStateAllInBelowHighBetDoesNotReopen(t *testing.T) {
	rs := NewRoundState([]PlayerID{1, 2, 3})

	_, err := rs.Apply(1, Action{Type: Raise, Amount: 100})
	require.NoError(t, err)
	_, err = rs.Apply(2, Action{Type: AllIn, Amount: 60})
	require.NoError(t, err)

	// A short all-in is a call for less, not new aggression.
	assert.Equal(t, PlayerID(1), rs.Aggressor())
	assert.Equal(t, 100, rs.HighBet())
	assert.False(t, rs.NeedsAction(1))
	assert.True(t, rs.NeedsAction(3))
	assert.True(t, rs.IsAllIn(2))
}

func TestRoundStateRaisingAllInReopens(t *testing.T) {
	rs := NewRoundState([]PlayerID{1, 2, 3})

	_, err := rs.Apply(1, Action{Type: Raise, Amount: 50})
	require.NoError(t, err)
	_, err = rs.Apply(2, Action{Type: AllIn, Amount: 120})
	require.NoError(t, err)

	assert.Equal(t, PlayerID(2), rs.Aggressor())
	assert.Equal(t, 120, rs.HighBet())
	assert.True(t, rs.NeedsAction(1))
	assert.True(t, rs.NeedsAction(3))
	// The all-in player is settled regardless of later raises.
	assert.False(t, rs.NeedsAction(2))
}

func TestRoundStateRejectsOutOfTurnAndResolved(t *testing.T) {
	rs := NewRoundState([]PlayerID{1, 2})

	_, err := rs.Apply(1, Action{Type: Check})
	require.NoError(t, err)

	_, err = rs.Apply(1, Action{Type: Check})
	assert.ErrorIs(t, err, ErrNotToAct)

	_, err = rs.Apply(9, Action{Type: Check})
	assert.ErrorIs(t, err, ErrNotToAct)
}

func TestRoundStateRejectsNegativeAmount(t *testing.T) {
	rs := NewRoundState([]PlayerID{1, 2})

	_, err := rs.Apply(1, Action{Type: Raise, Amount: -5})
	assert.ErrorIs(t, err, ErrNegativeAmount)
}

func TestRoundStatePotsTrackActions(t *testing.T) {
	rs := NewRoundState([]PlayerID{1, 2, 3})

	_, err := rs.Apply(1, Action{Type: AllIn, Amount: 50})
	require.NoError(t, err)
	_, err = rs.Apply(2, Action{Type: Raise, Amount: 100})
	require.NoError(t, err)
	_, err = rs.Apply(3, Action{Type: Call})
	require.NoError(t, err)

	pots := rs.SidePots()
	require.Len(t, pots, 2)
	assert.Equal(t, 150, pots[0].Amount)
	assert.Equal(t, []PlayerID{1, 2, 3}, pots[0].Eligible)
	assert.Equal(t, 100, pots[1].Amount)
	assert.Equal(t, []PlayerID{2, 3}, pots[1].Eligible)
	assert.Equal(t, 250, rs.PotTotal())
	assert.True(t, rs.IsComplete())
}

func TestRoundStateCurrentActorsSorted(t *testing.T) {
	rs := NewRoundState([]PlayerID{3, 1, 2})
	assert.Equal(t, []PlayerID{1, 2, 3}, rs.CurrentActors())
}
