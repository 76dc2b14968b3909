package game

import "fmt"

// Round is one of the four betting phases of a hand.
type Round int

const (
	Preflop Round = iota
	Flop
	Turn
	River
)

// NumRounds is the number of betting rounds in a hand.
const NumRounds = 4

// String returns the round name used on the wire.
func (r Round) String() string {
	switch r {
	case Preflop:
		return "Preflop"
	case Flop:
		return "Flop"
	case Turn:
		return "Turn"
	case River:
		return "River"
	default:
		return fmt.Sprintf("Round(%d)", int(r))
	}
}
