package game

import "fmt"

// PlayerID is the stable identifier assigned to a client on connection.
// IDs start at 1 and are never recycled within a session.
type PlayerID int

// ActionType discriminates the betting actions. The numeric values are
// the wire codes.
type ActionType int

const (
	Fold ActionType = iota + 1
	Check
	Call
	Raise
	AllIn
)

// String returns the action name used in GameState broadcasts and hand logs.
func (a ActionType) String() string {
	switch a {
	case Fold:
		return "Fold"
	case Check:
		return "Check"
	case Call:
		return "Call"
	case Raise:
		return "Raise"
	case AllIn:
		return "AllIn"
	default:
		return fmt.Sprintf("ActionType(%d)", int(a))
	}
}

// ActionTypeFromCode converts a wire code into an ActionType.
func ActionTypeFromCode(code int) (ActionType, error) {
	if code < int(Fold) || code > int(AllIn) {
		return 0, fmt.Errorf("game: unknown action code %d", code)
	}
	return ActionType(code), nil
}

// Action is a tagged variant: the amount only carries meaning for Raise
// and AllIn and is the number of chips added on top of the player's
// current round contribution.
type Action struct {
	Type   ActionType
	Amount int
}

// String renders an action for logs ("Raise(50)", "Check").
func (a Action) String() string {
	switch a.Type {
	case Raise, AllIn:
		return fmt.Sprintf("%s(%d)", a.Type, a.Amount)
	default:
		return a.Type.String()
	}
}
