// Package evaluator defines the hand-strength capability the game engine
// depends on. The engine only needs a total order over 5-7 card hands;
// the default implementation delegates to chehsunliu/poker's lookup-table
// evaluator.
package evaluator

import (
	chehsunliu "github.com/chehsunliu/poker"

	"github.com/cardroom/dealerd/internal/deck"
)

// Evaluator totally orders poker hands. Rank returns a comparable score
// for a 5, 6 or 7 card combination; higher means stronger.
type Evaluator interface {
	Rank(cards []deck.Card) int
}

// TableEvaluator ranks hands with chehsunliu/poker's 7,462-class lookup
// tables.
type TableEvaluator struct{}

// New returns the default evaluator.
func New() TableEvaluator {
	return TableEvaluator{}
}

// Rank implements Evaluator. chehsunliu scores hands 1 (royal flush) to
// 7462 (worst high card), lower being stronger; the sign flip converts
// that to the higher-is-stronger order the engine expects.
func (TableEvaluator) Rank(cards []deck.Card) int {
	converted := make([]chehsunliu.Card, len(cards))
	for i, c := range cards {
		converted[i] = chehsunliu.NewCard(c.String())
	}
	return -int(chehsunliu.Evaluate(converted))
}
