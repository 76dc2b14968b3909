package deck

import (
	"fmt"
	rand "math/rand/v2"
)

// Deck is an ordered sequence of cards dealt without replacement.
// A fresh deck is created for every hand and discarded afterwards.
type Deck struct {
	cards []Card
}

// New creates a standard 52-card deck in canonical order
// (suits spades to clubs, ranks two to ace within each suit).
func New() *Deck {
	d := &Deck{cards: make([]Card, 0, 52)}
	for suit := Spades; suit <= Clubs; suit++ {
		for rank := Two; rank <= Ace; rank++ {
			d.cards = append(d.cards, NewCard(rank, suit))
		}
	}
	return d
}

// Stacked builds a deck with the given cards on top, in order, for
// deterministic tests. The rest of the 52-card set follows in canonical
// order.
func Stacked(top ...Card) *Deck {
	seen := make(map[Card]bool, len(top))
	for _, c := range top {
		seen[c] = true
	}
	d := &Deck{cards: append(make([]Card, 0, 52), top...)}
	for _, c := range New().cards {
		if !seen[c] {
			d.cards = append(d.cards, c)
		}
	}
	return d
}

// Shuffle permutes the deck in place using the provided random source.
func (d *Deck) Shuffle(rng *rand.Rand) {
	rng.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
}

// Deal removes and returns the next n cards.
func (d *Deck) Deal(n int) ([]Card, error) {
	if n < 0 {
		return nil, fmt.Errorf("deck: cannot deal %d cards", n)
	}
	if n > len(d.cards) {
		return nil, fmt.Errorf("deck: %d cards requested, %d remaining", n, len(d.cards))
	}
	dealt := make([]Card, n)
	copy(dealt, d.cards[:n])
	d.cards = d.cards[n:]
	return dealt, nil
}

// Remaining returns the number of cards left in the deck.
func (d *Deck) Remaining() int {
	return len(d.cards)
}
