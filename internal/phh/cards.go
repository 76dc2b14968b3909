package phh

import "strings"

var rankNames = map[string]string{
	"a": "A", "k": "K", "q": "Q", "j": "J", "10": "T", "t": "T",
	"9": "9", "8": "8", "7": "7", "6": "6", "5": "5", "4": "4",
	"3": "3", "2": "2",
}

// NormalizeCard converts a card tag like "10h" or "AH" to the PHH
// notation "Th" / "Ah". Unknown ranks keep their first rune upper-cased.
func NormalizeCard(card string) string {
	card = strings.TrimSpace(card)
	if card == "" {
		return ""
	}
	lowered := strings.ToLower(card)
	if lowered == "??" || len(lowered) < 2 {
		return strings.ToUpper(lowered)
	}

	suit := lowered[len(lowered)-1:]
	rank, ok := rankNames[lowered[:len(lowered)-1]]
	if !ok {
		rank = strings.ToUpper(lowered[:1])
	}
	return rank + suit
}

// NormalizeCards normalizes a slice of card tags.
func NormalizeCards(cards []string) []string {
	if len(cards) == 0 {
		return nil
	}
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = NormalizeCard(c)
	}
	return out
}
