package domain

import "math/rand"

const (
	// DeckSize is the number of distinct card identifiers (0..67).
	DeckSize = 68
	// HandSize is the number of cards dealt to each seat per round.
	HandSize = 10

	// CardJoker is the card whose power is re-rolled once per round.
	CardJoker = 0
	// CardDrManhattan reveals the rival's hand when played as the acting
	// seat's own card in a standard battle. Its power stays 67.
	CardDrManhattan = 67
)

// NewDeck returns the ordered deck of card identifiers 0..67.
func NewDeck() []int {
	deck := make([]int, DeckSize)
	for i := range deck {
		deck[i] = i
	}
	return deck
}

// ShuffleDeck permutes the deck in place with a Fisher-Yates pass.
func ShuffleDeck(deck []int, rng *rand.Rand) {
	rng.Shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })
}

// RollJokerPower returns the Joker's strength for a round, uniform in 1..68.
func RollJokerPower(rng *rand.Rand) int {
	return rng.Intn(DeckSize) + 1
}

// CardPower returns the effective strength of a card for the current round.
func CardPower(cardID, jokerPower int) int {
	if cardID == CardJoker {
		return jokerPower
	}
	return cardID
}
