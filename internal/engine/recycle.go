package engine

import "duotaire/internal/cards"

// recycleDeck implements the deck recycle policy: when a draw is requested
// and the active deck is empty, the discard (if it holds at least 2 cards)
// is recycled into a fresh deck, bottom-up.
//
// Every discard card except the current top is reversed back into the
// deck, so the card that has sat at the bottom of the discard longest
// becomes the new top of the deck (the next card drawn). This is a pure
// function of the discard slice, so replaying the same sequence of intents
// always recycles identically.
//
// Returns ok=false if the discard has fewer than 2 cards, in which case
// the caller must fail the draw with "no cards".
func recycleDeck(discard []cards.Card) (newDeck, remainingDiscard []cards.Card, ok bool) {
	if len(discard) < 2 {
		return nil, discard, false
	}
	top := discard[len(discard)-1]
	toRecycle := discard[:len(discard)-1]

	newDeck = make([]cards.Card, len(toRecycle))
	for i, c := range toRecycle {
		newDeck[len(toRecycle)-1-i] = c
	}
	return newDeck, []cards.Card{top}, true
}
