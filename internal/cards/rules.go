package cards

import "math/rand"

// NewDeck builds the canonical 52-card deck by iterating suits x ranks in
// fixed order.
func NewDeck() []Card {
	deck := make([]Card, 0, 52)
	for _, s := range suitOrder {
		for r := Ace; r <= King; r++ {
			deck = append(deck, Card{Suit: s, Rank: r})
		}
	}
	return deck
}

// Shuffle performs an in-place Fisher-Yates shuffle driven by src, so a
// deal can be reproduced exactly by reusing the same source/seed.
func Shuffle(deck []Card, src rand.Source) {
	r := rand.New(src)
	for i := len(deck) - 1; i > 0; i-- {
		j := r.Intn(i + 1)
		deck[i], deck[j] = deck[j], deck[i]
	}
}

// CanPlaceOnCenter reports whether c may be placed on a center pile whose
// current top card is top. A nil top means the pile is empty and any card
// may start it.
func CanPlaceOnCenter(c Card, top *Card) bool {
	if top == nil {
		return true
	}
	return c.Value() == top.Value()-1 && c.Color() != top.Color()
}

// CanPlaceOnFoundation reports whether c may be placed on a foundation of
// the given suit whose current top card is top (nil if the foundation is
// still empty).
func CanPlaceOnFoundation(c Card, foundationSuit Suit, top *Card) bool {
	if c.Suit != foundationSuit {
		return false
	}
	if top == nil {
		return c.Rank == Ace
	}
	return c.Value() == top.Value()+1
}

// CanPlaceOnOpponentDiscard reports whether c may be placed on the
// opponent's discard pile whose current top card is top. The opponent's
// discard must be non-empty for this move to be considered at all; callers
// are expected to have already checked that top != nil.
func CanPlaceOnOpponentDiscard(c Card, top Card) bool {
	sameRankDiffSuit := c.Rank == top.Rank && c.Suit != top.Suit
	sameSuitAdjacent := c.Suit == top.Suit && abs(c.Value()-top.Value()) == 1
	return sameRankDiffSuit || sameSuitAdjacent
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// IsDescendingAlternatingRun reports whether run, ordered from the pile's
// bottom-most element of the run to its top, is a valid sequence that may
// be migrated between center piles: strictly descending by rank and
// strictly alternating by color.
func IsDescendingAlternatingRun(run []Card) bool {
	if len(run) < 2 {
		return len(run) == 1
	}
	for i := 1; i < len(run); i++ {
		prev, cur := run[i-1], run[i]
		if cur.Value() != prev.Value()-1 || cur.Color() == prev.Color() {
			return false
		}
	}
	return true
}
