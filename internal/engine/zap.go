package engine

import (
	"duotaire/internal/cards"
	"duotaire/internal/model"
)

// applyZapPenalty returns the top two cards of the zapped player's own
// discard pile to the top of their deck, in the order they were removed,
// so the most-recently-discarded card ends up on top of the deck. If fewer
// than two cards are present, as many as are available (0, 1, or 2) are
// returned; a ZAP is never rejected for an undersized discard.
func applyZapPenalty(player *model.Player) {
	var popped []cards.Card
	for i := 0; i < 2 && len(player.Discard) > 0; i++ {
		c := player.Discard[len(player.Discard)-1]
		player.Discard = player.Discard[:len(player.Discard)-1]
		popped = append(popped, c)
	}
	for i := len(popped) - 1; i >= 0; i-- {
		player.Deck = append(player.Deck, popped[i])
	}
}
