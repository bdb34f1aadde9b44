package engine

import (
	"go.uber.org/zap"

	"duotaire/internal/cards"
	"duotaire/internal/model"
)

// verifyInvariants re-checks the two runtime invariants a client can never
// be trusted to preserve on its own: that the room's cards are still
// exactly the canonical 52-card set, and that every foundation is still a
// gapless run from its own Ace. It is a no-op outside the playing phase,
// since neither invariant is meaningful before the deal or after the room
// is already finished.
func (e *Engine) verifyInvariants() bool {
	r := e.Room
	if r.Phase != model.PhasePlaying {
		return true
	}
	if !cardsConserved(r) {
		e.haltOnInvariantViolation("card multiset mismatch")
		return false
	}
	if !foundationsWellFormed(r) {
		e.haltOnInvariantViolation("foundation sequence broken")
		return false
	}
	return true
}

// cardsConserved reports whether every card in the room — drawn, in either
// deck or discard, on a center pile, or on a foundation — accounts for
// exactly one card of the canonical 52-card deck, with none missing or
// duplicated.
func cardsConserved(r *model.Room) bool {
	remaining := make(map[cards.Card]int, 52)
	for _, c := range cards.NewDeck() {
		remaining[c]++
	}
	consume := func(c cards.Card) bool {
		if remaining[c] <= 0 {
			return false
		}
		remaining[c]--
		return true
	}

	if r.DrawnCard != nil && !consume(*r.DrawnCard) {
		return false
	}
	for _, seat := range []model.SeatIndex{model.SeatHost, model.SeatGuest} {
		p := r.Players[seat]
		if p == nil {
			return false
		}
		for _, c := range p.Deck {
			if !consume(c) {
				return false
			}
		}
		for _, c := range p.Discard {
			if !consume(c) {
				return false
			}
		}
	}
	for i := range r.CenterPiles {
		for _, c := range r.CenterPiles[i].Cards {
			if !consume(c) {
				return false
			}
		}
	}
	for i := range r.Foundations {
		for _, c := range r.Foundations[i].Cards {
			if !consume(c) {
				return false
			}
		}
	}
	for _, n := range remaining {
		if n != 0 {
			return false
		}
	}
	return true
}

// foundationsWellFormed reports whether every foundation is a gapless
// same-suit run starting at Ace, with no rank skipped or repeated.
func foundationsWellFormed(r *model.Room) bool {
	for i := range r.Foundations {
		f := &r.Foundations[i]
		for j, c := range f.Cards {
			if c.Suit != f.Suit || c.Rank != cards.Rank(j+1) {
				return false
			}
		}
	}
	return true
}

// haltOnInvariantViolation is the fatal-error path: unlike a rejected move,
// which is silently ignored beyond an error reply, an invariant violation
// means the room's state can no longer be trusted at all, so the room is
// torn down rather than left running.
func (e *Engine) haltOnInvariantViolation(reason string) {
	r := e.Room
	r.Phase = model.PhaseFinished
	e.timers.StopAll()
	if e.log != nil {
		e.log.Error("room invariant violated, halting",
			zap.String("roomCode", r.Code), zap.String("reason", reason))
	}
	broadcastToRoom(r, e.broadcaster, "error", func(model.SeatIndex) interface{} {
		return model.ErrorPayload{Message: "internal error: room state corrupted, game aborted"}
	})
	e.disposeIfTerminal()
}
