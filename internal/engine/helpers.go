package engine

import (
	"time"

	"github.com/google/uuid"

	"duotaire/internal/cards"
	"duotaire/internal/model"
)

func parseSession(sessionID string) (uuid.UUID, error) {
	return uuid.Parse(sessionID)
}

func (e *Engine) senderFor(sessionID string) *model.Player {
	return e.Room.PlayerBySession(sessionID)
}

// closeZapWindow closes any active ZAP window. Called unconditionally
// before applying any successful move: the window is closed by the act
// of applying any move, before the new move's broadcast.
func (e *Engine) closeZapWindow() {
	if !e.Room.ZapActive {
		return
	}
	e.Room.ZapActive = false
	e.timers.CancelZapWindow()
}

// resolveSource returns the card at the requested source without removing
// it, and whether the source was valid.
func (e *Engine) resolveSource(p *model.Player, from model.FromType, idx int) (cards.Card, bool) {
	switch from {
	case model.FromDrawn:
		if e.Room.DrawnCard == nil {
			return cards.Card{}, false
		}
		return *e.Room.DrawnCard, true
	case model.FromCenter:
		if idx < 0 || idx >= model.CenterCount {
			return cards.Card{}, false
		}
		top := e.Room.CenterPiles[idx].Top()
		if top == nil {
			return cards.Card{}, false
		}
		return *top, true
	default:
		return cards.Card{}, false
	}
}

func (e *Engine) removeSource(p *model.Player, from model.FromType, idx int) {
	switch from {
	case model.FromDrawn:
		e.Room.DrawnCard = nil
	case model.FromCenter:
		pile := &e.Room.CenterPiles[idx]
		pile.Cards = pile.Cards[:len(pile.Cards)-1]
	}
}

// validateDestination checks whether card may legally land at the
// requested destination and reports the move kind that results. from is
// the source the card was resolved from, needed because ToOwnDiscard is
// only ever legal straight from the drawn card.
func (e *Engine) validateDestination(r *model.Room, p *model.Player, card cards.Card, from model.FromType, to model.ToType, idx int) (model.MoveKind, bool) {
	switch to {
	case model.ToFoundation:
		if idx < 0 || idx >= model.FoundationCount {
			return "", false
		}
		f := &r.Foundations[idx]
		if !cards.CanPlaceOnFoundation(card, f.Suit, f.Top()) {
			return "", false
		}
		return model.MoveToFoundation, true
	case model.ToCenter:
		if idx < 0 || idx >= model.CenterCount {
			return "", false
		}
		pile := &r.CenterPiles[idx]
		if !cards.CanPlaceOnCenter(card, pile.Top()) {
			return "", false
		}
		return model.MoveToCenter, true
	case model.ToOpponentDiscard:
		opp := r.Players[r.OpponentOf(p.Index)]
		if opp == nil {
			return "", false
		}
		top := opp.DiscardTop()
		if top == nil || !cards.CanPlaceOnOpponentDiscard(card, *top) {
			return "", false
		}
		return model.MoveToOppDiscard, true
	case model.ToOwnDiscard:
		if from != model.FromDrawn {
			return "", false
		}
		return model.MoveToOwnDiscard, true
	default:
		return "", false
	}
}

func (e *Engine) applyDestination(r *model.Room, p *model.Player, card cards.Card, to model.ToType, idx int) {
	switch to {
	case model.ToFoundation:
		r.Foundations[idx].Cards = append(r.Foundations[idx].Cards, card)
	case model.ToCenter:
		r.CenterPiles[idx].Cards = append(r.CenterPiles[idx].Cards, card)
	case model.ToOpponentDiscard:
		opp := r.Players[r.OpponentOf(p.Index)]
		opp.PushDiscard(card)
	case model.ToOwnDiscard:
		p.PushDiscard(card)
		r.HasMovedThisTurn = false
		r.CurrentPlayer = r.OpponentOf(p.Index)
		r.TurnStartedAt = time.Now()
	}
}

func (e *Engine) checkWinAndBroadcast(mover model.SeatIndex, kind model.MoveKind) {
	r := e.Room
	if !e.verifyInvariants() {
		return
	}
	if r.CheckAllFoundationsComplete() {
		r.Phase = model.PhaseFinished
		r.Winner = int(mover)
		e.timers.StopAll()
		e.emitGameOver("All foundations complete")
		moveStr := string(kind)
		broadcastToRoom(r, e.broadcaster, "state_update", func(seat model.SeatIndex) interface{} {
			return model.StateUpdatePayload{State: BuildSnapshot(r, seat), LastMove: &moveStr}
		})
		broadcastToRoom(r, e.broadcaster, "game_over", func(seat model.SeatIndex) interface{} {
			return model.GameOverPayload{Winner: r.Winner, Reason: "All foundations complete"}
		})
		e.disposeIfTerminal()
		return
	}
	e.broadcastState(&kind)
}

func (e *Engine) broadcastState(kind *model.MoveKind) {
	var moveStr *string
	if kind != nil {
		s := string(*kind)
		moveStr = &s
	}
	broadcastToRoom(e.Room, e.broadcaster, "state_update", func(seat model.SeatIndex) interface{} {
		return model.StateUpdatePayload{State: BuildSnapshot(e.Room, seat), LastMove: moveStr}
	})
}

func (e *Engine) sendSnapshot(sessionID string) {
	p := e.senderFor(sessionID)
	var seat model.SeatIndex
	if p != nil {
		seat = p.Index
	}
	e.broadcaster.SendTo(sessionID, model.OutEnvelope{
		Type:    "state_update",
		Payload: model.StateUpdatePayload{State: BuildSnapshot(e.Room, seat)},
	})
}

func (e *Engine) sendError(sessionID, message string) {
	e.broadcaster.SendTo(sessionID, model.OutEnvelope{
		Type:    "error",
		Payload: model.ErrorPayload{Message: message},
	})
}

func (e *Engine) emitGameOver(reason string) {
	if e.onGameOver == nil {
		return
	}
	r := e.Room
	host, guest := r.Players[model.SeatHost], r.Players[model.SeatGuest]
	result := model.GameResult{
		RoomCode:     r.Code,
		Winner:       r.Winner,
		Reason:       reason,
		Duration:     time.Since(r.CreatedAt),
		FinalVersion: r.StateVersion,
		FinishedAt:   time.Now(),
	}
	if host != nil {
		result.HostName = host.Name
	}
	if guest != nil {
		result.GuestName = guest.Name
	}
	go e.onGameOver(result)
}

func (e *Engine) disposeIfTerminal() {
	if e.onDispose == nil {
		return
	}
	e.onDispose(e.Room)
}
