// Package engine implements the room engine: the per-room
// single-consumer intent loop that validates and applies every game
// action against a room's authoritative state, together with the timer
// service that schedules the turn clock and the ZAP grace window.
package engine

import (
	"math/rand"
	"time"

	"go.uber.org/zap"

	"duotaire/internal/cards"
	"duotaire/internal/model"
)

// OnDisposeFunc is called once, from inside the engine goroutine, when the
// room has reached a terminal state and should be removed from the
// registry.
type OnDisposeFunc func(room *model.Room)

// Engine owns one room's entire lifecycle: it is the single worker that
// drains intents in the order they arrive and is the only goroutine that
// ever mutates Room.
type Engine struct {
	Room *model.Room

	broadcaster Broadcaster
	timers      *TimerService
	rng         *rand.Rand
	log         *zap.Logger

	onGameOver func(model.GameResult)
	onDispose  OnDisposeFunc

	intents chan Intent
	stop    chan struct{}
}

// New constructs an Engine for a freshly allocated room. rngSource drives
// the deck shuffle; pass rand.NewSource(time.Now().UnixNano()) in
// production and a fixed seed in tests for reproducible deals.
func New(room *model.Room, broadcaster Broadcaster, rngSource rand.Source, log *zap.Logger) *Engine {
	e := &Engine{
		Room:        room,
		broadcaster: broadcaster,
		rng:         rand.New(rngSource),
		log:         log,
		intents:     make(chan Intent, 256),
		stop:        make(chan struct{}),
	}
	e.timers = NewTimerService(e.Submit)
	return e
}

// OnGameOver registers a callback invoked (in a separate goroutine, best
// effort) whenever the room transitions to finished.
func (e *Engine) OnGameOver(fn func(model.GameResult)) { e.onGameOver = fn }

// OnDispose registers a callback invoked once the room should be removed
// from the registry.
func (e *Engine) OnDispose(fn OnDisposeFunc) { e.onDispose = fn }

// Submit enqueues an intent for processing. Safe to call from any
// goroutine, including timer callbacks and the connection adapter.
func (e *Engine) Submit(i Intent) {
	select {
	case e.intents <- i:
	case <-e.stop:
	}
}

// Run drains the intent queue until Stop is called. It must run in its own
// goroutine; it is the only goroutine that ever touches Room or timers.
func (e *Engine) Run() {
	for {
		select {
		case in := <-e.intents:
			e.dispatch(in)
		case <-e.stop:
			e.timers.StopAll()
			return
		}
	}
}

// Stop halts the engine's goroutine and cancels its timers.
func (e *Engine) Stop() {
	close(e.stop)
}

func (e *Engine) dispatch(in Intent) {
	switch in.Kind {
	case IntentDrawCard:
		e.handleDrawCard(in.SessionID)
	case IntentPlayCard:
		e.handlePlayCard(in.SessionID, in.PlayCard)
	case IntentSequenceMove:
		e.handleSequenceMove(in.SessionID, in.Sequence)
	case IntentZap:
		e.handleZap(in.SessionID)
	case IntentRequestState:
		e.handleRequestState(in.SessionID)
	case IntentOnLeave:
		e.handleOnLeave(in.SessionID)
	case intentTurnTick:
		e.handleTurnTick()
	case intentZapExpiry:
		e.handleZapExpiry(in.zapGeneration)
	}
}

// --- lifecycle helpers shared by registry/matchmaking wiring ---

// Seat assigns name to the first open seat (host, then guest), starting
// the turn clock only once both seats are filled and the deal completes.
func (e *Engine) Seat(sessionID, name string) (model.SeatIndex, bool) {
	r := e.Room
	var idx model.SeatIndex = -1
	if _, ok := r.Players[model.SeatHost]; !ok {
		idx = model.SeatHost
	} else if _, ok := r.Players[model.SeatGuest]; !ok {
		idx = model.SeatGuest
	} else {
		return 0, false
	}

	sid, err := parseSession(sessionID)
	if err != nil {
		return 0, false
	}
	r.Players[idx] = &model.Player{
		Index:     idx,
		SessionID: sid,
		Name:      name,
		Connected: true,
	}
	if len(r.Players) == 2 {
		e.deal()
	}
	return idx, true
}

func (e *Engine) deal() {
	r := e.Room
	deck := cards.NewDeck()
	cards.Shuffle(deck, e.rng)

	host := r.Players[model.SeatHost]
	guest := r.Players[model.SeatGuest]
	host.Deck = append([]cards.Card(nil), deck[:21]...)
	guest.Deck = append([]cards.Card(nil), deck[21:42]...)

	idx := 42
	for i := 0; i < model.CenterCount; i++ {
		r.CenterPiles[i].Cards = append([]cards.Card(nil), deck[idx:idx+2]...)
		idx += 2
	}

	r.Phase = model.PhasePlaying
	r.CurrentPlayer = model.SeatHost
	r.TurnStartedAt = time.Now()
	r.BumpVersion()
	e.timers.StartTurnClock()
}

// --- intent handlers ---

func (e *Engine) handleDrawCard(sessionID string) {
	r := e.Room
	p := e.senderFor(sessionID)
	if r.Phase != model.PhasePlaying || p == nil || p.Index != r.CurrentPlayer || r.DrawnCard != nil {
		e.sendSnapshot(sessionID)
		return
	}

	if len(p.Deck) == 0 {
		newDeck, remaining, ok := recycleDeck(p.Discard)
		if !ok {
			e.sendError(sessionID, "no cards")
			return
		}
		p.Deck = newDeck
		p.Discard = remaining
	}
	if len(p.Deck) == 0 {
		e.sendError(sessionID, "no cards")
		return
	}

	c := p.Deck[len(p.Deck)-1]
	p.Deck = p.Deck[:len(p.Deck)-1]
	r.DrawnCard = &c
	e.closeZapWindow()
	r.BumpVersion()

	if !e.verifyInvariants() {
		return
	}

	e.broadcaster.SendTo(sessionID, model.OutEnvelope{
		Type:    "card_drawn",
		Payload: model.CardDrawnPayload{Card: &c, DeckSize: len(p.Deck)},
	})
	opp := r.Players[r.OpponentOfCurrent()]
	if opp != nil && opp.Connected {
		e.broadcaster.SendTo(opp.SessionID.String(), model.OutEnvelope{
			Type:    "opponent_drew",
			Payload: model.OpponentDrewPayload{PlayerIndex: p.Index, DeckSize: len(p.Deck)},
		})
	}
}

func (e *Engine) handlePlayCard(sessionID string, payload *model.PlayCardPayload) {
	r := e.Room
	p := e.senderFor(sessionID)
	if r.Phase != model.PhasePlaying || p == nil || p.Index != r.CurrentPlayer || payload == nil {
		e.sendSnapshot(sessionID)
		return
	}

	card, ok := e.resolveSource(p, payload.FromType, payload.FromIndex)
	if !ok {
		e.sendSnapshot(sessionID)
		return
	}

	kind, ok := e.validateDestination(r, p, card, payload.FromType, payload.ToType, payload.ToIndex)
	if !ok {
		e.sendSnapshot(sessionID)
		return
	}

	e.removeSource(p, payload.FromType, payload.FromIndex)
	e.closeZapWindow()
	e.applyDestination(r, p, card, payload.ToType, payload.ToIndex)

	r.LastMoveCard = &card
	r.LastMoveKind = kind
	if kind == model.MoveToFoundation {
		r.ZapActive = true
		r.ZapDeadline = time.Now().Add(model.ZapWindow)
		e.timers.ArmZapWindow(model.ZapWindow)
	}
	r.BumpVersion()

	e.checkWinAndBroadcast(p.Index, kind)
}

func (e *Engine) handleSequenceMove(sessionID string, payload *model.SequenceMovePayload) {
	r := e.Room
	p := e.senderFor(sessionID)
	if r.Phase != model.PhasePlaying || p == nil || p.Index != r.CurrentPlayer || payload == nil {
		e.sendSnapshot(sessionID)
		return
	}
	if payload.FromCenter == payload.ToCenter ||
		payload.FromCenter < 0 || payload.FromCenter >= model.CenterCount ||
		payload.ToCenter < 0 || payload.ToCenter >= model.CenterCount {
		e.sendSnapshot(sessionID)
		return
	}

	from := &r.CenterPiles[payload.FromCenter]
	if payload.FromCardIndex < 0 || payload.FromCardIndex >= len(from.Cards) {
		e.sendSnapshot(sessionID)
		return
	}
	run := from.Cards[payload.FromCardIndex:]
	if !cards.IsDescendingAlternatingRun(run) {
		e.sendSnapshot(sessionID)
		return
	}

	to := &r.CenterPiles[payload.ToCenter]
	bottom := run[0]
	if !cards.CanPlaceOnCenter(bottom, to.Top()) {
		e.sendSnapshot(sessionID)
		return
	}

	moved := append([]cards.Card(nil), run...)
	from.Cards = from.Cards[:payload.FromCardIndex]
	to.Cards = append(to.Cards, moved...)

	e.closeZapWindow()
	r.LastMoveCard = &moved[len(moved)-1]
	r.LastMoveKind = model.MoveSequence
	r.BumpVersion()

	e.checkWinAndBroadcast(p.Index, model.MoveSequence)
}

func (e *Engine) handleZap(sessionID string) {
	r := e.Room
	p := e.senderFor(sessionID)
	if !r.ZapActive || p == nil || p.Index == r.CurrentPlayer {
		return
	}
	target := r.Players[r.CurrentPlayer]
	e.closeZapWindow()
	if target != nil {
		applyZapPenalty(target)
	}
	r.LastMoveKind = model.MoveZap
	r.BumpVersion()
	if !e.verifyInvariants() {
		return
	}
	e.broadcastState(nil)
}

func (e *Engine) handleRequestState(sessionID string) {
	e.sendSnapshot(sessionID)
}

func (e *Engine) handleOnLeave(sessionID string) {
	r := e.Room
	p := e.senderFor(sessionID)
	if p == nil {
		return
	}
	p.Connected = false

	if r.Phase == model.PhasePlaying {
		r.Phase = model.PhaseFinished
		r.Winner = int(r.OpponentOf(p.Index))
		r.BumpVersion()
		e.timers.StopAll()
		e.emitGameOver("Opponent disconnected")
		broadcastToRoom(r, e.broadcaster, "game_over", func(seat model.SeatIndex) interface{} {
			return model.GameOverPayload{Winner: r.Winner, Reason: "Opponent disconnected"}
		})
		e.disposeIfTerminal()
		return
	}

	broadcastToRoom(r, e.broadcaster, "player_left", func(seat model.SeatIndex) interface{} {
		return model.PlayerLeftPayload{PlayerID: p.SessionID.String()}
	})
	if r.Phase == model.PhaseWaiting && p.Index == model.SeatHost {
		e.disposeIfTerminal()
	}
}

func (e *Engine) handleTurnTick() {
	r := e.Room
	if r.Phase != model.PhasePlaying {
		return
	}
	p := r.Players[r.CurrentPlayer]
	if p != nil {
		p.Timer += time.Second
	}
}

func (e *Engine) handleZapExpiry(gen uint64) {
	if !e.timers.IsCurrentZapGeneration(gen) {
		return
	}
	if !e.Room.ZapActive {
		return
	}
	e.Room.ZapActive = false
	e.Room.BumpVersion()
	e.broadcastState(nil)
}
