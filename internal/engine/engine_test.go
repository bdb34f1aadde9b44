package engine

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"duotaire/internal/cards"
	"duotaire/internal/model"
)

type fakeBroadcaster struct {
	mu  sync.Mutex
	log map[string][]model.OutEnvelope
}

func newFakeBroadcaster() *fakeBroadcaster {
	return &fakeBroadcaster{log: make(map[string][]model.OutEnvelope)}
}

func (f *fakeBroadcaster) SendTo(sessionID string, env model.OutEnvelope) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log[sessionID] = append(f.log[sessionID], env)
}

func (f *fakeBroadcaster) last(sessionID string) (model.OutEnvelope, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msgs := f.log[sessionID]
	if len(msgs) == 0 {
		return model.OutEnvelope{}, false
	}
	return msgs[len(msgs)-1], true
}

func (f *fakeBroadcaster) count(sessionID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.log[sessionID])
}

func newSeatedEngine(t *testing.T, seed int64) (*Engine, string, string) {
	t.Helper()
	room := model.NewRoom("ABC123")
	bc := newFakeBroadcaster()
	e := New(room, bc, rand.NewSource(seed), nil)

	hostIdx, ok := e.Seat("11111111-1111-1111-1111-111111111111", "Alice")
	require.True(t, ok)
	require.Equal(t, model.SeatHost, hostIdx)

	guestIdx, ok := e.Seat("22222222-2222-2222-2222-222222222222", "Bob")
	require.True(t, ok)
	require.Equal(t, model.SeatGuest, guestIdx)

	return e, "11111111-1111-1111-1111-111111111111", "22222222-2222-2222-2222-222222222222"
}

func TestSeatingBothPlayersDealsTheGame(t *testing.T) {
	e, _, _ := newSeatedEngine(t, 1)
	r := e.Room

	assert.Equal(t, model.PhasePlaying, r.Phase)
	assert.Equal(t, model.SeatHost, r.CurrentPlayer)
	assert.Len(t, r.Players[model.SeatHost].Deck, 21)
	assert.Len(t, r.Players[model.SeatGuest].Deck, 21)
	for i := range r.CenterPiles {
		assert.Len(t, r.CenterPiles[i].Cards, 2)
	}
	assert.EqualValues(t, 1, r.StateVersion)
}

func TestDrawCardMovesTopOfDeckIntoDrawnSlot(t *testing.T) {
	e, host, _ := newSeatedEngine(t, 2)
	r := e.Room
	before := len(r.Players[model.SeatHost].Deck)

	e.dispatch(Intent{Kind: IntentDrawCard, SessionID: host})

	require.NotNil(t, r.DrawnCard)
	assert.Len(t, r.Players[model.SeatHost].Deck, before-1)
}

func TestDrawCardOnlyCurrentPlayerMayAct(t *testing.T) {
	e, _, guest := newSeatedEngine(t, 3)
	r := e.Room
	versionBefore := r.StateVersion

	e.dispatch(Intent{Kind: IntentDrawCard, SessionID: guest})

	assert.Nil(t, r.DrawnCard, "non-current player's draw must be ignored")
	assert.Equal(t, versionBefore, r.StateVersion)
}

func TestFoundationPlayOpensZapWindow(t *testing.T) {
	e, host, _ := newSeatedEngine(t, 4)
	r := e.Room

	aceIdx := r.FoundationIndex(cards.Spades)
	r.DrawnCard = &cards.Card{Suit: cards.Spades, Rank: cards.Ace}

	e.dispatch(Intent{
		Kind:      IntentPlayCard,
		SessionID: host,
		PlayCard: &model.PlayCardPayload{
			FromType: model.FromDrawn,
			ToType:   model.ToFoundation,
			ToIndex:  aceIdx,
		},
	})

	require.Len(t, r.Foundations[aceIdx].Cards, 1)
	assert.Equal(t, cards.Ace, r.Foundations[aceIdx].Cards[0].Rank)
	assert.True(t, r.ZapActive)
	assert.Equal(t, model.MoveToFoundation, r.LastMoveKind)
}

func TestZapByOpponentAppliesPenaltyAndClosesWindow(t *testing.T) {
	e, host, guest := newSeatedEngine(t, 5)
	r := e.Room

	hostPlayer := r.Players[model.SeatHost]
	hostPlayer.Discard = []cards.Card{
		{Suit: cards.Hearts, Rank: cards.Three},
		{Suit: cards.Hearts, Rank: cards.Four},
	}
	deckBefore := len(hostPlayer.Deck)

	r.ZapActive = true
	r.CurrentPlayer = model.SeatHost
	_ = host

	e.dispatch(Intent{Kind: IntentZap, SessionID: guest})

	assert.False(t, r.ZapActive)
	assert.Empty(t, hostPlayer.Discard)
	assert.Len(t, hostPlayer.Deck, deckBefore+2)
	assert.Equal(t, cards.Four, hostPlayer.Deck[len(hostPlayer.Deck)-1].Rank, "most recently discarded card ends on top")
}

func TestZapByCurrentPlayerIsIgnored(t *testing.T) {
	e, host, _ := newSeatedEngine(t, 6)
	r := e.Room
	r.ZapActive = true
	r.CurrentPlayer = model.SeatHost

	e.dispatch(Intent{Kind: IntentZap, SessionID: host})

	assert.True(t, r.ZapActive, "the player being challenged cannot zap themselves")
}

func TestIllegalCenterMoveIsRejectedWithoutMutation(t *testing.T) {
	e, host, _ := newSeatedEngine(t, 7)
	r := e.Room

	r.CenterPiles[0].Cards = []cards.Card{{Suit: cards.Hearts, Rank: cards.Seven}}
	r.DrawnCard = &cards.Card{Suit: cards.Diamonds, Rank: cards.Six}
	versionBefore := r.StateVersion

	e.dispatch(Intent{
		Kind:      IntentPlayCard,
		SessionID: host,
		PlayCard: &model.PlayCardPayload{
			FromType: model.FromDrawn,
			ToType:   model.ToCenter,
			ToIndex:  0,
		},
	})

	assert.Len(t, r.CenterPiles[0].Cards, 1, "same color card must not be accepted")
	assert.Equal(t, versionBefore, r.StateVersion)
	assert.NotNil(t, r.DrawnCard, "rejected move must not consume the drawn card")
}

func TestOwnDiscardEndsTurn(t *testing.T) {
	e, host, _ := newSeatedEngine(t, 8)
	r := e.Room

	r.DrawnCard = &cards.Card{Suit: cards.Clubs, Rank: cards.King}

	e.dispatch(Intent{
		Kind:      IntentPlayCard,
		SessionID: host,
		PlayCard: &model.PlayCardPayload{
			FromType: model.FromDrawn,
			ToType:   model.ToOwnDiscard,
		},
	})

	assert.Equal(t, model.SeatGuest, r.CurrentPlayer, "playing to own discard must end the turn")
	assert.False(t, r.HasMovedThisTurn)
	require.Len(t, r.Players[model.SeatHost].Discard, 1)
	assert.Equal(t, cards.King, r.Players[model.SeatHost].Discard[0].Rank)
}

func TestOwnDiscardRejectsCenterSource(t *testing.T) {
	e, host, _ := newSeatedEngine(t, 11)
	r := e.Room

	r.CenterPiles[0].Cards = []cards.Card{{Suit: cards.Clubs, Rank: cards.King}}
	versionBefore := r.StateVersion

	e.dispatch(Intent{
		Kind:      IntentPlayCard,
		SessionID: host,
		PlayCard: &model.PlayCardPayload{
			FromType:  model.FromCenter,
			FromIndex: 0,
			ToType:    model.ToOwnDiscard,
		},
	})

	assert.Equal(t, model.SeatHost, r.CurrentPlayer, "a center card must never end the turn via own-discard")
	assert.Equal(t, versionBefore, r.StateVersion)
	require.Len(t, r.CenterPiles[0].Cards, 1, "rejected move must not consume the center card")
	assert.Empty(t, r.Players[model.SeatHost].Discard)
}

func TestOpponentDisconnectDuringPlayEndsGameForRemainingPlayer(t *testing.T) {
	e, host, _ := newSeatedEngine(t, 9)
	r := e.Room

	e.dispatch(Intent{Kind: IntentOnLeave, SessionID: host})

	assert.Equal(t, model.PhaseFinished, r.Phase)
	assert.Equal(t, int(model.SeatGuest), r.Winner)
	assert.False(t, r.Players[model.SeatHost].Connected)
}

func TestSequenceMoveMigratesDescendingAlternatingRun(t *testing.T) {
	e, host, _ := newSeatedEngine(t, 10)
	r := e.Room

	r.CenterPiles[0].Cards = []cards.Card{
		{Suit: cards.Clubs, Rank: cards.Nine},
		{Suit: cards.Hearts, Rank: cards.Eight},
		{Suit: cards.Spades, Rank: cards.Seven},
	}
	r.CenterPiles[1].Cards = []cards.Card{{Suit: cards.Spades, Rank: cards.Nine}}

	e.dispatch(Intent{
		Kind:      IntentSequenceMove,
		SessionID: host,
		Sequence: &model.SequenceMovePayload{
			FromCenter:    0,
			FromCardIndex: 1,
			ToCenter:      1,
		},
	})

	assert.Len(t, r.CenterPiles[0].Cards, 1)
	assert.Len(t, r.CenterPiles[1].Cards, 3)
	assert.Equal(t, model.MoveSequence, r.LastMoveKind)
}

func TestInvariantViolationHaltsRoomAndNotifiesBothSeats(t *testing.T) {
	e, host, guest := newSeatedEngine(t, 12)
	r := e.Room
	bc := e.broadcaster.(*fakeBroadcaster)
	disposed := false
	e.OnDispose(func(*model.Room) { disposed = true })

	// Duplicate a card still live in host's own deck into guest's discard,
	// breaking card conservation without touching the move being dispatched.
	dup := r.Players[model.SeatHost].Deck[0]
	r.Players[model.SeatGuest].Discard = append(r.Players[model.SeatGuest].Discard, dup)

	e.dispatch(Intent{Kind: IntentDrawCard, SessionID: host})

	assert.Equal(t, model.PhaseFinished, r.Phase)
	assert.True(t, disposed)

	hostMsg, ok := bc.last(host)
	require.True(t, ok)
	assert.Equal(t, "error", hostMsg.Type)

	guestMsg, ok := bc.last(guest)
	require.True(t, ok)
	assert.Equal(t, "error", guestMsg.Type)
}

func TestFoundationGapViolationHaltsRoom(t *testing.T) {
	e, _, guest := newSeatedEngine(t, 13)
	r := e.Room

	// Skip straight to a Three, leaving the foundation's Ace/Two gapped. The
	// Three is taken from wherever the deal put it, so card conservation
	// still holds and only the foundation check can fail.
	three := cards.Card{Suit: r.Foundations[0].Suit, Rank: cards.Three}
	without := func(pile []cards.Card) []cards.Card {
		var out []cards.Card
		for _, c := range pile {
			if c != three {
				out = append(out, c)
			}
		}
		return out
	}
	for _, p := range r.Players {
		p.Deck = without(p.Deck)
	}
	for i := range r.CenterPiles {
		r.CenterPiles[i].Cards = without(r.CenterPiles[i].Cards)
	}
	r.Foundations[0].Cards = []cards.Card{three}
	r.ZapActive = true
	r.ZapDeadline = time.Now().Add(model.ZapWindow)

	e.dispatch(Intent{Kind: IntentZap, SessionID: guest})
	assert.Equal(t, model.PhaseFinished, r.Phase)
}
