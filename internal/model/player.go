package model

import (
	"time"

	"github.com/google/uuid"

	"duotaire/internal/cards"
)

// SeatIndex is a player's fixed seat within a room: 0 is the host.
type SeatIndex int

const (
	SeatHost  SeatIndex = 0
	SeatGuest SeatIndex = 1
)

// Player is one seat's record. Deck and Discard are ordered with the top
// card last. A room has at most one drawn card at a time, held on Room
// itself rather than per-player, since only the current player can ever
// hold one.
type Player struct {
	Index     SeatIndex     `json:"index"`
	SessionID uuid.UUID     `json:"-"`
	Name      string        `json:"name"`
	Connected bool          `json:"connected"`
	Timer     time.Duration `json:"-"`
	Deck      []cards.Card  `json:"-"`
	Discard   []cards.Card  `json:"-"`
}

// DeckTop returns the top card of the player's deck, or nil if empty.
func (p *Player) DeckTop() *cards.Card {
	if len(p.Deck) == 0 {
		return nil
	}
	c := p.Deck[len(p.Deck)-1]
	return &c
}

// DiscardTop returns the top card of the player's discard pile, or nil if
// empty.
func (p *Player) DiscardTop() *cards.Card {
	if len(p.Discard) == 0 {
		return nil
	}
	c := p.Discard[len(p.Discard)-1]
	return &c
}

// PopDeck removes and returns the top card of the deck. Caller must check
// the deck is non-empty first.
func (p *Player) PopDeck() cards.Card {
	c := p.Deck[len(p.Deck)-1]
	p.Deck = p.Deck[:len(p.Deck)-1]
	return c
}

// PushDiscard appends a card to the top of the discard pile.
func (p *Player) PushDiscard(c cards.Card) {
	p.Discard = append(p.Discard, c)
}
