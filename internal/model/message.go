package model

import (
	"encoding/json"

	"duotaire/internal/cards"
)

// InboundType enumerates the `type` field of every inbound frame.
type InboundType string

const (
	InCreateRoom         InboundType = "create_room"
	InJoinRoom           InboundType = "join_room"
	InLeaveRoom          InboundType = "leave_room"
	InFindMatch          InboundType = "find_match"
	InCancelMatchmaking  InboundType = "cancel_matchmaking"
	InDrawCard           InboundType = "draw_card"
	InPlayCard           InboundType = "play_card"
	InSequenceMove       InboundType = "sequence_move"
	InZap                InboundType = "zap"
	InRequestState       InboundType = "request_state"
)

// Envelope is the self-contained JSON object every frame is decoded from or
// encoded into: a tagged `type` plus an opaque payload.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// OutEnvelope mirrors Envelope for outbound frames, where Payload is a
// concrete Go value rather than raw bytes.
type OutEnvelope struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// --- inbound payloads ---

type CreateRoomPayload struct {
	GameMode string `json:"game_mode,omitempty"`
}

type JoinRoomPayload struct {
	RoomCode string `json:"room_code"`
}

type FindMatchPayload struct {
	PlayerName string `json:"playerName,omitempty"`
}

// FromType/ToType enumerate play_card's source and destination kinds.
type FromType string
type ToType string

const (
	FromDrawn  FromType = "drawn"
	FromCenter FromType = "center"

	ToFoundation      ToType = "foundation"
	ToCenter          ToType = "center"
	ToOpponentDiscard ToType = "opponentDiscard"
	ToOwnDiscard      ToType = "ownDiscard"
)

type PlayCardPayload struct {
	FromType  FromType `json:"fromType"`
	FromIndex int      `json:"fromIndex"`
	ToType    ToType   `json:"toType"`
	ToIndex   int      `json:"toIndex"`
}

type SequenceMovePayload struct {
	FromCenter    int `json:"fromCenter"`
	FromCardIndex int `json:"fromCardIndex"`
	ToCenter      int `json:"toCenter"`
}

// --- outbound payloads ---

type RoomCreatedPayload struct {
	RoomCode string `json:"room_code"`
	PlayerID string `json:"player_id"`
}

type RoomJoinedPayload struct {
	RoomCode string `json:"room_code"`
	PlayerID string `json:"player_id"`
}

type PlayerJoinedPayload struct {
	PlayerID string `json:"player_id"`
}

type PlayerLeftPayload struct {
	PlayerID string `json:"player_id"`
}

type MatchmakingWaitingPayload struct {
	QueuePosition int `json:"queue_position"`
}

type GameStartedPayload struct {
	State Snapshot `json:"state"`
}

type StateUpdatePayload struct {
	State    Snapshot `json:"state"`
	LastMove *string  `json:"lastMove,omitempty"`
}

type CardDrawnPayload struct {
	Card     *cards.Card `json:"card"`
	DeckSize int         `json:"deckSize"`
}

type OpponentDrewPayload struct {
	PlayerIndex SeatIndex `json:"playerIndex"`
	DeckSize    int       `json:"deckSize"`
}

type GameOverPayload struct {
	Winner int    `json:"winner"`
	Reason string `json:"reason"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
