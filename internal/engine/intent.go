package engine

import "duotaire/internal/model"

// IntentKind tags the variant of an Intent.
type IntentKind string

const (
	IntentDrawCard      IntentKind = "draw_card"
	IntentPlayCard      IntentKind = "play_card"
	IntentSequenceMove  IntentKind = "sequence_move"
	IntentZap           IntentKind = "zap"
	IntentRequestState  IntentKind = "request_state"
	IntentOnLeave       IntentKind = "on_leave"
	intentTurnTick      IntentKind = "turn_tick"
	intentZapExpiry     IntentKind = "zap_expiry"
)

// Intent is one item in a room's serialized intent queue. At most one of
// the payload fields is populated, selected by Kind; intents such as
// draw_card carry none. SessionID identifies
// the sender for client-originated intents; it is empty for timer-fired
// intents.
type Intent struct {
	Kind      IntentKind
	SessionID string

	PlayCard *model.PlayCardPayload
	Sequence *model.SequenceMovePayload

	zapGeneration uint64
}
