package engine

import "duotaire/internal/model"

// Broadcaster is the connection adapter's half of the contract: the
// engine never touches a socket directly, it only asks the broadcaster to
// deliver an envelope to one session. Whether that envelope carries a full
// snapshot or a delta, and how back-pressure is handled, is entirely the
// broadcaster's (transport) policy.
type Broadcaster interface {
	SendTo(sessionID string, env model.OutEnvelope)
}

// broadcastToRoom delivers env(seat) to every connected player, letting the
// caller build a viewer-specific payload per seat.
func broadcastToRoom(r *model.Room, b Broadcaster, msgType string, build func(seat model.SeatIndex) interface{}) {
	for _, seat := range []model.SeatIndex{model.SeatHost, model.SeatGuest} {
		p := r.Players[seat]
		if p == nil || !p.Connected {
			continue
		}
		b.SendTo(p.SessionID.String(), model.OutEnvelope{Type: msgType, Payload: build(seat)})
	}
}
