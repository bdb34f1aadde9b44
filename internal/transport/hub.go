package transport

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"duotaire/internal/engine"
	"duotaire/internal/model"
)

// criticalTypes are never dropped to make room for newer frames: the
// initial snapshot a client needs to render anything, and the terminal
// message that tells it the game is over. A critical send waits for outbox
// space for at most critSendTimeout; if none frees up in that time the
// frame is dropped and a warning is logged.
var criticalTypes = map[string]bool{
	"room_created": true,
	"room_joined":  true,
	"game_started": true,
	"game_over":    true,
}

// outboxCapacity bounds how many non-critical frames a slow client may
// have queued before the oldest is dropped in favor of the newest.
const outboxCapacity = 32

// critSendTimeout bounds how long a critical send may block a room's
// engine goroutine (indirectly, via Hub.SendTo) before giving up.
const critSendTimeout = 2 * time.Second

// client is one live websocket connection, identified by its
// engine-facing session ID.
//
// lastSnapshot is read and written only when enqueue handles a
// state_update envelope, and state_update envelopes for a session are sent
// only by its room's single engine goroutine, so it needs no lock of its
// own.
type client struct {
	sessionID    string
	conn         wsConn
	out          chan model.OutEnvelope
	log          *zap.Logger
	lastSnapshot *model.Snapshot
}

// wsConn is the slice of *websocket.Conn that the hub depends on, so
// tests can substitute a fake.
type wsConn interface {
	WriteJSON(v interface{}) error
	ReadJSON(v interface{}) error
	Close() error
}

func newClient(sessionID string, conn wsConn, log *zap.Logger) *client {
	return &client{
		sessionID: sessionID,
		conn:      conn,
		out:       make(chan model.OutEnvelope, outboxCapacity),
		log:       log,
	}
}

// asDelta rewrites a state_update envelope into a state_delta against the
// last state_update this client was sent, once there is one to diff
// against; the first state_update for a session always ships in full so
// a reconnecting client has something to diff future deltas against.
// Critical envelopes (game_started and friends) are never touched here.
func (c *client) asDelta(env model.OutEnvelope) model.OutEnvelope {
	payload, ok := env.Payload.(model.StateUpdatePayload)
	if env.Type != "state_update" || !ok {
		return env
	}
	curr := payload.State
	prev := c.lastSnapshot
	c.lastSnapshot = &curr
	if prev == nil {
		return env
	}
	return model.OutEnvelope{
		Type:    "state_delta",
		Payload: model.StateDeltaPayload{Delta: engine.BuildDelta(*prev, curr), LastMove: payload.LastMove},
	}
}

func (c *client) enqueue(env model.OutEnvelope) {
	env = c.asDelta(env)
	if criticalTypes[env.Type] {
		select {
		case c.out <- env:
		case <-time.After(critSendTimeout):
			if c.log != nil {
				c.log.Warn("dropped critical frame after timeout",
					zap.String("sessionID", c.sessionID), zap.String("type", env.Type))
			}
		}
		return
	}

	select {
	case c.out <- env:
		return
	default:
	}
	// outbox is full: drop the oldest queued frame to make room for this
	// one, so clients see the freshest state rather than stale history.
	select {
	case <-c.out:
	default:
	}
	select {
	case c.out <- env:
	default:
	}
}

func (c *client) writePump() {
	for env := range c.out {
		if err := c.conn.WriteJSON(env); err != nil {
			return
		}
	}
}

// Hub tracks every live connection by session ID and is the single
// implementation of engine.Broadcaster for the whole process: every
// room's engine sends through the same Hub, keyed by session rather than
// by room.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client
	log     *zap.Logger
}

// NewHub builds an empty hub.
func NewHub(log *zap.Logger) *Hub {
	return &Hub{clients: make(map[string]*client), log: log}
}

// Register adds conn under sessionID and starts its write pump. Returns
// the registered client so the read loop can drive it.
func (h *Hub) Register(sessionID string, conn wsConn) *client {
	c := newClient(sessionID, conn, h.log)
	h.mu.Lock()
	h.clients[sessionID] = c
	h.mu.Unlock()
	go c.writePump()
	return c
}

// Unregister removes sessionID and stops its write pump.
func (h *Hub) Unregister(sessionID string) {
	h.mu.Lock()
	c, ok := h.clients[sessionID]
	if ok {
		delete(h.clients, sessionID)
	}
	h.mu.Unlock()
	if ok {
		close(c.out)
	}
}

// IsAlive reports whether sessionID currently has a registered
// connection. Used by the matchmaking queue to skip waiters who
// disconnected before being paired.
func (h *Hub) IsAlive(sessionID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[sessionID]
	return ok
}

// SendTo implements engine.Broadcaster. Unknown session IDs are silently
// ignored: the player has already disconnected and the engine's own
// onLeave handling is the authority on the resulting game state.
func (h *Hub) SendTo(sessionID string, env model.OutEnvelope) {
	h.mu.RLock()
	c, ok := h.clients[sessionID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	c.enqueue(env)
}
