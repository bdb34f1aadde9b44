// Package transport implements the connection adapter: it upgrades
// HTTP connections to websockets, translates inbound frames into engine
// intents, and is the sole implementation of engine.Broadcaster for the
// whole process. internal/engine never imports this package; it only
// depends on the Broadcaster interface.
package transport

import (
	"encoding/json"
	"math/rand"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"duotaire/internal/engine"
	"duotaire/internal/matchmaking"
	"duotaire/internal/model"
	"duotaire/internal/registry"
	"duotaire/internal/statslog"
)

var upgrader = websocket.Upgrader{
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// Server owns the process-wide connection hub plus its collaborators:
// the room registry, the matchmaking queue, and the history ledger. It is
// the concrete thing behind every /ws connection.
type Server struct {
	Hub      *Hub
	Registry *registry.Registry
	Queue    *matchmaking.Queue
	History  *statslog.Store
	log      *zap.Logger
}

// NewServer wires a Server from its already-constructed collaborators.
func NewServer(hub *Hub, reg *registry.Registry, queue *matchmaking.Queue, history *statslog.Store, log *zap.Logger) *Server {
	return &Server{Hub: hub, Registry: reg, Queue: queue, History: history, log: log}
}

func (s *Server) buildEngine(code string) *engine.Engine {
	room := model.NewRoom(code)
	e := engine.New(room, s.Hub, rand.NewSource(time.Now().UnixNano()), s.log)
	if s.History != nil {
		e.OnGameOver(func(res model.GameResult) {
			if err := s.History.RecordResult(res); err != nil && s.log != nil {
				s.log.Warn("failed to record game result", zap.Error(err), zap.String("roomCode", res.RoomCode))
			}
		})
	}
	return e
}

// HandleWS upgrades the request and runs the connection's read loop until
// the socket closes.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	sessionID := uuid.NewString()
	sess := s.Hub.Register(sessionID, conn)

	var bound *registry.Entry

	defer func() {
		if bound != nil {
			bound.Engine.Submit(engine.Intent{Kind: engine.IntentOnLeave, SessionID: sessionID})
		}
		s.Queue.Cancel(sessionID)
		s.Hub.Unregister(sessionID)
		conn.Close()
	}()

	for {
		var env model.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			break
		}

		switch model.InboundType(env.Type) {
		case model.InCreateRoom:
			bound = s.handleCreateRoom(sessionID, sess)

		case model.InJoinRoom:
			var payload model.JoinRoomPayload
			_ = json.Unmarshal(env.Payload, &payload)
			bound = s.handleJoinRoom(sessionID, sess, payload)

		case model.InFindMatch:
			var payload model.FindMatchPayload
			_ = json.Unmarshal(env.Payload, &payload)
			bound = s.handleFindMatch(sessionID, sess, payload)

		case model.InCancelMatchmaking:
			s.Queue.Cancel(sessionID)

		case model.InLeaveRoom:
			if bound != nil {
				bound.Engine.Submit(engine.Intent{Kind: engine.IntentOnLeave, SessionID: sessionID})
				bound = nil
			}

		case model.InDrawCard:
			s.submitBound(bound, sess, sessionID, engine.Intent{Kind: engine.IntentDrawCard, SessionID: sessionID})

		case model.InPlayCard:
			var payload model.PlayCardPayload
			_ = json.Unmarshal(env.Payload, &payload)
			s.submitBound(bound, sess, sessionID, engine.Intent{Kind: engine.IntentPlayCard, SessionID: sessionID, PlayCard: &payload})

		case model.InSequenceMove:
			var payload model.SequenceMovePayload
			_ = json.Unmarshal(env.Payload, &payload)
			s.submitBound(bound, sess, sessionID, engine.Intent{Kind: engine.IntentSequenceMove, SessionID: sessionID, Sequence: &payload})

		case model.InZap:
			s.submitBound(bound, sess, sessionID, engine.Intent{Kind: engine.IntentZap, SessionID: sessionID})

		case model.InRequestState:
			s.submitBound(bound, sess, sessionID, engine.Intent{Kind: engine.IntentRequestState, SessionID: sessionID})

		default:
			sess.enqueue(model.OutEnvelope{Type: "error", Payload: model.ErrorPayload{Message: "unknown message type"}})
		}
	}
}

func (s *Server) submitBound(bound *registry.Entry, c *client, sessionID string, i engine.Intent) {
	if bound == nil {
		c.enqueue(model.OutEnvelope{Type: "error", Payload: model.ErrorPayload{Message: "not in a room"}})
		return
	}
	bound.Engine.Submit(i)
}

func (s *Server) handleCreateRoom(sessionID string, c *client) *registry.Entry {
	entry, err := s.Registry.Create(s.buildEngine)
	if err != nil {
		c.enqueue(model.OutEnvelope{Type: "error", Payload: model.ErrorPayload{Message: "could not create room"}})
		return nil
	}
	entry.Engine.Seat(sessionID, "Host")
	c.enqueue(model.OutEnvelope{
		Type:    "room_created",
		Payload: model.RoomCreatedPayload{RoomCode: entry.Room.Code, PlayerID: sessionID},
	})
	return entry
}

func (s *Server) handleJoinRoom(sessionID string, c *client, payload model.JoinRoomPayload) *registry.Entry {
	entry, ok := s.Registry.Lookup(payload.RoomCode)
	if !ok {
		c.enqueue(model.OutEnvelope{Type: "error", Payload: model.ErrorPayload{Message: "room not found"}})
		return nil
	}
	if entry.Room.Phase != model.PhaseWaiting {
		c.enqueue(model.OutEnvelope{Type: "error", Payload: model.ErrorPayload{Message: "room is not accepting new players"}})
		return nil
	}

	_, ok = entry.Engine.Seat(sessionID, "Guest")
	if !ok {
		c.enqueue(model.OutEnvelope{Type: "error", Payload: model.ErrorPayload{Message: "room is full"}})
		return nil
	}

	c.enqueue(model.OutEnvelope{
		Type:    "room_joined",
		Payload: model.RoomJoinedPayload{RoomCode: entry.Room.Code, PlayerID: sessionID},
	})
	s.Hub.SendTo(hostSessionID(entry), model.OutEnvelope{
		Type:    "player_joined",
		Payload: model.PlayerJoinedPayload{PlayerID: sessionID},
	})
	if entry.Room.Phase == model.PhasePlaying {
		s.broadcastGameStarted(entry)
	}
	return entry
}

func (s *Server) handleFindMatch(sessionID string, c *client, payload model.FindMatchPayload) *registry.Entry {
	opponent, matched := s.Queue.Enqueue(sessionID, payload.PlayerName)
	if !matched {
		c.enqueue(model.OutEnvelope{
			Type:    "matchmaking_waiting",
			Payload: model.MatchmakingWaitingPayload{QueuePosition: s.Queue.Len()},
		})
		return nil
	}

	entry, err := s.Registry.Create(s.buildEngine)
	if err != nil {
		c.enqueue(model.OutEnvelope{Type: "error", Payload: model.ErrorPayload{Message: "could not create room"}})
		return nil
	}
	entry.Engine.Seat(opponent.SessionID, opponent.Name)
	entry.Engine.Seat(sessionID, payload.PlayerName)

	s.Hub.SendTo(opponent.SessionID, model.OutEnvelope{
		Type:    "room_joined",
		Payload: model.RoomJoinedPayload{RoomCode: entry.Room.Code, PlayerID: opponent.SessionID},
	})
	c.enqueue(model.OutEnvelope{
		Type:    "room_joined",
		Payload: model.RoomJoinedPayload{RoomCode: entry.Room.Code, PlayerID: sessionID},
	})
	s.broadcastGameStarted(entry)
	return entry
}

func (s *Server) broadcastGameStarted(entry *registry.Entry) {
	for _, seat := range []model.SeatIndex{model.SeatHost, model.SeatGuest} {
		p := entry.Room.Players[seat]
		if p == nil {
			continue
		}
		s.Hub.SendTo(p.SessionID.String(), model.OutEnvelope{
			Type:    "game_started",
			Payload: model.GameStartedPayload{State: engine.BuildSnapshot(entry.Room, seat)},
		})
	}
}

func hostSessionID(entry *registry.Entry) string {
	if p := entry.Room.Players[model.SeatHost]; p != nil {
		return p.SessionID.String()
	}
	return ""
}
