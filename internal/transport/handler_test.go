package transport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"duotaire/internal/matchmaking"
	"duotaire/internal/model"
	"duotaire/internal/registry"
)

func newTestServer() *Server {
	hub := NewHub(nil)
	reg := registry.New(nil)
	queue := matchmaking.New(hub.IsAlive, nil)
	return NewServer(hub, reg, queue, nil, nil)
}

// awaitWritten polls fc.written until it holds at least n envelopes or the
// deadline passes, since the hub's write pump drains asynchronously.
func awaitWritten(t *testing.T, fc *fakeConn, n int) []model.OutEnvelope {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		fc.mu.Lock()
		got := len(fc.written)
		fc.mu.Unlock()
		if got >= n {
			break
		}
		time.Sleep(time.Millisecond)
	}
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return append([]model.OutEnvelope(nil), fc.written...)
}

func TestHandleCreateRoomSeatsHostAndRepliesRoomCreated(t *testing.T) {
	s := newTestServer()
	fc := &fakeConn{}
	c := s.Hub.Register("11111111-1111-1111-1111-111111111111", fc)

	entry := s.handleCreateRoom("11111111-1111-1111-1111-111111111111", c)
	require.NotNil(t, entry)
	assert.Equal(t, model.PhaseWaiting, entry.Room.Phase)
	require.NotNil(t, entry.Room.Players[model.SeatHost])

	msgs := awaitWritten(t, fc, 1)
	require.Len(t, msgs, 1)
	assert.Equal(t, "room_created", msgs[0].Type)
}

func TestHandleJoinRoomSeatsGuestAndStartsGame(t *testing.T) {
	s := newTestServer()
	hostConn := &fakeConn{}
	hostClient := s.Hub.Register("11111111-1111-1111-1111-111111111111", hostConn)
	entry := s.handleCreateRoom("11111111-1111-1111-1111-111111111111", hostClient)
	require.NotNil(t, entry)
	awaitWritten(t, hostConn, 1)

	guestConn := &fakeConn{}
	guestClient := s.Hub.Register("22222222-2222-2222-2222-222222222222", guestConn)
	joined := s.handleJoinRoom("22222222-2222-2222-2222-222222222222", guestClient, model.JoinRoomPayload{RoomCode: entry.Room.Code})
	require.NotNil(t, joined)
	assert.Equal(t, model.PhasePlaying, entry.Room.Phase)

	guestMsgs := awaitWritten(t, guestConn, 1)
	assert.Equal(t, "room_joined", guestMsgs[0].Type)

	hostMsgs := awaitWritten(t, hostConn, 3)
	var sawPlayerJoined, sawGameStarted bool
	for _, m := range hostMsgs {
		switch m.Type {
		case "player_joined":
			sawPlayerJoined = true
		case "game_started":
			sawGameStarted = true
		}
	}
	assert.True(t, sawPlayerJoined)
	assert.True(t, sawGameStarted)
}

func TestHandleJoinRoomRejectsUnknownCode(t *testing.T) {
	s := newTestServer()
	fc := &fakeConn{}
	c := s.Hub.Register("33333333-3333-3333-3333-333333333333", fc)

	entry := s.handleJoinRoom("33333333-3333-3333-3333-333333333333", c, model.JoinRoomPayload{RoomCode: "ZZZZZZ"})
	assert.Nil(t, entry)

	msgs := awaitWritten(t, fc, 1)
	require.Len(t, msgs, 1)
	assert.Equal(t, "error", msgs[0].Type)
}

func TestHandleFindMatchPairsTwoWaiters(t *testing.T) {
	s := newTestServer()
	aConn := &fakeConn{}
	aClient := s.Hub.Register("44444444-4444-4444-4444-444444444444", aConn)
	waiting := s.handleFindMatch("44444444-4444-4444-4444-444444444444", aClient, model.FindMatchPayload{PlayerName: "Alice"})
	assert.Nil(t, waiting)
	aMsgs := awaitWritten(t, aConn, 1)
	assert.Equal(t, "matchmaking_waiting", aMsgs[0].Type)

	bConn := &fakeConn{}
	bClient := s.Hub.Register("55555555-5555-5555-5555-555555555555", bConn)
	entry := s.handleFindMatch("55555555-5555-5555-5555-555555555555", bClient, model.FindMatchPayload{PlayerName: "Bob"})
	require.NotNil(t, entry)
	assert.Equal(t, model.PhasePlaying, entry.Room.Phase)

	aFinal := awaitWritten(t, aConn, 2)
	bFinal := awaitWritten(t, bConn, 1)
	assert.Equal(t, "room_joined", aFinal[1].Type)
	assert.Equal(t, "room_joined", bFinal[0].Type)
}
