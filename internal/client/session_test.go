package client

import (
	"encoding/json"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Watch/internal/domain"
	"github.com/dkeye/Watch/internal/protocol"
)

func newDispatchFixture(player *fakePlayer) (*Session, *Engine, *fakeSender) {
	sender := &fakeSender{}
	e := NewEngine(player, sender, clockwork.NewFakeClock(), DefaultOptions())
	s := &Session{engine: e}
	return s, e, sender
}

func TestDispatchRoomJoinedEntersRoom(t *testing.T) {
	player := &fakePlayer{}
	s, e, _ := newDispatchFixture(player)

	var gotRoom domain.RoomID
	s.callbacks.OnRoomState = func(roomID domain.RoomID, _ json.RawMessage) { gotRoom = roomID }

	s.dispatch([]byte(`{"type":"room-joined","roomId":"abcd1234","room":{"id":"abcd1234","users":[]}}`))

	assert.Equal(t, domain.RoomID("abcd1234"), gotRoom)
	assert.Equal(t, Active, e.State())
}

func TestDispatchRoutesPlaybackToEngine(t *testing.T) {
	player := &fakePlayer{current: 100, state: StatePaused, videoID: "abc12345678"}
	s, e, _ := newDispatchFixture(player)
	e.EnterRoom("abcd1234")
	e.PlayerReady()

	s.dispatch([]byte(`{"type":"video-play","currentTime":110}`))
	require.Equal(t, []float64{110}, player.seeks)
	assert.Equal(t, 1, player.playCalls)
}

func TestDispatchRoutesSyncResponse(t *testing.T) {
	player := &fakePlayer{videoID: "abc12345678", state: StatePaused}
	s, e, _ := newDispatchFixture(player)
	e.EnterRoom("abcd1234")
	e.PlayerReady()

	s.dispatch([]byte(`{"type":"sync-response","videoId":"abc12345678","currentTime":42,"isPlaying":true}`))

	assert.Equal(t, []float64{42}, player.seeks)
	assert.Equal(t, 1, player.playCalls)
}

func TestDispatchSurfacesRoomError(t *testing.T) {
	s, _, _ := newDispatchFixture(&fakePlayer{})

	var got string
	s.callbacks.OnRoomError = func(msg string) { got = msg }

	s.dispatch([]byte(`{"type":"room-error","message":"Room not found"}`))
	assert.Equal(t, "Room not found", got)
}

func TestDispatchSurfacesChatAndPresence(t *testing.T) {
	s, _, _ := newDispatchFixture(&fakePlayer{})

	var chat protocol.ChatMessage
	var joined, left string
	var users []domain.User
	s.callbacks.OnChat = func(m protocol.ChatMessage) { chat = m }
	s.callbacks.OnUserJoined = func(name string, _ domain.UserID) { joined = name }
	s.callbacks.OnUserLeft = func(name string, _ domain.UserID) { left = name }
	s.callbacks.OnUsers = func(u []domain.User) { users = u }

	s.dispatch([]byte(`{"type":"chat-message","message":"hi","username":"alice","timestamp":"12:00:00","userId":"u1"}`))
	s.dispatch([]byte(`{"type":"user-joined","username":"bob","userId":"u2"}`))
	s.dispatch([]byte(`{"type":"user-left","username":"bob","userId":"u2"}`))
	s.dispatch([]byte(`{"type":"users-updated","users":[{"id":"u1","username":"alice"}]}`))

	assert.Equal(t, "hi", chat.Message)
	assert.Equal(t, "bob", joined)
	assert.Equal(t, "bob", left)
	require.Len(t, users, 1)
	assert.Equal(t, "alice", users[0].Username)
}

func TestDispatchIgnoresGarbage(t *testing.T) {
	player := &fakePlayer{}
	s, _, sender := newDispatchFixture(player)

	s.dispatch([]byte(`not json`))
	s.dispatch([]byte(`{"type":"mystery"}`))

	assert.Empty(t, sender.events)
	assert.Empty(t, player.seeks)
}
