package signal

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Watch/internal/app"
	"github.com/dkeye/Watch/internal/core"
	"github.com/dkeye/Watch/internal/domain"
	"github.com/dkeye/Watch/internal/protocol"
)

type captureConn struct {
	frames []core.Frame
}

func (c *captureConn) TrySend(f core.Frame) error {
	c.frames = append(c.frames, f)
	return nil
}

func (c *captureConn) Close() {}

func (c *captureConn) typesSent() []string {
	out := make([]string, 0, len(c.frames))
	for _, f := range c.frames {
		var env protocol.Envelope
		_ = json.Unmarshal(f, &env)
		out = append(out, env.Type)
	}
	return out
}

func (c *captureConn) last(t *testing.T, v any) {
	t.Helper()
	require.NotEmpty(t, c.frames)
	require.NoError(t, json.Unmarshal(c.frames[len(c.frames)-1], v))
}

func newTestController() (*Controller, *clockwork.FakeClock) {
	clock := clockwork.NewFakeClock()
	return &Controller{
		Registry:    core.NewRegistry(clock),
		Sessions:    app.NewSessions(),
		Clock:       clock,
		RoomMaxAge:  24 * time.Hour,
		ChatLimiter: NewChatRateLimiter(20, 10*time.Second, clock),
	}, clock
}

func connect(ctl *Controller, sid core.SessionID) *captureConn {
	conn := &captureConn{}
	ctl.Sessions.Bind(sid, conn, nil)
	return conn
}

func createRoomWith(t *testing.T, ctl *Controller, sid core.SessionID, conn *captureConn, username, videoID string) domain.RoomID {
	t.Helper()
	ctl.handleEvent(sid, conn, []byte(fmt.Sprintf(
		`{"type":"create-room","username":%q,"videoId":%q}`, username, videoID)))

	// the requester gets the snapshot, then the membership list
	require.Equal(t, []string{protocol.EventRoomCreated, protocol.EventUsersUpdated}, conn.typesSent())

	var created protocol.RoomState
	require.NoError(t, json.Unmarshal(conn.frames[0], &created))
	require.NotEmpty(t, created.RoomID)
	return created.RoomID
}

func TestCreateRoomFlow(t *testing.T) {
	ctl, _ := newTestController()
	conn := connect(ctl, "s1")

	roomID := createRoomWith(t, ctl, "s1", conn, "alice", "abc12345678")

	var created protocol.RoomState
	require.NoError(t, json.Unmarshal(conn.frames[0], &created))
	assert.Equal(t, "abc12345678", created.Room.VideoID)
	require.Len(t, created.Room.Users, 1)
	assert.Equal(t, "alice", created.Room.Users[0].Username)

	boundRoom, ok := ctl.Sessions.RoomOf("s1")
	require.True(t, ok)
	assert.Equal(t, roomID, boundRoom)
}

func TestJoinRoomNotFoundGoesToRequesterOnly(t *testing.T) {
	ctl, _ := newTestController()
	c1 := connect(ctl, "s1")
	_ = createRoomWith(t, ctl, "s1", c1, "alice", "")
	sent := len(c1.frames)

	c2 := connect(ctl, "s2")
	ctl.handleEvent("s2", c2, []byte(`{"type":"join-room","roomId":"missing1","username":"bob"}`))

	var errMsg protocol.RoomError
	c2.last(t, &errMsg)
	assert.Equal(t, protocol.EventRoomError, errMsg.Type)
	assert.Equal(t, "Room not found", errMsg.Message)
	assert.Len(t, c1.frames, sent, "members of other rooms see nothing")
}

func TestJoinRoomNotifiesMembers(t *testing.T) {
	ctl, _ := newTestController()
	c1 := connect(ctl, "s1")
	roomID := createRoomWith(t, ctl, "s1", c1, "alice", "")

	c2 := connect(ctl, "s2")
	ctl.handleEvent("s2", c2, []byte(fmt.Sprintf(
		`{"type":"join-room","roomId":%q,"username":"bob"}`, roomID)))

	assert.Contains(t, c1.typesSent(), protocol.EventUserJoined)
	assert.Contains(t, c2.typesSent(), protocol.EventRoomJoined)

	var users protocol.UsersUpdated
	c2.last(t, &users)
	require.Equal(t, protocol.EventUsersUpdated, users.Type)
	require.Len(t, users.Users, 2)
	assert.Equal(t, "alice", users.Users[0].Username, "join order preserved")
	assert.Equal(t, "bob", users.Users[1].Username)
}

func TestPlaybackEventNotEchoedToSender(t *testing.T) {
	ctl, _ := newTestController()
	c1 := connect(ctl, "s1")
	roomID := createRoomWith(t, ctl, "s1", c1, "alice", "abc12345678")
	c2 := connect(ctl, "s2")
	ctl.handleEvent("s2", c2, []byte(fmt.Sprintf(
		`{"type":"join-room","roomId":%q,"username":"bob"}`, roomID)))

	before := len(c1.frames)
	ctl.handleEvent("s1", c1, []byte(fmt.Sprintf(
		`{"type":"video-play","roomId":%q,"currentTime":12.5}`, roomID)))

	assert.Len(t, c1.frames, before, "no echo to the originator")

	var evt protocol.PlaybackEvent
	c2.last(t, &evt)
	assert.Equal(t, protocol.EventVideoPlay, evt.Type)
	assert.Equal(t, 12.5, evt.CurrentTime)
	assert.Empty(t, evt.RoomID, "fan-out carries playback fields only")

	room, _ := ctl.Registry.GetRoom(roomID)
	assert.True(t, room.IsPlaying)
	assert.Equal(t, 12.5, room.CurrentTime)
}

func TestRequestSyncExtrapolates(t *testing.T) {
	ctl, clock := newTestController()
	c1 := connect(ctl, "s1")
	roomID := createRoomWith(t, ctl, "s1", c1, "alice", "abc12345678")

	ctl.handleEvent("s1", c1, []byte(fmt.Sprintf(
		`{"type":"video-play","roomId":%q,"currentTime":10}`, roomID)))
	clock.Advance(5 * time.Second)

	ctl.handleEvent("s1", c1, []byte(fmt.Sprintf(
		`{"type":"request-sync","roomId":%q}`, roomID)))

	var resp protocol.SyncResponse
	c1.last(t, &resp)
	require.Equal(t, protocol.EventSyncResponse, resp.Type)
	assert.Equal(t, "abc12345678", resp.VideoID)
	assert.True(t, resp.IsPlaying)
	assert.InDelta(t, 15, resp.CurrentTime, 0.001)
}

func TestVideoChangeResetsAndBroadcasts(t *testing.T) {
	ctl, _ := newTestController()
	c1 := connect(ctl, "s1")
	roomID := createRoomWith(t, ctl, "s1", c1, "alice", "abc12345678")
	c2 := connect(ctl, "s2")
	ctl.handleEvent("s2", c2, []byte(fmt.Sprintf(
		`{"type":"join-room","roomId":%q,"username":"bob"}`, roomID)))

	ctl.handleEvent("s1", c1, []byte(fmt.Sprintf(
		`{"type":"video-change","roomId":%q,"videoId":"xyz98765432"}`, roomID)))

	var evt protocol.VideoChange
	c2.last(t, &evt)
	assert.Equal(t, protocol.EventVideoChange, evt.Type)
	assert.Equal(t, "xyz98765432", evt.VideoID)

	room, _ := ctl.Registry.GetRoom(roomID)
	assert.Equal(t, "xyz98765432", room.VideoID)
	assert.False(t, room.IsPlaying)
	assert.Equal(t, 0.0, room.CurrentTime)
}

func TestChatBroadcastIncludesSender(t *testing.T) {
	ctl, _ := newTestController()
	c1 := connect(ctl, "s1")
	roomID := createRoomWith(t, ctl, "s1", c1, "alice", "")

	ctl.handleEvent("s1", c1, []byte(fmt.Sprintf(
		`{"type":"chat-message","roomId":%q,"message":"hi","username":"alice"}`, roomID)))

	var msg protocol.ChatMessage
	c1.last(t, &msg)
	assert.Equal(t, protocol.EventChatMessage, msg.Type)
	assert.Equal(t, "hi", msg.Message)
	assert.Equal(t, domain.UserID("s1"), msg.UserID, "tagged so the sender can style its own message")
	assert.NotEmpty(t, msg.Timestamp)
}

func TestDisconnectNotifiesRemainingMembers(t *testing.T) {
	ctl, _ := newTestController()
	c1 := connect(ctl, "s1")
	roomID := createRoomWith(t, ctl, "s1", c1, "alice", "")
	c2 := connect(ctl, "s2")
	ctl.handleEvent("s2", c2, []byte(fmt.Sprintf(
		`{"type":"join-room","roomId":%q,"username":"bob"}`, roomID)))

	ctl.onDisconnect("s2")

	types := c1.typesSent()
	assert.Contains(t, types, protocol.EventUserLeft)

	var users protocol.UsersUpdated
	c1.last(t, &users)
	require.Equal(t, protocol.EventUsersUpdated, users.Type)
	require.Len(t, users.Users, 1)
	assert.Equal(t, "alice", users.Users[0].Username)
}

func TestDisconnectOfLastMemberSweepsRoom(t *testing.T) {
	ctl, _ := newTestController()
	c1 := connect(ctl, "s1")
	roomID := createRoomWith(t, ctl, "s1", c1, "alice", "")

	ctl.onDisconnect("s1")

	_, ok := ctl.Registry.GetRoom(roomID)
	assert.False(t, ok, "empty room is swept on disconnect")
}

func TestMalformedEventAffectsNoRooms(t *testing.T) {
	ctl, _ := newTestController()
	c1 := connect(ctl, "s1")
	roomID := createRoomWith(t, ctl, "s1", c1, "alice", "abc12345678")
	before := len(c1.frames)

	ctl.handleEvent("s1", c1, []byte(`{"type":"video-play","currentTime":"not-a-number"}`))
	ctl.handleEvent("s1", c1, []byte(`not json at all`))
	ctl.handleEvent("s1", c1, []byte(`{"type":"mystery-event"}`))

	assert.Len(t, c1.frames, before)
	room, ok := ctl.Registry.GetRoom(roomID)
	require.True(t, ok)
	assert.False(t, room.IsPlaying)
}
