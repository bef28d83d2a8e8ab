// Package protocol defines the wire events exchanged between the session
// gateway and clients. Every message is a flat JSON object whose "type" field
// selects the payload shape; both server and client decode the envelope first
// and then the concrete payload.
package protocol

import (
	"github.com/dkeye/Watch/internal/core"
	"github.com/dkeye/Watch/internal/domain"
)

const (
	// client → server
	EventCreateRoom  = "create-room"
	EventJoinRoom    = "join-room"
	EventRequestSync = "request-sync"
	EventPing        = "ping"

	// server → client
	EventRoomCreated  = "room-created"
	EventRoomJoined   = "room-joined"
	EventRoomError    = "room-error"
	EventUserJoined   = "user-joined"
	EventUserLeft     = "user-left"
	EventUsersUpdated = "users-updated"
	EventSyncResponse = "sync-response"
	EventPong         = "pong"

	// both directions; server fan-out suppresses the echo to the sender
	EventVideoPlay   = "video-play"
	EventVideoPause  = "video-pause"
	EventVideoSeek   = "video-seek"
	EventVideoChange = "video-change"
	EventChatMessage = "chat-message"
)

// Envelope is decoded first to route on Type.
type Envelope struct {
	Type string `json:"type"`
}

type CreateRoom struct {
	Type     string `json:"type"`
	Username string `json:"username"`
	VideoID  string `json:"videoId"`
}

type JoinRoom struct {
	Type     string        `json:"type"`
	RoomID   domain.RoomID `json:"roomId"`
	Username string        `json:"username"`
}

type RoomState struct {
	Type   string            `json:"type"`
	RoomID domain.RoomID     `json:"roomId"`
	Room   core.RoomSnapshot `json:"room"`
}

type RoomError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type UserPresence struct {
	Type     string        `json:"type"`
	Username string        `json:"username"`
	UserID   domain.UserID `json:"userId"`
}

type UsersUpdated struct {
	Type  string        `json:"type"`
	Users []domain.User `json:"users"`
}

// PlaybackEvent carries video-play, video-pause and video-seek. RoomID is set
// only client → server; the fan-out copy carries the position alone.
type PlaybackEvent struct {
	Type        string        `json:"type"`
	RoomID      domain.RoomID `json:"roomId,omitempty"`
	CurrentTime float64       `json:"currentTime"`
}

type VideoChange struct {
	Type    string        `json:"type"`
	RoomID  domain.RoomID `json:"roomId,omitempty"`
	VideoID string        `json:"videoId"`
}

type RequestSync struct {
	Type   string        `json:"type"`
	RoomID domain.RoomID `json:"roomId"`
}

type SyncResponse struct {
	Type string `json:"type"`
	core.SyncState
}

type ChatMessage struct {
	Type     string        `json:"type"`
	RoomID   domain.RoomID `json:"roomId,omitempty"`
	Message  string        `json:"message"`
	Username string        `json:"username"`
	// set by the server on fan-out
	Timestamp string        `json:"timestamp,omitempty"`
	UserID    domain.UserID `json:"userId,omitempty"`
}
