package core

import (
	"time"

	"github.com/dkeye/Watch/internal/domain"
)

// Frame is a raw outbound payload (encoded protocol event).
type Frame []byte

// SessionID identifies one transport connection. It doubles as the user id
// for the connection's lifetime.
type SessionID string

// SignalConnection abstracts a system messaging transport.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// RoomSnapshot is a read-only copy of a room for APIs and protocol payloads.
// Users are in join order.
type RoomSnapshot struct {
	ID          domain.RoomID `json:"id"`
	VideoID     string        `json:"videoId"`
	IsPlaying   bool          `json:"isPlaying"`
	CurrentTime float64       `json:"currentTime"`
	CreatedAt   time.Time     `json:"createdAt"`
	Users       []domain.User `json:"users"`
}

// SyncState is the point-to-point answer to a sync request. CurrentTime is
// extrapolated to the moment of the request when the room is playing.
type SyncState struct {
	VideoID     string  `json:"videoId"`
	CurrentTime float64 `json:"currentTime"`
	IsPlaying   bool    `json:"isPlaying"`
}

type RoomInfo struct {
	ID          domain.RoomID `json:"id"`
	MemberCount int           `json:"member_count"`
	VideoID     string        `json:"video_id"`
}
