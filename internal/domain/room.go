package domain

import (
	"errors"
	"time"
)

type RoomID string

var ErrRoomNotFound = errors.New("room not found")

// Playback is the authoritative play state of a room.
// CurrentTime is the position in seconds as of LastUpdate.
type Playback struct {
	VideoID     string    `json:"videoId"`
	IsPlaying   bool      `json:"isPlaying"`
	CurrentTime float64   `json:"currentTime"`
	LastUpdate  time.Time `json:"-"`
}

type Room struct {
	ID        RoomID
	Users     map[UserID]*User
	CreatedAt time.Time
	Playback  Playback
}

func NewRoom(id RoomID, videoID string, now time.Time) *Room {
	return &Room{
		ID:        id,
		Users:     make(map[UserID]*User),
		CreatedAt: now,
		Playback:  Playback{VideoID: videoID},
	}
}
