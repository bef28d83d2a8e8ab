package core

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Watch/internal/domain"
)

const roomIDLen = 8

// Registry is the authoritative in-memory room store. A single mutex
// serializes every read-modify-write of room state, including the sweep, so
// a room cannot be deleted while a join is in flight.
//
// User lookup is a reverse scan over rooms. At tens of rooms that beats
// maintaining a second synchronized index.
type Registry struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]*domain.Room
	clock clockwork.Clock
}

func NewRegistry(clock clockwork.Clock) *Registry {
	return &Registry{
		rooms: make(map[domain.RoomID]*domain.Room),
		clock: clock,
	}
}

// CreateRoom allocates a room with empty membership, paused at zero.
// Ids are an 8-character slice of a UUID; collisions retry.
func (r *Registry) CreateRoom(videoID string) domain.RoomID {
	r.mu.Lock()
	defer r.mu.Unlock()
	var id domain.RoomID
	for {
		id = domain.RoomID(uuid.NewString()[:roomIDLen])
		if _, taken := r.rooms[id]; !taken {
			break
		}
	}
	r.rooms[id] = domain.NewRoom(id, videoID, r.clock.Now())
	log.Info().Str("module", "core.registry").Str("room", string(id)).Msg("room created")
	return id
}

// JoinRoom inserts (or overwrites) the user and returns the room snapshot.
// Returns domain.ErrRoomNotFound when the id does not exist.
func (r *Registry) JoinRoom(roomID domain.RoomID, userID domain.UserID, username string) (RoomSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[roomID]
	if !ok {
		return RoomSnapshot{}, domain.ErrRoomNotFound
	}
	user, err := domain.NewUser(userID, username, r.clock.Now())
	if err != nil {
		return RoomSnapshot{}, err
	}
	room.Users[userID] = user
	log.Info().Str("module", "core.registry").Str("room", string(roomID)).Str("user", string(userID)).Msg("user joined")
	return snapshot(room), nil
}

// LeaveRoom removes the user from whichever room holds it. Idempotent.
func (r *Registry) LeaveRoom(userID domain.UserID) (domain.RoomID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, room := range r.rooms {
		if _, ok := room.Users[userID]; ok {
			delete(room.Users, userID)
			log.Info().Str("module", "core.registry").Str("room", string(id)).Str("user", string(userID)).Msg("user left")
			return id, true
		}
	}
	return "", false
}

// FindUserRoom locates the room containing userID by membership scan.
func (r *Registry) FindUserRoom(userID domain.UserID) (RoomSnapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, room := range r.rooms {
		if _, ok := room.Users[userID]; ok {
			return snapshot(room), true
		}
	}
	return RoomSnapshot{}, false
}

func (r *Registry) GetRoom(roomID domain.RoomID) (RoomSnapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[roomID]
	if !ok {
		return RoomSnapshot{}, false
	}
	return snapshot(room), true
}

// Play applies a play event to the room's authoritative playback state.
// A missing room is ignored; concurrent writers are last-write-wins.
func (r *Registry) Play(roomID domain.RoomID, currentTime float64) bool {
	return r.updatePlayback(roomID, func(p *domain.Playback, now time.Time) {
		ApplyPlay(p, currentTime, now)
	})
}

func (r *Registry) Pause(roomID domain.RoomID, currentTime float64) bool {
	return r.updatePlayback(roomID, func(p *domain.Playback, now time.Time) {
		ApplyPause(p, currentTime, now)
	})
}

func (r *Registry) Seek(roomID domain.RoomID, currentTime float64) bool {
	return r.updatePlayback(roomID, func(p *domain.Playback, now time.Time) {
		ApplySeek(p, currentTime, now)
	})
}

func (r *Registry) ChangeVideo(roomID domain.RoomID, videoID string) bool {
	return r.updatePlayback(roomID, func(p *domain.Playback, now time.Time) {
		ApplyVideoChange(p, videoID, now)
	})
}

func (r *Registry) updatePlayback(roomID domain.RoomID, apply func(*domain.Playback, time.Time)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[roomID]
	if !ok {
		return false
	}
	apply(&room.Playback, r.clock.Now())
	return true
}

// SyncState answers a sync request with the position extrapolated to now.
func (r *Registry) SyncState(roomID domain.RoomID) (SyncState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[roomID]
	if !ok {
		return SyncState{}, false
	}
	return SyncState{
		VideoID:     room.Playback.VideoID,
		CurrentTime: EstimateCurrentTime(room.Playback, r.clock.Now()),
		IsPlaying:   room.Playback.IsPlaying,
	}, true
}

// Sweep deletes every room that is empty or older than maxAge. Empty rooms go
// regardless of age. Returns the deleted ids.
func (r *Registry) Sweep(maxAge time.Duration) []domain.RoomID {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.clock.Now()
	var deleted []domain.RoomID
	for id, room := range r.rooms {
		if len(room.Users) == 0 || now.Sub(room.CreatedAt) > maxAge {
			delete(r.rooms, id)
			deleted = append(deleted, id)
			log.Info().Str("module", "core.registry").Str("room", string(id)).Int("members", len(room.Users)).Msg("room swept")
		}
	}
	return deleted
}

func (r *Registry) List() []RoomInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]RoomInfo, 0, len(r.rooms))
	for id, room := range r.rooms {
		out = append(out, RoomInfo{ID: id, MemberCount: len(room.Users), VideoID: room.Playback.VideoID})
	}
	return out
}

// snapshot copies room state for release outside the lock. Users come out in
// join order (display only).
func snapshot(room *domain.Room) RoomSnapshot {
	users := make([]domain.User, 0, len(room.Users))
	for _, u := range room.Users {
		users = append(users, *u)
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].JoinedAt.Equal(users[j].JoinedAt) {
			return users[i].ID < users[j].ID
		}
		return users[i].JoinedAt.Before(users[j].JoinedAt)
	})
	return RoomSnapshot{
		ID:          room.ID,
		VideoID:     room.Playback.VideoID,
		IsPlaying:   room.Playback.IsPlaying,
		CurrentTime: room.Playback.CurrentTime,
		CreatedAt:   room.CreatedAt,
		Users:       users,
	}
}
