package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Watch/internal/core"
	"github.com/dkeye/Watch/internal/domain"
)

type sessionEntry struct {
	RoomID domain.RoomID
	Conn   core.SignalConnection
	Cancel context.CancelFunc
}

// Sessions binds transport connections to their current room for fan-out
// routing. Room membership itself is authoritative in core.Registry; the
// gateway updates both together on join/leave.
type Sessions struct {
	mu       sync.RWMutex
	sessions map[core.SessionID]*sessionEntry
}

func NewSessions() *Sessions {
	return &Sessions{sessions: make(map[core.SessionID]*sessionEntry)}
}

func (s *Sessions) Bind(sid core.SessionID, conn core.SignalConnection, cancel context.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sid] = &sessionEntry{Conn: conn, Cancel: cancel}
	log.Info().Str("module", "app.sessions").Str("sid", string(sid)).Msg("bound session")
}

func (s *Sessions) Unbind(sid core.SessionID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sid)
	log.Info().Str("module", "app.sessions").Str("sid", string(sid)).Msg("unbind session")
}

func (s *Sessions) Get(sid core.SessionID) (core.SignalConnection, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.sessions[sid]; ok {
		return e.Conn, true
	}
	return nil, false
}

// SetRoom subscribes the session to a room's broadcast group. A session is
// in at most one room at a time.
func (s *Sessions) SetRoom(sid core.SessionID, roomID domain.RoomID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[sid]
	if !ok {
		return false
	}
	e.RoomID = roomID
	log.Info().Str("module", "app.sessions").Str("sid", string(sid)).Str("room", string(roomID)).Msg("subscribed to room")
	return true
}

func (s *Sessions) ClearRoom(sid core.SessionID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.sessions[sid]; ok {
		e.RoomID = ""
	}
}

func (s *Sessions) RoomOf(sid core.SessionID) (domain.RoomID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.sessions[sid]
	if !ok || e.RoomID == "" {
		return "", false
	}
	return e.RoomID, true
}

type SessionSnap struct {
	SID  core.SessionID
	Conn core.SignalConnection
}

func (s *Sessions) MembersOfRoom(roomID domain.RoomID) []SessionSnap {
	if roomID == "" {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]SessionSnap, 0, len(s.sessions))
	for sid, e := range s.sessions {
		if e.RoomID == roomID {
			out = append(out, SessionSnap{SID: sid, Conn: e.Conn})
		}
	}
	return out
}

func (s *Sessions) Cancel(sid core.SessionID) bool {
	s.mu.RLock()
	e, ok := s.sessions[sid]
	s.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "app.sessions").Str("sid", string(sid)).Msg("canceled session")
	return true
}
