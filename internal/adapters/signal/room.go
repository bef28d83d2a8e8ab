package signal

import (
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Watch/internal/core"
	"github.com/dkeye/Watch/internal/domain"
	"github.com/dkeye/Watch/internal/protocol"
)

// broadcastOthers fans an event out to every room member except the
// originator, so a client never receives an echo of its own event.
func (ctl *Controller) broadcastOthers(roomID domain.RoomID, from core.SessionID, v any) {
	for _, snap := range ctl.Sessions.MembersOfRoom(roomID) {
		if snap.SID == from {
			continue
		}
		ctl.sendJSON(snap.Conn, v)
	}
}

func (ctl *Controller) broadcastRoom(roomID domain.RoomID, v any) {
	for _, snap := range ctl.Sessions.MembersOfRoom(roomID) {
		ctl.sendJSON(snap.Conn, v)
	}
}

func (ctl *Controller) broadcastUsers(roomID domain.RoomID) {
	room, ok := ctl.Registry.GetRoom(roomID)
	if !ok {
		return
	}
	ctl.broadcastRoom(roomID, protocol.UsersUpdated{
		Type:  protocol.EventUsersUpdated,
		Users: room.Users,
	})
}

func (ctl *Controller) handleCreateRoom(sid core.SessionID, conn core.SignalConnection, data []byte) {
	var p protocol.CreateRoom
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad create-room payload")
		ctl.sendJSON(conn, protocol.RoomError{Type: protocol.EventRoomError, Message: "bad payload"})
		return
	}

	roomID := ctl.Registry.CreateRoom(p.VideoID)
	room, err := ctl.Registry.JoinRoom(roomID, domain.UserID(sid), p.Username)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Str("room", string(roomID)).Msg("create-room join failed")
		ctl.sendJSON(conn, protocol.RoomError{Type: protocol.EventRoomError, Message: err.Error()})
		return
	}
	ctl.Sessions.SetRoom(sid, roomID)

	ctl.sendJSON(conn, protocol.RoomState{Type: protocol.EventRoomCreated, RoomID: roomID, Room: room})
	ctl.broadcastUsers(roomID)
	log.Info().Str("module", "signal").Str("room", string(roomID)).Str("username", p.Username).Msg("room created")
}

func (ctl *Controller) handleJoinRoom(sid core.SessionID, conn core.SignalConnection, data []byte) {
	var p protocol.JoinRoom
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad join-room payload")
		ctl.sendJSON(conn, protocol.RoomError{Type: protocol.EventRoomError, Message: "bad payload"})
		return
	}

	room, err := ctl.Registry.JoinRoom(p.RoomID, domain.UserID(sid), p.Username)
	if errors.Is(err, domain.ErrRoomNotFound) {
		ctl.sendJSON(conn, protocol.RoomError{Type: protocol.EventRoomError, Message: "Room not found"})
		return
	}
	if err != nil {
		ctl.sendJSON(conn, protocol.RoomError{Type: protocol.EventRoomError, Message: err.Error()})
		return
	}
	ctl.Sessions.SetRoom(sid, p.RoomID)

	ctl.sendJSON(conn, protocol.RoomState{Type: protocol.EventRoomJoined, RoomID: p.RoomID, Room: room})
	ctl.broadcastOthers(p.RoomID, sid, protocol.UserPresence{
		Type:     protocol.EventUserJoined,
		Username: p.Username,
		UserID:   domain.UserID(sid),
	})
	ctl.broadcastUsers(p.RoomID)
	log.Info().Str("module", "signal").Str("room", string(p.RoomID)).Str("username", p.Username).Msg("user joined room")
}

// onDisconnect is a lifecycle event, not an error: remove the user, sweep,
// and tell the remaining members if the room survived the sweep.
func (ctl *Controller) onDisconnect(sid core.SessionID) {
	uid := domain.UserID(sid)
	var username string
	var roomID domain.RoomID
	if room, ok := ctl.Registry.FindUserRoom(uid); ok {
		roomID = room.ID
		for _, u := range room.Users {
			if u.ID == uid {
				username = u.Username
				break
			}
		}
	}

	ctl.Registry.LeaveRoom(uid)
	ctl.Sessions.Unbind(sid)
	ctl.Registry.Sweep(ctl.RoomMaxAge)

	if roomID == "" {
		return
	}
	if _, ok := ctl.Registry.GetRoom(roomID); !ok {
		return
	}
	ctl.broadcastRoom(roomID, protocol.UserPresence{
		Type:     protocol.EventUserLeft,
		Username: username,
		UserID:   uid,
	})
	ctl.broadcastUsers(roomID)
}
