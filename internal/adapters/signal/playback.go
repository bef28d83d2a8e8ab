package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Watch/internal/core"
	"github.com/dkeye/Watch/internal/protocol"
)

// handlePlayback applies video-play, video-pause and video-seek to the room's
// authoritative state and fans the event out to the other members. Concurrent
// events from different users are last-write-wins under the registry lock.
func (ctl *Controller) handlePlayback(sid core.SessionID, eventType string, data []byte) {
	var p protocol.PlaybackEvent
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("type", eventType).Msg("bad playback payload")
		return
	}

	switch eventType {
	case protocol.EventVideoPlay:
		ctl.Registry.Play(p.RoomID, p.CurrentTime)
	case protocol.EventVideoPause:
		ctl.Registry.Pause(p.RoomID, p.CurrentTime)
	case protocol.EventVideoSeek:
		ctl.Registry.Seek(p.RoomID, p.CurrentTime)
	}

	ctl.broadcastOthers(p.RoomID, sid, protocol.PlaybackEvent{
		Type:        eventType,
		CurrentTime: p.CurrentTime,
	})
	log.Debug().Str("module", "signal").Str("type", eventType).Str("room", string(p.RoomID)).Float64("t", p.CurrentTime).Msg("playback event")
}

func (ctl *Controller) handleVideoChange(sid core.SessionID, data []byte) {
	var p protocol.VideoChange
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad video-change payload")
		return
	}

	ctl.Registry.ChangeVideo(p.RoomID, p.VideoID)
	ctl.broadcastOthers(p.RoomID, sid, protocol.VideoChange{
		Type:    protocol.EventVideoChange,
		VideoID: p.VideoID,
	})
	log.Info().Str("module", "signal").Str("room", string(p.RoomID)).Str("video", p.VideoID).Msg("video changed")
}

// handleRequestSync answers the requester only, with the position
// extrapolated to now for late joiners and reconnects.
func (ctl *Controller) handleRequestSync(sid core.SessionID, conn core.SignalConnection, data []byte) {
	var p protocol.RequestSync
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad request-sync payload")
		return
	}

	state, ok := ctl.Registry.SyncState(p.RoomID)
	if !ok {
		return
	}
	ctl.sendJSON(conn, protocol.SyncResponse{Type: protocol.EventSyncResponse, SyncState: state})
	log.Debug().Str("module", "signal").Str("sid", string(sid)).Str("room", string(p.RoomID)).Float64("t", state.CurrentTime).Msg("sync response")
}
