package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Watch/internal/core"
	"github.com/dkeye/Watch/internal/domain"
	"github.com/dkeye/Watch/internal/protocol"
)

// handleChat broadcasts to every member of the room including the sender; the
// sender id lets the client style its own messages. Flooding sessions are
// dropped by the sliding-window limiter.
func (ctl *Controller) handleChat(sid core.SessionID, data []byte) {
	var p protocol.ChatMessage
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad chat payload")
		return
	}
	if p.Message == "" {
		return
	}
	if ctl.ChatLimiter != nil && !ctl.ChatLimiter.Allow(domain.UserID(sid)) {
		log.Warn().Str("module", "signal").Str("sid", string(sid)).Msg("chat rate limited")
		return
	}

	ctl.broadcastRoom(p.RoomID, protocol.ChatMessage{
		Type:      protocol.EventChatMessage,
		Message:   p.Message,
		Username:  p.Username,
		Timestamp: ctl.Clock.Now().Format("15:04:05"),
		UserID:    domain.UserID(sid),
	})
}
