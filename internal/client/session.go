package client

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Watch/internal/domain"
	"github.com/dkeye/Watch/internal/protocol"
)

// Callbacks are the UI-facing notifications a session surfaces. Nil funcs are
// skipped.
type Callbacks struct {
	OnRoomState  func(roomID domain.RoomID, room json.RawMessage)
	OnRoomError  func(message string)
	OnUserJoined func(username string, userID domain.UserID)
	OnUserLeft   func(username string, userID domain.UserID)
	OnUsers      func(users []domain.User)
	OnChat       func(msg protocol.ChatMessage)
}

// Session is the client side of the gateway protocol: it dials the server,
// feeds inbound events to the reconciliation engine and serializes outbound
// sends.
type Session struct {
	conn      *websocket.Conn
	engine    *Engine
	callbacks Callbacks

	writeMu sync.Mutex
}

// Dial connects to the gateway's /api/ws endpoint.
func Dial(ctx context.Context, url string, callbacks Callbacks) (*Session, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return &Session{conn: conn, callbacks: callbacks}, nil
}

// Attach wires the engine that will consume playback events. Must be called
// before Run.
func (s *Session) Attach(engine *Engine) { s.engine = engine }

func (s *Session) Close() error { return s.conn.Close() }

// Send implements Sender for the engine.
func (s *Session) Send(v any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(v)
}

func (s *Session) CreateRoom(username, videoURL string) error {
	return s.Send(protocol.CreateRoom{
		Type:     protocol.EventCreateRoom,
		Username: username,
		VideoID:  domain.ExtractVideoID(videoURL),
	})
}

func (s *Session) JoinRoom(roomID domain.RoomID, username string) error {
	return s.Send(protocol.JoinRoom{Type: protocol.EventJoinRoom, RoomID: roomID, Username: username})
}

func (s *Session) SendChat(roomID domain.RoomID, username, message string) error {
	return s.Send(protocol.ChatMessage{
		Type:     protocol.EventChatMessage,
		RoomID:   roomID,
		Message:  message,
		Username: username,
	})
}

// Run reads events until the connection closes or ctx is canceled.
func (s *Session) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return err
		}
		s.dispatch(data)
	}
}

func (s *Session) dispatch(data []byte) {
	var env protocol.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "client.session").Msg("bad json")
		return
	}

	switch env.Type {
	case protocol.EventRoomCreated, protocol.EventRoomJoined:
		var p struct {
			RoomID domain.RoomID   `json:"roomId"`
			Room   json.RawMessage `json:"room"`
		}
		if err := json.Unmarshal(data, &p); err != nil {
			return
		}
		s.engine.EnterRoom(p.RoomID)
		if s.callbacks.OnRoomState != nil {
			s.callbacks.OnRoomState(p.RoomID, p.Room)
		}

	case protocol.EventRoomError:
		var p protocol.RoomError
		if err := json.Unmarshal(data, &p); err != nil {
			return
		}
		if s.callbacks.OnRoomError != nil {
			s.callbacks.OnRoomError(p.Message)
		}

	case protocol.EventVideoPlay, protocol.EventVideoPause, protocol.EventVideoSeek:
		var p protocol.PlaybackEvent
		if err := json.Unmarshal(data, &p); err != nil {
			return
		}
		switch env.Type {
		case protocol.EventVideoPlay:
			s.engine.HandleRemotePlay(p.CurrentTime)
		case protocol.EventVideoPause:
			s.engine.HandleRemotePause(p.CurrentTime)
		case protocol.EventVideoSeek:
			s.engine.HandleRemoteSeek(p.CurrentTime)
		}

	case protocol.EventVideoChange:
		var p protocol.VideoChange
		if err := json.Unmarshal(data, &p); err != nil {
			return
		}
		s.engine.HandleRemoteVideoChange(p.VideoID)

	case protocol.EventSyncResponse:
		var p protocol.SyncResponse
		if err := json.Unmarshal(data, &p); err != nil {
			return
		}
		s.engine.HandleSyncResponse(p)

	case protocol.EventUserJoined:
		var p protocol.UserPresence
		if err := json.Unmarshal(data, &p); err != nil {
			return
		}
		if s.callbacks.OnUserJoined != nil {
			s.callbacks.OnUserJoined(p.Username, p.UserID)
		}

	case protocol.EventUserLeft:
		var p protocol.UserPresence
		if err := json.Unmarshal(data, &p); err != nil {
			return
		}
		if s.callbacks.OnUserLeft != nil {
			s.callbacks.OnUserLeft(p.Username, p.UserID)
		}

	case protocol.EventUsersUpdated:
		var p protocol.UsersUpdated
		if err := json.Unmarshal(data, &p); err != nil {
			return
		}
		if s.callbacks.OnUsers != nil {
			s.callbacks.OnUsers(p.Users)
		}

	case protocol.EventChatMessage:
		var p protocol.ChatMessage
		if err := json.Unmarshal(data, &p); err != nil {
			return
		}
		if s.callbacks.OnChat != nil {
			s.callbacks.OnChat(p)
		}

	case protocol.EventPong:

	default:
		log.Warn().Str("module", "client.session").Str("type", env.Type).Msg("unknown event")
	}
}
