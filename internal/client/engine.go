package client

import (
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Watch/internal/domain"
	"github.com/dkeye/Watch/internal/protocol"
)

var ErrPlayerUnavailable = errors.New("player not ready")

// Sender delivers an outbound protocol event. Fire-and-forget: a dropped
// event is corrected by the next one or by a sync request.
type Sender interface {
	Send(v any) error
}

// Options are the drift tolerances and settle windows. The settle windows are
// generous heuristics for the player's internal transition latency; the
// player exposes no completion signal to wait on.
type Options struct {
	DriftPlay       float64       // seconds; beyond this a remote play reseeks
	DriftPause      float64       // seconds; beyond this a remote pause reseeks
	SettlePlayPause time.Duration // suppression window after play/pause corrections
	SettleSeek      time.Duration // suppression window after seek/load corrections
}

func DefaultOptions() Options {
	return Options{
		DriftPlay:       2,
		DriftPause:      1,
		SettlePlayPause: 1500 * time.Millisecond,
		SettleSeek:      2 * time.Second,
	}
}

// EngineState is the engine lifecycle: no room, in a room awaiting the
// player, or fully participating in sync.
type EngineState int

const (
	Idle EngineState = iota
	Active
	Synced
)

// Engine reconciles the local player against remote playback events. Its one
// coordination primitive is the suppression flag: set before any
// remotely-driven player mutation, cleared on a timer, and checked by the
// local state-change handler so a correction is never re-broadcast as a new
// user action.
type Engine struct {
	player Player
	sender Sender
	clock  clockwork.Clock
	opts   Options

	mu      sync.Mutex
	state   EngineState
	roomID  domain.RoomID
	syncing bool
}

func NewEngine(player Player, sender Sender, clock clockwork.Clock, opts Options) *Engine {
	return &Engine{
		player: player,
		sender: sender,
		clock:  clock,
		opts:   opts,
	}
}

// EnterRoom moves Idle → Active on a room-created/room-joined confirmation.
func (e *Engine) EnterRoom(roomID domain.RoomID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.roomID = roomID
	e.state = Active
	log.Info().Str("module", "client.engine").Str("room", string(roomID)).Msg("entered room")
}

// PlayerReady moves Active → Synced once the player reports ready.
func (e *Engine) PlayerReady() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == Active {
		e.state = Synced
	}
}

func (e *Engine) LeaveRoom() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.roomID = ""
	e.state = Idle
}

func (e *Engine) State() EngineState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// suppressFor sets the flag and schedules its release. The timer always runs
// to completion; a newer correction just schedules another release
// (last-applied-wins, extra churn tolerated).
func (e *Engine) suppressFor(d time.Duration) {
	e.syncing = true
	e.clock.AfterFunc(d, func() {
		e.mu.Lock()
		e.syncing = false
		e.mu.Unlock()
	})
}

// HandleRemotePlay ensures local playback is running, reseeking only when the
// positions have drifted beyond tolerance, so minor jitter never causes a
// seek storm.
func (e *Engine) HandleRemotePlay(currentTime float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Synced || e.syncing {
		return
	}
	e.suppressFor(e.opts.SettlePlayPause)

	if diff := abs(e.player.CurrentTime() - currentTime); diff > e.opts.DriftPlay {
		e.player.SeekTo(currentTime)
	}
	if e.player.State() != StatePlaying {
		e.player.Play()
	}
	log.Debug().Str("module", "client.engine").Float64("t", currentTime).Msg("remote play applied")
}

func (e *Engine) HandleRemotePause(currentTime float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Synced || e.syncing {
		return
	}
	e.suppressFor(e.opts.SettlePlayPause)

	if diff := abs(e.player.CurrentTime() - currentTime); diff > e.opts.DriftPause {
		e.player.SeekTo(currentTime)
	}
	if e.player.State() != StatePaused {
		e.player.Pause()
	}
	log.Debug().Str("module", "client.engine").Float64("t", currentTime).Msg("remote pause applied")
}

// HandleRemoteSeek always repositions exactly; a seek is an intentional
// action with no tolerance.
func (e *Engine) HandleRemoteSeek(currentTime float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Synced || e.syncing {
		return
	}
	e.suppressFor(e.opts.SettleSeek)
	e.player.SeekTo(currentTime)
	log.Debug().Str("module", "client.engine").Float64("t", currentTime).Msg("remote seek applied")
}

func (e *Engine) HandleRemoteVideoChange(videoID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Synced {
		return
	}
	e.suppressFor(e.opts.SettleSeek)
	e.player.LoadVideo(videoID)
	log.Info().Str("module", "client.engine").Str("video", videoID).Msg("remote video change applied")
}

// HandleSyncResponse applies an authoritative snapshot the engine itself
// requested. When the video differs, only the load happens: the new video
// must reach its own ready state before position and play state mean
// anything.
func (e *Engine) HandleSyncResponse(s protocol.SyncResponse) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Synced || s.VideoID == "" {
		return
	}

	if e.player.VideoID() != s.VideoID {
		e.suppressFor(e.opts.SettleSeek)
		e.player.LoadVideo(s.VideoID)
		return
	}

	e.suppressFor(e.opts.SettlePlayPause)
	e.player.SeekTo(s.CurrentTime)
	if s.IsPlaying && e.player.State() != StatePlaying {
		e.player.Play()
	} else if !s.IsPlaying && e.player.State() != StatePaused {
		e.player.Pause()
	}
	log.Debug().Str("module", "client.engine").Float64("t", s.CurrentTime).Bool("playing", s.IsPlaying).Msg("sync response applied")
}

// OnPlayerStateChange turns the local player's own transitions into outbound
// events. Suppressed while a remote correction settles, so the feedback loop
// remote event → player mutation → notification → outbound event is broken.
// Ended counts as a pause at the current position.
func (e *Engine) OnPlayerStateChange(s PlayerState) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Synced || e.syncing {
		return
	}

	currentTime := e.player.CurrentTime()
	switch s {
	case StatePlaying:
		e.send(protocol.PlaybackEvent{Type: protocol.EventVideoPlay, RoomID: e.roomID, CurrentTime: currentTime})
	case StatePaused, StateEnded:
		e.send(protocol.PlaybackEvent{Type: protocol.EventVideoPause, RoomID: e.roomID, CurrentTime: currentTime})
	case StateBuffering, StateUnstarted:
	}
}

// ChangeVideo is the local user action: reject unparseable URLs before any
// network call, load locally, then broadcast.
func (e *Engine) ChangeVideo(videoURL string) error {
	videoID := domain.ExtractVideoID(videoURL)
	if videoID == "" {
		return domain.ErrInvalidVideoRef
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Synced {
		return ErrPlayerUnavailable
	}
	e.player.LoadVideo(videoID)
	e.send(protocol.VideoChange{Type: protocol.EventVideoChange, RoomID: e.roomID, VideoID: videoID})
	return nil
}

// RequestSync asks the server for the authoritative snapshot (join,
// reconnect).
func (e *Engine) RequestSync() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == Idle {
		return
	}
	e.send(protocol.RequestSync{Type: protocol.EventRequestSync, RoomID: e.roomID})
}

func (e *Engine) send(v any) {
	if err := e.sender.Send(v); err != nil {
		log.Warn().Err(err).Str("module", "client.engine").Msg("send failed")
	}
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
