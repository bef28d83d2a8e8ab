package client

// PlayerState mirrors the state set an embedded video player reports through
// its state-change notifications.
type PlayerState int

const (
	StateUnstarted PlayerState = iota
	StatePlaying
	StatePaused
	StateBuffering
	StateEnded
)

// Player is the opaque playback collaborator. Implementations wrap whatever
// embedded player the client runs; the engine only drives this surface.
// No call blocks and none reports completion of its transition.
type Player interface {
	CurrentTime() float64
	SeekTo(seconds float64)
	Play()
	Pause()
	State() PlayerState
	LoadVideo(videoID string)
	VideoID() string
}
