package core

import (
	"time"

	"github.com/dkeye/Watch/internal/domain"
)

// Playback transitions are pure functions over domain.Playback. The registry
// invokes them under its lock; they never touch transport or membership.

func ApplyPlay(p *domain.Playback, currentTime float64, now time.Time) {
	p.IsPlaying = true
	p.CurrentTime = currentTime
	p.LastUpdate = now
}

func ApplyPause(p *domain.Playback, currentTime float64, now time.Time) {
	p.IsPlaying = false
	p.CurrentTime = currentTime
	p.LastUpdate = now
}

// ApplySeek repositions without touching the play/pause intent.
func ApplySeek(p *domain.Playback, currentTime float64, now time.Time) {
	p.CurrentTime = currentTime
	p.LastUpdate = now
}

func ApplyVideoChange(p *domain.Playback, videoID string, now time.Time) {
	p.VideoID = videoID
	p.CurrentTime = 0
	p.IsPlaying = false
	p.LastUpdate = now
}

// EstimateCurrentTime extrapolates the position of a playing room to now, so
// a client joining long after the last playback event does not sync to a
// stale position. Negative elapsed time (clock skew) counts as zero; time
// never runs backward.
func EstimateCurrentTime(p domain.Playback, now time.Time) float64 {
	if !p.IsPlaying || p.LastUpdate.IsZero() {
		return p.CurrentTime
	}
	elapsed := now.Sub(p.LastUpdate).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}
	return p.CurrentTime + elapsed
}
