package app

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Watch/internal/core"
)

// Sweeper periodically evicts empty and over-age rooms. The registry's own
// lock serializes the sweep against joins, so a room being joined is never
// deleted out from under the join.
type Sweeper struct {
	Registry *core.Registry
	Interval time.Duration
	MaxAge   time.Duration
	Clock    clockwork.Clock
}

func (s *Sweeper) Run(ctx context.Context) {
	ticker := s.Clock.NewTicker(s.Interval)
	defer ticker.Stop()
	log.Info().Str("module", "app.sweeper").Dur("interval", s.Interval).Dur("max_age", s.MaxAge).Msg("sweeper started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "app.sweeper").Msg("sweeper stopped")
			return
		case <-ticker.Chan():
			if deleted := s.Registry.Sweep(s.MaxAge); len(deleted) > 0 {
				log.Info().Str("module", "app.sweeper").Int("deleted", len(deleted)).Msg("sweep pass")
			}
		}
	}
}
