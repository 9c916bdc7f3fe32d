package scenes

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Loop ticks a scene at a fixed rate until its context ends.
type Loop struct {
	scene    *NetworkedScene
	tickRate int
	log      zerolog.Logger
}

func NewLoop(scene *NetworkedScene, tickRate int, log zerolog.Logger) *Loop {
	if tickRate <= 0 {
		tickRate = 60
	}
	return &Loop{
		scene:    scene,
		tickRate: tickRate,
		log:      log.With().Str("component", "loop").Logger(),
	}
}

func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Second / time.Duration(l.tickRate))
	defer ticker.Stop()

	l.log.Info().Int("tickRate", l.tickRate).Msg("tick loop started")
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			l.log.Info().Msg("tick loop stopped")
			return nil
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now
			if err := l.scene.Update(now, dt); err != nil {
				l.log.Warn().Err(err).Msg("tick finished with errors")
			}
		}
	}
}
