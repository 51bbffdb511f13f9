package staging

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Sweeper periodically removes expired staged imports
type Sweeper struct {
	store    Store
	logger   *zerolog.Logger
	interval time.Duration
	now      func() time.Time
	stopChan chan struct{}
}

// NewSweeper creates a sweeper for the given store
func NewSweeper(store Store, logger *zerolog.Logger, interval time.Duration) *Sweeper {
	return &Sweeper{
		store:    store,
		logger:   logger,
		interval: interval,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
}

// Start runs sweeps until the context is cancelled or Stop is called
func (s *Sweeper) Start(ctx context.Context) {
	s.logger.Info().
		Dur("interval", s.interval).
		Msg("Starting staged import sweeper")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Staged import sweeper stopping (context cancelled)")
			return
		case <-s.stopChan:
			s.logger.Info().Msg("Staged import sweeper stopping (stop signal)")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Stop signals the sweeper to stop
func (s *Sweeper) Stop() {
	close(s.stopChan)
}

// Sweep runs one expiry pass
func (s *Sweeper) Sweep(ctx context.Context) int {
	removed, err := s.store.DeleteExpired(ctx, s.now())
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to sweep expired staged imports")
		return 0
	}
	if removed > 0 {
		s.logger.Info().Int("removed", removed).Msg("Removed expired staged imports")
	}
	return removed
}
