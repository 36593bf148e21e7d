package game

import (
	"context"
	"log"
	"time"
)

// DefaultSweepInterval matches the expected pace of abandoned classroom
// sessions; lazy expiry checks cover the window between sweeps.
const DefaultSweepInterval = time.Hour

// Sweeper periodically deletes expired rooms so abandoned sessions do not
// accumulate in the store.
type Sweeper struct {
	service  *Service
	interval time.Duration
}

func NewSweeper(service *Service, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{service: service, interval: interval}
}

// Run sweeps once immediately and then on every tick until ctx is canceled.
// A failed sweep is logged and retried on the next tick.
func (s *Sweeper) Run(ctx context.Context) {
	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	if _, err := s.service.CleanupExpired(ctx); err != nil {
		log.Printf("expired room sweep failed: %v", err)
	}
}
