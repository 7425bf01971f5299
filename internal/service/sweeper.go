package service

import (
	"context"
	"log"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/jengzang/moodmap-backend-go/internal/metrics"
	"github.com/jengzang/moodmap-backend-go/internal/repository"
)

// Sweeper periodically purges entries past their expiration and re-triggers
// aggregation for every cell that lost an entry, so no summary keeps
// reflecting an expired observation.
type Sweeper struct {
	entries  *repository.EntryRepository
	trigger  RecomputeTrigger
	interval time.Duration
	clock    clockwork.Clock
}

// NewSweeper creates a retention sweeper
func NewSweeper(entries *repository.EntryRepository, trigger RecomputeTrigger, interval time.Duration, clock clockwork.Clock) *Sweeper {
	return &Sweeper{
		entries:  entries,
		trigger:  trigger,
		interval: interval,
		clock:    clock,
	}
}

// Sweep removes all expired entries and returns how many were deleted.
// Safe to run concurrently with submissions: a submission landing mid-sweep
// is covered by its own trigger.
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	removed, cells, err := s.entries.DeleteExpired(ctx, s.clock.Now())
	if err != nil {
		return 0, err
	}

	for _, cellID := range cells {
		s.trigger.Trigger(cellID)
	}

	if removed > 0 {
		metrics.EntriesSweptTotal.Add(float64(removed))
		log.Printf("[Sweeper] removed %d expired entries across %d cells", removed, len(cells))
	}
	return removed, nil
}

// Run sweeps on the configured interval until ctx is canceled
func (s *Sweeper) Run(ctx context.Context) {
	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if _, err := s.Sweep(ctx); err != nil {
				log.Printf("[Sweeper] sweep failed: %v", err)
			}
		}
	}
}
