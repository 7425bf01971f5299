// Package scheduler provides the debounced per-cell recompute trigger.
// Bursts of submissions to one hot cell collapse into a single recompute
// per window; execution is at-least-once and relies on the recompute being
// idempotent.
package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/jengzang/moodmap-backend-go/internal/metrics"
	"github.com/jengzang/moodmap-backend-go/internal/models"
)

// maxAttempts bounds retries of a failing recompute before the cell is
// dropped; the next submission or sweep re-triggers it anyway.
const maxAttempts = 5

// Recomputer executes an aggregate recompute for one cell.
type Recomputer interface {
	Recompute(ctx context.Context, cellID string) (*models.CellAggregate, error)
}

type pendingCell struct {
	due      time.Time
	attempts int
}

// CellScheduler coalesces recompute triggers per cell inside a debounce
// window and executes them from a single dispatch goroutine.
type CellScheduler struct {
	engine Recomputer
	window time.Duration
	clock  clockwork.Clock

	mu      sync.Mutex
	pending map[string]*pendingCell
	wake    chan struct{}
}

// NewCellScheduler creates a scheduler; call Run to start dispatching.
func NewCellScheduler(engine Recomputer, window time.Duration, clock clockwork.Clock) *CellScheduler {
	return &CellScheduler{
		engine:  engine,
		window:  window,
		clock:   clock,
		pending: make(map[string]*pendingCell),
		wake:    make(chan struct{}, 1),
	}
}

// Trigger schedules a recompute for a cell. Repeated triggers inside the
// debounce window coalesce into one execution. Never blocks and never
// fails; a trigger that cannot be delivered is recovered by the next one.
func (s *CellScheduler) Trigger(cellID string) {
	s.mu.Lock()
	if _, ok := s.pending[cellID]; !ok {
		s.pending[cellID] = &pendingCell{due: s.clock.Now().Add(s.window)}
		metrics.PendingCells.Set(float64(len(s.pending)))
	}
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Run dispatches due recomputes until ctx is canceled.
func (s *CellScheduler) Run(ctx context.Context) {
	for {
		timer := s.clock.NewTimer(s.nextWait())

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-s.wake:
			timer.Stop()
		case <-timer.Chan():
		}

		s.dispatchDue(ctx)
	}
}

// nextWait returns the time until the earliest pending deadline, or a long
// idle interval when nothing is queued.
func (s *CellScheduler) nextWait() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pending) == 0 {
		return time.Hour
	}

	now := s.clock.Now()
	wait := time.Hour
	for _, p := range s.pending {
		if d := p.due.Sub(now); d < wait {
			wait = d
		}
	}
	if wait < 0 {
		wait = 0
	}
	return wait
}

// dispatchDue runs recomputes for every cell whose window has elapsed.
func (s *CellScheduler) dispatchDue(ctx context.Context) {
	now := s.clock.Now()

	s.mu.Lock()
	var due []string
	attempts := make(map[string]int)
	for cellID, p := range s.pending {
		if !p.due.After(now) {
			due = append(due, cellID)
			attempts[cellID] = p.attempts
			delete(s.pending, cellID)
		}
	}
	metrics.PendingCells.Set(float64(len(s.pending)))
	s.mu.Unlock()

	for _, cellID := range due {
		if err := s.recompute(ctx, cellID); err != nil {
			log.Printf("[CellScheduler] recompute failed for cell %s: %v", cellID, err)
			s.retry(cellID, attempts[cellID]+1)
		}
	}
}

func (s *CellScheduler) recompute(ctx context.Context, cellID string) error {
	start := time.Now()
	_, err := s.engine.Recompute(ctx, cellID)
	metrics.RecomputeDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.RecomputesTotal.WithLabelValues(metrics.ResultError).Inc()
		return err
	}
	metrics.RecomputesTotal.WithLabelValues(metrics.ResultOK).Inc()
	return nil
}

// retry re-queues a failed cell for a later pass, up to maxAttempts.
func (s *CellScheduler) retry(cellID string, attempts int) {
	if attempts >= maxAttempts {
		log.Printf("[CellScheduler] giving up on cell %s after %d attempts", cellID, attempts)
		return
	}

	s.mu.Lock()
	if _, ok := s.pending[cellID]; !ok {
		s.pending[cellID] = &pendingCell{
			due:      s.clock.Now().Add(s.window),
			attempts: attempts,
		}
		metrics.PendingCells.Set(float64(len(s.pending)))
	}
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Flush synchronously recomputes everything currently queued, regardless of
// deadlines. Used on shutdown so triggered work is not lost.
func (s *CellScheduler) Flush(ctx context.Context) {
	s.mu.Lock()
	var cells []string
	for cellID := range s.pending {
		cells = append(cells, cellID)
		delete(s.pending, cellID)
	}
	metrics.PendingCells.Set(0)
	s.mu.Unlock()

	for _, cellID := range cells {
		if err := s.recompute(ctx, cellID); err != nil {
			log.Printf("[CellScheduler] flush recompute failed for cell %s: %v", cellID, err)
		}
	}
}
