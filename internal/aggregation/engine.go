// Package aggregation turns the live entry set of a spatial cell into its
// cached summary record. Recompute is a pure function of the persisted
// entries, the trust lookup and the clock, so running it twice, or letting
// two concurrent runs race to upsert, always converges on the same state.
package aggregation

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/jengzang/moodmap-backend-go/internal/models"
	"github.com/jengzang/moodmap-backend-go/internal/stats"
)

// Presence weighting constants: dwell scales linearly up to a 2x cap
// reached at five minutes of reported presence.
const (
	dwellFullWeightSeconds = 300.0
	dwellMaxFactor         = 2.0

	recentWindowDays = 7.0
	trendWindowDays  = 30.0
	trendGain        = 2.0
)

// EntrySource yields the live (non-expired) entries of a cell.
type EntrySource interface {
	LiveByCell(ctx context.Context, cellID string, now time.Time) ([]models.EmotionEntry, error)
}

// AggregateStore persists computed summaries.
type AggregateStore interface {
	Upsert(ctx context.Context, a *models.CellAggregate) error
	Delete(ctx context.Context, cellID string) error
}

// TrustSource reads per-user reputation scalars.
type TrustSource interface {
	Trust(ctx context.Context, userID string) (float64, error)
}

// Config holds the weighting parameters of the engine
type Config struct {
	HalfLifeDays float64 // exponential decay half-life for recency weight
	TrustMin     float64
	TrustMax     float64
}

// Engine recomputes cell aggregates
type Engine struct {
	entries    EntrySource
	aggregates AggregateStore
	trust      TrustSource
	cfg        Config
	clock      clockwork.Clock
}

// NewEngine creates an aggregation engine
func NewEngine(entries EntrySource, aggregates AggregateStore, trust TrustSource, cfg Config, clock clockwork.Clock) *Engine {
	return &Engine{
		entries:    entries,
		aggregates: aggregates,
		trust:      trust,
		cfg:        cfg,
		clock:      clock,
	}
}

// Recompute rebuilds and upserts the aggregate for one cell, or deletes the
// stored aggregate and returns nil when the cell has no live entries. Safe
// to call concurrently for different cells and redundantly for the same
// cell.
func (e *Engine) Recompute(ctx context.Context, cellID string) (*models.CellAggregate, error) {
	now := e.clock.Now()

	entries, err := e.entries.LiveByCell(ctx, cellID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch entries for cell %s: %w", cellID, err)
	}

	// Liveness is enforced here as well as in the query: an entry that
	// expired between fetch and compute must not be counted.
	live := entries[:0]
	for _, entry := range entries {
		if entry.Live(now) {
			live = append(live, entry)
		}
	}

	if len(live) == 0 {
		if err := e.aggregates.Delete(ctx, cellID); err != nil {
			return nil, err
		}
		return nil, nil
	}

	lambda := math.Ln2 / e.cfg.HalfLifeDays
	trustCache := make(map[string]float64)

	var (
		totalWeight       float64
		weightedValence   float64
		weightedIntensity float64
		kindWeight        = make(map[string]float64)
		kindOrder         []string

		recentSum, olderSum     float64
		recentCount, olderCount int

		lastEntryAt time.Time
	)

	for _, entry := range live {
		ageDays := now.Sub(entry.CreatedAt).Hours() / 24

		recency := math.Exp(-lambda * ageDays)

		trust, ok := trustCache[entry.UserID]
		if !ok {
			trust, err = e.trust.Trust(ctx, entry.UserID)
			if err != nil {
				return nil, fmt.Errorf("failed to fetch trust for user %s: %w", entry.UserID, err)
			}
			trust = clamp(trust, e.cfg.TrustMin, e.cfg.TrustMax)
			trustCache[entry.UserID] = trust
		}

		presence := float64(entry.DwellSeconds) / dwellFullWeightSeconds
		if presence > dwellMaxFactor {
			presence = dwellMaxFactor
		}

		weight := recency * trust * presence

		totalWeight += weight
		weightedValence += entry.Valence * weight
		weightedIntensity += float64(entry.Intensity) * weight

		if _, seen := kindWeight[entry.Kind]; !seen {
			kindOrder = append(kindOrder, entry.Kind)
		}
		kindWeight[entry.Kind] += weight

		// Trend buckets use raw (unweighted) valence on purpose: the recent
		// vs older comparison should not be dampened by the same decay it
		// is trying to measure.
		switch {
		case ageDays <= recentWindowDays:
			recentSum += entry.Valence
			recentCount++
		case ageDays <= trendWindowDays:
			olderSum += entry.Valence
			olderCount++
		}

		if entry.CreatedAt.After(lastEntryAt) {
			lastEntryAt = entry.CreatedAt
		}
	}

	// Degenerate case: every weight underflowed to zero. Treat exactly like
	// an empty cell rather than dividing by zero.
	if totalWeight <= 0 || !isFinite(totalWeight) {
		log.Printf("[AggregationEngine] cell %s: total weight degenerate (%v), dropping aggregate", cellID, totalWeight)
		if err := e.aggregates.Delete(ctx, cellID); err != nil {
			return nil, err
		}
		return nil, nil
	}

	// Dominant kind: largest weight, ties broken by first-encountered kind
	// in entry order. Callers must not assume stability across re-ordered
	// input.
	dominant := kindOrder[0]
	for _, kind := range kindOrder[1:] {
		if kindWeight[kind] > kindWeight[dominant] {
			dominant = kind
		}
	}

	distribution := make(map[string]float64, len(kindOrder))
	orderedWeights := make([]float64, 0, len(kindOrder))
	for _, kind := range kindOrder {
		w := kindWeight[kind]
		if w <= 0 {
			continue
		}
		distribution[kind] = 100 * w / totalWeight
		orderedWeights = append(orderedWeights, w)
	}

	// NormalizedEntropy returns 0 for a single kind, so a one-kind cell
	// gets coherence 1 without a NaN branch.
	coherence := 1 - stats.NormalizedEntropy(orderedWeights)

	trend := 0.0
	if recentCount > 0 && olderCount > 0 {
		avgRecent := recentSum / float64(recentCount)
		avgOlder := olderSum / float64(olderCount)
		trend = clamp((avgRecent-avgOlder)*trendGain, -1, 1)
	}

	aggregate := &models.CellAggregate{
		CellID:          cellID,
		DominantEmotion: dominant,
		MeanValence:     weightedValence / totalWeight,
		MeanIntensity:   weightedIntensity / totalWeight,
		Distribution:    distribution,
		Coherence:       coherence,
		Trend:           trend,
		EntryCount:      len(live),
		LastEntryAt:     lastEntryAt,
		UpdatedAt:       now,
	}

	if err := e.aggregates.Upsert(ctx, aggregate); err != nil {
		return nil, err
	}
	return aggregate, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
