package aggregation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/moodmap-backend-go/internal/models"
)

type stubEntries struct {
	entries []models.EmotionEntry
	err     error
}

func (s *stubEntries) LiveByCell(_ context.Context, cellID string, now time.Time) ([]models.EmotionEntry, error) {
	if s.err != nil {
		return nil, s.err
	}
	var live []models.EmotionEntry
	for _, e := range s.entries {
		if e.CellID == cellID && e.Live(now) {
			live = append(live, e)
		}
	}
	return live, nil
}

type stubAggregates struct {
	stored  map[string]models.CellAggregate
	deletes int
}

func newStubAggregates() *stubAggregates {
	return &stubAggregates{stored: make(map[string]models.CellAggregate)}
}

func (s *stubAggregates) Upsert(_ context.Context, a *models.CellAggregate) error {
	s.stored[a.CellID] = *a
	return nil
}

func (s *stubAggregates) Delete(_ context.Context, cellID string) error {
	s.deletes++
	delete(s.stored, cellID)
	return nil
}

type stubTrust map[string]float64

func (s stubTrust) Trust(_ context.Context, userID string) (float64, error) {
	if t, ok := s[userID]; ok {
		return t, nil
	}
	return 1.0, nil
}

var testTime = time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)

func newTestEngine(entries *stubEntries, aggregates *stubAggregates, trust stubTrust) *Engine {
	return NewEngine(entries, aggregates, trust, Config{
		HalfLifeDays: 30,
		TrustMin:     0.5,
		TrustMax:     1.5,
	}, clockwork.NewFakeClockAt(testTime))
}

// entry builds a fully weighted entry: dwell 300s gives presence weight 1.
func entry(cellID, kind string, valence float64, intensity int, age time.Duration) models.EmotionEntry {
	return models.EmotionEntry{
		ID:           kind + age.String(),
		UserID:       "user-1",
		CellID:       cellID,
		Kind:         kind,
		Intensity:    intensity,
		Valence:      valence,
		DwellSeconds: 300,
		GPSAccuracy:  10,
		Visibility:   models.VisibilityPublic,
		CreatedAt:    testTime.Add(-age),
	}
}

func TestRecomputeDistributionAndDominant(t *testing.T) {
	entries := &stubEntries{entries: []models.EmotionEntry{
		entry("cell-1", "JOY", 0.9, 80, 0),
		entry("cell-1", "JOY", 0.9, 60, time.Minute),
		entry("cell-1", "SADNESS", -0.7, 40, 2*time.Minute),
	}}
	aggregates := newStubAggregates()
	engine := newTestEngine(entries, aggregates, stubTrust{})

	a, err := engine.Recompute(context.Background(), "cell-1")
	require.NoError(t, err)
	require.NotNil(t, a)

	assert.Equal(t, "JOY", a.DominantEmotion)
	assert.InDelta(t, 66.7, a.Distribution["JOY"], 0.2)
	assert.InDelta(t, 33.3, a.Distribution["SADNESS"], 0.2)

	var sum float64
	for _, pct := range a.Distribution {
		sum += pct
	}
	assert.InDelta(t, 100, sum, 1e-9)

	assert.Greater(t, a.Coherence, 0.0)
	assert.Less(t, a.Coherence, 1.0)
	assert.Equal(t, 3, a.EntryCount)

	stored, ok := aggregates.stored["cell-1"]
	require.True(t, ok)
	assert.Equal(t, *a, stored)
}

func TestRecomputeSingleKindCoherenceIsOne(t *testing.T) {
	entries := &stubEntries{entries: []models.EmotionEntry{
		entry("cell-1", "CALM", 0.6, 50, 0),
		entry("cell-1", "CALM", 0.6, 70, time.Hour),
	}}
	engine := newTestEngine(entries, newStubAggregates(), stubTrust{})

	a, err := engine.Recompute(context.Background(), "cell-1")
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, 1.0, a.Coherence)
}

func TestRecomputeEmptyCellDeletesAggregate(t *testing.T) {
	aggregates := newStubAggregates()
	aggregates.stored["cell-1"] = models.CellAggregate{CellID: "cell-1"}
	engine := newTestEngine(&stubEntries{}, aggregates, stubTrust{})

	a, err := engine.Recompute(context.Background(), "cell-1")
	require.NoError(t, err)
	assert.Nil(t, a)
	assert.Empty(t, aggregates.stored)
	assert.Equal(t, 1, aggregates.deletes)
}

func TestRecomputeExcludesExpiredBeforeSweep(t *testing.T) {
	expired := entry("cell-1", "ANGER", -0.8, 90, time.Hour)
	past := testTime.Add(-time.Minute)
	expired.ExpiresAt = &past

	entries := &stubEntries{entries: []models.EmotionEntry{
		entry("cell-1", "JOY", 0.9, 80, 0),
		expired,
	}}
	engine := newTestEngine(entries, newStubAggregates(), stubTrust{})

	a, err := engine.Recompute(context.Background(), "cell-1")
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, 1, a.EntryCount)
	assert.Equal(t, "JOY", a.DominantEmotion)
	assert.NotContains(t, a.Distribution, "ANGER")
}

func TestRecomputeAllExpiredDeletesAggregate(t *testing.T) {
	expired := entry("cell-1", "JOY", 0.9, 80, 48*time.Hour)
	past := testTime.Add(-time.Second)
	expired.ExpiresAt = &past

	aggregates := newStubAggregates()
	aggregates.stored["cell-1"] = models.CellAggregate{CellID: "cell-1", DominantEmotion: "JOY"}
	engine := newTestEngine(&stubEntries{entries: []models.EmotionEntry{expired}}, aggregates, stubTrust{})

	a, err := engine.Recompute(context.Background(), "cell-1")
	require.NoError(t, err)
	assert.Nil(t, a)
	assert.Empty(t, aggregates.stored)
}

func TestRecomputeRecencyHalfLife(t *testing.T) {
	// A 60-day-old entry at half-life 30 carries ~0.25 of a fresh entry's
	// weight, so the fresh kind takes ~80% of the distribution.
	entries := &stubEntries{entries: []models.EmotionEntry{
		entry("cell-1", "JOY", 0.9, 80, 0),
		entry("cell-1", "SADNESS", -0.7, 40, 60*24*time.Hour),
	}}
	engine := newTestEngine(entries, newStubAggregates(), stubTrust{})

	a, err := engine.Recompute(context.Background(), "cell-1")
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.InDelta(t, 80, a.Distribution["JOY"], 0.1)
	assert.InDelta(t, 20, a.Distribution["SADNESS"], 0.1)
}

func TestRecomputeTrustWeighting(t *testing.T) {
	low := entry("cell-1", "SADNESS", -0.7, 40, 0)
	low.UserID = "low-trust"
	high := entry("cell-1", "JOY", 0.9, 80, 0)
	high.UserID = "high-trust"

	entries := &stubEntries{entries: []models.EmotionEntry{low, high}}
	// Stored trust outside the bounds must be clamped to [0.5, 1.5].
	trust := stubTrust{"low-trust": 0.1, "high-trust": 9.0}
	engine := newTestEngine(entries, newStubAggregates(), trust)

	a, err := engine.Recompute(context.Background(), "cell-1")
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, "JOY", a.DominantEmotion)
	assert.InDelta(t, 75, a.Distribution["JOY"], 0.1) // 1.5 / (1.5 + 0.5)
	assert.InDelta(t, 25, a.Distribution["SADNESS"], 0.1)
}

func TestRecomputePresenceWeightCapped(t *testing.T) {
	short := entry("cell-1", "JOY", 0.9, 80, 0)
	short.DwellSeconds = 150 // presence 0.5
	long := entry("cell-1", "SADNESS", -0.7, 40, 0)
	long.DwellSeconds = 3600 // capped at presence 2.0

	entries := &stubEntries{entries: []models.EmotionEntry{short, long}}
	engine := newTestEngine(entries, newStubAggregates(), stubTrust{})

	a, err := engine.Recompute(context.Background(), "cell-1")
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, "SADNESS", a.DominantEmotion)
	assert.InDelta(t, 80, a.Distribution["SADNESS"], 0.1) // 2.0 / 2.5
	assert.InDelta(t, 20, a.Distribution["JOY"], 0.1)
}

func TestRecomputeZeroTotalWeightTreatedAsEmpty(t *testing.T) {
	zeroDwell := entry("cell-1", "JOY", 0.9, 80, 0)
	zeroDwell.DwellSeconds = 0

	aggregates := newStubAggregates()
	aggregates.stored["cell-1"] = models.CellAggregate{CellID: "cell-1"}
	engine := newTestEngine(&stubEntries{entries: []models.EmotionEntry{zeroDwell}}, aggregates, stubTrust{})

	a, err := engine.Recompute(context.Background(), "cell-1")
	require.NoError(t, err)
	assert.Nil(t, a)
	assert.Empty(t, aggregates.stored)
}

func TestRecomputeDominantTieBreakFirstEncountered(t *testing.T) {
	entries := &stubEntries{entries: []models.EmotionEntry{
		entry("cell-1", "ANXIETY", -0.6, 50, 0),
		entry("cell-1", "JOY", 0.9, 50, 0),
	}}
	engine := newTestEngine(entries, newStubAggregates(), stubTrust{})

	a, err := engine.Recompute(context.Background(), "cell-1")
	require.NoError(t, err)
	require.NotNil(t, a)
	// Equal weights: the kind seen first in entry order wins.
	assert.Equal(t, "ANXIETY", a.DominantEmotion)
}

func TestRecomputeTrend(t *testing.T) {
	entries := &stubEntries{entries: []models.EmotionEntry{
		entry("cell-1", "JOY", 0.9, 80, 24*time.Hour), // recent window
		entry("cell-1", "SADNESS", -0.7, 40, 10*24*time.Hour), // older window
	}}
	engine := newTestEngine(entries, newStubAggregates(), stubTrust{})

	a, err := engine.Recompute(context.Background(), "cell-1")
	require.NoError(t, err)
	require.NotNil(t, a)
	// (0.9 - (-0.7)) * 2 clamps to 1.
	assert.Equal(t, 1.0, a.Trend)
}

func TestRecomputeTrendZeroWhenWindowEmpty(t *testing.T) {
	entries := &stubEntries{entries: []models.EmotionEntry{
		entry("cell-1", "JOY", 0.9, 80, time.Hour),
		entry("cell-1", "CALM", 0.6, 50, 2*time.Hour),
	}}
	engine := newTestEngine(entries, newStubAggregates(), stubTrust{})

	a, err := engine.Recompute(context.Background(), "cell-1")
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, 0.0, a.Trend)
}

func TestRecomputeIdempotent(t *testing.T) {
	entries := &stubEntries{entries: []models.EmotionEntry{
		entry("cell-1", "JOY", 0.9, 80, 3*24*time.Hour),
		entry("cell-1", "SADNESS", -0.7, 40, 12*24*time.Hour),
		entry("cell-1", "CALM", 0.6, 50, time.Hour),
	}}
	engine := newTestEngine(entries, newStubAggregates(), stubTrust{})

	first, err := engine.Recompute(context.Background(), "cell-1")
	require.NoError(t, err)
	second, err := engine.Recompute(context.Background(), "cell-1")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestRecomputeBookkeeping(t *testing.T) {
	newest := entry("cell-1", "JOY", 0.9, 80, time.Hour)
	entries := &stubEntries{entries: []models.EmotionEntry{
		entry("cell-1", "CALM", 0.6, 50, 48*time.Hour),
		newest,
	}}
	engine := newTestEngine(entries, newStubAggregates(), stubTrust{})

	a, err := engine.Recompute(context.Background(), "cell-1")
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, newest.CreatedAt, a.LastEntryAt)
	assert.Equal(t, testTime, a.UpdatedAt)
}

func TestRecomputePropagatesFetchError(t *testing.T) {
	storeErr := errors.New("connection lost")
	aggregates := newStubAggregates()
	aggregates.stored["cell-1"] = models.CellAggregate{CellID: "cell-1"}
	engine := newTestEngine(&stubEntries{err: storeErr}, aggregates, stubTrust{})

	_, err := engine.Recompute(context.Background(), "cell-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, storeErr)
	// No partial write or delete on failure.
	assert.Contains(t, aggregates.stored, "cell-1")
}
