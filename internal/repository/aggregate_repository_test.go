package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/moodmap-backend-go/internal/models"
)

func sampleAggregate(cellID string) *models.CellAggregate {
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	return &models.CellAggregate{
		CellID:          cellID,
		DominantEmotion: "JOY",
		MeanValence:     0.42,
		MeanIntensity:   61.5,
		Distribution:    map[string]float64{"JOY": 70, "CALM": 30},
		Coherence:       0.88,
		Trend:           0.15,
		EntryCount:      7,
		LastEntryAt:     now.Add(-time.Hour),
		UpdatedAt:       now,
	}
}

func TestAggregateUpsertInsertsThenReplaces(t *testing.T) {
	repo := NewAggregateRepository(openDB(t))
	a := sampleAggregate("cell-a")
	require.NoError(t, repo.Upsert(context.Background(), a))

	got, err := repo.Get(context.Background(), "cell-a")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, a.DominantEmotion, got.DominantEmotion)
	assert.Equal(t, a.Distribution, got.Distribution)
	assert.Equal(t, a.LastEntryAt, got.LastEntryAt)

	a.DominantEmotion = "SADNESS"
	a.MeanValence = -0.3
	a.EntryCount = 9
	require.NoError(t, repo.Upsert(context.Background(), a))

	got, err = repo.Get(context.Background(), "cell-a")
	require.NoError(t, err)
	assert.Equal(t, "SADNESS", got.DominantEmotion)
	assert.InDelta(t, -0.3, got.MeanValence, 1e-9)
	assert.Equal(t, 9, got.EntryCount)
}

func TestAggregateGetAbsentReturnsNil(t *testing.T) {
	repo := NewAggregateRepository(openDB(t))
	got, err := repo.Get(context.Background(), "cell-a")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestAggregateGetMany(t *testing.T) {
	repo := NewAggregateRepository(openDB(t))
	require.NoError(t, repo.Upsert(context.Background(), sampleAggregate("cell-a")))
	require.NoError(t, repo.Upsert(context.Background(), sampleAggregate("cell-b")))

	got, err := repo.GetMany(context.Background(), []string{"cell-a", "cell-b", "cell-missing"})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Contains(t, got, "cell-a")
	assert.Contains(t, got, "cell-b")
	assert.NotContains(t, got, "cell-missing")

	empty, err := repo.GetMany(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestAggregateDeleteIsIdempotent(t *testing.T) {
	repo := NewAggregateRepository(openDB(t))
	require.NoError(t, repo.Upsert(context.Background(), sampleAggregate("cell-a")))

	require.NoError(t, repo.Delete(context.Background(), "cell-a"))
	got, err := repo.Get(context.Background(), "cell-a")
	require.NoError(t, err)
	assert.Nil(t, got)

	// Deleting again is not an error.
	require.NoError(t, repo.Delete(context.Background(), "cell-a"))
}
