package service

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/moodmap-backend-go/internal/config"
	"github.com/jengzang/moodmap-backend-go/internal/database"
	"github.com/jengzang/moodmap-backend-go/internal/emotion"
	"github.com/jengzang/moodmap-backend-go/internal/models"
	"github.com/jengzang/moodmap-backend-go/internal/repository"
	"github.com/jengzang/moodmap-backend-go/internal/spatial"
)

type recordingTrigger struct {
	cells []string
}

func (r *recordingTrigger) Trigger(cellID string) {
	r.cells = append(r.cells, cellID)
}

func testConfig() *config.Config {
	return &config.Config{
		SpatialResolution:        10,
		SmoothingResolution:      9,
		TileCellLimit:            1000,
		HalfLifeDays:             30,
		TrustMin:                 0.5,
		TrustMax:                 1.5,
		VolatileTTLHoursDefault:  24,
		SubmissionsPerHour:       10,
		SubmissionsPerCellPerDay: 3,
	}
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestSubmissionService(t *testing.T, clock clockwork.Clock) (*SubmissionService, *recordingTrigger) {
	t.Helper()
	trigger := &recordingTrigger{}
	entries := repository.NewEntryRepository(openTestDB(t))
	svc := NewSubmissionService(entries, emotion.NewDefaultCatalog(), testConfig(), clock, trigger)
	return svc, trigger
}

func validRequest(t *testing.T) models.SubmitEmotionRequest {
	t.Helper()
	cellID, err := spatial.PointToCell(52.52, 13.405, 10)
	require.NoError(t, err)
	return models.SubmitEmotionRequest{
		CellID:       cellID,
		Kind:         "JOY",
		Intensity:    70,
		DwellSeconds: 300,
		GPSAccuracy:  12,
	}
}

func TestSubmitPersistsEntryAndTriggersRecompute(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC))
	svc, trigger := newTestSubmissionService(t, clock)
	req := validRequest(t)

	entry, err := svc.Submit(context.Background(), "user-1", req)
	require.NoError(t, err)

	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, "user-1", entry.UserID)
	assert.Equal(t, req.CellID, entry.CellID)
	assert.Equal(t, "JOY", entry.Kind)
	assert.Equal(t, models.VisibilityPublic, entry.Visibility)
	assert.Nil(t, entry.ExpiresAt)
	assert.Equal(t, []string{req.CellID}, trigger.cells)

	stored, err := svc.entries.GetByID(context.Background(), entry.ID)
	require.NoError(t, err)
	assert.Equal(t, entry.Kind, stored.Kind)
}

func TestSubmitFreezesValenceFromCatalog(t *testing.T) {
	svc, _ := newTestSubmissionService(t, clockwork.NewRealClock())
	req := validRequest(t)
	req.Kind = "ANGER"

	entry, err := svc.Submit(context.Background(), "user-1", req)
	require.NoError(t, err)
	assert.InDelta(t, -0.8, entry.Valence, 1e-9)
}

func TestSubmitDerivesCellFromCoordinates(t *testing.T) {
	svc, trigger := newTestSubmissionService(t, clockwork.NewRealClock())
	lat, lng := 48.8566, 2.3522
	req := models.SubmitEmotionRequest{
		Lat:          &lat,
		Lng:          &lng,
		Kind:         "CALM",
		Intensity:    40,
		DwellSeconds: 120,
		GPSAccuracy:  8,
	}

	entry, err := svc.Submit(context.Background(), "user-1", req)
	require.NoError(t, err)

	want, err := spatial.PointToCell(lat, lng, 10)
	require.NoError(t, err)
	assert.Equal(t, want, entry.CellID)
	assert.Equal(t, []string{want}, trigger.cells)
}

func TestSubmitRejectsWrongResolutionCell(t *testing.T) {
	svc, _ := newTestSubmissionService(t, clockwork.NewRealClock())
	req := validRequest(t)
	coarse, err := spatial.PointToCell(52.52, 13.405, 5)
	require.NoError(t, err)
	req.CellID = coarse

	_, err = svc.Submit(context.Background(), "user-1", req)
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "cell_id", verr.Field)
}

func TestSubmitValidation(t *testing.T) {
	svc, trigger := newTestSubmissionService(t, clockwork.NewRealClock())

	tests := []struct {
		name   string
		mutate func(*models.SubmitEmotionRequest)
		field  string
	}{
		{"unknown kind", func(r *models.SubmitEmotionRequest) { r.Kind = "EUPHORIA" }, "kind"},
		{"intensity too high", func(r *models.SubmitEmotionRequest) { r.Intensity = 101 }, "intensity"},
		{"negative dwell", func(r *models.SubmitEmotionRequest) { r.DwellSeconds = -1 }, "dwell_seconds"},
		{"zero gps accuracy", func(r *models.SubmitEmotionRequest) { r.GPSAccuracy = 0 }, "gps_accuracy"},
		{"too many tags", func(r *models.SubmitEmotionRequest) {
			for i := 0; i < 11; i++ {
				r.Tags = append(r.Tags, "tag")
			}
		}, "tags"},
		{"empty tag", func(r *models.SubmitEmotionRequest) { r.Tags = []string{""} }, "tags"},
		{"bad visibility", func(r *models.SubmitEmotionRequest) { r.Visibility = "FRIENDS" }, "visibility"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest(t)
			tt.mutate(&req)

			_, err := svc.Submit(context.Background(), "user-1", req)
			var verr *models.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
	assert.Empty(t, trigger.cells)
}

func TestSubmitNoteLengthLimit(t *testing.T) {
	svc, _ := newTestSubmissionService(t, clockwork.NewRealClock())
	req := validRequest(t)
	for len(req.Note) <= maxNoteLength {
		req.Note += "aaaaaaaaaa"
	}

	_, err := svc.Submit(context.Background(), "user-1", req)
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "note", verr.Field)
}

func TestSubmitPerCellDailyLimit(t *testing.T) {
	svc, _ := newTestSubmissionService(t, clockwork.NewRealClock())
	req := validRequest(t)

	for i := 0; i < 3; i++ {
		_, err := svc.Submit(context.Background(), "user-1", req)
		require.NoError(t, err)
	}

	_, err := svc.Submit(context.Background(), "user-1", req)
	var rerr *models.RateLimitError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "cell_per_day", rerr.Scope)
	assert.Equal(t, 3, rerr.Limit)

	// A different cell is still allowed.
	other := validRequest(t)
	cellID, cerr := spatial.PointToCell(52.53, 13.42, 10)
	require.NoError(t, cerr)
	other.CellID = cellID
	_, err = svc.Submit(context.Background(), "user-1", other)
	require.NoError(t, err)

	// Other users keep their own budget.
	_, err = svc.Submit(context.Background(), "user-2", req)
	require.NoError(t, err)
}

func TestSubmitHourlyLimit(t *testing.T) {
	svc, _ := newTestSubmissionService(t, clockwork.NewRealClock())

	// Spread across cells to stay under the per-cell cap.
	points := [][2]float64{
		{52.50, 13.30}, {52.51, 13.32}, {52.52, 13.34}, {52.53, 13.36},
		{52.54, 13.38}, {52.55, 13.40}, {52.56, 13.42}, {52.57, 13.44},
		{52.58, 13.46}, {52.59, 13.48},
	}
	for _, p := range points {
		req := validRequest(t)
		cellID, err := spatial.PointToCell(p[0], p[1], 10)
		require.NoError(t, err)
		req.CellID = cellID
		_, err = svc.Submit(context.Background(), "user-1", req)
		require.NoError(t, err)
	}

	req := validRequest(t)
	cellID, err := spatial.PointToCell(52.60, 13.50, 10)
	require.NoError(t, err)
	req.CellID = cellID
	_, err = svc.Submit(context.Background(), "user-1", req)
	var rerr *models.RateLimitError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "user_per_hour", rerr.Scope)
}

func TestSubmitVolatileDefaultTTL(t *testing.T) {
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	svc, _ := newTestSubmissionService(t, clockwork.NewFakeClockAt(now))
	req := validRequest(t)
	req.Volatile = true

	entry, err := svc.Submit(context.Background(), "user-1", req)
	require.NoError(t, err)
	require.NotNil(t, entry.ExpiresAt)
	assert.Equal(t, now.Add(24*time.Hour), *entry.ExpiresAt)
}

func TestSubmitTTLClampedToOneWeek(t *testing.T) {
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	svc, _ := newTestSubmissionService(t, clockwork.NewFakeClockAt(now))
	req := validRequest(t)
	req.TTLHours = 500

	entry, err := svc.Submit(context.Background(), "user-1", req)
	require.NoError(t, err)
	require.NotNil(t, entry.ExpiresAt)
	assert.Equal(t, now.Add(168*time.Hour), *entry.ExpiresAt)
}
