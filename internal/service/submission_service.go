package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/jengzang/moodmap-backend-go/internal/config"
	"github.com/jengzang/moodmap-backend-go/internal/emotion"
	"github.com/jengzang/moodmap-backend-go/internal/metrics"
	"github.com/jengzang/moodmap-backend-go/internal/models"
	"github.com/jengzang/moodmap-backend-go/internal/repository"
	"github.com/jengzang/moodmap-backend-go/internal/spatial"
)

// Input bounds for submissions.
const (
	maxTags       = 10
	maxTagLength  = 32
	maxNoteLength = 280
	minTTLHours   = 1
	maxTTLHours   = 168
)

// RecomputeTrigger schedules a debounced aggregate recompute for a cell.
type RecomputeTrigger interface {
	Trigger(cellID string)
}

// SubmissionService is the gate every new emotion entry passes through:
// validation, rate limiting, valence freezing and the recompute trigger.
type SubmissionService struct {
	entries *repository.EntryRepository
	catalog *emotion.Catalog
	cfg     *config.Config
	clock   clockwork.Clock
	trigger RecomputeTrigger
}

// NewSubmissionService creates a new submission service
func NewSubmissionService(entries *repository.EntryRepository, catalog *emotion.Catalog, cfg *config.Config, clock clockwork.Clock, trigger RecomputeTrigger) *SubmissionService {
	return &SubmissionService{
		entries: entries,
		catalog: catalog,
		cfg:     cfg,
		clock:   clock,
		trigger: trigger,
	}
}

// Submit validates and persists a new emotion entry, then schedules a
// recompute for its cell. A trigger failure never fails the submission; the
// scheduler catches up on a later pass.
func (s *SubmissionService) Submit(ctx context.Context, userID string, req models.SubmitEmotionRequest) (*models.EmotionEntry, error) {
	now := s.clock.Now()

	cellID, err := s.resolveCell(req)
	if err != nil {
		metrics.SubmissionsTotal.WithLabelValues(metrics.ResultValidation).Inc()
		return nil, err
	}

	if err := s.validate(&req); err != nil {
		metrics.SubmissionsTotal.WithLabelValues(metrics.ResultValidation).Inc()
		return nil, err
	}

	if err := s.checkRateLimits(ctx, userID, cellID, now); err != nil {
		if _, ok := err.(*models.RateLimitError); ok {
			metrics.SubmissionsTotal.WithLabelValues(metrics.ResultRateLimited).Inc()
		} else {
			metrics.SubmissionsTotal.WithLabelValues(metrics.ResultError).Inc()
		}
		return nil, err
	}

	// Valence is frozen at creation time; later catalog changes never
	// rewrite stored entries.
	valence, _ := s.catalog.Valence(req.Kind)

	visibility := req.Visibility
	if visibility == "" {
		visibility = models.VisibilityPublic
	}

	entry := &models.EmotionEntry{
		ID:           uuid.NewString(),
		UserID:       userID,
		CellID:       cellID,
		Kind:         req.Kind,
		Intensity:    req.Intensity,
		Valence:      valence,
		Note:         req.Note,
		Tags:         req.Tags,
		DwellSeconds: req.DwellSeconds,
		GPSAccuracy:  req.GPSAccuracy,
		Visibility:   visibility,
		CreatedAt:    now.UTC(),
		ExpiresAt:    s.expiry(req, now),
	}

	if err := s.entries.Insert(ctx, entry); err != nil {
		metrics.SubmissionsTotal.WithLabelValues(metrics.ResultError).Inc()
		return nil, err
	}

	metrics.SubmissionsTotal.WithLabelValues(metrics.ResultOK).Inc()
	s.trigger.Trigger(cellID)
	return entry, nil
}

// resolveCell returns the target cell, either validating the one the client
// sent or deriving it from coordinates at the configured submission
// resolution.
func (s *SubmissionService) resolveCell(req models.SubmitEmotionRequest) (string, error) {
	if req.CellID != "" {
		if !spatial.IsValidCell(req.CellID) {
			return "", models.NewValidationError("cell_id", "not a valid cell identifier")
		}
		res, err := spatial.Resolution(req.CellID)
		if err != nil || res != s.cfg.SpatialResolution {
			return "", models.NewValidationError("cell_id", "cell resolution does not match the submission resolution")
		}
		return req.CellID, nil
	}

	if req.Lat == nil || req.Lng == nil {
		return "", models.NewValidationError("cell_id", "either cell_id or lat/lng is required")
	}
	cellID, err := spatial.PointToCell(*req.Lat, *req.Lng, s.cfg.SpatialResolution)
	if err != nil {
		return "", models.NewValidationError("lat/lng", err.Error())
	}
	return cellID, nil
}

func (s *SubmissionService) validate(req *models.SubmitEmotionRequest) error {
	if !s.catalog.Has(req.Kind) {
		return models.NewValidationError("kind", "unknown emotion kind")
	}
	if req.Intensity < 0 || req.Intensity > 100 {
		return models.NewValidationError("intensity", "must be in [0,100]")
	}
	if req.DwellSeconds < 0 {
		return models.NewValidationError("dwell_seconds", "must be non-negative")
	}
	if req.GPSAccuracy <= 0 {
		return models.NewValidationError("gps_accuracy", "must be a positive number of meters")
	}
	if len(req.Note) > maxNoteLength {
		return models.NewValidationError("note", "too long")
	}
	if len(req.Tags) > maxTags {
		return models.NewValidationError("tags", "at most 10 tags")
	}
	for _, tag := range req.Tags {
		if tag == "" || len(tag) > maxTagLength {
			return models.NewValidationError("tags", "tags must be non-empty and short")
		}
	}
	if req.Visibility != "" && req.Visibility != models.VisibilityPublic && req.Visibility != models.VisibilityPrivate {
		return models.NewValidationError("visibility", "must be PUBLIC or PRIVATE")
	}
	if req.TTLHours < 0 {
		return models.NewValidationError("ttl_hours", "must be positive")
	}
	return nil
}

// checkRateLimits enforces the per-cell calendar-day cap and the global
// rolling-hour cap. The day boundary is the server's local midnight, not a
// rolling 24h window.
func (s *SubmissionService) checkRateLimits(ctx context.Context, userID, cellID string, now time.Time) error {
	local := now.In(time.Local)
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.Local)

	cellCount, err := s.entries.CountForCellSince(ctx, userID, cellID, dayStart)
	if err != nil {
		return err
	}
	if cellCount >= s.cfg.SubmissionsPerCellPerDay {
		return &models.RateLimitError{Scope: "cell_per_day", Limit: s.cfg.SubmissionsPerCellPerDay}
	}

	hourCount, err := s.entries.CountForUserSince(ctx, userID, now.Add(-time.Hour))
	if err != nil {
		return err
	}
	if hourCount >= s.cfg.SubmissionsPerHour {
		return &models.RateLimitError{Scope: "user_per_hour", Limit: s.cfg.SubmissionsPerHour}
	}
	return nil
}

// expiry computes the entry's expiration, if any. An explicit ttl_hours is
// clamped to [1,168]; the volatile flag without a ttl uses the configured
// default.
func (s *SubmissionService) expiry(req models.SubmitEmotionRequest, now time.Time) *time.Time {
	ttl := req.TTLHours
	if ttl == 0 {
		if !req.Volatile {
			return nil
		}
		ttl = s.cfg.VolatileTTLHoursDefault
	}

	if ttl < minTTLHours {
		ttl = minTTLHours
	}
	if ttl > maxTTLHours {
		ttl = maxTTLHours
	}

	expires := now.UTC().Add(time.Duration(ttl) * time.Hour)
	return &expires
}
