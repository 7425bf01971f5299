package service

import (
	"context"

	"github.com/jengzang/moodmap-backend-go/internal/models"
	"github.com/jengzang/moodmap-backend-go/internal/repository"
)

// EntryService handles a user's own entries: listing and deletion
type EntryService struct {
	entries *repository.EntryRepository
	trigger RecomputeTrigger
}

// NewEntryService creates a new entry service
func NewEntryService(entries *repository.EntryRepository, trigger RecomputeTrigger) *EntryService {
	return &EntryService{entries: entries, trigger: trigger}
}

// List retrieves the user's entries with filtering and pagination
func (s *EntryService) List(ctx context.Context, userID string, filter models.EntryFilter) (*models.EntriesResponse, error) {
	entries, total, err := s.entries.ListByUser(ctx, userID, filter)
	if err != nil {
		return nil, err
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))

	return &models.EntriesResponse{
		Data:       entries,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// Delete removes one of the user's entries and re-triggers aggregation for
// its cell. Entries owned by other users are reported as not found rather
// than forbidden, so existence is not leaked.
func (s *EntryService) Delete(ctx context.Context, userID, entryID string) error {
	entry, err := s.entries.GetByID(ctx, entryID)
	if err != nil {
		return err
	}
	if entry.UserID != userID {
		return models.ErrEntryNotFound
	}

	if err := s.entries.Delete(ctx, entryID); err != nil {
		return err
	}

	s.trigger.Trigger(entry.CellID)
	return nil
}
