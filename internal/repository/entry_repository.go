package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jengzang/moodmap-backend-go/internal/models"
)

// fetchBatchSize bounds a single recompute fetch; cells with more live
// entries are read in successive batches.
const fetchBatchSize = 1000

// EntryRepository handles database operations for emotion entries
type EntryRepository struct {
	db *sql.DB
}

// NewEntryRepository creates a new entry repository
func NewEntryRepository(db *sql.DB) *EntryRepository {
	return &EntryRepository{db: db}
}

const entryColumns = `id, user_id, cell_id, kind, intensity, valence, note, tags,
	dwell_seconds, gps_accuracy, visibility, created_at, expires_at`

// Insert persists a new entry
func (r *EntryRepository) Insert(ctx context.Context, e *models.EmotionEntry) error {
	tags, err := json.Marshal(e.Tags)
	if err != nil {
		return &models.StoreError{Op: "insert entry", Err: err}
	}

	var expiresAt interface{}
	if e.ExpiresAt != nil {
		expiresAt = e.ExpiresAt.Unix()
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO emotion_entries (`+entryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.CellID, e.Kind, e.Intensity, e.Valence, e.Note, string(tags),
		e.DwellSeconds, e.GPSAccuracy, e.Visibility, e.CreatedAt.Unix(), expiresAt,
	)
	if err != nil {
		return &models.StoreError{Op: "insert entry", Err: err}
	}
	return nil
}

// GetByID retrieves a single entry by ID
func (r *EntryRepository) GetByID(ctx context.Context, id string) (*models.EmotionEntry, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+entryColumns+` FROM emotion_entries WHERE id = ?`, id)

	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrEntryNotFound
	}
	if err != nil {
		return nil, &models.StoreError{Op: "get entry", Err: err}
	}
	return e, nil
}

// Delete removes an entry by ID
func (r *EntryRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM emotion_entries WHERE id = ?", id)
	if err != nil {
		return &models.StoreError{Op: "delete entry", Err: err}
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return &models.StoreError{Op: "delete entry", Err: err}
	}
	if affected == 0 {
		return models.ErrEntryNotFound
	}
	return nil
}

// LiveByCell retrieves all non-expired entries for a cell in deterministic
// order (created_at, then id). Fetches in batches so one hot cell cannot
// load an unbounded result set in a single query.
func (r *EntryRepository) LiveByCell(ctx context.Context, cellID string, now time.Time) ([]models.EmotionEntry, error) {
	var entries []models.EmotionEntry
	offset := 0

	for {
		rows, err := r.db.QueryContext(ctx, `
			SELECT `+entryColumns+` FROM emotion_entries
			WHERE cell_id = ? AND (expires_at IS NULL OR expires_at > ?)
			ORDER BY created_at ASC, id ASC
			LIMIT ? OFFSET ?`,
			cellID, now.Unix(), fetchBatchSize, offset,
		)
		if err != nil {
			return nil, &models.StoreError{Op: "query live entries", Err: err}
		}

		batch, err := scanEntries(rows)
		rows.Close()
		if err != nil {
			return nil, &models.StoreError{Op: "query live entries", Err: err}
		}

		entries = append(entries, batch...)
		if len(batch) < fetchBatchSize {
			return entries, nil
		}
		offset += fetchBatchSize
	}
}

// CountForCellSince counts a user's entries in one cell created at or after
// the given instant. Used for the per-cell daily cap.
func (r *EntryRepository) CountForCellSince(ctx context.Context, userID, cellID string, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM emotion_entries
		WHERE user_id = ? AND cell_id = ? AND created_at >= ?`,
		userID, cellID, since.Unix(),
	).Scan(&count)
	if err != nil {
		return 0, &models.StoreError{Op: "count cell submissions", Err: err}
	}
	return count, nil
}

// CountForUserSince counts all of a user's entries created at or after the
// given instant. Used for the global hourly cap.
func (r *EntryRepository) CountForUserSince(ctx context.Context, userID string, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM emotion_entries
		WHERE user_id = ? AND created_at >= ?`,
		userID, since.Unix(),
	).Scan(&count)
	if err != nil {
		return 0, &models.StoreError{Op: "count user submissions", Err: err}
	}
	return count, nil
}

// ListByUser retrieves a user's entries with filtering and pagination
func (r *EntryRepository) ListByUser(ctx context.Context, userID string, filter models.EntryFilter) ([]models.EmotionEntry, int64, error) {
	conditions := "user_id = ?"
	args := []interface{}{userID}

	if filter.CellID != "" {
		conditions += " AND cell_id = ?"
		args = append(args, filter.CellID)
	}
	if filter.StartTime > 0 {
		conditions += " AND created_at >= ?"
		args = append(args, filter.StartTime)
	}
	if filter.EndTime > 0 {
		conditions += " AND created_at <= ?"
		args = append(args, filter.EndTime)
	}

	var total int64
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM emotion_entries WHERE "+conditions, args...).Scan(&total)
	if err != nil {
		return nil, 0, &models.StoreError{Op: "count user entries", Err: err}
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}

	query := fmt.Sprintf(`
		SELECT %s FROM emotion_entries WHERE %s
		ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`, entryColumns, conditions)
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, &models.StoreError{Op: "list user entries", Err: err}
	}
	defer rows.Close()

	entries, err := scanEntries(rows)
	if err != nil {
		return nil, 0, &models.StoreError{Op: "list user entries", Err: err}
	}
	return entries, total, nil
}

// DeleteExpired removes all entries past their expiration and returns the
// number removed plus the distinct cells that lost at least one entry.
func (r *EntryRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, []string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT cell_id FROM emotion_entries
		WHERE expires_at IS NOT NULL AND expires_at <= ?`, now.Unix())
	if err != nil {
		return 0, nil, &models.StoreError{Op: "scan expired entries", Err: err}
	}

	var cells []string
	for rows.Next() {
		var cellID string
		if err := rows.Scan(&cellID); err != nil {
			rows.Close()
			return 0, nil, &models.StoreError{Op: "scan expired entries", Err: err}
		}
		cells = append(cells, cellID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, nil, &models.StoreError{Op: "scan expired entries", Err: err}
	}

	res, err := r.db.ExecContext(ctx, `
		DELETE FROM emotion_entries
		WHERE expires_at IS NOT NULL AND expires_at <= ?`, now.Unix())
	if err != nil {
		return 0, nil, &models.StoreError{Op: "delete expired entries", Err: err}
	}

	removed, err := res.RowsAffected()
	if err != nil {
		return 0, nil, &models.StoreError{Op: "delete expired entries", Err: err}
	}
	return removed, cells, nil
}

// CountByUserBetween counts a user's entries inside a time window
func (r *EntryRepository) CountByUserBetween(ctx context.Context, userID string, from, to time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM emotion_entries
		WHERE user_id = ? AND created_at >= ? AND created_at < ?`,
		userID, from.Unix(), to.Unix(),
	).Scan(&count)
	if err != nil {
		return 0, &models.StoreError{Op: "count entries in window", Err: err}
	}
	return count, nil
}

// DistinctCellsByUserBetween counts the distinct cells a user submitted to
// inside a time window
func (r *EntryRepository) DistinctCellsByUserBetween(ctx context.Context, userID string, from, to time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT cell_id) FROM emotion_entries
		WHERE user_id = ? AND created_at >= ? AND created_at < ?`,
		userID, from.Unix(), to.Unix(),
	).Scan(&count)
	if err != nil {
		return 0, &models.StoreError{Op: "count distinct cells in window", Err: err}
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row rowScanner) (*models.EmotionEntry, error) {
	var e models.EmotionEntry
	var tagsJSON string
	var createdAt int64
	var expiresAt sql.NullInt64

	err := row.Scan(&e.ID, &e.UserID, &e.CellID, &e.Kind, &e.Intensity, &e.Valence,
		&e.Note, &tagsJSON, &e.DwellSeconds, &e.GPSAccuracy, &e.Visibility,
		&createdAt, &expiresAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(tagsJSON), &e.Tags); err != nil {
		return nil, fmt.Errorf("failed to decode tags for entry %s: %w", e.ID, err)
	}
	e.CreatedAt = time.Unix(createdAt, 0).UTC()
	if expiresAt.Valid {
		t := time.Unix(expiresAt.Int64, 0).UTC()
		e.ExpiresAt = &t
	}
	return &e, nil
}

func scanEntries(rows *sql.Rows) ([]models.EmotionEntry, error) {
	var entries []models.EmotionEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}
