package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jengzang/moodmap-backend-go/internal/models"
)

// AggregateRepository handles database operations for cell aggregates
type AggregateRepository struct {
	db *sql.DB
}

// NewAggregateRepository creates a new aggregate repository
func NewAggregateRepository(db *sql.DB) *AggregateRepository {
	return &AggregateRepository{db: db}
}

const aggregateColumns = `cell_id, dominant_emotion, mean_valence, mean_intensity,
	distribution, coherence, trend, entry_count, last_entry_at, updated_at`

// Upsert atomically inserts or replaces the aggregate for a cell.
// Concurrent recomputes for the same cell resolve last-writer-wins.
func (r *AggregateRepository) Upsert(ctx context.Context, a *models.CellAggregate) error {
	distribution, err := json.Marshal(a.Distribution)
	if err != nil {
		return &models.StoreError{Op: "upsert aggregate", Err: err}
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO cell_aggregates (`+aggregateColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(cell_id) DO UPDATE SET
			dominant_emotion = excluded.dominant_emotion,
			mean_valence = excluded.mean_valence,
			mean_intensity = excluded.mean_intensity,
			distribution = excluded.distribution,
			coherence = excluded.coherence,
			trend = excluded.trend,
			entry_count = excluded.entry_count,
			last_entry_at = excluded.last_entry_at,
			updated_at = excluded.updated_at`,
		a.CellID, a.DominantEmotion, a.MeanValence, a.MeanIntensity,
		string(distribution), a.Coherence, a.Trend, a.EntryCount,
		a.LastEntryAt.Unix(), a.UpdatedAt.Unix(),
	)
	if err != nil {
		return &models.StoreError{Op: "upsert aggregate", Err: err}
	}
	return nil
}

// Get retrieves the aggregate for a cell, or nil if the cell has no stored
// aggregate
func (r *AggregateRepository) Get(ctx context.Context, cellID string) (*models.CellAggregate, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+aggregateColumns+` FROM cell_aggregates WHERE cell_id = ?`, cellID)

	a, err := scanAggregate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &models.StoreError{Op: "get aggregate", Err: err}
	}
	return a, nil
}

// GetMany retrieves aggregates for a set of cells, keyed by cell ID.
// Cells without a stored aggregate are simply absent from the result.
func (r *AggregateRepository) GetMany(ctx context.Context, cellIDs []string) (map[string]*models.CellAggregate, error) {
	result := make(map[string]*models.CellAggregate, len(cellIDs))
	if len(cellIDs) == 0 {
		return result, nil
	}

	placeholders := strings.Repeat("?,", len(cellIDs))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]interface{}, len(cellIDs))
	for i, id := range cellIDs {
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(
		"SELECT %s FROM cell_aggregates WHERE cell_id IN (%s)", aggregateColumns, placeholders), args...)
	if err != nil {
		return nil, &models.StoreError{Op: "get aggregates", Err: err}
	}
	defer rows.Close()

	for rows.Next() {
		a, err := scanAggregate(rows)
		if err != nil {
			return nil, &models.StoreError{Op: "get aggregates", Err: err}
		}
		result[a.CellID] = a
	}
	if err := rows.Err(); err != nil {
		return nil, &models.StoreError{Op: "get aggregates", Err: err}
	}
	return result, nil
}

// Delete removes the stored aggregate for a cell. Deleting a nonexistent
// aggregate is a no-op, which keeps recompute idempotent on empty cells.
func (r *AggregateRepository) Delete(ctx context.Context, cellID string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM cell_aggregates WHERE cell_id = ?", cellID)
	if err != nil {
		return &models.StoreError{Op: "delete aggregate", Err: err}
	}
	return nil
}

func scanAggregate(row rowScanner) (*models.CellAggregate, error) {
	var a models.CellAggregate
	var distribution string
	var lastEntryAt, updatedAt int64

	err := row.Scan(&a.CellID, &a.DominantEmotion, &a.MeanValence, &a.MeanIntensity,
		&distribution, &a.Coherence, &a.Trend, &a.EntryCount, &lastEntryAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(distribution), &a.Distribution); err != nil {
		return nil, fmt.Errorf("failed to decode distribution for cell %s: %w", a.CellID, err)
	}
	a.LastEntryAt = time.Unix(lastEntryAt, 0).UTC()
	a.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &a, nil
}
