package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jengzang/moodmap-backend-go/internal/models"
)

// defaultTrust is the reputation assigned to users without a stored score
const defaultTrust = 1.0

// TrustRepository reads per-user reputation scores. The scores themselves
// are owned by the account lifecycle; aggregation only consumes them.
type TrustRepository struct {
	db *sql.DB
}

// NewTrustRepository creates a new trust repository
func NewTrustRepository(db *sql.DB) *TrustRepository {
	return &TrustRepository{db: db}
}

// Trust returns the user's reputation scalar, defaulting to 1.0 for users
// without a stored score. Bounding to [TRUST_MIN, TRUST_MAX] happens in the
// aggregation engine.
func (r *TrustRepository) Trust(ctx context.Context, userID string) (float64, error) {
	var trust float64
	err := r.db.QueryRowContext(ctx,
		"SELECT trust FROM user_trust WHERE user_id = ?", userID).Scan(&trust)
	if errors.Is(err, sql.ErrNoRows) {
		return defaultTrust, nil
	}
	if err != nil {
		return 0, &models.StoreError{Op: "get trust", Err: err}
	}
	return trust, nil
}

// SetTrust upserts a user's reputation score
func (r *TrustRepository) SetTrust(ctx context.Context, userID string, trust float64, now time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_trust (user_id, trust, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET trust = excluded.trust, updated_at = excluded.updated_at`,
		userID, trust, now.Unix(),
	)
	if err != nil {
		return &models.StoreError{Op: "set trust", Err: err}
	}
	return nil
}
