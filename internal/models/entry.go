package models

import "time"

// Visibility controls whether an entry's note and tags are exposed publicly.
const (
	VisibilityPublic  = "PUBLIC"
	VisibilityPrivate = "PRIVATE"
)

// EmotionEntry represents one user's emotion observation pinned to a spatial cell.
// Entries are immutable after creation; they disappear by explicit delete or
// by expiration.
type EmotionEntry struct {
	ID           string     `json:"id" db:"id"`
	UserID       string     `json:"user_id" db:"user_id"`
	CellID       string     `json:"cell_id" db:"cell_id"`
	Kind         string     `json:"kind" db:"kind"`
	Intensity    int        `json:"intensity" db:"intensity"`      // 0-100
	Valence      float64    `json:"valence" db:"valence"`          // frozen at creation from the catalog
	Note         string     `json:"note,omitempty" db:"note"`
	Tags         []string   `json:"tags,omitempty" db:"tags"`      // up to 10
	DwellSeconds int        `json:"dwell_seconds" db:"dwell_seconds"`
	GPSAccuracy  int        `json:"gps_accuracy" db:"gps_accuracy"` // meters
	Visibility   string     `json:"visibility" db:"visibility"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty" db:"expires_at"` // nil = permanent
}

// Live reports whether the entry is still included in aggregation at the
// given instant. Expired entries are excluded even before the sweeper
// physically removes them.
func (e *EmotionEntry) Live(now time.Time) bool {
	return e.ExpiresAt == nil || e.ExpiresAt.After(now)
}

// SubmitEmotionRequest is the payload for POST /api/v1/emotions.
// Either CellID or Lat/Lng must be provided; when only coordinates are
// given the cell is derived at the configured submission resolution.
type SubmitEmotionRequest struct {
	CellID       string   `json:"cell_id"`
	Lat          *float64 `json:"lat"`
	Lng          *float64 `json:"lng"`
	Kind         string   `json:"kind" binding:"required"`
	Intensity    int      `json:"intensity"`
	Note         string   `json:"note"`
	Tags         []string `json:"tags"`
	DwellSeconds int      `json:"dwell_seconds"`
	GPSAccuracy  int      `json:"gps_accuracy"`
	Visibility   string   `json:"visibility"`
	TTLHours     int      `json:"ttl_hours"`
	Volatile     bool     `json:"volatile"` // use the default TTL when no explicit ttl_hours
}

// EntryFilter represents filter parameters for querying a user's own entries
type EntryFilter struct {
	StartTime int64  `form:"startTime"` // Unix timestamp
	EndTime   int64  `form:"endTime"`   // Unix timestamp
	CellID    string `form:"cellId"`
	Page      int    `form:"page"`
	PageSize  int    `form:"pageSize"`
}

// EntriesResponse represents a paginated response of emotion entries
type EntriesResponse struct {
	Data       []EmotionEntry `json:"data"`
	Total      int64          `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"pageSize"`
	TotalPages int            `json:"totalPages"`
}
