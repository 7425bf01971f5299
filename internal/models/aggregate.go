package models

import "time"

// CellAggregate is the derived, cached summary for one spatial cell.
// It exists iff the cell has at least one live entry; on transition to
// empty the stored record is deleted, never left stale.
type CellAggregate struct {
	CellID          string             `json:"cell_id" db:"cell_id"`
	DominantEmotion string             `json:"dominant_emotion" db:"dominant_emotion"`
	MeanValence     float64            `json:"mean_valence" db:"mean_valence"`     // [-1,1]
	MeanIntensity   float64            `json:"mean_intensity" db:"mean_intensity"` // [0,100]
	Distribution    map[string]float64 `json:"distribution" db:"distribution"`     // kind -> percent of total weight
	Coherence       float64            `json:"coherence" db:"coherence"`           // [0,1]
	Trend           float64            `json:"trend" db:"trend"`                   // [-1,1]
	EntryCount      int                `json:"entry_count" db:"entry_count"`
	LastEntryAt     time.Time          `json:"last_entry_at" db:"last_entry_at"`
	UpdatedAt       time.Time          `json:"updated_at" db:"updated_at"`
}

// LatLng is a geographic point
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Tile is one cell of a map tile response: geometry plus the aggregate (if
// any) and the display color of the dominant emotion.
type Tile struct {
	CellID    string         `json:"cell_id"`
	Center    LatLng         `json:"center"`
	Boundary  []LatLng       `json:"boundary"`
	Aggregate *CellAggregate `json:"aggregate"`
	Color     string         `json:"color,omitempty"`
}

// TileFilter represents query parameters for the tiles endpoint
type TileFilter struct {
	MinLat     float64 `form:"minLat"`
	MinLng     float64 `form:"minLng"`
	MaxLat     float64 `form:"maxLat"`
	MaxLng     float64 `form:"maxLng"`
	Zoom       int     `form:"zoom"`
	Resolution int     `form:"resolution"`
	Smoothed   bool    `form:"smoothed"`
}

// TilesResponse represents the tiles API response
type TilesResponse struct {
	Tiles      []Tile `json:"tiles"`
	Count      int    `json:"count"`
	Resolution int    `json:"resolution"`
	Smoothed   bool   `json:"smoothed"`
}
