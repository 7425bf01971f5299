package models

import "time"

// SeasonalCycle is the current calendar-quarter season window missions are
// scored against.
type SeasonalCycle struct {
	Name     string    `json:"name"`
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
}

// Mission is a static gamification goal evaluated over the season window.
type Mission struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Metric string `json:"metric"` // "entries" or "distinct_cells"
	Target int    `json:"target"`
}

// MissionProgress is one mission with the caller's progress against it
type MissionProgress struct {
	Mission
	Current   int  `json:"current"`
	Completed bool `json:"completed"`
}

// MissionsResponse represents the missions API response
type MissionsResponse struct {
	Season   SeasonalCycle     `json:"season"`
	Missions []MissionProgress `json:"missions"`
}
