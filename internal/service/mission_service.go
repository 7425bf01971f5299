package service

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/jengzang/moodmap-backend-go/internal/models"
	"github.com/jengzang/moodmap-backend-go/internal/repository"
)

// Mission metric identifiers.
const (
	metricEntries       = "entries"
	metricDistinctCells = "distinct_cells"
)

// defaultMissions is the static mission list evaluated per season
var defaultMissions = []models.Mission{
	{ID: "first_pin", Title: "Pin your first emotion this season", Metric: metricEntries, Target: 1},
	{ID: "regular_observer", Title: "Log 10 emotions this season", Metric: metricEntries, Target: 10},
	{ID: "cartographer", Title: "Pin emotions in 5 different places this season", Metric: metricDistinctCells, Target: 5},
}

var seasonNames = [4]string{"Winter", "Spring", "Summer", "Autumn"}

// MissionService is the read-only gamification overlay: it scores the
// static mission list against the caller's entry history inside the
// current season window. It never writes anything.
type MissionService struct {
	entries *repository.EntryRepository
	clock   clockwork.Clock
}

// NewMissionService creates a new mission service
func NewMissionService(entries *repository.EntryRepository, clock clockwork.Clock) *MissionService {
	return &MissionService{entries: entries, clock: clock}
}

// CurrentSeason returns the season window containing now. Seasons are the
// meteorological quarters starting in December, March, June and September.
func (s *MissionService) CurrentSeason() models.SeasonalCycle {
	now := s.clock.Now().In(time.Local)

	// Shift December into the following year's winter
	year, month := now.Year(), int(now.Month())
	if month == 12 {
		year++
		month = 0
	}
	seasonIdx := month / 3

	startMonth := time.Month(seasonIdx*3 + 12)
	startYear := year - 1
	if startMonth > 12 {
		startMonth -= 12
		startYear++
	}

	start := time.Date(startYear, startMonth, 1, 0, 0, 0, 0, time.Local)
	end := start.AddDate(0, 3, 0)

	return models.SeasonalCycle{
		Name:     seasonNames[seasonIdx],
		StartsAt: start,
		EndsAt:   end,
	}
}

// Progress returns the caller's progress against every mission in the
// current season
func (s *MissionService) Progress(ctx context.Context, userID string) (*models.MissionsResponse, error) {
	season := s.CurrentSeason()

	entryCount, err := s.entries.CountByUserBetween(ctx, userID, season.StartsAt, season.EndsAt)
	if err != nil {
		return nil, err
	}
	cellCount, err := s.entries.DistinctCellsByUserBetween(ctx, userID, season.StartsAt, season.EndsAt)
	if err != nil {
		return nil, err
	}

	progress := make([]models.MissionProgress, 0, len(defaultMissions))
	for _, m := range defaultMissions {
		current := entryCount
		if m.Metric == metricDistinctCells {
			current = cellCount
		}
		progress = append(progress, models.MissionProgress{
			Mission:   m,
			Current:   current,
			Completed: current >= m.Target,
		})
	}

	return &models.MissionsResponse{
		Season:   season,
		Missions: progress,
	}, nil
}
