package service

import (
	"context"
	"sort"
	"time"

	"github.com/jengzang/moodmap-backend-go/internal/config"
	"github.com/jengzang/moodmap-backend-go/internal/emotion"
	"github.com/jengzang/moodmap-backend-go/internal/models"
	"github.com/jengzang/moodmap-backend-go/internal/repository"
	"github.com/jengzang/moodmap-backend-go/internal/spatial"
	"github.com/jengzang/moodmap-backend-go/internal/stats"
)

// neighborBlendFactor discounts neighbor cells when smoothing a cell's
// displayed valence/intensity.
const neighborBlendFactor = 0.5

// MapService is the read projection: it serves pre-aggregated summaries for
// cell detail and map tiles and never recomputes on the read path.
type MapService struct {
	aggregates *repository.AggregateRepository
	catalog    *emotion.Catalog
	cfg        *config.Config
}

// NewMapService creates a new map service
func NewMapService(aggregates *repository.AggregateRepository, catalog *emotion.Catalog, cfg *config.Config) *MapService {
	return &MapService{
		aggregates: aggregates,
		catalog:    catalog,
		cfg:        cfg,
	}
}

// GetCellAggregate returns the stored aggregate for a cell, or nil when the
// cell has no live entries
func (s *MapService) GetCellAggregate(ctx context.Context, cellID string) (*models.CellAggregate, error) {
	if !spatial.IsValidCell(cellID) {
		return nil, models.NewValidationError("cell_id", "not a valid cell identifier")
	}
	return s.aggregates.Get(ctx, cellID)
}

// GetTiles returns every cell intersecting the bounds at the effective
// resolution, each with its geometry, aggregate (if any) and the display
// color of its dominant emotion. Smoothed tiles are served at the coarser
// smoothing resolution, rolled up from the stored submission-resolution
// aggregates of each cell's children. Bounds covering more than the
// configured cell ceiling are rejected.
func (s *MapService) GetTiles(ctx context.Context, filter models.TileFilter) (*models.TilesResponse, error) {
	resolution := s.effectiveResolution(filter)
	if !spatial.ValidResolution(resolution) {
		return nil, models.NewValidationError("resolution", "out of range")
	}

	bounds := spatial.Bounds{
		MinLat: filter.MinLat,
		MinLng: filter.MinLng,
		MaxLat: filter.MaxLat,
		MaxLng: filter.MaxLng,
	}
	cells, err := spatial.CellsInBounds(bounds, resolution, s.cfg.TileCellLimit)
	if err != nil {
		return nil, models.NewValidationError("bounds", err.Error())
	}

	var aggregates map[string]*models.CellAggregate
	if filter.Smoothed {
		aggregates, err = s.rollUp(ctx, cells)
	} else {
		aggregates, err = s.aggregates.GetMany(ctx, cells)
	}
	if err != nil {
		return nil, err
	}

	tiles := make([]models.Tile, 0, len(cells))
	for _, cellID := range cells {
		tile, err := s.buildTile(cellID, aggregates, filter.Smoothed)
		if err != nil {
			return nil, err
		}
		tiles = append(tiles, tile)
	}

	return &models.TilesResponse{
		Tiles:      tiles,
		Count:      len(tiles),
		Resolution: resolution,
		Smoothed:   filter.Smoothed,
	}, nil
}

// effectiveResolution picks the resolution for a tile request: smoothed
// displays use the smoothing resolution, otherwise an explicit resolution
// wins over the zoom table, which wins over the submission default.
func (s *MapService) effectiveResolution(filter models.TileFilter) int {
	if filter.Smoothed {
		return s.cfg.SmoothingResolution
	}
	if filter.Resolution > 0 {
		return filter.Resolution
	}
	if filter.Zoom > 0 {
		return spatial.ResolutionForZoom(filter.Zoom)
	}
	return s.cfg.SpatialResolution
}

// rollUp synthesizes aggregates at the smoothing resolution from the stored
// submission-resolution aggregates of each display cell's children. Ring-1
// neighbors of the display set are rolled up too, so neighbor blending has
// data to draw on at the edges of the viewport.
func (s *MapService) rollUp(ctx context.Context, displayCells []string) (map[string]*models.CellAggregate, error) {
	seen := make(map[string]bool, len(displayCells))
	parents := make([]string, 0, len(displayCells))
	for _, cellID := range displayCells {
		if !seen[cellID] {
			seen[cellID] = true
			parents = append(parents, cellID)
		}
	}
	for _, cellID := range displayCells {
		neighbors, err := spatial.Neighbors(cellID, 1)
		if err != nil {
			return nil, models.NewValidationError("cell_id", err.Error())
		}
		for _, n := range neighbors {
			if !seen[n] {
				seen[n] = true
				parents = append(parents, n)
			}
		}
	}

	childrenOf := make(map[string][]string, len(parents))
	var allChildren []string
	for _, parent := range parents {
		children, err := spatial.Children(parent, s.cfg.SpatialResolution)
		if err != nil {
			return nil, models.NewValidationError("cell_id", err.Error())
		}
		childrenOf[parent] = children
		allChildren = append(allChildren, children...)
	}

	stored, err := s.aggregates.GetMany(ctx, allChildren)
	if err != nil {
		return nil, err
	}

	result := make(map[string]*models.CellAggregate, len(parents))
	for _, parent := range parents {
		if rolled := mergeChildAggregates(parent, childrenOf[parent], stored); rolled != nil {
			result[parent] = rolled
		}
	}
	return result, nil
}

// mergeChildAggregates combines the stored aggregates of a parent's children
// into one display aggregate, weighted by entry count. Returns nil when no
// child has data.
func mergeChildAggregates(parent string, children []string, stored map[string]*models.CellAggregate) *models.CellAggregate {
	var (
		totalWeight float64
		valence     float64
		intensity   float64
		trend       float64
		kindWeight  = make(map[string]float64)
		entryCount  int

		lastEntryAt time.Time
		updatedAt   time.Time
	)

	for _, child := range children {
		a := stored[child]
		if a == nil || a.EntryCount <= 0 {
			continue
		}

		w := float64(a.EntryCount)
		totalWeight += w
		valence += a.MeanValence * w
		intensity += a.MeanIntensity * w
		trend += a.Trend * w
		entryCount += a.EntryCount
		for kind, percent := range a.Distribution {
			kindWeight[kind] += percent * w
		}
		if a.LastEntryAt.After(lastEntryAt) {
			lastEntryAt = a.LastEntryAt
		}
		if a.UpdatedAt.After(updatedAt) {
			updatedAt = a.UpdatedAt
		}
	}

	if totalWeight <= 0 {
		return nil
	}

	kinds := make([]string, 0, len(kindWeight))
	for kind := range kindWeight {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	dominant := kinds[0]
	distribution := make(map[string]float64, len(kinds))
	orderedWeights := make([]float64, 0, len(kinds))
	for _, kind := range kinds {
		w := kindWeight[kind]
		if w > kindWeight[dominant] {
			dominant = kind
		}
		distribution[kind] = w / totalWeight
		orderedWeights = append(orderedWeights, w)
	}

	return &models.CellAggregate{
		CellID:          parent,
		DominantEmotion: dominant,
		MeanValence:     valence / totalWeight,
		MeanIntensity:   intensity / totalWeight,
		Distribution:    distribution,
		Coherence:       1 - stats.NormalizedEntropy(orderedWeights),
		Trend:           trend / totalWeight,
		EntryCount:      entryCount,
		LastEntryAt:     lastEntryAt,
		UpdatedAt:       updatedAt,
	}
}

func (s *MapService) buildTile(cellID string, aggregates map[string]*models.CellAggregate, smoothed bool) (models.Tile, error) {
	lat, lng, err := spatial.CellCenter(cellID)
	if err != nil {
		return models.Tile{}, models.NewValidationError("cell_id", err.Error())
	}
	vertices, err := spatial.CellBoundary(cellID)
	if err != nil {
		return models.Tile{}, models.NewValidationError("cell_id", err.Error())
	}

	boundary := make([]models.LatLng, 0, len(vertices))
	for _, v := range vertices {
		boundary = append(boundary, models.LatLng{Lat: v[0], Lng: v[1]})
	}

	tile := models.Tile{
		CellID:   cellID,
		Center:   models.LatLng{Lat: lat, Lng: lng},
		Boundary: boundary,
	}

	aggregate := aggregates[cellID]
	if aggregate == nil {
		return tile, nil
	}

	if smoothed {
		aggregate = s.blendWithNeighbors(cellID, aggregate, aggregates)
	}

	tile.Aggregate = aggregate
	tile.Color = s.catalog.Color(aggregate.DominantEmotion)
	return tile, nil
}

// blendWithNeighbors returns a display copy of the aggregate whose mean
// valence and intensity are blended with ring-1 neighbors, weighted by
// entry count. The stored aggregates are never modified.
func (s *MapService) blendWithNeighbors(cellID string, own *models.CellAggregate, aggregates map[string]*models.CellAggregate) *models.CellAggregate {
	neighbors, err := spatial.Neighbors(cellID, 1)
	if err != nil {
		return own
	}

	weight := float64(own.EntryCount)
	valence := own.MeanValence * weight
	intensity := own.MeanIntensity * weight

	for _, neighbor := range neighbors {
		n := aggregates[neighbor]
		if n == nil {
			continue
		}
		w := float64(n.EntryCount) * neighborBlendFactor
		valence += n.MeanValence * w
		intensity += n.MeanIntensity * w
		weight += w
	}

	blended := *own
	if weight > 0 {
		blended.MeanValence = valence / weight
		blended.MeanIntensity = intensity / weight
	}
	return &blended
}
