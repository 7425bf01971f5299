package spatial

import (
	"fmt"
	"math"

	"github.com/golang/geo/s2"
)

// Resolution is the public cell resolution scale (1-15) used by the API.
// Internally a resolution maps to an S2 cell level of resolution+5, so the
// default submission resolution of 10 buckets points into roughly 300m
// cells.
const (
	MinResolution = 1
	MaxResolution = 15

	levelOffset = 5
)

// zoomResolutions maps map zoom bands to cell resolutions. Bands are
// inclusive upper bounds on the zoom level.
var zoomResolutions = []struct {
	MaxZoom    int
	Resolution int
}{
	{3, 1},
	{5, 3},
	{7, 5},
	{9, 6},
	{11, 8},
	{13, 10},
	{15, 12},
	{17, 14},
}

// ResolutionForZoom returns the cell resolution for a map zoom level
func ResolutionForZoom(zoom int) int {
	for _, band := range zoomResolutions {
		if zoom <= band.MaxZoom {
			return band.Resolution
		}
	}
	return MaxResolution
}

// ValidResolution reports whether r is within the supported scale
func ValidResolution(r int) bool {
	return r >= MinResolution && r <= MaxResolution
}

func cellLevel(resolution int) int {
	return resolution + levelOffset
}

// PointToCell buckets a geographic point into a cell at the given resolution
// and returns the cell identifier token.
func PointToCell(lat, lng float64, resolution int) (string, error) {
	if !ValidResolution(resolution) {
		return "", fmt.Errorf("resolution %d out of range [%d,%d]", resolution, MinResolution, MaxResolution)
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return "", fmt.Errorf("coordinates out of range: %f,%f", lat, lng)
	}

	id := s2.CellIDFromLatLng(s2.LatLngFromDegrees(lat, lng)).Parent(cellLevel(resolution))
	return id.ToToken(), nil
}

// IsValidCell reports whether token is a well-formed cell identifier at a
// supported resolution.
func IsValidCell(token string) bool {
	id := s2.CellIDFromToken(token)
	if !id.IsValid() {
		return false
	}
	level := id.Level()
	return level >= cellLevel(MinResolution) && level <= cellLevel(MaxResolution)
}

// Resolution returns the resolution a cell token was created at
func Resolution(token string) (int, error) {
	id, err := parseCell(token)
	if err != nil {
		return 0, err
	}
	return id.Level() - levelOffset, nil
}

// CellCenter returns the center point of a cell
func CellCenter(token string) (lat, lng float64, err error) {
	id, err := parseCell(token)
	if err != nil {
		return 0, 0, err
	}
	ll := id.LatLng()
	return ll.Lat.Degrees(), ll.Lng.Degrees(), nil
}

// CellBoundary returns the boundary polygon vertices of a cell in
// counter-clockwise order. The ring is not closed; callers append the first
// vertex if they need a closed polygon.
func CellBoundary(token string) ([][2]float64, error) {
	id, err := parseCell(token)
	if err != nil {
		return nil, err
	}

	cell := s2.CellFromCellID(id)
	boundary := make([][2]float64, 0, 4)
	for k := 0; k < 4; k++ {
		ll := s2.LatLngFromPoint(cell.Vertex(k))
		boundary = append(boundary, [2]float64{ll.Lat.Degrees(), ll.Lng.Degrees()})
	}
	return boundary, nil
}

// Bounds is a geographic bounding box
type Bounds struct {
	MinLat float64
	MinLng float64
	MaxLat float64
	MaxLng float64
}

// CellsInBounds returns all cell tokens at the given resolution that
// intersect the bounding box. Returns an error when the covering would
// exceed limit cells, to bound response size.
func CellsInBounds(b Bounds, resolution, limit int) ([]string, error) {
	if !ValidResolution(resolution) {
		return nil, fmt.Errorf("resolution %d out of range [%d,%d]", resolution, MinResolution, MaxResolution)
	}
	if b.MinLat > b.MaxLat || b.MinLng > b.MaxLng {
		return nil, fmt.Errorf("malformed bounds: min exceeds max")
	}

	rect := s2.RectFromLatLng(s2.LatLngFromDegrees(b.MinLat, b.MinLng))
	rect = rect.AddPoint(s2.LatLngFromDegrees(b.MaxLat, b.MaxLng))

	level := cellLevel(resolution)
	coverer := s2.RegionCoverer{
		MinLevel: level,
		MaxLevel: level,
		MaxCells: limit + 1,
	}

	covering := coverer.Covering(rect)
	if len(covering) > limit {
		return nil, fmt.Errorf("bounds cover more than %d cells at resolution %d", limit, resolution)
	}

	tokens := make([]string, 0, len(covering))
	for _, id := range covering {
		tokens = append(tokens, id.ToToken())
	}
	return tokens, nil
}

// Neighbors returns all cells within ringSize rings of the given cell,
// excluding the cell itself. Ring 1 is the set of edge-adjacent cells.
func Neighbors(token string, ringSize int) ([]string, error) {
	id, err := parseCell(token)
	if err != nil {
		return nil, err
	}
	if ringSize < 1 {
		return nil, fmt.Errorf("ring size must be >= 1, got %d", ringSize)
	}

	visited := map[s2.CellID]bool{id: true}
	frontier := []s2.CellID{id}
	var result []string

	for ring := 0; ring < ringSize; ring++ {
		var next []s2.CellID
		for _, cur := range frontier {
			for _, n := range cur.EdgeNeighbors() {
				if visited[n] {
					continue
				}
				visited[n] = true
				next = append(next, n)
				result = append(result, n.ToToken())
			}
		}
		frontier = next
	}

	return result, nil
}

// Children returns the descendant cells of a cell at a finer resolution.
// A cell already at the target resolution returns itself.
func Children(token string, resolution int) ([]string, error) {
	id, err := parseCell(token)
	if err != nil {
		return nil, err
	}
	if !ValidResolution(resolution) {
		return nil, fmt.Errorf("resolution %d out of range [%d,%d]", resolution, MinResolution, MaxResolution)
	}

	level := cellLevel(resolution)
	if level < id.Level() {
		return nil, fmt.Errorf("resolution %d is coarser than the cell", resolution)
	}
	if level == id.Level() {
		return []string{token}, nil
	}

	var tokens []string
	for child := id.ChildBeginAtLevel(level); child != id.ChildEndAtLevel(level); child = child.Next() {
		tokens = append(tokens, child.ToToken())
	}
	return tokens, nil
}

// GridDistance estimates the grid distance between two cells of the same
// resolution as great-circle center distance over the mean cell edge
// length.
func GridDistance(tokenA, tokenB string) (int, error) {
	a, err := parseCell(tokenA)
	if err != nil {
		return 0, err
	}
	b, err := parseCell(tokenB)
	if err != nil {
		return 0, err
	}
	if a.Level() != b.Level() {
		return 0, fmt.Errorf("cells have different resolutions (%d vs %d)", a.Level()-levelOffset, b.Level()-levelOffset)
	}
	if a == b {
		return 0, nil
	}

	llA, llB := a.LatLng(), b.LatLng()
	meters := HaversineDistance(llA.Lat.Degrees(), llA.Lng.Degrees(), llB.Lat.Degrees(), llB.Lng.Degrees())
	edgeMeters := s2.AvgEdgeMetric.Value(a.Level()) * EarthRadiusMeters

	d := int(math.Round(meters / edgeMeters))
	if d < 1 {
		d = 1
	}
	return d, nil
}

func parseCell(token string) (s2.CellID, error) {
	id := s2.CellIDFromToken(token)
	if !id.IsValid() {
		return 0, fmt.Errorf("invalid cell token: %q", token)
	}
	level := id.Level()
	if level < cellLevel(MinResolution) || level > cellLevel(MaxResolution) {
		return 0, fmt.Errorf("cell level %d outside supported resolutions", level)
	}
	return id, nil
}
