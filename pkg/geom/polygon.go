package geom

import (
	"errors"
	"fmt"

	sf "github.com/peterstace/simplefeatures/geom"
)

// ErrTooFewPoints is returned for a polygon with fewer than 3 distinct
// consecutive points.
var ErrTooFewPoints = errors.New("polygon needs at least 3 points")

// Polygon is an outline in a plane's local coordinates. The ring is closed
// implicitly; the first point is not repeated at the end.
type Polygon []Vec2

// ring returns the closed coordinate sequence with consecutive repeats
// removed.
func (p Polygon) ring() []float64 {
	coords := make([]float64, 0, 2*(len(p)+1))
	for i, v := range p {
		if i > 0 && v == p[i-1] {
			continue
		}
		coords = append(coords, v.X, v.Y)
	}
	n := len(coords)
	if n >= 4 && coords[0] == coords[n-2] && coords[1] == coords[n-1] {
		coords = coords[:n-2]
	}
	if len(coords) >= 2 {
		coords = append(coords, coords[0], coords[1])
	}
	return coords
}

// Region is a polygon that passed OGC validation and can be used in
// topological predicates.
type Region struct {
	poly sf.Polygon
}

// NewRegion validates p as a simple polygon: finite coordinates, at least
// 3 distinct points, no self-intersections and a non-empty interior.
func NewRegion(p Polygon) (Region, error) {
	coords := p.ring()
	if len(coords) < 2*4 {
		return Region{}, ErrTooFewPoints
	}

	ring := sf.NewLineString(sf.NewSequence(coords, sf.DimXY))
	poly := sf.NewPolygon([]sf.LineString{ring})
	if err := poly.Validate(); err != nil {
		return Region{}, fmt.Errorf("invalid polygon: %w", err)
	}
	if poly.Area() == 0 {
		return Region{}, fmt.Errorf("invalid polygon: zero area")
	}
	return Region{poly: poly}, nil
}

// Contains reports whether no point of other lies outside r and their
// interiors meet. Equal regions contain each other. The zero Region
// contains nothing.
func (r Region) Contains(other Region) bool {
	ok, err := sf.Contains(r.poly.AsGeometry(), other.poly.AsGeometry())
	return err == nil && ok
}
