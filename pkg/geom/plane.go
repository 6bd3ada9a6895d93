package geom

import "github.com/go-gl/mathgl/mgl64"

// degenerateLength is the length below which a basis axis cannot be normalized.
const degenerateLength = 1e-12

// Basis is an orthonormal frame on the plane through three points.
type Basis struct {
	Origin mgl64.Vec3
	X, Y   mgl64.Vec3
	Normal mgl64.Vec3
}

// NewBasis builds a frame from the first three vertices of a face: X along
// v0→v1, Normal from X crossed with v0→v2, and Y completing the frame.
// ok is false when the points are coincident or collinear.
func NewBasis(v0, v1, v2 mgl64.Vec3) (b Basis, ok bool) {
	x := v1.Sub(v0)
	if x.Len() <= degenerateLength {
		return Basis{}, false
	}
	x = x.Normalize()

	n := x.Cross(v2.Sub(v0))
	if n.Len() <= degenerateLength {
		return Basis{}, false
	}
	n = n.Normalize()

	return Basis{
		Origin: v0,
		X:      x,
		Y:      n.Cross(x),
		Normal: n,
	}, true
}

// Project returns v in the plane's 2D coordinates.
func (b Basis) Project(v mgl64.Vec3) Vec2 {
	rel := v.Sub(b.Origin)
	return Vec2{rel.Dot(b.X), rel.Dot(b.Y)}
}

// ProjectAll projects every point into a polygon.
func (b Basis) ProjectAll(vs []mgl64.Vec3) Polygon {
	poly := make(Polygon, len(vs))
	for i, v := range vs {
		poly[i] = b.Project(v)
	}
	return poly
}

// Distance returns the signed distance from v to the plane.
func (b Basis) Distance(v mgl64.Vec3) float64 {
	return v.Sub(b.Origin).Dot(b.Normal)
}
