// Package geom provides the planar geometry used by mesh cleanup passes.
package geom

// Vec2 is a 2D vector in a plane's local coordinates.
type Vec2 struct {
	X, Y float64
}
