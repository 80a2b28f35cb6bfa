// Package geom holds the garment-local coordinate types and the garment
// geometry oracle used to reject off-garment input.
package geom

import "math"

// Point is a position in garment-local coordinates.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Dist returns the Euclidean distance between p and q.
func (p Point) Dist(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Rotate returns p rotated by angle radians about c.
func (p Point) Rotate(c Point, angle float64) Point {
	sin, cos := math.Sincos(angle)
	dx, dy := p.X-c.X, p.Y-c.Y
	return Point{
		X: c.X + dx*cos - dy*sin,
		Y: c.Y + dx*sin + dy*cos,
	}
}

// Reflect returns p mirrored across the line through c at angle radians.
func (p Point) Reflect(c Point, angle float64) Point {
	sin2, cos2 := math.Sincos(2 * angle)
	dx, dy := p.X-c.X, p.Y-c.Y
	return Point{
		X: c.X + dx*cos2 + dy*sin2,
		Y: c.Y + dx*sin2 - dy*cos2,
	}
}

// Segment is a straight line between two points.
type Segment struct {
	From Point `json:"from"`
	To   Point `json:"to"`
}

// Rect is an axis-aligned rectangle.
type Rect struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	W float64 `json:"w" yaml:"w"`
	H float64 `json:"h" yaml:"h"`
}

// Contains reports whether p lies inside r, edges included.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.W && p.Y >= r.Y && p.Y <= r.Y+r.H
}

// Center returns the geometric center of r.
func (r Rect) Center() Point {
	return Point{X: r.X + r.W/2, Y: r.Y + r.H/2}
}

// Garment is a shirt made of a body and two sleeves.
type Garment struct {
	Body        Rect
	LeftSleeve  Rect
	RightSleeve Rect
}

// DefaultGarment returns the shirt used when no geometry is configured.
func DefaultGarment() Garment {
	return Garment{
		Body:        Rect{X: 250, Y: 200, W: 300, H: 400},
		LeftSleeve:  Rect{X: 150, Y: 200, W: 100, H: 150},
		RightSleeve: Rect{X: 550, Y: 200, W: 100, H: 150},
	}
}

// Occupiable reports whether p lies on the body or either sleeve.
func (g Garment) Occupiable(p Point) bool {
	return g.Body.Contains(p) || g.LeftSleeve.Contains(p) || g.RightSleeve.Contains(p)
}

// Center is the geometric center of the garment body.
func (g Garment) Center() Point {
	return g.Body.Center()
}

// Regions returns the body followed by the sleeves.
func (g Garment) Regions() []Rect {
	return []Rect{g.Body, g.LeftSleeve, g.RightSleeve}
}
