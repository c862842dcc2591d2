// Package polygon turns annotated polylines into closed label polygons.
//
// Coordinates are image pixels with the origin at the top-left corner,
// X increasing rightward and Y increasing downward, until Normalize maps
// them into image-relative units.
package polygon

import (
	"fmt"
	"math"
)

// DefaultBufferWidth is the ribbon half-width, in pixels, used when none is configured.
const DefaultBufferWidth = 5.0

// Point is a 2-D coordinate.
type Point struct {
	X float64
	Y float64
}

// Ribbon expands a polyline into a closed outline by walking the points
// forward with every X shifted by -width, then backward with every X
// shifted by +width. The result always has 2*len(pts) points.
//
// The offset is horizontal only, not perpendicular to each segment, so the
// outline approximates a ribbon of constant width only when the polyline is
// close to vertical. Label sets already trained on this shape depend on it;
// use RoundRibbon for a true offset.
func Ribbon(pts []Point, width float64) []Point {
	out := make([]Point, 0, 2*len(pts))
	for _, p := range pts {
		out = append(out, Point{X: p.X - width, Y: p.Y})
	}
	for i := len(pts) - 1; i >= 0; i-- {
		out = append(out, Point{X: pts[i].X + width, Y: pts[i].Y})
	}
	return out
}

// Normalize divides every X by width and every Y by height. Points outside
// the image are not clamped and land outside [0,1].
func Normalize(pts []Point, width, height int) []Point {
	w, h := float64(width), float64(height)
	out := make([]Point, len(pts))
	for i, p := range pts {
		out[i] = Point{X: p.X / w, Y: p.Y / h}
	}
	return out
}

// Denormalize is the inverse of Normalize.
func Denormalize(pts []Point, width, height int) []Point {
	w, h := float64(width), float64(height)
	out := make([]Point, len(pts))
	for i, p := range pts {
		out[i] = Point{X: p.X * w, Y: p.Y * h}
	}
	return out
}

// Bounds returns the axis-aligned bounding box of pts as min and max corners.
// It returns zero points for an empty slice.
func Bounds(pts []Point) (min, max Point) {
	if len(pts) == 0 {
		return Point{}, Point{}
	}
	min = Point{X: math.Inf(1), Y: math.Inf(1)}
	max = Point{X: math.Inf(-1), Y: math.Inf(-1)}
	for _, p := range pts {
		min.X = math.Min(min.X, p.X)
		min.Y = math.Min(min.Y, p.Y)
		max.X = math.Max(max.X, p.X)
		max.Y = math.Max(max.Y, p.Y)
	}
	return min, max
}

// Mode selects how a polyline is widened into a polygon.
type Mode string

const (
	// ModeXShift is the horizontal-only Ribbon.
	ModeXShift Mode = "xshift"
	// ModeRound is the perpendicular RoundRibbon.
	ModeRound Mode = "round"
)

// ParseMode validates a mode name. The empty string selects ModeXShift.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeXShift:
		return ModeXShift, nil
	case ModeRound:
		return ModeRound, nil
	default:
		return "", fmt.Errorf("unknown offset mode: %s", s)
	}
}

// Build widens pts using the selected mode.
func (m Mode) Build(pts []Point, width float64) []Point {
	if m == ModeRound {
		return RoundRibbon(pts, width)
	}
	return Ribbon(pts, width)
}
