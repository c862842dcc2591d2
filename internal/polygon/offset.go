package polygon

import (
	clipper "github.com/ctessum/go.clipper"
)

// clipperScale converts pixel coordinates to clipper's integer grid.
const clipperScale = 100.0

// RoundRibbon offsets the polyline by width on both sides, perpendicular to
// each segment, with rounded joins and flat ends. It returns nil when the
// offset is empty.
//
// When the offset yields several outlines (a self-intersecting polyline
// can do that) the one with the most vertices is returned.
func RoundRibbon(pts []Point, width float64) []Point {
	if len(pts) == 0 {
		return nil
	}

	var path clipper.Path
	for _, p := range pts {
		path = append(path, &clipper.IntPoint{
			X: clipper.CInt(p.X * clipperScale),
			Y: clipper.CInt(p.Y * clipperScale),
		})
	}

	co := clipper.NewClipperOffset()
	co.AddPath(path, clipper.JtRound, clipper.EtOpenButt)
	solution := co.Execute(width * clipperScale)

	var best clipper.Path
	for _, sol := range solution {
		if len(sol) > len(best) {
			best = sol
		}
	}
	if len(best) == 0 {
		return nil
	}

	out := make([]Point, 0, len(best))
	for _, pt := range best {
		out = append(out, Point{
			X: float64(pt.X) / clipperScale,
			Y: float64(pt.Y) / clipperScale,
		})
	}
	return out
}
