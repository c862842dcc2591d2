package converter

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// SkipReason names why a polyline produced no label line.
type SkipReason string

const (
	SkipOutside       SkipReason = "outside"
	SkipMissingPoints SkipReason = "missing_points"
	SkipParseError    SkipReason = "parse_error"
	SkipNoImage       SkipReason = "no_image"
	SkipDecodeError   SkipReason = "decode_error"
	SkipEmptyPolygon  SkipReason = "empty_polygon"
)

// Report summarises one conversion run.
type Report struct {
	Images             int
	TracksSeen         int
	TracksKept         int
	PolylinesSeen      int
	PolylinesConverted int
	Skipped            map[SkipReason]int
	// Decoded counts distinct image files decoded.
	Decoded int
	// Written lists the label files produced, in frame order.
	Written []string

	vertexCounts []float64
}

func newReport() *Report {
	return &Report{Skipped: make(map[SkipReason]int)}
}

func (r *Report) skip(reason SkipReason) {
	r.Skipped[reason]++
}

func (r *Report) converted(vertices int) {
	r.PolylinesConverted++
	r.vertexCounts = append(r.vertexCounts, float64(vertices))
}

// TotalSkipped returns the number of polylines skipped for any reason.
func (r *Report) TotalSkipped() int {
	n := 0
	for _, c := range r.Skipped {
		n += c
	}
	return n
}

// VertexStats returns the mean and sample standard deviation of polygon
// vertex counts over converted polylines. Both are zero when nothing was
// converted; the deviation is zero for a single polygon.
func (r *Report) VertexStats() (mean, stddev float64) {
	switch len(r.vertexCounts) {
	case 0:
		return 0, 0
	case 1:
		return r.vertexCounts[0], 0
	}
	return stat.MeanStdDev(r.vertexCounts, nil)
}

// LogValue implements slog.LogValuer.
func (r *Report) LogValue() slog.Value {
	mean, stddev := r.VertexStats()

	reasons := make([]string, 0, len(r.Skipped))
	for reason := range r.Skipped {
		reasons = append(reasons, string(reason))
	}
	sort.Strings(reasons)
	skipped := make([]slog.Attr, 0, len(reasons))
	for _, reason := range reasons {
		skipped = append(skipped, slog.Int(reason, r.Skipped[SkipReason(reason)]))
	}

	return slog.GroupValue(
		slog.Int("images", r.Images),
		slog.Int("tracks", r.TracksSeen),
		slog.Int("tracks_kept", r.TracksKept),
		slog.Int("polylines", r.PolylinesSeen),
		slog.Int("converted", r.PolylinesConverted),
		slog.Attr{Key: "skipped", Value: slog.GroupValue(skipped...)},
		slog.Int("decoded", r.Decoded),
		slog.Int("files", len(r.Written)),
		slog.Float64("vertices_mean", mean),
		slog.Float64("vertices_stddev", stddev),
	)
}
