package converter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/ironsheep/probe-seg/internal/annotation"
	"github.com/ironsheep/probe-seg/internal/imaging"
	"github.com/ironsheep/probe-seg/internal/labels"
	"github.com/ironsheep/probe-seg/internal/polygon"
)

// ErrImageDir is returned when the image directory cannot be listed.
var ErrImageDir = errors.New("image directory unavailable")

// Options configures a conversion run.
type Options struct {
	// XMLPath is the annotation export to read.
	XMLPath string
	// ImageDir holds the frame images, matched to frames by filename.
	ImageDir string
	// OutputDir receives one label file per frame. Created if missing.
	OutputDir string
	// Keyword selects tracks whose label contains it, ignoring case.
	Keyword string
	// BufferWidth is the ribbon half-width in pixels.
	BufferWidth float64
	// ClassIndex is written as the first field of every label line.
	ClassIndex int
	// Offset selects how polylines are widened.
	Offset polygon.Mode
}

// DefaultOptions returns the options of a run with no overrides.
func DefaultOptions() Options {
	return Options{
		XMLPath:     "annotations.xml",
		ImageDir:    "images",
		OutputDir:   "yolo_labels",
		Keyword:     "shaft",
		BufferWidth: polygon.DefaultBufferWidth,
		ClassIndex:  0,
		Offset:      polygon.ModeXShift,
	}
}

// Converter turns annotated polylines into label files.
type Converter struct {
	opts   Options
	logger *slog.Logger
	dims   *imaging.DimensionCache
}

// New creates a converter. A nil logger discards output.
func New(opts Options, logger *slog.Logger) *Converter {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Converter{
		opts:   opts,
		logger: logger,
		dims:   imaging.NewDimensionCache(),
	}
}

// Run performs one conversion.
//
// Parameters:
//   - ctx: Checked before each polyline. Cancelling it stops the run before
//     any label file is written.
//
// Returns:
//   - *Report: Counters for the run. Always non-nil, including on error, so
//     callers can log how far the run got.
//   - error: Non-nil if the run was aborted or a label file could not be
//     written.
//
// Every per-polyline problem is logged and counted in the report under its
// SkipReason, and the polyline is skipped. Label files for all converted
// frames are written at the end in ascending frame order.
//
// # Errors
//
//   - Returns an error wrapping ErrImageDir if the image directory cannot be read
//   - Returns error if the annotation document cannot be opened, wrapping
//     annotation.ErrMalformedDocument when it is not well-formed XML
//   - Returns ctx.Err() if ctx is cancelled during conversion
//   - Returns error wrapping the joined write failures if any label file
//     could not be written; the remaining files are still written
func (c *Converter) Run(ctx context.Context) (*Report, error) {
	report := newReport()

	idx, err := imaging.NewIndex(c.opts.ImageDir)
	if err != nil {
		return report, fmt.Errorf("%w: %v", ErrImageDir, err)
	}
	report.Images = idx.Len()
	c.logger.Info("indexed images", "dir", idx.Dir(), "count", idx.Len())
	c.logger.Debug("sample filenames", "names", idx.Sample(5))

	c.logger.Info("parsing annotations", "path", c.opts.XMLPath)
	doc, err := annotation.ParseFile(c.opts.XMLPath)
	if err != nil {
		return report, err
	}
	report.TracksSeen = len(doc.Tracks)
	c.logger.Info("found tracks", "count", len(doc.Tracks))

	set := labels.NewSet()
	for _, track := range doc.Filter(c.opts.Keyword) {
		report.TracksKept++
		for _, p := range track.Polylines {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			report.PolylinesSeen++

			frame, line, reason, ok := c.convert(idx, p)
			if !ok {
				report.skip(reason)
				continue
			}
			set.Add(frame, line.text)
			report.converted(line.vertices)
		}
	}

	report.Decoded = c.dims.Decodes()

	written, err := set.WriteAll(c.opts.OutputDir)
	report.Written = written
	for _, path := range written {
		c.logger.Info("saved", "path", path)
	}
	if err != nil {
		return report, fmt.Errorf("failed to write labels: %w", err)
	}

	c.logger.Info("conversion finished", "output", c.opts.OutputDir, "report", report)
	return report, nil
}

type labelLine struct {
	text     string
	vertices int
}

// convert turns one polyline into a label line for its frame. When ok is
// false the reason says why the polyline was dropped; the cause has
// already been logged.
func (c *Converter) convert(idx *imaging.Index, p annotation.Polyline) (frame int, line labelLine, reason SkipReason, ok bool) {
	if p.IsOutside() {
		c.logger.Debug("skipping outside polyline", "frame", p.Frame.Value)
		return 0, line, SkipOutside, false
	}
	if !p.Points.Present {
		c.logger.Debug("skipping polyline without points", "frame", p.Frame.Value)
		return 0, line, SkipMissingPoints, false
	}

	frame, err := annotation.ParseFrame(p.Frame)
	if err != nil {
		c.logger.Error("frame parse error", "frame", p.Frame.Value, "err", err)
		return 0, line, SkipParseError, false
	}
	pts, err := annotation.ParsePoints(p.Points)
	if err != nil {
		c.logger.Error("point parse error", "frame", frame, "err", err)
		return 0, line, SkipParseError, false
	}

	token := labels.FrameToken(frame)
	path, err := idx.Match(token)
	if err != nil {
		c.logger.Warn("no image for frame", "frame", token)
		return 0, line, SkipNoImage, false
	}

	dims, err := c.dims.Dimensions(path)
	if err != nil {
		c.logger.Error("could not load image", "frame", token, "path", path, "err", err)
		return 0, line, SkipDecodeError, false
	}

	outline := c.opts.Offset.Build(pts, c.opts.BufferWidth)
	if len(outline) == 0 {
		c.logger.Warn("empty polygon", "frame", token)
		return 0, line, SkipEmptyPolygon, false
	}
	normalized := polygon.Normalize(outline, dims.Width, dims.Height)

	c.logger.Info("frame matched", "frame", frame, "image", path)
	return frame, labelLine{
		text:     labels.FormatLine(c.opts.ClassIndex, normalized),
		vertices: len(outline),
	}, "", true
}
