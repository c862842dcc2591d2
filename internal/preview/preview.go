// Package preview draws label polygons back onto their frames so a person
// can check a converted dataset by eye.
package preview

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/anthonynsimon/bild/clone"
	"github.com/disintegration/imaging"
	"github.com/llgcode/draw2d/draw2dimg"
	"github.com/lucasb-eyer/go-colorful"

	localimaging "github.com/ironsheep/probe-seg/internal/imaging"
	"github.com/ironsheep/probe-seg/internal/labels"
	"github.com/ironsheep/probe-seg/internal/polygon"
)

// Options controls how polygons are drawn.
type Options struct {
	// FillAlpha is the opacity of the polygon fill, 0 to 255.
	FillAlpha uint8
	// LineWidth is the outline width in pixels.
	LineWidth float64
}

// DefaultOptions returns a translucent fill with a 2px outline.
func DefaultOptions() Options {
	return Options{FillAlpha: 96, LineWidth: 2}
}

// Palette returns n distinct, fully opaque colours. Hues are spread by the
// golden angle so neighbouring indices contrast; the result only depends on n.
func Palette(n int) []color.RGBA {
	out := make([]color.RGBA, n)
	for i := range out {
		hue := float64(i) * 137.508
		for hue >= 360 {
			hue -= 360
		}
		r, g, b := colorful.Hsv(hue, 0.85, 0.95).RGB255()
		out[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return out
}

// Render returns a copy of img with every label drawn on it. Label
// coordinates are normalized and are scaled by the image size.
func Render(img image.Image, lbls []labels.Label, opts Options) *image.RGBA {
	canvas := clone.AsRGBA(img)
	bounds := canvas.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	palette := Palette(len(lbls))
	gc := draw2dimg.NewGraphicContext(canvas)
	gc.SetLineWidth(opts.LineWidth)

	for i, l := range lbls {
		pts := polygon.Denormalize(l.Points, w, h)
		if len(pts) < 2 {
			continue
		}

		stroke := palette[i]
		fill := color.NRGBA{R: stroke.R, G: stroke.G, B: stroke.B, A: opts.FillAlpha}
		gc.SetStrokeColor(stroke)
		gc.SetFillColor(fill)

		gc.BeginPath()
		gc.MoveTo(pts[0].X+float64(bounds.Min.X), pts[0].Y+float64(bounds.Min.Y))
		for _, p := range pts[1:] {
			gc.LineTo(p.X+float64(bounds.Min.X), p.Y+float64(bounds.Min.Y))
		}
		gc.Close()
		gc.FillStroke()
	}
	return canvas
}

// RenderFile draws the labels of one label file onto an image file and
// saves the result; the output format follows the extension of outPath.
func RenderFile(labelPath, imagePath, outPath string, opts Options) error {
	lbls, err := labels.ReadFile(labelPath)
	if err != nil {
		return err
	}
	img, err := imaging.Open(imagePath, imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}
	if err := imaging.Save(Render(img, lbls, opts), outPath); err != nil {
		return fmt.Errorf("failed to save preview: %w", err)
	}
	return nil
}

// Dirs names the directories used by RenderDir.
type Dirs struct {
	Labels string
	Images string
	Out    string
}

// RenderDir renders a preview PNG for every label file in dirs.Labels whose
// frame has an image in dirs.Images, writing frame_NNNNNN.png into
// dirs.Out. Frames without an image, and files that fail to render, are
// logged and skipped. It returns the number of previews written.
func RenderDir(ctx context.Context, dirs Dirs, opts Options, logger *slog.Logger) (int, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	entries, err := os.ReadDir(dirs.Labels)
	if err != nil {
		return 0, fmt.Errorf("failed to read label directory '%s': %w", dirs.Labels, err)
	}
	idx, err := localimaging.NewIndex(dirs.Images)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(dirs.Out, 0755); err != nil {
		return 0, fmt.Errorf("failed to create preview directory '%s': %w", dirs.Out, err)
	}

	rendered := 0
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return rendered, err
		}
		frame, ok := labels.FrameFromFileName(e.Name())
		if e.IsDir() || !ok {
			continue
		}

		token := labels.FrameToken(frame)
		imagePath, err := idx.Match(token)
		if err != nil {
			logger.Warn("no image for frame", "frame", token)
			continue
		}

		outPath := filepath.Join(dirs.Out, token+".png")
		if err := RenderFile(filepath.Join(dirs.Labels, e.Name()), imagePath, outPath, opts); err != nil {
			logger.Error("preview failed", "frame", token, "err", err)
			continue
		}
		logger.Info("preview saved", "path", outPath)
		rendered++
	}
	return rendered, nil
}
