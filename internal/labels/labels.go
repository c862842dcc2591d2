// Package labels reads and writes YOLO segmentation label files.
//
// Each line of a label file describes one object instance:
//
//	<class> <x1> <y1> <x2> <y2> ... <xn> <yn>
//
// with coordinates normalized to the image size. One file is written per
// frame, named frame_<6-digit frame>.txt.
package labels

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ironsheep/probe-seg/internal/polygon"
)

// FrameToken renders a frame number as the zero-padded token used in image
// and label filenames, e.g. 25480 -> "frame_025480".
func FrameToken(frame int) string {
	return fmt.Sprintf("frame_%06d", frame)
}

// FileName returns the label filename for a frame.
func FileName(frame int) string {
	return FrameToken(frame) + ".txt"
}

// FrameFromFileName extracts the frame number from a label filename
// produced by FileName.
func FrameFromFileName(name string) (int, bool) {
	if !strings.HasPrefix(name, "frame_") || !strings.HasSuffix(name, ".txt") {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, "frame_"), ".txt"))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// Label is one parsed label line.
type Label struct {
	Class  int
	Points []polygon.Point
}

// FormatLine renders a class index and normalized polygon as a label line.
// Coordinates use the shortest decimal form that parses back to the same value,
// so whole numbers are written without a fraction ("0", not "0.0").
func FormatLine(class int, pts []polygon.Point) string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(class))
	for _, p := range pts {
		b.WriteByte(' ')
		b.WriteString(strconv.FormatFloat(p.X, 'f', -1, 64))
		b.WriteByte(' ')
		b.WriteString(strconv.FormatFloat(p.Y, 'f', -1, 64))
	}
	return b.String()
}

// ParseLine parses a label line written by FormatLine.
func ParseLine(line string) (Label, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Label{}, fmt.Errorf("empty label line")
	}
	class, err := strconv.Atoi(fields[0])
	if err != nil {
		return Label{}, fmt.Errorf("invalid class index %q: %w", fields[0], err)
	}
	coords := fields[1:]
	if len(coords)%2 != 0 {
		return Label{}, fmt.Errorf("odd number of coordinates: %d", len(coords))
	}

	l := Label{Class: class, Points: make([]polygon.Point, 0, len(coords)/2)}
	for i := 0; i < len(coords); i += 2 {
		x, err := strconv.ParseFloat(coords[i], 64)
		if err != nil {
			return Label{}, fmt.Errorf("invalid coordinate %q: %w", coords[i], err)
		}
		y, err := strconv.ParseFloat(coords[i+1], 64)
		if err != nil {
			return Label{}, fmt.Errorf("invalid coordinate %q: %w", coords[i+1], err)
		}
		l.Points = append(l.Points, polygon.Point{X: x, Y: y})
	}
	return l, nil
}
