package annotation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ironsheep/probe-seg/internal/polygon"
)

// ErrorKind classifies why a polyline attribute could not be parsed.
type ErrorKind int

const (
	// MissingAttribute means a required attribute is absent.
	MissingAttribute ErrorKind = iota
	// InvalidFrame means the frame is not a non-negative decimal integer.
	InvalidFrame
	// InvalidPointPair means a point is not of the form "x,y".
	InvalidPointPair
	// InvalidCoordinate means a coordinate is not a decimal number.
	InvalidCoordinate
)

func (k ErrorKind) String() string {
	switch k {
	case MissingAttribute:
		return "missing attribute"
	case InvalidFrame:
		return "invalid frame"
	case InvalidPointPair:
		return "invalid point pair"
	case InvalidCoordinate:
		return "invalid coordinate"
	default:
		return "unknown"
	}
}

// ParseError describes a single attribute that failed to parse.
type ParseError struct {
	Kind      ErrorKind
	Attribute string
	// Input is the offending text: the whole attribute for frames, the
	// individual pair or token for points.
	Input string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Kind == MissingAttribute {
		return fmt.Sprintf("%s: %s", e.Kind, e.Attribute)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s in %s %q: %v", e.Kind, e.Attribute, e.Input, e.Err)
	}
	return fmt.Sprintf("%s in %s %q", e.Kind, e.Attribute, e.Input)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ParseFrame parses the frame attribute as a non-negative integer.
// Surrounding whitespace is ignored.
func ParseFrame(a Attr) (int, error) {
	if !a.Present {
		return 0, &ParseError{Kind: MissingAttribute, Attribute: "frame"}
	}
	n, err := strconv.Atoi(strings.TrimSpace(a.Value))
	if err != nil {
		return 0, &ParseError{Kind: InvalidFrame, Attribute: "frame", Input: a.Value, Err: err}
	}
	if n < 0 {
		return 0, &ParseError{Kind: InvalidFrame, Attribute: "frame", Input: a.Value, Err: fmt.Errorf("negative frame %d", n)}
	}
	return n, nil
}

// ParsePoints parses a "x1,y1;x2,y2;..." list into points, preserving order.
// Every pair must have exactly two comma-separated numbers.
func ParsePoints(a Attr) ([]polygon.Point, error) {
	if !a.Present {
		return nil, &ParseError{Kind: MissingAttribute, Attribute: "points"}
	}

	pairs := strings.Split(a.Value, ";")
	pts := make([]polygon.Point, 0, len(pairs))
	for _, pair := range pairs {
		xy := strings.Split(pair, ",")
		if len(xy) != 2 {
			return nil, &ParseError{Kind: InvalidPointPair, Attribute: "points", Input: pair}
		}
		x, err := parseCoordinate(xy[0])
		if err != nil {
			return nil, err
		}
		y, err := parseCoordinate(xy[1])
		if err != nil {
			return nil, err
		}
		pts = append(pts, polygon.Point{X: x, Y: y})
	}
	return pts, nil
}

func parseCoordinate(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, &ParseError{Kind: InvalidCoordinate, Attribute: "points", Input: s, Err: err}
	}
	return v, nil
}
