package annotation

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrMalformedDocument is returned when the annotation XML cannot be parsed.
var ErrMalformedDocument = errors.New("malformed annotation document")

// Attr is a raw XML attribute value together with its presence.
//
// The zero value represents an absent attribute. An attribute that is
// present with an empty value has Present set and Value empty.
type Attr struct {
	Value   string
	Present bool
}

// Polyline is one polyline record of a track, exactly as written in the
// document. Numeric fields are parsed separately with ParseFrame and
// ParsePoints so that each failure surfaces as a typed ParseError.
type Polyline struct {
	Frame   Attr
	Points  Attr
	Outside Attr
}

// IsOutside reports whether the record is flagged as not visible in its frame.
func (p Polyline) IsOutside() bool {
	return p.Outside.Present && p.Outside.Value == "1"
}

// Track is a labelled group of polylines spanning several frames.
type Track struct {
	Label     Attr
	Polylines []Polyline
}

// Matches reports whether the track label contains keyword, ignoring case.
// Tracks without a label attribute never match.
func (t Track) Matches(keyword string) bool {
	if !t.Label.Present {
		return false
	}
	return strings.Contains(strings.ToLower(t.Label.Value), strings.ToLower(keyword))
}

// Document is the subset of an annotation export used for label conversion.
type Document struct {
	// Tracks holds every track element found at any depth, in document order.
	Tracks []Track
}

// Filter returns the tracks whose label contains keyword (case-insensitive).
func (d *Document) Filter(keyword string) []Track {
	var kept []Track
	for _, t := range d.Tracks {
		if t.Matches(keyword) {
			kept = append(kept, t)
		}
	}
	return kept
}

type element struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Children []element  `xml:",any"`
}

func lookup(attrs []xml.Attr, name string) Attr {
	for _, a := range attrs {
		if a.Name.Local == name {
			return Attr{Value: a.Value, Present: true}
		}
	}
	return Attr{}
}

// appendTracks walks el in pre-order and appends every track element it
// finds, el included, so the result follows document order. A track owns
// only the polyline elements that are its direct children.
func appendTracks(dst []Track, el element) []Track {
	if el.XMLName.Local == "track" {
		t := Track{Label: lookup(el.Attrs, "label")}
		for _, p := range el.Children {
			if p.XMLName.Local != "polyline" {
				continue
			}
			t.Polylines = append(t.Polylines, Polyline{
				Frame:   lookup(p.Attrs, "frame"),
				Points:  lookup(p.Attrs, "points"),
				Outside: lookup(p.Attrs, "outside"),
			})
		}
		dst = append(dst, t)
	}
	for _, child := range el.Children {
		dst = appendTracks(dst, child)
	}
	return dst
}

// Parse reads an annotation document from r and collects all track
// elements regardless of nesting depth.
//
// Any XML syntax error, or a stream with no root element, yields an error
// wrapping ErrMalformedDocument.
func Parse(r io.Reader) (*Document, error) {
	dec := xml.NewDecoder(r)
	doc := &Document{}
	sawRoot := false

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
		}

		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if !sawRoot {
			// The root itself is never a candidate, only its descendants.
			sawRoot = true
			continue
		}
		if se.Name.Local != "track" {
			continue
		}

		var el element
		if err := dec.DecodeElement(&el, &se); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
		}
		doc.Tracks = appendTracks(doc.Tracks, el)
	}

	if !sawRoot {
		return nil, fmt.Errorf("%w: no root element", ErrMalformedDocument)
	}
	return doc, nil
}

// ParseFile opens path and parses it with Parse.
func ParseFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open annotation document: %w", err)
	}
	defer f.Close()

	return Parse(f)
}
