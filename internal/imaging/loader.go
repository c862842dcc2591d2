package imaging

import (
	"errors"
	"fmt"
	"sync"

	"github.com/disintegration/imaging"
)

// ErrEmptyImage is returned when an image decodes to zero width or height.
var ErrEmptyImage = errors.New("image has no pixels")

// Dimensions is the pixel size of an image.
type Dimensions struct {
	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`
}

type dimensionEntry struct {
	dims Dimensions
	err  error
}

// DimensionCache decodes images once and remembers their pixel dimensions.
//
// Failures are remembered as well: a path that could not be decoded is
// never decoded again, and every later lookup returns the same error.
// Only dimensions are kept, so memory stays flat however many frames are
// looked up.
//
// DimensionCache is safe for concurrent use.
//
// # Example Usage
//
//	cache := imaging.NewDimensionCache()
//	dims, err := cache.Dimensions("/path/to/frame_000012.jpg")
//	if err != nil {
//	    // skip this frame
//	}
type DimensionCache struct {
	mu      sync.RWMutex
	entries map[string]dimensionEntry
	decodes int
}

// NewDimensionCache creates an empty cache.
func NewDimensionCache() *DimensionCache {
	return &DimensionCache{
		entries: make(map[string]dimensionEntry),
	}
}

// Dimensions returns the width and height of the image at path, decoding it
// on first use.
//
// Parameters:
//   - path: Absolute or relative file path to the image. Supported formats are
//     those registered by disintegration/imaging: JPEG, PNG, GIF, TIFF and BMP.
//
// Returns:
//   - Dimensions: Width and height in pixels after EXIF orientation is applied,
//     so a rotated JPEG reports the size it is displayed at.
//   - error: Non-nil if the file cannot be opened or decoded, or decodes to an
//     image with no pixels.
//
// The cache key is the exact path string. Different spellings of the same
// file are separate entries. Failures are cached as well, so a broken file
// is decoded at most once.
//
// # Errors
//
//   - Returns error if the file does not exist or cannot be read
//   - Returns error if the file is not a valid image
//   - Returns an error wrapping ErrEmptyImage if the decoded image has zero width or height
func (c *DimensionCache) Dimensions(path string) (Dimensions, error) {
	c.mu.RLock()
	if e, ok := c.entries[path]; ok {
		c.mu.RUnlock()
		return e.dims, e.err
	}
	c.mu.RUnlock()

	dims, err := decodeDimensions(path)

	c.mu.Lock()
	c.entries[path] = dimensionEntry{dims: dims, err: err}
	c.decodes++
	c.mu.Unlock()

	return dims, err
}

// Decodes returns how many images have been decoded so far.
func (c *DimensionCache) Decodes() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.decodes
}

func decodeDimensions(path string) (Dimensions, error) {
	// Rotated JPEGs report the size of the displayed frame, which is what
	// the annotation tool drew on.
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return Dimensions{}, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return Dimensions{}, fmt.Errorf("%w: %s", ErrEmptyImage, path)
	}
	return Dimensions{Width: bounds.Dx(), Height: bounds.Dy()}, nil
}
