// Package imaging locates frame images on disk and reads their dimensions.
//
// Frames are associated with images purely by filename: an image belongs to
// a frame when its name contains the frame token (for example
// "frame_025480") and ends in .jpg or .png. Image content is only decoded
// to learn the pixel width and height needed to normalize coordinates.
//
// # Determinism
//
// Index keeps filenames sorted, and Match returns the lexicographically
// first candidate. Two images sharing a frame token therefore always
// resolve to the same file.
//
// # Error Handling
//
// NewIndex fails when the directory cannot be read. Match returns an error
// wrapping ErrNoMatch when nothing carries the token. DimensionCache
// returns decode errors and remembers them, so a corrupt file is decoded at
// most once per cache.
//
// # Thread Safety
//
// Index is immutable after construction. DimensionCache is safe for
// concurrent use.
package imaging
