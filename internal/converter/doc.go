// Package converter builds YOLO segmentation labels from polyline tracks.
//
// A run indexes the image directory, parses the annotation export, keeps
// tracks whose label contains a keyword and converts each visible polyline
// of those tracks into one label line for its frame:
//
//  1. the frame number is rendered as the token frame_NNNNNN and matched
//     against image filenames;
//  2. the matched image is decoded for its width and height;
//  3. the polyline is widened into a closed polygon (see polygon.Ribbon);
//  4. the polygon is normalized by the image size and formatted.
//
// Lines are grouped by frame and written once, after every polyline has
// been processed, as one file per frame.
//
// # Failures
//
// Only setup failures stop a run: an unreadable image directory
// (ErrImageDir) or a malformed document (annotation.ErrMalformedDocument).
// A polyline that cannot be parsed, has no image or whose image cannot be
// decoded is logged, counted in the Report under its SkipReason and
// dropped. Nothing is retried.
package converter
