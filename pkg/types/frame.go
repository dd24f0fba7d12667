package types

import (
	"image"
	"time"
)

// Frame is one acquired camera image with metadata
type Frame struct {
	Image     *image.RGBA // Pixels, already resized to the working resolution
	Timestamp time.Time   // Acquisition time
	Seq       uint64      // Sequential frame number
}

// Center returns the center point of a bounding box
func Center(r image.Rectangle) image.Point {
	return image.Pt(r.Min.X+r.Dx()/2, r.Min.Y+r.Dy()/2)
}

// Largest returns the box with the greatest area, or false when boxes is empty.
// Ties keep the earlier box.
func Largest(boxes []image.Rectangle) (image.Rectangle, bool) {
	if len(boxes) == 0 {
		return image.Rectangle{}, false
	}
	best := boxes[0]
	for _, b := range boxes[1:] {
		if b.Dx()*b.Dy() > best.Dx()*best.Dy() {
			best = b
		}
	}
	return best, true
}
