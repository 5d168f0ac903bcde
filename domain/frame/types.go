package frame

import (
	"image"
	"time"
)

// Snapshot carries one captured frame and metadata. The pipeline treats the
// pixel data as read-only; regions are always copied out before processing.
type Snapshot struct {
	Image      *image.RGBA
	CapturedAt time.Time
	Sequence   uint64
}

// Empty reports whether the snapshot holds no usable pixels.
func (s Snapshot) Empty() bool {
	return s.Image == nil || s.Image.Bounds().Dx() <= 0 || s.Image.Bounds().Dy() <= 0
}

// FaceBox is an axis-aligned face rectangle in frame coordinates, produced
// by an external detector. Score is the detector's confidence, if any.
type FaceBox struct {
	X     int     `json:"x"`
	Y     int     `json:"y"`
	W     int     `json:"w"`
	H     int     `json:"h"`
	Score float64 `json:"score"`
}

// Area returns the box area in pixels; degenerate boxes report zero.
func (b FaceBox) Area() int {
	if b.W <= 0 || b.H <= 0 {
		return 0
	}
	return b.W * b.H
}

// LargestBox returns the largest-area box and true, or false when the list
// is empty or contains only degenerate boxes.
func LargestBox(boxes []FaceBox) (FaceBox, bool) {
	best := -1
	for i, b := range boxes {
		if b.Area() == 0 {
			continue
		}
		if best < 0 || b.Area() > boxes[best].Area() {
			best = i
		}
	}
	if best < 0 {
		return FaceBox{}, false
	}
	return boxes[best], true
}
