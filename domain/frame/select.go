package frame

import (
	"image"
	"image/draw"
)

// SelectRegion computes the pixel region to analyze. When a usable face box
// is present the box is expanded by paddingPct percent of its own width and
// height on each side and clipped to frame bounds; otherwise the full frame
// is returned. Boxes with a side below minFace are treated as unusable.
// The result is always a valid region: selection never fails, it falls back
// to the full frame instead. The returned image is a copy and the rectangle
// is the selected area in frame coordinates.
func SelectRegion(frame *image.RGBA, boxes []FaceBox, paddingPct float64, minFace int) (*image.RGBA, image.Rectangle) {
	b := frame.Bounds()
	box, ok := LargestBox(boxes)
	if !ok || box.W < minFace || box.H < minFace {
		return copyRegion(frame, b), b
	}
	if paddingPct < 0 {
		paddingPct = 0
	}
	if paddingPct > 50 {
		paddingPct = 50
	}
	padX := int(float64(box.W) * paddingPct / 100)
	padY := int(float64(box.H) * paddingPct / 100)
	r := image.Rect(box.X-padX, box.Y-padY, box.X+box.W+padX, box.Y+box.H+padY)
	r = r.Intersect(b)
	if r.Empty() {
		// Box lies entirely outside the frame; fall back rather than fail.
		return copyRegion(frame, b), b
	}
	return copyRegion(frame, r), r
}

// copyRegion extracts rect from frame into a fresh RGBA anchored at (0,0).
func copyRegion(frame *image.RGBA, rect image.Rectangle) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(out, out.Bounds(), frame, rect.Min, draw.Src)
	return out
}
