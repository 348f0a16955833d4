package facekit

import (
	"context"
	"errors"
	"image"
	"image/draw"
)

// ErrNoFace is returned when a configured localizer finds no usable region.
var ErrNoFace = errors.New("no face detected")

// DefaultMinConfidence is the minimum detection confidence accepted.
const DefaultMinConfidence = 0.85

// BBox is a pixel rectangle in frame coordinates, x2/y2 exclusive.
type BBox struct {
	X1, Y1, X2, Y2 int
}

// Detection is one localizer output. Exactly one of Crop or Box is set.
// Confidence is meaningful only when HasConfidence is true.
type Detection struct {
	Crop          image.Image
	Box           *BBox
	Confidence    float64
	HasConfidence bool
}

// Localizer finds face regions in a frame. An empty result means nothing was
// found; several results are reduced by SelectRegion.
type Localizer interface {
	Locate(ctx context.Context, frame image.Image) ([]Detection, error)
}

// SelectRegion reduces localizer output to one face region.
//
// A single detection is used directly: a crop is returned as is and a box is
// cropped, subject to minConfidence when a confidence is attached. A lone box
// without a confidence is accepted, because a one-element slice is also how a
// localizer reports a single unscored result; localizers that want
// minConfidence enforced must set HasConfidence.
//
// With several detections the highest confidence box wins; a box without a
// confidence only fills in while nothing better is seen, and a crop is taken
// if it appears before any box.
func SelectRegion(frame image.Image, dets []Detection, minConfidence float64) (image.Image, bool) {
	var chosen *Detection

	switch len(dets) {
	case 0:
		return nil, false
	case 1:
		chosen = &dets[0]
	default:
		var best *Detection
		bestConf := -1.0
		for i := range dets {
			d := &dets[i]
			switch {
			case d.Box != nil && d.HasConfidence:
				if d.Confidence > bestConf {
					best, bestConf = d, d.Confidence
				}
			case d.Box != nil:
				if best == nil {
					best = &Detection{Box: d.Box, HasConfidence: true}
					bestConf = 0
				}
			case d.Crop != nil:
				if best == nil {
					return d.Crop, true
				}
			}
		}
		if best == nil {
			return nil, false
		}
		chosen = best
	}

	if chosen.Crop != nil {
		return chosen.Crop, true
	}
	if chosen.Box == nil {
		return nil, false
	}
	if chosen.HasConfidence && chosen.Confidence < minConfidence {
		return nil, false
	}
	return cropBox(frame, *chosen.Box), true
}

// cropBox clamps box to the frame, keeping at least one pixel in each
// direction, and returns a copy of that region.
func cropBox(frame image.Image, box BBox) image.Image {
	b := frame.Bounds()
	w, h := b.Dx(), b.Dy()

	x1 := clamp(box.X1, 0, w-1)
	y1 := clamp(box.Y1, 0, h-1)
	x2 := clamp(max(box.X2, x1+1), x1+1, w)
	y2 := clamp(max(box.Y2, y1+1), y1+1, h)

	r := image.Rect(0, 0, x2-x1, y2-y1)
	dst := image.NewRGBA(r)
	draw.Draw(dst, r, frame, image.Pt(b.Min.X+x1, b.Min.Y+y1), draw.Src)
	return dst
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
