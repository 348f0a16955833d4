package facekit

import (
	"context"
	"image"
	"math"
)

// LivenessChecker rejects captures that are unlikely to come from a live face.
type LivenessChecker interface {
	Check(ctx context.Context, frame image.Image) (bool, error)
	CheckSequence(ctx context.Context, frames []image.Image) (bool, error)
}

// Defaults for HeuristicLiveness.
const (
	DefaultLivenessMinMean   = 35.0
	DefaultLivenessMinStd    = 12.0
	DefaultLivenessMinMotion = 2.0
)

// HeuristicLiveness flags near-black or flat frames and, for sequences,
// frames with no motion between them.
type HeuristicLiveness struct {
	MinMean   float64
	MinStd    float64
	MinMotion float64
}

// NewHeuristicLiveness returns a checker with the default thresholds.
func NewHeuristicLiveness() *HeuristicLiveness {
	return &HeuristicLiveness{
		MinMean:   DefaultLivenessMinMean,
		MinStd:    DefaultLivenessMinStd,
		MinMotion: DefaultLivenessMinMotion,
	}
}

func (h *HeuristicLiveness) Check(_ context.Context, frame image.Image) (bool, error) {
	return h.single(frame), nil
}

func (h *HeuristicLiveness) single(frame image.Image) bool {
	if frame == nil || frame.Bounds().Empty() {
		return false
	}
	mean, std := meanStd(luma(toRGBA(frame)))
	return mean >= h.MinMean && std >= h.MinStd
}

// CheckSequence requires one frame to pass the single-frame check and the
// largest mean absolute difference between consecutive frames to reach
// MinMotion. A lone frame has no pairs, so only the first condition applies.
func (h *HeuristicLiveness) CheckSequence(_ context.Context, frames []image.Image) (bool, error) {
	if len(frames) == 0 {
		return false, nil
	}

	good := false
	for _, f := range frames {
		if h.single(f) {
			good = true
			break
		}
	}
	if !good {
		return false, nil
	}

	maxDiff, pairs := 0.0, 0
	for i := 1; i < len(frames); i++ {
		if frames[i-1] == nil || frames[i] == nil {
			continue
		}
		d := meanAbsDiff(toRGBA(frames[i-1]), toRGBA(frames[i]))
		maxDiff = math.Max(maxDiff, d)
		pairs++
	}
	if pairs == 0 {
		return true, nil
	}
	return maxDiff >= h.MinMotion, nil
}

// meanAbsDiff averages |a-b| over the RGB channels of the overlapping area.
func meanAbsDiff(a, b *image.RGBA) float64 {
	w := min(a.Rect.Dx(), b.Rect.Dx())
	h := min(a.Rect.Dy(), b.Rect.Dy())
	if w == 0 || h == 0 {
		return 0
	}

	var sum float64
	for y := range h {
		ra := a.Pix[y*a.Stride:]
		rb := b.Pix[y*b.Stride:]
		for x := range w {
			for c := range 3 {
				sum += math.Abs(float64(ra[x*4+c]) - float64(rb[x*4+c]))
			}
		}
	}
	return sum / float64(w*h*3)
}
