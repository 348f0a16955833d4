package facekit

import (
	"context"
	"errors"
	"fmt"
	"image"
)

// ErrNotLive is returned when the liveness checker rejects a capture.
var ErrNotLive = errors.New("liveness check failed")

// Pipeline runs liveness, localisation and embedding for one capture. A nil
// Localizer means the whole frame is treated as the face region.
type Pipeline struct {
	Liveness      LivenessChecker
	Localizer     Localizer
	Embedder      Embedder
	MinConfidence float64
}

// Capture is one or more frames of the same subject. The last frame is the
// one embedded.
type Capture struct {
	Frames []image.Image
}

// Probe returns the L2-normalised embedding of the capture.
func (p *Pipeline) Probe(ctx context.Context, c Capture) ([]float32, error) {
	if len(c.Frames) == 0 {
		return nil, ErrImageRequired
	}
	frame := c.Frames[len(c.Frames)-1]

	var (
		live bool
		err  error
	)
	if len(c.Frames) == 1 {
		live, err = p.Liveness.Check(ctx, frame)
	} else {
		live, err = p.Liveness.CheckSequence(ctx, c.Frames)
	}
	if err != nil {
		return nil, fmt.Errorf("liveness: %w", err)
	}
	if !live {
		return nil, ErrNotLive
	}

	region := frame
	if p.Localizer != nil {
		dets, err := p.Localizer.Locate(ctx, frame)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNoFace, err)
		}
		var ok bool
		if region, ok = SelectRegion(frame, dets, p.MinConfidence); !ok {
			return nil, ErrNoFace
		}
	}

	vec, err := p.Embedder.Embed(ctx, region)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	return Normalize(vec), nil
}

// ModelID is the identifier stored with embeddings produced by this pipeline.
func (p *Pipeline) ModelID() string {
	return p.Embedder.ModelID()
}
