package service

import (
	"image"

	"github.com/aussiebroadwan/visageid/pkg/facekit"
)

// DecodeCapture builds a capture from an inline image (data URL or bare
// base64) or a list of frames. Frames take precedence when both are given.
func DecodeCapture(img string, frames []string, lim facekit.Limits) (facekit.Capture, error) {
	if len(frames) == 0 {
		if img == "" {
			return facekit.Capture{}, ErrImageRequired
		}
		frames = []string{img}
	}

	out := make([]image.Image, 0, len(frames))
	for _, f := range frames {
		decoded, err := facekit.DecodeDataURL(f, lim)
		if err != nil {
			return facekit.Capture{}, captureError(err)
		}
		out = append(out, decoded)
	}
	return facekit.Capture{Frames: out}, nil
}

// DecodeUpload builds a single-frame capture from raw uploaded bytes.
func DecodeUpload(raw []byte, lim facekit.Limits) (facekit.Capture, error) {
	img, err := facekit.DecodeImage(raw, lim)
	if err != nil {
		return facekit.Capture{}, captureError(err)
	}
	return facekit.Capture{Frames: []image.Image{img}}, nil
}
