// Package facekit provides the perception pipeline used by the face gate:
// frame decoding, liveness heuristics, face localisation, embedding
// extraction, encrypted embedding storage and gallery matching.
package facekit

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"strings"

	_ "golang.org/x/image/webp"
)

var (
	ErrImageRequired = errors.New("image required")
	ErrImageData     = errors.New("invalid image data")
	ErrImageTooLarge = errors.New("image too large")
)

// DefaultMaxPixels bounds the declared dimensions of a decoded image when
// Limits.MaxPixels is zero.
const DefaultMaxPixels = 4096 * 4096

// Limits bound an untrusted image. MaxBytes caps the encoded payload and
// zero disables that check. MaxPixels caps width*height as declared in the
// image header and is checked before any pixel data is decoded.
type Limits struct {
	MaxBytes  int
	MaxPixels int
}

func (l Limits) maxPixels() int {
	if l.MaxPixels > 0 {
		return l.MaxPixels
	}
	return DefaultMaxPixels
}

// DecodeDataURL decodes an inline image. Both "data:image/png;base64,..."
// and bare base64 payloads are accepted.
func DecodeDataURL(s string, lim Limits) (image.Image, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrImageRequired
	}
	if i := strings.LastIndexByte(s, ','); i >= 0 {
		s = s[i+1:]
	}
	if lim.MaxBytes > 0 && base64.StdEncoding.DecodedLen(len(s)) > lim.MaxBytes+3 {
		return nil, ErrImageTooLarge
	}

	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		raw, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrImageData, err)
		}
	}
	return DecodeImage(raw, lim)
}

// DecodeImage decodes PNG, JPEG, GIF or WebP bytes. The header is read first
// so an image whose declared size exceeds lim is rejected with
// ErrImageTooLarge without allocating its pixels.
func DecodeImage(raw []byte, lim Limits) (image.Image, error) {
	if len(raw) == 0 {
		return nil, ErrImageRequired
	}
	if lim.MaxBytes > 0 && len(raw) > lim.MaxBytes {
		return nil, ErrImageTooLarge
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrImageData, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, ErrImageData
	}
	if int64(cfg.Width)*int64(cfg.Height) > int64(lim.maxPixels()) {
		return nil, fmt.Errorf("%w: %dx%d", ErrImageTooLarge, cfg.Width, cfg.Height)
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrImageData, err)
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, ErrImageData
	}
	return img, nil
}

// toRGBA returns img as *image.RGBA anchored at the origin, copying only when needed.
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// luma returns per-pixel 0.299R + 0.587G + 0.114B.
func luma(img *image.RGBA) []float64 {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	out := make([]float64, 0, w*h)
	for y := range h {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for x := 0; x < len(row); x += 4 {
			out = append(out, 0.299*float64(row[x])+0.587*float64(row[x+1])+0.114*float64(row[x+2]))
		}
	}
	return out
}

func meanStd(values []float64) (mean, std float64) {
	if len(values) == 0 {
		return 0, 0
	}
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	for _, v := range values {
		d := v - mean
		std += d * d
	}
	return mean, math.Sqrt(std / float64(len(values)))
}
