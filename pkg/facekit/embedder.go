package facekit

import (
	"context"
	"errors"
	"image"
	"math"

	"golang.org/x/image/draw"
)

// Embedder maps a face region to a fixed-length vector. Implementations must
// be deterministic for identical input.
type Embedder interface {
	ModelID() string
	Embed(ctx context.Context, region image.Image) ([]float32, error)
}

const (
	MeanColorModelID = "simple-mean-v1"
	GradientModelID  = "hog-grid-v1"

	meanColorDims = 128
	gradientSide  = 64
	gradientCell  = 8
	gradientBins  = 8
)

var errEmptyRegion = errors.New("empty face region")

// MeanColorEmbedder tiles the mean B, G and R values, scaled to [0,1], to 128
// dimensions. It only separates faces by skin tone and lighting and exists
// for development and fixtures.
type MeanColorEmbedder struct{}

func (MeanColorEmbedder) ModelID() string { return MeanColorModelID }

func (MeanColorEmbedder) Embed(_ context.Context, region image.Image) ([]float32, error) {
	if region == nil || region.Bounds().Empty() {
		return nil, errEmptyRegion
	}
	img := toRGBA(region)
	w, h := img.Rect.Dx(), img.Rect.Dy()

	var r, g, b float64
	for y := range h {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for x := 0; x < len(row); x += 4 {
			r += float64(row[x])
			g += float64(row[x+1])
			b += float64(row[x+2])
		}
	}
	n := float64(w*h) * 255
	bgr := [3]float32{float32(b / n), float32(g / n), float32(r / n)}

	vec := make([]float32, meanColorDims)
	for i := range vec {
		vec[i] = bgr[i%3]
	}
	return vec, nil
}

// GradientEmbedder builds an orientation histogram descriptor: the region is
// reduced to 64x64 grayscale, centred gradients are binned into 8 directions
// per 8x8 cell weighted by magnitude, and the 512 values are L2 normalised.
type GradientEmbedder struct{}

func (GradientEmbedder) ModelID() string { return GradientModelID }

func (GradientEmbedder) Embed(_ context.Context, region image.Image) ([]float32, error) {
	if region == nil || region.Bounds().Empty() {
		return nil, errEmptyRegion
	}

	small := image.NewRGBA(image.Rect(0, 0, gradientSide, gradientSide))
	draw.NearestNeighbor.Scale(small, small.Bounds(), region, region.Bounds(), draw.Src, nil)
	gray := luma(small)

	at := func(x, y int) float64 { return gray[y*gradientSide+x] }

	const binWidth = 2 * math.Pi / gradientBins
	cells := gradientSide / gradientCell
	desc := make([]float64, cells*cells*gradientBins)

	for y := range gradientSide {
		for x := range gradientSide {
			var dx, dy float64
			if x > 0 && x < gradientSide-1 {
				dx = (at(x+1, y) - at(x-1, y)) * 0.5
			}
			if y > 0 && y < gradientSide-1 {
				dy = (at(x, y+1) - at(x, y-1)) * 0.5
			}
			mag := math.Sqrt(dx*dx+dy*dy) + 1e-6
			ang := math.Mod(math.Atan2(dy, dx)+2*math.Pi, 2*math.Pi)
			bin := min(int(ang/binWidth), gradientBins-1)

			cell := (y/gradientCell)*cells + x/gradientCell
			desc[cell*gradientBins+bin] += mag
		}
	}

	out := make([]float32, len(desc))
	for i, v := range desc {
		out[i] = float32(v)
	}
	return Normalize(out), nil
}

// Normalize scales v to unit L2 norm in place. Zero or non-finite vectors are
// returned unchanged.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	n := math.Sqrt(sum)
	if n == 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return v
	}
	for i := range v {
		v[i] = float32(float64(v[i]) / n)
	}
	return v
}

// EmbedderByName resolves the built-in embedders.
func EmbedderByName(name string) (Embedder, bool) {
	switch name {
	case "simple", MeanColorModelID:
		return MeanColorEmbedder{}, true
	case "hog", "", GradientModelID:
		return GradientEmbedder{}, true
	}
	return nil, false
}
