package facekit

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPProvider delegates perception to a remote service. It implements
// LivenessChecker, Localizer and Embedder.
//
//	POST {base}/liveness  {"frames": [b64png...]}     -> {"live": bool}
//	POST {base}/detect    {"image": b64png}           -> {"detections": [{"bbox":[x1,y1,x2,y2],"confidence":0.9} | {"crop": b64png}]}
//	POST {base}/embed     {"image": b64png}           -> {"model": "...", "embedding": [...]}
type HTTPProvider struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewHTTPProvider returns a provider for baseURL. model is the identifier
// reported by ModelID and must match what the remote embedder produces.
func NewHTTPProvider(baseURL, model string, timeout time.Duration) *HTTPProvider {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

type providerImages struct {
	Image  string   `json:"image,omitempty"`
	Frames []string `json:"frames,omitempty"`
}

type providerDetection struct {
	BBox       []int    `json:"bbox,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
	Crop       string   `json:"crop,omitempty"`
}

func (p *HTTPProvider) ModelID() string { return p.model }

func (p *HTTPProvider) Check(ctx context.Context, frame image.Image) (bool, error) {
	return p.CheckSequence(ctx, []image.Image{frame})
}

func (p *HTTPProvider) CheckSequence(ctx context.Context, frames []image.Image) (bool, error) {
	if len(frames) == 0 {
		return false, nil
	}
	req := providerImages{Frames: make([]string, 0, len(frames))}
	for _, f := range frames {
		enc, err := encodePNG(f)
		if err != nil {
			return false, err
		}
		req.Frames = append(req.Frames, enc)
	}

	var resp struct {
		Live bool `json:"live"`
	}
	if err := p.post(ctx, "/liveness", req, &resp); err != nil {
		return false, err
	}
	return resp.Live, nil
}

func (p *HTTPProvider) Locate(ctx context.Context, frame image.Image) ([]Detection, error) {
	enc, err := encodePNG(frame)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Detections []providerDetection `json:"detections"`
	}
	if err := p.post(ctx, "/detect", providerImages{Image: enc}, &resp); err != nil {
		return nil, err
	}

	out := make([]Detection, 0, len(resp.Detections))
	for _, d := range resp.Detections {
		switch {
		case d.Crop != "":
			crop, err := DecodeDataURL(d.Crop, Limits{})
			if err != nil {
				return nil, fmt.Errorf("provider crop: %w", err)
			}
			out = append(out, Detection{Crop: crop})
		case len(d.BBox) == 4:
			det := Detection{Box: &BBox{X1: d.BBox[0], Y1: d.BBox[1], X2: d.BBox[2], Y2: d.BBox[3]}}
			if d.Confidence != nil {
				det.Confidence, det.HasConfidence = *d.Confidence, true
			}
			out = append(out, det)
		}
	}
	return out, nil
}

func (p *HTTPProvider) Embed(ctx context.Context, region image.Image) ([]float32, error) {
	enc, err := encodePNG(region)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Model     string    `json:"model"`
		Embedding []float32 `json:"embedding"`
	}
	if err := p.post(ctx, "/embed", providerImages{Image: enc}, &resp); err != nil {
		return nil, err
	}
	if resp.Model != "" && resp.Model != p.model {
		return nil, fmt.Errorf("provider returned model %q, expected %q", resp.Model, p.model)
	}
	if len(resp.Embedding) == 0 {
		return nil, errors.New("provider returned empty embedding")
	}
	return resp.Embedding, nil
}

func (p *HTTPProvider) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("provider %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("provider %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("provider %s: decode: %w", path, err)
	}
	return nil
}

func encodePNG(img image.Image) (string, error) {
	if img == nil {
		return "", ErrImageRequired
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode frame: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
