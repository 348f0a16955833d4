package facekit

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ErrVectorFormat is returned when decrypted bytes are not a float32 vector.
var ErrVectorFormat = errors.New("embedding payload is not a float32 vector")

// Sealer is the symmetric key set used for embeddings at rest.
// *cryptox.Keyring satisfies it.
type Sealer interface {
	Seal(plaintext, aad []byte) ([]byte, error)
	Open(sealed, aad []byte) ([]byte, error)
	SealedWithPrimary(sealed []byte) bool
}

// Codec encrypts embedding vectors as little-endian float32 bytes. The owner
// and model identifier are bound as associated data so a ciphertext cannot be
// moved to another user's gallery.
type Codec struct {
	sealer Sealer
}

func NewCodec(s Sealer) *Codec {
	return &Codec{sealer: s}
}

func associatedData(owner, modelID string) []byte {
	return []byte(owner + "|" + modelID)
}

// EncodeVector returns the little-endian float32 layout of v.
func EncodeVector(v []float32) []byte {
	out := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(x))
	}
	return out
}

// DecodeVector parses bytes produced by EncodeVector.
func DecodeVector(b []byte) ([]float32, error) {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil, ErrVectorFormat
	}
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out, nil
}

func (c *Codec) Seal(owner, modelID string, v []float32) ([]byte, error) {
	if len(v) == 0 {
		return nil, ErrVectorFormat
	}
	return c.sealer.Seal(EncodeVector(v), associatedData(owner, modelID))
}

func (c *Codec) Open(owner, modelID string, sealed []byte) ([]float32, error) {
	plain, err := c.sealer.Open(sealed, associatedData(owner, modelID))
	if err != nil {
		return nil, err
	}
	return DecodeVector(plain)
}

// Rewrap re-encrypts sealed under the newest key. The second return value is
// false when the payload already uses it.
func (c *Codec) Rewrap(owner, modelID string, sealed []byte) ([]byte, bool, error) {
	if c.sealer.SealedWithPrimary(sealed) {
		return sealed, false, nil
	}
	aad := associatedData(owner, modelID)
	plain, err := c.sealer.Open(sealed, aad)
	if err != nil {
		return nil, false, err
	}
	out, err := c.sealer.Seal(plain, aad)
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}

// SealedEmbedding is a stored gallery row before decryption.
type SealedEmbedding struct {
	ID      string
	Owner   string
	ModelID string
	Sealed  []byte
}

// Gallery is the decrypted candidate set. Rows that failed to open are
// counted in Skipped and listed in Failures.
type Gallery struct {
	Candidates []Candidate
	Skipped    int
	Failures   []GalleryFailure
}

type GalleryFailure struct {
	ID  string
	Err error
}

// OpenGallery decrypts rows concurrently. A row that cannot be opened, or
// whose vector length differs from dims (when dims > 0), is skipped.
func (c *Codec) OpenGallery(ctx context.Context, rows []SealedEmbedding, dims int) Gallery {
	opened := make([]*Candidate, len(rows))
	var (
		mu       sync.Mutex
		failures []GalleryFailure
	)

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(max(1, min(len(rows), 8)))
	for i, row := range rows {
		g.Go(func() error {
			vec, err := c.Open(row.Owner, row.ModelID, row.Sealed)
			if err == nil && dims > 0 && len(vec) != dims {
				err = fmt.Errorf("%w: got %d dims, want %d", ErrVectorFormat, len(vec), dims)
			}
			if err != nil {
				mu.Lock()
				failures = append(failures, GalleryFailure{ID: row.ID, Err: err})
				mu.Unlock()
				return nil
			}
			opened[i] = &Candidate{Owner: row.Owner, Vector: vec}
			return nil
		})
	}
	_ = g.Wait()

	gallery := Gallery{Candidates: make([]Candidate, 0, len(rows)), Failures: failures, Skipped: len(failures)}
	for _, cand := range opened {
		if cand != nil {
			gallery.Candidates = append(gallery.Candidates, *cand)
		}
	}
	return gallery
}
