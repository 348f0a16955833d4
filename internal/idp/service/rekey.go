package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aussiebroadwan/visageid/internal/idp/domain"
	"github.com/aussiebroadwan/visageid/internal/idp/store"
	"github.com/aussiebroadwan/visageid/pkg/cryptox"
	"github.com/aussiebroadwan/visageid/pkg/facekit"
	"github.com/aussiebroadwan/visageid/pkg/slogx"
)

// rekeyProgressEvery controls how often progress is logged.
const rekeyProgressEvery = 100

// RekeyService rotates the embedding keyring and re-encrypts every stored
// embedding under the new key.
type RekeyService struct {
	Store   store.Store
	Keyring *cryptox.Keyring
	Codec   *facekit.Codec
	Audit   *AuditService

	// Workers bounds concurrent decrypt/encrypt work. Defaults to 4.
	Workers int
}

// RekeyResult reports a rotation. KeyMaterial is the new key in the form
// ENCRYPTION_KEYS expects and must be prepended there by the operator, or
// rows rewrapped under it become unreadable after a restart.
type RekeyResult struct {
	KeyMaterial string `json:"key_material"`
	Fingerprint string `json:"fingerprint"`
	Keys        int    `json:"keys"`
	Rewrapped   int    `json:"rewrapped"`
	Unchanged   int    `json:"unchanged"`
	Failed      int    `json:"failed"`
}

// Rotate generates a key, makes it primary and rewraps the gallery.
func (s *RekeyService) Rotate(ctx context.Context) (RekeyResult, error) {
	material, err := cryptox.GenerateKeyMaterial()
	if err != nil {
		return RekeyResult{}, fmt.Errorf("generate key material: %w", err)
	}
	if err := s.Keyring.Rotate([]byte(material)); err != nil {
		return RekeyResult{}, fmt.Errorf("rotate keyring: %w", err)
	}

	res, err := s.Rewrap(ctx)
	res.KeyMaterial = material
	if err != nil {
		return res, err
	}

	s.Audit.Record(ctx, domain.AuditLog{
		Event: EventKeyringRotated,
		Meta: map[string]any{
			"fingerprint": res.Fingerprint,
			"rewrapped":   res.Rewrapped,
			"failed":      res.Failed,
		},
	})
	return res, nil
}

// Rewrap re-encrypts every row not already sealed under the primary key.
// Rows that fail to open are counted and left untouched.
func (s *RekeyService) Rewrap(ctx context.Context) (RekeyResult, error) {
	l := slogx.FromContext(ctx)
	res := RekeyResult{Fingerprint: s.Keyring.PrimaryFingerprint(), Keys: s.Keyring.Len()}

	rows, err := s.Store.FaceEmbeddings().ListFaceEmbeddings(ctx)
	if err != nil {
		return res, err
	}
	l.Info("rekey started", "rows", len(rows), "fingerprint", res.Fingerprint)

	workers := s.Workers
	if workers <= 0 {
		workers = 4
	}

	var (
		mu      sync.Mutex
		updates = make(map[string][]byte)
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, row := range rows {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, changed, err := s.Codec.Rewrap(row.UserID, row.ModelID, row.Ciphertext)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				res.Failed++
				l.Warn("rekey skipped row", "embedding_id", row.ID, "error", err)
			case changed:
				updates[row.ID] = out
			default:
				res.Unchanged++
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, err
	}

	now := time.Now()
	for id, ct := range updates {
		if err := s.Store.FaceEmbeddings().UpdateFaceEmbeddingCiphertext(ctx, id, ct, now); err != nil {
			res.Failed++
			l.Error("rekey update failed", "embedding_id", id, "error", err)
			continue
		}
		res.Rewrapped++
		if res.Rewrapped%rekeyProgressEvery == 0 {
			l.Info("rekey progress", "rewrapped", res.Rewrapped, "total", len(updates))
		}
	}

	l.Info("rekey completed",
		"rewrapped", res.Rewrapped,
		"unchanged", res.Unchanged,
		"failed", res.Failed,
	)
	return res, nil
}
