package service

import (
	"context"

	"github.com/aussiebroadwan/visageid/internal/idp/store"
	"github.com/aussiebroadwan/visageid/pkg/facekit"
	"github.com/aussiebroadwan/visageid/pkg/slogx"
)

// Gallery loads the active embeddings of one model and opens them. Rows
// that fail to decrypt or parse are skipped and logged; the count is on the
// returned facekit.Gallery.
type Gallery struct {
	Store store.Store
	Codec *facekit.Codec

	// Dims, when non-zero, rejects vectors of any other length.
	Dims int
}

func (g *Gallery) Load(ctx context.Context, modelID string) (facekit.Gallery, error) {
	rows, err := g.Store.FaceEmbeddings().ListActiveFaceEmbeddings(ctx, modelID)
	if err != nil {
		return facekit.Gallery{}, err
	}

	sealed := make([]facekit.SealedEmbedding, len(rows))
	for i, row := range rows {
		sealed[i] = facekit.SealedEmbedding{
			ID:      row.ID,
			Owner:   row.UserID,
			ModelID: row.ModelID,
			Sealed:  row.Ciphertext,
		}
	}

	gallery := g.Codec.OpenGallery(ctx, sealed, g.Dims)
	if gallery.Skipped > 0 {
		l := slogx.FromContext(ctx)
		for _, f := range gallery.Failures {
			l.Warn("skipping gallery row", "embedding_id", f.ID, "error", f.Err)
		}
	}
	return gallery, nil
}
