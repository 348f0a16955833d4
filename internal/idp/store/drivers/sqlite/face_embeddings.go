package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/visageid/internal/idp/domain"
	"github.com/aussiebroadwan/visageid/internal/idp/store/drivers/sqlite/gen"
)

type faceEmbeddingsRepo struct {
	q *gen.Queries
}

func (r *faceEmbeddingsRepo) CreateFaceEmbedding(ctx context.Context, e domain.FaceEmbedding) error {
	return mapWriteErr(r.q.CreateFaceEmbedding(ctx, gen.CreateFaceEmbeddingParams{
		ID:         e.ID,
		UserID:     e.UserID,
		ModelID:    e.ModelID,
		Ciphertext: e.Ciphertext,
		Active:     e.Active,
		CreatedAt:  utc(e.CreatedAt),
		UpdatedAt:  utc(e.UpdatedAt),
	}))
}

func (r *faceEmbeddingsRepo) ListActiveFaceEmbeddings(ctx context.Context, modelID string) ([]domain.FaceEmbedding, error) {
	rows, err := r.q.ListActiveFaceEmbeddings(ctx, modelID)
	if err != nil {
		return nil, err
	}
	return mapFaceEmbeddings(rows), nil
}

func (r *faceEmbeddingsRepo) ListFaceEmbeddings(ctx context.Context) ([]domain.FaceEmbedding, error) {
	rows, err := r.q.ListFaceEmbeddings(ctx)
	if err != nil {
		return nil, err
	}
	return mapFaceEmbeddings(rows), nil
}

func (r *faceEmbeddingsRepo) CountActiveFaceEmbeddings(ctx context.Context, userID, modelID string) (int, error) {
	n, err := r.q.CountActiveFaceEmbeddings(ctx, gen.CountActiveFaceEmbeddingsParams{
		UserID:  userID,
		ModelID: modelID,
	})
	return int(n), err
}

func (r *faceEmbeddingsRepo) DeactivateFaceEmbeddings(ctx context.Context, userID, modelID string, now time.Time) (int64, error) {
	return r.q.DeactivateFaceEmbeddings(ctx, gen.DeactivateFaceEmbeddingsParams{
		UpdatedAt: utc(now),
		UserID:    userID,
		ModelID:   modelID,
	})
}

func (r *faceEmbeddingsRepo) UpdateFaceEmbeddingCiphertext(ctx context.Context, id string, ciphertext []byte, now time.Time) error {
	return mapAffected(r.q.UpdateFaceEmbeddingCiphertext(ctx, gen.UpdateFaceEmbeddingCiphertextParams{
		Ciphertext: ciphertext,
		UpdatedAt:  utc(now),
		ID:         id,
	}))
}

func mapFaceEmbeddings(rows []gen.FaceEmbedding) []domain.FaceEmbedding {
	out := make([]domain.FaceEmbedding, len(rows))
	for i, row := range rows {
		out[i] = mapFaceEmbedding(row)
	}
	return out
}
