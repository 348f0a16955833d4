package domain

import "time"

// FaceEmbedding is one sealed gallery vector. Only active rows whose ModelID
// matches the running embedder take part in matching.
type FaceEmbedding struct {
	ID         string
	UserID     string
	ModelID    string
	Ciphertext []byte
	Active     bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
