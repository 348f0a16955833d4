package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/aussiebroadwan/visageid/internal/idp/domain"
	"github.com/aussiebroadwan/visageid/internal/idp/metrics"
	"github.com/aussiebroadwan/visageid/internal/idp/store"
	"github.com/aussiebroadwan/visageid/pkg/facekit"
	"github.com/aussiebroadwan/visageid/pkg/idx"
	"github.com/aussiebroadwan/visageid/pkg/slogx"
)

// Enrollment kinds, used as the metrics label and in audit meta.
const (
	EnrollKindSignup   = "signup"
	EnrollKindEnroll   = "enroll"
	EnrollKindReenroll = "reenroll"
)

// EnrollmentService turns captures into sealed gallery rows.
type EnrollmentService struct {
	Store    store.Store
	Pipeline *facekit.Pipeline
	Codec    *facekit.Codec

	// MaxActive caps the active embeddings per user and model for plain
	// enroll. Zero means no cap.
	MaxActive int

	Metrics *metrics.Metrics
	Audit   *AuditService
}

type SignupRequest struct {
	Email       string
	DisplayName string
	Capture     facekit.Capture
}

// Signup creates a user together with its first embedding.
func (s *EnrollmentService) Signup(ctx context.Context, req SignupRequest) (domain.User, error) {
	l := slogx.FromContext(ctx)

	email := strings.TrimSpace(req.Email)
	name := strings.TrimSpace(req.DisplayName)
	if email == "" || name == "" {
		return domain.User{}, ErrSignupFieldsMissing
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return domain.User{}, ErrInvalidEmail
	}

	if _, err := s.Store.Users().GetUserByEmail(ctx, email); err == nil {
		return domain.User{}, ErrEmailTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return domain.User{}, err
	}

	probe, err := s.Pipeline.Probe(ctx, req.Capture)
	if err != nil {
		return domain.User{}, captureError(err)
	}

	now := time.Now()
	user := domain.User{
		ID:          idx.New().String(),
		Email:       email,
		DisplayName: name,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	row, err := s.sealRow(user.ID, probe, now)
	if err != nil {
		return domain.User{}, err
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().CreateUser(ctx, user); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return ErrEmailTaken
			}
			return err
		}
		return tx.FaceEmbeddings().CreateFaceEmbedding(ctx, row)
	})
	if err != nil {
		return domain.User{}, err
	}

	s.enrolled(ctx, EnrollKindSignup, EventFaceSignup, user.ID, row.ID)
	l.Info("user signed up", "user_id", user.ID)
	return user, nil
}

// Enroll adds another active embedding for userID.
func (s *EnrollmentService) Enroll(ctx context.Context, userID string, capture facekit.Capture) error {
	if _, err := s.Store.Users().GetUserByID(ctx, userID); err != nil {
		return notFoundAs(err, ErrNotFound)
	}

	modelID := s.Pipeline.ModelID()
	if s.MaxActive > 0 {
		n, err := s.Store.FaceEmbeddings().CountActiveFaceEmbeddings(ctx, userID, modelID)
		if err != nil {
			return err
		}
		if n >= s.MaxActive {
			return ErrEnrollmentLimit
		}
	}

	probe, err := s.Pipeline.Probe(ctx, capture)
	if err != nil {
		return captureError(err)
	}
	row, err := s.sealRow(userID, probe, time.Now())
	if err != nil {
		return err
	}
	if err := s.Store.FaceEmbeddings().CreateFaceEmbedding(ctx, row); err != nil {
		return err
	}

	s.enrolled(ctx, EnrollKindEnroll, EventFaceEnroll, userID, row.ID)
	return nil
}

// Reenroll replaces every active embedding of userID for the current model
// with one built from capture. Deactivation and insert share a transaction,
// so exactly one row is active afterwards.
func (s *EnrollmentService) Reenroll(ctx context.Context, userID string, capture facekit.Capture) error {
	if _, err := s.Store.Users().GetUserByID(ctx, userID); err != nil {
		return notFoundAs(err, ErrNotFound)
	}

	probe, err := s.Pipeline.Probe(ctx, capture)
	if err != nil {
		return captureError(err)
	}
	now := time.Now()
	row, err := s.sealRow(userID, probe, now)
	if err != nil {
		return err
	}

	var replaced int64
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		n, err := tx.FaceEmbeddings().DeactivateFaceEmbeddings(ctx, userID, row.ModelID, now)
		if err != nil {
			return err
		}
		replaced = n
		return tx.FaceEmbeddings().CreateFaceEmbedding(ctx, row)
	})
	if err != nil {
		return err
	}

	s.enrolled(ctx, EnrollKindReenroll, EventFaceReenroll, userID, row.ID)
	slogx.FromContext(ctx).Debug("deactivated embeddings", "user_id", userID, "count", replaced)
	return nil
}

func (s *EnrollmentService) sealRow(userID string, probe []float32, now time.Time) (domain.FaceEmbedding, error) {
	modelID := s.Pipeline.ModelID()
	sealed, err := s.Codec.Seal(userID, modelID, probe)
	if err != nil {
		return domain.FaceEmbedding{}, fmt.Errorf("seal embedding: %w", err)
	}
	return domain.FaceEmbedding{
		ID:         idx.New().String(),
		UserID:     userID,
		ModelID:    modelID,
		Ciphertext: sealed,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

func (s *EnrollmentService) enrolled(ctx context.Context, kind, event, userID, embeddingID string) {
	s.Metrics.Enrolled(kind)
	s.Audit.Record(ctx, domain.AuditLog{
		Event:  event,
		UserID: userID,
		Meta:   map[string]any{"embedding_id": embeddingID, "model_id": s.Pipeline.ModelID()},
	})
	slogx.FromContext(ctx).Info("face enrolled", "kind", kind, "user_id", userID)
}
