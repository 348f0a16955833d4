package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/visageid/internal/idp/domain"
	"github.com/aussiebroadwan/visageid/internal/idp/store/drivers/sqlite/gen"
)

type authSessionsRepo struct {
	q *gen.Queries
}

func (r *authSessionsRepo) CreateAuthSession(ctx context.Context, s domain.AuthSession) error {
	return mapWriteErr(r.q.CreateAuthSession(ctx, gen.CreateAuthSessionParams{
		ID:                  s.ID,
		ClientID:            s.ClientID,
		UserID:              s.UserID,
		State:               s.State,
		Nonce:               s.Nonce,
		CodeChallenge:       s.CodeChallenge,
		CodeChallengeMethod: s.CodeChallengeMethod,
		RedirectUri:         s.RedirectURI,
		Scope:               s.Scope,
		ExpiresAt:           utc(s.ExpiresAt),
		VerifiedFace:        s.VerifiedFace,
		LivenessPassed:      s.LivenessPassed,
		AuthTime:            utc(s.AuthTime),
		CreatedAt:           utc(s.CreatedAt),
	}))
}

func (r *authSessionsRepo) GetAuthSessionByID(ctx context.Context, id string) (domain.AuthSession, error) {
	row, err := r.q.GetAuthSessionByID(ctx, id)
	if err != nil {
		return domain.AuthSession{}, mapNotFound(err)
	}
	return mapAuthSession(row), nil
}

func (r *authSessionsRepo) DeleteExpiredAuthSessions(ctx context.Context, now time.Time) (int64, error) {
	return r.q.DeleteExpiredAuthSessions(ctx, utc(now))
}

type authorizationCodesRepo struct {
	q *gen.Queries
}

func (r *authorizationCodesRepo) CreateAuthorizationCode(ctx context.Context, code domain.AuthorizationCode) error {
	return mapWriteErr(r.q.CreateAuthorizationCode(ctx, gen.CreateAuthorizationCodeParams{
		ID:        code.ID,
		SessionID: code.SessionID,
		CodeHash:  code.CodeHash,
		ExpiresAt: utc(code.ExpiresAt),
		CreatedAt: utc(code.CreatedAt),
	}))
}

func (r *authorizationCodesRepo) GetAuthorizationCodeByHash(ctx context.Context, hash string) (domain.AuthorizationCode, error) {
	row, err := r.q.GetAuthorizationCodeByHash(ctx, hash)
	if err != nil {
		return domain.AuthorizationCode{}, mapNotFound(err)
	}
	return mapAuthorizationCode(row), nil
}

func (r *authorizationCodesRepo) ConsumeAuthorizationCode(ctx context.Context, id string, now time.Time) error {
	return mapAffected(r.q.ConsumeAuthorizationCode(ctx, gen.ConsumeAuthorizationCodeParams{
		Now: utc(now),
		ID:  id,
	}))
}

func (r *authorizationCodesRepo) DeleteExpiredAuthorizationCodes(ctx context.Context, now time.Time) (int64, error) {
	return r.q.DeleteExpiredAuthorizationCodes(ctx, utc(now))
}
