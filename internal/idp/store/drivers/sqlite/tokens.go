package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/aussiebroadwan/visageid/internal/idp/domain"
	"github.com/aussiebroadwan/visageid/internal/idp/store/drivers/sqlite/gen"
)

type tokensRepo struct {
	q *gen.Queries
}

func (r *tokensRepo) CreateToken(ctx context.Context, t domain.Token) error {
	claims := string(t.Claims)
	if claims == "" {
		claims = "{}"
	}
	return mapWriteErr(r.q.CreateToken(ctx, gen.CreateTokenParams{
		Jti:       t.JTI,
		UserID:    t.UserID,
		ClientID:  t.ClientID,
		Type:      string(t.Type),
		Scope:     t.Scope,
		Claims:    claims,
		IssuedAt:  utc(t.IssuedAt),
		ExpiresAt: utc(t.ExpiresAt),
	}))
}

func (r *tokensRepo) GetToken(ctx context.Context, jti string) (domain.Token, error) {
	row, err := r.q.GetToken(ctx, jti)
	if err != nil {
		return domain.Token{}, mapNotFound(err)
	}
	return mapToken(row), nil
}

func (r *tokensRepo) RevokeToken(ctx context.Context, jti string, now time.Time) error {
	return r.q.RevokeToken(ctx, gen.RevokeTokenParams{
		RevokedAt: sql.NullTime{Time: utc(now), Valid: true},
		Jti:       jti,
	})
}

func (r *tokensRepo) DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	return r.q.DeleteExpiredTokens(ctx, utc(now))
}

type auditLogsRepo struct {
	q *gen.Queries
}

func (r *auditLogsRepo) CreateAuditLog(ctx context.Context, l domain.AuditLog) error {
	meta := "{}"
	if len(l.Meta) > 0 {
		b, err := json.Marshal(l.Meta)
		if err != nil {
			return err
		}
		meta = string(b)
	}
	return r.q.CreateAuditLog(ctx, gen.CreateAuditLogParams{
		ID:             l.ID,
		Event:          l.Event,
		Ip:             l.IP,
		UserAgent:      l.UserAgent,
		OrganizationID: mapStringNull(l.OrganizationID),
		ClientID:       mapStringNull(l.ClientID),
		UserID:         mapStringNull(l.UserID),
		Meta:           meta,
		CreatedAt:      utc(l.CreatedAt),
	})
}

func (r *auditLogsRepo) ListAuditLogs(ctx context.Context, limit int) ([]domain.AuditLog, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.q.ListAuditLogs(ctx, int64(limit))
	if err != nil {
		return nil, err
	}
	out := make([]domain.AuditLog, len(rows))
	for i, row := range rows {
		out[i] = mapAuditLog(row)
	}
	return out, nil
}
